package scanner

import (
	"errors"
	"testing"

	"github.com/dhamidi/sitter/source"
	"github.com/google/go-cmp/cmp"
)

// depthVariant recognizes '(' and ')' while tracking nesting depth.
type depthVariant struct {
	tag         byte
	open, close int
}

func (v depthVariant) Tag() byte     { return v.tag }
func (v depthVariant) Tokens() []int { return []int{v.open, v.close} }

func (v depthVariant) Serialize(state State) ([]byte, error) {
	d := state.(int)
	if d == 0 {
		return nil, nil
	}
	return []byte{byte(d)}, nil
}

func (v depthVariant) Deserialize(blob []byte) (State, error) {
	if len(blob) == 0 {
		return 0, nil
	}
	return int(blob[0]), nil
}

func (v depthVariant) Scan(c *Cursor, valid []bool, state State) (State, bool) {
	d := state.(int)
	switch c.Lookahead() {
	case '(':
		if !valid[v.open] {
			return state, false
		}
		c.Advance(false)
		c.SetResult(v.open)
		return d + 1, true
	case ')':
		if !valid[v.close] || d == 0 {
			return state, false
		}
		c.Advance(false)
		c.SetResult(v.close)
		return d - 1, true
	}
	return state, false
}

// greedyDecliner consumes input and then declines.
type greedyDecliner struct{}

func (greedyDecliner) Tag() byte                          { return 'g' }
func (greedyDecliner) Tokens() []int                      { return []int{0, 1} }
func (greedyDecliner) Serialize(State) ([]byte, error)    { return nil, nil }
func (greedyDecliner) Deserialize([]byte) (State, error)  { return nil, nil }
func (greedyDecliner) Scan(c *Cursor, _ []bool, s State) (State, bool) {
	for !c.EOF() {
		c.Advance(false)
	}
	return s, false
}

func cursorFor(text string, limit int) *Cursor {
	return NewCursor(source.NewReader(source.String(text)), source.Length{}, limit)
}

func TestMuxRoundTrip(t *testing.T) {
	m := NewMux(depthVariant{tag: 'a', open: 0, close: 1}, depthVariant{tag: 'b', open: 2, close: 3})

	tests := []struct {
		name  string
		state MuxState
	}{
		{"empty", MuxState{0, 0}},
		{"first only", MuxState{3, 0}},
		{"both", MuxState{1, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := m.Serialize(tt.state)
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			got, err := m.Deserialize(blob)
			if err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}
			if diff := cmp.Diff(tt.state, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMuxRejectsUnknownSection(t *testing.T) {
	m := NewMux(depthVariant{tag: 'a', open: 0, close: 1})

	for _, blob := range [][]byte{{'z', 1, 0}, {'a', 5, 1}} {
		if _, err := m.Deserialize(blob); !errors.Is(err, ErrProtocolViolation) {
			t.Errorf("Deserialize(%v) error = %v, want protocol violation", blob, err)
		}
	}
}

func TestMuxScanRewindsBetweenVariants(t *testing.T) {
	m := NewMux(greedyDecliner{}, depthVariant{tag: 'a', open: 0, close: 1})
	c := cursorFor("(x", 0)

	state, err := m.Deserialize(nil)
	if err != nil {
		t.Fatal(err)
	}
	next, ok := m.Scan(c, []bool{true, true}, state)
	if !ok {
		t.Fatal("Scan() did not claim '('")
	}
	if idx, _ := c.Result(); idx != 0 {
		t.Errorf("result = %d, want 0", idx)
	}
	start, end := c.Token()
	if start.Bytes != 0 || end.Bytes != 1 {
		t.Errorf("token = [%d, %d), want [0, 1)", start.Bytes, end.Bytes)
	}
	if diff := cmp.Diff(MuxState{nil, 1}, next); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestCursorSkipBecomesPadding(t *testing.T) {
	c := cursorFor("  ab", 0)
	c.Advance(true)
	c.Advance(true)
	c.Advance(false)
	c.MarkEnd()
	c.Advance(false)

	start, end := c.Token()
	if start.Bytes != 2 || end.Bytes != 3 {
		t.Errorf("token = [%d, %d), want [2, 3)", start.Bytes, end.Bytes)
	}
	if got := c.Examined(); got != 4 {
		t.Errorf("Examined() = %d, want 4", got)
	}
}

func TestCursorStepLimit(t *testing.T) {
	c := cursorFor("aaaaaaaaaa", 3)
	for i := 0; i < 100 && !c.EOF(); i++ {
		c.Lookahead()
	}
	if !c.Exhausted() {
		t.Error("cursor not exhausted after exceeding its step limit")
	}
}
