package scanner

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"
)

// Variant is one lexical family handled by a Mux. Its section of the state
// blob is tagged with its discriminant byte.
type Variant interface {
	Scanner
	Tag() byte
	// Tokens lists the external token indexes the variant recognizes.
	Tokens() []int
}

// Mux combines several variants into one Scanner. The blob is a sequence of
// sections, each laid out as [tag][uvarint length][payload]; variants whose
// state serializes to nothing are omitted.
type Mux struct {
	variants []Variant
}

// MuxState holds one state per variant, in the order the variants were given.
type MuxState []State

func NewMux(variants ...Variant) *Mux {
	return &Mux{variants: variants}
}

func (m *Mux) Variants() []Variant {
	return m.variants
}

func (m *Mux) Serialize(state State) ([]byte, error) {
	s, ok := state.(MuxState)
	if !ok || len(s) != len(m.variants) {
		return nil, fmt.Errorf("mux: unexpected state %T", state)
	}
	var out []byte
	for i, v := range m.variants {
		blob, err := v.Serialize(s[i])
		if err != nil {
			return nil, fmt.Errorf("mux variant %q: %w", v.Tag(), err)
		}
		if len(blob) == 0 {
			continue
		}
		out = append(out, v.Tag())
		out = binary.AppendUvarint(out, uint64(len(blob)))
		out = append(out, blob...)
	}
	return out, nil
}

func (m *Mux) Deserialize(blob []byte) (State, error) {
	sections := make(map[byte][]byte)
	for len(blob) > 0 {
		tag := blob[0]
		n, k := binary.Uvarint(blob[1:])
		if k <= 0 || n > uint64(len(blob)-1-k) {
			return nil, &ProtocolError{Reason: fmt.Sprintf("truncated section %q", tag)}
		}
		if _, dup := sections[tag]; dup {
			return nil, &ProtocolError{Reason: fmt.Sprintf("duplicate section %q", tag)}
		}
		sections[tag] = blob[1+k : 1+k+int(n)]
		blob = blob[1+k+int(n):]
	}

	s := make(MuxState, len(m.variants))
	for i, v := range m.variants {
		st, err := v.Deserialize(sections[v.Tag()])
		if err != nil {
			return nil, fmt.Errorf("mux variant %q: %w", v.Tag(), err)
		}
		delete(sections, v.Tag())
		s[i] = st
	}
	if len(sections) > 0 {
		tags := slices.Sorted(maps.Keys(sections))
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown discriminant %q", tags[0])}
	}
	return s, nil
}

// Scan offers the position to each variant owning a valid token, in order,
// rewinding the cursor between attempts.
func (m *Mux) Scan(c *Cursor, valid []bool, state State) (State, bool) {
	s, ok := state.(MuxState)
	if !ok || len(s) != len(m.variants) {
		return state, false
	}
	for i, v := range m.variants {
		if !AnyValid(valid, v.Tokens()...) {
			continue
		}
		next, ok := v.Scan(c, valid, s[i])
		if ok {
			out := slices.Clone(s)
			out[i] = next
			return out, true
		}
		c.rewind()
	}
	return state, false
}
