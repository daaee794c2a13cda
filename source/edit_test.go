package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReplace(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		start    int
		end      int
		insert   string
		wantText string
		want     Edit
	}{
		{
			name: "insert", text: "a+b", start: 2, end: 2, insert: "c", wantText: "a+cb",
			want: Edit{StartByte: 2, OldEndByte: 2, NewEndByte: 3,
				StartPoint: Point{0, 2}, OldEndPoint: Point{0, 2}, NewEndPoint: Point{0, 3}},
		},
		{
			name: "delete across lines", text: "ab\ncd", start: 1, end: 4, insert: "", wantText: "ad",
			want: Edit{StartByte: 1, OldEndByte: 4, NewEndByte: 1,
				StartPoint: Point{0, 1}, OldEndPoint: Point{1, 1}, NewEndPoint: Point{0, 1}},
		},
		{
			name: "insert newline", text: "xy", start: 1, end: 1, insert: "\nz", wantText: "x\nzy",
			want: Edit{StartByte: 1, OldEndByte: 1, NewEndByte: 3,
				StartPoint: Point{0, 1}, OldEndPoint: Point{0, 1}, NewEndPoint: Point{1, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, e := Replace([]byte(tt.text), tt.start, tt.end, []byte(tt.insert))
			if string(got) != tt.wantText {
				t.Errorf("text = %q, want %q", got, tt.wantText)
			}
			if diff := cmp.Diff(tt.want, e); diff != "" {
				t.Errorf("edit mismatch (-want +got):\n%s", diff)
			}
			if err := e.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestEditMap(t *testing.T) {
	_, e := Replace([]byte("ab\ncd"), 1, 4, []byte("X"))

	tests := []struct {
		name   string
		pos    Length
		docEnd bool
		want   Length
	}{
		{"before", Length{0, Point{0, 0}}, false, Length{0, Point{0, 0}}},
		{"inside", Length{3, Point{1, 0}}, false, Length{1, Point{0, 1}}},
		{"old end", Length{4, Point{1, 1}}, false, Length{2, Point{0, 2}}},
		{"document end", Length{5, Point{1, 2}}, true, Length{3, Point{0, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Map(tt.pos, tt.docEnd); got != tt.want {
				t.Errorf("Map(%v) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

func TestEditMapInsertionBoundary(t *testing.T) {
	_, e := Replace([]byte("a+b"), 2, 2, []byte("c"))

	if got := e.Map(Length{2, Point{0, 2}}, false); got.Bytes != 2 {
		t.Errorf("boundary maps to %d, want 2", got.Bytes)
	}
	if got := e.Map(Length{3, Point{0, 3}}, true); got.Bytes != 4 {
		t.Errorf("document end maps to %d, want 4", got.Bytes)
	}
}

func TestDiff(t *testing.T) {
	e, ok := Diff([]byte("hello world"), []byte("hello brave world"))
	if !ok {
		t.Fatal("Diff reported no change")
	}
	want := Edit{StartByte: 6, OldEndByte: 6, NewEndByte: 12,
		StartPoint: Point{0, 6}, OldEndPoint: Point{0, 6}, NewEndPoint: Point{0, 12}}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Errorf("edit mismatch (-want +got):\n%s", diff)
	}

	if _, ok := Diff([]byte("same"), []byte("same")); ok {
		t.Error("Diff of equal texts reported a change")
	}
}

func TestLengthArithmetic(t *testing.T) {
	a := Length{}.Advance([]byte("ab\ncd"))
	if want := (Length{5, Point{1, 2}}); a != want {
		t.Fatalf("Advance = %v, want %v", a, want)
	}
	b := Length{}.Advance([]byte("x\ny"))
	sum := a.Add(b)
	if want := (Length{8, Point{2, 1}}); sum != want {
		t.Errorf("Add = %v, want %v", sum, want)
	}
	if got := sum.Sub(a); got != b {
		t.Errorf("Sub = %v, want %v", got, b)
	}
}

func TestReader(t *testing.T) {
	r := NewReader(ReaderAt(stringReaderAt("hello"), 5))
	for i, want := range []byte("hello") {
		got, ok := r.ByteAt(i)
		if !ok || got != want {
			t.Errorf("ByteAt(%d) = %q, %v, want %q", i, got, ok, want)
		}
	}
	if _, ok := r.ByteAt(5); ok {
		t.Error("ByteAt(5) reported a byte past the end")
	}
	if got := string(r.Slice(1, 10)); got != "ello" {
		t.Errorf("Slice = %q, want %q", got, "ello")
	}
}

type stringReaderAt string

func (s stringReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, s[off:])
	return n, nil
}
