package source

import (
	"bytes"
	"fmt"
)

// Edit describes a replacement of the bytes [StartByte, OldEndByte) of a
// document with new text ending at NewEndByte.
type Edit struct {
	StartByte   int   `json:"start_byte"`
	OldEndByte  int   `json:"old_end_byte"`
	NewEndByte  int   `json:"new_end_byte"`
	StartPoint  Point `json:"start_point"`
	OldEndPoint Point `json:"old_end_point"`
	NewEndPoint Point `json:"new_end_point"`
}

func (e Edit) Validate() error {
	if e.StartByte < 0 || e.OldEndByte < e.StartByte || e.NewEndByte < e.StartByte {
		return fmt.Errorf("malformed edit [%d, %d) -> [%d, %d)", e.StartByte, e.OldEndByte, e.StartByte, e.NewEndByte)
	}
	if e.OldEndPoint.Less(e.StartPoint) || e.NewEndPoint.Less(e.StartPoint) {
		return fmt.Errorf("malformed edit points %s %s %s", e.StartPoint, e.OldEndPoint, e.NewEndPoint)
	}
	return nil
}

func (e Edit) Start() Length  { return Length{Bytes: e.StartByte, Extent: e.StartPoint} }
func (e Edit) OldEnd() Length { return Length{Bytes: e.OldEndByte, Extent: e.OldEndPoint} }
func (e Edit) NewEnd() Length { return Length{Bytes: e.NewEndByte, Extent: e.NewEndPoint} }

// Map translates an absolute position of the old document into the new one.
// Positions inside the replaced range collapse onto its start; text inserted
// at a boundary belongs to whatever follows the boundary, except at the end
// of the document, which always moves with the edit.
func (e Edit) Map(pos Length, docEnd bool) Length {
	x := pos.Bytes
	switch {
	case x < e.StartByte:
		return pos
	case x > e.OldEndByte,
		x == e.OldEndByte && (e.OldEndByte > e.StartByte || docEnd):
		return e.NewEnd().Add(pos.Sub(e.OldEnd()))
	default:
		return e.Start()
	}
}

// Replace returns a copy of text with text[start:end] replaced by insert,
// along with the edit that describes the change.
func Replace(text []byte, start, end int, insert []byte) ([]byte, Edit) {
	out := make([]byte, 0, len(text)-(end-start)+len(insert))
	out = append(out, text[:start]...)
	out = append(out, insert...)
	out = append(out, text[end:]...)

	startPt := PointAt(text, start)
	e := Edit{
		StartByte:   start,
		OldEndByte:  end,
		NewEndByte:  start + len(insert),
		StartPoint:  startPt,
		OldEndPoint: PointAt(text, end),
		NewEndPoint: Length{Bytes: start, Extent: startPt}.Advance(insert).Extent,
	}
	return out, e
}

// Diff returns the single edit that turns old into new by trimming their
// common prefix and suffix. It reports false when the texts are equal.
func Diff(old, new []byte) (Edit, bool) {
	if bytes.Equal(old, new) {
		return Edit{}, false
	}
	prefix := 0
	for prefix < len(old) && prefix < len(new) && old[prefix] == new[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(old)-prefix && suffix < len(new)-prefix &&
		old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}
	startPt := PointAt(old, prefix)
	return Edit{
		StartByte:   prefix,
		OldEndByte:  len(old) - suffix,
		NewEndByte:  len(new) - suffix,
		StartPoint:  startPt,
		OldEndPoint: PointAt(old, len(old)-suffix),
		NewEndPoint: PointAt(new, len(new)-suffix),
	}, true
}
