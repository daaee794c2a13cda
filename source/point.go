// Package source holds the coordinate types shared by the lexer, the parser
// and the syntax tree: points, lengths, ranges, input providers and edits.
package source

import "fmt"

// Point is a zero-based row and byte column.
type Point struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

func (p Point) Less(o Point) bool {
	return p.Row < o.Row || (p.Row == o.Row && p.Column < o.Column)
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row+1, p.Column+1)
}

// Length is a byte count together with the row/column extent it covers.
// Absolute positions are lengths measured from the start of the document.
type Length struct {
	Bytes  int   `json:"bytes"`
	Extent Point `json:"extent"`
}

// Add returns the length of a followed by b.
func (a Length) Add(b Length) Length {
	if b.Extent.Row > 0 {
		return Length{
			Bytes:  a.Bytes + b.Bytes,
			Extent: Point{Row: a.Extent.Row + b.Extent.Row, Column: b.Extent.Column},
		}
	}
	return Length{
		Bytes:  a.Bytes + b.Bytes,
		Extent: Point{Row: a.Extent.Row, Column: a.Extent.Column + b.Extent.Column},
	}
}

// Sub returns the length that leads from b to a. b must not lie after a.
func (a Length) Sub(b Length) Length {
	if a.Extent.Row > b.Extent.Row {
		return Length{
			Bytes:  a.Bytes - b.Bytes,
			Extent: Point{Row: a.Extent.Row - b.Extent.Row, Column: a.Extent.Column},
		}
	}
	return Length{
		Bytes:  a.Bytes - b.Bytes,
		Extent: Point{Column: a.Extent.Column - b.Extent.Column},
	}
}

// Advance extends l over text.
func (l Length) Advance(text []byte) Length {
	for _, b := range text {
		l.Bytes++
		if b == '\n' {
			l.Extent.Row++
			l.Extent.Column = 0
		} else {
			l.Extent.Column++
		}
	}
	return l
}

func (l Length) IsZero() bool {
	return l.Bytes == 0 && l.Extent == Point{}
}

// Range is a half-open byte range with the points of its ends.
type Range struct {
	StartByte  int   `json:"start_byte"`
	EndByte    int   `json:"end_byte"`
	StartPoint Point `json:"start_point"`
	EndPoint   Point `json:"end_point"`
}

func (r Range) Len() int {
	return r.EndByte - r.StartByte
}

func (r Range) Contains(offset int) bool {
	return offset >= r.StartByte && offset < r.EndByte
}

// Overlaps reports whether r and o share at least one byte, or whether an
// empty range sits inside the other one.
func (r Range) Overlaps(o Range) bool {
	if r.Len() == 0 || o.Len() == 0 {
		return r.StartByte <= o.EndByte && o.StartByte <= r.EndByte
	}
	return r.StartByte < o.EndByte && o.StartByte < r.EndByte
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.StartByte, r.EndByte)
}

// PointAt returns the point of offset within text.
func PointAt(text []byte, offset int) Point {
	if offset > len(text) {
		offset = len(text)
	}
	return Length{}.Advance(text[:offset]).Extent
}
