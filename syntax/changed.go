package syntax

import (
	"slices"

	"github.com/dhamidi/sitter/source"
)

// ChangedRanges compares two versions of a document's tree and returns the
// merged ranges of the new tree whose structure differs from the old one.
// old must already be edited into the new document's coordinates.
func ChangedRanges(old, new *Tree) []source.Range {
	var out []source.Range
	diffNodes(old.Root(), new.Root(), &out)
	return mergeRanges(out)
}

func diffNodes(a, b Node, out *[]source.Range) {
	if a.st == b.st && a.pos == b.pos {
		return
	}
	if a.Symbol() != b.Symbol() || a.Range() != b.Range() || a.IsMissing() != b.IsMissing() || a.IsExtra() != b.IsExtra() {
		*out = append(*out, cover(a.Range(), b.Range()))
		return
	}
	ac, bc := a.Children(), b.Children()
	if len(ac) != len(bc) {
		*out = append(*out, b.Range())
		return
	}
	for i := range ac {
		diffNodes(ac[i], bc[i], out)
	}
}

func cover(a, b source.Range) source.Range {
	r := b
	if a.StartByte < r.StartByte {
		r.StartByte, r.StartPoint = a.StartByte, a.StartPoint
	}
	if a.EndByte > r.EndByte {
		r.EndByte, r.EndPoint = a.EndByte, a.EndPoint
	}
	return r
}

func mergeRanges(rs []source.Range) []source.Range {
	slices.SortFunc(rs, func(a, b source.Range) int { return a.StartByte - b.StartByte })
	var out []source.Range
	for _, r := range rs {
		if n := len(out); n > 0 && r.StartByte <= out[n-1].EndByte {
			out[n-1] = cover(out[n-1], r)
			continue
		}
		out = append(out, r)
	}
	return out
}
