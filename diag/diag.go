// Package diag turns the error and missing nodes of a syntax tree into
// diagnostics and renders them against the source text.
package diag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/syntax"
	"github.com/mattn/go-runewidth"
)

// maxQuoted bounds the display width of source text quoted in a message.
const maxQuoted = 24

type Diagnostic struct {
	Range   source.Range
	Message string
	// Missing is set when the parser inserted a token rather than skipping
	// input.
	Missing bool
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Range.StartPoint, d.Message)
}

// Collect lists one diagnostic per error node and per missing token of tree,
// in document order. src is the text the tree was parsed from. Hidden tokens
// count too, so an unterminated literal reports its missing delimiter.
func Collect(tree *syntax.Tree, src []byte) []Diagnostic {
	var out []Diagnostic
	collect(tree.Language(), tree.RootSubtree(), source.Length{}, src, &out)
	return out
}

func collect(lang *grammar.Descriptor, st *syntax.Subtree, pos source.Length, src []byte, out *[]Diagnostic) {
	if !st.HasError() {
		return
	}
	start := pos.Add(st.Padding())
	end := start.Add(st.Size())
	r := source.Range{StartByte: start.Bytes, EndByte: end.Bytes, StartPoint: start.Extent, EndPoint: end.Extent}

	switch {
	case st.IsMissing():
		*out = append(*out, Diagnostic{Range: r, Message: "missing " + describe(lang, st.Symbol()), Missing: true})
	case st.Symbol() == grammar.SymbolError:
		*out = append(*out, Diagnostic{Range: r, Message: unexpected(src, r)})
	default:
		for _, c := range st.Children() {
			collect(lang, c, pos, src, out)
			pos = pos.Add(c.Total())
		}
	}
}

func describe(lang *grammar.Descriptor, sym grammar.Symbol) string {
	info := lang.Symbol(sym)
	switch {
	case info.Hidden:
		return strings.ReplaceAll(strings.Trim(info.Name, "_"), "_", " ")
	case !info.Named:
		return strconv.Quote(info.Name)
	}
	return info.Name
}

func unexpected(src []byte, r source.Range) string {
	if r.StartByte >= len(src) {
		return "unexpected end of input"
	}
	text := string(src[r.StartByte:min(r.EndByte, len(src))])
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if text == "" {
		return "syntax error"
	}
	return "unexpected " + strconv.Quote(runewidth.Truncate(text, maxQuoted, "..."))
}

// Show renders d with the line it starts on and a caret underline below the
// culprit. Columns are measured in display cells, so wide runes shift the
// carets accordingly.
func (d Diagnostic) Show(src []byte) string {
	var b strings.Builder
	b.WriteString(d.Error())
	b.WriteByte('\n')

	start := min(d.Range.StartByte, len(src))
	lineStart := max(start-d.Range.StartPoint.Column, 0)
	lineEnd := len(src)
	if i := strings.IndexByte(string(src[start:]), '\n'); i >= 0 {
		lineEnd = start + i
	}
	head := string(src[lineStart:start])
	culprit := string(src[start:max(min(d.Range.EndByte, lineEnd), start)])

	b.WriteString("  ")
	b.WriteString(strings.TrimRight(string(src[lineStart:lineEnd]), "\r"))
	b.WriteString("\n  ")
	for _, r := range head {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	b.WriteString(strings.Repeat("^", max(runewidth.StringWidth(culprit), 1)))
	return b.String()
}
