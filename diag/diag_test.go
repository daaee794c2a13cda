package diag_test

import (
	"context"
	"testing"

	"github.com/dhamidi/sitter/diag"
	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/grammar/grammartest"
	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/source"
	"github.com/google/go-cmp/cmp"
)

type summary struct {
	Start, End int
	Message    string
	Missing    bool
}

func TestCollect(t *testing.T) {
	lang, err := grammar.New(grammartest.Arith(true), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p := parser.New(lang)
	tests := []struct {
		input string
		want  []summary
	}{
		{"a+b", nil},
		{"a+?", []summary{
			{2, 3, `unexpected "?"`, false},
			{3, 3, "missing IDENT", true},
		}},
		{"a + + b", []summary{{4, 5, `unexpected "+"`, false}}},
		{"a+", []summary{{2, 2, "missing IDENT", true}}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tree, err := p.Parse(context.Background(), source.String(tt.input), nil)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			var got []summary
			for _, d := range diag.Collect(tree, []byte(tt.input)) {
				got = append(got, summary{d.Range.StartByte, d.Range.EndByte, d.Message, d.Missing})
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func at(src string, start, end int) source.Range {
	return source.Range{
		StartByte:  start,
		EndByte:    end,
		StartPoint: source.PointAt([]byte(src), start),
		EndPoint:   source.PointAt([]byte(src), end),
	}
}

func TestShow(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		start, end int
		want       string
	}{
		{"single", "a + ? b\n", 4, 5, "1:5: boom\n  a + ? b\n      ^"},
		{"second line", "x\nfoo bar\n", 6, 9, "2:5: boom\n  foo bar\n      ^^^"},
		{"empty culprit", "a +", 3, 3, "1:4: boom\n  a +\n     ^"},
		{"wide runes", "日本 ?", 7, 8, "1:8: boom\n  日本 ?\n       ^"},
		{"tabs", "\tx ?", 3, 4, "1:4: boom\n  \tx ?\n  \t  ^"},
		{"multi-line culprit", "ab\ncd", 1, 4, "1:2: boom\n  ab\n   ^"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := diag.Diagnostic{Range: at(tt.src, tt.start, tt.end), Message: "boom"}
			if diff := cmp.Diff(tt.want, d.Show([]byte(tt.src))); diff != "" {
				t.Errorf("Show() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
