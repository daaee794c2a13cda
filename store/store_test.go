package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/grammar/grammartest"
	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/store"
	"github.com/google/go-cmp/cmp"
)

func openTemp(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	lang, err := grammar.New(grammartest.Arith(true), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p := parser.New(lang)
	text := []byte("a + b + c")
	tree, err := p.Parse(context.Background(), source.Bytes(text), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	s := openTemp(t)
	if err := s.Put("doc", store.Snapshot{Language: lang.Name(), Source: text, Tree: tree}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := s.Get("doc", lang)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(string(text), string(got.Source)); diff != "" {
		t.Errorf("source mismatch (-want +got):\n%s", diff)
	}
	if !got.Tree.Equal(tree) {
		t.Errorf("tree = %s, want %s", got.Tree, tree)
	}

	// The restored tree still serves an incremental parse.
	next, edit := source.Replace(text, 4, 5, []byte("x"))
	reparsed, err := p.Parse(context.Background(), source.Bytes(next), got.Tree, edit)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	fresh, _ := p.Parse(context.Background(), source.Bytes(next), nil)
	if !reparsed.Equal(fresh) {
		t.Errorf("incremental parse = %s, want %s", reparsed, fresh)
	}

	keys, err := s.Keys()
	if err != nil || !cmp.Equal(keys, []string{"doc"}) {
		t.Errorf("Keys() = %v, %v", keys, err)
	}
}

func TestGetMissing(t *testing.T) {
	lang, _ := grammar.New(grammartest.Arith(true), nil)
	s := openTemp(t)
	if _, err := s.Get("nope", lang); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := s.Delete("nope"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestGetOtherLanguage(t *testing.T) {
	arith, _ := grammar.New(grammartest.Arith(true), nil)
	table := grammartest.Arith(false)
	table.Name = "other"
	other, err := grammar.New(table, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tree, _ := parser.New(arith).Parse(context.Background(), source.String("a"), nil)

	s := openTemp(t)
	if err := s.Put("doc", store.Snapshot{Language: arith.Name(), Source: []byte("a"), Tree: tree}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := s.Get("doc", other); err == nil {
		t.Error("Get() with another language succeeded")
	}
}

func TestCloseAndReopen(t *testing.T) {
	lang, _ := grammar.New(grammartest.Arith(true), nil)
	tree, _ := parser.New(lang).Parse(context.Background(), source.String("a+b"), nil)
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Put("doc", store.Snapshot{Language: lang.Name(), Source: []byte("a+b"), Tree: tree}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = store.Open(path)
	if err != nil {
		t.Fatalf("reopen: Open() error = %v", err)
	}
	defer s.Close()
	got, err := s.Get("doc", lang)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Tree.Equal(tree) {
		t.Errorf("tree = %s, want %s", got.Tree, tree)
	}
}
