package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhamidi/sitter/diag"
	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/store"
	"github.com/dhamidi/sitter/syntax"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type parseRequest struct {
	filename  string
	format    string
	storePath string
	color     bool
}

func newParseCmd(g *globalFlags) *cobra.Command {
	var grammarName string
	var req parseRequest

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a file and print its syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, opts, err := g.setup()
			if err != nil {
				return err
			}
			lang, err := loadLanguage(grammarName)
			if err != nil {
				return err
			}
			req.filename = args[0]
			if req.storePath == "" {
				req.storePath = c.Store.Path
			}
			req.color = isTerminal(os.Stdout)
			return runParse(cmd.Context(), parser.New(lang, opts...), req, os.Stdout, os.Stderr)
		},
	}

	cmd.Flags().StringVarP(&grammarName, "grammar", "g", "ruby", "grammar to parse with: ruby or a grammar file")
	cmd.Flags().StringVarP(&req.format, "format", "f", "sexp", "output format (sexp, json)")
	cmd.Flags().StringVar(&req.storePath, "store", "", "snapshot database for incremental reparsing")

	return cmd
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// runParse parses req.filename and writes its tree to stdout and its syntax
// errors to stderr. With a store, the previous snapshot of the file is
// reparsed incrementally and replaced by the new one.
func runParse(ctx context.Context, p *parser.Parser, req parseRequest, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	text, err := os.ReadFile(req.filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", req.filename, err)
	}

	var snapshots *store.Store
	var key string
	var prev *syntax.Tree
	var edits []source.Edit
	if req.storePath != "" {
		if snapshots, err = store.Open(req.storePath); err != nil {
			return err
		}
		defer snapshots.Close()
		if key, err = filepath.Abs(req.filename); err != nil {
			return err
		}
		prev, edits, err = previous(snapshots, key, p.Language(), text)
		if err != nil {
			return err
		}
	}

	tree, err := p.Parse(ctx, source.Bytes(text), prev, edits...)
	if err != nil {
		return fmt.Errorf("parse %s: %w", req.filename, err)
	}

	switch req.format {
	case "sexp":
		out := tree.String()
		if req.color {
			out = colorize(out)
		}
		fmt.Fprintln(stdout, out)
	case "json":
		data, err := json.MarshalIndent(tree.Root(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(stdout, string(data))
	default:
		return fmt.Errorf("unknown format: %s", req.format)
	}

	for _, d := range diag.Collect(tree, text) {
		fmt.Fprintf(stderr, "%s:%s\n", req.filename, d.Show(text))
	}

	if snapshots != nil {
		return snapshots.Put(key, store.Snapshot{Language: p.Language().Name(), Source: text, Tree: tree})
	}
	return nil
}

// previous returns the stored tree for key along with the edit that turns
// its source into text. A missing snapshot is not an error.
func previous(s *store.Store, key string, lang *grammar.Descriptor, text []byte) (*syntax.Tree, []source.Edit, error) {
	snap, err := s.Get(key, lang)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	edit, changed := source.Diff(snap.Source, text)
	if !changed {
		return snap.Tree, nil, nil
	}
	return snap.Tree, []source.Edit{edit}, nil
}

const (
	red   = "\x1b[31m"
	reset = "\x1b[0m"
)

func colorize(sexp string) string {
	sexp = strings.ReplaceAll(sexp, "(ERROR", red+"(ERROR"+reset)
	return strings.ReplaceAll(sexp, "(MISSING", red+"(MISSING"+reset)
}
