package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhamidi/sitter/diag"
	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/syntax"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const historyFile = ".sitter_history"

func newReplCmd(g *globalFlags) *cobra.Command {
	var grammarName string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Type a document line by line and watch it reparse",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, opts, err := g.setup()
			if err != nil {
				return err
			}
			lang, err := loadLanguage(grammarName)
			if err != nil {
				return err
			}
			return runRepl(parser.New(lang, opts...))
		},
	}

	cmd.Flags().StringVarP(&grammarName, "grammar", "g", "ruby", "grammar to parse with: ruby or a grammar file")

	return cmd
}

// session is the document a repl builds up. Every line is appended as an
// edit and the document is reparsed against the previous tree.
type session struct {
	parser *parser.Parser
	text   []byte
	tree   *syntax.Tree
}

func (s *session) append(line string) (parser.Stats, error) {
	next, edit := source.Replace(s.text, len(s.text), len(s.text), []byte(line+"\n"))
	tree, stats, err := s.parser.ParseWithStats(context.Background(), source.Bytes(next), s.tree, edit)
	if err != nil {
		return stats, err
	}
	s.text, s.tree = next, tree
	return stats, nil
}

func (s *session) reset() {
	s.text, s.tree = nil, nil
}

func (s *session) print(w io.Writer, stats parser.Stats) {
	fmt.Fprintln(w, s.tree)
	fmt.Fprintf(w, "lexed %d, reused %d, forks %d, merges %d, versions %d\n",
		stats.TokensLexed, stats.Reused, stats.Forks, stats.Merges, stats.MaxVersions)
	for _, d := range diag.Collect(s.tree, s.text) {
		fmt.Fprintln(w, d.Show(s.text))
	}
}

func runRepl(p *parser.Parser) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Printf("sitter %s (%s). Type :reset to start over, :source to show the document, :quit to exit.\n",
		version, p.Language().Name())

	s := &session{parser: p}
	for {
		line, err := ln.Prompt(fmt.Sprintf("%d> ", strings.Count(string(s.text), "\n")+1))
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case ":quit":
			return nil
		case ":reset":
			s.reset()
			continue
		case ":source":
			fmt.Print(string(s.text))
			continue
		}

		ln.AppendHistory(line)
		stats, err := s.append(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		s.print(os.Stdout, stats)
	}
}
