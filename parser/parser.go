// Package parser drives a grammar's parse table over an input. It forks on
// conflicting actions, recovers from syntax errors inside the tree, and
// reuses subtrees of a previous tree when re-parsing after edits.
package parser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/lexer"
	"github.com/dhamidi/sitter/source"
	"github.com/dhamidi/sitter/syntax"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("sitter.parser")

var (
	// ErrCancelled is returned with a partial tree when the context is
	// cancelled during a parse.
	ErrCancelled = errors.New("parse cancelled")
	// ErrTimeout is returned with a partial tree when the parse deadline
	// passes.
	ErrTimeout = errors.New("parse timed out")
)

const (
	DefaultAmbiguityLookahead = 8
	DefaultMaxVersions        = 6
	DefaultDeletionBudget     = 3
	DefaultMaxMissing         = 3
)

// Stats describes the work done by one parse.
type Stats struct {
	TokensLexed int
	Reused      int
	Forks       int
	Merges      int
	Deletions   int
	Insertions  int
	MaxVersions int
}

// Parser holds the configuration for parsing one language. It is immutable
// and may be used from several goroutines; every call to Parse runs its own
// session.
type Parser struct {
	lang               *grammar.Descriptor
	ambiguityLookahead int
	maxVersions        int
	deletionBudget     int
	maxMissing         int
	timeout            time.Duration
	lexOpts            []lexer.Option
}

type Option func(*Parser)

// WithAmbiguityLookahead bounds the tokens shifted after a fork before the
// preferred version wins.
func WithAmbiguityLookahead(n int) Option {
	return func(p *Parser) {
		p.ambiguityLookahead = n
	}
}

func WithMaxVersions(n int) Option {
	return func(p *Parser) {
		p.maxVersions = max(n, 1)
	}
}

// WithDeletionBudget bounds the tokens skipped in a single error recovery.
func WithDeletionBudget(n int) Option {
	return func(p *Parser) {
		p.deletionBudget = n
	}
}

// WithMaxMissing bounds the missing tokens inserted at one position.
func WithMaxMissing(n int) Option {
	return func(p *Parser) {
		p.maxMissing = n
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Parser) {
		p.timeout = d
	}
}

func WithLexerOptions(opts ...lexer.Option) Option {
	return func(p *Parser) {
		p.lexOpts = append(p.lexOpts, opts...)
	}
}

func New(lang *grammar.Descriptor, opts ...Option) *Parser {
	p := &Parser{
		lang:               lang,
		ambiguityLookahead: DefaultAmbiguityLookahead,
		maxVersions:        DefaultMaxVersions,
		deletionBudget:     DefaultDeletionBudget,
		maxMissing:         DefaultMaxMissing,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) Language() *grammar.Descriptor {
	return p.lang
}

// Parse builds the tree of in. When prev is given, edits are applied to it in
// order and the subtrees they leave intact are reused; the result is the same
// as parsing in from scratch.
//
// Syntax errors are represented in the tree. A cancelled or timed out parse
// returns the partial tree together with ErrCancelled or ErrTimeout.
func (p *Parser) Parse(ctx context.Context, in source.Input, prev *syntax.Tree, edits ...source.Edit) (*syntax.Tree, error) {
	tree, _, err := p.ParseWithStats(ctx, in, prev, edits...)
	return tree, err
}

func (p *Parser) ParseWithStats(ctx context.Context, in source.Input, prev *syntax.Tree, edits ...source.Edit) (*syntax.Tree, Stats, error) {
	if prev != nil {
		if prev.Language() != p.lang {
			return nil, Stats{}, fmt.Errorf("previous tree was parsed with %q", prev.Language().Name())
		}
		for _, e := range edits {
			if err := e.Validate(); err != nil {
				return nil, Stats{}, err
			}
			prev = prev.Edit(e)
		}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	s := newSession(p, in, prev)
	tree, err := s.run(ctx)
	s.stats.TokensLexed = s.lex.Stats().TokensLexed
	log.Debugf("%s: lexed %d, reused %d, forks %d, merges %d, deletions %d, insertions %d",
		p.lang.Name(), s.stats.TokensLexed, s.stats.Reused, s.stats.Forks, s.stats.Merges, s.stats.Deletions, s.stats.Insertions)
	return tree, s.stats, err
}
