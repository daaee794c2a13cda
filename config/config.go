// Package config loads sitter's TOML configuration file.
//
//	[parser]
//	ambiguity_lookahead = 8
//	max_versions = 6
//	timeout = "2s"
//
//	[lexer]
//	external_policy = "longest"
//
//	[log]
//	verbosity = 1
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dhamidi/sitter/lexer"
	"github.com/dhamidi/sitter/parser"
	"github.com/dhamidi/sitter/scanner"
	"github.com/tliron/commonlog"
)

type Config struct {
	Parser Parser `toml:"parser"`
	Lexer  Lexer  `toml:"lexer"`
	Store  Store  `toml:"store"`
	Log    Log    `toml:"log"`
}

type Parser struct {
	AmbiguityLookahead int      `toml:"ambiguity_lookahead"`
	MaxVersions        int      `toml:"max_versions"`
	DeletionBudget     int      `toml:"deletion_budget"`
	MaxMissing         int      `toml:"max_missing"`
	Timeout            Duration `toml:"timeout"`
}

type Lexer struct {
	ExternalPolicy string `toml:"external_policy"`
	ScanStepLimit  int    `toml:"scan_step_limit"`
}

type Store struct {
	Path string `toml:"path"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Duration is a time.Duration written as a string such as "1.5s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func Default() Config {
	return Config{
		Parser: Parser{
			AmbiguityLookahead: parser.DefaultAmbiguityLookahead,
			MaxVersions:        parser.DefaultMaxVersions,
			DeletionBudget:     parser.DefaultDeletionBudget,
			MaxMissing:         parser.DefaultMaxMissing,
		},
		Lexer: Lexer{
			ExternalPolicy: lexer.PolicyLongest.String(),
			ScanStepLimit:  scanner.DefaultStepLimit,
		},
	}
}

// Load reads the file at path over the defaults. Keys the file leaves out
// keep their default values; unknown keys are an error.
func Load(path string) (Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return c, nil
}

func (c Config) Validate() error {
	if _, err := lexer.ParsePolicy(c.Lexer.ExternalPolicy); err != nil {
		return err
	}
	if c.Parser.MaxVersions < 1 {
		return fmt.Errorf("parser.max_versions must be at least 1, not %d", c.Parser.MaxVersions)
	}
	for name, v := range map[string]int{
		"parser.ambiguity_lookahead": c.Parser.AmbiguityLookahead,
		"parser.deletion_budget":     c.Parser.DeletionBudget,
		"parser.max_missing":         c.Parser.MaxMissing,
		"lexer.scan_step_limit":      c.Lexer.ScanStepLimit,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// ParserOptions maps the parser and lexer sections to parser options.
func (c Config) ParserOptions() ([]parser.Option, error) {
	policy, err := lexer.ParsePolicy(c.Lexer.ExternalPolicy)
	if err != nil {
		return nil, err
	}
	opts := []parser.Option{
		parser.WithAmbiguityLookahead(c.Parser.AmbiguityLookahead),
		parser.WithMaxVersions(c.Parser.MaxVersions),
		parser.WithDeletionBudget(c.Parser.DeletionBudget),
		parser.WithMaxMissing(c.Parser.MaxMissing),
		parser.WithLexerOptions(
			lexer.WithExternalPolicy(policy),
			lexer.WithScanStepLimit(c.Lexer.ScanStepLimit),
		),
	}
	if c.Parser.Timeout > 0 {
		opts = append(opts, parser.WithTimeout(time.Duration(c.Parser.Timeout)))
	}
	return opts, nil
}

// ConfigureLog sets up the process-wide logging backend. An empty file logs
// to stderr.
func (l Log) ConfigureLog() {
	if l.File == "" {
		commonlog.Configure(l.Verbosity, nil)
		return
	}
	commonlog.Configure(l.Verbosity, &l.File)
}
