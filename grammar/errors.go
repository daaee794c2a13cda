package grammar

import (
	"errors"
	"fmt"
)

// ErrInvalidGrammar is matched by every error returned while loading a
// descriptor.
var ErrInvalidGrammar = errors.New("invalid grammar")

type InvalidGrammarError struct {
	Grammar string
	Reason  string
}

func (e *InvalidGrammarError) Error() string {
	if e.Grammar == "" {
		return fmt.Sprintf("invalid grammar: %s", e.Reason)
	}
	return fmt.Sprintf("invalid grammar %q: %s", e.Grammar, e.Reason)
}

func (e *InvalidGrammarError) Is(target error) bool {
	return target == ErrInvalidGrammar
}

func invalid(t *Table, format string, args ...any) error {
	return &InvalidGrammarError{Grammar: t.Name, Reason: fmt.Sprintf(format, args...)}
}
