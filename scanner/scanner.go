// Package scanner defines the protocol between the lexer and external
// scanners: hand-written recognizers for tokens that depend on state carried
// from one token to the next, such as heredoc bodies or the inside of an
// interpolated string.
package scanner

import (
	"errors"
	"fmt"
)

// ErrProtocolViolation is returned when an external scanner misbehaves: it
// fails to terminate within its step budget, claims a token it was not
// offered, or produces a state blob larger than the grammar allows.
var ErrProtocolViolation = errors.New("scanner protocol violation")

type ProtocolError struct {
	Offset int
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("scanner protocol violation at byte %d: %s", e.Offset, e.Reason)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocolViolation
}

// State is the scanner-defined value threaded between invocations. It is
// treated as immutable: Scan returns a new State instead of modifying the
// one it was given.
type State any

// Scanner recognizes external tokens.
//
// Scan is called with the validity of every external token in the current
// parser state, indexed like the grammar's external token list. When it
// recognizes a token it calls c.SetResult, optionally c.MarkEnd, and returns
// the successor state and true. Scan must be deterministic and must only read
// input through the cursor.
type Scanner interface {
	Serialize(state State) ([]byte, error)
	Deserialize(blob []byte) (State, error)
	Scan(c *Cursor, valid []bool, state State) (State, bool)
}

// AnyValid reports whether any of the given external token indexes is valid.
func AnyValid(valid []bool, tokens ...int) bool {
	for _, t := range tokens {
		if t >= 0 && t < len(valid) && valid[t] {
			return true
		}
	}
	return false
}
