package grammar

import "fmt"

type ActionKind int

const (
	ActionError ActionKind = iota
	ActionShift
	ActionReduce
	ActionAccept
)

var actionKindNames = map[ActionKind]string{
	ActionError:  "error",
	ActionShift:  "shift",
	ActionReduce: "reduce",
	ActionAccept: "accept",
}

func (k ActionKind) String() string {
	if name, ok := actionKindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(text []byte) error {
	for kind, name := range actionKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown action kind %q", text)
}

// Action is a single entry of the parse table.
//
// For reductions Rule names the rule to reduce. For shifts Rule is the lowest
// rule whose item the shift advances; it ranks the shift against competing
// reductions when a conflict has to be decided by declaration order.
type Action struct {
	Kind  ActionKind `yaml:"kind" json:"kind"`
	State StateID    `yaml:"state,omitempty" json:"state,omitempty"`
	Rule  int        `yaml:"rule,omitempty" json:"rule,omitempty"`
}

func (a Action) String() string {
	switch a.Kind {
	case ActionShift:
		return fmt.Sprintf("shift %d", a.State)
	case ActionReduce:
		return fmt.Sprintf("reduce %d", a.Rule)
	default:
		return a.Kind.String()
	}
}

type ActionEntry struct {
	Symbol  Symbol   `yaml:"symbol" json:"symbol"`
	Actions []Action `yaml:"actions" json:"actions"`
}

type GotoEntry struct {
	Symbol Symbol  `yaml:"symbol" json:"symbol"`
	State  StateID `yaml:"state" json:"state"`
}

// StateRow is the serialized form of a parse state.
type StateRow struct {
	Lex     int           `yaml:"lex,omitempty" json:"lex,omitempty"`
	Actions []ActionEntry `yaml:"actions" json:"actions"`
	Gotos   []GotoEntry   `yaml:"gotos,omitempty" json:"gotos,omitempty"`
}

// LexTransition moves the lexical automaton on any byte in [Lo, Hi].
type LexTransition struct {
	Lo   byte `yaml:"lo" json:"lo"`
	Hi   byte `yaml:"hi" json:"hi"`
	Next int  `yaml:"next" json:"next"`
}

// LexState is a state of the lexical automaton. Accept lists the terminals
// recognized when the automaton stops here, most preferred first.
type LexState struct {
	Accept      []Symbol        `yaml:"accept,omitempty,flow" json:"accept,omitempty"`
	Transitions []LexTransition `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// Next returns the state reached on b, or -1.
func (s *LexState) Next(b byte) int {
	lo, hi := 0, len(s.Transitions)
	for lo < hi {
		mid := (lo + hi) / 2
		t := s.Transitions[mid]
		switch {
		case b < t.Lo:
			hi = mid
		case b > t.Hi:
			lo = mid + 1
		default:
			return t.Next
		}
	}
	return -1
}

// Table is the serialized form of a descriptor.
type Table struct {
	Name             string       `yaml:"name" json:"name"`
	Symbols          []SymbolInfo `yaml:"symbols" json:"symbols"`
	Rules            []Rule       `yaml:"rules" json:"rules"`
	States           []StateRow   `yaml:"states" json:"states"`
	Lex              []LexState   `yaml:"lex" json:"lex"`
	Externals        []Symbol     `yaml:"externals,omitempty,flow" json:"externals,omitempty"`
	ScannerStateSize int          `yaml:"scanner_state_size,omitempty" json:"scanner_state_size,omitempty"`
	Start            StateID      `yaml:"start" json:"start"`
}
