package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dhamidi/sitter/grammar"
	"github.com/spf13/cobra"
)

func newGrammarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "Grammar tools",
	}

	cmd.AddCommand(newGrammarCheckCmd())
	cmd.AddCommand(newGrammarCompileCmd())

	return cmd
}

func newGrammarCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Compile a grammar and report its states and unresolved conflicts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := loadLanguage(args[0])
			if err != nil {
				return err
			}
			report(os.Stdout, lang)
			return nil
		},
	}
}

// report prints a summary of lang followed by one line per conflicting
// table entry. Those entries fork the parser at run time.
func report(w io.Writer, lang *grammar.Descriptor) {
	fmt.Fprintf(w, "%s: %d symbols, %d tokens, %d rules, %d states, %d lexer modes\n",
		lang.Name(), lang.SymbolCount(), lang.TokenCount(), lang.RuleCount(), lang.StateCount(), lang.ModeCount())
	conflicts := lang.Conflicts()
	if len(conflicts) == 0 {
		fmt.Fprintln(w, "no conflicts")
		return
	}
	fmt.Fprintf(w, "%d unresolved conflicts:\n", len(conflicts))
	for _, c := range conflicts {
		actions := make([]string, len(c.Actions))
		for i, a := range c.Actions {
			actions[i] = describeAction(lang, a)
		}
		fmt.Fprintf(w, "  state %d on %q: %s\n", c.State, lang.SymbolName(c.Symbol), strings.Join(actions, " / "))
	}
}

func describeAction(lang *grammar.Descriptor, a grammar.Action) string {
	if a.Kind != grammar.ActionReduce {
		return a.String()
	}
	r := lang.Rule(a.Rule)
	rhs := make([]string, len(r.RHS))
	for i, sym := range r.RHS {
		rhs[i] = lang.SymbolName(sym)
	}
	return fmt.Sprintf("reduce %s -> %s", lang.SymbolName(r.LHS), strings.Join(rhs, " "))
}

func newGrammarCompileCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a grammar source into a parse table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := loadLanguage(args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return lang.Save(os.Stdout)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			if err := lang.Save(f); err != nil {
				f.Close()
				return fmt.Errorf("write table: %w", err)
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}
