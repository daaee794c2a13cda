package main

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:           "sitter",
		Short:         "An incremental, error-tolerant parsing engine",
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&g.config, "config", "", "path to a sitter.toml configuration file")
	rootCmd.PersistentFlags().CountVarP(&g.verbose, "verbose", "v", "increase log verbosity (repeatable)")

	rootCmd.AddCommand(newParseCmd(&g))
	rootCmd.AddCommand(newGrammarCmd())
	rootCmd.AddCommand(newLSPCmd(&g))
	rootCmd.AddCommand(newReplCmd(&g))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
