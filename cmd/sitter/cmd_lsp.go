package main

import (
	"github.com/dhamidi/sitter/lsp"
	"github.com/spf13/cobra"
)

func newLSPCmd(g *globalFlags) *cobra.Command {
	var grammarName string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, opts, err := g.setup()
			if err != nil {
				return err
			}
			lang, err := loadLanguage(grammarName)
			if err != nil {
				return err
			}
			server := lsp.NewServer(version, lang, opts...)
			return server.RunStdio()
		},
	}

	cmd.Flags().StringVarP(&grammarName, "grammar", "g", "ruby", "grammar to serve: ruby or a grammar file")

	return cmd
}
