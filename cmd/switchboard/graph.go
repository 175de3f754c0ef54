package main

import (
	"github.com/aretw0/switchboard/internal/cli"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <flow-file>",
	Short: "Print the Mermaid diagram of a flow",
	Long: `Prints a Mermaid flowchart of the flow. With --conversation the path of
that conversation (read from the session store) is highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		conversationID, _ := cmd.Flags().GetString("conversation")
		var store ports.SessionStore
		if conversationID != "" {
			s, closeStore, err := cli.OpenSessionStore(cmd.Context(), engineOptions(cmd), logger)
			if err != nil {
				return err
			}
			defer closeStore()
			store = s
		}
		return cli.PrintGraph(cmd.Context(), cmd.OutOrStdout(), args[0], store, conversationID)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	addStoreFlags(graphCmd)
	graphCmd.Flags().String("conversation", "", "Highlight the path of this conversation")
}
