package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/switchboard/internal/cli"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat [flows]",
	Short: "Talk to the active flow in the terminal",
	Long: `Starts a conversation on the active flow and reads replies from stdin.
With --json every line in and out is a JSON object (for scripting).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd, slog.LevelWarn)
		if err != nil {
			return err
		}

		opts := engineOptions(cmd)
		if len(args) > 0 && !cmd.Flags().Changed("flows") {
			opts.FlowsPath = args[0]
		}

		vars, err := parseVars(cmd)
		if err != nil {
			return err
		}
		jsonMode, _ := cmd.Flags().GetBool("json")
		markdown, _ := cmd.Flags().GetBool("markdown")
		noColor, _ := cmd.Flags().GetBool("no-color")
		conversationID, _ := cmd.Flags().GetString("conversation")
		idle, _ := cmd.Flags().GetDuration("idle-timeout")

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		chatOpts := cli.ChatOptions{
			ConversationID: conversationID,
			Variables:      vars,
			JSON:           jsonMode,
			Markdown:       markdown,
			Color:          interactive && !noColor,
			Banner:         interactive,
			IdleTimeout:    idle,
		}

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		setup, err := cli.CreateEngine(ctx, opts, logger, observabilityHooks(logger))
		if err != nil {
			return err
		}
		defer setup.Close()

		return cli.RunChat(ctx, setup, chatOpts, os.Stdin, cmd.OutOrStdout(), logger)
	},
}

func parseVars(cmd *cobra.Command) (map[string]string, error) {
	raw, _ := cmd.Flags().GetStringArray("var")
	vars := make(map[string]string, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q, want key=value", kv)
		}
		vars[key] = value
	}
	return vars, nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addEngineFlags(chatCmd)

	chatCmd.Flags().Bool("json", false, "Read and write NDJSON instead of text")
	chatCmd.Flags().Bool("markdown", false, "Render bot messages as markdown")
	chatCmd.Flags().Bool("no-color", false, "Disable colours")
	chatCmd.Flags().String("conversation", "", "Conversation id (default \"local\")")
	chatCmd.Flags().StringArray("var", nil, "Initial session variable as key=value (repeatable)")
	chatCmd.Flags().Duration("idle-timeout", 0, "Send a timer event after this much silence")
}
