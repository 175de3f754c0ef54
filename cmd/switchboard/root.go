package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard runs automated chatbot conversation flows",
	Long: `Switchboard executes authored conversation flows (messages, decisions,
actions) against inbound chat events, one session per conversation.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
}

// newLogger builds the logger from the persistent flags. quietLevel
// replaces the default level for commands that own the terminal.
func newLogger(cmd *cobra.Command, quietLevel ...slog.Level) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	if len(quietLevel) > 0 && !cmd.Flags().Changed("log-level") {
		levelName = quietLevel[0].String()
	}
	format, _ := cmd.Flags().GetString("log-format")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	switch format {
	case "text":
		return logging.New(level), nil
	case "json":
		return logging.NewJSON(os.Stderr, level), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
