package main

import (
	"os"

	"github.com/aretw0/switchboard/internal/cli"
	"github.com/spf13/cobra"
)

func addEngineFlags(cmd *cobra.Command) {
	def := cli.DefaultEngineOptions()
	f := cmd.Flags()
	f.String("flows", def.FlowsPath, "Flow file or directory of flow files")
	f.Bool("loam", false, "Read the flows directory as a Loam repository")
	f.String("activate", "", "Flow id to activate (overrides the active flag in files)")
	f.String("actions", def.ActionsPath, "Action provider configuration file")
	f.Int("step-budget", def.StepBudget, "Node visits allowed per inbound event")
	f.Int("decision-retries", def.DecisionRetries, "Unmatched answers before hand-off")
	f.Int("action-retries", 0, "Retries of a failing action call (0 keeps the default of 2)")
	f.Duration("action-timeout", def.ActionTimeout, "Deadline of one action attempt")
	f.String("handoff-message", "", "Message sent when a conversation is handed off")
	addStoreFlags(cmd)
}

func addStoreFlags(cmd *cobra.Command) {
	def := cli.DefaultEngineOptions()
	f := cmd.Flags()
	f.String("redis-addr", "", "Redis address for sessions (in memory when empty)")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database")
	f.Duration("session-ttl", def.SessionTTL, "Expiry of Redis sessions")
	f.Duration("lock-ttl", 0, "Lease of the Redis conversation lock (never below one action's worst case)")
	f.StringSlice("mask-vars", nil, "Regular expressions of variable names masked before storage")
}

// engineOptions reads the engine flags. Flags that a command does not
// declare keep their defaults.
func engineOptions(cmd *cobra.Command) cli.EngineOptions {
	opts := cli.DefaultEngineOptions()
	f := cmd.Flags()

	if v, err := f.GetString("flows"); err == nil {
		opts.FlowsPath = v
	}
	opts.Loam, _ = f.GetBool("loam")
	opts.Activate, _ = f.GetString("activate")
	if v, err := f.GetString("actions"); err == nil {
		opts.ActionsPath = v
	}
	if v, err := f.GetInt("step-budget"); err == nil {
		opts.StepBudget = v
	}
	if v, err := f.GetInt("decision-retries"); err == nil {
		opts.DecisionRetries = v
	}
	opts.ActionRetries, _ = f.GetInt("action-retries")
	if v, err := f.GetDuration("action-timeout"); err == nil {
		opts.ActionTimeout = v
	}
	opts.HandoffMessage, _ = f.GetString("handoff-message")

	opts.RedisAddr, _ = f.GetString("redis-addr")
	opts.RedisPassword, _ = f.GetString("redis-password")
	opts.RedisDB, _ = f.GetInt("redis-db")
	if v, err := f.GetDuration("session-ttl"); err == nil {
		opts.SessionTTL = v
	}
	opts.LockTTL, _ = f.GetDuration("lock-ttl")
	opts.MaskVars, _ = f.GetStringSlice("mask-vars")
	opts.EncryptionKey = os.Getenv(cli.EncryptionKeyEnv)
	return opts
}
