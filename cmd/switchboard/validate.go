package main

import (
	"fmt"

	"github.com/aretw0/switchboard/internal/cli"
	"github.com/aretw0/switchboard/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|dir>...",
	Short: "Check flow definitions for defects",
	Long: `Validates every flow file given (directories are walked for .yaml, .yml
and .json files). Defects make the command fail; warnings are only printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noColor, _ := cmd.Flags().GetBool("no-color")
		report, err := cli.ValidatePaths(cmd.OutOrStdout(), tui.NewStyler(!noColor), args)
		if err != nil {
			return err
		}
		if !report.Valid() {
			return fmt.Errorf("%d of %d flows invalid", report.Invalid, report.Files)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("no-color", false, "Disable colours")
}
