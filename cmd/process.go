// =============================================================================
// Sales Aggregator - Process Command
// =============================================================================
//
// This file holds the action shared by the root command and 'validate'.
//
// COMMAND USAGE:
//   calcsales [flags] <dir>
//   calcsales validate [flags] <dir>
//
// PROCESSING PIPELINE:
//   1. Load branch.lst and commodity.lst
//   2. Discover the NNNNNNNN.rcd files and check their serial sequence
//   3. Validate and aggregate every transaction file
//   4. Write branch.out and commodity.out (skipped by 'validate')
//   5. Export the workbook / write the run report, if configured
//
// =============================================================================

package cmd

import (
	"github.com/2507-taguchi-keita/CalculateSales/internal/pipeline"
	"github.com/spf13/cobra"
)

// =============================================================================
// VALIDATE COMMAND DEFINITION
// =============================================================================

// newValidateCmd builds the 'validate' command.
func (a *app) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>",
		Short: "Check a sales directory without writing any file",
		Long: `The validate command runs every check of a normal run (definition files,
serial sequence, transaction files, 10-digit totals) and reports the first
failure. No summary, workbook or report is written.`,

		Args: exactlyOneDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProcess(cmd, args[0], true)
		},

		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess runs the pipeline over dir and prints the outcome.
func (a *app) runProcess(cmd *cobra.Command, dir string, dryRun bool) error {
	opts := pipeline.Options{DryRun: dryRun}

	if a.v.GetBool(keyProgress) {
		opts.Progress = newProgressBar(cmd.ErrOrStderr())
	}

	result, err := pipeline.New(a.cfg, opts).Run(cmd.Context(), dir)
	if err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), result, dryRun)
	return nil
}
