package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/gesturekit/internal/scenario"
)

// ValidationResult holds the validation outcome of one file.
type ValidationResult struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files and the engine config without replaying",
		Long: `Parse each scenario file and check its structure: known keys, unique
gesture names, one action per step. The engine config given with --config
is loaded and validated as well.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, opts *RootOptions, files []string) error {
	if _, err := opts.loadConfig(); err != nil {
		return err
	}

	results := make([]ValidationResult, len(files))
	invalid := 0
	for i, file := range files {
		results[i] = ValidationResult{File: file, Valid: true}
		if _, err := scenario.Load(file); err != nil {
			results[i].Valid = false
			results[i].Error = err.Error()
			invalid++
		}
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(out, "ok    %s\n", r.File)
			} else {
				fmt.Fprintf(out, "FAIL  %s\n      %s\n", r.File, r.Error)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d files invalid", invalid, len(files)))
	}
	return nil
}
