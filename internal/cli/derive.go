package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statmap/internal/engine"
)

// DeriveOptions holds flags for the derive command.
type DeriveOptions struct {
	*RootOptions
	All     bool
	Replace bool
}

// DeriveOutput lists the derivations a command ran.
type DeriveOutput struct {
	Results []engine.DeriveResult `json:"results"`
}

func (d DeriveOutput) String() string {
	if len(d.Results) == 0 {
		return "No composite indicators to derive."
	}
	var b strings.Builder
	for i, r := range d.Results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "✓ %s: %d rows", r.Indicator, r.Rows)
		if r.Removed > 0 {
			fmt.Fprintf(&b, " (replaced %d)", r.Removed)
		}
		fmt.Fprintf(&b, "\n  buckets: %s", bucketsOrNone(r.Buckets))
	}
	return b.String()
}

func bucketsOrNone(s string) string {
	if s == "" {
		return "(no data)"
	}
	return s
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "derive [name]",
		Short: "Compute composite indicator values from formulas",
		Long: `Compute the values of a composite indicator from its formula and
recompute its buckets.

A row is written for every region and year where all indicators referenced by
the formula have values. Without --replace a second derivation adds the rows
again; --replace removes the indicator's previous rows first.

With --all every composite indicator is derived, dependencies first.

Exit codes:
  0 - Derivation succeeded
  1 - Formula rejected (no references, unknown reference, cycle)
  2 - Command error

Examples:
  statmap derive "Population density"
  statmap derive "Population density" --replace
  statmap derive --all --replace --format json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.All && len(args) > 0 {
				return NewExitError(ExitCommandError, "--all does not take an indicator name")
			}
			if !opts.All && len(args) != 1 {
				return NewExitError(ExitCommandError, "requires an indicator name or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runDerive(opts, name, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "derive every composite indicator")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "remove previous rows before deriving")

	return cmd
}

func runDerive(opts *DeriveOptions, name string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	st, err := opts.openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	eng := opts.newEngine(st, logger)
	ctx := cmd.Context()
	deriveOpts := engine.DeriveOptions{Replace: opts.Replace}

	if opts.All {
		results, err := eng.DeriveAll(ctx, deriveOpts)
		if err != nil {
			return out.Fail("derivation failed", err)
		}
		return out.Success(DeriveOutput{Results: results})
	}

	result, err := eng.Derive(ctx, name, deriveOpts)
	if err != nil {
		return out.Fail("derivation failed", err)
	}
	result.Buckets, err = eng.Rebucket(ctx, result.Indicator)
	if err != nil {
		return out.Fail("bucketing failed", err)
	}
	return out.Success(DeriveOutput{Results: []engine.DeriveResult{result}})
}
