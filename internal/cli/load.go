package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/statmap/internal/dataset"
)

// LoadResult reports what a dataset wrote.
type LoadResult struct {
	Path       string `json:"path"`
	Indicators int    `json:"indicators"`
	Values     int    `json:"values"`
}

func (r LoadResult) String() string {
	return fmt.Sprintf("✓ loaded %s: %d indicators, %d values", r.Path, r.Indicators, r.Values)
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <dataset.yaml>",
		Short: "Load indicators and raw values from YAML",
		Long: `Create the indicators a YAML dataset defines and write its values.

Each value is cast to its indicator's value type; an existing value for the
same indicator, region and year is overwritten.

Example:
  statmap load --db ./statmap.db ./census-2020.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	ds, err := dataset.Load(path)
	if err != nil {
		if outErr := out.Error("E_DATASET", err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitCommandError, "failed to load dataset", err)
	}

	st, err := opts.openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	sum, err := ds.Apply(cmd.Context(), st)
	if err != nil {
		return out.Fail("failed to apply dataset", err)
	}
	logger.Info("dataset loaded", "path", path, "indicators", sum.Indicators, "values", sum.Values)

	return out.Success(LoadResult{Path: path, Indicators: sum.Indicators, Values: sum.Values})
}
