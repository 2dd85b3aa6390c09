package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statmap/internal/catalog"
	"github.com/roach88/statmap/internal/indicator"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Check bool // validate only, do not write
}

// CatalogResult lists the indicators a catalog defines.
type CatalogResult struct {
	Indicators []indicator.Indicator `json:"indicators"`
	Files      int                   `json:"files"`
	Written    bool                  `json:"written"`
}

func (r CatalogResult) String() string {
	var b strings.Builder
	verb := "synced"
	if !r.Written {
		verb = "checked"
	}
	fmt.Fprintf(&b, "✓ %s %d indicators from %d files", verb, len(r.Indicators), r.Files)
	for _, ind := range r.Indicators {
		fmt.Fprintf(&b, "\n  %-8s %s", ind.ValueType, ind.Name)
		if ind.IsComposite() {
			fmt.Fprintf(&b, " = %s", ind.Formula)
		}
	}
	return b.String()
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog <dir>",
		Short: "Sync indicator definitions from CUE files",
		Long: `Load indicator definitions from the CUE files in a directory and
write them to the database. Existing indicators with the same name have their
value type and formula updated; their values and buckets are kept.

Each definition lives under "indicator", keyed by name:

  indicator: "Population density": {
      value_type: "float"
      formula:    "{Population} / {Area}"
  }

Examples:
  statmap catalog ./indicators
  statmap catalog ./indicators --check --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "validate the catalog without writing")

	return cmd
}

func runCatalog(opts *CatalogOptions, dir string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	res, errs := catalog.Load(dir, catalog.LoadModeCollectAll)
	if len(errs) > 0 {
		code := catalog.ErrCodeGeneric
		var loadErr *catalog.LoadError
		if errors.As(errs[0], &loadErr) {
			code = loadErr.Code
		}
		messages := make([]string, len(errs))
		for i, err := range errs {
			messages[i] = err.Error()
		}
		if err := out.Error(code, fmt.Sprintf("%d catalog error(s)", len(errs)), messages); err != nil {
			return err
		}
		if out.Format != "json" {
			for _, m := range messages {
				fmt.Fprintf(out.Writer, "  %s\n", m)
			}
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid catalog %s", dir))
	}
	logger.Debug("catalog loaded", "dir", dir, "files", res.FileCount, "indicators", len(res.Indicators))

	result := CatalogResult{Indicators: res.Indicators, Files: res.FileCount}
	if opts.Check {
		return out.Success(result)
	}

	st, err := opts.openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	ctx := cmd.Context()
	for i, ind := range res.Indicators {
		stored, err := st.CreateIndicator(ctx, ind)
		if err != nil {
			return out.Fail("failed to write indicator", err)
		}
		result.Indicators[i] = stored
		logger.Info("indicator synced", "indicator", stored.Name, "id", stored.ID, "value_type", stored.ValueType)
	}
	result.Written = true

	return out.Success(result)
}
