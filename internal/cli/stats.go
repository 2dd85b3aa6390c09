package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statmap/internal/indicator"
)

// StatsResult holds a region's statistics.
type StatsResult struct {
	RegionID   int64                      `json:"region_id"`
	Properties indicator.RegionProperties `json:"properties"`

	stats []indicator.Statistic
}

func (r StatsResult) String() string {
	if len(r.stats) == 0 {
		return fmt.Sprintf("No statistics for region %d.", r.RegionID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Region %d", r.RegionID)
	year := 0
	for _, s := range r.stats {
		if s.Year != year {
			year = s.Year
			fmt.Fprintf(&b, "\n%d", year)
		}
		fmt.Fprintf(&b, "\n  %s: %s", s.IndicatorName, s.Value)
		if s.Note != nil {
			fmt.Fprintf(&b, " (%s)", *s.Note)
		}
	}
	return b.String()
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <region-id>",
		Short: "Show every indicator value of a region",
		Long: `Show every value recorded for a region, grouped by year.

JSON output groups values by year, then indicator name, with each note stored
under "<name>-note", the shape map tiles consume.

Example:
  statmap stats 42 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runStats(opts *RootOptions, arg string, cmd *cobra.Command) error {
	regionID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid region id", err)
	}

	out := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	st, err := opts.openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	stats, err := st.RegionStatistics(cmd.Context(), regionID)
	if err != nil {
		return out.Fail("failed to read statistics", err)
	}

	return out.Success(StatsResult{
		RegionID:   regionID,
		Properties: indicator.NewRegionProperties(stats),
		stats:      stats,
	})
}
