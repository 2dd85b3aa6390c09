package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/statmap/internal/bucket"
)

// BucketsOptions holds flags for the buckets command.
type BucketsOptions struct {
	*RootOptions
	Classify string // value to place into a bucket
}

// BucketsResult reports an indicator's bucket string.
type BucketsResult struct {
	Indicator string   `json:"indicator"`
	Buckets   string   `json:"buckets"`
	Labels    []string `json:"labels"`
	Value     *float64 `json:"value,omitempty"`
	Bucket    *int     `json:"bucket,omitempty"` // 0-based; -1 when outside every bucket
}

func (r BucketsResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", r.Indicator, bucketsOrNone(r.Buckets))
	for i, label := range r.Labels {
		fmt.Fprintf(&b, "\n  [%d] %s", i, label)
	}
	if r.Value != nil && r.Bucket != nil {
		if *r.Bucket < 0 {
			fmt.Fprintf(&b, "\n%s falls outside every bucket", strconv.FormatFloat(*r.Value, 'f', -1, 64))
		} else {
			fmt.Fprintf(&b, "\n%s falls in bucket %d", strconv.FormatFloat(*r.Value, 'f', -1, 64), *r.Bucket)
		}
	}
	return b.String()
}

// NewBucketsCommand creates the buckets command.
func NewBucketsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BucketsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "buckets <name>",
		Short: "Recompute the map buckets of an indicator",
		Long: `Recompute the bucket ranges of an indicator from its current values,
store them, and print them. An indicator without values has no buckets.

With --classify, also report which bucket a value falls into.

Examples:
  statmap buckets Population
  statmap buckets "Population density" --classify 250`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuckets(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Classify, "classify", "", "report the bucket holding this value")

	return cmd
}

func runBuckets(opts *BucketsOptions, name string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	var value *float64
	if opts.Classify != "" {
		v, err := strconv.ParseFloat(opts.Classify, 64)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --classify value", err)
		}
		value = &v
	}

	st, err := opts.openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	eng := opts.newEngine(st, logger)
	buckets, err := eng.Rebucket(cmd.Context(), name)
	if err != nil {
		return out.Fail("bucketing failed", err)
	}

	result := BucketsResult{Indicator: name, Buckets: buckets, Labels: []string{}}
	if buckets != "" {
		result.Labels = strings.Split(buckets, bucket.Separator)
	}

	if value != nil {
		ranges, err := bucket.ParseLabels(buckets)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to parse buckets", err)
		}
		idx := bucket.Classify(ranges, *value)
		result.Value = value
		result.Bucket = &idx
	}

	return out.Success(result)
}
