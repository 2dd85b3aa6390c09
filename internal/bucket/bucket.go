// Package bucket partitions an indicator's distinct values into display
// buckets for choropleth maps and renders them as a label string such as
// "1 to 2;3 to 4;5".
package bucket

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/statmap/internal/indicator"
)

// NumBuckets is the target number of buckets per indicator.
const NumBuckets = 7

// Separator joins bucket labels.
const Separator = ";"

// Source reads the distinct values of an indicator, ascending.
type Source interface {
	DistinctValues(ctx context.Context, indicatorID int64, column indicator.Column) ([]indicator.Value, error)
}

// Compute reads ind's distinct values from src and describes them in at most
// NumBuckets buckets. An indicator without values yields "".
func Compute(ctx context.Context, src Source, ind indicator.Indicator) (string, error) {
	column, err := ind.ValueColumn()
	if err != nil {
		return "", fmt.Errorf("compute buckets for %q: %w", ind.Name, err)
	}

	values, err := src.DistinctValues(ctx, ind.ID, column)
	if err != nil {
		return "", fmt.Errorf("compute buckets for %q: %w", ind.Name, err)
	}

	return Describe(values), nil
}

// Describe partitions sorted distinct values into NumBuckets groups and joins
// their labels with Separator.
func Describe(values []indicator.Value) string {
	groups := Partition(values, NumBuckets)
	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = Label(g)
	}
	return strings.Join(labels, Separator)
}

// Partition splits values into consecutive groups of ceil(len/k) elements.
// The last group may be shorter and fewer than k groups may result; for
// example 10 values and k=7 give five groups of two. No values, no groups.
func Partition(values []indicator.Value, k int) [][]indicator.Value {
	if len(values) == 0 || k <= 0 {
		return nil
	}

	per := (len(values) + k - 1) / k
	groups := make([][]indicator.Value, 0, (len(values)+per-1)/per)
	for start := 0; start < len(values); start += per {
		end := min(start+per, len(values))
		groups = append(groups, values[start:end])
	}
	return groups
}

// Label names a group by its endpoints: "<first> to <last>", or just the value
// when both endpoints are equal. Interior values are not shown.
func Label(group []indicator.Value) string {
	if len(group) == 0 {
		return ""
	}
	first, last := group[0], group[len(group)-1]
	if first.Equal(last) {
		return first.String()
	}
	return first.String() + " to " + last.String()
}
