package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statmap/internal/indicator"
	"github.com/roach88/statmap/internal/queryir"
)

// copyQuery copies every value of src into dst, doubled.
func copyQuery(dst, src indicator.Indicator) queryir.InsertSelect {
	return queryir.InsertSelect{
		Into:    TableIndicatorValues,
		Columns: []string{ColIndicatorID, ColRegionID, ColYear, string(indicator.ColumnInteger), ColNote},
		Source: queryir.Select{
			From:  TableIndicatorValues,
			Alias: "src",
			Columns: []queryir.Expr{
				queryir.Param{Value: dst.ID},
				queryir.Col("src", ColRegionID),
				queryir.Col("src", ColYear),
				queryir.Cast{Type: queryir.CastInteger, Expr: queryir.Template{Parts: []queryir.Expr{
					queryir.Col("src", string(indicator.ColumnInteger)),
					queryir.Arithmetic{Text: " * 2"},
				}}},
				queryir.Col("src", ColNote),
			},
			Filter:  queryir.Equals{Field: queryir.Col("src", ColIndicatorID), Value: src.ID},
			OrderBy: []queryir.Column{queryir.Col("src", ColRegionID), queryir.Col("src", ColYear)},
		},
	}
}

func TestInsertComputed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	src := createTestIndicator(t, s, "Source", indicator.Integer, "")
	dst := createTestIndicator(t, s, "Doubled", indicator.Integer, "{Source} * 2")
	writeTestValue(t, s, src, 1, 2020, 5)
	writeTestValue(t, s, src, 2, 2020, 7)

	n, err := s.InsertComputed(ctx, copyQuery(dst, src))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.ReadValue(ctx, dst, 2, 2020)
	require.NoError(t, err)
	assert.Equal(t, indicator.IntValue(14), got)
}

func TestInsertComputed_RejectsOtherTables(t *testing.T) {
	s := createTestStore(t)

	q := copyQuery(indicator.Indicator{ID: 1}, indicator.Indicator{ID: 2})
	q.Into = "indicators"

	_, err := s.InsertComputed(context.Background(), q)
	assert.ErrorContains(t, err, "target table")
}

func TestInsertComputed_RejectsInvalidQuery(t *testing.T) {
	s := createTestStore(t)

	q := copyQuery(indicator.Indicator{ID: 1}, indicator.Indicator{ID: 2})
	q.Columns = q.Columns[:2]

	_, err := s.InsertComputed(context.Background(), q)
	assert.ErrorContains(t, err, "invalid query")
}

func TestInsertComputed_RejectsUnsafeArithmetic(t *testing.T) {
	s := createTestStore(t)

	src := createTestIndicator(t, s, "Source", indicator.Integer, "")
	dst := createTestIndicator(t, s, "Doubled", indicator.Integer, "")
	q := copyQuery(dst, src)
	q.Source.Columns[3] = queryir.Template{Parts: []queryir.Expr{
		queryir.Arithmetic{Text: "1); DELETE FROM indicators; --"},
	}}

	_, err := s.InsertComputed(context.Background(), q)
	require.Error(t, err)

	all, err := s.ListIndicators(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDistinctValues_Integer(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ind := createTestIndicator(t, s, "Population", indicator.Integer, "")
	for region, v := range []int{30, 10, 20, 10, 30} {
		writeTestValue(t, s, ind, int64(region), 2020, v)
	}

	values, err := s.DistinctValues(ctx, ind.ID, indicator.ColumnInteger)
	require.NoError(t, err)
	assert.Equal(t, []indicator.Value{indicator.IntValue(10), indicator.IntValue(20), indicator.IntValue(30)}, values)
}

func TestDistinctValues_Float(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ind := createTestIndicator(t, s, "Density", indicator.Float, "")
	writeTestValue(t, s, ind, 1, 2020, 2.5)
	writeTestValue(t, s, ind, 2, 2020, 0.5)
	writeTestValue(t, s, ind, 3, 2020, 2.5)

	values, err := s.DistinctValues(ctx, ind.ID, indicator.ColumnFloat)
	require.NoError(t, err)
	assert.Equal(t, []indicator.Value{indicator.FloatValue(0.5), indicator.FloatValue(2.5)}, values)
}

func TestDistinctValues_EmptyAndNullsExcluded(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ind := createTestIndicator(t, s, "Population", indicator.Integer, "")

	values, err := s.DistinctValues(ctx, ind.ID, indicator.ColumnInteger)
	require.NoError(t, err)
	assert.NotNil(t, values)
	assert.Empty(t, values)

	_, err = s.DB().Exec(`
		INSERT INTO indicator_values (indicator_id, region_id, year) VALUES (?, 1, 2020)
	`, ind.ID)
	require.NoError(t, err)

	values, err = s.DistinctValues(ctx, ind.ID, indicator.ColumnInteger)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestDistinctValues_UnknownColumn(t *testing.T) {
	s := createTestStore(t)

	_, err := s.DistinctValues(context.Background(), 1, indicator.Column("value_text"))
	assert.Error(t, err)
}

func TestDeleteValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := createTestIndicator(t, s, "A", indicator.Integer, "")
	b := createTestIndicator(t, s, "B", indicator.Integer, "")
	writeTestValue(t, s, a, 1, 2020, 1)
	writeTestValue(t, s, a, 2, 2020, 2)
	writeTestValue(t, s, b, 1, 2020, 3)

	n, err := s.DeleteValues(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	remaining, err := s.ListValues(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestReplaceComputed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	src := createTestIndicator(t, s, "Source", indicator.Integer, "")
	dst := createTestIndicator(t, s, "Doubled", indicator.Integer, "{Source} * 2")
	writeTestValue(t, s, src, 1, 2020, 5)

	_, err := s.InsertComputed(ctx, copyQuery(dst, src))
	require.NoError(t, err)

	removed, inserted, err := s.ReplaceComputed(ctx, dst.ID, copyQuery(dst, src))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, int64(1), inserted)

	rows, err := s.ListValues(ctx, dst.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReplaceComputed_RollsBackOnInsertFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	src := createTestIndicator(t, s, "Source", indicator.Integer, "")
	dst := createTestIndicator(t, s, "Doubled", indicator.Integer, "{Source} * 2")
	writeTestValue(t, s, src, 1, 2020, 5)
	writeTestValue(t, s, dst, 1, 2020, 10)

	// indicator 999 does not exist, so the insert violates the foreign key
	_, _, err := s.ReplaceComputed(ctx, dst.ID, copyQuery(indicator.Indicator{ID: 999}, src))
	require.Error(t, err)

	rows, err := s.ListValues(ctx, dst.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "delete must roll back with the failed insert")
}
