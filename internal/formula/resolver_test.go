package formula

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statmap/internal/indicator"
	"github.com/roach88/statmap/internal/queryir"
	"github.com/roach88/statmap/internal/querysql"
	"github.com/roach88/statmap/internal/store"
)

// mapRegistry is an in-memory Registry keyed by name.
type mapRegistry map[string]indicator.Indicator

func (m mapRegistry) FindByName(_ context.Context, name string) (indicator.Indicator, error) {
	ind, ok := m[name]
	if !ok {
		return indicator.Indicator{}, fmt.Errorf("find %q: %w", name, indicator.ErrNotFound)
	}
	return ind, nil
}

// recordingStore captures the query instead of executing it.
type recordingStore struct {
	queries []queryir.InsertSelect
}

func (r *recordingStore) InsertComputed(_ context.Context, q queryir.InsertSelect) (int64, error) {
	r.queries = append(r.queries, q)
	return 0, nil
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "formula.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreate(t *testing.T, s *store.Store, name string, vt indicator.ValueType, formula string) indicator.Indicator {
	t.Helper()
	ind, err := s.CreateIndicator(context.Background(), indicator.Indicator{Name: name, ValueType: vt, Formula: formula})
	require.NoError(t, err)
	return ind
}

func mustWrite(t *testing.T, s *store.Store, ind indicator.Indicator, region int64, year int, raw any) {
	t.Helper()
	require.NoError(t, s.WriteValue(context.Background(), ind, region, year, raw, nil))
}

func TestDeriveValues_GoldenSQL(t *testing.T) {
	registry := mapRegistry{
		"Population": {ID: 1, Name: "Population", ValueType: indicator.Integer},
		"Area":       {ID: 2, Name: "Area", ValueType: indicator.Float},
	}
	rec := &recordingStore{}
	r := NewResolver(registry, rec, nil)

	target := indicator.Indicator{ID: 3, Name: "Density", ValueType: indicator.Float, Formula: "{Population} / {Area}"}
	_, err := r.DeriveValues(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, rec.queries, 1)

	sql, params, err := querysql.NewSQLCompiler().Compile(rec.queries[0])
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "derive_density", []byte(fmt.Sprintf("%s\nparams: %v\n", sql, params)))
}

func TestBuildQuery_IntegerTargetCastsToInteger(t *testing.T) {
	registry := mapRegistry{
		"A": {ID: 1, Name: "A", ValueType: indicator.Integer},
	}
	r := NewResolver(registry, &recordingStore{}, nil)

	q, err := r.BuildQuery(context.Background(), indicator.Indicator{
		ID: 2, Name: "Half", ValueType: indicator.Integer, Formula: "{A} / 2.0",
	})
	require.NoError(t, err)

	assert.Equal(t, "value_integer", q.Columns[3])
	cast, ok := q.Source.Columns[3].(queryir.Cast)
	require.True(t, ok)
	assert.Equal(t, queryir.CastInteger, cast.Type)

	// A single reference needs no IN restriction
	and, ok := q.Source.Filter.(queryir.And)
	require.True(t, ok)
	assert.Len(t, and.Predicates, 1)
}

func TestBuildQuery_RepeatedReferenceLooksUpEachOccurrence(t *testing.T) {
	registry := mapRegistry{
		"A": {ID: 1, Name: "A", ValueType: indicator.Float},
		"B": {ID: 2, Name: "B", ValueType: indicator.Float},
	}
	r := NewResolver(registry, &recordingStore{}, nil)

	q, err := r.BuildQuery(context.Background(), indicator.Indicator{
		ID: 3, Name: "T", ValueType: indicator.Float, Formula: "{B} * {A} / {B}",
	})
	require.NoError(t, err)

	sql, params, err := querysql.NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count([]byte(sql), []byte("SELECT x.value_float")))
	// target, B, A, B lookups, seed A, restriction B
	assert.Equal(t, []any{int64(3), int64(2), int64(1), int64(2), int64(1), int64(2)}, params)
}

func TestDeriveValues_NotComposite(t *testing.T) {
	r := NewResolver(mapRegistry{}, &recordingStore{}, nil)

	_, err := r.DeriveValues(context.Background(), indicator.Indicator{
		ID: 1, Name: "Plain", ValueType: indicator.Integer, Formula: "100 * 2",
	})
	require.Error(t, err)
	assert.True(t, IsNotComposite(err))
	assert.False(t, IsUnknownReference(err))
	assert.Contains(t, err.Error(), "not a composite formula")
	assert.Contains(t, err.Error(), "Plain")
}

func TestDeriveValues_UnknownReference(t *testing.T) {
	registry := mapRegistry{"A": {ID: 1, Name: "A", ValueType: indicator.Integer}}
	rec := &recordingStore{}
	r := NewResolver(registry, rec, nil)

	_, err := r.DeriveValues(context.Background(), indicator.Indicator{
		ID: 2, Name: "T", ValueType: indicator.Integer, Formula: "{A} + {Unknown}",
	})
	require.Error(t, err)
	assert.True(t, IsUnknownReference(err))

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Unknown", fe.Name)
	assert.Contains(t, err.Error(), `unknown referenced indicator "Unknown"`)
	assert.Empty(t, rec.queries, "nothing is written when a reference is unknown")
}

func TestDeriveValues_InvalidValueType(t *testing.T) {
	registry := mapRegistry{"A": {ID: 1, Name: "A", ValueType: "decimal"}}
	r := NewResolver(registry, &recordingStore{}, nil)

	_, err := r.DeriveValues(context.Background(), indicator.Indicator{
		ID: 2, Name: "T", ValueType: indicator.Integer, Formula: "{A}",
	})
	assert.ErrorIs(t, err, indicator.ErrInvalidValueType)

	_, err = r.DeriveValues(context.Background(), indicator.Indicator{
		ID: 3, Name: "U", ValueType: "text", Formula: "{A}",
	})
	assert.ErrorIs(t, err, indicator.ErrInvalidValueType)
}

func TestDeriveValues_RegistryFailurePropagates(t *testing.T) {
	boom := errors.New("registry offline")
	r := NewResolver(failingRegistry{err: boom}, &recordingStore{}, nil)

	_, err := r.DeriveValues(context.Background(), indicator.Indicator{
		ID: 1, Name: "T", ValueType: indicator.Integer, Formula: "{A}",
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsUnknownReference(err))
}

type failingRegistry struct{ err error }

func (f failingRegistry) FindByName(context.Context, string) (indicator.Indicator, error) {
	return indicator.Indicator{}, f.err
}

func TestDeriveValues_OnlyWhereEveryDependencyHasData(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", indicator.Integer, "")
	b := mustCreate(t, s, "B", indicator.Integer, "")
	sum := mustCreate(t, s, "Sum", indicator.Integer, "{A}+{B}")

	mustWrite(t, s, a, 1, 2020, 10)
	mustWrite(t, s, a, 2, 2020, 20)
	mustWrite(t, s, b, 1, 2020, 5)

	r := NewResolver(s, s, nil)
	n, err := r.DeriveValues(ctx, sum)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := s.ListValues(ctx, sum.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].RegionID)
	assert.Equal(t, 2020, rows[0].Year)
	require.NotNil(t, rows[0].ValueInteger)
	assert.Equal(t, int64(15), *rows[0].ValueInteger)
	assert.Nil(t, rows[0].ValueFloat)
}

func TestDeriveValues_PerRowSubstitution(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	pop := mustCreate(t, s, "Population", indicator.Integer, "")
	area := mustCreate(t, s, "Area", indicator.Float, "")
	density := mustCreate(t, s, "Density", indicator.Float, "{Population} / {Area}")

	note := "from census"
	require.NoError(t, s.WriteValue(ctx, area, 1, 2020, 4.0, &note))
	mustWrite(t, s, area, 2, 2020, 10.0)
	mustWrite(t, s, area, 2, 2021, 10.0)
	mustWrite(t, s, pop, 1, 2020, 100)
	mustWrite(t, s, pop, 2, 2020, 50)
	mustWrite(t, s, pop, 2, 2021, 70)
	mustWrite(t, s, pop, 3, 2020, 999)

	n, err := NewResolver(s, s, nil).DeriveValues(ctx, density)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := s.ReadValue(ctx, density, 1, 2020)
	require.NoError(t, err)
	assert.Equal(t, indicator.FloatValue(25), got)

	got, err = s.ReadValue(ctx, density, 2, 2021)
	require.NoError(t, err)
	assert.Equal(t, indicator.FloatValue(7), got)

	// The note is carried from the seed (first sorted reference) row.
	rows, err := s.ListValues(ctx, density.ID)
	require.NoError(t, err)
	require.NotNil(t, rows[0].Note)
	assert.Equal(t, "from census", *rows[0].Note)
	assert.Nil(t, rows[1].Note)

	_, err = s.ReadValue(ctx, density, 3, 2020)
	assert.ErrorIs(t, err, indicator.ErrNotFound)
}

func TestDeriveValues_IntegerTargetTruncates(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", indicator.Float, "")
	half := mustCreate(t, s, "Half", indicator.Integer, "{A} / 2")
	mustWrite(t, s, a, 1, 2020, 7.0)

	_, err := NewResolver(s, s, nil).DeriveValues(ctx, half)
	require.NoError(t, err)

	got, err := s.ReadValue(ctx, half, 1, 2020)
	require.NoError(t, err)
	assert.Equal(t, indicator.IntValue(3), got)
}

func TestDeriveValues_NotIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A", indicator.Integer, "")
	double := mustCreate(t, s, "Double", indicator.Integer, "{A} * 2")
	mustWrite(t, s, a, 1, 2020, 4)

	r := NewResolver(s, s, nil)
	_, err := r.DeriveValues(ctx, double)
	require.NoError(t, err)
	_, err = r.DeriveValues(ctx, double)
	require.NoError(t, err)

	rows, err := s.ListValues(ctx, double.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "a second run duplicates rows unless the caller clears them")
}

func TestDeriveValues_LogsRowCount(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	registry := mapRegistry{"A": {ID: 1, Name: "A", ValueType: indicator.Integer}}
	r := NewResolver(registry, &recordingStore{}, logger)

	_, err := r.DeriveValues(context.Background(), indicator.Indicator{
		ID: 2, Name: "T", ValueType: indicator.Integer, Formula: "{A}",
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "derived indicator values")
	assert.Contains(t, buf.String(), "indicator=T")
}
