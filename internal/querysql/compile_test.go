package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statmap/internal/queryir"
)

func TestCompile_DistinctValues(t *testing.T) {
	compiler := NewSQLCompiler()

	col := queryir.Column{Name: "value_integer"}
	query := queryir.Select{
		From:     "indicator_values",
		Distinct: true,
		Columns:  []queryir.Expr{col},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: queryir.Column{Name: "indicator_id"}, Value: int64(7)},
			queryir.NotNull{Field: col},
		}},
		OrderBy: []queryir.Column{col},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT DISTINCT value_integer FROM indicator_values WHERE indicator_id = ? AND value_integer IS NOT NULL ORDER BY value_integer",
		sql)
	assert.Equal(t, []any{int64(7)}, params)
}

func TestCompile_PointerQuery(t *testing.T) {
	compiler := NewSQLCompiler()

	query := &queryir.Select{
		From:    "indicators",
		Columns: []queryir.Expr{queryir.Column{Name: "id"}},
		Filter:  queryir.Equals{Field: queryir.Column{Name: "name"}, Value: "Population"},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM indicators WHERE name = ?", sql)

	// Names are data, never part of the SQL text
	assert.NotContains(t, sql, "Population")
	assert.Equal(t, []any{"Population"}, params)
}

func TestCompile_InsertSelectParamOrder(t *testing.T) {
	compiler := NewSQLCompiler()

	query := queryir.InsertSelect{
		Into:    "indicator_values",
		Columns: []string{"indicator_id", "region_id", "value_integer"},
		Source: queryir.Select{
			From:  "indicator_values",
			Alias: "src",
			Columns: []queryir.Expr{
				queryir.Param{Value: int64(10)},
				queryir.Col("src", "region_id"),
				queryir.Cast{Type: queryir.CastInteger, Expr: queryir.Template{Parts: []queryir.Expr{
					queryir.Scalar{Query: queryir.Select{
						From:    "indicator_values",
						Alias:   "x",
						Columns: []queryir.Expr{queryir.Col("x", "value_integer")},
						Filter: queryir.And{Predicates: []queryir.Predicate{
							queryir.Equals{Field: queryir.Col("x", "indicator_id"), Value: int64(20)},
							queryir.ColumnEquals{Left: queryir.Col("x", "region_id"), Right: queryir.Col("src", "region_id")},
						}},
					}},
					queryir.Arithmetic{Text: " * 2"},
				}}},
			},
			Filter: queryir.And{Predicates: []queryir.Predicate{
				queryir.Equals{Field: queryir.Col("src", "indicator_id"), Value: int64(20)},
				queryir.In{
					Fields: []queryir.Column{queryir.Col("src", "region_id"), queryir.Col("src", "year")},
					Source: queryir.Select{
						From:    "indicator_values",
						Alias:   "d",
						Columns: []queryir.Expr{queryir.Col("d", "region_id"), queryir.Col("d", "year")},
						Filter:  queryir.Equals{Field: queryir.Col("d", "indicator_id"), Value: int64(30)},
					},
				},
			}},
			OrderBy: []queryir.Column{queryir.Col("src", "region_id")},
		},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO indicator_values (indicator_id, region_id, value_integer) "+
		"SELECT ?, src.region_id, CAST((SELECT x.value_integer FROM indicator_values AS x "+
		"WHERE x.indicator_id = ? AND x.region_id = src.region_id) * 2 AS INTEGER) "+
		"FROM indicator_values AS src WHERE src.indicator_id = ? AND "+
		"(src.region_id, src.year) IN (SELECT d.region_id, d.year FROM indicator_values AS d WHERE d.indicator_id = ?) "+
		"ORDER BY src.region_id", sql)

	// Params follow placeholder order: target id, lookup id, seed id, restriction id
	assert.Equal(t, []any{int64(10), int64(20), int64(20), int64(30)}, params)
}

func TestCompile_SingleFieldIn(t *testing.T) {
	compiler := NewSQLCompiler()

	query := queryir.Select{
		From:    "indicators",
		Columns: []queryir.Expr{queryir.Column{Name: "name"}},
		Filter: queryir.In{
			Fields: []queryir.Column{{Name: "id"}},
			Source: queryir.Select{
				From:     "indicator_values",
				Distinct: true,
				Columns:  []queryir.Expr{queryir.Column{Name: "indicator_id"}},
			},
		},
	}

	sql, _, err := compiler.Compile(query)
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM indicators WHERE id IN (SELECT DISTINCT indicator_id FROM indicator_values)", sql)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		From:    "indicators",
		Columns: []queryir.Expr{queryir.Column{Name: "id"}},
		Filter:  queryir.And{},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM indicators WHERE 1 = 1", sql)
	assert.Empty(t, params)
}

func TestCompile_RejectsUnsafeIdentifiers(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := []struct {
		name  string
		query queryir.Query
	}{
		{
			name: "table",
			query: queryir.Select{
				From:    "indicators; DROP TABLE indicators",
				Columns: []queryir.Expr{queryir.Column{Name: "id"}},
			},
		},
		{
			name: "column",
			query: queryir.Select{
				From:    "indicators",
				Columns: []queryir.Expr{queryir.Column{Name: "id, name"}},
			},
		},
		{
			name: "alias",
			query: queryir.Select{
				From:    "indicators",
				Alias:   "x y",
				Columns: []queryir.Expr{queryir.Column{Name: "id"}},
			},
		},
		{
			name: "insert column",
			query: queryir.InsertSelect{
				Into:    "indicator_values",
				Columns: []string{"note)"},
				Source: queryir.Select{
					From:    "indicator_values",
					Columns: []queryir.Expr{queryir.Column{Name: "note"}},
				},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := compiler.Compile(tc.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unsafe identifier")
		})
	}
}

func TestCompile_ArithmeticScreening(t *testing.T) {
	testCases := []struct {
		text string
		ok   bool
	}{
		{" + ", true},
		{" * 100.0 / (", true},
		{") - 3, 2)", true},
		{"ROUND(", true},
		{"nullif(", true},
		{" % 7", true},
		{"'; DROP TABLE indicators; --", false},
		{" -- comment", false},
		{" /* x */ ", false},
		{" + (SELECT 1)", false},
		{" || ", false},
		{" + random()", false},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			err := checkArithmetic(tc.text)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	compiler := NewSQLCompiler()

	_, _, err := compiler.Compile(nil)
	assert.Error(t, err)

	_, _, err = compiler.Compile(queryir.Select{From: "indicators"})
	assert.ErrorContains(t, err, "no columns")

	_, _, err = compiler.Compile(queryir.Select{
		From:    "indicators",
		Columns: []queryir.Expr{queryir.Cast{Expr: queryir.Column{Name: "id"}, Type: "BLOB"}},
	})
	assert.ErrorContains(t, err, "unsupported cast type")

	_, _, err = compiler.Compile(queryir.Select{
		From:    "indicators",
		Columns: []queryir.Expr{queryir.Column{Name: "id"}},
		Filter: queryir.In{
			Fields: []queryir.Column{{Name: "id"}, {Name: "name"}},
			Source: queryir.Select{From: "indicators", Columns: []queryir.Expr{queryir.Column{Name: "id"}}},
		},
	})
	assert.ErrorContains(t, err, "IN predicate")
}
