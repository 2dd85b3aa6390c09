package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/statmap/internal/indicator"
	"github.com/roach88/statmap/internal/queryir"
)

// Table and column names used when building queryir trees.
const (
	TableIndicatorValues = "indicator_values"

	ColIndicatorID = "indicator_id"
	ColRegionID    = "region_id"
	ColYear        = "year"
	ColNote        = "note"
)

// execer is the ExecContext subset shared by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertComputed executes a bulk INSERT ... SELECT built by the formula
// resolver and returns the number of inserted rows.
//
// The query is validated and compiled to parameterized SQL, then executed as a
// single statement, so either every computed row lands or none does.
func (s *Store) InsertComputed(ctx context.Context, q queryir.InsertSelect) (int64, error) {
	sqlText, params, err := s.compileComputed(q)
	if err != nil {
		return 0, fmt.Errorf("insert computed: %w", err)
	}
	n, err := execCount(ctx, s.db, sqlText, params)
	if err != nil {
		return 0, fmt.Errorf("insert computed: %w", err)
	}
	return n, nil
}

// ReplaceComputed removes every row of indicatorID and runs q in the same
// transaction. On any failure the previous rows are kept.
func (s *Store) ReplaceComputed(ctx context.Context, indicatorID int64, q queryir.InsertSelect) (removed, inserted int64, err error) {
	sqlText, params, err := s.compileComputed(q)
	if err != nil {
		return 0, 0, fmt.Errorf("replace computed: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		removed, err = execCount(ctx, tx, deleteValuesSQL, []any{indicatorID})
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		inserted, err = execCount(ctx, tx, sqlText, params)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("replace computed: %w", err)
	}
	return removed, inserted, nil
}

func (s *Store) compileComputed(q queryir.InsertSelect) (string, []any, error) {
	if q.Into != TableIndicatorValues {
		return "", nil, fmt.Errorf("target table %q is not %s", q.Into, TableIndicatorValues)
	}
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}
	sqlText, params, err := s.compiler.Compile(q)
	if err != nil {
		return "", nil, fmt.Errorf("compile: %w", err)
	}
	return sqlText, params, nil
}

func execCount(ctx context.Context, db execer, sqlText string, params []any) (int64, error) {
	result, err := db.ExecContext(ctx, sqlText, params...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// DistinctValues returns the distinct non-NULL values an indicator has in
// column, ascending. Returns an empty slice (not nil) when there are none.
func (s *Store) DistinctValues(ctx context.Context, indicatorID int64, column indicator.Column) ([]indicator.Value, error) {
	valueType, err := column.Type()
	if err != nil {
		return nil, fmt.Errorf("distinct values: %w", err)
	}

	col := queryir.Column{Name: string(column)}
	q := queryir.Select{
		From:     TableIndicatorValues,
		Distinct: true,
		Columns:  []queryir.Expr{col},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: queryir.Column{Name: ColIndicatorID}, Value: indicatorID},
			queryir.NotNull{Field: col},
		}},
		OrderBy: []queryir.Column{col},
	}

	sqlText, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("distinct values: compile: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("distinct values: %w", err)
	}
	defer rows.Close()

	values := []indicator.Value{}
	for rows.Next() {
		switch valueType {
		case indicator.Integer:
			var n int64
			if err := rows.Scan(&n); err != nil {
				return nil, fmt.Errorf("distinct values: scan: %w", err)
			}
			values = append(values, indicator.IntValue(n))
		case indicator.Float:
			var f float64
			if err := rows.Scan(&f); err != nil {
				return nil, fmt.Errorf("distinct values: scan: %w", err)
			}
			values = append(values, indicator.FloatValue(f))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}
	return values, nil
}

const deleteValuesSQL = `DELETE FROM indicator_values WHERE indicator_id = ?`

// DeleteValues removes every row of an indicator and returns how many were
// removed.
func (s *Store) DeleteValues(ctx context.Context, indicatorID int64) (int64, error) {
	n, err := execCount(ctx, s.db, deleteValuesSQL, []any{indicatorID})
	if err != nil {
		return 0, fmt.Errorf("delete values: %w", err)
	}
	return n, nil
}
