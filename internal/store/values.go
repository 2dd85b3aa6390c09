package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/statmap/internal/indicator"
)

// WriteValue records one value for (indicator, region, year).
//
// raw is cast to the indicator's value type and written to its value column
// only; the other column of an existing row is left as it was. An existing row
// for the same key is updated, otherwise a new row is inserted.
func (s *Store) WriteValue(ctx context.Context, ind indicator.Indicator, regionID int64, year int, raw any, note *string) error {
	col, err := ind.ValueColumn()
	if err != nil {
		return fmt.Errorf("write value: %w", err)
	}

	var v indicator.IndicatorValue
	if err := ind.SetValue(&v, raw); err != nil {
		return fmt.Errorf("write value for %q: %w", ind.Name, err)
	}
	val, _, err := ind.GetValue(v)
	if err != nil {
		return fmt.Errorf("write value: %w", err)
	}
	param := sqlParam(val)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		// col comes from the closed indicator.Column set, never from input
		result, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE indicator_values SET %s = ?, note = ?
			WHERE indicator_id = ? AND region_id = ? AND year = ?
		`, col), param, note, ind.ID, regionID, year)
		if err != nil {
			return fmt.Errorf("write value: update: %w", err)
		}
		updated, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("write value: rows affected: %w", err)
		}
		if updated > 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO indicator_values (indicator_id, region_id, year, %s, note)
			VALUES (?, ?, ?, ?, ?)
		`, col), ind.ID, regionID, year, param, note)
		if err != nil {
			return fmt.Errorf("write value: insert: %w", err)
		}
		return nil
	})
}

// ReadValue returns the value recorded for (indicator, region, year).
// When derivation has duplicated a key, the earliest row wins.
func (s *Store) ReadValue(ctx context.Context, ind indicator.Indicator, regionID int64, year int) (indicator.Value, error) {
	if _, err := ind.ValueColumn(); err != nil {
		return indicator.Value{}, fmt.Errorf("read value: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, indicator_id, region_id, year, value_integer, value_float, note
		FROM indicator_values
		WHERE indicator_id = ? AND region_id = ? AND year = ?
		ORDER BY id ASC
		LIMIT 1
	`, ind.ID, regionID, year)

	v, err := scanValue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return indicator.Value{}, fmt.Errorf("read value %q region=%d year=%d: %w", ind.Name, regionID, year, indicator.ErrNotFound)
	}
	if err != nil {
		return indicator.Value{}, fmt.Errorf("read value: %w", err)
	}

	val, ok, err := ind.GetValue(v)
	if err != nil {
		return indicator.Value{}, fmt.Errorf("read value: %w", err)
	}
	if !ok {
		return indicator.Value{}, fmt.Errorf("read value %q region=%d year=%d: empty %s slot: %w",
			ind.Name, regionID, year, ind.ValueType, indicator.ErrNotFound)
	}
	return val, nil
}

// ListValues returns every row of an indicator ordered by region, year, id.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListValues(ctx context.Context, indicatorID int64) ([]indicator.IndicatorValue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, indicator_id, region_id, year, value_integer, value_float, note
		FROM indicator_values
		WHERE indicator_id = ?
		ORDER BY region_id ASC, year ASC, id ASC
	`, indicatorID)
	if err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	defer rows.Close()

	values := []indicator.IndicatorValue{}
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, fmt.Errorf("list values: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate values: %w", err)
	}
	return values, nil
}

func scanValue(row rowScanner) (indicator.IndicatorValue, error) {
	var v indicator.IndicatorValue
	var valueInteger sql.NullInt64
	var valueFloat sql.NullFloat64
	var note sql.NullString

	if err := row.Scan(&v.ID, &v.IndicatorID, &v.RegionID, &v.Year, &valueInteger, &valueFloat, &note); err != nil {
		return indicator.IndicatorValue{}, err
	}
	if valueInteger.Valid {
		v.ValueInteger = &valueInteger.Int64
	}
	if valueFloat.Valid {
		v.ValueFloat = &valueFloat.Float64
	}
	if note.Valid {
		v.Note = &note.String
	}
	return v, nil
}

// sqlParam converts a typed value to its driver representation.
func sqlParam(v indicator.Value) any {
	if v.Type() == indicator.Float {
		return v.Float64()
	}
	return v.Int64()
}
