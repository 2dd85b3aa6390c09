package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/statmap/internal/indicator"
)

// CreateIndicator inserts an indicator, or updates the value type and formula
// of the indicator that already has the same normalized name. Buckets are
// left untouched on update. Returns the stored indicator with its ID.
func (s *Store) CreateIndicator(ctx context.Context, ind indicator.Indicator) (indicator.Indicator, error) {
	if _, err := indicator.ParseValueType(string(ind.ValueType)); err != nil {
		return indicator.Indicator{}, fmt.Errorf("create indicator %q: %w", ind.Name, err)
	}
	ind.Name = indicator.NormalizeName(ind.Name)
	if strings.TrimSpace(ind.Name) == "" {
		return indicator.Indicator{}, fmt.Errorf("create indicator: name is required")
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO indicators (name, value_type, formula)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value_type = excluded.value_type,
			formula = excluded.formula
		RETURNING id, buckets
	`, ind.Name, string(ind.ValueType), ind.Formula).Scan(&ind.ID, &ind.Buckets)
	if err != nil {
		return indicator.Indicator{}, fmt.Errorf("create indicator %q: %w", ind.Name, err)
	}

	return ind, nil
}

// FindByName returns the indicator with the given name.
// The name is NFC-normalized before lookup and otherwise matched exactly;
// surrounding whitespace is not trimmed. Returns an error wrapping
// indicator.ErrNotFound when no indicator matches.
func (s *Store) FindByName(ctx context.Context, name string) (indicator.Indicator, error) {
	name = indicator.NormalizeName(name)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, value_type, formula, buckets
		FROM indicators
		WHERE name = ?
	`, name)

	ind, err := scanIndicator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return indicator.Indicator{}, fmt.Errorf("find indicator %q: %w", name, indicator.ErrNotFound)
	}
	if err != nil {
		return indicator.Indicator{}, fmt.Errorf("find indicator %q: %w", name, err)
	}
	return ind, nil
}

// GetIndicator returns the indicator with the given id.
func (s *Store) GetIndicator(ctx context.Context, id int64) (indicator.Indicator, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, value_type, formula, buckets
		FROM indicators
		WHERE id = ?
	`, id)

	ind, err := scanIndicator(row)
	if errors.Is(err, sql.ErrNoRows) {
		return indicator.Indicator{}, fmt.Errorf("get indicator %d: %w", id, indicator.ErrNotFound)
	}
	if err != nil {
		return indicator.Indicator{}, fmt.Errorf("get indicator %d: %w", id, err)
	}
	return ind, nil
}

// ListIndicators returns every indicator ordered by name.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListIndicators(ctx context.Context) ([]indicator.Indicator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, value_type, formula, buckets
		FROM indicators
		ORDER BY name COLLATE BINARY ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list indicators: %w", err)
	}
	defer rows.Close()

	indicators := []indicator.Indicator{}
	for rows.Next() {
		ind, err := scanIndicator(rows)
		if err != nil {
			return nil, fmt.Errorf("list indicators: %w", err)
		}
		indicators = append(indicators, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indicators: %w", err)
	}

	return indicators, nil
}

// UpdateBuckets replaces the stored bucket string of an indicator.
func (s *Store) UpdateBuckets(ctx context.Context, id int64, buckets string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE indicators SET buckets = ? WHERE id = ?
	`, buckets, id)
	if err != nil {
		return fmt.Errorf("update buckets: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update buckets: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update buckets for %d: %w", id, indicator.ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanIndicator reads one indicator row. value_type is copied verbatim so an
// unexpected stored type surfaces as InvalidValueType at first use.
func scanIndicator(row rowScanner) (indicator.Indicator, error) {
	var ind indicator.Indicator
	var valueType string
	if err := row.Scan(&ind.ID, &ind.Name, &valueType, &ind.Formula, &ind.Buckets); err != nil {
		return indicator.Indicator{}, err
	}
	ind.ValueType = indicator.ValueType(valueType)
	return ind, nil
}
