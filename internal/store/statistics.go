package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/statmap/internal/indicator"
)

// RegionStatistics returns every value recorded for a region, joined with its
// indicator's name, ordered by year then indicator name.
//
// Rows whose typed slot is empty are skipped; a stored value_type outside the
// recognized set fails the whole read with InvalidValueType.
func (s *Store) RegionStatistics(ctx context.Context, regionID int64) ([]indicator.Statistic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.region_id, i.name, i.value_type, v.year, v.value_integer, v.value_float, v.note
		FROM indicator_values v
		INNER JOIN indicators i ON v.indicator_id = i.id
		WHERE v.region_id = ?
		ORDER BY v.year ASC, i.name COLLATE BINARY ASC, v.id ASC
	`, regionID)
	if err != nil {
		return nil, fmt.Errorf("region statistics: %w", err)
	}
	defer rows.Close()

	stats := []indicator.Statistic{}
	for rows.Next() {
		var (
			st           indicator.Statistic
			valueType    string
			valueInteger sql.NullInt64
			valueFloat   sql.NullFloat64
			note         sql.NullString
		)
		if err := rows.Scan(&st.RegionID, &st.IndicatorName, &valueType, &st.Year, &valueInteger, &valueFloat, &note); err != nil {
			return nil, fmt.Errorf("region statistics: scan: %w", err)
		}

		ind := indicator.Indicator{Name: st.IndicatorName, ValueType: indicator.ValueType(valueType)}
		v := indicator.IndicatorValue{}
		if valueInteger.Valid {
			v.ValueInteger = &valueInteger.Int64
		}
		if valueFloat.Valid {
			v.ValueFloat = &valueFloat.Float64
		}
		val, ok, err := ind.GetValue(v)
		if err != nil {
			return nil, fmt.Errorf("region statistics for %q: %w", st.IndicatorName, err)
		}
		if !ok {
			continue
		}
		st.Value = val
		if note.Valid {
			n := note.String
			st.Note = &n
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate region statistics: %w", err)
	}
	return stats, nil
}
