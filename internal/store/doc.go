// Package store provides SQLite-backed storage for indicators and their
// region/year values.
//
// The store plays two roles:
//   - Indicator registry: indicators table, names unique after NFC normalization
//   - Value store: indicator_values rows keyed by (indicator, region, year)
//
// # Critical Patterns
//
// Typed value slots:
//   - Each row has value_integer and value_float; writes and reads touch only
//     the column selected by the indicator's value_type
//   - value_type is constrained by a CHECK to 'integer' or 'float'
//
// Safe dynamic SQL:
//   - Bulk derived inserts and distinct-value reads are built as queryir trees
//     and compiled by querysql; ids are always bound parameters
//
// Deterministic results:
//   - Every multi-row read has an explicit ORDER BY
//
// No uniqueness on (indicator_id, region_id, year): InsertComputed run twice
// duplicates rows. ReplaceComputed swaps an indicator's rows atomically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
