// Package queryir provides the query intermediate representation (IR) used to
// build every dynamic statement statmap sends to the value store.
//
// The formula resolver and the bucketizer never concatenate SQL. They build a
// tree of Query, Expr and Predicate nodes, and a backend compiler (see
// internal/querysql) turns the tree into a parameterized statement:
//
//	[formula / distinct-values request] → [Query IR] → [SQLite backend]
//
// SEALED INTERFACES:
//
// Query, Expr and Predicate are sealed interfaces using the marker method
// pattern. Only types in this package implement them, so backend compilers
// can switch exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	    // plain or DISTINCT read
//	case InsertSelect:
//	    // bulk derived insert
//	default:
//	    // impossible
//	}
//
// DATA VS IDENTIFIERS:
//
// Indicator ids, names and filter values travel as Param / Equals values and
// are always bound as placeholders. Table and column names come from code
// constants, never from user input, and backends still check them against a
// strict identifier pattern. The only user-authored text is Arithmetic, the
// operator glue between {Name} references in a formula, which backends screen
// against an arithmetic-only alphabet before emitting it.
package queryir
