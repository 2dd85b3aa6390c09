package queryir

// Query represents a complete statement.
//
// Query types:
//   - Select: read rows (optionally DISTINCT)
//   - InsertSelect: insert the rows produced by a Select
type Query interface {
	queryNode()
}

// Expr is a value-producing expression inside a select list.
//
// Expr types:
//   - Column: a (possibly qualified) column reference
//   - Param: a bound literal
//   - Scalar: a single-value subquery
//   - Arithmetic: operator text between formula references
//   - Template: concatenation of other expressions
//   - Cast: storage-type conversion
type Expr interface {
	exprNode()
}

// Predicate is a filter condition.
//
// Predicate types:
//   - Equals: column = literal
//   - ColumnEquals: column = column (correlation)
//   - NotNull: column IS NOT NULL
//   - And: all predicates must be true
//   - In: (columns) IN (subquery)
type Predicate interface {
	predicateNode()
}

// Select reads rows from a single table.
//
// Semantics:
//
//	SELECT [DISTINCT] <columns> FROM <from> [AS <alias>] WHERE <filter> ORDER BY <order_by>
//
// Filter and OrderBy are optional. A Select used as a Scalar or In source
// normally leaves OrderBy empty.
type Select struct {
	From     string    // Table name (e.g., "indicator_values")
	Alias    string    // Optional table alias used by qualified columns
	Distinct bool      // SELECT DISTINCT
	Columns  []Expr    // Select list (required, no SELECT *)
	Filter   Predicate // WHERE conditions (nil = no filter)
	OrderBy  []Column  // Ascending sort keys
}

func (Select) queryNode() {}

// InsertSelect inserts every row produced by Source into Into.
//
// Semantics:
//
//	INSERT INTO <into> (<columns>) <source>
//
// Source.Columns must line up one-to-one with Columns.
type InsertSelect struct {
	Into    string
	Columns []string
	Source  Select
}

func (InsertSelect) queryNode() {}

// Column references a column, optionally qualified by a table alias.
type Column struct {
	Table string // Alias qualifier ("" = unqualified)
	Name  string
}

func (Column) exprNode() {}

// Col is shorthand for a qualified Column.
func Col(table, name string) Column {
	return Column{Table: table, Name: name}
}

// Param is a literal bound as a placeholder.
type Param struct {
	Value any
}

func (Param) exprNode() {}

// Scalar is a subquery producing at most one value per outer row.
type Scalar struct {
	Query Select
}

func (Scalar) exprNode() {}

// Arithmetic is formula text between references, e.g. " + " or " * 100".
// Backends only accept numbers, whitespace, arithmetic operators, parentheses
// and a short list of numeric functions.
type Arithmetic struct {
	Text string
}

func (Arithmetic) exprNode() {}

// Template concatenates its parts with no separator. A substituted formula is
// a Template alternating Arithmetic and Scalar parts.
type Template struct {
	Parts []Expr
}

func (Template) exprNode() {}

// CastType is a storage type accepted by Cast.
type CastType string

const (
	CastInteger CastType = "INTEGER"
	CastReal    CastType = "REAL"
)

// Cast converts Expr to a storage type.
type Cast struct {
	Expr Expr
	Type CastType
}

func (Cast) exprNode() {}

// Equals represents a column-equals-literal predicate. Value is always bound.
type Equals struct {
	Field Column
	Value any
}

func (Equals) predicateNode() {}

// ColumnEquals compares two columns, typically to correlate a subquery with
// its outer row.
type ColumnEquals struct {
	Left  Column
	Right Column
}

func (ColumnEquals) predicateNode() {}

// NotNull excludes rows whose Field is NULL.
type NotNull struct {
	Field Column
}

func (NotNull) predicateNode() {}

// And represents a conjunction of predicates. Empty Predicates is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// In restricts a tuple of columns to the tuples produced by Source.
//
// Semantics:
//
//	(<fields>) IN (<source>)
//
// len(Fields) must equal len(Source.Columns).
type In struct {
	Fields []Column
	Source Select
}

func (In) predicateNode() {}
