package querysql

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/roach88/statmap/internal/queryir"
)

// identPattern is the only identifier shape the compiler will emit.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// arithmeticWords are the only bare words allowed in formula text.
var arithmeticWords = map[string]bool{
	"ABS":      true,
	"ROUND":    true,
	"NULLIF":   true,
	"COALESCE": true,
	"MIN":      true,
	"MAX":      true,
	"CAST":     true,
	"AS":       true,
	"REAL":     true,
	"INTEGER":  true,
}

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// Values are always bound as ? parameters. Identifiers are emitted only
// when they match identPattern.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a QueryIR query to parameterized SQL.
// Returns (sql, params, error) tuple. Params appear in placeholder order.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	b := &builder{}
	var err error
	switch query := q.(type) {
	case queryir.Select:
		err = b.writeSelect(query)
	case *queryir.Select:
		err = b.writeSelect(*query)
	case queryir.InsertSelect:
		err = b.writeInsert(query)
	case *queryir.InsertSelect:
		err = b.writeInsert(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
	if err != nil {
		return "", nil, err
	}

	return b.sql.String(), b.params, nil
}

// builder accumulates SQL text and parameters in lockstep so placeholder
// order always matches params order.
type builder struct {
	sql    strings.Builder
	params []any
}

func (b *builder) write(s string) {
	b.sql.WriteString(s)
}

func (b *builder) bind(v any) {
	b.sql.WriteString("?")
	b.params = append(b.params, v)
}

func (b *builder) writeIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("unsafe identifier %q", name)
	}
	b.write(name)
	return nil
}

// writeInsert compiles INSERT INTO t (cols) SELECT ...
func (b *builder) writeInsert(ins queryir.InsertSelect) error {
	b.write("INSERT INTO ")
	if err := b.writeIdent(ins.Into); err != nil {
		return fmt.Errorf("compile insert: %w", err)
	}
	b.write(" (")
	for i, col := range ins.Columns {
		if i > 0 {
			b.write(", ")
		}
		if err := b.writeIdent(col); err != nil {
			return fmt.Errorf("compile insert: %w", err)
		}
	}
	b.write(") ")
	if err := b.writeSelect(ins.Source); err != nil {
		return fmt.Errorf("compile insert source: %w", err)
	}
	return nil
}

// writeSelect compiles SELECT [DISTINCT] cols FROM t [AS a] [WHERE p] [ORDER BY k].
func (b *builder) writeSelect(sel queryir.Select) error {
	if len(sel.Columns) == 0 {
		return fmt.Errorf("select from %q has no columns", sel.From)
	}

	b.write("SELECT ")
	if sel.Distinct {
		b.write("DISTINCT ")
	}
	for i, expr := range sel.Columns {
		if i > 0 {
			b.write(", ")
		}
		if err := b.writeExpr(expr); err != nil {
			return err
		}
	}

	b.write(" FROM ")
	if err := b.writeIdent(sel.From); err != nil {
		return err
	}
	if sel.Alias != "" {
		b.write(" AS ")
		if err := b.writeIdent(sel.Alias); err != nil {
			return err
		}
	}

	if sel.Filter != nil {
		b.write(" WHERE ")
		if err := b.writePredicate(sel.Filter); err != nil {
			return fmt.Errorf("compile filter: %w", err)
		}
	}

	if len(sel.OrderBy) > 0 {
		b.write(" ORDER BY ")
		for i, col := range sel.OrderBy {
			if i > 0 {
				b.write(", ")
			}
			if err := b.writeColumn(col); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *builder) writeColumn(col queryir.Column) error {
	if col.Table != "" {
		if err := b.writeIdent(col.Table); err != nil {
			return err
		}
		b.write(".")
	}
	return b.writeIdent(col.Name)
}

func (b *builder) writeExpr(e queryir.Expr) error {
	switch expr := e.(type) {
	case queryir.Column:
		return b.writeColumn(expr)
	case queryir.Param:
		b.bind(expr.Value)
		return nil
	case queryir.Scalar:
		b.write("(")
		if err := b.writeSelect(expr.Query); err != nil {
			return err
		}
		b.write(")")
		return nil
	case queryir.Arithmetic:
		if err := checkArithmetic(expr.Text); err != nil {
			return err
		}
		b.write(expr.Text)
		return nil
	case queryir.Template:
		for _, part := range expr.Parts {
			if err := b.writeExpr(part); err != nil {
				return err
			}
		}
		return nil
	case queryir.Cast:
		if expr.Type != queryir.CastInteger && expr.Type != queryir.CastReal {
			return fmt.Errorf("unsupported cast type %q", expr.Type)
		}
		b.write("CAST(")
		if err := b.writeExpr(expr.Expr); err != nil {
			return err
		}
		b.write(" AS " + string(expr.Type) + ")")
		return nil
	default:
		return fmt.Errorf("unsupported expression type: %T", e)
	}
}

// writePredicate compiles a predicate to a WHERE clause fragment.
// Values are bound as ? placeholders.
func (b *builder) writePredicate(p queryir.Predicate) error {
	switch pred := p.(type) {
	case nil:
		b.write("1 = 1")
		return nil
	case queryir.Equals:
		if err := b.writeColumn(pred.Field); err != nil {
			return err
		}
		b.write(" = ")
		b.bind(pred.Value)
		return nil
	case queryir.ColumnEquals:
		if err := b.writeColumn(pred.Left); err != nil {
			return err
		}
		b.write(" = ")
		return b.writeColumn(pred.Right)
	case queryir.NotNull:
		if err := b.writeColumn(pred.Field); err != nil {
			return err
		}
		b.write(" IS NOT NULL")
		return nil
	case queryir.And:
		if len(pred.Predicates) == 0 {
			b.write("1 = 1") // vacuous truth
			return nil
		}
		for i, sub := range pred.Predicates {
			if i > 0 {
				b.write(" AND ")
			}
			if err := b.writePredicate(sub); err != nil {
				return err
			}
		}
		return nil
	case queryir.In:
		return b.writeIn(pred)
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// writeIn compiles a row-value IN: (a, b) IN (SELECT ...).
// A single field drops the parentheses.
func (b *builder) writeIn(in queryir.In) error {
	if len(in.Fields) == 0 || len(in.Fields) != len(in.Source.Columns) {
		return fmt.Errorf("IN predicate compares %d fields with %d source columns",
			len(in.Fields), len(in.Source.Columns))
	}

	if len(in.Fields) > 1 {
		b.write("(")
	}
	for i, f := range in.Fields {
		if i > 0 {
			b.write(", ")
		}
		if err := b.writeColumn(f); err != nil {
			return err
		}
	}
	if len(in.Fields) > 1 {
		b.write(")")
	}

	b.write(" IN (")
	if err := b.writeSelect(in.Source); err != nil {
		return err
	}
	b.write(")")
	return nil
}

// checkArithmetic accepts numbers, whitespace, arithmetic operators,
// parentheses, commas and the words in arithmeticWords. SQL comment openers
// are rejected even though their characters are individually allowed.
func checkArithmetic(text string) error {
	if strings.Contains(text, "--") || strings.Contains(text, "/*") {
		return fmt.Errorf("formula text %q contains a comment marker", text)
	}

	runes := []rune(text)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r), unicode.IsDigit(r) && r < unicode.MaxASCII:
			i++
		case strings.ContainsRune("+-*/%().,", r):
			i++
		case r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r)):
			j := i
			for j < len(runes) && (runes[j] == '_' || (runes[j] < unicode.MaxASCII && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j])))) {
				j++
			}
			word := string(runes[i:j])
			if !arithmeticWords[strings.ToUpper(word)] {
				return fmt.Errorf("formula text %q uses disallowed word %q", text, word)
			}
			i = j
		default:
			return fmt.Errorf("formula text %q contains disallowed character %q", text, r)
		}
	}
	return nil
}
