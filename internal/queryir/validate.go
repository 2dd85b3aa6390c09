package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult contains the structural problems found in a query.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems lists every structural defect, in traversal order.
	Problems []string
}

// Err folds the problems into a single error, or returns nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", strings.Join(r.Problems, "; "))
}

// Validate checks a query tree for structural defects before compilation:
//  1. every Select names a table and selects at least one expression
//  2. InsertSelect columns line up with the source select list
//  3. In predicates compare tuples of equal arity
//  4. no nil expressions or predicates inside composite nodes
//  5. Cast targets a known storage type
//
// Backend-specific safety checks (identifier syntax, arithmetic alphabet) are
// the compiler's job. Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case InsertSelect:
		v.validateInsert(query)
	case *InsertSelect:
		v.validateInsert(*query)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addProblem("select without FROM table")
	}
	if len(sel.Columns) == 0 {
		v.addProblem("select from %q has no columns", sel.From)
	}
	for _, col := range sel.Columns {
		v.validateExpr(col)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validateInsert(ins InsertSelect) {
	if ins.Into == "" {
		v.addProblem("insert without target table")
	}
	if len(ins.Columns) != len(ins.Source.Columns) {
		v.addProblem("insert into %q names %d columns but source selects %d",
			ins.Into, len(ins.Columns), len(ins.Source.Columns))
	}
	v.validateSelect(ins.Source)
}

func (v *validator) validateExpr(e Expr) {
	switch expr := e.(type) {
	case nil:
		v.addProblem("nil expression")
	case Column:
		if expr.Name == "" {
			v.addProblem("column without name")
		}
	case Param:
	case Scalar:
		if len(expr.Query.Columns) != 1 {
			v.addProblem("scalar subquery must select exactly one column, got %d", len(expr.Query.Columns))
		}
		v.validateSelect(expr.Query)
	case Arithmetic:
	case Template:
		if len(expr.Parts) == 0 {
			v.addProblem("empty template")
		}
		for _, p := range expr.Parts {
			v.validateExpr(p)
		}
	case Cast:
		if expr.Type != CastInteger && expr.Type != CastReal {
			v.addProblem("unsupported cast type %q", expr.Type)
		}
		v.validateExpr(expr.Expr)
	default:
		v.addProblem("unknown expression type %T", e)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addProblem("nil predicate")
	case Equals, ColumnEquals, NotNull:
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case In:
		if len(pred.Fields) == 0 {
			v.addProblem("IN predicate without fields")
		}
		if len(pred.Fields) != len(pred.Source.Columns) {
			v.addProblem("IN predicate compares %d fields with %d source columns",
				len(pred.Fields), len(pred.Source.Columns))
		}
		v.validateSelect(pred.Source)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}
