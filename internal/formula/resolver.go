package formula

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/statmap/internal/indicator"
	"github.com/roach88/statmap/internal/queryir"
	"github.com/roach88/statmap/internal/store"
)

// Registry resolves indicator names. FindByName must return an error wrapping
// indicator.ErrNotFound when no indicator has the name.
type Registry interface {
	FindByName(ctx context.Context, name string) (indicator.Indicator, error)
}

// ValueStore executes the bulk derived insert as one atomic statement.
type ValueStore interface {
	InsertComputed(ctx context.Context, q queryir.InsertSelect) (int64, error)
}

// Table aliases used in the generated query.
const (
	aliasSource      = "src" // rows of the first dependency, one per output row
	aliasLookup      = "x"   // per-reference value lookup
	aliasRestriction = "d"   // (region, year) pairs of a further dependency
)

// Resolver derives composite indicator values.
//
// Resolver is not safe for concurrent derivation of the same indicator; the
// caller serializes per indicator.
type Resolver struct {
	registry Registry
	values   ValueStore
	logger   *slog.Logger
}

// NewResolver creates a Resolver. A nil logger uses slog.Default().
func NewResolver(registry Registry, values ValueStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{registry: registry, values: values, logger: logger}
}

// DeriveValues inserts a row for target at every (region, year) where all
// indicators referenced by target.Formula have values, and returns how many
// rows were inserted.
//
// Re-running inserts duplicates; clear the target's values first to rebuild.
func (r *Resolver) DeriveValues(ctx context.Context, target indicator.Indicator) (int64, error) {
	q, err := r.BuildQuery(ctx, target)
	if err != nil {
		return 0, err
	}

	n, err := r.values.InsertComputed(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("derive %q: %w", target.Name, err)
	}

	r.logger.Debug("derived indicator values",
		"indicator", target.Name,
		"indicator_id", target.ID,
		"rows", n)
	return n, nil
}

// BuildQuery parses target.Formula, resolves its references through the
// registry and returns the bulk insert DeriveValues would execute.
func (r *Resolver) BuildQuery(ctx context.Context, target indicator.Indicator) (queryir.InsertSelect, error) {
	column, err := target.ValueColumn()
	if err != nil {
		return queryir.InsertSelect{}, fmt.Errorf("derive %q: %w", target.Name, err)
	}

	f := Parse(target.Formula)
	names := f.References()
	if len(names) == 0 {
		return queryir.InsertSelect{}, &Error{
			Code:      CodeNotComposite,
			Indicator: target.Name,
			Formula:   target.Formula,
		}
	}

	deps := make(map[string]indicator.Indicator, len(names))
	for _, name := range names {
		dep, err := r.registry.FindByName(ctx, name)
		if errors.Is(err, indicator.ErrNotFound) {
			return queryir.InsertSelect{}, &Error{
				Code:      CodeUnknownReference,
				Indicator: target.Name,
				Formula:   target.Formula,
				Name:      name,
			}
		}
		if err != nil {
			return queryir.InsertSelect{}, fmt.Errorf("derive %q: resolve %q: %w", target.Name, name, err)
		}
		deps[name] = dep
	}

	return buildInsert(target, column, f, names, deps)
}

// buildInsert assembles:
//
//	INSERT INTO indicator_values (indicator_id, region_id, year, <column>, note)
//	SELECT <target id>, src.region_id, src.year, CAST(<substituted formula>), src.note
//	FROM indicator_values AS src
//	WHERE src.indicator_id = <first dep> AND (src.region_id, src.year) IN (<other dep pairs>)...
//	ORDER BY src.region_id, src.year
func buildInsert(target indicator.Indicator, column indicator.Column, f Formula, names []string, deps map[string]indicator.Indicator) (queryir.InsertSelect, error) {
	expr, err := substitute(f, deps)
	if err != nil {
		return queryir.InsertSelect{}, fmt.Errorf("derive %q: %w", target.Name, err)
	}

	castType := queryir.CastReal
	if column == indicator.ColumnInteger {
		castType = queryir.CastInteger
	}

	srcRegion := queryir.Col(aliasSource, store.ColRegionID)
	srcYear := queryir.Col(aliasSource, store.ColYear)

	restrictions := make([]queryir.Predicate, 0, len(names))
	for i, name := range names {
		dep := deps[name]
		if i == 0 {
			restrictions = append(restrictions, queryir.Equals{
				Field: queryir.Col(aliasSource, store.ColIndicatorID),
				Value: dep.ID,
			})
			continue
		}
		restrictions = append(restrictions, queryir.In{
			Fields: []queryir.Column{srcRegion, srcYear},
			Source: queryir.Select{
				From:  store.TableIndicatorValues,
				Alias: aliasRestriction,
				Columns: []queryir.Expr{
					queryir.Col(aliasRestriction, store.ColRegionID),
					queryir.Col(aliasRestriction, store.ColYear),
				},
				Filter: queryir.Equals{
					Field: queryir.Col(aliasRestriction, store.ColIndicatorID),
					Value: dep.ID,
				},
			},
		})
	}

	return queryir.InsertSelect{
		Into: store.TableIndicatorValues,
		Columns: []string{
			store.ColIndicatorID,
			store.ColRegionID,
			store.ColYear,
			string(column),
			store.ColNote,
		},
		Source: queryir.Select{
			From:  store.TableIndicatorValues,
			Alias: aliasSource,
			Columns: []queryir.Expr{
				queryir.Param{Value: target.ID},
				srcRegion,
				srcYear,
				queryir.Cast{Expr: expr, Type: castType},
				queryir.Col(aliasSource, store.ColNote),
			},
			Filter:  queryir.And{Predicates: restrictions},
			OrderBy: []queryir.Column{srcRegion, srcYear},
		},
	}, nil
}

// substitute replaces every {Name} occurrence with a lookup of that
// dependency's value for the source row's region and year.
func substitute(f Formula, deps map[string]indicator.Indicator) (queryir.Template, error) {
	parts := make([]queryir.Expr, 0, len(f.Segments))
	for _, seg := range f.Segments {
		if !seg.IsRef {
			parts = append(parts, queryir.Arithmetic{Text: seg.Text})
			continue
		}

		dep := deps[seg.Text]
		depColumn, err := dep.ValueColumn()
		if err != nil {
			return queryir.Template{}, fmt.Errorf("reference %q: %w", seg.Text, err)
		}
		parts = append(parts, queryir.Scalar{Query: lookup(dep.ID, depColumn)})
	}
	return queryir.Template{Parts: parts}, nil
}

// lookup selects one dependency value correlated with the source row.
func lookup(indicatorID int64, column indicator.Column) queryir.Select {
	return queryir.Select{
		From:    store.TableIndicatorValues,
		Alias:   aliasLookup,
		Columns: []queryir.Expr{queryir.Col(aliasLookup, string(column))},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: queryir.Col(aliasLookup, store.ColIndicatorID), Value: indicatorID},
			queryir.ColumnEquals{
				Left:  queryir.Col(aliasLookup, store.ColRegionID),
				Right: queryir.Col(aliasSource, store.ColRegionID),
			},
			queryir.ColumnEquals{
				Left:  queryir.Col(aliasLookup, store.ColYear),
				Right: queryir.Col(aliasSource, store.ColYear),
			},
		}},
	}
}
