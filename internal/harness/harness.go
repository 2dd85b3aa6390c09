package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/statmap/internal/catalog"
	"github.com/roach88/statmap/internal/engine"
	"github.com/roach88/statmap/internal/formula"
	"github.com/roach88/statmap/internal/indicator"
	"github.com/roach88/statmap/internal/store"
	"github.com/roach88/statmap/internal/testutil"
)

// Error codes reported for errors that carry no code of their own.
const (
	CodeInvalidValueType = "INVALID_VALUE_TYPE"
	CodeNotFound         = "NOT_FOUND"
	CodeUncastable       = "UNCASTABLE"
	CodeUnknown          = "ERROR"
)

// Harness executes one scenario.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sends engine logs to logger instead of discarding them.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Create fresh in-memory database
//  2. Load the CUE catalog, if any, and apply the dataset
//  3. Derive (and rebucket) the listed composites, then DeriveAll if set
//  4. Rebucket the listed indicators
//  5. Collect rows and buckets, then evaluate the expectations
//
// The first failing operation stops execution; its code is recorded in
// Result.Error and compared with Expect.Error. Run itself only fails when
// the scenario cannot be executed at all.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		engine: engine.New(st,
			engine.WithLogger(o.logger),
			engine.WithRunIDs(testutil.NewSequentialRunIDs(scenario.RunIDPrefix))),
	}

	if scenario.Catalog != "" {
		if err := h.loadCatalog(ctx, scenario.Catalog); err != nil {
			return nil, err
		}
	}

	result := NewResult()
	derived := h.execute(ctx, scenario, result)

	if err := h.collect(ctx, derived, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) loadCatalog(ctx context.Context, dir string) error {
	res, errs := catalog.Load(dir, catalog.LoadModeCollectAll)
	if len(errs) > 0 {
		return fmt.Errorf("failed to load catalog: %w", errors.Join(errs...))
	}
	for _, ind := range res.Indicators {
		if _, err := h.store.CreateIndicator(ctx, ind); err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	return nil
}

// execute runs the scenario's operations until one fails, recording the
// failure code in result. Returns the names of the derived indicators in
// first-derivation order.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) []string {
	var derived []string
	seen := make(map[string]bool)
	markDerived := func(name string) {
		if !seen[name] {
			seen[name] = true
			derived = append(derived, name)
		}
	}

	if _, err := scenario.Dataset.Apply(ctx, h.store); err != nil {
		result.Error = ErrorCode(err)
		return derived
	}

	opts := engine.DeriveOptions{Replace: scenario.Replace}
	for _, name := range scenario.Derive {
		res, err := h.engine.Derive(ctx, name, opts)
		if err != nil {
			result.Error = ErrorCode(err)
			return derived
		}
		result.Derived = append(result.Derived, res)
		markDerived(res.Indicator)

		if _, err := h.engine.Rebucket(ctx, name); err != nil {
			result.Error = ErrorCode(err)
			return derived
		}
		markBucketed(result, res.Indicator)
	}

	if scenario.DeriveAll {
		results, err := h.engine.DeriveAll(ctx, opts)
		for _, res := range results {
			result.Derived = append(result.Derived, res)
			markDerived(res.Indicator)
			result.Buckets[res.Indicator] = res.Buckets
		}
		if err != nil {
			result.Error = ErrorCode(err)
			return derived
		}
	}

	for _, name := range scenario.Rebucket {
		if _, err := h.engine.Rebucket(ctx, name); err != nil {
			result.Error = ErrorCode(err)
			return derived
		}
		markBucketed(result, indicator.NormalizeName(name))
	}

	return derived
}

// markBucketed reserves a Buckets entry; collect fills in the stored value.
func markBucketed(result *Result, name string) {
	result.Buckets[name] = ""
}

// collect reads back the rows of derived indicators and the stored bucket
// string of every bucketed indicator.
func (h *Harness) collect(ctx context.Context, derived []string, result *Result) error {
	for _, name := range derived {
		ind, err := h.store.FindByName(ctx, name)
		if err != nil {
			return fmt.Errorf("collect %q: %w", name, err)
		}
		values, err := h.store.ListValues(ctx, ind.ID)
		if err != nil {
			return fmt.Errorf("collect %q: %w", name, err)
		}
		for _, v := range values {
			val, ok, err := ind.GetValue(v)
			if err != nil {
				return fmt.Errorf("collect %q: %w", name, err)
			}
			if !ok {
				// Division by zero and other NULL results are stored empty
				continue
			}
			result.Rows = append(result.Rows, Row{
				Indicator: ind.Name,
				Region:    v.RegionID,
				Year:      v.Year,
				Value:     val,
				Note:      v.Note,
				ind:       ind,
			})
		}
	}

	for name := range result.Buckets {
		ind, err := h.store.FindByName(ctx, name)
		if err != nil {
			return fmt.Errorf("collect buckets %q: %w", name, err)
		}
		result.Buckets[name] = ind.Buckets
	}
	return nil
}

// ErrorCode maps an operation error to the code scenarios expect.
func ErrorCode(err error) string {
	var fe *formula.Error
	if errors.As(err, &fe) {
		return string(fe.Code)
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	switch {
	case errors.Is(err, indicator.ErrInvalidValueType):
		return CodeInvalidValueType
	case errors.Is(err, indicator.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, indicator.ErrUncastable):
		return CodeUncastable
	default:
		return CodeUnknown
	}
}
