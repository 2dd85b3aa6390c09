package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/statmap/internal/bucket"
	"github.com/roach88/statmap/internal/formula"
	"github.com/roach88/statmap/internal/indicator"
	"github.com/roach88/statmap/internal/store"
)

// Engine derives composite indicators and maintains their bucket strings.
//
// Engine does not serialize callers: two concurrent derivations of the same
// indicator insert duplicate rows. The store serializes individual writes.
type Engine struct {
	store    *store.Store
	resolver *formula.Resolver
	runIDs   RunIDGenerator
	logger   *slog.Logger
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunIDs sets the run id generator. Default: UUIDv7Generator.
func WithRunIDs(gen RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = gen
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		runIDs: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = formula.NewResolver(s, s, e.logger)
	return e
}

// DeriveOptions controls a derivation.
type DeriveOptions struct {
	// Replace removes the target's existing rows before inserting, so a
	// re-derivation rebuilds instead of duplicating.
	Replace bool
}

// DeriveResult reports one derivation.
type DeriveResult struct {
	RunID     string `json:"run_id"`
	Indicator string `json:"indicator"`
	Rows      int64  `json:"rows"`
	Removed   int64  `json:"removed"`
	Buckets   string `json:"buckets"`
}

// Derive computes the values of the named composite indicator.
//
// The formula is resolved before anything is removed, so a Replace run that
// fails on an unknown reference leaves existing rows in place.
func (e *Engine) Derive(ctx context.Context, name string, opts DeriveOptions) (DeriveResult, error) {
	runID := e.runIDs.Generate()
	logger := e.logger.With("run_id", runID)

	target, err := e.store.FindByName(ctx, name)
	if err != nil {
		return DeriveResult{RunID: runID}, fmt.Errorf("derive: %w", err)
	}
	return e.derive(ctx, logger, runID, target, opts)
}

func (e *Engine) derive(ctx context.Context, logger *slog.Logger, runID string, target indicator.Indicator, opts DeriveOptions) (DeriveResult, error) {
	result := DeriveResult{RunID: runID, Indicator: target.Name}

	// A self-referencing formula has no rows to read once Replace has
	// cleared them, and otherwise reads its own output.
	for _, ref := range formula.Parse(target.Formula).References() {
		if indicator.NormalizeName(ref) == target.Name {
			err := NewCycleError(runID, []string{target.Name, target.Name})
			logger.Warn("derivation rejected", "indicator", target.Name, "error", err)
			return result, err
		}
	}

	q, err := e.resolver.BuildQuery(ctx, target)
	if err != nil {
		logger.Warn("derivation rejected", "indicator", target.Name, "error", err)
		return result, err
	}

	if opts.Replace {
		removed, rows, err := e.store.ReplaceComputed(ctx, target.ID, q)
		if err != nil {
			return result, fmt.Errorf("derive %q: %w", target.Name, err)
		}
		result.Removed, result.Rows = removed, rows
		logger.Debug("replaced previous values", "indicator", target.Name, "removed", removed)
	} else {
		rows, err := e.store.InsertComputed(ctx, q)
		if err != nil {
			return result, fmt.Errorf("derive %q: %w", target.Name, err)
		}
		result.Rows = rows
	}

	logger.Info("derived indicator", "indicator", target.Name, "rows", result.Rows)
	return result, nil
}

// Rebucket recomputes the bucket string of the named indicator from its
// current values, stores it and returns it.
func (e *Engine) Rebucket(ctx context.Context, name string) (string, error) {
	runID := e.runIDs.Generate()
	logger := e.logger.With("run_id", runID)

	ind, err := e.store.FindByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("rebucket: %w", err)
	}
	return e.rebucket(ctx, logger, ind)
}

func (e *Engine) rebucket(ctx context.Context, logger *slog.Logger, ind indicator.Indicator) (string, error) {
	buckets, err := bucket.Compute(ctx, e.store, ind)
	if err != nil {
		return "", err
	}
	if err := e.store.UpdateBuckets(ctx, ind.ID, buckets); err != nil {
		return "", fmt.Errorf("rebucket %q: %w", ind.Name, err)
	}

	logger.Info("bucketed indicator", "indicator", ind.Name, "buckets", buckets)
	return buckets, nil
}

// DeriveAll derives every composite indicator in dependency order and
// rebuckets each one after its derivation. All log lines share one run id.
//
// Stops at the first failure and returns the results completed so far.
func (e *Engine) DeriveAll(ctx context.Context, opts DeriveOptions) ([]DeriveResult, error) {
	runID := e.runIDs.Generate()
	logger := e.logger.With("run_id", runID)

	all, err := e.store.ListIndicators(ctx)
	if err != nil {
		return nil, fmt.Errorf("derive all: %w", err)
	}

	order, err := DerivationOrder(all, runID)
	if err != nil {
		logger.Error("derivation order", "error", err)
		return nil, err
	}
	logger.Debug("derivation order", "composites", len(order))

	results := make([]DeriveResult, 0, len(order))
	for _, target := range order {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result, err := e.derive(ctx, logger, runID, target, opts)
		if err != nil {
			return results, err
		}

		result.Buckets, err = e.rebucket(ctx, logger, target)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
