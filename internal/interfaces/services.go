// Package interfaces defines service contracts for PerfLens
package interfaces

import (
	"context"

	"github.com/perflens/perflens/internal/models"
)

// SymbolResolver turns free-text asset names into canonical ticker symbols.
type SymbolResolver interface {
	// Resolve returns the canonical symbol for a name, or models.ErrNotFound
	// when the name is empty, unmatched, or the provider lookup failed.
	Resolve(ctx context.Context, name string) (string, error)
}

// SeriesAligner batches historical price requests, aligns the series onto a
// common calendar, forward-fills gaps, and normalizes to a base of 100.
type SeriesAligner interface {
	// Align never fails as a whole: symbols that cannot be served are
	// reported in the result's Degraded map instead.
	Align(ctx context.Context, symbols []string, benchmark string, horizon models.Horizon) *models.AlignResult
}

// MetricReconciler derives per-symbol fundamental metrics with fallback
// chains when primary fields are missing.
type MetricReconciler interface {
	// Reconcile computes a MetricRecord for a symbol. history is the
	// already-fetched full-horizon price series; single-field failures
	// degrade that field only and never abort the rest of the record.
	Reconcile(ctx context.Context, symbol string, currentPrice float64, history models.PriceSeries) models.MetricRecord
}

// AnalyticsService composes resolution, alignment, and reconciliation into
// the per-request report consumed by the presentation layer.
type AnalyticsService interface {
	// BuildReport resolves names (skipping failures per-name), aligns series
	// for the resolved set plus the benchmark, and reconciles metrics for
	// each resolved symbol. When nothing resolves it returns the explicit
	// empty report together with models.ErrEmptyRequest.
	BuildReport(ctx context.Context, names []string, horizon models.Horizon) (*models.Report, error)
}
