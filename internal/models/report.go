package models

import "time"

// Horizon is the selected comparison window applied to aligned series.
type Horizon string

// Supported horizons, one month through five years plus maximum available.
const (
	Horizon1M  Horizon = "1mo"
	Horizon3M  Horizon = "3mo"
	Horizon6M  Horizon = "6mo"
	Horizon1Y  Horizon = "1y"
	Horizon2Y  Horizon = "2y"
	Horizon5Y  Horizon = "5y"
	HorizonMax Horizon = "max"
)

// Horizons returns the supported windows in display order.
func Horizons() []Horizon {
	return []Horizon{Horizon1M, Horizon3M, Horizon6M, Horizon1Y, Horizon2Y, Horizon5Y, HorizonMax}
}

// ParseHorizon validates a horizon string.
func ParseHorizon(s string) (Horizon, bool) {
	for _, h := range Horizons() {
		if string(h) == s {
			return h, true
		}
	}
	return "", false
}

// Days returns the window length in calendar days. Slicing is done by date
// arithmetic from the end of the fetched series, not by provider period
// keywords, to avoid provider-side ambiguity about period boundaries.
// HorizonMax returns 0, meaning no slicing.
func (h Horizon) Days() int {
	switch h {
	case Horizon1M:
		return 30
	case Horizon3M:
		return 91
	case Horizon6M:
		return 182
	case Horizon1Y:
		return 365
	case Horizon2Y:
		return 730
	case Horizon5Y:
		return 1825
	default:
		return 0
	}
}

// SeriesPoint is one date/value observation of a normalized series.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// NormalizedSeries is a price series rescaled so the first in-window value
// equals 100, enabling cross-asset percentage comparison.
type NormalizedSeries struct {
	Symbol string        `json:"symbol"`
	Label  string        `json:"label,omitempty"`
	Points []SeriesPoint `json:"points"`
}

// InsiderFlow is the net insider share flow for a symbol. Estimated marks
// the market-cap heuristic used when the provider feed is empty or failed;
// consumers must never present an estimate identically to feed data.
type InsiderFlow struct {
	NetShares float64 `json:"net_shares"`
	Estimated bool    `json:"estimated"`
}

// MetricRecord holds the derived per-symbol metrics for one analytics
// request. Nil pointer fields are unavailable (degraded), which is distinct
// from zero: a zero dividend yield is a legitimate yield, a missing P/E is
// not a P/E of zero.
type MetricRecord struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"current_price"`

	TrailingPE       *float64 `json:"trailing_pe,omitempty"`
	ForwardPE        *float64 `json:"forward_pe,omitempty"`
	DividendYieldPct float64  `json:"dividend_yield_pct"`

	InsiderFlow *InsiderFlow `json:"insider_flow,omitempty"`

	High52        *float64 `json:"high_52,omitempty"`
	GapToHighPct  *float64 `json:"gap_to_high_pct,omitempty"`
	VolatilityPct *float64 `json:"volatility_pct,omitempty"`

	TargetPrice     *float64 `json:"target_price,omitempty"`
	TargetUpsidePct *float64 `json:"target_upside_pct,omitempty"`

	// Window metrics filled in by the analytics facade from aligned series.
	WindowReturnPct      *float64 `json:"window_return_pct,omitempty"`
	BenchmarkRelativePct *float64 `json:"benchmark_relative_pct,omitempty"`
}

// AlignResult is the output of the time-series aligner.
type AlignResult struct {
	// Series holds normalized in-window series, keyed by symbol. Keys are
	// exactly the requested symbols (benchmark included) that had at least
	// one priced observation in-window.
	Series map[string]NormalizedSeries

	// Latest maps each aligned symbol to its most recent in-window close.
	Latest map[string]float64

	// History holds the full-horizon raw series for each aligned symbol,
	// for downstream tail computations without re-fetching.
	History map[string]PriceSeries

	// Degraded maps dropped or partially-served symbols to a reason.
	Degraded map[string]string
}

// Report is the per-request output consumed read-only by the presentation
// layer. No symbol appears in Metrics without also appearing in Series,
// and vice versa (the benchmark appears in Series only).
type Report struct {
	Symbols        []string                    `json:"symbols"`
	Benchmark      string                      `json:"benchmark"`
	BenchmarkLabel string                      `json:"benchmark_label"`
	Horizon        Horizon                     `json:"horizon"`
	Series         map[string]NormalizedSeries `json:"series"`
	Metrics        map[string]MetricRecord     `json:"metrics"`
	News           map[string][]NewsItem       `json:"news,omitempty"`
	Degraded       map[string]string           `json:"degraded,omitempty"`
	GeneratedAt    time.Time                   `json:"generated_at"`
}

// EmptyReport is the explicit empty result returned when no symbol resolves.
func EmptyReport(horizon Horizon, benchmark, benchmarkLabel string) *Report {
	return &Report{
		Symbols:        []string{},
		Benchmark:      benchmark,
		BenchmarkLabel: benchmarkLabel,
		Horizon:        horizon,
		Series:         map[string]NormalizedSeries{},
		Metrics:        map[string]MetricRecord{},
		GeneratedAt:    time.Now(),
	}
}
