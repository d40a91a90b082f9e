// Package analytics composes resolution, alignment, and metric
// reconciliation into the per-request report
package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/perflens/perflens/internal/cache"
	"github.com/perflens/perflens/internal/common"
	"github.com/perflens/perflens/internal/interfaces"
	"github.com/perflens/perflens/internal/models"
)

// Options holds the facade tunables.
type Options struct {
	Benchmark      string
	BenchmarkLabel string
	MaxAssets      int
	NewsPerSymbol  int
	NewsTTL        time.Duration
}

// Service implements AnalyticsService.
type Service struct {
	resolver   interfaces.SymbolResolver
	aligner    interfaces.SeriesAligner
	reconciler interfaces.MetricReconciler
	client     interfaces.MarketDataClient
	cache      *cache.Cache
	opts       Options
	logger     *common.Logger
}

// NewService creates the analytics facade.
func NewService(
	resolver interfaces.SymbolResolver,
	aligner interfaces.SeriesAligner,
	reconciler interfaces.MetricReconciler,
	client interfaces.MarketDataClient,
	c *cache.Cache,
	opts Options,
	logger *common.Logger,
) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if opts.MaxAssets <= 0 {
		opts.MaxAssets = 5
	}
	if opts.NewsPerSymbol <= 0 {
		opts.NewsPerSymbol = 3
	}
	if opts.NewsTTL <= 0 {
		opts.NewsTTL = common.FreshnessNews
	}
	return &Service{
		resolver:   resolver,
		aligner:    aligner,
		reconciler: reconciler,
		client:     client,
		cache:      c,
		opts:       opts,
		logger:     logger,
	}
}

// BuildReport runs the resolve → align → reconcile pipeline for up to
// MaxAssets names. Names that fail to resolve are skipped per-name; a
// request with a mix of good and bad names still reports the good ones.
// When nothing resolves, the explicit empty report is returned together
// with models.ErrEmptyRequest.
func (s *Service) BuildReport(ctx context.Context, names []string, horizon models.Horizon) (*models.Report, error) {
	if _, ok := models.ParseHorizon(string(horizon)); !ok {
		horizon = models.Horizon1Y
	}

	symbols := s.resolveAll(ctx, names)
	if len(symbols) == 0 {
		return models.EmptyReport(horizon, s.opts.Benchmark, s.opts.BenchmarkLabel), models.ErrEmptyRequest
	}

	aligned := s.aligner.Align(ctx, symbols, s.opts.Benchmark, horizon)

	report := &models.Report{
		Symbols:        symbols,
		Benchmark:      s.opts.Benchmark,
		BenchmarkLabel: s.opts.BenchmarkLabel,
		Horizon:        horizon,
		Series:         make(map[string]models.NormalizedSeries, len(aligned.Series)),
		Metrics:        make(map[string]models.MetricRecord, len(symbols)),
		News:           make(map[string][]models.NewsItem),
		Degraded:       aligned.Degraded,
		GeneratedAt:    time.Now(),
	}

	benchReturn, benchOK := windowReturn(aligned.Series[s.opts.Benchmark])

	for sym, series := range aligned.Series {
		if sym == s.opts.Benchmark {
			series.Label = s.opts.BenchmarkLabel
		}
		report.Series[sym] = series
	}

	for _, sym := range symbols {
		series, ok := aligned.Series[sym]
		if !ok {
			// Dropped by normalization: omitted from both series and
			// metrics, consistently. The degraded reason is already set.
			continue
		}

		record := s.reconciler.Reconcile(ctx, sym, aligned.Latest[sym], aligned.History[sym])

		if ret, ok := windowReturn(series); ok {
			r := ret
			record.WindowReturnPct = &r
			if benchOK {
				rel := ret - benchReturn
				record.BenchmarkRelativePct = &rel
			}
		}

		report.Metrics[sym] = record
		report.News[sym] = s.news(ctx, sym)
	}

	return report, nil
}

// resolveAll resolves every name, skipping failures per-name and removing
// duplicates while preserving input order.
func (s *Service) resolveAll(ctx context.Context, names []string) []string {
	if len(names) > s.opts.MaxAssets {
		names = names[:s.opts.MaxAssets]
	}

	seen := make(map[string]struct{}, len(names))
	symbols := make([]string, 0, len(names))
	for _, name := range names {
		symbol, err := s.resolver.Resolve(ctx, name)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				s.logger.Warn().Str("name", name).Err(err).Msg("Unexpected resolution error")
			}
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}
	return symbols
}

// news fetches headlines through the cache, degrading to nil on failure.
func (s *Service) news(ctx context.Context, symbol string) []models.NewsItem {
	key := cache.Key("news", symbol)
	items, err := cache.Fetch(ctx, s.cache, key, s.opts.NewsTTL, func(ctx context.Context) ([]models.NewsItem, error) {
		return s.client.GetNews(ctx, symbol, s.opts.NewsPerSymbol)
	})
	if err != nil {
		s.logger.Debug().Str("symbol", symbol).Err(err).Msg("News unavailable")
		return nil
	}
	if len(items) > s.opts.NewsPerSymbol {
		items = items[:s.opts.NewsPerSymbol]
	}
	return items
}

// windowReturn derives the percentage return over the window from a
// normalized series: the series starts at 100, so the return is simply the
// last value minus 100.
func windowReturn(series models.NormalizedSeries) (float64, bool) {
	if len(series.Points) == 0 {
		return 0, false
	}
	return series.Points[len(series.Points)-1].Value - 100, true
}

// Ensure Service implements AnalyticsService
var _ interfaces.AnalyticsService = (*Service)(nil)
