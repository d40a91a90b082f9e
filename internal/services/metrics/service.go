// Package metrics derives per-symbol fundamental metrics with multi-source
// fallback chains
package metrics

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/perflens/perflens/internal/cache"
	"github.com/perflens/perflens/internal/common"
	"github.com/perflens/perflens/internal/interfaces"
	"github.com/perflens/perflens/internal/models"
)

// tailPeriods is the trailing observation count used for the 52-period high
// and volatility, roughly one trading year of daily bars.
const tailPeriods = 252

// tradingDaysPerYear annualizes daily return volatility.
const tradingDaysPerYear = 252

// Options holds the reconciler tunables.
type Options struct {
	// YieldSanityThreshold: a raw dividend yield at or above this value is
	// assumed to be a miscoded percentage and divided by 100. Heuristic —
	// may misclassify legitimately high-yield instruments, hence a config
	// constant rather than a hard invariant.
	YieldSanityThreshold float64

	// InsiderFlowFactor scales the market-cap heuristic used when the true
	// insider feed is empty or unavailable.
	InsiderFlowFactor float64

	FundamentalsTTL time.Duration
	DividendsTTL    time.Duration
	InsiderTTL      time.Duration
}

// DefaultOptions returns the reconciler defaults.
func DefaultOptions() Options {
	return Options{
		YieldSanityThreshold: 0.20,
		InsiderFlowFactor:    0.0001,
		FundamentalsTTL:      common.FreshnessFundamentals,
		DividendsTTL:         common.FreshnessDividends,
		InsiderTTL:           common.FreshnessInsiders,
	}
}

// Service implements MetricReconciler over the cached market-data gateway.
type Service struct {
	client interfaces.MarketDataClient
	cache  *cache.Cache
	opts   Options
	logger *common.Logger
}

// NewService creates a new metric reconciler.
func NewService(client interfaces.MarketDataClient, c *cache.Cache, opts Options, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if opts.YieldSanityThreshold <= 0 {
		opts.YieldSanityThreshold = DefaultOptions().YieldSanityThreshold
	}
	if opts.InsiderFlowFactor <= 0 {
		opts.InsiderFlowFactor = DefaultOptions().InsiderFlowFactor
	}
	if opts.FundamentalsTTL <= 0 {
		opts.FundamentalsTTL = common.FreshnessFundamentals
	}
	if opts.DividendsTTL <= 0 {
		opts.DividendsTTL = common.FreshnessDividends
	}
	if opts.InsiderTTL <= 0 {
		opts.InsiderTTL = common.FreshnessInsiders
	}
	return &Service{
		client: client,
		cache:  c,
		opts:   opts,
		logger: logger,
	}
}

// Reconcile computes the MetricRecord for one symbol. Every field has its
// own fallback chain; a failed fetch degrades only the fields depending on
// it and never aborts the rest of the record or other symbols.
func (s *Service) Reconcile(ctx context.Context, symbol string, currentPrice float64, history models.PriceSeries) models.MetricRecord {
	record := models.MetricRecord{
		Symbol:       symbol,
		CurrentPrice: currentPrice,
	}

	snap, err := s.fundamentals(ctx, symbol)
	if err != nil {
		s.logger.Debug().Str("symbol", symbol).Err(err).Msg("Fundamentals unavailable")
		snap = nil
	}

	record.TrailingPE = derivePE(snapField(snap, func(f *models.FundamentalSnapshot) *float64 { return f.TrailingPE }),
		snapField(snap, func(f *models.FundamentalSnapshot) *float64 { return f.TrailingEPS }), currentPrice)
	record.ForwardPE = derivePE(snapField(snap, func(f *models.FundamentalSnapshot) *float64 { return f.ForwardPE }),
		snapField(snap, func(f *models.FundamentalSnapshot) *float64 { return f.ForwardEPS }), currentPrice)

	record.DividendYieldPct = s.dividendYieldPct(ctx, symbol, snap, currentPrice)
	record.InsiderFlow = s.insiderFlow(ctx, symbol, snap, currentPrice)

	s.applyPriceMetrics(&record, history, currentPrice)
	s.applyTarget(&record, snap, currentPrice)

	return record
}

// fundamentals fetches the snapshot through the cache (hour-scale TTL).
func (s *Service) fundamentals(ctx context.Context, symbol string) (*models.FundamentalSnapshot, error) {
	key := cache.Key("fundamentals", symbol)
	return cache.Fetch(ctx, s.cache, key, s.opts.FundamentalsTTL, func(ctx context.Context) (*models.FundamentalSnapshot, error) {
		return s.client.GetFundamentals(ctx, symbol)
	})
}

// snapField safely reads a pointer field off a possibly-nil snapshot.
func snapField(snap *models.FundamentalSnapshot, get func(*models.FundamentalSnapshot) *float64) *float64 {
	if snap == nil {
		return nil
	}
	return get(snap)
}

// derivePE resolves a P/E ratio: the snapshot field when present and
// positive, else price over EPS when EPS is present and positive, else
// unavailable. Never zero — zero is a valid-looking but wrong value.
func derivePE(direct, eps *float64, price float64) *float64 {
	if direct != nil && *direct > 0 {
		v := *direct
		return &v
	}
	if eps != nil && *eps > 0 && price > 0 {
		v := price / *eps
		return &v
	}
	return nil
}

// dividendYieldPct resolves the dividend yield as a percentage. The raw
// snapshot field is sanity-corrected: values at or above the threshold are
// assumed to be miscoded percentages and divided by 100. When the field is
// absent, the yield is derived from the last dividend over the current
// price; with no dividend history the yield is an explicit zero, which is a
// legitimate yield, not an unavailable value.
func (s *Service) dividendYieldPct(ctx context.Context, symbol string, snap *models.FundamentalSnapshot, currentPrice float64) float64 {
	if y := snapField(snap, func(f *models.FundamentalSnapshot) *float64 { return f.DividendYield }); y != nil {
		yield := *y
		if yield >= s.opts.YieldSanityThreshold {
			yield /= 100
		}
		return yield * 100
	}

	key := cache.Key("dividends", symbol)
	divs, err := cache.Fetch(ctx, s.cache, key, s.opts.DividendsTTL, func(ctx context.Context) ([]models.DividendPayment, error) {
		return s.client.GetDividendHistory(ctx, symbol)
	})
	if err != nil || len(divs) == 0 || currentPrice <= 0 {
		return 0
	}
	last := divs[len(divs)-1]
	return last.Amount / currentPrice * 100
}

// insiderFlow resolves net insider share flow. The provider's true feed is
// preferred; when it is empty, unavailable, or errors, the market-cap
// heuristic takes over and the result is flagged as an estimate so
// downstream consumers never present it as feed data.
func (s *Service) insiderFlow(ctx context.Context, symbol string, snap *models.FundamentalSnapshot, currentPrice float64) *models.InsiderFlow {
	key := cache.Key("insiders", symbol)
	txs, err := cache.Fetch(ctx, s.cache, key, s.opts.InsiderTTL, func(ctx context.Context) ([]models.InsiderTransaction, error) {
		return s.client.GetInsiderTransactions(ctx, symbol)
	})
	if err == nil && len(txs) > 0 {
		return &models.InsiderFlow{NetShares: netInsiderShares(txs), Estimated: false}
	}

	mcap := snapField(snap, func(f *models.FundamentalSnapshot) *float64 { return f.MarketCap })
	if mcap == nil || *mcap <= 0 || currentPrice <= 0 {
		return nil
	}
	return &models.InsiderFlow{
		NetShares: *mcap * s.opts.InsiderFlowFactor / currentPrice,
		Estimated: true,
	}
}

// netInsiderShares sums share volumes: purchase/acquisition transaction text
// counts positive, sale/disposition counts negative. Case-insensitive
// substring match; unclassifiable rows are ignored.
func netInsiderShares(txs []models.InsiderTransaction) float64 {
	var net float64
	for _, tx := range txs {
		text := strings.ToLower(tx.Text)
		switch {
		case strings.Contains(text, "purchase") || strings.Contains(text, "acquisition") || strings.Contains(text, "buy"):
			net += tx.Shares
		case strings.Contains(text, "sale") || strings.Contains(text, "sold") || strings.Contains(text, "disposition"):
			net -= tx.Shares
		}
	}
	return net
}

// applyPriceMetrics fills the 52-period high, gap-to-high, and annualized
// volatility from the price series tail. No fallback needed: price history
// is the primary data source and was already fetched.
func (s *Service) applyPriceMetrics(record *models.MetricRecord, history models.PriceSeries, currentPrice float64) {
	tail := history.Tail(tailPeriods)
	if len(tail) == 0 {
		return
	}

	high := tail[0].Close
	for _, p := range tail[1:] {
		if p.Close > high {
			high = p.Close
		}
	}
	if high > 0 {
		h := high
		record.High52 = &h
		gap := (high - currentPrice) / high * 100
		record.GapToHighPct = &gap
	}

	if vol, ok := annualizedVolatility(tail); ok {
		record.VolatilityPct = &vol
	}
}

// annualizedVolatility computes the standard deviation of daily simple
// returns, annualized, as a percentage.
func annualizedVolatility(points []models.PricePoint) (float64, bool) {
	if len(points) < 3 {
		return 0, false
	}

	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, points[i].Close/prev-1)
	}
	if len(returns) < 2 {
		return 0, false
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear) * 100, true
}

// applyTarget fills the analyst mean target and its upside when present.
func (s *Service) applyTarget(record *models.MetricRecord, snap *models.FundamentalSnapshot, currentPrice float64) {
	target := snapField(snap, func(f *models.FundamentalSnapshot) *float64 { return f.TargetMeanPrice })
	if target == nil || *target <= 0 || currentPrice <= 0 {
		return
	}
	t := *target
	record.TargetPrice = &t
	upside := (t - currentPrice) / currentPrice * 100
	record.TargetUpsidePct = &upside
}

// Ensure Service implements MetricReconciler
var _ interfaces.MetricReconciler = (*Service)(nil)
