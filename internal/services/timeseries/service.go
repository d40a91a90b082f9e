// Package timeseries aligns multi-asset price history onto a common
// calendar and normalizes it for cross-asset comparison
package timeseries

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/perflens/perflens/internal/cache"
	"github.com/perflens/perflens/internal/common"
	"github.com/perflens/perflens/internal/interfaces"
	"github.com/perflens/perflens/internal/models"
)

// Service implements SeriesAligner over the cached market-data gateway.
type Service struct {
	client interfaces.MarketDataClient
	cache  *cache.Cache
	ttl    time.Duration
	logger *common.Logger
}

// NewService creates a new aligner. ttl is minute-scale: price batches churn
// intraday but re-fetching on every request risks the provider rate limit.
func NewService(client interfaces.MarketDataClient, c *cache.Cache, ttl time.Duration, logger *common.Logger) *Service {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		client: client,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// Align fetches history for symbols plus benchmark in one batched
// maximum-horizon request, slices to the requested window by date
// arithmetic, forward-fills gaps on the union calendar, and normalizes each
// remaining series to 100 at its first in-window value. Symbols that cannot
// be served are reported in Degraded, never as a failure of the whole call.
func (s *Service) Align(ctx context.Context, symbols []string, benchmark string, horizon models.Horizon) *models.AlignResult {
	result := &models.AlignResult{
		Series:   make(map[string]models.NormalizedSeries),
		Latest:   make(map[string]float64),
		History:  make(map[string]models.PriceSeries),
		Degraded: make(map[string]string),
	}

	all := dedupe(append(append([]string{}, symbols...), benchmark))
	if len(all) == 0 {
		return result
	}

	histories, err := s.fetchHistories(ctx, all)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Batched history fetch failed")
		for _, sym := range all {
			result.Degraded[sym] = "price history unavailable"
		}
		return result
	}

	// Window end is the latest date across all fetched series; the start is
	// end minus the horizon in days. Max horizon means no slicing.
	end := latestDate(histories)
	var start time.Time
	if days := horizon.Days(); days > 0 {
		start = end.AddDate(0, 0, -days)
	}

	sliced := make(map[string][]models.PricePoint, len(all))
	for _, sym := range all {
		series, ok := histories[sym]
		if !ok || len(series.Points) == 0 {
			result.Degraded[sym] = "no priced observations"
			continue
		}
		window := slice(series.Points, start)
		if len(window) == 0 {
			result.Degraded[sym] = "no priced observations in window"
			continue
		}
		if window[0].Close == 0 {
			// Division by zero must not propagate silently.
			result.Degraded[sym] = "zero first value in window"
			continue
		}
		sliced[sym] = window
		result.History[sym] = series
	}

	calendar := unionCalendar(sliced)

	for sym, window := range sliced {
		filled := forwardFill(window, calendar)
		base := filled[0].Close

		points := make([]models.SeriesPoint, len(filled))
		for i, p := range filled {
			points[i] = models.SeriesPoint{Date: p.Date, Value: p.Close / base * 100}
		}
		result.Series[sym] = models.NormalizedSeries{Symbol: sym, Points: points}
		result.Latest[sym] = filled[len(filled)-1].Close
	}

	return result
}

// fetchHistories issues the batched maximum-horizon request through the
// cache. The key sorts the symbol set so request order does not fragment
// the cache.
func (s *Service) fetchHistories(ctx context.Context, symbols []string) (map[string]models.PriceSeries, error) {
	sorted := append([]string{}, symbols...)
	sort.Strings(sorted)
	key := cache.Key("history", strings.Join(sorted, ","), string(models.HorizonMax))

	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (map[string]models.PriceSeries, error) {
		return s.client.GetHistory(ctx, symbols, models.HorizonMax)
	})
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// latestDate returns the latest observation date across all series.
func latestDate(histories map[string]models.PriceSeries) time.Time {
	var end time.Time
	for _, series := range histories {
		if last, ok := series.Last(); ok && last.Date.After(end) {
			end = last.Date
		}
	}
	return end
}

// slice returns the points at or after start. A zero start keeps everything.
func slice(points []models.PricePoint, start time.Time) []models.PricePoint {
	if start.IsZero() {
		return points
	}
	idx := sort.Search(len(points), func(i int) bool {
		return !points[i].Date.Before(start)
	})
	return points[idx:]
}

// unionCalendar builds the sorted union of observation dates across all
// sliced windows.
func unionCalendar(sliced map[string][]models.PricePoint) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, window := range sliced {
		for _, p := range window {
			seen[p.Date] = struct{}{}
		}
	}
	calendar := make([]time.Time, 0, len(seen))
	for d := range seen {
		calendar = append(calendar, d)
	}
	sort.Slice(calendar, func(i, j int) bool { return calendar[i].Before(calendar[j]) })
	return calendar
}

// forwardFill projects a window onto the calendar, carrying the last known
// close across gaps. Calendar dates before the window's first observation
// are skipped: normalization starts at the symbol's own first value.
func forwardFill(window []models.PricePoint, calendar []time.Time) []models.PricePoint {
	filled := make([]models.PricePoint, 0, len(calendar))
	i := 0
	var last models.PricePoint
	started := false

	for _, d := range calendar {
		for i < len(window) && !window[i].Date.After(d) {
			last = window[i]
			started = true
			i++
		}
		if !started {
			continue
		}
		filled = append(filled, models.PricePoint{Date: d, Close: last.Close, Volume: last.Volume})
	}
	return filled
}

// Ensure Service implements SeriesAligner
var _ interfaces.SeriesAligner = (*Service)(nil)
