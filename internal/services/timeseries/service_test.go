package timeseries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perflens/perflens/internal/cache"
	"github.com/perflens/perflens/internal/common"
	"github.com/perflens/perflens/internal/models"
)

// mockClient implements interfaces.MarketDataClient with injectable behavior.
type mockClient struct {
	historyFn    func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error)
	HistoryCalls int
}

func (m *mockClient) GetHistory(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
	m.HistoryCalls++
	if m.historyFn != nil {
		return m.historyFn(ctx, symbols, horizon)
	}
	return nil, errors.New("no history configured")
}

func (m *mockClient) SearchSymbol(ctx context.Context, query string) ([]models.SearchResult, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetFundamentals(ctx context.Context, symbol string) (*models.FundamentalSnapshot, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetDividendHistory(ctx context.Context, symbol string) ([]models.DividendPayment, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetInsiderTransactions(ctx context.Context, symbol string) ([]models.InsiderTransaction, error) {
	return nil, errors.New("not implemented")
}

func (m *mockClient) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	return nil, errors.New("not implemented")
}

func newTestService(client *mockClient) *Service {
	logger := common.NewSilentLogger()
	return NewService(client, cache.New(logger), time.Minute, logger)
}

func day(offset int) time.Time {
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func series(symbol string, closes map[int]float64) models.PriceSeries {
	offsets := make([]int, 0, len(closes))
	for o := range closes {
		offsets = append(offsets, o)
	}
	// map iteration order is random; points must be ascending by date
	for i := 0; i < len(offsets); i++ {
		for j := i + 1; j < len(offsets); j++ {
			if offsets[j] < offsets[i] {
				offsets[i], offsets[j] = offsets[j], offsets[i]
			}
		}
	}
	points := make([]models.PricePoint, 0, len(offsets))
	for _, o := range offsets {
		points = append(points, models.PricePoint{Date: day(o), Close: closes[o]})
	}
	return models.PriceSeries{Symbol: symbol, Points: points}
}

func histories(all ...models.PriceSeries) map[string]models.PriceSeries {
	out := make(map[string]models.PriceSeries, len(all))
	for _, s := range all {
		out[s.Symbol] = s
	}
	return out
}

func TestAlign_NormalizesToHundred(t *testing.T) {
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			return histories(
				series("AAPL", map[int]float64{0: 50, 1: 55, 2: 60}),
				series("MSFT", map[int]float64{0: 200, 1: 210, 2: 220}),
			), nil
		},
	}
	svc := newTestService(client)

	result := svc.Align(context.Background(), []string{"AAPL"}, "MSFT", models.HorizonMax)

	require.Contains(t, result.Series, "AAPL")
	require.Contains(t, result.Series, "MSFT")
	assert.Empty(t, result.Degraded)

	aapl := result.Series["AAPL"].Points
	require.Len(t, aapl, 3)
	assert.InDelta(t, 100.0, aapl[0].Value, 1e-9)
	assert.InDelta(t, 110.0, aapl[1].Value, 1e-9)
	assert.InDelta(t, 120.0, aapl[2].Value, 1e-9)

	msft := result.Series["MSFT"].Points
	assert.InDelta(t, 100.0, msft[0].Value, 1e-9)
	assert.InDelta(t, 110.0, msft[2].Value, 1e-9)

	assert.InDelta(t, 60.0, result.Latest["AAPL"], 1e-9)
	assert.InDelta(t, 220.0, result.Latest["MSFT"], 1e-9)
}

func TestAlign_WindowSlicing(t *testing.T) {
	// 400 daily bars; a one-month horizon keeps only the last 30 days and
	// re-bases the series at the window's first value.
	closes := make(map[int]float64, 400)
	for i := 0; i < 400; i++ {
		closes[i] = 100 + float64(i)
	}
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			assert.Equal(t, models.HorizonMax, horizon, "fetch is always maximum horizon")
			return histories(series("AAPL", closes)), nil
		},
	}
	svc := newTestService(client)

	result := svc.Align(context.Background(), []string{"AAPL"}, "", models.Horizon1M)

	require.Contains(t, result.Series, "AAPL")
	points := result.Series["AAPL"].Points
	require.Len(t, points, 31)
	assert.Equal(t, day(369), points[0].Date, "window start is latest date minus horizon days")
	assert.InDelta(t, 100.0, points[0].Value, 1e-9)
}

func TestAlign_ForwardFillsGaps(t *testing.T) {
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			return histories(
				series("AAPL", map[int]float64{0: 100, 1: 110, 2: 120}),
				series("BHP", map[int]float64{0: 10, 2: 14}), // no bar on day 1
			), nil
		},
	}
	svc := newTestService(client)

	result := svc.Align(context.Background(), []string{"AAPL", "BHP"}, "", models.HorizonMax)

	bhp := result.Series["BHP"].Points
	require.Len(t, bhp, 3, "gap days are filled from the union calendar")
	assert.Equal(t, day(1), bhp[1].Date)
	assert.InDelta(t, 100.0, bhp[1].Value, 1e-9, "gap carries the last known close")
	assert.InDelta(t, 140.0, bhp[2].Value, 1e-9)
}

func TestAlign_LateStarterSkipsLeadingDates(t *testing.T) {
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			return histories(
				series("AAPL", map[int]float64{0: 100, 1: 110, 2: 120}),
				series("IPO", map[int]float64{2: 30}), // lists on day 2
			), nil
		},
	}
	svc := newTestService(client)

	result := svc.Align(context.Background(), []string{"AAPL", "IPO"}, "", models.HorizonMax)

	ipo := result.Series["IPO"].Points
	require.Len(t, ipo, 1, "no back-fill before a symbol's first observation")
	assert.Equal(t, day(2), ipo[0].Date)
	assert.InDelta(t, 100.0, ipo[0].Value, 1e-9)
}

func TestAlign_ZeroFirstValueDegrades(t *testing.T) {
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			return histories(
				series("AAPL", map[int]float64{0: 100, 1: 110}),
				series("BAD", map[int]float64{0: 0, 1: 5}),
			), nil
		},
	}
	svc := newTestService(client)

	result := svc.Align(context.Background(), []string{"AAPL", "BAD"}, "", models.HorizonMax)

	assert.Contains(t, result.Series, "AAPL")
	assert.NotContains(t, result.Series, "BAD")
	assert.Equal(t, "zero first value in window", result.Degraded["BAD"])
}

func TestAlign_EmptySeriesDegrades(t *testing.T) {
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			return histories(
				series("AAPL", map[int]float64{0: 100, 1: 110}),
				models.PriceSeries{Symbol: "GHOST"},
			), nil
		},
	}
	svc := newTestService(client)

	result := svc.Align(context.Background(), []string{"AAPL", "GHOST", "MISSING"}, "", models.HorizonMax)

	assert.Contains(t, result.Series, "AAPL")
	assert.Equal(t, "no priced observations", result.Degraded["GHOST"])
	assert.Equal(t, "no priced observations", result.Degraded["MISSING"])
}

func TestAlign_StaleSymbolOutsideWindowDegrades(t *testing.T) {
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			closes := make(map[int]float64, 200)
			for i := 200; i < 400; i++ {
				closes[i] = float64(i)
			}
			return histories(
				series("AAPL", closes),
				series("DELISTED", map[int]float64{0: 10, 1: 11}), // last bar long before the window
			), nil
		},
	}
	svc := newTestService(client)

	result := svc.Align(context.Background(), []string{"AAPL", "DELISTED"}, "", models.Horizon1M)

	assert.Contains(t, result.Series, "AAPL")
	assert.Equal(t, "no priced observations in window", result.Degraded["DELISTED"])
}

func TestAlign_TotalFetchFailureDegradesAll(t *testing.T) {
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			return nil, models.ErrThrottled
		},
	}
	svc := newTestService(client)

	result := svc.Align(context.Background(), []string{"AAPL", "MSFT"}, "^GSPC", models.Horizon1Y)

	assert.Empty(t, result.Series)
	for _, sym := range []string{"AAPL", "MSFT", "^GSPC"} {
		assert.Equal(t, "price history unavailable", result.Degraded[sym])
	}
}

func TestAlign_BatchedFetchIsCached(t *testing.T) {
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			return histories(series("AAPL", map[int]float64{0: 100, 1: 110})), nil
		},
	}
	svc := newTestService(client)

	// Different horizons over the same symbol set reuse one max-horizon batch.
	svc.Align(context.Background(), []string{"AAPL"}, "", models.Horizon1Y)
	svc.Align(context.Background(), []string{"AAPL"}, "", models.Horizon1M)
	svc.Align(context.Background(), []string{"AAPL"}, "", models.HorizonMax)

	assert.Equal(t, 1, client.HistoryCalls)
}

func TestAlign_DeduplicatesBenchmark(t *testing.T) {
	client := &mockClient{
		historyFn: func(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
			assert.Equal(t, []string{"AAPL"}, symbols)
			return histories(series("AAPL", map[int]float64{0: 100, 1: 110})), nil
		},
	}
	svc := newTestService(client)

	result := svc.Align(context.Background(), []string{"AAPL"}, "AAPL", models.HorizonMax)

	assert.Len(t, result.Series, 1)
	assert.Equal(t, 1, client.HistoryCalls)
}
