// Package interfaces defines service contracts for PerfLens
package interfaces

import (
	"context"

	"github.com/perflens/perflens/internal/models"
)

// MarketDataClient provides access to the external market-data provider.
// The provider is treated as an unreliable, rate-limited collaborator: every
// call may fail or return partial data, and callers degrade accordingly.
type MarketDataClient interface {
	// SearchSymbol issues a quote search for free text and returns candidate
	// symbols ordered by provider relevance.
	SearchSymbol(ctx context.Context, query string) ([]models.SearchResult, error)

	// GetHistory retrieves daily adjusted-close history for several symbols
	// in one batched request over the given horizon.
	GetHistory(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error)

	// GetFundamentals retrieves the sparse fundamentals snapshot for a symbol.
	GetFundamentals(ctx context.Context, symbol string) (*models.FundamentalSnapshot, error)

	// GetDividendHistory retrieves historical dividend payments for a symbol.
	GetDividendHistory(ctx context.Context, symbol string) ([]models.DividendPayment, error)

	// GetInsiderTransactions retrieves reported insider trades for a symbol.
	// May be unsupported or empty for a given symbol.
	GetInsiderTransactions(ctx context.Context, symbol string) ([]models.InsiderTransaction, error)

	// GetNews retrieves recent headlines for a symbol.
	GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
}
