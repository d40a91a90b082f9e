// Package resolver turns free-text asset names into canonical ticker symbols
package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/perflens/perflens/internal/cache"
	"github.com/perflens/perflens/internal/common"
	"github.com/perflens/perflens/internal/interfaces"
	"github.com/perflens/perflens/internal/models"
)

// Service implements SymbolResolver over the cached market-data gateway.
type Service struct {
	client interfaces.MarketDataClient
	cache  *cache.Cache
	ttl    time.Duration
	logger *common.Logger
}

// NewService creates a new symbol resolver. ttl covers both positive and
// negative lookups, so repeated failing calls for the same bad input are
// absorbed within the TTL window.
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

// Resolve maps a free-text name to a canonical symbol. Inputs that already
// look like a ticker (entirely upper-case, 1-5 characters) pass through
// without a network call; everything else goes through the cached search.
// Empty input, no candidates, and any gateway failure all resolve to
// models.ErrNotFound.
func (s *Service) Resolve(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.ErrNotFound
	}

	if isTickerLike(name) {
		return name, nil
	}

	key := cache.Key("search", strings.ToLower(name))
	symbol, err := cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (string, error) {
		results, err := s.client.SearchSymbol(ctx, name)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "", models.ErrNotFound
		}
		// Tie-break: always the first search result, no secondary ranking.
		return results[0].Symbol, nil
	})
	if err != nil {
		s.logger.Debug().Str("name", name).Err(err).Msg("Symbol resolution failed")
		return "", models.ErrNotFound
	}
	return symbol, nil
}

// isTickerLike reports whether the input is already a canonical symbol:
// 1-5 characters, at least one letter, all letters upper-case, limited to
// the ticker alphabet (letters, digits, and the ^ . - index/class marks).
func isTickerLike(name string) bool {
	if len(name) < 1 || len(name) > 5 {
		return false
	}
	hasLetter := false
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
		case r == '^' || r == '.' || r == '-':
		default:
			return false
		}
	}
	return hasLetter
}

// Ensure Service implements SymbolResolver
var _ interfaces.SymbolResolver = (*Service)(nil)
