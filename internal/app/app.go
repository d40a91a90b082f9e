// Package app wires configuration, clients, the cache, and services into
// the shared application core
package app

import (
	"fmt"
	"os"
	"time"

	"github.com/perflens/perflens/internal/cache"
	"github.com/perflens/perflens/internal/clients/yahoo"
	"github.com/perflens/perflens/internal/common"
	"github.com/perflens/perflens/internal/interfaces"
	"github.com/perflens/perflens/internal/services/analytics"
	"github.com/perflens/perflens/internal/services/metrics"
	"github.com/perflens/perflens/internal/services/resolver"
	"github.com/perflens/perflens/internal/services/timeseries"
)

// App holds all initialized services and clients. It is the shared core
// used by cmd/perflens-server and by tests.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Cache        *cache.Cache
	MarketClient interfaces.MarketDataClient
	Resolver     interfaces.SymbolResolver
	Aligner      interfaces.SeriesAligner
	Reconciler   interfaces.MetricReconciler
	Analytics    interfaces.AnalyticsService
	StartupTime  time.Time
}

// NewApp initializes the application core. configPath may be empty, in
// which case PERFLENS_CONFIG and the default path are tried in order.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("PERFLENS_CONFIG")
	}
	if configPath == "" {
		configPath = "config/perflens.toml"
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	resultCache := cache.New(logger)

	client := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
		yahoo.WithLogger(logger),
	)

	symbolResolver := resolver.NewService(client, resultCache, config.Cache.GetSearchTTL(), logger)
	aligner := timeseries.NewService(client, resultCache, config.Cache.GetHistoryTTL(), logger)
	reconciler := metrics.NewService(client, resultCache, metrics.Options{
		YieldSanityThreshold: config.Analytics.YieldSanityThreshold,
		InsiderFlowFactor:    config.Analytics.InsiderFlowFactor,
		FundamentalsTTL:      config.Cache.GetFundamentalsTTL(),
		DividendsTTL:         config.Cache.GetDividendsTTL(),
		InsiderTTL:           config.Cache.GetInsiderTTL(),
	}, logger)

	analyticsService := analytics.NewService(symbolResolver, aligner, reconciler, client, resultCache, analytics.Options{
		Benchmark:      config.Analytics.Benchmark,
		BenchmarkLabel: config.Analytics.BenchmarkLabel,
		MaxAssets:      config.Analytics.MaxAssets,
		NewsPerSymbol:  config.Analytics.NewsPerSymbol,
		NewsTTL:        config.Cache.GetNewsTTL(),
	}, logger)

	return &App{
		Config:       config,
		Logger:       logger,
		Cache:        resultCache,
		MarketClient: client,
		Resolver:     symbolResolver,
		Aligner:      aligner,
		Reconciler:   reconciler,
		Analytics:    analyticsService,
		StartupTime:  time.Now(),
	}, nil
}
