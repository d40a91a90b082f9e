// Package yahoo provides a client for the Yahoo Finance public API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/perflens/perflens/internal/common"
	"github.com/perflens/perflens/internal/interfaces"
	"github.com/perflens/perflens/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
)

// Client implements the MarketDataClient interface against Yahoo Finance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap exposes the throttled sentinel for rate-limit responses. Yahoo
// answers 429 on the documented limit and 999 when it blocks a client.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == 999 {
		return models.ErrThrottled
	}
	return nil
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug().Str("path", path).Msg("Yahoo API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// rawValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper. Fields
// arrive as empty objects when the provider has no value.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

func (v *rawValue) ptr() *float64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	f := *v.Raw
	return &f
}

// searchResponse is the /v1/finance/search payload.
type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		Exchange  string `json:"exchange"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
	} `json:"quotes"`
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

func (c *Client) search(ctx context.Context, query string, quoteCount, newsCount int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", strconv.Itoa(quoteCount))
	params.Set("newsCount", strconv.Itoa(newsCount))

	var resp searchResponse
	if err := c.get(ctx, "/v1/finance/search", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchSymbol issues a quote search and returns candidates in provider
// relevance order. The first candidate is the resolver's tie-break.
func (c *Client) SearchSymbol(ctx context.Context, query string) ([]models.SearchResult, error) {
	resp, err := c.search(ctx, query, 5, 0)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		results = append(results, models.SearchResult{
			Symbol:   q.Symbol,
			Exchange: q.Exchange,
			Name:     name,
		})
	}
	return results, nil
}

// GetNews retrieves recent headlines for a symbol via the search endpoint.
func (c *Client) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 3
	}
	resp, err := c.search(ctx, symbol, 0, limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, limit)
	for _, n := range resp.News {
		if n.Title == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:       n.Title,
			Publisher:   n.Publisher,
			URL:         n.Link,
			PublishedAt: time.Unix(n.ProviderPublishTime, 0).UTC(),
		})
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

// sparkResponse is the /v8/finance/spark payload: a chart-shaped result per
// requested symbol.
type sparkResponse struct {
	Spark struct {
		Result []struct {
			Symbol   string `json:"symbol"`
			Response []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close  []*float64 `json:"close"`
						Volume []*int64   `json:"volume"`
					} `json:"quote"`
					AdjClose []struct {
						AdjClose []*float64 `json:"adjclose"`
					} `json:"adjclose"`
				} `json:"indicators"`
			} `json:"response"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"spark"`
}

// GetHistory retrieves daily adjusted-close history for all symbols in one
// batched spark request. Symbols the provider returned nothing for are simply
// absent from the result map.
func (c *Client) GetHistory(ctx context.Context, symbols []string, horizon models.Horizon) (map[string]models.PriceSeries, error) {
	if len(symbols) == 0 {
		return map[string]models.PriceSeries{}, nil
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("range", horizonRange(horizon))
	params.Set("interval", "1d")

	var resp sparkResponse
	if err := c.get(ctx, "/v8/finance/spark", params, &resp); err != nil {
		return nil, err
	}
	if resp.Spark.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.Spark.Error.Description,
			Endpoint:   "/v8/finance/spark",
		}
	}

	series := make(map[string]models.PriceSeries, len(resp.Spark.Result))
	for _, r := range resp.Spark.Result {
		if len(r.Response) == 0 {
			continue
		}
		chart := r.Response[0]
		if len(chart.Timestamp) == 0 {
			continue
		}

		var closes []*float64
		if len(chart.Indicators.AdjClose) > 0 && len(chart.Indicators.AdjClose[0].AdjClose) == len(chart.Timestamp) {
			closes = chart.Indicators.AdjClose[0].AdjClose
		} else if len(chart.Indicators.Quote) > 0 {
			closes = chart.Indicators.Quote[0].Close
		}
		if len(closes) == 0 {
			continue
		}

		var volumes []*int64
		if len(chart.Indicators.Quote) > 0 {
			volumes = chart.Indicators.Quote[0].Volume
		}

		points := make([]models.PricePoint, 0, len(chart.Timestamp))
		for i, ts := range chart.Timestamp {
			if i >= len(closes) || closes[i] == nil {
				continue // null bar: holiday or unpriced day
			}
			p := models.PricePoint{
				Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
				Close: *closes[i],
			}
			if i < len(volumes) && volumes[i] != nil {
				p.Volume = *volumes[i]
			}
			points = append(points, p)
		}
		if len(points) == 0 {
			continue
		}

		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
		series[r.Symbol] = models.PriceSeries{Symbol: r.Symbol, Points: points}
	}

	return series, nil
}

// horizonRange maps a horizon to Yahoo's range keyword for the fetch. The
// aligner always fetches the maximum horizon and slices by date arithmetic;
// the mapping exists for callers that want a narrower pull.
func horizonRange(h models.Horizon) string {
	switch h {
	case models.Horizon1M, models.Horizon3M, models.Horizon6M,
		models.Horizon1Y, models.Horizon2Y, models.Horizon5Y:
		return string(h)
	default:
		return "max"
	}
}

// quoteSummaryResponse is the /v10/finance/quoteSummary payload for the
// modules this client requests.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail *struct {
				TrailingPE    *rawValue `json:"trailingPE"`
				ForwardPE     *rawValue `json:"forwardPE"`
				DividendRate  *rawValue `json:"dividendRate"`
				DividendYield *rawValue `json:"dividendYield"`
				MarketCap     *rawValue `json:"marketCap"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics *struct {
				TrailingEps *rawValue `json:"trailingEps"`
				ForwardEps  *rawValue `json:"forwardEps"`
			} `json:"defaultKeyStatistics"`
			FinancialData *struct {
				TargetMeanPrice *rawValue `json:"targetMeanPrice"`
			} `json:"financialData"`
			InsiderTransactions *struct {
				Transactions []struct {
					Shares          *rawValue `json:"shares"`
					StartDate       *rawValue `json:"startDate"`
					TransactionText string    `json:"transactionText"`
				} `json:"transactions"`
			} `json:"insiderTransactions"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (c *Client) quoteSummary(ctx context.Context, symbol, modules string) (*quoteSummaryResponse, error) {
	params := url.Values{}
	params.Set("modules", modules)

	path := fmt.Sprintf("/v10/finance/quoteSummary/%s", url.PathEscape(symbol))

	var resp quoteSummaryResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.QuoteSummary.Error.Description,
			Endpoint:   path,
		}
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    "empty quoteSummary result",
			Endpoint:   path,
		}
	}
	return &resp, nil
}

// GetFundamentals retrieves the sparse fundamentals snapshot for a symbol.
// Absent provider fields stay nil on the snapshot.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*models.FundamentalSnapshot, error) {
	resp, err := c.quoteSummary(ctx, symbol, "summaryDetail,defaultKeyStatistics,financialData")
	if err != nil {
		return nil, err
	}

	r := resp.QuoteSummary.Result[0]
	snap := &models.FundamentalSnapshot{
		Symbol:    symbol,
		FetchedAt: time.Now().UTC(),
	}
	if sd := r.SummaryDetail; sd != nil {
		snap.TrailingPE = sd.TrailingPE.ptr()
		snap.ForwardPE = sd.ForwardPE.ptr()
		snap.DividendRate = sd.DividendRate.ptr()
		snap.DividendYield = sd.DividendYield.ptr()
		snap.MarketCap = sd.MarketCap.ptr()
	}
	if ks := r.DefaultKeyStatistics; ks != nil {
		snap.TrailingEPS = ks.TrailingEps.ptr()
		snap.ForwardEPS = ks.ForwardEps.ptr()
	}
	if fd := r.FinancialData; fd != nil {
		snap.TargetMeanPrice = fd.TargetMeanPrice.ptr()
	}

	return snap, nil
}

// GetInsiderTransactions retrieves reported insider trades. An empty slice is
// a valid answer: many symbols have no feed coverage.
func (c *Client) GetInsiderTransactions(ctx context.Context, symbol string) ([]models.InsiderTransaction, error) {
	resp, err := c.quoteSummary(ctx, symbol, "insiderTransactions")
	if err != nil {
		return nil, err
	}

	r := resp.QuoteSummary.Result[0]
	if r.InsiderTransactions == nil {
		return nil, nil
	}

	txs := make([]models.InsiderTransaction, 0, len(r.InsiderTransactions.Transactions))
	for _, t := range r.InsiderTransactions.Transactions {
		shares := t.Shares.ptr()
		if shares == nil {
			continue
		}
		tx := models.InsiderTransaction{
			Shares: *shares,
			Text:   t.TransactionText,
		}
		if d := t.StartDate.ptr(); d != nil {
			tx.Date = time.Unix(int64(*d), 0).UTC()
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// chartEventsResponse is the /v8/finance/chart payload trimmed to dividend
// events.
type chartEventsResponse struct {
	Chart struct {
		Result []struct {
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDividendHistory retrieves the trailing year of dividend payments.
func (c *Client) GetDividendHistory(ctx context.Context, symbol string) ([]models.DividendPayment, error) {
	params := url.Values{}
	params.Set("range", "1y")
	params.Set("interval", "1d")
	params.Set("events", "div")

	path := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(symbol))

	var resp chartEventsResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.Chart.Error.Description,
			Endpoint:   path,
		}
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	divs := make([]models.DividendPayment, 0, len(resp.Chart.Result[0].Events.Dividends))
	for _, d := range resp.Chart.Result[0].Events.Dividends {
		if d.Amount <= 0 {
			continue
		}
		divs = append(divs, models.DividendPayment{
			Date:   time.Unix(d.Date, 0).UTC(),
			Amount: d.Amount,
		})
	}
	sort.Slice(divs, func(i, j int) bool { return divs[i].Date.Before(divs[j].Date) })
	return divs, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
