package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perflens/perflens/internal/models"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(
		WithBaseURL(server.URL),
		WithRateLimit(1000),
		WithTimeout(5*time.Second),
	)
	return client, server
}

func TestSearchSymbol(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/finance/search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		fmt.Fprint(w, `{
			"quotes": [
				{"symbol": "AAPL", "exchange": "NMS", "longname": "Apple Inc."},
				{"symbol": "APLE", "exchange": "NYQ", "shortname": "Apple Hospitality REIT"},
				{"symbol": "", "exchange": "NMS"}
			]
		}`)
	})
	defer server.Close()

	results, err := client.SearchSymbol(context.Background(), "apple")
	require.NoError(t, err)

	require.Len(t, results, 2, "blank symbols are dropped")
	assert.Equal(t, "AAPL", results[0].Symbol)
	assert.Equal(t, "Apple Inc.", results[0].Name)
	assert.Equal(t, "Apple Hospitality REIT", results[1].Name, "shortname fills a missing longname")
}

func TestGetNews(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"news": [
				{"title": "Apple ships", "publisher": "Reuters", "link": "https://example.com/1", "providerPublishTime": 1748822400},
				{"title": "", "publisher": "Empty"},
				{"title": "Apple dips", "publisher": "Bloomberg", "link": "https://example.com/2", "providerPublishTime": 1748908800}
			]
		}`)
	})
	defer server.Close()

	items, err := client.GetNews(context.Background(), "AAPL", 3)
	require.NoError(t, err)

	require.Len(t, items, 2, "untitled rows are dropped")
	assert.Equal(t, "Apple ships", items[0].Title)
	assert.Equal(t, "Reuters", items[0].Publisher)
	assert.Equal(t, time.Unix(1748822400, 0).UTC(), items[0].PublishedAt)
}

func TestGetHistory_BatchedSpark(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/spark", r.URL.Path)
		assert.Equal(t, "AAPL,MSFT", r.URL.Query().Get("symbols"))
		assert.Equal(t, "max", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))

		fmt.Fprint(w, `{
			"spark": {
				"result": [
					{
						"symbol": "AAPL",
						"response": [{
							"timestamp": [1748822400, 1748908800, 1748995200],
							"indicators": {
								"quote": [{"close": [186.1, null, 188.3], "volume": [1000, null, 1200]}],
								"adjclose": [{"adjclose": [185.0, null, 187.2]}]
							}
						}]
					},
					{
						"symbol": "MSFT",
						"response": [{
							"timestamp": [1748822400],
							"indicators": {
								"quote": [{"close": [420.5], "volume": [900]}]
							}
						}]
					}
				],
				"error": null
			}
		}`)
	})
	defer server.Close()

	series, err := client.GetHistory(context.Background(), []string{"AAPL", "MSFT"}, models.HorizonMax)
	require.NoError(t, err)
	require.Len(t, series, 2)

	aapl := series["AAPL"]
	require.Len(t, aapl.Points, 2, "null bars are skipped")
	assert.InDelta(t, 185.0, aapl.Points[0].Close, 1e-9, "adjusted close is preferred")
	assert.InDelta(t, 187.2, aapl.Points[1].Close, 1e-9)
	assert.Equal(t, int64(1000), aapl.Points[0].Volume)
	assert.True(t, aapl.Points[0].Date.Before(aapl.Points[1].Date))

	msft := series["MSFT"]
	require.Len(t, msft.Points, 1)
	assert.InDelta(t, 420.5, msft.Points[0].Close, 1e-9, "raw close when no adjclose block")
}

func TestGetHistory_EmptySymbols(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty symbol set")
	})
	defer server.Close()

	series, err := client.GetHistory(context.Background(), nil, models.HorizonMax)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestGetHistory_ProviderError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"spark": {"result": [], "error": {"code": "Bad Request", "description": "no data"}}}`)
	})
	defer server.Close()

	_, err := client.GetHistory(context.Background(), []string{"AAPL"}, models.HorizonMax)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "no data", apiErr.Message)
}

func TestGetFundamentals(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v10/finance/quoteSummary/AAPL", r.URL.Path)
		assert.Equal(t, "summaryDetail,defaultKeyStatistics,financialData", r.URL.Query().Get("modules"))

		fmt.Fprint(w, `{
			"quoteSummary": {
				"result": [{
					"summaryDetail": {
						"trailingPE": {"raw": 28.5, "fmt": "28.50"},
						"forwardPE": {},
						"dividendYield": {"raw": 0.0052},
						"marketCap": {"raw": 2800000000000}
					},
					"defaultKeyStatistics": {
						"trailingEps": {"raw": 6.42}
					},
					"financialData": {
						"targetMeanPrice": {"raw": 210.0}
					}
				}],
				"error": null
			}
		}`)
	})
	defer server.Close()

	snap, err := client.GetFundamentals(context.Background(), "AAPL")
	require.NoError(t, err)

	require.NotNil(t, snap.TrailingPE)
	assert.InDelta(t, 28.5, *snap.TrailingPE, 1e-9)
	assert.Nil(t, snap.ForwardPE, "empty raw wrapper stays nil")
	require.NotNil(t, snap.DividendYield)
	assert.InDelta(t, 0.0052, *snap.DividendYield, 1e-9)
	require.NotNil(t, snap.TrailingEPS)
	assert.InDelta(t, 6.42, *snap.TrailingEPS, 1e-9)
	require.NotNil(t, snap.TargetMeanPrice)
	assert.InDelta(t, 210.0, *snap.TargetMeanPrice, 1e-9)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestGetFundamentals_EmptyResult(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteSummary": {"result": [], "error": null}}`)
	})
	defer server.Close()

	_, err := client.GetFundamentals(context.Background(), "GHOST")
	require.Error(t, err)
}

func TestGetInsiderTransactions(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "insiderTransactions", r.URL.Query().Get("modules"))

		fmt.Fprint(w, `{
			"quoteSummary": {
				"result": [{
					"insiderTransactions": {
						"transactions": [
							{"shares": {"raw": 1000}, "startDate": {"raw": 1748822400}, "transactionText": "Sale at price 182.11 per share."},
							{"shares": {}, "transactionText": "row without shares"},
							{"shares": {"raw": 250}, "transactionText": "Purchase at price 178.00 per share."}
						]
					}
				}],
				"error": null
			}
		}`)
	})
	defer server.Close()

	txs, err := client.GetInsiderTransactions(context.Background(), "AAPL")
	require.NoError(t, err)

	require.Len(t, txs, 2, "rows without a share count are dropped")
	assert.InDelta(t, 1000.0, txs[0].Shares, 1e-9)
	assert.Contains(t, txs[0].Text, "Sale")
	assert.Equal(t, time.Unix(1748822400, 0).UTC(), txs[0].Date)
}

func TestGetDividendHistory(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "div", r.URL.Query().Get("events"))

		fmt.Fprint(w, `{
			"chart": {
				"result": [{
					"events": {
						"dividends": {
							"1748822400": {"amount": 0.25, "date": 1748822400},
							"1740960000": {"amount": 0.24, "date": 1740960000},
							"1731283200": {"amount": 0, "date": 1731283200}
						}
					}
				}],
				"error": null
			}
		}`)
	})
	defer server.Close()

	divs, err := client.GetDividendHistory(context.Background(), "AAPL")
	require.NoError(t, err)

	require.Len(t, divs, 2, "zero-amount events are dropped")
	assert.InDelta(t, 0.24, divs[0].Amount, 1e-9, "payments are date-ascending")
	assert.InDelta(t, 0.25, divs[1].Amount, 1e-9)
}

func TestThrottledStatusUnwraps(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, 999} {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			fmt.Fprint(w, "Too Many Requests")
		})

		_, err := client.SearchSymbol(context.Background(), "apple")
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrThrottled, "status %d", status)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, status, apiErr.StatusCode)

		server.Close()
	}
}

func TestServerErrorIsNotThrottled(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	_, err := client.SearchSymbol(context.Background(), "apple")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrThrottled)
}

func TestHorizonRange(t *testing.T) {
	assert.Equal(t, "1mo", horizonRange(models.Horizon1M))
	assert.Equal(t, "1y", horizonRange(models.Horizon1Y))
	assert.Equal(t, "max", horizonRange(models.HorizonMax))
	assert.Equal(t, "max", horizonRange(models.Horizon("bogus")))
}
