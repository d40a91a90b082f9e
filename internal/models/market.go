// Package models defines data structures for PerfLens
package models

import "time"

// SearchResult is one candidate returned by the provider's quote search.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Name     string `json:"name"`
}

// PricePoint is a single trading day's adjusted close observation.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume,omitempty"`
}

// PriceSeries holds date-ascending price observations for one symbol.
// Gaps (no trade that day) are allowed and are forward-filled before
// cross-asset alignment.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// Last returns the most recent observation, or false when the series is empty.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Tail returns the trailing n observations (fewer when the series is shorter).
func (s PriceSeries) Tail(n int) []PricePoint {
	if len(s.Points) <= n {
		return s.Points
	}
	return s.Points[len(s.Points)-n:]
}

// FundamentalSnapshot is a sparse field mapping for one symbol at fetch time.
// A nil field means the provider did not supply it — absence is a first-class
// state, not an error, and is never conflated with zero.
type FundamentalSnapshot struct {
	Symbol          string     `json:"symbol"`
	TrailingPE      *float64   `json:"trailing_pe,omitempty"`
	ForwardPE       *float64   `json:"forward_pe,omitempty"`
	TrailingEPS     *float64   `json:"trailing_eps,omitempty"`
	ForwardEPS      *float64   `json:"forward_eps,omitempty"`
	DividendRate    *float64   `json:"dividend_rate,omitempty"`
	DividendYield   *float64   `json:"dividend_yield,omitempty"`
	MarketCap       *float64   `json:"market_cap,omitempty"`
	TargetMeanPrice *float64   `json:"target_mean_price,omitempty"`
	FetchedAt       time.Time  `json:"fetched_at"`
}

// DividendPayment is one historical dividend distribution.
type DividendPayment struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// InsiderTransaction is one reported insider trade. Text is the provider's
// free-form transaction description ("Sale at price 182.11", "Purchase ...").
type InsiderTransaction struct {
	Date   time.Time `json:"date"`
	Shares float64   `json:"shares"`
	Text   string    `json:"text"`
}

// NewsItem is a headline attached to a symbol in the report.
type NewsItem struct {
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}
