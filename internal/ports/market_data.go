package ports

import (
	"context"
	"time"
)

// MarketDataProvider is the upstream market-data source. Implementations
// classify failures with market.Error kinds.
type MarketDataProvider interface {
	Chart(ctx context.Context, query ChartQuery) (*Chart, error)
	QuoteSummary(ctx context.Context, symbol string, modules ...string) (QuoteSummary, error)
	// Options returns the chain for expiration, or the nearest expiration
	// when expiration is zero.
	Options(ctx context.Context, symbol string, expiration time.Time) (*OptionChain, error)
	News(ctx context.Context, symbol string, count int) ([]NewsItem, error)
}

// ChartQuery selects either a named Range or an explicit [Start, End) window.
type ChartQuery struct {
	Symbol   string
	Range    string
	Interval string
	Start    time.Time
	End      time.Time
	Events   bool
}

type Bar struct {
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose *float64
	Volume   int64
}

type Dividend struct {
	Time   time.Time
	Amount float64
}

type Split struct {
	Time        time.Time
	Numerator   float64
	Denominator float64
	Ratio       string
}

type Chart struct {
	Symbol             string
	Currency           string
	ExchangeTimezone   string
	RegularMarketPrice *float64
	RegularMarketTime  time.Time
	Bars               []Bar
	Dividends          []Dividend
	Splits             []Split
}

// QuoteSummary maps a module name to its flattened fields.
type QuoteSummary map[string]map[string]any

type OptionContract struct {
	ContractSymbol    string
	Strike            float64
	LastPrice         float64
	Bid               *float64
	Ask               *float64
	Volume            *int64
	OpenInterest      *int64
	ImpliedVolatility *float64
	InTheMoney        bool
	Expiration        time.Time
	Currency          string
}

type OptionChain struct {
	Symbol          string
	ExpirationDates []time.Time
	Expiration      time.Time
	Calls           []OptionContract
	Puts            []OptionContract
}

type NewsItem struct {
	Title       string
	Publisher   string
	Link        string
	PublishedAt time.Time
	Thumbnail   string
}
