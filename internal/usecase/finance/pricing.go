package finance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/domain/market"
	"yfmcp/internal/ports"
)

type CurrentPrice struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency,omitempty"`
	MarketTime *int64  `json:"market_time"`
}

type PriceBar struct {
	Date     string   `json:"date"`
	Open     float64  `json:"open"`
	High     float64  `json:"high"`
	Low      float64  `json:"low"`
	Close    float64  `json:"close"`
	Volume   int64    `json:"volume"`
	AdjClose *float64 `json:"adj_close,omitempty"`
}

type PriceOnDate struct {
	Symbol string `json:"symbol"`
	PriceBar
}

type PriceRange struct {
	Symbol    string     `json:"symbol"`
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
	Data      []PriceBar `json:"data"`
}

type HistoricalPrices struct {
	Symbol   string     `json:"symbol"`
	Period   string     `json:"period"`
	Interval string     `json:"interval"`
	Data     []PriceBar `json:"data"`
}

type DividendRecord struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type Dividends struct {
	Symbol    string           `json:"symbol"`
	Dividends []DividendRecord `json:"dividends"`
}

type ActionRecord struct {
	Date       string   `json:"date"`
	Dividend   *float64 `json:"dividend,omitempty"`
	StockSplit *float64 `json:"stock_split,omitempty"`
}

type StockActions struct {
	Symbol  string         `json:"symbol"`
	Actions []ActionRecord `json:"actions"`
}

type SplitRecord struct {
	Date       string  `json:"date"`
	SplitRatio float64 `json:"split_ratio"`
}

type StockSplits struct {
	Symbol string        `json:"symbol"`
	Splits []SplitRecord `json:"splits"`
}

func (s *Service) CurrentPrice(ctx context.Context, in *market.SymbolInput) (*CurrentPrice, error) {
	ticker := s.ticker(in.Symbol)
	chart, err := s.provider.Chart(ctx, ports.ChartQuery{Symbol: ticker, Range: "1d", Interval: "1d"})
	if err != nil {
		return nil, err
	}

	price := chart.RegularMarketPrice
	if price == nil && len(chart.Bars) > 0 {
		last := chart.Bars[len(chart.Bars)-1].Close
		price = &last
	}
	if price == nil {
		return nil, market.DataNotAvailable("current price", in.Symbol)
	}

	out := &CurrentPrice{Symbol: in.Symbol, Price: *price, Currency: chart.Currency}
	if !chart.RegularMarketTime.IsZero() {
		ts := chart.RegularMarketTime.Unix()
		out.MarketTime = &ts
	}
	return out, nil
}

func (s *Service) PriceByDate(ctx context.Context, in *market.PriceByDateInput) (*PriceOnDate, error) {
	day, err := market.ParseDate("date", in.Date)
	if err != nil {
		return nil, err
	}

	ticker := s.ticker(in.Symbol)
	chart, err := s.provider.Chart(ctx, ports.ChartQuery{
		Symbol:   ticker,
		Interval: "1d",
		Start:    day,
		End:      day.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}
	if len(chart.Bars) == 0 {
		return nil, market.DataNotAvailable("price data for date "+in.Date, in.Symbol)
	}

	bar := toPriceBar(chart.Bars[0], "1d")
	bar.Date = in.Date
	return &PriceOnDate{Symbol: in.Symbol, PriceBar: bar}, nil
}

// PriceDateRange returns daily bars for [start_date, end_date], both ends
// inclusive.
func (s *Service) PriceDateRange(ctx context.Context, in *market.DateRangeInput) (*PriceRange, error) {
	start, err := market.ParseDate("start_date", in.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := market.ParseDate("end_date", in.EndDate)
	if err != nil {
		return nil, err
	}

	ticker := s.ticker(in.Symbol)
	chart, err := s.provider.Chart(ctx, ports.ChartQuery{
		Symbol:   ticker,
		Interval: "1d",
		Start:    start,
		End:      end.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}
	if len(chart.Bars) == 0 {
		return nil, market.DataNotAvailable(fmt.Sprintf("price data for range %s to %s", in.StartDate, in.EndDate), in.Symbol)
	}

	return &PriceRange{
		Symbol:    in.Symbol,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Data:      toPriceBars(chart.Bars, "1d"),
	}, nil
}

func (s *Service) HistoricalPrices(ctx context.Context, in *market.HistoricalInput) (*HistoricalPrices, error) {
	ticker := s.ticker(in.Symbol)
	chart, err := s.provider.Chart(ctx, ports.ChartQuery{Symbol: ticker, Range: in.Period, Interval: in.Interval})
	if err != nil {
		return nil, err
	}
	if len(chart.Bars) == 0 {
		return nil, market.DataNotAvailable("historical data for period "+in.Period, in.Symbol)
	}

	logging.Debug(s.logContext(ctx, market.OpHistoricalStockPrices, ticker), "chart loaded", slog.Int("bars", len(chart.Bars)))

	return &HistoricalPrices{
		Symbol:   in.Symbol,
		Period:   in.Period,
		Interval: in.Interval,
		Data:     toPriceBars(chart.Bars, in.Interval),
	}, nil
}

func (s *Service) Dividends(ctx context.Context, in *market.SymbolInput) (*Dividends, error) {
	chart, err := s.eventHistory(ctx, in.Symbol)
	if err != nil {
		return nil, err
	}
	if len(chart.Dividends) == 0 {
		return nil, market.DataNotAvailable("dividend", in.Symbol)
	}

	out := &Dividends{Symbol: in.Symbol, Dividends: make([]DividendRecord, 0, len(chart.Dividends))}
	for _, div := range chart.Dividends {
		out.Dividends = append(out.Dividends, DividendRecord{Date: formatDate(div.Time), Amount: div.Amount})
	}
	return out, nil
}

func (s *Service) StockActions(ctx context.Context, in *market.SymbolInput) (*StockActions, error) {
	chart, err := s.eventHistory(ctx, in.Symbol)
	if err != nil {
		return nil, err
	}
	if len(chart.Dividends) == 0 && len(chart.Splits) == 0 {
		return nil, market.DataNotAvailable("stock actions", in.Symbol)
	}

	byDate := make(map[string]*ActionRecord)
	record := func(date string) *ActionRecord {
		if r, ok := byDate[date]; ok {
			return r
		}
		r := &ActionRecord{Date: date}
		byDate[date] = r
		return r
	}
	for _, div := range chart.Dividends {
		amount := div.Amount
		record(formatDate(div.Time)).Dividend = &amount
	}
	for _, split := range chart.Splits {
		ratio := splitRatio(split)
		record(formatDate(split.Time)).StockSplit = &ratio
	}

	out := &StockActions{Symbol: in.Symbol, Actions: make([]ActionRecord, 0, len(byDate))}
	for _, r := range byDate {
		out.Actions = append(out.Actions, *r)
	}
	sort.Slice(out.Actions, func(i, j int) bool { return out.Actions[i].Date < out.Actions[j].Date })
	return out, nil
}

func (s *Service) StockSplits(ctx context.Context, in *market.SymbolInput) (*StockSplits, error) {
	chart, err := s.eventHistory(ctx, in.Symbol)
	if err != nil {
		return nil, err
	}
	if len(chart.Splits) == 0 {
		return nil, market.DataNotAvailable("stock splits", in.Symbol)
	}

	out := &StockSplits{Symbol: in.Symbol, Splits: make([]SplitRecord, 0, len(chart.Splits))}
	for _, split := range chart.Splits {
		out.Splits = append(out.Splits, SplitRecord{Date: formatDate(split.Time), SplitRatio: splitRatio(split)})
	}
	return out, nil
}

func (s *Service) eventHistory(ctx context.Context, symbol string) (*ports.Chart, error) {
	return s.provider.Chart(ctx, ports.ChartQuery{
		Symbol:   s.ticker(symbol),
		Range:    "max",
		Interval: "1mo",
		Events:   true,
	})
}

func splitRatio(split ports.Split) float64 {
	if split.Denominator == 0 {
		return split.Numerator
	}
	return split.Numerator / split.Denominator
}

func toPriceBars(bars []ports.Bar, interval string) []PriceBar {
	out := make([]PriceBar, 0, len(bars))
	for _, bar := range bars {
		out = append(out, toPriceBar(bar, interval))
	}
	return out
}

func toPriceBar(bar ports.Bar, interval string) PriceBar {
	return PriceBar{
		Date:     formatBarTime(bar.Time, interval),
		Open:     bar.Open,
		High:     bar.High,
		Low:      bar.Low,
		Close:    bar.Close,
		Volume:   bar.Volume,
		AdjClose: bar.AdjClose,
	}
}

// Intraday bars keep their time of day; everything else is a calendar date.
func formatBarTime(t time.Time, interval string) string {
	if strings.HasSuffix(interval, "m") || strings.HasSuffix(interval, "h") {
		return t.UTC().Format(time.RFC3339)
	}
	return formatDate(t)
}
