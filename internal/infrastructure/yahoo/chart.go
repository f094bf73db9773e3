package yahoo

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"yfmcp/internal/domain/market"
	"yfmcp/internal/ports"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency             string   `json:"currency"`
		Symbol               string   `json:"symbol"`
		ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
		RegularMarketPrice   *float64 `json:"regularMarketPrice"`
		RegularMarketTime    int64    `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp []int64 `json:"timestamp"`
	Events    struct {
		Dividends map[string]struct {
			Amount float64 `json:"amount"`
			Date   int64   `json:"date"`
		} `json:"dividends"`
		Splits map[string]struct {
			Date        int64   `json:"date"`
			Numerator   float64 `json:"numerator"`
			Denominator float64 `json:"denominator"`
			SplitRatio  string  `json:"splitRatio"`
		} `json:"splits"`
	} `json:"events"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

func (c *Client) Chart(ctx context.Context, query ports.ChartQuery) (*ports.Chart, error) {
	params := url.Values{}
	interval := query.Interval
	if interval == "" {
		interval = "1d"
	}
	params.Set("interval", interval)
	if !query.Start.IsZero() {
		end := query.End
		if end.IsZero() {
			end = time.Now()
		}
		params.Set("period1", strconv.FormatInt(query.Start.Unix(), 10))
		params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	} else {
		rng := query.Range
		if rng == "" {
			rng = "1mo"
		}
		params.Set("range", rng)
	}
	if query.Events {
		params.Set("events", "div,splits")
	}
	params.Set("includeAdjustedClose", "true")

	var resp chartResponse
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(query.Symbol), params, false, &resp); err != nil {
		return nil, classify(query.Symbol, err)
	}
	if err := checkAPIError(query.Symbol, resp.Chart.Error); err != nil {
		return nil, err
	}
	if len(resp.Chart.Result) == 0 {
		return nil, market.SymbolNotFound(query.Symbol)
	}

	return convertChart(resp.Chart.Result[0]), nil
}

func convertChart(result chartResult) *ports.Chart {
	chart := &ports.Chart{
		Symbol:             result.Meta.Symbol,
		Currency:           result.Meta.Currency,
		ExchangeTimezone:   result.Meta.ExchangeTimezoneName,
		RegularMarketPrice: result.Meta.RegularMarketPrice,
	}
	if result.Meta.RegularMarketTime > 0 {
		chart.RegularMarketTime = time.Unix(result.Meta.RegularMarketTime, 0).UTC()
	}

	if len(result.Indicators.Quote) > 0 {
		quote := result.Indicators.Quote[0]
		var adj []*float64
		if len(result.Indicators.AdjClose) > 0 {
			adj = result.Indicators.AdjClose[0].AdjClose
		}

		for i, ts := range result.Timestamp {
			closePrice := at(quote.Close, i)
			if closePrice == nil {
				continue
			}
			bar := ports.Bar{
				Time:     time.Unix(ts, 0).UTC(),
				Open:     deref(at(quote.Open, i)),
				High:     deref(at(quote.High, i)),
				Low:      deref(at(quote.Low, i)),
				Close:    *closePrice,
				AdjClose: at(adj, i),
			}
			if i < len(quote.Volume) && quote.Volume[i] != nil {
				bar.Volume = *quote.Volume[i]
			}
			chart.Bars = append(chart.Bars, bar)
		}
	}

	for _, div := range result.Events.Dividends {
		chart.Dividends = append(chart.Dividends, ports.Dividend{
			Time:   time.Unix(div.Date, 0).UTC(),
			Amount: div.Amount,
		})
	}
	sort.Slice(chart.Dividends, func(i, j int) bool { return chart.Dividends[i].Time.Before(chart.Dividends[j].Time) })

	for _, split := range result.Events.Splits {
		chart.Splits = append(chart.Splits, ports.Split{
			Time:        time.Unix(split.Date, 0).UTC(),
			Numerator:   split.Numerator,
			Denominator: split.Denominator,
			Ratio:       split.SplitRatio,
		})
	}
	sort.Slice(chart.Splits, func(i, j int) bool { return chart.Splits[i].Time.Before(chart.Splits[j].Time) })

	return chart
}

func at[T any](values []*T, i int) *T {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
