package yahoo

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"yfmcp/internal/domain/market"
	"yfmcp/internal/ports"
)

type optionsResponse struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string  `json:"underlyingSymbol"`
			ExpirationDates  []int64 `json:"expirationDates"`
			Options          []struct {
				ExpirationDate int64            `json:"expirationDate"`
				Calls          []optionContract `json:"calls"`
				Puts           []optionContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"optionChain"`
}

type optionContract struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            float64  `json:"strike"`
	Currency          string   `json:"currency"`
	LastPrice         float64  `json:"lastPrice"`
	Bid               *float64 `json:"bid"`
	Ask               *float64 `json:"ask"`
	Volume            *int64   `json:"volume"`
	OpenInterest      *int64   `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	InTheMoney        bool     `json:"inTheMoney"`
	Expiration        int64    `json:"expiration"`
}

func (c *Client) Options(ctx context.Context, symbol string, expiration time.Time) (*ports.OptionChain, error) {
	params := url.Values{}
	if !expiration.IsZero() {
		params.Set("date", strconv.FormatInt(expiration.Unix(), 10))
	}

	var resp optionsResponse
	if err := c.getJSON(ctx, "/v7/finance/options/"+url.PathEscape(symbol), params, true, &resp); err != nil {
		return nil, classify(symbol, err)
	}
	if err := checkAPIError(symbol, resp.OptionChain.Error); err != nil {
		return nil, err
	}
	if len(resp.OptionChain.Result) == 0 {
		return nil, market.SymbolNotFound(symbol)
	}

	result := resp.OptionChain.Result[0]
	chain := &ports.OptionChain{Symbol: result.UnderlyingSymbol}
	if chain.Symbol == "" {
		chain.Symbol = symbol
	}
	for _, ts := range result.ExpirationDates {
		chain.ExpirationDates = append(chain.ExpirationDates, time.Unix(ts, 0).UTC())
	}
	if len(result.Options) > 0 {
		opts := result.Options[0]
		chain.Expiration = time.Unix(opts.ExpirationDate, 0).UTC()
		chain.Calls = convertContracts(opts.Calls)
		chain.Puts = convertContracts(opts.Puts)
	}
	return chain, nil
}

func convertContracts(in []optionContract) []ports.OptionContract {
	out := make([]ports.OptionContract, 0, len(in))
	for _, c := range in {
		out = append(out, ports.OptionContract{
			ContractSymbol:    c.ContractSymbol,
			Strike:            c.Strike,
			LastPrice:         c.LastPrice,
			Bid:               c.Bid,
			Ask:               c.Ask,
			Volume:            c.Volume,
			OpenInterest:      c.OpenInterest,
			ImpliedVolatility: c.ImpliedVolatility,
			InTheMoney:        c.InTheMoney,
			Expiration:        time.Unix(c.Expiration, 0).UTC(),
			Currency:          c.Currency,
		})
	}
	return out
}
