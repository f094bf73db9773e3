package finance

import (
	"context"
	"time"

	"yfmcp/internal/domain/market"
	"yfmcp/internal/ports"
)

type OptionExpirationDates struct {
	Symbol          string   `json:"symbol"`
	ExpirationDates []string `json:"expiration_dates"`
}

type OptionContract struct {
	ContractSymbol    string   `json:"contractSymbol"`
	Strike            float64  `json:"strike"`
	LastPrice         float64  `json:"lastPrice"`
	Bid               *float64 `json:"bid"`
	Ask               *float64 `json:"ask"`
	Volume            *int64   `json:"volume"`
	OpenInterest      *int64   `json:"openInterest"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	InTheMoney        bool     `json:"inTheMoney"`
	Currency          string   `json:"currency,omitempty"`
}

type OptionChain struct {
	Symbol         string           `json:"symbol"`
	ExpirationDate string           `json:"expiration_date"`
	OptionType     string           `json:"option_type"`
	Calls          []OptionContract `json:"calls,omitempty"`
	Puts           []OptionContract `json:"puts,omitempty"`
}

func (s *Service) OptionExpirationDates(ctx context.Context, in *market.SymbolInput) (*OptionExpirationDates, error) {
	chain, err := s.provider.Options(ctx, s.ticker(in.Symbol), time.Time{})
	if err != nil {
		return nil, err
	}
	dates := expirationDates(chain)
	if len(dates) == 0 {
		return nil, market.DataNotAvailable("option expiration dates", in.Symbol)
	}
	return &OptionExpirationDates{Symbol: in.Symbol, ExpirationDates: dates}, nil
}

// OptionChain requires expiration_date to be one of the listed expirations.
func (s *Service) OptionChain(ctx context.Context, in *market.OptionChainInput) (*OptionChain, error) {
	ticker := s.ticker(in.Symbol)
	nearest, err := s.provider.Options(ctx, ticker, time.Time{})
	if err != nil {
		return nil, err
	}

	dates := expirationDates(nearest)
	var expiration time.Time
	for i, date := range dates {
		if date == in.ExpirationDate {
			expiration = nearest.ExpirationDates[i]
			break
		}
	}
	if expiration.IsZero() {
		return nil, market.InvalidParameter("expiration_date", in.ExpirationDate, dates...)
	}

	chain := nearest
	if !nearest.Expiration.Equal(expiration) {
		chain, err = s.provider.Options(ctx, ticker, expiration)
		if err != nil {
			return nil, err
		}
	}

	out := &OptionChain{Symbol: in.Symbol, ExpirationDate: in.ExpirationDate, OptionType: in.OptionType}
	switch in.OptionType {
	case "calls":
		if len(chain.Calls) == 0 {
			return nil, market.DataNotAvailable("calls option chain", in.Symbol)
		}
		out.Calls = toContracts(chain.Calls)
	case "puts":
		if len(chain.Puts) == 0 {
			return nil, market.DataNotAvailable("puts option chain", in.Symbol)
		}
		out.Puts = toContracts(chain.Puts)
	case "both":
		if len(chain.Calls) == 0 && len(chain.Puts) == 0 {
			return nil, market.DataNotAvailable("option chain", in.Symbol)
		}
		out.Calls = toContracts(chain.Calls)
		out.Puts = toContracts(chain.Puts)
	default:
		return nil, market.InvalidParameter("option_type", in.OptionType, market.OptionTypes...)
	}
	return out, nil
}

func expirationDates(chain *ports.OptionChain) []string {
	out := make([]string, 0, len(chain.ExpirationDates))
	for _, t := range chain.ExpirationDates {
		out = append(out, formatDate(t))
	}
	return out
}

func toContracts(in []ports.OptionContract) []OptionContract {
	out := make([]OptionContract, 0, len(in))
	for _, c := range in {
		out = append(out, OptionContract{
			ContractSymbol:    c.ContractSymbol,
			Strike:            c.Strike,
			LastPrice:         c.LastPrice,
			Bid:               c.Bid,
			Ask:               c.Ask,
			Volume:            c.Volume,
			OpenInterest:      c.OpenInterest,
			ImpliedVolatility: c.ImpliedVolatility,
			InTheMoney:        c.InTheMoney,
			Currency:          c.Currency,
		})
	}
	return out
}
