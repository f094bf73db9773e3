package finance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"yfmcp/internal/domain/market"
	"yfmcp/internal/errs"
	"yfmcp/internal/usecase/dispatch"
)

// Tools binds every catalog operation to its typed input and service method.
func (s *Service) Tools() []dispatch.Tool {
	return []dispatch.Tool{
		tool(market.OpCurrentStockPrice, s.CurrentPrice),
		tool(market.OpStockPriceByDate, s.PriceByDate),
		tool(market.OpStockPriceDateRange, s.PriceDateRange),
		tool(market.OpHistoricalStockPrices, s.HistoricalPrices),
		tool(market.OpDividends, s.Dividends),
		tool(market.OpStockActions, s.StockActions),
		tool(market.OpStockInfo, s.StockInfo),
		tool(market.OpIncomeStatement, s.IncomeStatement),
		tool(market.OpBalanceSheet, s.BalanceSheet),
		tool(market.OpCashflow, s.Cashflow),
		tool(market.OpHolderInfo, s.HolderInfo),
		tool(market.OpOptionExpirationDates, s.OptionExpirationDates),
		tool(market.OpOptionChain, s.OptionChain),
		tool(market.OpNews, s.News),
		tool(market.OpRecommendations, s.Recommendations),
		tool(market.OpEarningDates, s.EarningDates),
		tool(market.OpStockSplits, s.StockSplits),
		tool(market.OpAnalystPriceTargets, s.AnalystPriceTargets),
	}
}

func tool[T any, PT interface {
	*T
	market.Input
}, R any](name string, call func(context.Context, PT) (R, error)) dispatch.Tool {
	op, ok := market.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("finance: operation %q missing from catalog", name))
	}

	return dispatch.Tool{
		Operation: op,
		Input:     PT(new(T)),
		Fetch: func(ctx context.Context, params map[string]any) (any, error) {
			in := PT(new(T))
			if err := Bind(params, in); err != nil {
				return nil, err
			}
			return call(ctx, in)
		},
	}
}

// Bind decodes tool arguments into in, applies defaults and validates.
// Unknown or ill-typed arguments are reported as invalid parameters.
func Bind(params map[string]any, in market.Input) error {
	if params == nil {
		params = map[string]any{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return market.Serialization(errs.Wrap(err, "encode arguments"))
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(in); err != nil {
		return bindError(params, err)
	}

	in.ApplyDefaults()
	return in.Validate()
}

func bindError(params map[string]any, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		return market.InvalidParameter(field, fmt.Sprint(params[field]), "a value of type "+typeErr.Type.String())
	}

	const unknownPrefix = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknownPrefix) {
		field := strings.Trim(strings.TrimPrefix(msg, unknownPrefix), `"`)
		return market.InvalidParameter(field, fmt.Sprint(params[field]))
	}
	return market.InvalidParameter("arguments", err.Error())
}
