package finance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/domain/market"
	"yfmcp/internal/ports"
)

var errProviderRequired = errors.New("market data provider is required")

// Service answers every catalog operation from a MarketDataProvider. Results
// are plain structs and maps so the dispatcher can cache them as JSON.
type Service struct {
	provider      ports.MarketDataProvider
	defaultMarket string
	now           func() time.Time
}

// NewService wires the finance usecases to a provider. defaultMarket picks
// the exchange suffix for bare tickers.
func NewService(provider ports.MarketDataProvider, defaultMarket string) (*Service, error) {
	if provider == nil {
		return nil, errProviderRequired
	}
	defaultMarket = strings.ToUpper(strings.TrimSpace(defaultMarket))
	if defaultMarket == "" {
		defaultMarket = "US"
	}
	if !market.IsSupportedMarket(defaultMarket) {
		return nil, market.InvalidParameter("market.default", defaultMarket, market.SupportedMarkets()...)
	}
	return &Service{
		provider:      provider,
		defaultMarket: defaultMarket,
		now:           time.Now,
	}, nil
}

func (s *Service) DefaultMarket() string {
	return s.defaultMarket
}

func (s *Service) ticker(symbol string) string {
	return market.NormalizeTicker(symbol, s.defaultMarket)
}

func (s *Service) logContext(ctx context.Context, op string, symbol string) context.Context {
	return logging.WithAttrs(ctx,
		slog.String("component", "usecase.finance"),
		slog.String("operation", op),
		slog.String("ticker", symbol),
	)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(market.DateLayout)
}

func epochDate(v any) (string, bool) {
	f, ok := v.(float64)
	if !ok || f <= 0 {
		return "", false
	}
	return formatDate(time.Unix(int64(f), 0)), true
}
