package mcpserver

import (
	"context"
	"errors"
	"log/slog"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/domain/market"
	"yfmcp/internal/errs"
)

// renderError maps err to the text shown to the client and logs it at the
// level its kind deserves.
func renderError(ctx context.Context, name string, err error) string {
	var text string
	switch {
	case errors.Is(err, market.ErrUnknownOperation):
		text = "Unknown tool: " + name
		logging.Warn(ctx, text)
		return text
	case market.KindOf(err) == market.KindSymbolNotFound:
		text = "Ticker not found: " + err.Error()
	case market.KindOf(err) == market.KindDataNotAvailable:
		text = "Data not available: " + err.Error()
		logging.Warn(ctx, text)
		return text
	case market.KindOf(err) == market.KindInvalidParameter:
		text = "Invalid parameter: " + err.Error()
	case market.KindOf(err) == market.KindUpstream:
		text = "Yahoo Finance API error: " + err.Error()
	default:
		text = "Unexpected error executing " + name + ": " + err.Error()
	}

	logging.Error(ctx, text, slog.Any("err", errs.Loggable(err)))
	return text
}
