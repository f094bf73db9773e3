package yahoo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"yfmcp/internal/domain/market"
)

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) notFound() bool {
	if e == nil {
		return false
	}
	text := strings.ToLower(e.Code + " " + e.Description)
	return strings.Contains(text, "not found") || strings.Contains(text, "no data found")
}

// classify turns transport and API failures into market error kinds.
func classify(symbol string, err error) error {
	if err == nil {
		return nil
	}
	if market.KindOf(err) != market.KindUnknown {
		return err
	}

	var se *statusError
	if errors.As(err, &se) {
		apiErr := parseAPIError(se.Body)
		if se.StatusCode == http.StatusNotFound || apiErr.notFound() {
			return market.SymbolNotFound(symbol)
		}
		if apiErr != nil && apiErr.Description != "" {
			return market.Upstream(symbol, fmt.Errorf("status %d: %s", se.StatusCode, apiErr.Description))
		}
		return market.Upstream(symbol, err)
	}
	return market.Upstream(symbol, err)
}

// parseAPIError finds {"<root>": {"error": {...}}} in a Yahoo error body.
func parseAPIError(body []byte) *apiError {
	var envelope map[string]struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	for _, inner := range envelope {
		if inner.Error != nil {
			return inner.Error
		}
	}
	return nil
}

func checkAPIError(symbol string, apiErr *apiError) error {
	if apiErr == nil {
		return nil
	}
	if apiErr.notFound() {
		return market.SymbolNotFound(symbol)
	}
	return market.Upstream(symbol, errors.New(strings.TrimSpace(apiErr.Code+": "+apiErr.Description)))
}
