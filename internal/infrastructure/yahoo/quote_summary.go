package yahoo

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"yfmcp/internal/domain/market"
	"yfmcp/internal/ports"
)

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]json.RawMessage `json:"result"`
		Error  *apiError                    `json:"error"`
	} `json:"quoteSummary"`
}

func (c *Client) QuoteSummary(ctx context.Context, symbol string, modules ...string) (ports.QuoteSummary, error) {
	if len(modules) == 0 {
		return nil, market.InvalidParameter("modules", "", "at least one quoteSummary module")
	}

	params := url.Values{}
	params.Set("modules", strings.Join(modules, ","))
	params.Set("formatted", "false")

	var resp quoteSummaryResponse
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params, true, &resp); err != nil {
		return nil, classify(symbol, err)
	}
	if err := checkAPIError(symbol, resp.QuoteSummary.Error); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, market.SymbolNotFound(symbol)
	}

	out := make(ports.QuoteSummary, len(modules))
	for name, raw := range resp.QuoteSummary.Result[0] {
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil || decoded == nil {
			continue
		}
		out[name] = flatten(decoded).(map[string]any)
	}
	return out, nil
}

// flatten replaces {"raw": x, "fmt": "..."} leaves with x and drops empty
// {} placeholders.
func flatten(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		if raw, ok := typed["raw"]; ok && isFormattedLeaf(typed) {
			return raw
		}
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			if inner, ok := value.(map[string]any); ok && len(inner) == 0 {
				continue
			}
			out[key] = flatten(value)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, value := range typed {
			out[i] = flatten(value)
		}
		return out
	default:
		return v
	}
}

func isFormattedLeaf(m map[string]any) bool {
	for key := range m {
		switch key {
		case "raw", "fmt", "longFmt":
		default:
			return false
		}
	}
	return true
}
