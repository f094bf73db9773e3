package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yfmcp/internal/domain/market"
	"yfmcp/internal/usecase/dispatch"
)

func testTool(t *testing.T, name string, in market.Input, fetch dispatch.FetchFunc) dispatch.Tool {
	t.Helper()
	op, ok := market.Lookup(name)
	require.True(t, ok, name)
	return dispatch.Tool{Operation: op, Input: in, Fetch: fetch}
}

func newTestServer(t *testing.T, fetchErr error) (*Server, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	d := dispatch.NewDispatcher(nil, dispatch.NewPolicy(nil), dispatch.NewMetrics(reg))
	tools := []dispatch.Tool{
		testTool(t, market.OpStockInfo, &market.SymbolInput{}, func(_ context.Context, params map[string]any) (any, error) {
			if fetchErr != nil {
				return nil, fetchErr
			}
			return map[string]any{"symbol": params["symbol"], "info": map[string]any{"sector": "Technology"}}, nil
		}),
		testTool(t, market.OpHistoricalStockPrices, &market.HistoricalInput{}, func(_ context.Context, params map[string]any) (any, error) {
			return params, nil
		}),
		testTool(t, market.OpEarningDates, &market.EarningDatesInput{}, func(_ context.Context, params map[string]any) (any, error) {
			return params, nil
		}),
	}

	srv, err := New(d, tools, Options{Name: "yfmcp-test", Version: "test"})
	require.NoError(t, err)
	return srv, reg
}

func TestNewRejectsDuplicatesAndMissingDispatcher(t *testing.T) {
	_, err := New(nil, nil, Options{})
	require.Error(t, err)

	d := dispatch.NewDispatcher(nil, nil, nil)
	tool := testTool(t, market.OpNews, &market.SymbolInput{}, func(context.Context, map[string]any) (any, error) { return nil, nil })
	_, err = New(d, []dispatch.Tool{tool, tool}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool")
}

func TestToolsAdvertiseSchemas(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	tools := srv.Tools()
	require.Len(t, tools, 3)
	assert.Equal(t, market.OpEarningDates, tools[0].Name)

	var historical ToolInfo
	for _, info := range tools {
		if info.Name == market.OpHistoricalStockPrices {
			historical = info
		}
	}
	require.NotNil(t, historical.InputSchema)
	assert.Equal(t, "object", historical.InputSchema["type"])
	assert.Equal(t, []any{"symbol"}, historical.InputSchema["required"])
	assert.Equal(t, market.ClassHistoricalData, historical.CacheClass)
	assert.True(t, historical.Cacheable)

	props, ok := historical.InputSchema["properties"].(map[string]any)
	require.True(t, ok)
	period, ok := props["period"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, period["enum"], len(market.Periods))
	assert.NotContains(t, historical.InputSchema, "$schema")
}

func TestCallRendersIndentedJSON(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	text, failed := srv.Call(context.Background(), market.OpStockInfo, json.RawMessage(`{"symbol":"AAPL"}`))
	require.False(t, failed, text)
	assert.JSONEq(t, `{"symbol":"AAPL","info":{"sector":"Technology"}}`, text)
	assert.Contains(t, text, "\n  ")
}

func TestCallValidatesArguments(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		tool string
		args string
		want string
	}{
		{
			name: "enum",
			tool: market.OpHistoricalStockPrices,
			args: `{"symbol":"AAPL","period":"2w"}`,
			want: "Invalid parameter: Invalid value '2w' for parameter 'period'. Valid values are: 1d, 5d, 1mo",
		},
		{
			name: "missing required",
			tool: market.OpStockInfo,
			args: `{}`,
			want: "Invalid parameter: Invalid value '' for parameter 'symbol'",
		},
		{
			name: "unknown argument",
			tool: market.OpStockInfo,
			args: `{"symbol":"AAPL","extra":1}`,
			want: "Invalid parameter: Invalid value '' for parameter 'extra'. Valid values are: symbol",
		},
		{
			name: "wrong type",
			tool: market.OpEarningDates,
			args: `{"symbol":"AAPL","limit":"ten"}`,
			want: "Invalid parameter: Invalid value 'ten' for parameter 'limit'",
		},
		{
			name: "not an object",
			tool: market.OpStockInfo,
			args: `[1,2]`,
			want: "Invalid parameter:",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text, failed := srv.Call(ctx, tc.tool, json.RawMessage(tc.args))
			assert.True(t, failed)
			assert.True(t, strings.HasPrefix(text, tc.want), text)
		})
	}
}

func TestCallUnknownTool(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	text, failed := srv.Call(context.Background(), "get_everything", nil)
	assert.True(t, failed)
	assert.Equal(t, "Unknown tool: get_everything", text)
}

func TestCallRendersErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{market.SymbolNotFound("ZZZZ"), "Ticker not found: Ticker 'ZZZZ' not found or has no data available"},
		{market.DataNotAvailable("news", "AAPL"), "Data not available: Data type 'news' is not available for ticker 'AAPL'"},
		{market.Upstream("AAPL", errors.New("status 500")), "Yahoo Finance API error: Yahoo Finance API error for ticker 'AAPL': status 500"},
		{errors.New("boom"), "Unexpected error executing get_stock_info: boom"},
	}

	for _, tc := range cases {
		srv, _ := newTestServer(t, tc.err)
		text, failed := srv.Call(context.Background(), market.OpStockInfo, json.RawMessage(`{"symbol":"AAPL"}`))
		assert.True(t, failed)
		assert.Equal(t, tc.want, text)
	}
}

func TestMCPRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	listed, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	names := make([]string, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{market.OpStockInfo, market.OpHistoricalStockPrices, market.OpEarningDates}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      market.OpStockInfo,
		Arguments: map[string]any{"symbol": "MSFT"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.JSONEq(t, `{"symbol":"MSFT","info":{"sector":"Technology"}}`, text.Text)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      market.OpHistoricalStockPrices,
		Arguments: map[string]any{"symbol": "MSFT", "interval": "1s"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHTTPHandlerServesHealthAndMetrics(t *testing.T) {
	srv, reg := newTestServer(t, nil)
	_, failed := srv.Call(context.Background(), market.OpStockInfo, json.RawMessage(`{"symbol":"AAPL"}`))
	require.False(t, failed)

	ts := httptest.NewServer(srv.Handler(reg))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "yfmcp_cache_lookups_total")
}
