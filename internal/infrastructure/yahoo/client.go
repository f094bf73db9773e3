package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/errs"
	"yfmcp/internal/ports"
)

const (
	DefaultBaseURL   = "https://query2.finance.yahoo.com"
	DefaultCookieURL = "https://fc.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	maxBodyBytes = 8 << 20
)

type ClientConfig struct {
	BaseURL    string
	CookieURL  string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the public Yahoo Finance query endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cookieURL  string
	userAgent  string
	crumbs     *crumbManager
}

var _ ports.MarketDataProvider = (*Client)(nil)

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errs.Wrap(err, "parse base url")
	}

	cookieURL := strings.TrimSpace(cfg.CookieURL)
	if cookieURL == "" {
		cookieURL = DefaultCookieURL
	}

	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errs.Wrap(err, "create cookie jar")
		}
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    parsedBaseURL,
		cookieURL:  cookieURL,
		userAgent:  userAgent,
	}
	c.crumbs = newCrumbManager(c.fetchCrumb)
	return c, nil
}

// statusError is a non-2xx reply. Body keeps the payload for error mapping.
type statusError struct {
	StatusCode int
	Body       []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (c *Client) buildURL(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", errs.Wrap(err, "parse path")
	}

	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// getJSON issues a GET and decodes the body into out. withCrumb attaches the
// session crumb and retries once with a fresh crumb on 401/403.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, withCrumb bool, out any) error {
	body, err := c.get(ctx, path, query, withCrumb)
	var se *statusError
	if withCrumb && errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
		c.crumbs.invalidate()
		body, err = c.get(ctx, path, query, true)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errs.Wrapf(err, "decode response from %s", path)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, withCrumb bool) ([]byte, error) {
	params := url.Values{}
	for key, values := range query {
		params[key] = append([]string(nil), values...)
	}
	if withCrumb {
		crumb, err := c.crumbs.get(ctx)
		if err != nil {
			return nil, errs.Wrap(err, "get crumb")
		}
		params.Set("crumb", crumb)
	}

	rawURL, err := c.buildURL(path, params)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, rawURL)
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json,text/plain,*/*")

	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.yahoo"))
	logging.Debug(logCtx, "http request", slog.String("url", redactCrumb(rawURL)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Wrap(err, "read response")
	}

	logging.Debug(logCtx, "http response", slog.Int("status", resp.StatusCode), slog.Int("bytes", len(body)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

func (c *Client) fetchCrumb(ctx context.Context) (string, error) {
	// fc.yahoo.com answers 404 but sets the session cookie the crumb is bound to.
	if _, err := c.do(ctx, c.cookieURL); err != nil {
		var se *statusError
		if !errors.As(err, &se) {
			return "", errs.Wrap(err, "fetch session cookie")
		}
	}

	rawURL, err := c.buildURL("/v1/test/getcrumb", nil)
	if err != nil {
		return "", err
	}
	body, err := c.do(ctx, rawURL)
	if err != nil {
		return "", errs.Wrap(err, "fetch crumb")
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<>{") {
		return "", errors.New("empty or malformed crumb")
	}
	return crumb, nil
}

func redactCrumb(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("crumb") {
		q.Set("crumb", "***")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
