package yahoo

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"yfmcp/internal/ports"
)

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
		Thumbnail           *struct {
			Resolutions []struct {
				URL   string `json:"url"`
				Width int    `json:"width"`
			} `json:"resolutions"`
		} `json:"thumbnail"`
	} `json:"news"`
}

func (c *Client) News(ctx context.Context, symbol string, count int) ([]ports.NewsItem, error) {
	if count <= 0 {
		count = 10
	}
	params := url.Values{}
	params.Set("q", symbol)
	params.Set("quotesCount", "0")
	params.Set("newsCount", strconv.Itoa(count))

	var resp searchResponse
	if err := c.getJSON(ctx, "/v1/finance/search", params, false, &resp); err != nil {
		return nil, classify(symbol, err)
	}

	items := make([]ports.NewsItem, 0, len(resp.News))
	for _, n := range resp.News {
		item := ports.NewsItem{
			Title:     n.Title,
			Publisher: n.Publisher,
			Link:      n.Link,
		}
		if n.ProviderPublishTime > 0 {
			item.PublishedAt = time.Unix(n.ProviderPublishTime, 0).UTC()
		}
		if n.Thumbnail != nil && len(n.Thumbnail.Resolutions) > 0 {
			item.Thumbnail = n.Thumbnail.Resolutions[0].URL
		}
		items = append(items, item)
	}
	return items, nil
}
