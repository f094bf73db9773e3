package finance

import (
	"context"
	"time"

	"yfmcp/internal/domain/market"
)

const newsCount = 10

type Article struct {
	Title         string `json:"title"`
	Publisher     string `json:"publisher"`
	Link          string `json:"link"`
	PublishedDate string `json:"published_date,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
}

type News struct {
	Symbol string    `json:"symbol"`
	News   []Article `json:"news"`
}

func (s *Service) News(ctx context.Context, in *market.SymbolInput) (*News, error) {
	items, err := s.provider.News(ctx, s.ticker(in.Symbol), newsCount)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, market.DataNotAvailable("news", in.Symbol)
	}

	out := &News{Symbol: in.Symbol, News: make([]Article, 0, len(items))}
	for _, item := range items {
		article := Article{
			Title:     item.Title,
			Publisher: item.Publisher,
			Link:      item.Link,
			Thumbnail: item.Thumbnail,
		}
		if !item.PublishedAt.IsZero() {
			article.PublishedDate = item.PublishedAt.UTC().Format(time.RFC3339)
		}
		out.News = append(out.News, article)
	}
	return out, nil
}
