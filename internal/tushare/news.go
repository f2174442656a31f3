package tushare

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"marketdata/internal/model"
	"marketdata/internal/sentiment"
)

// newsTimeLayout is the datetime format used by the news API.
const newsTimeLayout = "2006-01-02 15:04:05"

// NewsAdapter fetches raw news items in a date range and annotates each with
// a sentiment score. Items with empty text are kept, scored neutral and
// flagged low-confidence rather than dropped.
type NewsAdapter struct {
	client *Client
	source string
}

// NewNewsAdapter creates a news adapter reading from the given channel
// (e.g. "sina").
func NewNewsAdapter(client *Client, source string) *NewsAdapter {
	if source == "" {
		source = "sina"
	}
	return &NewsAdapter{client: client, source: source}
}

// Name identifies the adapter
func (a *NewsAdapter) Name() string { return "tushare:news_sentiment" }

// Fetch retrieves news items and scores them, ordered by publication time.
func (a *NewsAdapter) Fetch(ctx context.Context, key model.RequestKey) (*model.Record, error) {
	params := map[string]string{
		"src":        a.source,
		"start_date": key.Range.Start.Format(newsTimeLayout),
		"end_date":   key.Range.End.Add(24*time.Hour - time.Second).Format(newsTimeLayout),
	}

	res, err := a.client.Call(ctx, "news", params, "datetime,title,content")
	if err != nil {
		return nil, err
	}

	items := make([]model.NewsItem, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		row := res.Row(i)

		publishedAt, err := time.ParseInLocation(newsTimeLayout, row.Str("datetime"), time.UTC)
		if err != nil {
			// Fall back to date-only stamps rather than dropping the item.
			if publishedAt, err = model.ParseDate(row.Str("datetime")); err != nil {
				slog.Warn("unparseable news timestamp, keeping item with zero time",
					"source", a.source, "datetime", row.Str("datetime"))
			}
		}

		item := model.NewsItem{
			PublishedAt: publishedAt,
			Title:       row.Str("title"),
			Content:     row.Str("content"),
			Source:      a.source,
		}
		score := sentiment.Analyze(strings.TrimSpace(item.Title + " " + item.Content))
		item.Sentiment = score.Value
		item.Confidence = score.Confidence
		item.LowConfidence = score.LowConfidence
		items = append(items, item)
	}
	items = model.SortNews(items)

	slog.Info("fetched news", "source", a.source, "items", len(items))

	return &model.Record{Kind: model.KindNewsSentiment, Symbol: key.Symbol, News: items}, nil
}
