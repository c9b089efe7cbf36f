package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"trendpulse/internal/models"
	"trendpulse/internal/retry"
)

const defaultNewsAPIBase = "https://newsapi.org/v2/top-headlines"

// NewsProvider fetches trending headlines. With an API key it talks to
// NewsAPI's top-headlines endpoint; without one it degrades to parsing a
// configurable headline RSS feed, so the platform stays alive in keyless
// deployments. NewsAPI enforces a strict daily quota, which is why this
// provider carries the longest cache TTL and a 24h retry-after fallback.
type NewsProvider struct {
	deps    Deps
	apiKey  string
	feedURL string
	apiBase string
	parser  *gofeed.Parser
	client  *http.Client
	policy  retry.Policy
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func NewNews(apiKey, feedURL string, deps Deps) *NewsProvider {
	return &NewsProvider{
		deps:    deps,
		apiKey:  apiKey,
		feedURL: feedURL,
		apiBase: defaultNewsAPIBase,
		parser:  gofeed.NewParser(),
		client:  &http.Client{Timeout: deps.Config.Timeout},
		policy:  retry.Default(IsRetryable),
	}
}

func (p *NewsProvider) Platform() models.Platform {
	return models.PlatformNews
}

func (p *NewsProvider) CacheKey() string {
	return "trends:news:top-headlines"
}

func (p *NewsProvider) Fetch(ctx context.Context) ([]models.TrendRecord, error) {
	return p.deps.run(ctx, p.Platform(), p.CacheKey(), p.policy, p.fetchOnce)
}

func (p *NewsProvider) fetchOnce(ctx context.Context) ([]models.TrendRecord, error) {
	if p.apiKey == "" {
		return p.fetchFeed(ctx)
	}

	query := url.Values{}
	query.Set("country", "us")
	query.Set("pageSize", fmt.Sprintf("%d", p.deps.Config.MaxItems))
	query.Set("apiKey", p.apiKey)

	var resp newsAPIResponse
	if err := p.deps.getJSON(ctx, p.client, "newsapi", p.apiBase+"?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi returned status %q", resp.Status)
	}
	return p.normalizeArticles(&resp, time.Now()), nil
}

// normalizeArticles maps the NewsAPI schema to trend records. NewsAPI
// exposes no popularity metric, so volume stays zero and ranking leans on
// growth once a baseline exists.
func (p *NewsProvider) normalizeArticles(resp *newsAPIResponse, now time.Time) []models.TrendRecord {
	records := make([]models.TrendRecord, 0, len(resp.Articles))
	for i, article := range resp.Articles {
		if i >= p.deps.Config.MaxItems {
			break
		}
		if article.Title == "" {
			continue
		}

		timestamp := now
		if t, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
			timestamp = t
		}

		description := truncate(cleanText(article.Description), 300)
		records = append(records, models.TrendRecord{
			Name:        article.Title,
			Description: description,
			URL:         article.URL,
			Platform:    models.PlatformNews,
			Category:    p.deps.Categorizer.Categorize(article.Title, description),
			Volume:      0,
			Timestamp:   timestamp,
			Sentiment:   p.deps.Analyzer.Analyze(article.Title + " " + description),
			Growth:      p.deps.growth(models.PlatformNews, article.Title, 0),
		})
	}
	return records
}

func (p *NewsProvider) fetchFeed(ctx context.Context) ([]models.TrendRecord, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.deps.Config.Timeout)
	defer cancel()

	feed, err := p.parser.ParseURLWithContext(p.feedURL, ctxWithTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news feed %s: %w", p.feedURL, err)
	}
	return p.normalizeFeed(feed, time.Now()), nil
}

func (p *NewsProvider) normalizeFeed(feed *gofeed.Feed, now time.Time) []models.TrendRecord {
	records := make([]models.TrendRecord, 0, len(feed.Items))
	for i, item := range feed.Items {
		if i >= p.deps.Config.MaxItems {
			break
		}

		timestamp := now
		if item.PublishedParsed != nil {
			timestamp = *item.PublishedParsed
		}

		description := truncate(cleanText(item.Description), 300)
		records = append(records, models.TrendRecord{
			Name:        item.Title,
			Description: description,
			URL:         item.Link,
			Platform:    models.PlatformNews,
			Category:    p.deps.Categorizer.Categorize(item.Title, description),
			Volume:      0,
			Timestamp:   timestamp,
			Sentiment:   p.deps.Analyzer.Analyze(item.Title + " " + description),
			Growth:      p.deps.growth(models.PlatformNews, item.Title, 0),
		})
	}
	return records
}
