package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"trendpulse/internal/models"
	"trendpulse/internal/retry"
)

const defaultAlgoliaBase = "https://hn.algolia.com/api/v1"

// HackerNewsProvider fetches the current front page through the Algolia
// search API. Keyless and generous with quotas, so it runs with a short
// TTL and only two retry attempts.
type HackerNewsProvider struct {
	deps    Deps
	apiBase string
	client  *http.Client
	policy  retry.Policy
}

type algoliaResponse struct {
	Hits []algoliaHit `json:"hits"`
}

type algoliaHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Author      string `json:"author"`
	Points      int    `json:"points"`
	NumComments int    `json:"num_comments"`
	CreatedAt   string `json:"created_at"`
	StoryText   string `json:"story_text"`
}

func NewHackerNews(deps Deps) *HackerNewsProvider {
	policy := retry.Default(IsRetryable)
	policy.MaxAttempts = 2
	return &HackerNewsProvider{
		deps:    deps,
		apiBase: defaultAlgoliaBase,
		client:  &http.Client{Timeout: deps.Config.Timeout},
		policy:  policy,
	}
}

func (p *HackerNewsProvider) Platform() models.Platform {
	return models.PlatformHackerNews
}

func (p *HackerNewsProvider) CacheKey() string {
	return "trends:hackernews:front-page"
}

func (p *HackerNewsProvider) Fetch(ctx context.Context) ([]models.TrendRecord, error) {
	return p.deps.run(ctx, p.Platform(), p.CacheKey(), p.policy, p.fetchOnce)
}

func (p *HackerNewsProvider) fetchOnce(ctx context.Context) ([]models.TrendRecord, error) {
	url := fmt.Sprintf("%s/search?tags=front_page&hitsPerPage=%d", p.apiBase, p.deps.Config.MaxItems)

	var resp algoliaResponse
	if err := p.deps.getJSON(ctx, p.client, "hackernews", url, nil, &resp); err != nil {
		return nil, err
	}
	return p.normalize(&resp, time.Now()), nil
}

func (p *HackerNewsProvider) normalize(resp *algoliaResponse, now time.Time) []models.TrendRecord {
	records := make([]models.TrendRecord, 0, len(resp.Hits))
	for i, hit := range resp.Hits {
		if i >= p.deps.Config.MaxItems {
			break
		}
		if hit.Title == "" {
			continue
		}

		timestamp := now
		if t, err := time.Parse(time.RFC3339, hit.CreatedAt); err == nil {
			timestamp = t
		}

		// Ask HN style posts carry no external URL.
		link := hit.URL
		if link == "" {
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}

		points := hit.Points
		if points < 0 {
			points = 0
		}

		description := truncate(cleanText(hit.StoryText), 300)
		records = append(records, models.TrendRecord{
			Name:        hit.Title,
			Description: description,
			URL:         link,
			Platform:    models.PlatformHackerNews,
			Category:    p.deps.Categorizer.Categorize(hit.Title, description),
			Volume:      points,
			Timestamp:   timestamp,
			Sentiment:   p.deps.Analyzer.Analyze(hit.Title + " " + description),
			Growth:      p.deps.growth(models.PlatformHackerNews, hit.Title, points),
			Engagement: map[string]int{
				"points":   points,
				"comments": hit.NumComments,
			},
		})
	}
	return records
}
