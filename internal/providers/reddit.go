package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"trendpulse/internal/models"
	"trendpulse/internal/retry"
)

const defaultRedditBase = "https://www.reddit.com"

// RedditProvider fetches the hot listing of a subreddit (r/all by
// default). The public JSON endpoint needs no credentials but is strict
// about user agents and request spacing.
type RedditProvider struct {
	deps      Deps
	subreddit string
	apiBase   string
	client    *http.Client
	policy    retry.Policy
}

type redditResponse struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Permalink string  `json:"permalink"`
	Created   float64 `json:"created_utc"`
	Score     int     `json:"score"`
	Ups       int     `json:"ups"`
	NumComms  int     `json:"num_comments"`
	Subreddit string  `json:"subreddit"`
}

func NewReddit(subreddit string, deps Deps) *RedditProvider {
	if subreddit == "" {
		subreddit = "all"
	}
	return &RedditProvider{
		deps:      deps,
		subreddit: subreddit,
		apiBase:   defaultRedditBase,
		client:    &http.Client{Timeout: deps.Config.Timeout},
		policy:    retry.Default(IsRetryable),
	}
}

func (p *RedditProvider) Platform() models.Platform {
	return models.PlatformReddit
}

func (p *RedditProvider) CacheKey() string {
	return "trends:reddit:" + p.subreddit
}

func (p *RedditProvider) Fetch(ctx context.Context) ([]models.TrendRecord, error) {
	return p.deps.run(ctx, p.Platform(), p.CacheKey(), p.policy, p.fetchOnce)
}

func (p *RedditProvider) fetchOnce(ctx context.Context) ([]models.TrendRecord, error) {
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", p.apiBase, p.subreddit, p.deps.Config.MaxItems)

	var resp redditResponse
	if err := p.deps.getJSON(ctx, p.client, "reddit", url, nil, &resp); err != nil {
		return nil, err
	}
	return p.normalize(&resp, time.Now()), nil
}

func (p *RedditProvider) normalize(resp *redditResponse, now time.Time) []models.TrendRecord {
	records := make([]models.TrendRecord, 0, len(resp.Data.Children))
	for i, child := range resp.Data.Children {
		if i >= p.deps.Config.MaxItems {
			break
		}
		post := child.Data
		if post.Title == "" {
			continue
		}

		timestamp := now
		if post.Created > 0 {
			timestamp = time.Unix(int64(post.Created), 0).UTC()
		}

		score := post.Score
		if score < 0 {
			score = 0
		}
		upvotes := post.Ups
		if upvotes <= 0 {
			upvotes = score
		}

		description := truncate(cleanText(post.Selftext), 300)
		records = append(records, models.TrendRecord{
			Name:        post.Title,
			Description: description,
			URL:         defaultRedditBase + post.Permalink,
			Platform:    models.PlatformReddit,
			Category:    p.deps.Categorizer.Categorize(post.Title, description),
			Volume:      score,
			Timestamp:   timestamp,
			Sentiment:   p.deps.Analyzer.Analyze(post.Title + " " + description),
			Growth:      p.deps.growth(models.PlatformReddit, post.Title, score),
			Engagement: map[string]int{
				"upvotes":  upvotes,
				"comments": post.NumComms,
			},
		})
	}
	return records
}
