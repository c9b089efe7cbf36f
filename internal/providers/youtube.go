package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trendpulse/internal/models"
	"trendpulse/internal/retry"
)

const defaultYouTubeAPIBase = "https://www.googleapis.com/youtube/v3/videos"

// YouTubeProvider fetches the most-popular videos chart from the YouTube
// Data API. Requires an API key; without one the provider is not
// registered at all.
type YouTubeProvider struct {
	deps    Deps
	apiKey  string
	apiBase string
	client  *http.Client
	policy  retry.Policy
}

type youtubeResponse struct {
	Items []youtubeVideo `json:"items"`
}

type youtubeVideo struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
		ChannelName string `json:"channelTitle"`
	} `json:"snippet"`
	// The Data API serializes all statistics counters as strings.
	Statistics struct {
		ViewCount    string `json:"viewCount"`
		LikeCount    string `json:"likeCount"`
		CommentCount string `json:"commentCount"`
	} `json:"statistics"`
}

func NewYouTube(apiKey string, deps Deps) *YouTubeProvider {
	return &YouTubeProvider{
		deps:    deps,
		apiKey:  apiKey,
		apiBase: defaultYouTubeAPIBase,
		client:  &http.Client{Timeout: deps.Config.Timeout},
		policy:  retry.Default(IsRetryable),
	}
}

func (p *YouTubeProvider) Platform() models.Platform {
	return models.PlatformYouTube
}

func (p *YouTubeProvider) CacheKey() string {
	return "trends:youtube:most-popular"
}

func (p *YouTubeProvider) Fetch(ctx context.Context) ([]models.TrendRecord, error) {
	return p.deps.run(ctx, p.Platform(), p.CacheKey(), p.policy, p.fetchOnce)
}

func (p *YouTubeProvider) fetchOnce(ctx context.Context) ([]models.TrendRecord, error) {
	query := url.Values{}
	query.Set("part", "snippet,statistics")
	query.Set("chart", "mostPopular")
	query.Set("regionCode", "US")
	query.Set("maxResults", fmt.Sprintf("%d", p.deps.Config.MaxItems))
	query.Set("key", p.apiKey)

	var resp youtubeResponse
	if err := p.deps.getJSON(ctx, p.client, "youtube", p.apiBase+"?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return p.normalize(&resp, time.Now()), nil
}

func (p *YouTubeProvider) normalize(resp *youtubeResponse, now time.Time) []models.TrendRecord {
	records := make([]models.TrendRecord, 0, len(resp.Items))
	for i, video := range resp.Items {
		if i >= p.deps.Config.MaxItems {
			break
		}
		if video.Snippet.Title == "" {
			continue
		}

		timestamp := now
		if t, err := time.Parse(time.RFC3339, video.Snippet.PublishedAt); err == nil {
			timestamp = t
		}

		views := parseCount(video.Statistics.ViewCount)
		likes := parseCount(video.Statistics.LikeCount)
		comments := parseCount(video.Statistics.CommentCount)

		description := truncate(cleanText(video.Snippet.Description), 300)
		records = append(records, models.TrendRecord{
			Name:        video.Snippet.Title,
			Description: description,
			URL:         "https://www.youtube.com/watch?v=" + video.ID,
			Platform:    models.PlatformYouTube,
			Category:    p.deps.Categorizer.Categorize(video.Snippet.Title, description),
			Volume:      views,
			Timestamp:   timestamp,
			Sentiment:   p.deps.Analyzer.Analyze(video.Snippet.Title + " " + description),
			Growth:      p.deps.growth(models.PlatformYouTube, video.Snippet.Title, views),
			Engagement: map[string]int{
				"likes":    likes,
				"comments": comments,
			},
		})
	}
	return records
}

func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
