package models

import "time"

// Platform identifies one external trend provider.
type Platform string

const (
	PlatformNews       Platform = "news"
	PlatformYouTube    Platform = "youtube"
	PlatformReddit     Platform = "reddit"
	PlatformHackerNews Platform = "hackernews"
	PlatformGitHub     Platform = "github"
)

// AllPlatforms returns every known platform key in a stable order.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformNews,
		PlatformYouTube,
		PlatformReddit,
		PlatformHackerNews,
		PlatformGitHub,
	}
}

// Sentiment is the lexical sentiment label attached to a trend.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// TrendRecord is the normalized representation of one trending item from
// any platform. Records are immutable once built by a normalizer; the
// aggregator collects and reorders them but never mutates fields.
type TrendRecord struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url"`
	Platform    Platform       `json:"platform"`
	Category    string         `json:"category"`
	Volume      int            `json:"volume"`
	Timestamp   time.Time      `json:"timestamp"`
	Sentiment   Sentiment      `json:"sentiment"`
	Growth      *float64       `json:"growth,omitempty"`
	Engagement  map[string]int `json:"engagement,omitempty"`
}

// TrendsResult is what the engine hands to callers: per-platform trend
// lists plus a rendered analysis summary. Every configured platform key is
// present in Trends, with an empty slice standing in for a failed provider.
type TrendsResult struct {
	Trends    map[Platform][]TrendRecord `json:"trends"`
	Analysis  string                     `json:"analysis"`
	FetchedAt time.Time                  `json:"fetchedAt"`
}

// Snapshot is the unit offered to the persistence gateway after each
// aggregation. Saving is best-effort; the engine never waits on it.
type Snapshot struct {
	ID        string                     `json:"id,omitempty"`
	Trends    map[Platform][]TrendRecord `json:"trends"`
	Analysis  string                     `json:"analysis"`
	Timestamp time.Time                  `json:"timestamp"`
}
