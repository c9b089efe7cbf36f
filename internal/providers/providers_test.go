package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"trendpulse/internal/cache"
	"trendpulse/internal/category"
	"trendpulse/internal/models"
	"trendpulse/internal/ratelimit"
	"trendpulse/internal/sentiment"
	"trendpulse/internal/testutil"
)

func testDeps(c cache.Cache) Deps {
	limiter := ratelimit.New(ratelimit.Config{})
	limiter.SetMaxWait(time.Second)
	return Deps{
		Cache:       c,
		Limiter:     limiter,
		Analyzer:    sentiment.NewAnalyzer(),
		Categorizer: category.New(),
		Logger:      testutil.NullLogger(),
		Config: Config{
			Timeout:   5 * time.Second,
			MaxItems:  25,
			UserAgent: "trendpulse-test/1.0",
		},
		TTL: time.Minute,
	}
}

const redditBody = `{
	"data": {"children": [
		{"data": {"id": "a1", "title": "Record growth in open source AI", "selftext": "details", "permalink": "/r/all/a1", "created_utc": 1700000000, "score": 500, "ups": 500, "num_comments": 42}},
		{"data": {"id": "a2", "title": "General post", "selftext": "", "permalink": "/r/all/a2", "created_utc": 1700000100, "score": 300, "ups": 310, "num_comments": 7}}
	]}
}`

func TestRedditProvider_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "trendpulse-test/1.0" {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Write([]byte(redditBody))
	}))
	defer server.Close()

	p := NewReddit("all", testDeps(cache.NewMemory(time.Minute)))
	p.apiBase = server.URL

	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Fetch() returned %d records, want 2", len(records))
	}

	first := records[0]
	if first.Platform != models.PlatformReddit {
		t.Errorf("Platform = %v, want reddit", first.Platform)
	}
	if first.Volume != 500 {
		t.Errorf("Volume = %d, want 500", first.Volume)
	}
	if first.Engagement["comments"] != 42 {
		t.Errorf("Engagement[comments] = %d, want 42", first.Engagement["comments"])
	}
	if first.Sentiment != models.SentimentPositive {
		t.Errorf("Sentiment = %v, want Positive for growth keyword", first.Sentiment)
	}
	if first.Category != "ai" {
		t.Errorf("Category = %q, want %q", first.Category, "ai")
	}
	if first.Timestamp.Unix() != 1700000000 {
		t.Errorf("Timestamp = %v, want provider creation time", first.Timestamp)
	}
}

func TestRedditProvider_NormalizeInvariants(t *testing.T) {
	p := NewReddit("all", testDeps(nil))

	resp := &redditResponse{}
	resp.Data.Children = []struct {
		Data redditPost `json:"data"`
	}{
		{Data: redditPost{Title: "Negative score post", Permalink: "/r/all/x", Score: -5}},
		{Data: redditPost{Title: "Another", Permalink: "/r/all/y", Score: 10, Ups: 12, NumComms: 3}},
		{Data: redditPost{Title: "", Permalink: "/r/all/skipped"}},
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	records := p.normalize(resp, now)

	if len(records) != 2 {
		t.Fatalf("normalize() returned %d records, want 2 (untitled post skipped)", len(records))
	}
	for _, rec := range records {
		if rec.Volume < 0 {
			t.Errorf("Volume = %d, must be >= 0", rec.Volume)
		}
		switch rec.Sentiment {
		case models.SentimentPositive, models.SentimentNegative, models.SentimentNeutral:
		default:
			t.Errorf("Sentiment = %q, not a valid label", rec.Sentiment)
		}
		if rec.Platform != models.PlatformReddit {
			t.Errorf("Platform = %q, want reddit", rec.Platform)
		}
	}
	if !records[0].Timestamp.Equal(now) {
		t.Errorf("missing created_utc should fall back to now, got %v", records[0].Timestamp)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	p := NewReddit("all", testDeps(nil))

	resp := &redditResponse{}
	resp.Data.Children = []struct {
		Data redditPost `json:"data"`
	}{
		{Data: redditPost{Title: "Security breach hits startup", Selftext: "bad news", Permalink: "/r/all/z", Created: 1700000000, Score: 77, NumComms: 5}},
	}

	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	first := p.normalize(resp, now)
	second := p.normalize(resp, now)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize() not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestHackerNewsProvider_Fetch(t *testing.T) {
	body := `{"hits": [
		{"objectID": "1", "title": "Show HN: a new tool", "url": "https://example.com/tool", "points": 120, "num_comments": 30, "created_at": "2026-01-02T10:00:00Z"},
		{"objectID": "2", "title": "Ask HN: something", "url": "", "points": 40, "num_comments": 12, "created_at": "2026-01-02T09:00:00Z"}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	p := NewHackerNews(testDeps(cache.NewMemory(time.Minute)))
	p.apiBase = server.URL

	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Fetch() returned %d records, want 2", len(records))
	}
	if records[0].Volume != 120 {
		t.Errorf("Volume = %d, want 120", records[0].Volume)
	}
	if records[0].Engagement["points"] != 120 || records[0].Engagement["comments"] != 30 {
		t.Errorf("Engagement = %v, want points=120 comments=30", records[0].Engagement)
	}
	if records[1].URL != "https://news.ycombinator.com/item?id=2" {
		t.Errorf("URL = %q, want HN item link for posts without an external URL", records[1].URL)
	}
}

func TestNewsProvider_APIMode(t *testing.T) {
	body := `{"status": "ok", "articles": [
		{"source": {"name": "Example"}, "title": "Markets surge on earnings", "description": "Stocks boost expected", "url": "https://example.com/markets", "publishedAt": "2026-01-02T08:00:00Z"}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	p := NewNews("test-key", "", testDeps(cache.NewMemory(time.Minute)))
	p.apiBase = server.URL

	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(records))
	}
	if records[0].Volume != 0 {
		t.Errorf("Volume = %d, want 0 (NewsAPI has no popularity metric)", records[0].Volume)
	}
	if records[0].Category != "business" {
		t.Errorf("Category = %q, want business", records[0].Category)
	}
	if records[0].Sentiment != models.SentimentPositive {
		t.Errorf("Sentiment = %v, want Positive", records[0].Sentiment)
	}
}

func TestNewsProvider_RSSFallbackMode(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel>
	<title>Headlines</title>
	<item>
		<title>Science study released</title>
		<link>https://example.com/study</link>
		<description>A new research study</description>
		<pubDate>Fri, 02 Jan 2026 08:00:00 GMT</pubDate>
	</item>
</channel></rss>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rss))
	}))
	defer server.Close()

	p := NewNews("", server.URL, testDeps(cache.NewMemory(time.Minute)))

	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(records))
	}
	if records[0].Name != "Science study released" {
		t.Errorf("Name = %q", records[0].Name)
	}
	if records[0].Category != "science" {
		t.Errorf("Category = %q, want science", records[0].Category)
	}
}

func TestYouTubeProvider_Fetch(t *testing.T) {
	body := `{"items": [
		{"id": "v1", "snippet": {"title": "Amazing launch video", "description": "rocket test", "publishedAt": "2026-01-01T00:00:00Z", "channelTitle": "SpaceChannel"},
		 "statistics": {"viewCount": "100000", "likeCount": "5000", "commentCount": "300"}}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	p := NewYouTube("yt-key", testDeps(cache.NewMemory(time.Minute)))
	p.apiBase = server.URL

	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(records))
	}
	if records[0].Volume != 100000 {
		t.Errorf("Volume = %d, want 100000", records[0].Volume)
	}
	if records[0].Engagement["likes"] != 5000 || records[0].Engagement["comments"] != 300 {
		t.Errorf("Engagement = %v", records[0].Engagement)
	}
	if records[0].URL != "https://www.youtube.com/watch?v=v1" {
		t.Errorf("URL = %q", records[0].URL)
	}
}

func TestGitHubProvider_SearchMode(t *testing.T) {
	body := `{"items": [
		{"full_name": "acme/rocket", "description": "a build tool", "html_url": "https://github.com/acme/rocket",
		 "stargazers_count": 900, "forks_count": 40, "open_issues_count": 5, "watchers_count": 900,
		 "created_at": "2026-01-01T00:00:00Z", "language": "Go"}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer gh-token" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	p := NewGitHub("gh-token", testDeps(cache.NewMemory(time.Minute)))
	p.apiBase = server.URL

	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(records))
	}
	if records[0].Volume != 900 {
		t.Errorf("Volume = %d, want 900", records[0].Volume)
	}
	if records[0].Engagement["forks"] != 40 {
		t.Errorf("Engagement[forks] = %d, want 40", records[0].Engagement["forks"])
	}
}

func TestGitHubProvider_ScrapeFallback(t *testing.T) {
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer apiServer.Close()

	page := `<html><body>
		<article class="Box-row">
			<h2><a href="/acme/widget">acme / widget</a></h2>
			<p>A trending widget library</p>
			<a href="/acme/widget/stargazers">1,234</a>
		</article>
	</body></html>`
	trendingServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer trendingServer.Close()

	p := NewGitHub("", testDeps(cache.NewMemory(time.Minute)))
	p.apiBase = apiServer.URL
	p.trendingURL = trendingServer.URL

	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Fetch() returned %d records, want 1", len(records))
	}
	if records[0].Name != "acme/widget" {
		t.Errorf("Name = %q, want acme/widget", records[0].Name)
	}
	if records[0].Volume != 1234 {
		t.Errorf("Volume = %d, want 1234", records[0].Volume)
	}
}

func TestProvider_CacheHitSkipsNetwork(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(redditBody))
	}))
	defer server.Close()

	p := NewReddit("all", testDeps(cache.NewMemory(time.Minute)))
	p.apiBase = server.URL

	if _, err := p.Fetch(context.Background()); err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}
	if _, err := p.Fetch(context.Background()); err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("provider hit the network %d times, want 1 (second call served from cache)", calls)
	}
}

func TestProvider_RateLimitResponseSetsDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	deps := testDeps(cache.NewMemory(time.Minute))
	p := NewHackerNews(deps)
	p.apiBase = server.URL
	p.policy.BaseDelay = time.Millisecond

	if _, err := p.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() should fail on persistent 429")
	}

	if _, ok := deps.Limiter.RetryAfterDeadline(string(models.PlatformHackerNews)); !ok {
		t.Error("limiter should hold a retry-after deadline after a 429 response")
	}
}

func TestProvider_PermanentErrorNoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := NewReddit("all", testDeps(cache.NewMemory(time.Minute)))
	p.apiBase = server.URL

	if _, err := p.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() should fail on 403")
	}
	if calls != 1 {
		t.Errorf("provider made %d calls, want 1 (403 is not retryable)", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"429", &StatusError{Code: http.StatusTooManyRequests}, true},
		{"503", &StatusError{Code: http.StatusServiceUnavailable}, true},
		{"403", &StatusError{Code: http.StatusForbidden}, false},
		{"404", &StatusError{Code: http.StatusNotFound}, false},
		{"500", &StatusError{Code: http.StatusInternalServerError}, false},
		{"nil-ish plain error", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestRecordsFromCache_RoundTrip(t *testing.T) {
	records := []models.TrendRecord{
		{Name: "a", Platform: models.PlatformNews, Volume: 10, Sentiment: models.SentimentNeutral, Category: "general"},
	}

	// Direct type assertion path (memory backend).
	got, ok := RecordsFromCache(records)
	if !ok || len(got) != 1 {
		t.Fatalf("RecordsFromCache() direct path failed: ok=%v len=%d", ok, len(got))
	}

	// JSON round-trip path (redis backend returns decoded interface{}).
	var decoded interface{} = []interface{}{
		map[string]interface{}{"name": "a", "platform": "news", "volume": float64(10), "sentiment": "Neutral", "category": "general"},
	}
	got, ok = RecordsFromCache(decoded)
	if !ok || len(got) != 1 {
		t.Fatalf("RecordsFromCache() JSON path failed: ok=%v len=%d", ok, len(got))
	}
	if got[0].Name != "a" || got[0].Volume != 10 {
		t.Errorf("RecordsFromCache() decoded %+v", got[0])
	}
}
