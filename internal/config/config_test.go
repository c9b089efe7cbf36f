package config

import (
	"testing"
	"time"
)

func TestLoadProvidersConfig_Defaults(t *testing.T) {
	cfg := loadProvidersConfig()

	if cfg.RedditSubreddit != "all" {
		t.Errorf("expected default subreddit 'all', got %q", cfg.RedditSubreddit)
	}
	if cfg.MaxItems != 25 {
		t.Errorf("expected default max items 25, got %d", cfg.MaxItems)
	}
	if cfg.NewsTTL != 30*time.Minute {
		t.Errorf("expected default news TTL 30m, got %v", cfg.NewsTTL)
	}
	if cfg.Timeout != 15*time.Second {
		t.Errorf("expected default timeout 15s, got %v", cfg.Timeout)
	}
	if cfg.NewsFeedURL == "" {
		t.Error("expected a default news feed URL")
	}
}

func TestLoadProvidersConfig_EnvOverrides(t *testing.T) {
	t.Setenv("NEWS_API_KEY", "news-key")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("REDDIT_SUBREDDIT", "golang")
	t.Setenv("NEWS_CACHE_TTL", "1h")
	t.Setenv("PROVIDER_MAX_ITEMS", "10")

	cfg := loadProvidersConfig()

	if cfg.NewsAPIKey != "news-key" {
		t.Errorf("expected news key override, got %q", cfg.NewsAPIKey)
	}
	if cfg.YouTubeAPIKey != "yt-key" {
		t.Errorf("expected youtube key override, got %q", cfg.YouTubeAPIKey)
	}
	if cfg.GitHubToken != "gh-token" {
		t.Errorf("expected github token override, got %q", cfg.GitHubToken)
	}
	if cfg.RedditSubreddit != "golang" {
		t.Errorf("expected subreddit override, got %q", cfg.RedditSubreddit)
	}
	if cfg.NewsTTL != time.Hour {
		t.Errorf("expected news TTL override, got %v", cfg.NewsTTL)
	}
	if cfg.MaxItems != 10 {
		t.Errorf("expected max items override, got %d", cfg.MaxItems)
	}
}

func TestLoadProvidersConfig_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("NEWS_CACHE_TTL", "not-a-duration")
	t.Setenv("PROVIDER_MAX_ITEMS", "plenty")

	cfg := loadProvidersConfig()

	if cfg.NewsTTL != 30*time.Minute {
		t.Errorf("expected invalid TTL ignored, got %v", cfg.NewsTTL)
	}
	if cfg.MaxItems != 25 {
		t.Errorf("expected invalid max items ignored, got %d", cfg.MaxItems)
	}
}

func TestPostgresDSN(t *testing.T) {
	s := SnapshotConfig{
		PostgresHost: "db.internal",
		PostgresPort: 5433,
		PostgresUser: "trends",
		PostgresPass: "secret",
		PostgresDB:   "trendpulse",
		PostgresSSL:  "require",
	}

	want := "host=db.internal port=5433 user=trends password=secret dbname=trendpulse sslmode=require"
	if got := s.PostgresDSN(); got != want {
		t.Errorf("PostgresDSN() = %q, want %q", got, want)
	}
}

func TestEnvOverrideHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_DUR", "90s")

	s := "default"
	overrideString(&s, "TEST_STR")
	if s != "value" {
		t.Errorf("overrideString: got %q", s)
	}

	n := 1
	overrideInt(&n, "TEST_INT")
	if n != 42 {
		t.Errorf("overrideInt: got %d", n)
	}

	d := time.Second
	overrideDuration(&d, "TEST_DUR")
	if d != 90*time.Second {
		t.Errorf("overrideDuration: got %v", d)
	}

	unset := "kept"
	overrideString(&unset, "TEST_MISSING")
	if unset != "kept" {
		t.Errorf("expected missing env to keep value, got %q", unset)
	}
}
