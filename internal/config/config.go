package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	Providers  ProvidersConfig
	Aggregator AggregatorConfig
	Snapshot   SnapshotConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr string
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// ProvidersConfig holds per-provider credentials and fetch settings.
// A missing credential disables that one provider; keyless providers
// (reddit, hackernews) are always on, and news/github degrade to their
// keyless modes instead of shutting off.
type ProvidersConfig struct {
	NewsAPIKey      string
	NewsFeedURL     string
	NewsTTL         time.Duration
	YouTubeAPIKey   string
	GitHubToken     string
	RedditSubreddit string
	MaxItems        int
	Timeout         time.Duration
}

// AggregatorConfig holds fan-out settings
type AggregatorConfig struct {
	JoinTimeout time.Duration
}

// SnapshotConfig selects and configures the snapshot store backend
type SnapshotConfig struct {
	Backend       string // "memory", "postgres", or "dynamodb"
	PostgresHost  string
	PostgresPort  int
	PostgresUser  string
	PostgresPass  string
	PostgresDB    string
	PostgresSSL   string
	DynamoDBTable string
	AWSRegion     string
}

// PostgresDSN builds a lib/pq connection string from the parts.
func (s SnapshotConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.PostgresHost, s.PostgresPort, s.PostgresUser, s.PostgresPass, s.PostgresDB, s.PostgresSSL)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	httpAddr := flag.String("http", ":8080", "HTTP server address")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	cacheTTL := flag.Duration("cache-ttl", 5*time.Minute, "Default cache TTL for provider results")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	joinTimeout := flag.Duration("join-timeout", 45*time.Second, "Maximum time to wait for slow providers")
	snapshotBackend := flag.String("snapshot-backend", "memory", "Snapshot store: memory, postgres, or dynamodb")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "trendpulse", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	flag.Parse()

	overrideString(httpAddr, "HTTP_ADDR")
	overrideString(cacheBackend, "CACHE_BACKEND")
	overrideDuration(cacheTTL, "CACHE_TTL")
	overrideString(redisAddr, "REDIS_ADDR")
	overrideDuration(joinTimeout, "JOIN_TIMEOUT")
	overrideString(snapshotBackend, "SNAPSHOT_BACKEND")
	overrideString(logLevel, "LOG_LEVEL")
	overrideString(dbHost, "DB_HOST")
	overrideInt(dbPort, "DB_PORT")
	overrideString(dbUser, "DB_USER")
	overrideString(dbPassword, "DB_PASSWORD")
	overrideString(dbName, "DB_NAME")
	overrideString(dbSSLMode, "DB_SSLMODE")

	return &Config{
		Server: ServerConfig{
			HTTPAddr: *httpAddr,
		},
		Cache: CacheConfig{
			Backend:       *cacheBackend,
			TTL:           *cacheTTL,
			RedisAddr:     *redisAddr,
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       envInt("REDIS_DB", 0),
		},
		Providers:  loadProvidersConfig(),
		Aggregator: AggregatorConfig{JoinTimeout: *joinTimeout},
		Snapshot: SnapshotConfig{
			Backend:       *snapshotBackend,
			PostgresHost:  *dbHost,
			PostgresPort:  *dbPort,
			PostgresUser:  *dbUser,
			PostgresPass:  *dbPassword,
			PostgresDB:    *dbName,
			PostgresSSL:   *dbSSLMode,
			DynamoDBTable: getEnvOrDefault("DYNAMODB_TABLE", "TrendSnapshots"),
			AWSRegion:     os.Getenv("AWS_REGION"),
		},
		Logging: LoggingConfig{
			Level: *logLevel,
		},
	}
}

func loadProvidersConfig() ProvidersConfig {
	// NewsAPI has a strict daily quota, so its results stay cached much
	// longer than the keyless providers'.
	newsTTL := 30 * time.Minute
	if v := os.Getenv("NEWS_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			newsTTL = d
		}
	}

	timeout := 15 * time.Second
	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}

	return ProvidersConfig{
		NewsAPIKey:      os.Getenv("NEWS_API_KEY"),
		NewsFeedURL:     getEnvOrDefault("NEWS_FEED_URL", "https://feeds.bbci.co.uk/news/world/rss.xml"),
		NewsTTL:         newsTTL,
		YouTubeAPIKey:   os.Getenv("YOUTUBE_API_KEY"),
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		RedditSubreddit: getEnvOrDefault("REDDIT_SUBREDDIT", "all"),
		MaxItems:        envInt("PROVIDER_MAX_ITEMS", 25),
		Timeout:         timeout,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func overrideString(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func overrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func overrideDuration(target *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}
