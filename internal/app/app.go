package app

import (
	"context"
	"time"

	"trendpulse/internal/aggregator"
	"trendpulse/internal/cache"
	"trendpulse/internal/category"
	"trendpulse/internal/config"
	"trendpulse/internal/httpapi"
	"trendpulse/internal/logging"
	"trendpulse/internal/models"
	"trendpulse/internal/providers"
	"trendpulse/internal/ratelimit"
	"trendpulse/internal/sentiment"
	"trendpulse/internal/snapshot"
)

// App holds all application dependencies
type App struct {
	Config     *config.Config
	Logger     *logging.Logger
	Cache      cache.Cache
	Engine     *aggregator.Engine
	HTTPServer *httpapi.Server

	pgStore *snapshot.PostgresStore
}

// New creates and initializes a new App instance
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = app.initLogger()
	app.Cache = app.initCache()

	limiter := app.initLimiter()
	baseline := aggregator.NewVolumeBaseline()

	store := app.initSnapshotStore(ctx)
	gateway := snapshot.NewGateway(store, app.Logger)

	provs := app.initProviders(limiter, baseline)

	app.Engine = aggregator.New(provs, app.Cache, baseline, gateway, app.Logger)
	app.Engine.SetJoinTimeout(cfg.Aggregator.JoinTimeout)
	app.Engine.HydrateBaseline(ctx)

	app.HTTPServer = httpapi.New(app.Engine, app.Logger)

	return app, nil
}

// Run starts the HTTP server and blocks until it stops
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.HTTPServer.Start(a.Config.Server.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		a.Logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.pgStore != nil {
		if err := a.pgStore.Close(); err != nil {
			a.Logger.Error("Snapshot store close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initLogger() *logging.Logger {
	level := logging.LevelInfo
	switch a.Config.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(level)
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:     a.Config.Cache.RedisAddr,
			Password: a.Config.Cache.RedisPassword,
			DB:       a.Config.Cache.RedisDB,
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

func (a *App) initLimiter() *ratelimit.Limiter {
	limiter := ratelimit.New(ratelimit.DefaultConfig())

	// NewsAPI's free tier is a small daily quota, so a rejected call backs
	// off for a full day unless the response says otherwise.
	limiter.Configure(string(models.PlatformNews), ratelimit.Config{
		MaxRequests:        50,
		Window:             time.Hour,
		MinInterval:        2 * time.Second,
		RetryAfterFallback: 24 * time.Hour,
	})
	limiter.Configure(string(models.PlatformYouTube), ratelimit.Config{
		MaxRequests:        100,
		Window:             time.Minute,
		MinInterval:        time.Second,
		RetryAfterFallback: time.Hour,
	})
	limiter.Configure(string(models.PlatformReddit), ratelimit.Config{
		MaxRequests:        60,
		Window:             time.Minute,
		MinInterval:        time.Second,
		RetryAfterFallback: 10 * time.Minute,
	})
	limiter.Configure(string(models.PlatformHackerNews), ratelimit.Config{
		MaxRequests:        100,
		Window:             time.Minute,
		MinInterval:        500 * time.Millisecond,
		RetryAfterFallback: 5 * time.Minute,
	})
	limiter.Configure(string(models.PlatformGitHub), ratelimit.Config{
		MaxRequests:        30,
		Window:             time.Minute,
		MinInterval:        time.Second,
		RetryAfterFallback: time.Hour,
	})

	return limiter
}

func (a *App) initSnapshotStore(ctx context.Context) snapshot.Store {
	switch a.Config.Snapshot.Backend {
	case "postgres":
		store, err := snapshot.NewPostgresStore(ctx, a.Config.Snapshot.PostgresDSN(), a.Logger)
		if err != nil {
			a.Logger.Error("Failed to connect to postgres, falling back to memory snapshots", logging.WithField("error", err.Error()))
			return snapshot.NewMemoryStore(100)
		}
		a.pgStore = store
		return store
	case "dynamodb":
		store, err := snapshot.NewDynamoStore(ctx, a.Config.Snapshot.DynamoDBTable, a.Config.Snapshot.AWSRegion, a.Logger)
		if err != nil {
			a.Logger.Error("Failed to connect to dynamodb, falling back to memory snapshots", logging.WithField("error", err.Error()))
			return snapshot.NewMemoryStore(100)
		}
		return store
	default:
		a.Logger.Info("Using in-memory snapshot store")
		return snapshot.NewMemoryStore(100)
	}
}

func (a *App) initProviders(limiter *ratelimit.Limiter, baseline providers.Baseline) []providers.Provider {
	providerCfg := providers.DefaultConfig()
	if a.Config.Providers.MaxItems > 0 {
		providerCfg.MaxItems = a.Config.Providers.MaxItems
	}
	if a.Config.Providers.Timeout > 0 {
		providerCfg.Timeout = a.Config.Providers.Timeout
	}

	deps := providers.Deps{
		Cache:       a.Cache,
		Limiter:     limiter,
		Analyzer:    sentiment.NewAnalyzer(),
		Categorizer: category.New(),
		Baseline:    baseline,
		Logger:      a.Logger,
		Config:      providerCfg,
		TTL:         a.Config.Cache.TTL,
	}

	newsDeps := deps
	newsDeps.TTL = a.Config.Providers.NewsTTL

	provs := []providers.Provider{
		providers.NewNews(a.Config.Providers.NewsAPIKey, a.Config.Providers.NewsFeedURL, newsDeps),
		providers.NewReddit(a.Config.Providers.RedditSubreddit, deps),
		providers.NewHackerNews(deps),
		providers.NewGitHub(a.Config.Providers.GitHubToken, deps),
	}

	// YouTube has no keyless mode; without a key the provider is left out
	// entirely rather than guaranteed to fail every run.
	if a.Config.Providers.YouTubeAPIKey != "" {
		provs = append(provs, providers.NewYouTube(a.Config.Providers.YouTubeAPIKey, deps))
	} else {
		a.Logger.Warn("YOUTUBE_API_KEY not set, youtube provider disabled")
	}

	if a.Config.Providers.NewsAPIKey == "" {
		a.Logger.Info("NEWS_API_KEY not set, news provider running in RSS mode",
			logging.WithField("feed", a.Config.Providers.NewsFeedURL))
	}
	if a.Config.Providers.GitHubToken == "" {
		a.Logger.Info("GITHUB_TOKEN not set, github provider using unauthenticated quota")
	}

	return provs
}
