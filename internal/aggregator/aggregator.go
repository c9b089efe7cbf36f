package aggregator

import (
	"context"
	"sync"
	"time"

	"trendpulse/internal/cache"
	"trendpulse/internal/logging"
	"trendpulse/internal/models"
	"trendpulse/internal/providers"
	"trendpulse/internal/scoring"
	"trendpulse/internal/snapshot"
)

const (
	// DefaultJoinTimeout bounds how long one aggregation waits for slow
	// providers before serving what has settled so far.
	DefaultJoinTimeout = 45 * time.Second

	snapshotSaveTimeout = 10 * time.Second
)

// Engine fans a trend request out to every configured provider, joins the
// results with a timeout, backfills failures from stale cache, and hands
// the merged result to the scoring layer.
type Engine struct {
	providers   []providers.Provider
	cache       cache.Cache
	baseline    *VolumeBaseline
	gateway     *snapshot.Gateway
	logger      *logging.Logger
	joinTimeout time.Duration
	now         func() time.Time
}

func New(provs []providers.Provider, c cache.Cache, baseline *VolumeBaseline, gateway *snapshot.Gateway, logger *logging.Logger) *Engine {
	return &Engine{
		providers:   provs,
		cache:       c,
		baseline:    baseline,
		gateway:     gateway,
		logger:      logger,
		joinTimeout: DefaultJoinTimeout,
		now:         time.Now,
	}
}

// SetJoinTimeout overrides the settle deadline. Zero or negative keeps the
// default.
func (e *Engine) SetJoinTimeout(d time.Duration) {
	if d > 0 {
		e.joinTimeout = d
	}
}

// HydrateBaseline seeds the growth baseline from the latest persisted
// snapshot so the first run after a restart still has growth data.
func (e *Engine) HydrateBaseline(ctx context.Context) {
	if e.gateway == nil || e.baseline == nil {
		return
	}
	snap, ok := e.gateway.Latest(ctx)
	if !ok {
		return
	}
	e.baseline.Hydrate(snap)
	e.logger.Info("Hydrated growth baseline from snapshot", logging.WithField("snapshot_id", snap.ID))
}

// GetAllPlatformTrends runs one full aggregation. Every configured
// platform appears in the result map; a provider that fails and has no
// stale cache contributes an empty slice. Provider failures never surface
// as errors; the error return fires only when the caller's context is
// done. The merged snapshot is persisted in the background and never
// blocks the response.
func (e *Engine) GetAllPlatformTrends(ctx context.Context) (models.TrendsResult, error) {
	var wg sync.WaitGroup
	results := make(chan providers.Result, len(e.providers))

	for _, p := range e.providers {
		wg.Add(1)
		go func(p providers.Provider) {
			defer wg.Done()

			records, err := p.Fetch(ctx)
			results <- providers.Result{
				Platform: p.Platform(),
				Records:  records,
				Err:      err,
			}
		}(p)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	trends := make(map[models.Platform][]models.TrendRecord, len(e.providers))
	fresh := make(map[models.Platform][]models.TrendRecord, len(e.providers))
	settled := make(map[models.Platform]bool, len(e.providers))

	timeout := time.NewTimer(e.joinTimeout)
	defer timeout.Stop()

collect:
	for settledCount := 0; settledCount < len(e.providers); {
		select {
		case result, ok := <-results:
			if !ok {
				break collect
			}
			settledCount++
			settled[result.Platform] = true

			if result.Err != nil {
				e.logger.Warn("Provider fetch failed", logging.WithFields(map[string]interface{}{
					"platform": string(result.Platform),
					"error":    result.Err.Error(),
				}))
				trends[result.Platform] = e.staleRecords(result.Platform)
				continue
			}

			records := result.Records
			if records == nil {
				records = []models.TrendRecord{}
			}
			trends[result.Platform] = records
			fresh[result.Platform] = records
		case <-timeout.C:
			e.logger.Warn("Aggregation join timeout reached", logging.WithField("timeout", e.joinTimeout.String()))
			break collect
		}
	}

	// Providers that never settled before the deadline get the same stale
	// fallback as outright failures.
	for _, p := range e.providers {
		if settled[p.Platform()] {
			continue
		}
		trends[p.Platform()] = e.staleRecords(p.Platform())
	}

	if err := ctx.Err(); err != nil {
		return models.TrendsResult{}, err
	}

	e.logger.Info("Aggregation complete", logging.WithFields(map[string]interface{}{
		"platforms": len(trends),
		"fresh":     len(fresh),
	}))

	if e.baseline != nil {
		e.baseline.Record(fresh)
	}

	result := models.TrendsResult{
		Trends:    trends,
		Analysis:  scoring.Analyze(trends),
		FetchedAt: e.now().UTC(),
	}

	e.persistAsync(result)
	return result, nil
}

// staleRecords serves the last cached payload for a platform regardless of
// TTL. Stale data is better than an empty slice when the live call failed.
func (e *Engine) staleRecords(platform models.Platform) []models.TrendRecord {
	if e.cache == nil {
		return []models.TrendRecord{}
	}
	key := e.cacheKeyFor(platform)
	if key == "" {
		return []models.TrendRecord{}
	}

	cached, ok := e.cache.GetStale(key)
	if !ok {
		return []models.TrendRecord{}
	}
	records, ok := providers.RecordsFromCache(cached)
	if !ok {
		return []models.TrendRecord{}
	}

	e.logger.Info("Serving stale cache for platform", logging.WithFields(map[string]interface{}{
		"platform": string(platform),
		"count":    len(records),
	}))
	return records
}

func (e *Engine) cacheKeyFor(platform models.Platform) string {
	for _, p := range e.providers {
		if p.Platform() == platform {
			return p.CacheKey()
		}
	}
	return ""
}

// persistAsync hands the finished run to the snapshot gateway without
// blocking the caller. The save uses its own context so an already
// cancelled request cannot abort it.
func (e *Engine) persistAsync(result models.TrendsResult) {
	if e.gateway == nil {
		return
	}

	snap := models.Snapshot{
		Trends:    result.Trends,
		Analysis:  result.Analysis,
		Timestamp: result.FetchedAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotSaveTimeout)
		defer cancel()

		id := e.gateway.Save(ctx, snap)
		e.logger.Debug("Persisted trend snapshot", logging.WithField("snapshot_id", id))
	}()
}
