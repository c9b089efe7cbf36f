package snapshot

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"trendpulse/internal/logging"
	"trendpulse/internal/models"
)

// Store persists aggregation snapshots. Implementations are external
// collaborators; the engine only ever talks to them through the Gateway.
type Store interface {
	Save(ctx context.Context, snap models.Snapshot) (string, error)
	// Latest returns the most recent snapshot, with ok=false when the
	// store is empty. Used to hydrate the growth baseline at startup.
	Latest(ctx context.Context) (models.Snapshot, bool, error)
}

// Gateway wraps a Store with the engine's best-effort contract: Save never
// fails. Any store error degrades to a locally generated placeholder ID
// and a logged warning.
type Gateway struct {
	store  Store
	logger *logging.Logger
}

func NewGateway(store Store, logger *logging.Logger) *Gateway {
	return &Gateway{store: store, logger: logger}
}

// Save offers the snapshot to the underlying store and always returns an
// identifier. Callers run it from a goroutine; it must not be invoked with
// any engine lock held.
func (g *Gateway) Save(ctx context.Context, snap models.Snapshot) string {
	if g.store == nil {
		return localID()
	}

	id, err := g.store.Save(ctx, snap)
	if err != nil {
		g.logger.Warn("Failed to persist trend snapshot", logging.WithField("error", err.Error()))
		return localID()
	}
	return id
}

// Latest loads the most recent persisted snapshot, swallowing errors the
// same way Save does.
func (g *Gateway) Latest(ctx context.Context) (models.Snapshot, bool) {
	if g.store == nil {
		return models.Snapshot{}, false
	}
	snap, ok, err := g.store.Latest(ctx)
	if err != nil {
		g.logger.Warn("Failed to load latest trend snapshot", logging.WithField("error", err.Error()))
		return models.Snapshot{}, false
	}
	return snap, ok
}

func localID() string {
	return "local-" + uuid.NewString()
}

// MemoryStore keeps snapshots in memory. It backs deployments without a
// configured database and doubles as the test store.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots []models.Snapshot
	limit     int
}

// NewMemoryStore creates a store retaining at most limit snapshots
// (oldest dropped first). limit <= 0 means unbounded.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Save(_ context.Context, snap models.Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.ID = uuid.NewString()
	s.snapshots = append(s.snapshots, snap)
	if s.limit > 0 && len(s.snapshots) > s.limit {
		s.snapshots = s.snapshots[len(s.snapshots)-s.limit:]
	}
	return snap.ID, nil
}

func (s *MemoryStore) Latest(_ context.Context) (models.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return models.Snapshot{}, false, nil
	}
	return s.snapshots[len(s.snapshots)-1], true, nil
}

// Count reports how many snapshots the store holds.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

var _ Store = (*MemoryStore)(nil)
