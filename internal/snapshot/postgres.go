package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"trendpulse/internal/logging"
	"trendpulse/internal/models"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS trend_snapshots (
	id TEXT PRIMARY KEY,
	trends JSONB NOT NULL,
	analysis TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trend_snapshots_created_at ON trend_snapshots (created_at DESC);
`

// PostgresStore persists snapshots to PostgreSQL. Trend payloads are stored
// as a single JSONB document keyed by platform.
type PostgresStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewPostgresStore connects, verifies the connection, and runs migrations.
func NewPostgresStore(ctx context.Context, dsn string, logger *logging.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	store := &PostgresStore{db: db, logger: logger}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to postgres snapshot store")
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("migrating trend_snapshots: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, snap models.Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}

	trends, err := json.Marshal(snap.Trends)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot trends: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trend_snapshots (id, trends, analysis, created_at) VALUES ($1, $2, $3, $4)`,
		snap.ID, trends, snap.Analysis, snap.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("inserting snapshot: %w", err)
	}
	return snap.ID, nil
}

func (s *PostgresStore) Latest(ctx context.Context) (models.Snapshot, bool, error) {
	var (
		snap   models.Snapshot
		trends []byte
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, trends, analysis, created_at FROM trend_snapshots ORDER BY created_at DESC LIMIT 1`,
	)
	err := row.Scan(&snap.ID, &trends, &snap.Analysis, &snap.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("loading latest snapshot: %w", err)
	}
	if err := json.Unmarshal(trends, &snap.Trends); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decoding snapshot trends: %w", err)
	}
	return snap, true, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
