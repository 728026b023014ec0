package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ericogr/chimera-arena/internal/game"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS matches (
	id              TEXT PRIMARY KEY,
	version         BIGINT NOT NULL,
	status          TEXT NOT NULL,
	mode            TEXT NOT NULL,
	turn_started_at TIMESTAMPTZ NOT NULL,
	state           JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_matches_status_turn ON matches(status, turn_started_at);
`

type postgresRepository struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dbURL, verifies the connection and applies the
// schema.
func OpenPostgres(ctx context.Context, dbURL string) (Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &postgresRepository{pool: pool}, nil
}

func (r *postgresRepository) Create(ctx context.Context, g *game.GameState) error {
	if err := g.Validate(); err != nil {
		return err
	}
	g.Version = 1
	blob, err := encodeState(g)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO matches (id, version, status, mode, turn_started_at, state)
		VALUES ($1, 1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		g.MatchID, g.Status, g.Mode, g.TurnStartedAt.UTC(), blob)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", g.MatchID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *postgresRepository) Get(ctx context.Context, matchID string) (*game.GameState, error) {
	var (
		version int64
		blob    []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT version, state FROM matches WHERE id = $1`, matchID).Scan(&version, &blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", matchID, err)
	}
	return decodeState(matchID, version, blob)
}

func (r *postgresRepository) ConditionalUpdate(ctx context.Context, g *game.GameState, expectedVersion int64) error {
	g.Version = expectedVersion + 1
	blob, err := encodeState(g)
	if err != nil {
		g.Version = expectedVersion
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE matches
		SET version = $3, status = $4, mode = $5, turn_started_at = $6, state = $7, updated_at = now()
		WHERE id = $1 AND version = $2`,
		g.MatchID, expectedVersion, g.Version, g.Status, g.Mode, g.TurnStartedAt.UTC(), blob)
	if err != nil {
		g.Version = expectedVersion
		return fmt.Errorf("update match %s: %w", g.MatchID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	g.Version = expectedVersion
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM matches WHERE id = $1)`, g.MatchID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *postgresRepository) FindTimedOutMatches(ctx context.Context, cutoff time.Time) ([]string, error) {
	return r.ids(ctx, `SELECT id FROM matches WHERE status = $1 AND turn_started_at <= $2 ORDER BY id`,
		game.StatusPlaying, cutoff.UTC())
}

func (r *postgresRepository) ListActiveMatches(ctx context.Context, mode string) ([]string, error) {
	if mode == "" {
		return r.ids(ctx, `SELECT id FROM matches WHERE status = $1 ORDER BY id`, game.StatusPlaying)
	}
	return r.ids(ctx, `SELECT id FROM matches WHERE status = $1 AND mode = $2 ORDER BY id`, game.StatusPlaying, mode)
}

func (r *postgresRepository) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *postgresRepository) Close() error {
	r.pool.Close()
	return nil
}
