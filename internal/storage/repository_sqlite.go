package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ericogr/chimera-arena/internal/game"
)

// matchRecord is the persisted row. The full state travels as a JSON blob;
// the other columns exist for the conditional write and the scans.
type matchRecord struct {
	ID            string    `gorm:"primaryKey;size:64"`
	Version       int64     `gorm:"not null"`
	Status        string    `gorm:"size:16;not null"`
	Mode          string    `gorm:"size:16;not null"`
	TurnStartedAt time.Time `gorm:"not null"`
	State         []byte    `gorm:"type:blob;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (matchRecord) TableName() string { return "matches" }

type sqliteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository returns a Store backed by gorm. Any gorm dialect with
// the migrated schema works; SQLite is the default.
func NewSQLiteRepository(db *gorm.DB) Store {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) Create(ctx context.Context, g *game.GameState) error {
	if err := g.Validate(); err != nil {
		return err
	}
	g.Version = 1
	blob, err := encodeState(g)
	if err != nil {
		return err
	}
	rec := matchRecord{
		ID:            g.MatchID,
		Version:       1,
		Status:        g.Status,
		Mode:          g.Mode,
		TurnStartedAt: g.TurnStartedAt.UTC(),
		State:         blob,
	}
	var existing int64
	if err := r.db.WithContext(ctx).Model(&matchRecord{}).Where("id = ?", g.MatchID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return ErrAlreadyExists
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *sqliteRepository) Get(ctx context.Context, matchID string) (*game.GameState, error) {
	var rec matchRecord
	err := r.db.WithContext(ctx).Where("id = ?", matchID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", matchID, err)
	}
	return decodeState(rec.ID, rec.Version, rec.State)
}

func (r *sqliteRepository) ConditionalUpdate(ctx context.Context, g *game.GameState, expectedVersion int64) error {
	g.Version = expectedVersion + 1
	blob, err := encodeState(g)
	if err != nil {
		g.Version = expectedVersion
		return err
	}
	res := r.db.WithContext(ctx).Model(&matchRecord{}).
		Where("id = ? AND version = ?", g.MatchID, expectedVersion).
		Updates(map[string]any{
			"version":         expectedVersion + 1,
			"status":          g.Status,
			"mode":            g.Mode,
			"turn_started_at": g.TurnStartedAt.UTC(),
			"state":           blob,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		g.Version = expectedVersion
		return fmt.Errorf("update match %s: %w", g.MatchID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	g.Version = expectedVersion
	var n int64
	if err := r.db.WithContext(ctx).Model(&matchRecord{}).Where("id = ?", g.MatchID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *sqliteRepository) FindTimedOutMatches(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&matchRecord{}).
		Where("status = ? AND turn_started_at <= ?", game.StatusPlaying, cutoff.UTC()).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *sqliteRepository) ListActiveMatches(ctx context.Context, mode string) ([]string, error) {
	q := r.db.WithContext(ctx).Model(&matchRecord{}).Where("status = ?", game.StatusPlaying)
	if mode != "" {
		q = q.Where("mode = ?", mode)
	}
	var ids []string
	err := q.Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *sqliteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
