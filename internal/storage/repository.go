package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ericogr/chimera-arena/internal/game"
)

var (
	ErrNotFound        = errors.New("match not found")
	ErrAlreadyExists   = errors.New("match already exists")
	ErrVersionConflict = errors.New("state was updated by another process")
	// ErrCorruptState is returned together with a stub state carrying the
	// match id and stored version so the caller can mark the match as
	// failed with a conditional write.
	ErrCorruptState = errors.New("corrupt stored state")
)

// Store is the persistence contract of the battle core. ConditionalUpdate
// is the only write primitive used on an existing match.
type Store interface {
	// Create inserts a new match at version 1.
	Create(ctx context.Context, g *game.GameState) error
	// Get decodes a fresh copy of the match. The returned Version is the
	// stored one.
	Get(ctx context.Context, matchID string) (*game.GameState, error)
	// ConditionalUpdate writes g only if the stored version still equals
	// expectedVersion. On success g.Version holds the new version.
	ConditionalUpdate(ctx context.Context, g *game.GameState, expectedVersion int64) error
	// FindTimedOutMatches returns the ids of playing matches whose current
	// turn started at or before cutoff.
	FindTimedOutMatches(ctx context.Context, cutoff time.Time) ([]string, error)
	// ListActiveMatches returns the ids of playing matches in mode; an
	// empty mode matches all.
	ListActiveMatches(ctx context.Context, mode string) ([]string, error)
	Close() error
}
