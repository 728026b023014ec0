package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ericogr/chimera-arena/internal/game"
)

type memoryRecord struct {
	version       int64
	status        string
	mode          string
	turnStartedAt time.Time
	state         []byte
}

// MemoryStore keeps encoded states in a map. Every Get decodes a new
// value, so no two callers ever share a *game.GameState.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*memoryRecord)}
}

func (s *MemoryStore) Create(ctx context.Context, g *game.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return err
	}
	g.Version = 1
	blob, err := encodeState(g)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[g.MatchID]; ok {
		return ErrAlreadyExists
	}
	s.records[g.MatchID] = &memoryRecord{version: 1, status: g.Status, mode: g.Mode, turnStartedAt: g.TurnStartedAt, state: blob}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, matchID string) (*game.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	rec, ok := s.records[matchID]
	var version int64
	var blob []byte
	if ok {
		version, blob = rec.version, rec.state
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeState(matchID, version, blob)
}

func (s *MemoryStore) ConditionalUpdate(ctx context.Context, g *game.GameState, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[g.MatchID]
	if !ok {
		return ErrNotFound
	}
	if rec.version != expectedVersion {
		return ErrVersionConflict
	}
	g.Version = expectedVersion + 1
	blob, err := encodeState(g)
	if err != nil {
		g.Version = expectedVersion
		return err
	}
	rec.version = g.Version
	rec.status = g.Status
	rec.mode = g.Mode
	rec.turnStartedAt = g.TurnStartedAt
	rec.state = blob
	return nil
}

func (s *MemoryStore) FindTimedOutMatches(ctx context.Context, cutoff time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, rec := range s.records {
		if rec.status == game.StatusPlaying && !rec.turnStartedAt.After(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) ListActiveMatches(ctx context.Context, mode string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, rec := range s.records {
		if rec.status == game.StatusPlaying && (mode == "" || rec.mode == mode) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// PutRaw stores an arbitrary blob under matchID. It exists for tests that
// need to simulate a corrupt record.
func (s *MemoryStore) PutRaw(matchID string, version int64, status string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[matchID] = &memoryRecord{version: version, status: status, state: blob}
}

func (s *MemoryStore) Close() error { return nil }
