package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/clock"
	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/dedupe"
	"github.com/ericogr/chimera-arena/internal/engine"
	"github.com/ericogr/chimera-arena/internal/game"
	"github.com/ericogr/chimera-arena/internal/storage"
	"github.com/ericogr/chimera-arena/internal/telemetry"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchCompleted   = errors.New("match is already over")
	ErrRetriesExhausted = errors.New("commit retries exhausted")
	ErrMatchCorrupted   = errors.New("match state is corrupt")
	// ErrNoChange may be returned by a mutation to leave the stored state
	// untouched. Mutate then returns the state it read and a nil error.
	ErrNoChange = errors.New("no state change")
)

// Publisher receives every committed state. Implementations must not block.
type Publisher interface {
	Publish(matchID string, g *game.GameState)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, *game.GameState) {}

// RetryPolicy bounds the retries of a conflicting or failing commit.
// Cap is the number of retries after the first attempt.
type RetryPolicy struct {
	Cap            int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// MutateFunc changes g in place. now is the manager's clock reading for
// this attempt. A returned error aborts the mutation without retry.
type MutateFunc func(g *game.GameState, now time.Time) error

// Manager is the only writer of persisted match state. Every change is a
// read-modify-conditional-write cycle against the store.
type Manager struct {
	store   storage.Store
	machine *engine.Machine
	pub     Publisher
	clock   clock.Clock
	log     *zap.Logger
	retry   RetryPolicy
	reads   dedupe.Group
}

func NewManager(store storage.Store, machine *engine.Machine, pub Publisher, clk clock.Clock, log *zap.Logger, retry RetryPolicy) *Manager {
	if pub == nil {
		pub = nopPublisher{}
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if machine == nil {
		machine = engine.NewMachine(log)
	}
	if retry.Cap < 0 {
		retry.Cap = 0
	}
	return &Manager{store: store, machine: machine, pub: pub, clock: clk, log: log, retry: retry}
}

func (m *Manager) Machine() *engine.Machine { return m.machine }
func (m *Manager) Clock() clock.Clock        { return m.clock }
func (m *Manager) Store() storage.Store      { return m.store }

// Create persists a new match and publishes it.
func (m *Manager) Create(ctx context.Context, g *game.GameState) error {
	if err := m.store.Create(ctx, g); err != nil {
		return err
	}
	m.pub.Publish(g.MatchID, g)
	return nil
}

// Get returns a fresh copy of the match. Concurrent reads of the same id
// share one store round trip; each caller still gets its own copy.
func (m *Manager) Get(ctx context.Context, matchID string) (*game.GameState, error) {
	v, err := m.reads.Do(ctx, matchID, func(ctx context.Context) (any, error) {
		g, err := m.store.Get(ctx, matchID)
		if errors.Is(err, storage.ErrCorruptState) {
			m.quarantine(ctx, g, err)
		}
		return g, err
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, ErrMatchNotFound
		case errors.Is(err, storage.ErrCorruptState):
			return nil, fmt.Errorf("%w: %w", ErrMatchCorrupted, err)
		}
		return nil, err
	}
	return v.(*game.GameState).Clone(), nil
}

// Mutate applies fn to the latest stored state and commits it with a
// conditional write. Version conflicts and store failures re-read and
// retry with exponential backoff; errors from fn are returned as is.
func (m *Manager) Mutate(ctx context.Context, matchID string, fn MutateFunc) (*game.GameState, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "match.mutate")
	defer span.End()
	span.SetAttributes(attribute.String(constants.LogFieldMatchID, matchID))

	attempt := 0
	retryable := false
	op := func() (*game.GameState, error) {
		attempt++
		g, err := m.store.Get(ctx, matchID)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotFound):
				retryable = false
				return nil, backoff.Permanent(ErrMatchNotFound)
			case errors.Is(err, storage.ErrCorruptState):
				retryable = false
				m.quarantine(ctx, g, err)
				return nil, backoff.Permanent(fmt.Errorf("%w: %w", ErrMatchCorrupted, err))
			}
			retryable = true
			return nil, err
		}
		if g.IsTerminal() {
			retryable = false
			return g, backoff.Permanent(ErrMatchCompleted)
		}

		expected := g.Version
		if err := fn(g, m.clock.Now()); err != nil {
			retryable = false
			if errors.Is(err, ErrNoChange) {
				return g, nil
			}
			return nil, backoff.Permanent(err)
		}
		if err := g.Validate(); err != nil {
			retryable = false
			return nil, backoff.Permanent(err)
		}
		if err := m.store.ConditionalUpdate(ctx, g, expected); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				retryable = false
				return nil, backoff.Permanent(ErrMatchNotFound)
			}
			retryable = true
			return nil, err
		}
		m.log.Debug("state committed",
			zap.String(constants.LogFieldMatchID, matchID),
			zap.Int64(constants.LogFieldVersion, g.Version),
			zap.Int(constants.LogFieldAttempt, attempt))
		m.pub.Publish(matchID, g)
		return g, nil
	}

	b := backoff.NewExponentialBackOff()
	if m.retry.InitialBackoff > 0 {
		b.InitialInterval = m.retry.InitialBackoff
	}
	if m.retry.MaxBackoff > 0 {
		b.MaxInterval = m.retry.MaxBackoff
	}
	g, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(m.retry.Cap+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			m.log.Debug("commit retry",
				zap.String(constants.LogFieldMatchID, matchID),
				zap.Int(constants.LogFieldAttempt, attempt),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
	span.SetAttributes(attribute.Int(constants.LogFieldAttempt, attempt))
	if err == nil {
		span.SetAttributes(attribute.Int64(constants.LogFieldVersion, g.Version))
		return g, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if retryable && ctx.Err() == nil {
		m.log.Warn("commit retries exhausted",
			zap.String(constants.LogFieldMatchID, matchID),
			zap.Int(constants.LogFieldAttempt, attempt),
			zap.Error(err))
		err = fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if errors.Is(err, ErrMatchCompleted) {
		return g, err
	}
	return nil, err
}

// quarantine moves a match whose record failed to decode or validate into
// the error status. The write is conditional on the version seen with the
// corrupt record; losing that race leaves the newer record alone.
func (m *Manager) quarantine(ctx context.Context, stub *game.GameState, cause error) {
	if stub == nil {
		return
	}
	m.machine.MarkError(stub, cause, m.clock.Now())
	if err := m.store.ConditionalUpdate(ctx, stub, stub.Version); err != nil {
		m.log.Error("failed to mark corrupt match",
			zap.String(constants.LogFieldMatchID, stub.MatchID),
			zap.Error(err))
		return
	}
	m.pub.Publish(stub.MatchID, stub)
}
