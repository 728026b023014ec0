package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ericogr/chimera-arena/internal/clock"
	"github.com/ericogr/chimera-arena/internal/game"
	"github.com/ericogr/chimera-arena/internal/storage"
)

const turnDelay = time.Second

// sleeping reports when the fake clock has a pending waiter.
func sleeping(clk *clock.Fake) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		clk.BlockUntil(1)
		close(ch)
	}()
	return ch
}

// drive runs the driver for matchID, advancing the fake clock every time
// it waits, and returns the driver's result.
func drive(t *testing.T, d *Driver, clk *clock.Fake, matchID string) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), matchID) }()
	for i := 0; i < 500; i++ {
		select {
		case err := <-done:
			return err
		case <-sleeping(clk):
			clk.Advance(turnDelay)
		case <-time.After(2 * time.Second):
			t.Fatal("driver neither waited nor finished")
		}
	}
	t.Fatal("driver did not finish")
	return nil
}

func newDriver(t *testing.T, cfg DriverConfig) (*Driver, *Manager, *storage.MemoryStore, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(t0)
	store := storage.NewMemoryStore()
	mgr, _ := newManager(t, store, clk)
	cfg.InterTurnDelay = turnDelay
	return NewDriver(mgr, cfg, zaptest.NewLogger(t)), mgr, store, clk
}

func TestDriverPlaysToVictory(t *testing.T) {
	d, mgr, store, clk := newDriver(t, DriverConfig{MaxTurns: 50, StalemateRounds: 5})
	seedMatch(t, store, "m1", game.ModeAuto, []game.CardDefinition{lion}, []game.CardDefinition{ox}, t0)

	require.NoError(t, drive(t, d, clk, "m1"))

	g, err := mgr.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, game.StatusCompleted, g.Status)
	assert.Equal(t, game.WinnerPlayer1, g.Winner)
	assert.Equal(t, game.EndReasonDefeat, g.EndReason)
	assert.Equal(t, 3, g.Stats.TurnsPlayed)
	assert.Equal(t, 7, g.Player1Cards[0].Health)
	assert.True(t, g.Player2Cards[0].IsDefeated)
	assert.Equal(t, t0.Add(3*turnDelay), g.UpdatedAt)
}

func TestDriverDetectsStalemate(t *testing.T) {
	d, mgr, store, clk := newDriver(t, DriverConfig{MaxTurns: 50, StalemateRounds: 5})
	harmless := []game.CardDefinition{{Name: "Snail", Power: 0, Health: 4}}
	seedMatch(t, store, "m1", game.ModeAuto, harmless, harmless, t0)

	require.NoError(t, drive(t, d, clk, "m1"))

	g, err := mgr.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, game.WinnerDraw, g.Winner)
	assert.Equal(t, game.EndReasonStalemate, g.EndReason)
	assert.Equal(t, 5, g.Stats.TurnsPlayed)
	assert.Len(t, g.HealthHistory, 5)
}

func TestDriverStopsAtMaxTurns(t *testing.T) {
	d, mgr, store, clk := newDriver(t, DriverConfig{MaxTurns: 3})
	tough := []game.CardDefinition{{Name: "Turtle", Power: 1, Health: 100}}
	seedMatch(t, store, "m1", game.ModeAuto, tough, tough, t0)

	require.NoError(t, drive(t, d, clk, "m1"))

	g, err := mgr.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, game.WinnerDraw, g.Winner)
	assert.Equal(t, game.EndReasonMaxTurns, g.EndReason)
	assert.Equal(t, 3, g.Stats.TurnsPlayed)
	assert.Equal(t, 4, g.CurrentTurn)
}

func TestDriverStopsWhenMatchEndedElsewhere(t *testing.T) {
	d, mgr, store, clk := newDriver(t, DriverConfig{MaxTurns: 50, StalemateRounds: 5})
	seedMatch(t, store, "m1", game.ModeAuto, []game.CardDefinition{lion}, []game.CardDefinition{ox}, t0)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), "m1") }()
	clk.BlockUntil(1)

	_, err := mgr.Mutate(context.Background(), "m1", func(g *game.GameState, now time.Time) error {
		mgr.Machine().ForceDraw(g, game.EndReasonEndedByPlayer, now)
		return nil
	})
	require.NoError(t, err)
	clk.Advance(turnDelay)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}
	g, err := mgr.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, game.EndReasonEndedByPlayer, g.EndReason)
	assert.Zero(t, g.Stats.TurnsPlayed)
}

// flakyStore fails the first failures reads.
type flakyStore struct {
	storage.Store
	failures int32
	reads    atomic.Int32
}

func (s *flakyStore) Get(ctx context.Context, matchID string) (*game.GameState, error) {
	if s.reads.Add(1) <= s.failures {
		return nil, errors.New("connection reset")
	}
	return s.Store.Get(ctx, matchID)
}

func TestDriverRetriesFailedReads(t *testing.T) {
	clk := clock.NewFake(t0)
	mem := storage.NewMemoryStore()
	seedMatch(t, mem, "m1", game.ModeAuto, []game.CardDefinition{lion}, []game.CardDefinition{ox}, t0)
	store := &flakyStore{Store: mem, failures: 2}
	mgr, _ := newManager(t, store, clk)
	d := NewDriver(mgr, DriverConfig{InterTurnDelay: turnDelay, MaxTurns: 50, StalemateRounds: 5}, zaptest.NewLogger(t))

	require.NoError(t, drive(t, d, clk, "m1"))

	g, err := mem.Get(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, game.StatusCompleted, g.Status)
	assert.Equal(t, game.WinnerPlayer1, g.Winner)
	assert.Equal(t, t0.Add(5*turnDelay), g.UpdatedAt)
}

func TestDriverUnknownMatch(t *testing.T) {
	d, _, _, _ := newDriver(t, DriverConfig{})
	assert.ErrorIs(t, d.Run(context.Background(), "missing"), ErrMatchNotFound)
}

func TestLaunchRunsOneDriverPerMatch(t *testing.T) {
	d, mgr, store, clk := newDriver(t, DriverConfig{MaxTurns: 50, StalemateRounds: 5})
	seedMatch(t, store, "m1", game.ModeAuto, []game.CardDefinition{lion}, []game.CardDefinition{ox}, t0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Launch(ctx, "m1")
	d.Launch(ctx, "m1")
	clk.BlockUntil(1)
	assert.Never(t, func() bool { return clk.Waiters() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	n, err := d.ResumeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Never(t, func() bool { return clk.Waiters() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	_, err = mgr.Mutate(context.Background(), "m1", func(g *game.GameState, now time.Time) error {
		mgr.Machine().ForceDraw(g, game.EndReasonEndedByPlayer, now)
		return nil
	})
	require.NoError(t, err)
}
