package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ericogr/chimera-arena/internal/clock"
	"github.com/ericogr/chimera-arena/internal/config"
	"github.com/ericogr/chimera-arena/internal/game"
	"github.com/ericogr/chimera-arena/internal/storage"
)

const testCatalog = `
cards:
  - name: Lion
    power: 5
    health: 10
  - name: Ox
    power: 3
    health: 10
  - name: Hawk
    power: 2
    health: 6
`

func newService(t *testing.T, ctx context.Context) (*Service, *clock.Fake) {
	t.Helper()
	cat, err := config.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	clk := clock.NewFake(t0)
	log := zaptest.NewLogger(t)
	mgr, _ := newManager(t, storage.NewMemoryStore(), clk)
	queue := NewActionQueue(clk, 4, 0, log)
	driver := NewDriver(mgr, DriverConfig{InterTurnDelay: turnDelay, MaxTurns: 50, StalemateRounds: 5}, log)
	return NewService(ctx, mgr, queue, driver, cat, log), clk
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func interactiveMatch(t *testing.T, s *Service) *game.GameState {
	t.Helper()
	g, err := s.CreateMatch(context.Background(), NewMatch{
		Player1ID:        "alice",
		Player2ID:        "bob",
		Player1Cards:     []string{"Lion", "Hawk"},
		Player2Cards:     []string{"Ox"},
		Player1GoesFirst: boolPtr(true),
	})
	require.NoError(t, err)
	return g
}

func TestCreateMatch(t *testing.T) {
	s, _ := newService(t, context.Background())
	g := interactiveMatch(t, s)

	assert.NotEmpty(t, g.MatchID)
	assert.Equal(t, game.ModeInteractive, g.Mode)
	assert.Equal(t, game.StatusPlaying, g.Status)
	assert.Equal(t, int64(1), g.Version)
	require.Len(t, g.Player1Cards, 2)
	assert.Equal(t, "Hawk", g.Player1Cards[1].Name())
	assert.Equal(t, t0, g.TurnStartedAt)

	stored, err := s.GetState(context.Background(), g.MatchID)
	require.NoError(t, err)
	assert.Equal(t, g.MatchID, stored.MatchID)
}

func TestCreateMatchValidation(t *testing.T) {
	s, _ := newService(t, context.Background())
	ctx := context.Background()

	cases := map[string]NewMatch{
		"missing player": {Player1ID: "alice", Player1Cards: []string{"Lion"}, Player2Cards: []string{"Ox"}},
		"same player":    {Player1ID: "alice", Player2ID: "alice", Player1Cards: []string{"Lion"}, Player2Cards: []string{"Ox"}},
		"unknown mode":   {Player1ID: "alice", Player2ID: "bob", Mode: "blitz", Player1Cards: []string{"Lion"}, Player2Cards: []string{"Ox"}},
		"empty roster":   {Player1ID: "alice", Player2ID: "bob", Player1Cards: []string{"Lion"}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateMatch(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidMatch)
		})
	}

	_, err := s.CreateMatch(ctx, NewMatch{Player1ID: "alice", Player2ID: "bob", Player1Cards: []string{"Dragon"}, Player2Cards: []string{"Ox"}})
	assert.ErrorIs(t, err, ErrInvalidMatch)
	assert.ErrorIs(t, err, config.ErrUnknownCard)
}

func TestSubmitActionRejectsInvalidActions(t *testing.T) {
	s, _ := newService(t, context.Background())
	g := interactiveMatch(t, s)
	ctx := context.Background()
	attack := func(target int) Action { return Action{Kind: ActionAttack, Payload: ActionPayload{Target: intPtr(target)}} }

	_, err := s.SubmitAction(ctx, g.MatchID, "mallory", Action{Kind: ActionAttack})
	assert.ErrorIs(t, err, ErrPlayerNotInMatch)
	_, err = s.SubmitAction(ctx, g.MatchID, "bob", Action{Kind: ActionAttack})
	assert.ErrorIs(t, err, ErrNotYourTurn)
	_, err = s.SubmitAction(ctx, g.MatchID, "alice", attack(3))
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = s.SubmitAction(ctx, g.MatchID, "alice", attack(-1))
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = s.SubmitAction(ctx, g.MatchID, "alice", Action{Kind: "cast"})
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = s.SubmitAction(ctx, "missing", "alice", Action{Kind: ActionAttack})
	assert.ErrorIs(t, err, ErrMatchNotFound)

	stored, err := s.GetState(ctx, g.MatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Len(t, stored.BattleLog, len(g.BattleLog))
}

func TestSubmitActionPlaysTurns(t *testing.T) {
	s, _ := newService(t, context.Background())
	g := interactiveMatch(t, s)
	ctx := context.Background()

	got, err := s.SubmitAction(ctx, g.MatchID, "alice", Action{Kind: ActionAttack, Payload: ActionPayload{Target: intPtr(0)}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, 5, got.Player2Cards[0].Health)
	assert.Equal(t, 2, got.CurrentTurn)

	got, err = s.SubmitAction(ctx, g.MatchID, "bob", Action{Kind: ActionEndTurn})
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentTurn)
	assert.Equal(t, 10, got.Player1Cards[0].Health)

	got, err = s.SubmitAction(ctx, g.MatchID, "alice", Action{Kind: ActionAttack})
	require.NoError(t, err)
	assert.Equal(t, game.WinnerPlayer1, got.Winner)
	assert.Equal(t, game.StatusCompleted, got.Status)

	_, err = s.SubmitAction(ctx, g.MatchID, "bob", Action{Kind: ActionAttack})
	assert.ErrorIs(t, err, ErrMatchCompleted)

	view, err := s.SubmitAction(ctx, g.MatchID, "bob", Action{Kind: ActionGetState})
	require.NoError(t, err)
	assert.Equal(t, got.Version, view.Version)
}

func TestEndMatch(t *testing.T) {
	s, _ := newService(t, context.Background())
	g := interactiveMatch(t, s)
	ctx := context.Background()

	_, err := s.EndMatch(ctx, g.MatchID, "mallory")
	assert.ErrorIs(t, err, ErrPlayerNotInMatch)

	ended, err := s.EndMatch(ctx, g.MatchID, "bob")
	require.NoError(t, err)
	assert.Equal(t, game.WinnerDraw, ended.Winner)
	assert.Equal(t, game.EndReasonEndedByPlayer, ended.EndReason)

	_, err = s.EndMatch(ctx, g.MatchID, "alice")
	assert.ErrorIs(t, err, ErrMatchCompleted)
}

func TestAutoMatchStartsDriver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s, clk := newService(t, ctx)

	g, err := s.CreateMatch(ctx, NewMatch{
		Player1ID:    "alice",
		Player2ID:    "bob",
		Mode:         game.ModeAuto,
		Player1Cards: []string{"Lion"},
		Player2Cards: []string{"Ox"},
	})
	require.NoError(t, err)

	select {
	case <-sleeping(clk):
	case <-time.After(2 * time.Second):
		t.Fatal("auto driver did not start")
	}

	_, err = s.SubmitAction(ctx, g.MatchID, "alice", Action{Kind: ActionAttack})
	assert.ErrorIs(t, err, ErrNotInteractive)
	_, err = s.EndMatch(ctx, g.MatchID, "alice")
	require.NoError(t, err)
}
