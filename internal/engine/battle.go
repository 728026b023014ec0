package engine

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/game"
	"github.com/ericogr/chimera-arena/internal/keys"
)

var (
	ErrMatchOver   = errors.New("match is already over")
	ErrNotPlaying  = errors.New("match is not in progress")
	ErrNotSetup    = errors.New("match has already started")
	ErrEmptyRoster = errors.New("both sides need at least one card")
	ErrNotYourTurn = errors.New("it is not this side's turn")
	ErrUnknownSide = errors.New("unknown side")
)

// Machine is the battle state machine. It holds no match state of its
// own: every operation works on the *game.GameState it is handed and owns
// that value only for the duration of the call.
type Machine struct {
	log *zap.Logger
}

func NewMachine(log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{log: log}
}

// NewGame builds a match in setup state from two rosters.
func NewGame(matchID, mode, player1ID, player2ID string, p1, p2 []game.CardDefinition, player1GoesFirst bool, now time.Time) *game.GameState {
	field := func(defs []game.CardDefinition) []game.CardState {
		out := make([]game.CardState, 0, len(defs))
		for _, d := range defs {
			out = append(out, game.NewCardState(d))
		}
		return out
	}
	return &game.GameState{
		MatchID:          matchID,
		Mode:             mode,
		Status:           game.StatusSetup,
		Player1ID:        player1ID,
		Player2ID:        player2ID,
		CurrentTurn:      1,
		Player1GoesFirst: player1GoesFirst,
		Player1Cards:     field(p1),
		Player2Cards:     field(p2),
		BattleLog:        []game.GameEvent{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Start moves a match from setup to playing.
func (m *Machine) Start(g *game.GameState, now time.Time) error {
	if g.IsTerminal() {
		return ErrMatchOver
	}
	if g.Status != game.StatusSetup {
		return ErrNotSetup
	}
	if len(g.Player1Cards) == 0 || len(g.Player2Cards) == 0 {
		return ErrEmptyRoster
	}
	if g.CurrentTurn < 1 {
		g.CurrentTurn = 1
	}
	g.Status = game.StatusPlaying
	g.TurnStartedAt = now
	g.UpdatedAt = now
	for _, s := range []game.Side{game.Side1, game.Side2} {
		if c := g.Engaged(s); c == nil || c.IsDefeated {
			m.AdvanceBattle(g, s)
		}
	}
	if m.CheckGameOver(g, now) {
		return nil
	}
	first := game.ActiveSide(g.CurrentTurn, g.Player1GoesFirst)
	g.AppendEvent(game.GameEvent{
		Kind:      game.EventTurnStarted,
		Side:      first,
		Message:   fmt.Sprintf("match started, %s goes first", first),
		Timestamp: now,
	})
	return nil
}

// ProcessTurn resolves the exchange for the current turn, advances
// defeated cards, bumps the turn counter and evaluates the end of the
// match. A terminal match is left untouched.
func (m *Machine) ProcessTurn(g *game.GameState, now time.Time) (ExchangeResult, error) {
	if g.IsTerminal() {
		return ExchangeResult{}, ErrMatchOver
	}
	if g.Status != game.StatusPlaying {
		return ExchangeResult{}, ErrNotPlaying
	}

	atkSide := game.ActiveSide(g.CurrentTurn, g.Player1GoesFirst)
	defSide := atkSide.Opponent()

	// Never engage an already defeated card.
	for _, s := range []game.Side{atkSide, defSide} {
		if c := g.Engaged(s); c == nil || c.IsDefeated {
			m.AdvanceBattle(g, s)
		}
	}
	if m.CheckGameOver(g, now) {
		return ExchangeResult{}, nil
	}

	att, def := g.Engaged(atkSide), g.Engaged(defSide)
	g.AppendEvent(game.GameEvent{
		Kind:      game.EventTurnStarted,
		Side:      atkSide,
		Card:      att.Name(),
		Message:   fmt.Sprintf("turn %d: %s attacks with %s", g.CurrentTurn, atkSide, att.Name()),
		Timestamp: now,
	})

	x := newExchange(g, m.log, now, participant{card: att, side: atkSide}, participant{card: def, side: defSide})
	res := x.resolve()

	for _, s := range []game.Side{atkSide, defSide} {
		if c := g.Engaged(s); c != nil && c.IsDefeated {
			m.AdvanceBattle(g, s)
		}
	}
	m.endTurn(g, atkSide, game.EventTurnEnded, now)
	m.CheckGameOver(g, now)
	return res, nil
}

// PassTurn ends the current turn for side without an exchange.
func (m *Machine) PassTurn(g *game.GameState, side game.Side, now time.Time) error {
	if g.IsTerminal() {
		return ErrMatchOver
	}
	if g.Status != game.StatusPlaying {
		return ErrNotPlaying
	}
	if side != game.Side1 && side != game.Side2 {
		return ErrUnknownSide
	}
	if game.ActiveSide(g.CurrentTurn, g.Player1GoesFirst) != side {
		return ErrNotYourTurn
	}
	m.endTurn(g, side, game.EventTurnPassed, now)
	return nil
}

func (m *Machine) endTurn(g *game.GameState, side game.Side, kind game.EventKind, now time.Time) {
	msg := fmt.Sprintf("turn %d ended", g.CurrentTurn)
	if kind == game.EventTurnPassed {
		msg = fmt.Sprintf("%s passed turn %d", side, g.CurrentTurn)
	}
	g.AppendEvent(game.GameEvent{Kind: kind, Side: side, Message: msg, Timestamp: now})
	g.CurrentTurn++
	g.Stats.TurnsPlayed++
	g.TurnStartedAt = now
	g.UpdatedAt = now
}

// AdvanceBattle moves side's battle pointer forward, wrapping, to the next
// non-defeated card. It returns false when the side has no card left, in
// which case the pointer is left where it was.
func (m *Machine) AdvanceBattle(g *game.GameState, side game.Side) bool {
	roster := g.Roster(side)
	if len(roster) == 0 {
		return false
	}
	start := g.BattleIndex(side)
	if start < 0 || start >= len(roster) {
		start = 0
	} else if !roster[start].IsDefeated {
		return true
	}
	for step := 0; step < len(roster); step++ {
		i := (start + step) % len(roster)
		if !roster[i].IsDefeated {
			g.SetBattleIndex(side, i)
			return true
		}
	}
	return false
}

// CheckGameOver settles the winner once a roster is fully defeated and
// reports whether the match is terminal.
func (m *Machine) CheckGameOver(g *game.GameState, now time.Time) bool {
	if g.IsTerminal() {
		return true
	}
	p1Out := g.AllDefeated(game.Side1)
	p2Out := g.AllDefeated(game.Side2)
	switch {
	case p1Out && p2Out:
		m.finish(g, game.WinnerDraw, game.EndReasonDefeat, "both rosters defeated, the match is a draw", now)
	case p1Out:
		m.finish(g, game.WinnerPlayer2, game.EndReasonDefeat, "victory for player 2", now)
	case p2Out:
		m.finish(g, game.WinnerPlayer1, game.EndReasonDefeat, "victory for player 1", now)
	default:
		return false
	}
	return true
}

// ForceDraw ends a live match as a draw with reason. It is idempotent and
// reports whether it changed anything.
func (m *Machine) ForceDraw(g *game.GameState, reason string, now time.Time) bool {
	if g.IsTerminal() {
		return false
	}
	m.finish(g, game.WinnerDraw, reason, "match ended in a draw: "+reason, now)
	return true
}

// MarkError moves the match into the non-resumable error status.
func (m *Machine) MarkError(g *game.GameState, cause error, now time.Time) {
	g.Status = game.StatusError
	if cause != nil {
		g.ErrorCause = cause.Error()
	}
	g.UpdatedAt = now
	m.log.Error("match marked as error", zap.String("match_id", g.MatchID), zap.Error(cause))
}

func (m *Machine) finish(g *game.GameState, w game.Winner, reason, msg string, now time.Time) {
	g.Winner = w
	g.Status = game.StatusCompleted
	g.EndReason = reason
	g.UpdatedAt = now
	g.AppendEvent(game.GameEvent{Kind: game.EventGameEnded, Message: msg, Timestamp: now})
	m.log.Info("match finished",
		zap.String("match_id", g.MatchID),
		zap.Stringer("winner", w),
		zap.String("reason", reason),
		zap.Int("turn", g.CurrentTurn))
}

// RecordHealth appends the current health snapshot to the match history,
// keeping at most limit entries, and returns how many trailing snapshots
// are identical to the newest one.
func RecordHealth(g *game.GameState, limit int) int {
	snap := keys.HealthSnapshot(g.Healths(game.Side1), g.Healths(game.Side2))
	g.HealthHistory = append(g.HealthHistory, snap)
	if limit > 0 && len(g.HealthHistory) > limit {
		g.HealthHistory = append([]string(nil), g.HealthHistory[len(g.HealthHistory)-limit:]...)
	}
	run := 0
	for i := len(g.HealthHistory) - 1; i >= 0 && g.HealthHistory[i] == snap; i-- {
		run++
	}
	return run
}
