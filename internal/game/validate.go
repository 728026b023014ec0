package game

import (
	"errors"
	"fmt"
)

// ErrInvalidState is wrapped by every structural validation failure.
var ErrInvalidState = errors.New("invalid game state")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Validate checks the structural invariants of a decoded state. It is run
// on every read so corrupt records are caught before the engine touches
// them.
func (g *GameState) Validate() error {
	if g.MatchID == "" {
		return invalid("missing match id")
	}
	switch g.Status {
	case StatusSetup, StatusPlaying, StatusCompleted, StatusError:
	default:
		return invalid("unknown status %q", g.Status)
	}
	// A failed match only needs to be readable.
	if g.Status == StatusError {
		return nil
	}
	switch g.Mode {
	case ModeInteractive, ModeAuto:
	default:
		return invalid("unknown mode %q", g.Mode)
	}
	if g.CurrentTurn < 1 {
		return invalid("current turn %d must be >= 1", g.CurrentTurn)
	}
	if g.Version < 0 {
		return invalid("negative version %d", g.Version)
	}
	if g.Winner < WinnerNone || g.Winner > WinnerDraw {
		return invalid("winner out of range")
	}
	if g.Winner != WinnerNone && g.Status != StatusCompleted {
		return invalid("winner set on a %s match", g.Status)
	}
	for _, s := range []Side{Side1, Side2} {
		roster := g.Roster(s)
		if len(roster) == 0 {
			return invalid("%s roster is empty", s)
		}
		idx := g.BattleIndex(s)
		if idx < 0 || idx >= len(roster) {
			return invalid("%s battle index %d out of range", s, idx)
		}
		for i := range roster {
			c := &roster[i]
			if c.Card.Health <= 0 {
				return invalid("%s card %d has non-positive max health", s, i)
			}
			if c.Health < 0 || c.Health > c.Card.Health {
				return invalid("%s card %d health %d outside [0,%d]", s, i, c.Health, c.Card.Health)
			}
			if c.IsDefeated && c.Health != 0 {
				return invalid("%s card %d is defeated with health %d", s, i, c.Health)
			}
			if c.StunnedTurns < 0 {
				return invalid("%s card %d has negative stun", s, i)
			}
		}
		if g.Status == StatusPlaying && roster[idx].IsDefeated && !g.AllDefeated(s) {
			return invalid("%s battle index points at a defeated card", s)
		}
	}
	return nil
}
