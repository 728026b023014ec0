// Package projection derives the state a given viewer is allowed to see
// from the authoritative match state. It never mutates its input.
package projection

import (
	"time"

	"github.com/ericogr/chimera-arena/internal/game"
)

// CardView is one roster slot as seen by a viewer. Concealed slots only
// expose their position and defeat flag.
type CardView struct {
	Slot         int           `json:"slot"`
	Concealed    bool          `json:"concealed"`
	Name         string        `json:"name,omitempty"`
	Power        int           `json:"power,omitempty"`
	Health       int           `json:"health,omitempty"`
	MaxHealth    int           `json:"max_health,omitempty"`
	IsDefeated   bool          `json:"is_defeated"`
	StunnedTurns int           `json:"stunned_turns,omitempty"`
	Effects      []game.Effect `json:"effects,omitempty"`
}

type SideView struct {
	PlayerID  string     `json:"player_id"`
	Engaged   int        `json:"engaged"`
	Remaining int        `json:"remaining"`
	Cards     []CardView `json:"cards"`
}

// View is the visible state sent to clients.
type View struct {
	MatchID       string           `json:"match_id"`
	Mode          string           `json:"mode"`
	Status        string           `json:"status"`
	Viewer        game.Side        `json:"viewer"`
	CurrentTurn   int              `json:"current_turn"`
	ActiveSide    game.Side        `json:"active_side"`
	YourTurn      bool             `json:"your_turn"`
	Player1       SideView         `json:"player1"`
	Player2       SideView         `json:"player2"`
	Winner        game.Winner      `json:"winner"`
	EndReason     string           `json:"end_reason,omitempty"`
	BattleLog     []game.GameEvent `json:"battle_log"`
	Stats         game.Stats       `json:"stats"`
	TurnStartedAt time.Time        `json:"turn_started_at"`
	Version       int64            `json:"version"`
}

// ForPlayer projects g for the participant playerID. Unknown ids get the
// spectator view.
func ForPlayer(g *game.GameState, playerID string) View {
	return Project(g, g.PlayerSide(playerID))
}

// Project builds the view for viewer. A side's own cards are always
// visible; opponent cards stay concealed until they have been engaged.
// Spectators (SideNone) see neither side's unrevealed cards. Once the
// match is over every card is shown.
func Project(g *game.GameState, viewer game.Side) View {
	active := game.SideNone
	if g.Status == game.StatusPlaying && !g.IsTerminal() {
		active = game.ActiveSide(g.CurrentTurn, g.Player1GoesFirst)
	}
	log := make([]game.GameEvent, len(g.BattleLog))
	copy(log, g.BattleLog)
	return View{
		MatchID:       g.MatchID,
		Mode:          g.Mode,
		Status:        g.Status,
		Viewer:        viewer,
		CurrentTurn:   g.CurrentTurn,
		ActiveSide:    active,
		YourTurn:      viewer != game.SideNone && viewer == active,
		Player1:       projectSide(g, game.Side1, viewer),
		Player2:       projectSide(g, game.Side2, viewer),
		Winner:        g.Winner,
		EndReason:     g.EndReason,
		BattleLog:     log,
		Stats:         g.Stats,
		TurnStartedAt: g.TurnStartedAt,
		Version:       g.Version,
	}
}

func projectSide(g *game.GameState, side, viewer game.Side) SideView {
	roster := g.Roster(side)
	sv := SideView{
		Engaged: g.BattleIndex(side),
		Cards:   make([]CardView, 0, len(roster)),
	}
	if side == game.Side1 {
		sv.PlayerID = g.Player1ID
	} else {
		sv.PlayerID = g.Player2ID
	}
	showAll := side == viewer || g.IsTerminal()
	for i := range roster {
		c := &roster[i]
		if !c.IsDefeated {
			sv.Remaining++
		}
		if !showAll && !c.Revealed {
			sv.Cards = append(sv.Cards, CardView{Slot: i, Concealed: true, IsDefeated: c.IsDefeated})
			continue
		}
		effects := make([]game.Effect, 0, len(c.Effects))
		for _, e := range c.Effects {
			effects = append(effects, e.Clone())
		}
		sv.Cards = append(sv.Cards, CardView{
			Slot:         i,
			Name:         c.Name(),
			Power:        c.Power,
			Health:       c.Health,
			MaxHealth:    c.MaxHealth(),
			IsDefeated:   c.IsDefeated,
			StunnedTurns: c.StunnedTurns,
			Effects:      effects,
		})
	}
	return sv
}
