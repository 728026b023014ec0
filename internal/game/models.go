package game

import (
	"time"
)

const (
	StatusSetup     = "setup"
	StatusPlaying   = "playing"
	StatusCompleted = "completed"
	// StatusError marks a match that hit a fatal fault. It is never resumed
	// automatically.
	StatusError = "error"
)

const (
	ModeInteractive = "interactive"
	ModeAuto        = "auto"
)

// End reasons recorded when a match reaches a terminal state.
const (
	EndReasonDefeat        = "defeat"
	EndReasonStalemate     = "stalemate"
	EndReasonTimeLimit     = "time_limit_exceeded"
	EndReasonMaxTurns      = "max_turns"
	EndReasonEndedByPlayer = "ended_by_player"
)

// CardDefinition is the immutable base card as loaded from the catalog.
type CardDefinition struct {
	Name    string   `json:"name" yaml:"name"`
	Power   int      `json:"power" yaml:"power"`
	Health  int      `json:"health" yaml:"health"`
	Effects []Effect `json:"effects" yaml:"effects"`
}

// CardState is one fielded card instance. Health stays within
// [0, Card.Health] and IsDefeated never reverts once set.
type CardState struct {
	Card       CardDefinition `json:"card"`
	Health     int            `json:"health"`
	Power      int            `json:"power"`
	IsDefeated bool           `json:"is_defeated"`
	// Effects holds the active instances: the definition's static effects
	// plus anything granted during play.
	Effects      []Effect `json:"effects"`
	StunnedTurns int      `json:"stunned_turns"`
	// Revealed is set the first time the card is engaged in an exchange.
	Revealed bool `json:"revealed"`
}

// NewCardState fields a fresh instance of def at full health.
func NewCardState(def CardDefinition) CardState {
	effects := make([]Effect, 0, len(def.Effects))
	for _, e := range def.Effects {
		c := e.Clone()
		if c.Source == "" {
			c.Source = def.Name
		}
		effects = append(effects, c)
	}
	return CardState{
		Card:    def,
		Health:  def.Health,
		Power:   def.Power,
		Effects: effects,
	}
}

func (c *CardState) MaxHealth() int { return c.Card.Health }
func (c *CardState) BasePower() int { return c.Card.Power }
func (c *CardState) Name() string   { return c.Card.Name }

type CurrentBattle struct {
	Player1Index int `json:"player1_index"`
	Player2Index int `json:"player2_index"`
}

type SideStats struct {
	DamageDealt   int `json:"damage_dealt"`
	CardsDefeated int `json:"cards_defeated"`
	AbilitiesUsed int `json:"abilities_used"`
}

type Stats struct {
	Player1     SideStats `json:"player1"`
	Player2     SideStats `json:"player2"`
	TurnsPlayed int       `json:"turns_played"`
}

// For returns the per-side counters for s. SideNone yields nil.
func (st *Stats) For(s Side) *SideStats {
	switch s {
	case Side1:
		return &st.Player1
	case Side2:
		return &st.Player2
	}
	return nil
}

// EventKind labels entries of the battle log.
type EventKind string

const (
	EventTurnStarted     EventKind = "turn_started"
	EventCardEngaged     EventKind = "card_engaged"
	EventAttack          EventKind = "attack"
	EventEffectTriggered EventKind = "effect_triggered"
	EventCardDefeated    EventKind = "card_defeated"
	EventTurnPassed      EventKind = "turn_passed"
	EventTurnEnded       EventKind = "turn_ended"
	EventGameEnded       EventKind = "game_ended"
)

// GameEvent is an append-only battle log entry.
type GameEvent struct {
	Seq       int       `json:"seq"`
	Turn      int       `json:"turn"`
	Kind      EventKind `json:"kind"`
	Side      Side      `json:"side,omitempty"`
	Card      string    `json:"card,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// GameState is the authoritative match aggregate. Version is owned by the
// store and bumped on every committed write.
type GameState struct {
	MatchID          string        `json:"match_id"`
	Mode             string        `json:"mode"`
	Status           string        `json:"status"`
	Player1ID        string        `json:"player1_id"`
	Player2ID        string        `json:"player2_id"`
	CurrentTurn      int           `json:"current_turn"`
	Player1GoesFirst bool          `json:"player1_goes_first"`
	Player1Cards     []CardState   `json:"player1_cards"`
	Player2Cards     []CardState   `json:"player2_cards"`
	CurrentBattle    CurrentBattle `json:"current_battle"`
	Winner           Winner        `json:"winner"`
	EndReason        string        `json:"end_reason,omitempty"`
	ErrorCause       string        `json:"error_cause,omitempty"`
	BattleLog        []GameEvent   `json:"battle_log"`
	Stats            Stats         `json:"stats"`
	// HealthHistory keeps the most recent health snapshots, oldest first.
	HealthHistory []string  `json:"health_history,omitempty"`
	TurnStartedAt time.Time `json:"turn_started_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// IsTerminal reports whether the match accepts no further mutation.
func (g *GameState) IsTerminal() bool {
	return g.Winner != WinnerNone || g.Status == StatusCompleted || g.Status == StatusError
}

// Roster returns the card slice fielded by side s.
func (g *GameState) Roster(s Side) []CardState {
	switch s {
	case Side1:
		return g.Player1Cards
	case Side2:
		return g.Player2Cards
	}
	return nil
}

func (g *GameState) BattleIndex(s Side) int {
	if s == Side1 {
		return g.CurrentBattle.Player1Index
	}
	return g.CurrentBattle.Player2Index
}

func (g *GameState) SetBattleIndex(s Side, i int) {
	if s == Side1 {
		g.CurrentBattle.Player1Index = i
		return
	}
	g.CurrentBattle.Player2Index = i
}

// Engaged returns the card currently fielded by s, or nil when the index
// is out of range.
func (g *GameState) Engaged(s Side) *CardState {
	roster := g.Roster(s)
	i := g.BattleIndex(s)
	if i < 0 || i >= len(roster) {
		return nil
	}
	return &roster[i]
}

// AllDefeated reports whether every card of s is defeated.
func (g *GameState) AllDefeated(s Side) bool {
	for i := range g.Roster(s) {
		if !g.Roster(s)[i].IsDefeated {
			return false
		}
	}
	return true
}

// Healths lists current health per card of s in roster order.
func (g *GameState) Healths(s Side) []int {
	roster := g.Roster(s)
	out := make([]int, len(roster))
	for i := range roster {
		out[i] = roster[i].Health
	}
	return out
}

// PlayerSide maps a participant id to its side.
func (g *GameState) PlayerSide(playerID string) Side {
	switch {
	case playerID == "":
		return SideNone
	case playerID == g.Player1ID:
		return Side1
	case playerID == g.Player2ID:
		return Side2
	}
	return SideNone
}

// AppendEvent stamps ev with the next sequence number and appends it.
func (g *GameState) AppendEvent(ev GameEvent) {
	ev.Seq = len(g.BattleLog) + 1
	if ev.Turn == 0 {
		ev.Turn = g.CurrentTurn
	}
	g.BattleLog = append(g.BattleLog, ev)
}

// Clone returns a deep copy of g.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	out := *g
	out.Player1Cards = cloneCards(g.Player1Cards)
	out.Player2Cards = cloneCards(g.Player2Cards)
	if g.BattleLog != nil {
		out.BattleLog = append([]GameEvent(nil), g.BattleLog...)
	}
	if g.HealthHistory != nil {
		out.HealthHistory = append([]string(nil), g.HealthHistory...)
	}
	return &out
}

func cloneCards(in []CardState) []CardState {
	if in == nil {
		return nil
	}
	out := make([]CardState, len(in))
	for i, c := range in {
		out[i] = c
		if c.Card.Effects != nil {
			out[i].Card.Effects = make([]Effect, len(c.Card.Effects))
			for j, e := range c.Card.Effects {
				out[i].Card.Effects[j] = e.Clone()
			}
		}
		if c.Effects != nil {
			out[i].Effects = make([]Effect, len(c.Effects))
			for j, e := range c.Effects {
				out[i].Effects[j] = e.Clone()
			}
		}
	}
	return out
}
