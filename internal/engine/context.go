package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/game"
)

// --- Exchange context and helpers -------------------------------------

// participant is one card taking part in an exchange together with the
// side that fields it.
type participant struct {
	card *game.CardState
	side game.Side
}

// modifiers collects what pre_combat effects recorded for one card.
type modifiers struct {
	boosts     []int
	reductions []int
}

// exchange carries the working data of one attacker/defender exchange.
// It is discarded when the exchange returns.
type exchange struct {
	g    *game.GameState
	log  *zap.Logger
	now  time.Time
	turn int

	att participant
	def participant

	mods     map[*game.CardState]*modifiers
	dealt    map[*game.CardState]int
	received map[*game.CardState]int

	damage   int
	stunned  bool
	defeated []string
}

func newExchange(g *game.GameState, log *zap.Logger, now time.Time, att, def participant) *exchange {
	return &exchange{
		g:        g,
		log:      log,
		now:      now,
		turn:     g.CurrentTurn,
		att:      att,
		def:      def,
		mods:     make(map[*game.CardState]*modifiers, 2),
		dealt:    make(map[*game.CardState]int, 2),
		received: make(map[*game.CardState]int, 2),
	}
}

func (x *exchange) other(p participant) participant {
	if p.card == x.att.card {
		return x.def
	}
	return x.att
}

func (x *exchange) sideOf(c *game.CardState) game.Side {
	switch c {
	case x.att.card:
		return x.att.side
	case x.def.card:
		return x.def.side
	}
	return game.SideNone
}

func (x *exchange) modsFor(c *game.CardState) *modifiers {
	m, ok := x.mods[c]
	if !ok {
		m = &modifiers{}
		x.mods[c] = m
	}
	return m
}

// attackerModifiers flattens the attacker's boosts and reductions into the
// signed list the damage calculator expects.
func (x *exchange) attackerModifiers() []int {
	m := x.modsFor(x.att.card)
	out := make([]int, 0, len(m.boosts)+len(m.reductions))
	out = append(out, m.boosts...)
	for _, r := range m.reductions {
		out = append(out, -r)
	}
	return out
}

func (x *exchange) defenderModifiers() []int {
	return x.modsFor(x.def.card).reductions
}

// hit applies damage from source to target and books it in the exchange
// counters and match stats.
func (x *exchange) hit(source, target *game.CardState, amount int) int {
	removed := ApplyDamage(target, amount)
	if removed == 0 {
		return 0
	}
	x.received[target] += removed
	if source != nil && source != target {
		x.dealt[source] += removed
		if st := x.g.Stats.For(x.sideOf(source)); st != nil {
			st.DamageDealt += removed
		}
	}
	return removed
}

func (x *exchange) emit(kind game.EventKind, side game.Side, card string, amount int, msg string) {
	x.g.AppendEvent(game.GameEvent{
		Turn:      x.turn,
		Kind:      kind,
		Side:      side,
		Card:      card,
		Amount:    amount,
		Message:   msg,
		Timestamp: x.now,
	})
}

// describe renders an effect description template.
func describe(e *game.Effect, value int, target *game.CardState) string {
	tmpl := e.Description
	if tmpl == "" {
		tmpl = fmt.Sprintf("%s: %s {value} on {target}", e.Name, e.Kind)
	}
	r := strings.NewReplacer("{value}", strconv.Itoa(value), "{target}", target.Name())
	return r.Replace(tmpl)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
