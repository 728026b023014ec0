package engine

import (
	"fmt"

	"github.com/ericogr/chimera-arena/internal/game"
)

// ExchangeResult summarises one resolved exchange for callers.
type ExchangeResult struct {
	Attacker game.Side `json:"attacker"`
	Damage   int       `json:"damage"`
	Stunned  bool      `json:"stunned"`
	Defeated []string  `json:"defeated,omitempty"`
}

// resolve runs one exchange. Only the attacker deals combat damage;
// the defender answers on the next turn. Reactive effects (reflect,
// explosion) can still hurt the attacker here.
func (x *exchange) resolve() ExchangeResult {
	att, def := x.att.card, x.def.card
	att.Power = att.BasePower()
	def.Power = def.BasePower()
	x.reveal(x.att)
	x.reveal(x.def)

	x.runPhase(game.PhaseTurnStart)
	x.checkDefeats()

	if !att.IsDefeated && !def.IsDefeated {
		if att.StunnedTurns > 0 {
			att.StunnedTurns--
			x.stunned = true
			x.emit(game.EventAttack, x.att.side, att.Name(), 0,
				fmt.Sprintf("%s is stunned and cannot attack", att.Name()))
		} else {
			x.combat()
		}
	}

	x.runPhase(game.PhaseTurnEnd)
	x.checkDefeats()

	att.Power = att.BasePower()
	def.Power = def.BasePower()

	return ExchangeResult{
		Attacker: x.att.side,
		Damage:   x.damage,
		Stunned:  x.stunned,
		Defeated: x.defeated,
	}
}

// combat runs pre_combat, the damage step, combat and post_combat, then
// settles defeats.
func (x *exchange) combat() {
	att, def := x.att.card, x.def.card

	x.runPhase(game.PhasePreCombat)

	dmg := CalculateDamage(att, def, x.attackerModifiers(), x.defenderModifiers())
	power := att.BasePower()
	for _, m := range x.attackerModifiers() {
		power += m
	}
	att.Power = maxInt(0, power)

	x.damage = x.hit(att, def, dmg)
	x.emit(game.EventAttack, x.att.side, att.Name(), x.damage,
		fmt.Sprintf("%s attacks %s for %d damage", att.Name(), def.Name(), x.damage))

	x.runPhase(game.PhaseCombat)
	x.runPhase(game.PhasePostCombat)
	x.checkDefeats()
}

// checkDefeats marks newly defeated participants, defender first, and runs
// their on_death effects. It loops so a defeat caused by an on_death effect
// is settled in the same call.
func (x *exchange) checkDefeats() {
	for changed := true; changed; {
		changed = false
		for _, p := range []participant{x.def, x.att} {
			if p.card.IsDefeated || !CheckDefeat(p.card) {
				continue
			}
			x.defeat(p)
			changed = true
		}
	}
}

func (x *exchange) defeat(p participant) {
	p.card.IsDefeated = true
	p.card.Health = 0
	p.card.StunnedTurns = 0
	x.defeated = append(x.defeated, p.card.Name())
	if st := x.g.Stats.For(p.side.Opponent()); st != nil {
		st.CardsDefeated++
	}
	x.emit(game.EventCardDefeated, p.side, p.card.Name(), 0,
		fmt.Sprintf("%s's %s is defeated!", p.side, p.card.Name()))
	x.runOnDeath(p)
}

func (x *exchange) reveal(p participant) {
	if p.card.Revealed {
		return
	}
	p.card.Revealed = true
	x.emit(game.EventCardEngaged, p.side, p.card.Name(), 0,
		fmt.Sprintf("%s enters the battle for %s", p.card.Name(), p.side))
}
