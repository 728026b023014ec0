package engine

import (
	"github.com/ericogr/chimera-arena/internal/game"
)

// runPhase resolves one pipeline phase for both participants: the
// attacker's effects first, then the defender's, each in declaration
// order. on_death is never run here; see runOnDeath.
func (x *exchange) runPhase(phase game.Phase) {
	x.runHolder(x.att, x.def, phase)
	x.runHolder(x.def, x.att, phase)
}

// runOnDeath resolves the on_death effects of a card defeated in this
// exchange, with the other participant as the opponent.
func (x *exchange) runOnDeath(dead participant) {
	x.runHolder(dead, x.other(dead), game.PhaseOnDeath)
}

func (x *exchange) runHolder(holder, opp participant, phase game.Phase) {
	card := holder.card
	if card == nil {
		return
	}
	if card.IsDefeated && phase != game.PhaseOnDeath {
		return
	}
	// Effects granted while this phase runs wait for the next one.
	n := len(card.Effects)
	expired := false
	for i := 0; i < n; i++ {
		e := &card.Effects[i]
		if !x.eligible(holder, e, phase) {
			continue
		}
		v, fired := x.applyEffect(holder, opp, e)
		// applyEffect may append to card.Effects; re-take the address.
		e = &card.Effects[i]
		// A dated effect spends one run of its phase even when it had
		// nothing to do, such as a heal on a card at full health.
		if e.Duration != nil {
			*e.Duration--
			if *e.Duration <= 0 {
				expired = true
			}
		}
		if !fired {
			continue
		}
		target := holder.card
		if e.Target == game.TargetOpponent {
			target = opp.card
		}
		x.emit(game.EventEffectTriggered, holder.side, card.Name(), v, describe(e, v, target))
		if st := x.g.Stats.For(holder.side); st != nil {
			st.AbilitiesUsed++
		}
	}
	if expired {
		card.Effects = pruneExpired(card.Effects)
	}
}

// eligible reports whether e fires for holder in phase.
func (x *exchange) eligible(holder participant, e *game.Effect, phase game.Phase) bool {
	p, ok := e.Trigger.Phase()
	if !ok || p != phase {
		return false
	}
	if e.Duration != nil && *e.Duration <= 0 {
		return false
	}
	switch e.Trigger {
	case game.TriggerOnAttack:
		return holder.card == x.att.card
	case game.TriggerOnDefend:
		return holder.card == x.def.card
	case game.TriggerOnDamageReceived:
		return x.received[holder.card] > 0
	case game.TriggerOnDamageDealt:
		return x.dealt[holder.card] > 0
	}
	return true
}

func pruneExpired(effects []game.Effect) []game.Effect {
	kept := effects[:0]
	for _, e := range effects {
		if e.Duration != nil && *e.Duration <= 0 {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
