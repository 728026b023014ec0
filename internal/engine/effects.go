package engine

import (
	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/game"
)

// applyEffect dispatches one effect instance to its kind handler.
// holder owns the effect and opp is the other participant of the exchange.
// It returns the resolved magnitude and whether the effect fired; effects
// that did not fire are not logged.
func (x *exchange) applyEffect(holder, opp participant, e *game.Effect) (int, bool) {
	target := holder
	if e.Target == game.TargetOpponent {
		target = opp
	}
	t := target.card
	if t == nil || t.IsDefeated {
		return 0, false
	}

	switch e.Kind {
	case game.EffectBurn:
		v := x.hit(holder.card, t, e.Magnitude)
		return v, v > 0

	case game.EffectPowerBoost:
		if e.Magnitude == 0 {
			return 0, false
		}
		m := x.modsFor(t)
		m.boosts = append(m.boosts, e.Magnitude)
		return e.Magnitude, true

	case game.EffectPowerReduction:
		if e.Magnitude == 0 {
			return 0, false
		}
		m := x.modsFor(t)
		m.reductions = append(m.reductions, e.Magnitude)
		return e.Magnitude, true

	case game.EffectHeal:
		v := ApplyHealing(t, e.Magnitude)
		return v, v > 0

	case game.EffectShield:
		v := ApplyHealing(t, minInt(e.Magnitude, x.received[t]))
		return v, v > 0

	case game.EffectExplosion:
		v := x.hit(holder.card, t, e.Magnitude)
		return v, v > 0

	case game.EffectDrain:
		v := ApplyHealing(t, x.dealt[holder.card]*e.Magnitude/100)
		return v, v > 0

	case game.EffectReflect:
		got := x.received[holder.card]
		if got == 0 {
			return 0, false
		}
		v := x.hit(holder.card, t, maxInt(1, got*e.Magnitude/100))
		return v, v > 0

	case game.EffectStun:
		if e.Magnitude <= 0 {
			return 0, false
		}
		t.StunnedTurns += e.Magnitude
		return e.Magnitude, true

	case game.EffectInflict:
		if e.Grant == nil {
			return 0, false
		}
		granted := e.Grant.Clone()
		if granted.Source == "" {
			granted.Source = holder.card.Name()
		}
		t.Effects = append(t.Effects, granted)
		return granted.Magnitude, true

	case game.EffectUnknown:
		x.log.Warn("skipping effect of unknown kind",
			zap.String("effect", e.Name),
			zap.String("card", holder.card.Name()),
			zap.Int("turn", x.turn))
		return 0, false
	}

	x.log.Warn("skipping effect with unmapped kind", zap.Uint8("kind", uint8(e.Kind)), zap.String("effect", e.Name))
	return 0, false
}
