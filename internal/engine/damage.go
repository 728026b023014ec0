package engine

import "github.com/ericogr/chimera-arena/internal/game"

// CalculateDamage returns the damage attacker deals to defender.
// The attacker's working power is adjusted by every attacker modifier
// (signed), then the sum of the defender's reductions is subtracted once.
// The result is never negative.
func CalculateDamage(attacker, defender *game.CardState, attackerMods, defenderMods []int) int {
	if attacker == nil || defender == nil || defender.IsDefeated {
		return 0
	}
	dmg := attacker.Power
	for _, m := range attackerMods {
		dmg += m
	}
	reduction := 0
	for _, r := range defenderMods {
		reduction += r
	}
	dmg -= reduction
	if dmg < 0 {
		return 0
	}
	return dmg
}

// ApplyDamage lowers target health by amount, floored at zero, and returns
// the health actually removed.
func ApplyDamage(target *game.CardState, amount int) int {
	if target == nil || amount <= 0 || target.Health <= 0 {
		return 0
	}
	if amount > target.Health {
		amount = target.Health
	}
	target.Health -= amount
	return amount
}

// ApplyHealing raises target health by amount, capped at max health, and
// returns the amount actually healed. Defeated cards cannot be healed.
func ApplyHealing(target *game.CardState, amount int) int {
	if target == nil || amount <= 0 || target.IsDefeated {
		return 0
	}
	room := target.MaxHealth() - target.Health
	if room <= 0 {
		return 0
	}
	if amount > room {
		amount = room
	}
	target.Health += amount
	return amount
}

// CheckDefeat reports whether card has no health left.
func CheckDefeat(card *game.CardState) bool {
	return card.Health <= 0
}
