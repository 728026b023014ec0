package game

import "fmt"

// Phase is one step of the per-exchange resolution pipeline.
type Phase uint8

const (
	PhaseTurnStart Phase = iota
	PhasePreCombat
	PhaseCombat
	PhasePostCombat
	PhaseTurnEnd
	PhaseOnDeath
)

var phaseNames = [...]string{"turn_start", "pre_combat", "combat", "post_combat", "turn_end", "on_death"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// TriggerKind is what a card effect declares; the pipeline maps it to a
// Phase.
type TriggerKind uint8

const (
	TriggerUnknown TriggerKind = iota
	TriggerTurnStart
	TriggerOnAttack
	TriggerOnDefend
	TriggerOnDamageReceived
	TriggerOnDamageDealt
	TriggerOnTurnEnd
	TriggerOnDeath
)

var triggerNames = map[TriggerKind]string{
	TriggerUnknown:          "unknown",
	TriggerTurnStart:        "turn_start",
	TriggerOnAttack:         "on_attack",
	TriggerOnDefend:         "on_defend",
	TriggerOnDamageReceived: "on_damage_received",
	TriggerOnDamageDealt:    "on_damage_dealt",
	TriggerOnTurnEnd:        "on_turn_end",
	TriggerOnDeath:          "on_death",
}

// Phase returns the resolution phase for t. Unknown triggers never fire.
func (t TriggerKind) Phase() (Phase, bool) {
	switch t {
	case TriggerTurnStart:
		return PhaseTurnStart, true
	case TriggerOnAttack, TriggerOnDefend:
		return PhasePreCombat, true
	case TriggerOnDamageReceived:
		return PhaseCombat, true
	case TriggerOnDamageDealt:
		return PhasePostCombat, true
	case TriggerOnTurnEnd:
		return PhaseTurnEnd, true
	case TriggerOnDeath:
		return PhaseOnDeath, true
	}
	return 0, false
}

func (t TriggerKind) String() string {
	if s, ok := triggerNames[t]; ok {
		return s
	}
	return triggerNames[TriggerUnknown]
}

func (t TriggerKind) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText never fails: unrecognised names decode to TriggerUnknown.
func (t *TriggerKind) UnmarshalText(b []byte) error {
	*t = TriggerUnknown
	for k, name := range triggerNames {
		if name == string(b) {
			*t = k
			break
		}
	}
	return nil
}

// EffectKind is the closed catalog of effect behaviours.
type EffectKind uint8

const (
	EffectUnknown EffectKind = iota
	EffectBurn
	EffectPowerBoost
	EffectPowerReduction
	EffectHeal
	EffectShield
	EffectExplosion
	EffectDrain
	EffectReflect
	EffectStun
	EffectInflict
)

var effectKindNames = map[EffectKind]string{
	EffectUnknown:        "unknown",
	EffectBurn:           "burn",
	EffectPowerBoost:     "power_boost",
	EffectPowerReduction: "power_reduction",
	EffectHeal:           "heal",
	EffectShield:         "shield",
	EffectExplosion:      "explosion",
	EffectDrain:          "drain",
	EffectReflect:        "reflect",
	EffectStun:           "stun",
	EffectInflict:        "inflict",
}

func (k EffectKind) String() string {
	if s, ok := effectKindNames[k]; ok {
		return s
	}
	return effectKindNames[EffectUnknown]
}

func (k EffectKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText never fails: unrecognised kinds decode to EffectUnknown
// and resolve as no-ops.
func (k *EffectKind) UnmarshalText(b []byte) error {
	*k = EffectUnknown
	for kind, name := range effectKindNames {
		if name == string(b) {
			*k = kind
			break
		}
	}
	return nil
}

// EffectTarget selects who an effect acts on relative to its holder.
type EffectTarget uint8

const (
	TargetSelf EffectTarget = iota
	TargetOpponent
)

func (t EffectTarget) String() string {
	if t == TargetOpponent {
		return "opponent"
	}
	return "self"
}

func (t EffectTarget) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *EffectTarget) UnmarshalText(b []byte) error {
	switch string(b) {
	case "", "self":
		*t = TargetSelf
	case "opponent":
		*t = TargetOpponent
	default:
		return fmt.Errorf("unknown effect target %q", string(b))
	}
	return nil
}

// Effect is a card effect instance. A nil Duration means the effect is
// persistent; otherwise it counts down once per application and the
// instance is dropped at zero.
type Effect struct {
	Name        string       `json:"name" yaml:"name"`
	Kind        EffectKind   `json:"kind" yaml:"kind"`
	Trigger     TriggerKind  `json:"trigger" yaml:"trigger"`
	Target      EffectTarget `json:"target" yaml:"target"`
	Magnitude   int          `json:"magnitude" yaml:"magnitude"`
	Duration    *int         `json:"remaining_duration,omitempty" yaml:"duration,omitempty"`
	Description string       `json:"description" yaml:"description"`
	// Source names the card the effect originated from.
	Source string `json:"source,omitempty" yaml:"-"`
	// Grant is the template attached by an inflict effect.
	Grant *Effect `json:"grant,omitempty" yaml:"grant,omitempty"`
}

// Clone returns a deep copy so instances never share Duration or Grant.
func (e Effect) Clone() Effect {
	c := e
	if e.Duration != nil {
		d := *e.Duration
		c.Duration = &d
	}
	if e.Grant != nil {
		g := e.Grant.Clone()
		c.Grant = &g
	}
	return c
}

// Dated reports whether the effect carries a remaining duration.
func (e *Effect) Dated() bool { return e.Duration != nil }

// IntPtr is a small helper for building dated effects.
func IntPtr(v int) *int { return &v }
