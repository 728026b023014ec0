package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ericogr/chimera-arena/internal/game"
	"github.com/ericogr/chimera-arena/internal/keys"
)

var ErrUnknownCard = errors.New("unknown card")

type catalogFile struct {
	Cards []game.CardDefinition `yaml:"cards"`
}

// Catalog is the read-only set of card definitions players draw rosters
// from.
type Catalog struct {
	cards []game.CardDefinition
	byKey map[string]int
}

// LoadCatalog reads the YAML card list at path. It requires the key
// `cards`.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(b)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}
	if len(f.Cards) == 0 {
		return nil, errors.New("cards is empty (provide a 'cards' list)")
	}
	c := &Catalog{cards: f.Cards, byKey: make(map[string]int, len(f.Cards))}
	for i, card := range f.Cards {
		key := keys.CardKey(card.Name)
		if key == "" {
			return nil, fmt.Errorf("card %d is missing 'name'", i)
		}
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate card name '%s'", card.Name)
		}
		if card.Health <= 0 {
			return nil, fmt.Errorf("card '%s': health must be positive", card.Name)
		}
		if card.Power < 0 {
			return nil, fmt.Errorf("card '%s': power must not be negative", card.Name)
		}
		for _, e := range card.Effects {
			if err := validateEffect(e); err != nil {
				return nil, fmt.Errorf("card '%s': effect '%s': %w", card.Name, e.Name, err)
			}
		}
		c.byKey[key] = i
	}
	return c, nil
}

func validateEffect(e game.Effect) error {
	if e.Magnitude < 0 {
		return errors.New("magnitude must not be negative")
	}
	if e.Duration != nil && *e.Duration <= 0 {
		return errors.New("duration must be positive when set")
	}
	if e.Kind == game.EffectInflict {
		if e.Grant == nil {
			return errors.New("inflict requires a 'grant'")
		}
		return validateEffect(*e.Grant)
	}
	return nil
}

// Cards returns a copy of every definition in catalog order.
func (c *Catalog) Cards() []game.CardDefinition {
	out := make([]game.CardDefinition, len(c.cards))
	copy(out, c.cards)
	return out
}

// Lookup finds a card by name, ignoring case and spacing.
func (c *Catalog) Lookup(name string) (game.CardDefinition, bool) {
	i, ok := c.byKey[keys.CardKey(name)]
	if !ok {
		return game.CardDefinition{}, false
	}
	return c.cards[i], true
}

// Roster resolves an ordered list of card names.
func (c *Catalog) Roster(names []string) ([]game.CardDefinition, error) {
	out := make([]game.CardDefinition, 0, len(names))
	for _, n := range names {
		d, ok := c.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCard, n)
		}
		out = append(out, d)
	}
	return out, nil
}
