package keys

import (
	"strconv"
	"strings"
)

// CardKey produces the canonical catalog key for a card name.
// Behavior: trims, lower-cases and replaces inner spaces with underscores,
// so "Ember Fox", " ember fox " and "EMBER_FOX" share one key.
func CardKey(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ToLower(strings.Join(strings.Fields(s), "_"))
	return s
}

// HealthSnapshot renders per-side health lists as a comparable string,
// e.g. [[10 5] [7 0]] becomes "10,5|7,0". Two snapshots are equal exactly
// when every card on both sides has the same health.
func HealthSnapshot(sides ...[]int) string {
	var b strings.Builder
	for i, side := range sides {
		if i > 0 {
			b.WriteByte('|')
		}
		for j, h := range side {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(h))
		}
	}
	return b.String()
}
