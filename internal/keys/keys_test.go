package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardKey(t *testing.T) {
	assert.Equal(t, "ember_fox", CardKey("Ember Fox"))
	assert.Equal(t, "ember_fox", CardKey("  ember   fox "))
	assert.Equal(t, "ember_fox", CardKey("EMBER_FOX"))
	assert.Equal(t, "", CardKey("   "))
}

func TestHealthSnapshot(t *testing.T) {
	assert.Equal(t, "10,5|7,0", HealthSnapshot([]int{10, 5}, []int{7, 0}))
	assert.Equal(t, "|3", HealthSnapshot(nil, []int{3}))
	assert.NotEqual(t, HealthSnapshot([]int{1, 11}), HealthSnapshot([]int{11, 1}))
}
