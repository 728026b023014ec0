package projection

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericogr/chimera-arena/internal/engine"
	"github.com/ericogr/chimera-arena/internal/game"
)

var now = time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)

func newMatch(t *testing.T) (*engine.Machine, *game.GameState) {
	t.Helper()
	m := engine.NewMachine(nil)
	g := engine.NewGame("m1", game.ModeInteractive, "alice", "bob",
		[]game.CardDefinition{{Name: "Lion", Power: 5, Health: 10}, {Name: "Hawk", Power: 2, Health: 6}},
		[]game.CardDefinition{{Name: "Ox", Power: 3, Health: 10}, {Name: "Wolf", Power: 4, Health: 8}},
		true, now)
	require.NoError(t, m.Start(g, now))
	return m, g
}

func TestOwnCardsVisibleOpponentConcealed(t *testing.T) {
	_, g := newMatch(t)

	v := ForPlayer(g, "alice")
	assert.Equal(t, game.Side1, v.Viewer)
	assert.True(t, v.YourTurn)
	for _, c := range v.Player1.Cards {
		assert.False(t, c.Concealed)
		assert.NotEmpty(t, c.Name)
	}
	for _, c := range v.Player2.Cards {
		assert.True(t, c.Concealed)
		assert.Empty(t, c.Name)
		assert.Zero(t, c.Health)
	}
	assert.Equal(t, 2, v.Player2.Remaining)

	bob := ForPlayer(g, "bob")
	assert.False(t, bob.YourTurn)
	assert.True(t, bob.Player1.Cards[0].Concealed)
}

func TestEngagedCardsAreRevealed(t *testing.T) {
	m, g := newMatch(t)
	_, err := m.ProcessTurn(g, now)
	require.NoError(t, err)

	v := ForPlayer(g, "alice")
	assert.False(t, v.Player2.Cards[0].Concealed)
	assert.Equal(t, "Ox", v.Player2.Cards[0].Name)
	assert.Equal(t, 5, v.Player2.Cards[0].Health)
	assert.True(t, v.Player2.Cards[1].Concealed)
}

func TestSpectatorSeesOnlyRevealed(t *testing.T) {
	m, g := newMatch(t)
	_, err := m.ProcessTurn(g, now)
	require.NoError(t, err)

	v := ForPlayer(g, "mallory")
	assert.Equal(t, game.SideNone, v.Viewer)
	assert.False(t, v.YourTurn)
	assert.False(t, v.Player1.Cards[0].Concealed)
	assert.True(t, v.Player1.Cards[1].Concealed)
	assert.True(t, v.Player2.Cards[1].Concealed)
}

func TestTerminalMatchShowsEverything(t *testing.T) {
	m, g := newMatch(t)
	m.ForceDraw(g, game.EndReasonEndedByPlayer, now)

	v := Project(g, game.SideNone)
	assert.Equal(t, game.SideNone, v.ActiveSide)
	for _, sv := range []SideView{v.Player1, v.Player2} {
		for _, c := range sv.Cards {
			assert.False(t, c.Concealed)
		}
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"winner":"draw"`)
}

func TestProjectDoesNotAlias(t *testing.T) {
	_, g := newMatch(t)
	g.Player1Cards[0].Effects = []game.Effect{{Name: "Roar", Kind: game.EffectPowerBoost, Duration: game.IntPtr(2)}}

	v := Project(g, game.Side1)
	*v.Player1.Cards[0].Effects[0].Duration = 0
	v.BattleLog[0].Message = "edited"

	assert.Equal(t, 2, *g.Player1Cards[0].Effects[0].Duration)
	assert.NotEqual(t, "edited", g.BattleLog[0].Message)
}
