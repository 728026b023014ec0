package storage

import (
	"encoding/json"
	"fmt"

	"github.com/ericogr/chimera-arena/internal/game"
)

func encodeState(g *game.GameState) ([]byte, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode match %s: %w", g.MatchID, err)
	}
	return b, nil
}

// decodeState turns a stored blob into a validated state. The version
// column is authoritative over whatever the blob carries. When the blob
// cannot be trusted a stub is returned alongside ErrCorruptState.
func decodeState(matchID string, version int64, blob []byte) (*game.GameState, error) {
	var g game.GameState
	if err := json.Unmarshal(blob, &g); err != nil {
		return corruptStub(matchID, version), fmt.Errorf("%w: match %s: %v", ErrCorruptState, matchID, err)
	}
	if g.MatchID != matchID {
		return corruptStub(matchID, version), fmt.Errorf("%w: match %s: stored id %q", ErrCorruptState, matchID, g.MatchID)
	}
	g.Version = version
	if err := g.Validate(); err != nil {
		return corruptStub(matchID, version), fmt.Errorf("%w: match %s: %w", ErrCorruptState, matchID, err)
	}
	return &g, nil
}

func corruptStub(matchID string, version int64) *game.GameState {
	return &game.GameState{MatchID: matchID, Version: version, CurrentTurn: 1}
}
