package game

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Side identifies one of the two combatants.
type Side int

const (
	SideNone Side = 0
	Side1    Side = 1
	Side2    Side = 2
)

func (s Side) Opponent() Side {
	switch s {
	case Side1:
		return Side2
	case Side2:
		return Side1
	}
	return SideNone
}

func (s Side) String() string {
	switch s {
	case Side1:
		return "player1"
	case Side2:
		return "player2"
	}
	return "none"
}

// ActiveSide returns the side that attacks on turn. It is the only place
// turn ownership is derived; player 1 acts when
// turn%2 == 1 if it goes first, or turn%2 == 0 otherwise.
func ActiveSide(turn int, player1GoesFirst bool) Side {
	want := 0
	if player1GoesFirst {
		want = 1
	}
	if turn%2 == want {
		return Side1
	}
	return Side2
}

// Winner encodes as null, 1, 2 or "draw".
type Winner int

const (
	WinnerNone Winner = iota
	WinnerPlayer1
	WinnerPlayer2
	WinnerDraw
)

// WinnerFor converts a side into the winner value for that side.
func WinnerFor(s Side) Winner {
	switch s {
	case Side1:
		return WinnerPlayer1
	case Side2:
		return WinnerPlayer2
	}
	return WinnerNone
}

func (w Winner) String() string {
	switch w {
	case WinnerPlayer1:
		return "1"
	case WinnerPlayer2:
		return "2"
	case WinnerDraw:
		return "draw"
	}
	return "none"
}

func (w Winner) MarshalJSON() ([]byte, error) {
	switch w {
	case WinnerNone:
		return []byte("null"), nil
	case WinnerPlayer1:
		return []byte("1"), nil
	case WinnerPlayer2:
		return []byte("2"), nil
	case WinnerDraw:
		return []byte(`"draw"`), nil
	}
	return nil, fmt.Errorf("invalid winner value %d", int(w))
}

func (w *Winner) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "null", "":
		*w = WinnerNone
		return nil
	case `"draw"`:
		*w = WinnerDraw
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("winner: %w", err)
	}
	switch n {
	case 1:
		*w = WinnerPlayer1
	case 2:
		*w = WinnerPlayer2
	default:
		return fmt.Errorf("winner: unexpected value %d", n)
	}
	return nil
}
