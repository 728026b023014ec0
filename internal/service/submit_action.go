package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/engine"
	"github.com/ericogr/chimera-arena/internal/game"
)

var (
	ErrInvalidAction    = errors.New("invalid action")
	ErrPlayerNotInMatch = errors.New("player not in match")
	ErrNotYourTurn      = errors.New("it is not your turn")
	ErrInvalidTarget    = errors.New("invalid target index")
	ErrTargetDefeated   = errors.New("target card is already defeated")
	ErrNotInteractive   = errors.New("match is resolved automatically")
	ErrInvalidMatch     = errors.New("invalid match request")
)

// ActionKind names a client action.
type ActionKind string

const (
	ActionAttack   ActionKind = "attack"
	ActionEndTurn  ActionKind = "endTurn"
	ActionGetState ActionKind = "getState"
)

// Action is a client request against a match. For attacks, Payload.Target
// is the opponent roster index the attacker aims at; it must be the
// opponent's engaged card.
type Action struct {
	Kind      ActionKind    `json:"kind"`
	Payload   ActionPayload `json:"payload"`
	Timestamp time.Time     `json:"timestamp"`
}

type ActionPayload struct {
	Target *int `json:"target,omitempty"`
}

// CardLookup resolves roster card names.
type CardLookup interface {
	Roster(names []string) ([]game.CardDefinition, error)
}

// NewMatch describes a match to create. A nil Player1GoesFirst is decided
// by a coin flip.
type NewMatch struct {
	Player1ID        string   `json:"player1_id"`
	Player2ID        string   `json:"player2_id"`
	Mode             string   `json:"mode"`
	Player1Cards     []string `json:"player1_cards"`
	Player2Cards     []string `json:"player2_cards"`
	Player1GoesFirst *bool    `json:"player1_goes_first,omitempty"`
}

// Service is the entry point for match operations coming from clients.
type Service struct {
	mgr     *Manager
	queue   *ActionQueue
	driver  *Driver
	catalog CardLookup
	log     *zap.Logger
	// background is the context auto drivers inherit; request contexts
	// end with the request.
	background context.Context
}

func NewService(ctx context.Context, mgr *Manager, queue *ActionQueue, driver *Driver, catalog CardLookup, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{mgr: mgr, queue: queue, driver: driver, catalog: catalog, log: log, background: ctx}
}

// CreateMatch validates req, starts the match and stores it. Auto matches
// get their turn driver immediately.
func (s *Service) CreateMatch(ctx context.Context, req NewMatch) (*game.GameState, error) {
	req.Player1ID = strings.TrimSpace(req.Player1ID)
	req.Player2ID = strings.TrimSpace(req.Player2ID)
	if req.Player1ID == "" || req.Player2ID == "" {
		return nil, fmt.Errorf("%w: both player ids are required", ErrInvalidMatch)
	}
	if req.Player1ID == req.Player2ID {
		return nil, fmt.Errorf("%w: players must differ", ErrInvalidMatch)
	}
	if req.Mode == "" {
		req.Mode = game.ModeInteractive
	}
	if req.Mode != game.ModeInteractive && req.Mode != game.ModeAuto {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidMatch, req.Mode)
	}
	p1, err := s.catalog.Roster(req.Player1Cards)
	if err != nil {
		return nil, fmt.Errorf("%w: player 1: %w", ErrInvalidMatch, err)
	}
	p2, err := s.catalog.Roster(req.Player2Cards)
	if err != nil {
		return nil, fmt.Errorf("%w: player 2: %w", ErrInvalidMatch, err)
	}
	first := rand.IntN(2) == 0
	if req.Player1GoesFirst != nil {
		first = *req.Player1GoesFirst
	}

	now := s.mgr.Clock().Now()
	g := engine.NewGame(uuid.NewString(), req.Mode, req.Player1ID, req.Player2ID, p1, p2, first, now)
	if err := s.mgr.Machine().Start(g, now); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMatch, err)
	}
	if err := s.mgr.Create(ctx, g); err != nil {
		return nil, err
	}
	s.log.Info("match created",
		zap.String(constants.LogFieldMatchID, g.MatchID),
		zap.String("mode", g.Mode),
		zap.Bool("player1_goes_first", first))

	if g.Mode == game.ModeAuto && !g.IsTerminal() && s.driver != nil {
		s.driver.Launch(s.background, g.MatchID)
	}
	return g, nil
}

// GetState returns the current state of matchID.
func (s *Service) GetState(ctx context.Context, matchID string) (*game.GameState, error) {
	return s.mgr.Get(ctx, matchID)
}

// SubmitAction queues a player action and waits for its outcome. The
// action is checked against the freshest state right before it commits,
// so a stale client view never applies.
func (s *Service) SubmitAction(ctx context.Context, matchID, playerID string, a Action) (*game.GameState, error) {
	switch a.Kind {
	case ActionGetState:
		g, err := s.mgr.Get(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if g.PlayerSide(playerID) == game.SideNone {
			return nil, ErrPlayerNotInMatch
		}
		return g, nil
	case ActionAttack, ActionEndTurn:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}

	g, err := s.queue.Do(ctx, matchID, func(ctx context.Context) (*game.GameState, error) {
		return s.mgr.Mutate(ctx, matchID, func(g *game.GameState, now time.Time) error {
			return s.apply(g, playerID, a, now)
		})
	})
	if err != nil {
		return g, err
	}
	s.log.Info("action applied",
		zap.String(constants.LogFieldMatchID, matchID),
		zap.String(constants.LogFieldPlayerID, playerID),
		zap.String(constants.LogFieldAction, string(a.Kind)),
		zap.Int64(constants.LogFieldVersion, g.Version))
	if g.IsTerminal() {
		s.queue.Forget(matchID)
	}
	return g, nil
}

func (s *Service) apply(g *game.GameState, playerID string, a Action, now time.Time) error {
	side := g.PlayerSide(playerID)
	if side == game.SideNone {
		return ErrPlayerNotInMatch
	}
	if g.Mode != game.ModeInteractive {
		return ErrNotInteractive
	}
	if g.Status != game.StatusPlaying {
		return engine.ErrNotPlaying
	}
	if game.ActiveSide(g.CurrentTurn, g.Player1GoesFirst) != side {
		return ErrNotYourTurn
	}
	m := s.mgr.Machine()
	switch a.Kind {
	case ActionEndTurn:
		return m.PassTurn(g, side, now)
	case ActionAttack:
		if a.Payload.Target != nil {
			opp := g.Roster(side.Opponent())
			t := *a.Payload.Target
			if t < 0 || t >= len(opp) {
				return fmt.Errorf("%w: %d", ErrInvalidTarget, t)
			}
			if opp[t].IsDefeated {
				return ErrTargetDefeated
			}
			if t != g.BattleIndex(side.Opponent()) {
				return fmt.Errorf("%w: %d is not the engaged card", ErrInvalidTarget, t)
			}
		}
		if c := g.Engaged(side); c == nil || c.IsDefeated {
			return ErrTargetDefeated
		}
		_, err := m.ProcessTurn(g, now)
		return err
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
}

// EndMatch ends matchID as a draw at a participant's request.
func (s *Service) EndMatch(ctx context.Context, matchID, playerID string) (*game.GameState, error) {
	g, err := s.mgr.Mutate(ctx, matchID, func(g *game.GameState, now time.Time) error {
		if g.PlayerSide(playerID) == game.SideNone {
			return ErrPlayerNotInMatch
		}
		if !s.mgr.Machine().ForceDraw(g, game.EndReasonEndedByPlayer, now) {
			return ErrNoChange
		}
		return nil
	})
	if err != nil {
		return g, err
	}
	s.queue.Forget(matchID)
	s.log.Info("match ended by player",
		zap.String(constants.LogFieldMatchID, matchID),
		zap.String(constants.LogFieldPlayerID, playerID))
	return g, nil
}
