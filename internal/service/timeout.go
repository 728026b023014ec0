package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/game"
)

// Watchdog force-ends matches whose current turn has been open for longer
// than the turn time limit. It scans the store, so it also catches matches
// whose owning process died.
type Watchdog struct {
	mgr      *Manager
	limit    time.Duration
	interval time.Duration
	log      *zap.Logger
}

func NewWatchdog(mgr *Manager, limit, interval time.Duration, log *zap.Logger) *Watchdog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watchdog{mgr: mgr, limit: limit, interval: interval, log: log}
}

// Run scans every interval until ctx is done.
func (w *Watchdog) Run(ctx context.Context) error {
	if w.limit <= 0 || w.interval <= 0 {
		w.log.Info("turn watchdog disabled")
		<-ctx.Done()
		return nil
	}
	ticker := w.mgr.Clock().NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if _, err := w.Scan(ctx); err != nil && ctx.Err() == nil {
				w.log.Error("turn watchdog scan failed", zap.Error(err))
			}
		}
	}
}

// Scan handles every timed out match once and returns how many it ended.
func (w *Watchdog) Scan(ctx context.Context) (int, error) {
	cutoff := w.mgr.Clock().Now().Add(-w.limit)
	ids, err := w.mgr.Store().FindTimedOutMatches(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	ended := 0
	for _, id := range ids {
		ok, err := w.HandleTimedOutMatch(ctx, id)
		if err != nil {
			w.log.Warn("failed to end timed out match",
				zap.String(constants.LogFieldMatchID, id),
				zap.Error(err))
			continue
		}
		if ok {
			ended++
		}
	}
	return ended, nil
}

// HandleTimedOutMatch ends matchID as a draw if its turn is still past the
// limit when re-read. It reports whether this call ended the match; a
// match already ended or advanced by someone else is left untouched.
func (w *Watchdog) HandleTimedOutMatch(ctx context.Context, matchID string) (bool, error) {
	ended := false
	_, err := w.mgr.Mutate(ctx, matchID, func(g *game.GameState, now time.Time) error {
		ended = false
		if g.Status != game.StatusPlaying || now.Sub(g.TurnStartedAt) < w.limit {
			return ErrNoChange
		}
		if !w.mgr.Machine().ForceDraw(g, game.EndReasonTimeLimit, now) {
			return ErrNoChange
		}
		ended = true
		return nil
	})
	if errors.Is(err, ErrMatchCompleted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if ended {
		w.log.Info("turn time limit exceeded, match drawn",
			zap.String(constants.LogFieldMatchID, matchID),
			zap.Duration("limit", w.limit))
	}
	return ended, nil
}
