package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/dedupe"
	"github.com/ericogr/chimera-arena/internal/engine"
	"github.com/ericogr/chimera-arena/internal/game"
)

// DriverConfig paces and bounds auto-resolved matches.
type DriverConfig struct {
	InterTurnDelay  time.Duration
	MaxTurns        int
	StalemateRounds int
}

// Driver resolves the turns of auto matches without player input.
type Driver struct {
	mgr     *Manager
	cfg     DriverConfig
	log     *zap.Logger
	running dedupe.Group
}

func NewDriver(mgr *Manager, cfg DriverConfig, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{mgr: mgr, cfg: cfg, log: log}
}

// Launch runs the driver for matchID in the background. A second launch
// for a match whose driver is still running in this process is ignored.
func (d *Driver) Launch(ctx context.Context, matchID string) {
	d.running.Go(matchID, func() {
		if err := d.Run(ctx, matchID); err != nil {
			d.log.Error("turn driver stopped",
				zap.String(constants.LogFieldMatchID, matchID),
				zap.Error(err))
		}
	})
}

// ResumeAll launches a driver for every auto match still playing, as left
// behind by a previous process.
func (d *Driver) ResumeAll(ctx context.Context) (int, error) {
	ids, err := d.mgr.Store().ListActiveMatches(ctx, game.ModeAuto)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		d.Launch(ctx, id)
	}
	if len(ids) > 0 {
		d.log.Info("resumed auto matches", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// Run drives matchID until it leaves the playing status or ctx ends.
// Every iteration starts from a fresh read so outside changes, such as an
// explicit end or the watchdog, stop the loop.
func (d *Driver) Run(ctx context.Context, matchID string) error {
	for {
		g, err := d.mgr.Get(ctx, matchID)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrMatchNotFound), errors.Is(err, ErrMatchCorrupted):
			return err
		default:
			d.log.Warn("match read failed, retrying next interval",
				zap.String(constants.LogFieldMatchID, matchID),
				zap.Error(err))
			if !d.wait(ctx) {
				return nil
			}
			continue
		}
		if g.Status != game.StatusPlaying {
			return nil
		}

		if !d.wait(ctx) {
			return nil
		}

		_, err = d.mgr.Mutate(ctx, matchID, d.step)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrMatchCompleted):
			return nil
		case errors.Is(err, ErrRetriesExhausted):
			d.log.Warn("turn commit lost, retrying with fresh state",
				zap.String(constants.LogFieldMatchID, matchID),
				zap.Error(err))
		default:
			return err
		}
	}
}

// wait sleeps one inter-turn delay and reports false if ctx ended first.
func (d *Driver) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-d.mgr.Clock().After(d.cfg.InterTurnDelay):
		return true
	}
}

func (d *Driver) step(g *game.GameState, now time.Time) error {
	if g.Status != game.StatusPlaying {
		return ErrNoChange
	}
	m := d.mgr.Machine()
	if d.cfg.MaxTurns > 0 && g.CurrentTurn > d.cfg.MaxTurns {
		m.ForceDraw(g, game.EndReasonMaxTurns, now)
		return nil
	}
	if _, err := m.ProcessTurn(g, now); err != nil {
		return err
	}
	if g.IsTerminal() || d.cfg.StalemateRounds <= 0 {
		return nil
	}
	if run := engine.RecordHealth(g, d.cfg.StalemateRounds); run >= d.cfg.StalemateRounds {
		m.ForceDraw(g, game.EndReasonStalemate, now)
	}
	return nil
}
