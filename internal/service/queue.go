package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ericogr/chimera-arena/internal/clock"
	"github.com/ericogr/chimera-arena/internal/constants"
	"github.com/ericogr/chimera-arena/internal/game"
)

var ErrQueueFull = errors.New("too many queued actions")

// Job is one queued unit of work against a match.
type Job func(ctx context.Context) (*game.GameState, error)

// Result is delivered once per enqueued job.
type Result struct {
	State *game.GameState
	Err   error
}

type ticket struct {
	ctx    context.Context
	job    Job
	result chan Result
}

type lane struct {
	pending []*ticket
	running bool
	last    time.Time
}

// ActionQueue serializes the actions of each match. Jobs of one match run
// one at a time in FIFO order, at least minInterval apart on the clock.
// At most maxDepth jobs may wait per match; further jobs are rejected.
type ActionQueue struct {
	clock       clock.Clock
	maxDepth    int
	minInterval time.Duration
	log         *zap.Logger

	mu    sync.Mutex
	lanes map[string]*lane
}

func NewActionQueue(clk clock.Clock, maxDepth int, minInterval time.Duration, log *zap.Logger) *ActionQueue {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &ActionQueue{
		clock:       clk,
		maxDepth:    maxDepth,
		minInterval: minInterval,
		log:         log,
		lanes:       make(map[string]*lane),
	}
}

// Enqueue appends job to the queue of matchID. The returned channel
// receives exactly one Result.
func (q *ActionQueue) Enqueue(ctx context.Context, matchID string, job Job) (<-chan Result, error) {
	t := &ticket{ctx: ctx, job: job, result: make(chan Result, 1)}

	q.mu.Lock()
	defer q.mu.Unlock()
	l, ok := q.lanes[matchID]
	if !ok {
		l = &lane{}
		q.lanes[matchID] = l
	}
	if len(l.pending) >= q.maxDepth {
		q.log.Warn("action queue full",
			zap.String(constants.LogFieldMatchID, matchID),
			zap.Int("depth", len(l.pending)))
		return nil, ErrQueueFull
	}
	l.pending = append(l.pending, t)
	if !l.running {
		l.running = true
		go q.drain(matchID, l)
	}
	return t.result, nil
}

// Do enqueues job and waits for its result.
func (q *ActionQueue) Do(ctx context.Context, matchID string, job Job) (*game.GameState, error) {
	ch, err := q.Enqueue(ctx, matchID, job)
	if err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return r.State, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Depth reports how many jobs wait for matchID, including one that is
// held back by the spacing rule.
func (q *ActionQueue) Depth(matchID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.lanes[matchID]; ok {
		return len(l.pending)
	}
	return 0
}

// Forget drops the bookkeeping of an idle match.
func (q *ActionQueue) Forget(matchID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.lanes[matchID]; ok && !l.running && len(l.pending) == 0 {
		delete(q.lanes, matchID)
	}
}

func (q *ActionQueue) drain(matchID string, l *lane) {
	for {
		q.mu.Lock()
		if len(l.pending) == 0 {
			l.running = false
			q.mu.Unlock()
			return
		}
		head := l.pending[0]
		var wait time.Duration
		if !l.last.IsZero() {
			wait = l.last.Add(q.minInterval).Sub(q.clock.Now())
		}
		q.mu.Unlock()

		if wait > 0 {
			select {
			case <-q.clock.After(wait):
			case <-head.ctx.Done():
			}
		}

		q.mu.Lock()
		l.pending = l.pending[1:]
		q.mu.Unlock()

		if err := head.ctx.Err(); err != nil {
			head.result <- Result{Err: err}
			continue
		}
		g, err := head.job(head.ctx)
		q.mu.Lock()
		l.last = q.clock.Now()
		q.mu.Unlock()
		head.result <- Result{State: g, Err: err}
	}
}
