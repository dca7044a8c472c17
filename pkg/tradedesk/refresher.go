package tradedesk

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

type refresherOptions struct {
	Interval time.Duration
	Delay    time.Duration
	Logger   *slog.Logger
}

// refresher owns the three refresh triggers: the repeating schedule, the
// debounced post-write trigger and explicit calls. At most one refresh runs
// at a time; overlapping triggers share the result of the one in flight.
type refresher struct {
	store    *Store
	interval time.Duration
	delay    time.Duration
	logger   *slog.Logger

	group    singleflight.Group
	inFlight atomic.Int32

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	cron    *cron.Cron
	pending *time.Timer
	closed  bool
	// requested counts fresh-run requests; completed is the highest request
	// number whose refresh started after it was made and has finished.
	requested uint64
	completed uint64
}

func newRefresher(store *Store, opts refresherOptions) *refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &refresher{
		store:    store,
		interval: opts.Interval,
		delay:    opts.Delay,
		logger:   opts.Logger,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Start schedules the repeating refresh. Calling Start twice is a no-op.
func (r *refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.cron != nil {
		return
	}
	c := cron.New()
	c.Schedule(cron.Every(r.interval), cron.FuncJob(func() {
		if r.store.portfolioLen() == 0 {
			return
		}
		r.runLogged("interval")
	}))
	c.Start()
	r.cron = c
	r.logger.Info("price refresh started", "interval", r.interval)

	if r.store.portfolioLen() > 0 {
		go r.runLogged("start")
	}
}

// Stop removes the repeating schedule and any pending debounced refresh.
func (r *refresher) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
	r.mu.Unlock()

	if c != nil {
		// Waiting for running jobs would block on in-flight requests.
		c.Stop()
		r.logger.Info("price refresh stopped")
	}
}

// Close stops the refresher for good and cancels the shared context.
func (r *refresher) Close() {
	r.Stop()
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}

// schedule arms the debounced refresh. Triggers that arrive while the timer
// is pending push it back instead of stacking another run.
func (r *refresher) schedule() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.pending != nil {
		r.pending.Reset(r.delay)
		return
	}
	r.pending = time.AfterFunc(r.delay, func() {
		r.mu.Lock()
		r.pending = nil
		r.mu.Unlock()
		if _, err := r.runFresh(r.baseCtx); err != nil {
			r.logger.Warn("price refresh failed", "trigger", "debounce", "err", err)
		}
	})
}

// Refreshing reports whether a refresh is in flight.
func (r *refresher) Refreshing() bool {
	return r.inFlight.Load() > 0
}

func (r *refresher) runLogged(trigger string) {
	if _, err := r.run(r.baseCtx); err != nil {
		r.logger.Warn("price refresh failed", "trigger", trigger, "err", err)
	}
}

// run joins the in-flight refresh or starts a new one. The shared work runs
// on the refresher context so one caller giving up does not cancel it for
// the others.
func (r *refresher) run(ctx context.Context) (LivePricesSnapshot, error) {
	ch := r.group.DoChan("refresh", func() (any, error) {
		r.inFlight.Add(1)
		defer r.inFlight.Add(-1)
		r.mu.Lock()
		start := r.requested
		r.mu.Unlock()

		snap, err := r.store.refreshOnce(r.baseCtx)

		r.mu.Lock()
		if start > r.completed {
			r.completed = start
		}
		r.mu.Unlock()
		return snap, err
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return LivePricesSnapshot{}, res.Err
		}
		return res.Val.(LivePricesSnapshot), nil
	case <-ctx.Done():
		return LivePricesSnapshot{}, ctx.Err()
	}
}

// runFresh returns once a refresh that started after the call has finished.
// A joined flight that began earlier is followed by one trailing run.
func (r *refresher) runFresh(ctx context.Context) (LivePricesSnapshot, error) {
	r.mu.Lock()
	r.requested++
	want := r.requested
	r.mu.Unlock()

	for {
		snap, err := r.run(ctx)
		r.mu.Lock()
		done := r.completed >= want
		r.mu.Unlock()
		if done || ctx.Err() != nil {
			return snap, err
		}
	}
}
