package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

// PollHandle describes the scheduler side of a Poller.
type PollHandle struct {
	Generation uint64
	Active     bool
	Interval   time.Duration
}

// Poller refetches a Request on a fixed period while enabled.
//
// Every change of producer or interval bumps the generation; a response is
// applied only if the generation it was issued under is still current.
// There is no backoff: the next tick is armed before the current fetch runs.
type Poller[T any] struct {
	req *Request[T]

	generation atomic.Uint64

	mu       sync.Mutex
	produce  Producer[T]
	interval time.Duration
	enabled  bool
	timer    *time.Timer
	timerSeq uint64
	closed   bool
}

// NewPoller builds a Poller. When enabled is true it fetches immediately and
// then every interval.
func NewPoller[T any](ctx context.Context, produce Producer[T], interval time.Duration, enabled bool, opts Options[T]) *Poller[T] {
	opts.Immediate = false
	if interval <= 0 {
		interval = defaultPollInterval
	}
	p := &Poller[T]{
		req:      NewRequest(ctx, produce, opts),
		produce:  produce,
		interval: interval,
	}
	context.AfterFunc(p.req.ctx, p.Close)
	if enabled {
		p.SetEnabled(true)
	}
	return p
}

// SetEnabled moves the poller between Idle and Active. Disabling stops the
// timer before returning; a fetch already in flight still lands.
func (p *Poller[T]) SetEnabled(enabled bool) {
	p.mu.Lock()
	if p.closed || p.enabled == enabled {
		p.mu.Unlock()
		return
	}
	p.enabled = enabled
	if !enabled {
		p.stopTimerLocked()
		p.mu.Unlock()
		return
	}
	gen, produce := p.armLocked()
	p.mu.Unlock()
	go p.fetch(gen, produce)
}

// SetInterval changes the period. While Active the old timer is replaced
// under a new generation and a fetch is issued right away.
func (p *Poller[T]) SetInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	p.mu.Lock()
	if p.closed || p.interval == interval {
		p.mu.Unlock()
		return
	}
	p.interval = interval
	p.restartLocked()
}

// SetProducer swaps the producer under a new generation. Responses from the
// previous producer are dropped.
func (p *Poller[T]) SetProducer(produce Producer[T]) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.produce = produce
	p.restartLocked()
}

// restartLocked bumps the generation and, when Active, re-arms the timer and
// fetches. It releases p.mu.
func (p *Poller[T]) restartLocked() {
	p.generation.Add(1)
	if !p.enabled {
		p.mu.Unlock()
		return
	}
	gen, produce := p.armLocked()
	p.mu.Unlock()
	go p.fetch(gen, produce)
}

// Refetch fetches once outside the schedule under the current generation.
func (p *Poller[T]) Refetch(ctx context.Context) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	gen := p.generation.Load()
	produce := p.produce
	p.mu.Unlock()
	return p.req.run(ctx, produce, p.acceptFor(gen))
}

// State returns the underlying request state.
func (p *Poller[T]) State() State[T] {
	return p.req.State()
}

// Handle reports the scheduler state.
func (p *Poller[T]) Handle() PollHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PollHandle{
		Generation: p.generation.Load(),
		Active:     p.enabled && !p.closed,
		Interval:   p.interval,
	}
}

// Close stops the timer and discards anything still in flight.
func (p *Poller[T]) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.enabled = false
		p.stopTimerLocked()
		p.generation.Add(1)
	}
	p.mu.Unlock()
	p.req.Close()
}

func (p *Poller[T]) armLocked() (uint64, Producer[T]) {
	p.stopTimerLocked()
	seq := p.timerSeq
	p.timer = time.AfterFunc(p.interval, func() { p.tick(seq) })
	return p.generation.Load(), p.produce
}

// stopTimerLocked also invalidates a timer callback that has already fired
// but not yet acquired p.mu.
func (p *Poller[T]) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.timerSeq++
}

func (p *Poller[T]) tick(seq uint64) {
	p.mu.Lock()
	if p.closed || !p.enabled || seq != p.timerSeq {
		p.mu.Unlock()
		return
	}
	gen, produce := p.armLocked()
	p.mu.Unlock()
	p.fetch(gen, produce)
}

func (p *Poller[T]) fetch(gen uint64, produce Producer[T]) {
	p.req.run(p.req.ctx, produce, p.acceptFor(gen))
}

func (p *Poller[T]) acceptFor(gen uint64) func() bool {
	return func() bool { return p.generation.Load() == gen }
}
