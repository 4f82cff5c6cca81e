package async

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Status is the lifecycle of a request slot.
type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusReady
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusErrored:
		return "errored"
	default:
		return "uninitialized"
	}
}

// State is the observable state of a Request.
type State[T any] struct {
	Status  Status
	Data    T
	HasData bool
	Loading bool
	Err     string
}

const fallbackErrorMessage = "request failed"

// RequestError wraps a producer failure with the message shown to the user.
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Unwrap() error { return e.Err }

func newRequestError(err error) *RequestError {
	msg := ""
	if err != nil {
		msg = strings.TrimSpace(err.Error())
	}
	if msg == "" {
		msg = fallbackErrorMessage
	}
	return &RequestError{Message: msg, Err: err}
}

// Producer fetches one value. Callers must keep the same Producer for the
// lifetime of a Request; swapping it is only supported through a Poller.
type Producer[T any] func(ctx context.Context) (T, error)

// Observer receives primitive outcomes, typically for metrics.
type Observer interface {
	ObserveFetch(name string, err error)
	ObserveStale(name string)
	ObserveMutation(name string, err error)
}

// Options configure a Request or Poller.
type Options[T any] struct {
	// Immediate fetches once right after construction. Ignored by Poller.
	Immediate bool
	Name      string
	Logger    *zap.Logger
	Observer  Observer
	// OnChange is called outside any lock after every state transition.
	// It may run before the constructor returns.
	OnChange func(State[T])
}

// Request owns one asynchronous fetch slot. Overlapping calls are allowed;
// only the most recently issued call may write the slot.
type Request[T any] struct {
	name     string
	produce  Producer[T]
	logger   *zap.Logger
	observer Observer
	onChange func(State[T])

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State[T]
	calls  uint64
	closed bool
}

// NewRequest builds a Request bound to ctx. Cancelling ctx has the same effect
// as Close.
func NewRequest[T any](ctx context.Context, produce Producer[T], opts Options[T]) *Request[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(ctx)
	r := &Request[T]{
		name:     opts.Name,
		produce:  produce,
		logger:   logger,
		observer: opts.Observer,
		onChange: opts.OnChange,
		ctx:      base,
		cancel:   cancel,
	}
	context.AfterFunc(base, r.markClosed)
	if opts.Immediate {
		go r.Refetch(base)
	}
	return r
}

// Refetch invokes the producer and reports whether its result was applied.
// A result is dropped when a newer call was issued meanwhile or the request
// was closed.
func (r *Request[T]) Refetch(ctx context.Context) bool {
	return r.run(ctx, r.produce, nil)
}

// State returns a copy of the current state.
func (r *Request[T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Close cancels in-flight calls and freezes the state. Safe to call twice.
func (r *Request[T]) Close() {
	r.markClosed()
	r.cancel()
}

func (r *Request[T]) markClosed() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// run executes produce and applies the result when the call is still the
// latest one and accept (if set) agrees. accept is evaluated under r.mu and
// must not take locks.
func (r *Request[T]) run(ctx context.Context, produce Producer[T], accept func() bool) bool {
	if ctx == nil {
		ctx = r.ctx
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.calls++
	call := r.calls
	r.state.Loading = true
	if r.state.Status == StatusUninitialized {
		r.state.Status = StatusLoading
	}
	snapshot := r.state
	r.mu.Unlock()
	r.notify(snapshot)

	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.ctx, cancel)
	data, err := invoke(callCtx, produce)
	stop()
	cancel()

	r.mu.Lock()
	if r.closed || call != r.calls || (accept != nil && !accept()) {
		settled := false
		if !r.closed && call == r.calls {
			// Nothing newer owns the slot; leave the previous outcome in place.
			r.state.Loading = false
			r.state.Status = restingStatus(r.state)
			snapshot = r.state
			settled = true
		}
		r.mu.Unlock()
		if settled {
			r.notify(snapshot)
		}
		r.logger.Debug("dropping stale response", zap.String("request", r.name), zap.Uint64("call", call))
		if r.observer != nil {
			r.observer.ObserveStale(r.name)
		}
		return false
	}
	r.state.Loading = false
	if err != nil {
		r.state.Err = newRequestError(err).Message
		r.state.Status = StatusErrored
	} else {
		r.state.Data = data
		r.state.HasData = true
		r.state.Err = ""
		r.state.Status = StatusReady
	}
	snapshot = r.state
	r.mu.Unlock()

	if err != nil {
		r.logger.Debug("request failed", zap.String("request", r.name), zap.Error(err))
	}
	if r.observer != nil {
		r.observer.ObserveFetch(r.name, err)
	}
	r.notify(snapshot)
	return true
}

// restingStatus is the status a request falls back to when a call ends
// without its result being applied.
func restingStatus[T any](st State[T]) Status {
	switch {
	case st.Err != "":
		return StatusErrored
	case st.HasData:
		return StatusReady
	default:
		return StatusUninitialized
	}
}

func (r *Request[T]) notify(state State[T]) {
	if r.onChange != nil {
		r.onChange(state)
	}
}

// invoke turns a producer panic into an error so a poll tick never takes the
// process down.
func invoke[T any](ctx context.Context, produce Producer[T]) (data T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("producer panic: %v", rec)
		}
	}()
	if produce == nil {
		return data, fmt.Errorf("no producer configured")
	}
	return produce(ctx)
}
