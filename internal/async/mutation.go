package async

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MutationState is the observable state of a Mutation.
type MutationState struct {
	Loading bool
	Err     string
}

// MutationOptions configure a Mutation.
type MutationOptions struct {
	Name     string
	Logger   *zap.Logger
	Observer Observer
	OnChange func(MutationState)
}

// Mutation wraps a single write operation. It never runs on its own.
type Mutation[A, R any] struct {
	fn       func(ctx context.Context, arg A) (R, error)
	name     string
	logger   *zap.Logger
	observer Observer
	onChange func(MutationState)

	mu       sync.Mutex
	inflight int
	err      string
}

// NewMutation wraps fn.
func NewMutation[A, R any](fn func(ctx context.Context, arg A) (R, error), opts MutationOptions) *Mutation[A, R] {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutation[A, R]{
		fn:       fn,
		name:     opts.Name,
		logger:   logger,
		observer: opts.Observer,
		onChange: opts.OnChange,
	}
}

// Mutate runs the write to completion. On failure the error is stored in the
// state and also returned, so callers can react locally.
func (m *Mutation[A, R]) Mutate(ctx context.Context, arg A) (R, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.Lock()
	m.inflight++
	snapshot := m.stateLocked()
	m.mu.Unlock()
	m.notify(snapshot)

	result, err := m.fn(ctx, arg)

	m.mu.Lock()
	m.inflight--
	if err != nil {
		m.err = newRequestError(err).Message
	} else {
		m.err = ""
	}
	snapshot = m.stateLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("mutation failed", zap.String("mutation", m.name), zap.Error(err))
	}
	if m.observer != nil {
		m.observer.ObserveMutation(m.name, err)
	}
	m.notify(snapshot)
	return result, err
}

// State returns the current state.
func (m *Mutation[A, R]) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Mutation[A, R]) stateLocked() MutationState {
	return MutationState{Loading: m.inflight > 0, Err: m.err}
}

func (m *Mutation[A, R]) notify(state MutationState) {
	if m.onChange != nil {
		m.onChange(state)
	}
}
