// Package isolate runs native calls on a dedicated, single-use OS thread.
//
// A Runner serves exactly one invocation. The worker goroutine locks itself
// to its OS thread and never unlocks, so the runtime discards the thread
// when the work returns and no other goroutine ever runs on it.
package isolate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds how long a caller waits for the worker.
const DefaultTimeout = 30 * time.Second

var (
	// ErrReused is returned when Run is called on a runner that already ran.
	ErrReused = errors.New("isolate: runner already used")

	// ErrInterrupted is returned when the caller's context ends before the
	// worker does. The result of the work is unknown.
	ErrInterrupted = errors.New("isolate: wait interrupted")

	// ErrTimeout is returned when the worker outlives the runner timeout.
	ErrTimeout = errors.New("isolate: wait timed out")
)

// State is a runner lifecycle state.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateCompleted
	StateFaulted
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	case StateJoined:
		return "joined"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PanicError carries a panic recovered at the worker boundary.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("isolate: worker panicked: %v", e.Value)
}

// Runner executes one unit of work on its own locked OS thread.
type Runner struct {
	name    string
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	state State
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for faults and abandoned waits.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTimeout sets the wait bound. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// New creates a runner in the Created state.
func New(name string, opts ...Option) *Runner {
	r := &Runner{
		name:    name,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State reports the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runner) start() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateCreated {
		return false
	}
	r.state = StateRunning
	return true
}

type outcome[T any] struct {
	value T
	err   error
}

// Run executes work on r and blocks until it finishes, ctx ends, or the
// runner timeout elapses. An abandoned worker is left to finish on its own.
func Run[T any](ctx context.Context, r *Runner, work func() (T, error)) (T, error) {
	var zero T
	if !r.start() {
		return zero, ErrReused
	}

	log := r.logger.With(zap.String("runner", r.name))
	done := make(chan outcome[T], 1)

	go func() {
		runtime.LockOSThread()
		// No UnlockOSThread: the thread exits with this goroutine.

		var out outcome[T]
		defer func() {
			if v := recover(); v != nil {
				perr := &PanicError{Value: v, Stack: debug.Stack()}
				log.Error("native worker panicked", zap.Any("panic", v), zap.ByteString("stack", perr.Stack))
				out = outcome[T]{err: perr}
			}
			if out.err != nil {
				r.setState(StateFaulted)
			} else {
				r.setState(StateCompleted)
			}
			done <- out
		}()

		out.value, out.err = work()
	}()

	var timeout <-chan time.Time
	if r.timeout > 0 {
		timer := time.NewTimer(r.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-done:
		r.setState(StateJoined)
		return out.value, out.err
	case <-ctx.Done():
		log.Warn("wait for native worker interrupted", zap.Error(ctx.Err()))
		return zero, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	case <-timeout:
		log.Error("native worker did not finish in time", zap.Duration("timeout", r.timeout))
		return zero, ErrTimeout
	}
}
