package command

import (
	"context"
	"sync"
)

// Handler executes one command.
type Handler func(ctx context.Context, cmd Command) error

// Dispatcher maps opcodes to handlers. Opcodes without a handler are
// ignored.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Opcode]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Opcode]Handler)}
}

// Handle registers h for op, replacing any previous handler.
func (d *Dispatcher) Handle(op Opcode, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[op] = h
}

// Dispatch runs the handler for cmd. handled is false when no handler is
// registered.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (handled bool, err error) {
	d.mu.RLock()
	h, ok := d.handlers[cmd.Op]
	d.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return true, h(ctx, cmd)
}
