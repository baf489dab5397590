package identity

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// Message is a command or query value. Its Type keys the dispatcher
// registry; exactly one handler serves each type.
type Message interface {
	Type() string
}

// CommandHandler executes a state-changing message.
type CommandHandler[T Message] interface {
	Execute(ctx context.Context, msg T) error
}

// QueryHandler answers a read-only message with a result value.
type QueryHandler[T Message, R any] interface {
	Query(ctx context.Context, msg T) (R, error)
}

// Dispatcher routes messages to their registered handler. Registration is
// explicit and static; there is no reflection-based discovery.
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]func(ctx context.Context, msg Message) error
	queries  map[string]func(ctx context.Context, msg Message) (any, error)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		commands: map[string]func(ctx context.Context, msg Message) error{},
		queries:  map[string]func(ctx context.Context, msg Message) (any, error){},
	}
}

// RegisterCommand binds a handler to the message type. Registering a second
// handler for the same type panics; wiring bugs should fail at startup.
func RegisterCommand[T Message](d *Dispatcher, handler CommandHandler[T]) {
	var zero T
	key := zero.Type()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.commands[key]; dup {
		panic("dispatcher: duplicate command handler for " + key)
	}

	d.commands[key] = func(ctx context.Context, msg Message) error {
		typed, ok := msg.(T)
		if !ok {
			return errors.New("message does not match registered handler", errors.CategoryInternal).
				WithMetadata(map[string]any{"type": key})
		}
		return handler.Execute(ctx, typed)
	}
}

// RegisterQuery binds a query handler to the message type.
func RegisterQuery[T Message, R any](d *Dispatcher, handler QueryHandler[T, R]) {
	var zero T
	key := zero.Type()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.queries[key]; dup {
		panic("dispatcher: duplicate query handler for " + key)
	}

	d.queries[key] = func(ctx context.Context, msg Message) (any, error) {
		typed, ok := msg.(T)
		if !ok {
			return nil, errors.New("message does not match registered handler", errors.CategoryInternal).
				WithMetadata(map[string]any{"type": key})
		}
		return handler.Query(ctx, typed)
	}
}

// Dispatch routes a command message to its handler.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	d.mu.RLock()
	handler, ok := d.commands[msg.Type()]
	d.mu.RUnlock()

	if !ok {
		return errors.New("no handler registered for message", errors.CategoryInternal).
			WithMetadata(map[string]any{"type": msg.Type()})
	}

	return handler(ctx, msg)
}

// Query routes a query message to its handler and returns the raw result.
// QueryAs recovers the typed value on the caller side.
func (d *Dispatcher) Query(ctx context.Context, msg Message) (any, error) {
	d.mu.RLock()
	handler, ok := d.queries[msg.Type()]
	d.mu.RUnlock()

	if !ok {
		return nil, errors.New("no handler registered for query", errors.CategoryInternal).
			WithMetadata(map[string]any{"type": msg.Type()})
	}

	return handler(ctx, msg)
}

// QueryAs dispatches the query and asserts the result type.
func QueryAs[R any](ctx context.Context, d *Dispatcher, msg Message) (R, error) {
	var zero R

	res, err := d.Query(ctx, msg)
	if err != nil {
		return zero, err
	}

	typed, ok := res.(R)
	if !ok {
		return zero, errors.New("query result does not match expected type", errors.CategoryInternal).
			WithMetadata(map[string]any{"type": msg.Type()})
	}

	return typed, nil
}
