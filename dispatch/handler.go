package dispatch

import "context"

// Handler is the interface for key event callbacks. The key argument is
// the canonical name of the key that was pressed or released.
type Handler interface {
	Handle(ctx context.Context, key string) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, key string) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, key string) error {
	return f(ctx, key)
}

// Callback adapts a plain callback that neither takes a context nor
// returns an error. This is the common case for simple listeners.
func Callback(fn func(key string)) Handler {
	return HandlerFunc(func(_ context.Context, key string) error {
		fn(key)
		return nil
	})
}

// ErrorHandler is called when a handler returns an error.
type ErrorHandler func(key string, err error)

// PanicHandler is called when a handler panics during execution.
// It receives the key being processed, the panic value, and the stack
// trace at the point of panic.
type PanicHandler func(key string, panicValue any, stack []byte)

// defaultPanicHandler is a no-op panic handler.
func defaultPanicHandler(key string, panicValue any, stack []byte) {}
