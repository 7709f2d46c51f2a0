package pkgcontext

import "context"

// WithCancelOnAnotherContext creates a new context from parent that is
// also cancelled when other is done. Used to tie a single blocking
// call to both the caller's context and the lifetime of the object
// being called.
//
// The go routine started here exits when either context is done, so
// callers must always call the returned cancel func.
func WithCancelOnAnotherContext(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-ctx.Done():
		case <-other.Done():
			cancel()
		}
	}()
	return ctx, cancel
}
