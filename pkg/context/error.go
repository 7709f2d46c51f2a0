package pkgcontext

import (
	"context"
	"errors"
)

// IsContextError tells whether err is the error of ctx, i.e. whether
// an operation failed only because ctx was cancelled or timed out.
func IsContextError(ctx context.Context, err error) bool {
	ctxErr := ctx.Err()
	if ctxErr == nil || err == nil {
		return false
	}
	for _, candidate := range []error{context.Canceled, context.DeadlineExceeded} {
		if errors.Is(err, candidate) && errors.Is(ctxErr, candidate) {
			return true
		}
	}
	return false
}
