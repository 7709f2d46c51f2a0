package pkgcontext_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgcontext "github.com/matheuscscp/ethmcast/pkg/context"

	"github.com/stretchr/testify/assert"
)

func TestIsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.False(t, pkgcontext.IsContextError(ctx, context.Canceled))

	cancel()
	assert.True(t, pkgcontext.IsContextError(ctx, context.Canceled))
	assert.True(t, pkgcontext.IsContextError(ctx, fmt.Errorf("error receiving: %w", context.Canceled)))
	assert.False(t, pkgcontext.IsContextError(ctx, context.DeadlineExceeded))
	assert.False(t, pkgcontext.IsContextError(ctx, errors.New("other")))
	assert.False(t, pkgcontext.IsContextError(ctx, nil))
}

func TestWithCancelOnAnotherContext(t *testing.T) {
	other, cancelOther := context.WithCancel(context.Background())
	ctx, cancel := pkgcontext.WithCancelOnAnotherContext(context.Background(), other)
	defer cancel()

	assert.NoError(t, ctx.Err())
	cancelOther()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
