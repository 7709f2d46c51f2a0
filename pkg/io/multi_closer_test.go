package pkgio_test

import (
	"errors"
	"io"
	"testing"

	pkgio "github.com/matheuscscp/ethmcast/pkg/io"

	"github.com/stretchr/testify/assert"
)

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

func TestCloseKeepsClosingAfterFailure(t *testing.T) {
	err1 := errors.New("first")
	var calls []int
	err := pkgio.Close(
		closerFunc(func() error {
			calls = append(calls, 0)
			return err1
		}),
		nil,
		closerFunc(func() error {
			calls = append(calls, 2)
			return nil
		}),
	)
	assert.ErrorIs(t, err, err1)
	assert.Equal(t, []int{0, 2}, calls)
}

func TestCloseNoErrors(t *testing.T) {
	assert.NoError(t, pkgio.Close(io.NopCloser(nil)))
	assert.NoError(t, pkgio.Close())
}
