package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// contextWithCancelOnInterrupt cancels the returned context on the
// first SIGINT/SIGTERM. The handler is removed right after, so a
// second signal terminates the process the default way.
func contextWithCancelOnInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case <-ctx.Done():
		case sig := <-ch:
			logrus.
				WithField("signal", sig.String()).
				Info("caught signal")
			cancel()
		}
	}()
	return ctx, cancel
}
