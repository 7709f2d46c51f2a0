package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// serveMetrics serves the default prometheus registry on addr until
// the returned func is called.
func serveMetrics(addr string) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error listening on metrics address '%s': %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	l := logrus.WithField("metrics_addr", lis.Addr().String())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.
				WithError(err).
				Error("error serving metrics")
		}
	}()
	l.Debug("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			l.
				WithError(err).
				Error("error shutting down metrics server")
		}
		<-done
	}, nil
}
