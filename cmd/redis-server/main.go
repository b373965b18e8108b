// Command redis-server is the binary entry point: parse flags, wire
// up logging, metrics, the executor, and the TCP server, then run
// until a termination signal arrives.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/respcore/respd/internal/config"
	"github.com/respcore/respd/internal/executor"
	"github.com/respcore/respd/internal/logging"
	"github.com/respcore/respd/internal/metrics"
	"github.com/respcore/respd/internal/server"
)

const shutdownGrace = 5 * time.Second

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	log := logging.New(cfg.LogLevel)
	mtr := metrics.New()

	exec := executor.New(cfg.ExecutorCapacity,
		executor.WithApplyHistogram(mtr.ApplyDuration),
		executor.WithBlockedWaitersGauge(mtr.BlockedWaiters),
	)
	go exec.Run()
	defer exec.Close()

	srv := server.New(cfg.ListenAddr, exec,
		server.WithLogger(log),
		server.WithConnectionsGauge(mtr.Connections),
		server.WithCommandCounter(mtr.Commands),
	)

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mtr.Handler()}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
		log.WithField("addr", cfg.MetricsAddr).Info("serving metrics")
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.WithError(err).Error("server exited")
		}
	}

	srv.Close()
	if metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		metricsSrv.Shutdown(ctx)
	}
}
