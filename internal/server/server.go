// Package server implements the TCP accept loop and, per accepted
// socket, the connection handler: read a frame, decode, build, submit
// to the executor, await the reply, render it (possibly deferred),
// write it back.
package server

import (
	"net"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/respcore/respd/internal/executor"
)

// readBufferSize comfortably fits any frame the supported command set
// produces; a streaming frame reader would be needed before raising
// the supported value sizes past it.
const readBufferSize = 512

// Server accepts connections on a TCP listener and dispatches their
// requests to a single Executor.
type Server struct {
	addr     string
	exec     *executor.Executor
	log      *logrus.Logger
	conns    prometheus.Gauge
	commands *prometheus.CounterVec

	listener net.Listener
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the default logger, a plain logrus.New() that
// writes text entries to stderr at info level.
func WithLogger(l *logrus.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithConnectionsGauge wires a Prometheus gauge tracking open
// connections.
func WithConnectionsGauge(g prometheus.Gauge) Option {
	return func(s *Server) { s.conns = g }
}

// WithCommandCounter wires a Prometheus counter vector labeled by
// command name and outcome ("ok", "protocol_error", "invalid_args",
// "unknown_command").
func WithCommandCounter(c *prometheus.CounterVec) Option {
	return func(s *Server) { s.commands = c }
}

// New returns a Server bound to addr, dispatching onto exec.
func New(addr string, exec *executor.Executor, opts ...Option) *Server {
	s := &Server{
		addr: addr,
		exec: exec,
		log:  logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenAndServe binds addr and runs the accept loop until the
// listener is closed (by Close, or by the process exiting).
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "bind %s", s.addr)
	}
	s.log.WithField("addr", s.addr).Info("listening")
	return s.Serve(l)
}

// Serve runs the accept loop on an already-bound listener. Each
// accepted connection is served in its own goroutine.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l

	for {
		conn, err := l.Accept()
		if err != nil {
			return errors.Wrap(err, "accept")
		}
		c := &connHandler{
			id:   uuid.NewString(),
			conn: conn,
			exec: s.exec,
			log:  s.log,
			metrics: connMetrics{
				conns:    s.conns,
				commands: s.commands,
			},
		}
		go c.serve()
	}
}

// Close stops accepting new connections. In-flight connections are
// left to finish on their own.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
