package server

import (
	"bytes"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/respcore/respd/internal/command"
	"github.com/respcore/respd/internal/executor"
	"github.com/respcore/respd/internal/resp"
)

// connMetrics bundles the optional Prometheus collectors a connHandler
// reports to; any field may be nil.
type connMetrics struct {
	conns    prometheus.Gauge
	commands *prometheus.CounterVec
}

func (m connMetrics) observe(cmd, outcome string) {
	if m.commands != nil {
		m.commands.WithLabelValues(cmd, outcome).Inc()
	}
}

// connHandler runs one connection's read/decode/build/submit/reply
// loop.
type connHandler struct {
	id      string
	conn    net.Conn
	exec    *executor.Executor
	log     *logrus.Logger
	metrics connMetrics
}

func (c *connHandler) serve() {
	defer c.conn.Close()

	if c.metrics.conns != nil {
		c.metrics.conns.Inc()
		defer c.metrics.conns.Dec()
	}

	fields := logrus.Fields{"conn_id": c.id, "remote_addr": c.conn.RemoteAddr().String()}
	c.log.WithFields(fields).Debug("connection accepted")

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			c.log.WithFields(fields).Debug("connection closed")
			return
		}
		if n == 0 {
			return
		}
		frame := buf[:n]

		if !utf8.Valid(headerLine(frame)) {
			c.log.WithFields(fields).Warn("non-utf8 request header, skipping frame")
			continue
		}

		name, args, err := resp.Decode(frame)
		if err != nil {
			c.log.WithFields(fields).WithError(err).Warn("protocol error, skipping frame")
			c.metrics.observe("unknown", "protocol_error")
			continue
		}
		cmdLabel := strings.ToUpper(name)

		req, err := command.Build(name, args)
		if err != nil {
			c.log.WithFields(fields).WithError(err).WithField("cmd", name).Warn("invalid request, skipping frame")
			c.metrics.observe(cmdLabel, outcomeFor(err))
			continue
		}

		reply := c.exec.Submit(req)
		response := <-reply
		c.metrics.observe(cmdLabel, "ok")

		out := response.Render()
		if _, err := c.conn.Write(out); err != nil {
			c.log.WithFields(fields).WithError(err).Debug("write failed, closing connection")
			return
		}
	}
}

// headerLine returns the leading "*<N>\r\n" line of a frame, the only
// part of a RESP request guaranteed to be text; bulk string payloads
// are binary-safe and must not be rejected for containing non-UTF-8
// bytes.
func headerLine(frame []byte) []byte {
	if i := bytes.IndexByte(frame, '\n'); i >= 0 {
		return frame[:i+1]
	}
	return frame
}

func outcomeFor(err error) string {
	switch err.(type) {
	case *command.UnknownCommandError:
		return "unknown_command"
	default:
		return "invalid_args"
	}
}
