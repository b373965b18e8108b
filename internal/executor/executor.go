// Package executor runs the single goroutine that owns the Keyspace
// exclusively and serializes every Request against it in strict
// channel-arrival order.
package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/respcore/respd/internal/command"
	"github.com/respcore/respd/internal/keyspace"
)

// job pairs a Request with the one-shot channel its caller awaits the
// Response on.
type job struct {
	req   command.Request
	reply chan<- command.Response
}

// Executor owns a Keyspace and a bounded submission channel. Exactly
// one goroutine (started by Run) ever touches the Keyspace.
type Executor struct {
	ks           *keyspace.Keyspace
	jobs         chan job
	applyDur     prometheus.Histogram
	blockedGauge prometheus.Gauge
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithApplyHistogram wires a Prometheus histogram that observes each
// Request's Apply latency in seconds.
func WithApplyHistogram(h prometheus.Histogram) Option {
	return func(e *Executor) { e.applyDur = h }
}

// WithBlockedWaitersGauge wires a Prometheus gauge that tracks how
// many BLPOP callers are currently registered as waiters across the
// whole keyspace, refreshed after every applied request.
func WithBlockedWaitersGauge(g prometheus.Gauge) Option {
	return func(e *Executor) { e.blockedGauge = g }
}

// New returns an Executor with the given submission channel capacity.
func New(capacity int, opts ...Option) *Executor {
	e := &Executor{
		ks:   keyspace.New(),
		jobs: make(chan job, capacity),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit enqueues req and returns a channel that will receive exactly
// one Response. It blocks while the submission channel is full, which
// is what backpressures producers; the connection handler always waits
// for its own request to be admitted.
func (e *Executor) Submit(req command.Request) <-chan command.Response {
	reply := make(chan command.Response, 1)
	e.jobs <- job{req: req, reply: reply}
	return reply
}

// Run processes submitted requests strictly in arrival order until
// jobs is closed. It is the sole goroutine that ever calls into the
// Keyspace.
func (e *Executor) Run() {
	for j := range e.jobs {
		start := time.Now()
		resp := j.req.Apply(e.ks, start)
		if e.applyDur != nil {
			e.applyDur.Observe(time.Since(start).Seconds())
		}
		if e.blockedGauge != nil {
			e.blockedGauge.Set(float64(e.ks.TotalWaiters()))
		}
		// A dropped reply channel (connection already gone) is a
		// valid, silent outcome. The channel is buffered with
		// capacity 1 so this send never blocks regardless of whether
		// anyone is still receiving.
		j.reply <- resp
	}
}

// Close closes the submission channel: Run still applies every job
// already queued and then returns, and a Submit after Close panics.
// Safe to call once.
func (e *Executor) Close() {
	close(e.jobs)
}
