package command

// Response is what Apply produces: either Immediate reply bytes, ready
// to write straight to the socket, or a Deferred task (BLPOP only)
// whose bytes are produced later by awaiting a waiter handle, outside
// the executor and touching no shared keyspace state.
type Response struct {
	immediate []byte
	deferred  func() []byte
}

// Immediate wraps reply bytes produced synchronously during Apply.
func Immediate(bytes []byte) Response {
	return Response{immediate: bytes}
}

// Deferred wraps a render function that is safe to call outside the
// executor goroutine; it may block, but touches no shared state.
func Deferred(render func() []byte) Response {
	return Response{deferred: render}
}

// IsDeferred reports whether Render must be invoked off the executor's
// critical path.
func (r Response) IsDeferred() bool {
	return r.deferred != nil
}

// Render produces the final reply bytes. For a Deferred response this
// blocks until the underlying task resolves (delivery, timeout, or
// cancellation); it must never be called from the executor goroutine.
func (r Response) Render() []byte {
	if r.deferred != nil {
		return r.deferred()
	}
	return r.immediate
}
