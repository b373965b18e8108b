package executor

import (
	"testing"
	"time"

	"github.com/respcore/respd/internal/command"
)

func submitAndWait(t *testing.T, e *Executor, req command.Request) []byte {
	t.Helper()
	reply := e.Submit(req)
	select {
	case resp := <-reply:
		return resp.Render()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for executor reply")
		return nil
	}
}

func TestExecutorAppliesRequestsInOrder(t *testing.T) {
	e := New(10)
	go e.Run()
	defer e.Close()

	set, _ := command.Build("SET", [][]byte{[]byte("k"), []byte("v1")})
	if got := string(submitAndWait(t, e, set)); got != "+OK\r\n" {
		t.Fatalf("SET: got %q", got)
	}

	set2, _ := command.Build("SET", [][]byte{[]byte("k"), []byte("v2")})
	submitAndWait(t, e, set2)

	get, _ := command.Build("GET", [][]byte{[]byte("k")})
	if got := string(submitAndWait(t, e, get)); got != "$2\r\nv2\r\n" {
		t.Fatalf("GET after two SETs: got %q, want the most recent value", got)
	}
}

func TestExecutorSerializesConcurrentSubmitters(t *testing.T) {
	e := New(10)
	go e.Run()
	defer e.Close()

	const n = 50
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			rpush, _ := command.Build("RPUSH", [][]byte{[]byte("L"), []byte("x")})
			submitAndWait(t, e, rpush)
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	llen, _ := command.Build("LLEN", [][]byte{[]byte("L")})
	if got := string(submitAndWait(t, e, llen)); got != ":50\r\n" {
		t.Fatalf("expected all 50 concurrent RPUSHes to land, got %q", got)
	}
}

func TestExecutorBLPopDeferredDoesNotBlockOtherRequests(t *testing.T) {
	e := New(10)
	go e.Run()
	defer e.Close()

	// BLPOP on a key with no list resolves at once to a null bulk, so Q
	// is given an empty list first.
	seed, _ := command.Build("RPUSH", [][]byte{[]byte("Q"), []byte("seed")})
	submitAndWait(t, e, seed)
	drain, _ := command.Build("LPOP", [][]byte{[]byte("Q")})
	submitAndWait(t, e, drain)

	blpop, _ := command.Build("BLPOP", [][]byte{[]byte("Q"), []byte("0")})
	reply := e.Submit(blpop)

	// The executor must remain free to serve other requests while a
	// render task for a Deferred BLPOP is awaited by its own goroutine;
	// Apply merely registers a waiter, it does not block the executor.
	ping, _ := command.Build("PING", nil)
	if got := string(submitAndWait(t, e, ping)); got != "+PONG\r\n" {
		t.Fatalf("PING while BLPOP pending: got %q", got)
	}

	rpush, _ := command.Build("RPUSH", [][]byte{[]byte("Q"), []byte("value")})
	submitAndWait(t, e, rpush)

	select {
	case resp := <-reply:
		want := "*2\r\n$1\r\nQ\r\n$5\r\nvalue\r\n"
		if got := string(resp.Render()); got != want {
			t.Fatalf("BLPOP result: got %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for BLPOP to resolve")
	}
}
