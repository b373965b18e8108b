// Package keyspace owns the map from key to Entry and every operation
// that mutates it. The Keyspace has exactly one caller, the executor
// goroutine, so apart from the per-Waiter mutex (see Waiter) nothing
// in this package takes locks; correctness comes from single-threaded
// access, not mutual exclusion primitives.
package keyspace

import (
	"sync"
	"time"
)

// Entry is the sum type stored per key: either a StringEntry or a
// ListEntry. kind reports which.
type Entry interface {
	kind() entryKind
}

type entryKind int

const (
	kindString entryKind = iota
	kindList
)

// StringEntry holds a binary-safe value with an optional absolute
// expiry. A zero Expiry means the value never expires.
type StringEntry struct {
	Value  []byte
	Expiry time.Time // zero value means "no expiry"
}

func (*StringEntry) kind() entryKind { return kindString }

// HasExpiry reports whether e carries an expiry timestamp.
func (e *StringEntry) HasExpiry() bool {
	return !e.Expiry.IsZero()
}

// ExpiredAt reports whether e's expiry, if any, precedes t.
func (e *StringEntry) ExpiredAt(t time.Time) bool {
	return e.HasExpiry() && e.Expiry.Before(t)
}

// Waiter is the single-shot delivery handle placed on a ListEntry's
// waiter queue by BLPOP. The send half lives here, in the keyspace;
// the receive half is owned by the Deferred render task that is
// racing it against a timeout. Cancel is how the render task drops the
// receiver: once cancelled, every later delivery attempt fails and the
// handoff loop moves on to the next waiter without losing the item.
//
// Waiter is the one type in this package touched by two goroutines
// (the executor delivers, the render task receives and cancels), so
// it carries its own mutex; the single-owner rule covers everything
// else.
type Waiter struct {
	mu        sync.Mutex
	cancelled bool
	ch        chan []byte
}

// NewWaiter creates a Waiter with a buffered, single-slot channel so
// delivery never blocks the executor goroutine.
func NewWaiter() *Waiter {
	return &Waiter{ch: make(chan []byte, 1)}
}

// Receive returns the channel the Deferred render task awaits.
func (w *Waiter) Receive() <-chan []byte {
	return w.ch
}

// Cancel marks the waiter abandoned so every later delivery attempt
// fails and the next Waiter Handoff discards it. If a delivery had
// already committed but was not yet received, the value is returned so
// the caller can still hand it to the client rather than lose it.
func (w *Waiter) Cancel() ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelled = true
	select {
	case v := <-w.ch:
		return v, true
	default:
		return nil, false
	}
}

// deliver attempts to hand value to the waiter. It reports whether the
// delivery was accepted; a false return means the receiver has already
// given up (timeout or disconnect raced ahead of this attempt), and the
// caller must try the next waiter in the queue without losing value.
func (w *Waiter) deliver(value []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelled {
		return false
	}
	select {
	case w.ch <- value:
		return true
	default:
		return false
	}
}

// ListEntry holds an ordered sequence of byte-string items plus the
// FIFO queue of waiters blocked on BLPOP. Expiry is reserved; no list
// operation consults it.
type ListEntry struct {
	items   [][]byte
	waiters []*Waiter
	Expiry  time.Time
}

func (*ListEntry) kind() entryKind { return kindList }

// NewListEntry returns an empty ListEntry.
func NewListEntry() *ListEntry {
	return &ListEntry{}
}

// Len reports the current item count.
func (l *ListEntry) Len() int {
	return len(l.items)
}

// PushBack appends values in order, then runs Waiter Handoff. It
// returns the new length.
func (l *ListEntry) PushBack(values [][]byte) int {
	l.items = append(l.items, values...)
	l.handoff()
	return len(l.items)
}

// PushFront prepends values; the caller is responsible for having
// already reversed them (LPUSH's argument-order semantics), then runs
// Waiter Handoff. It returns the new length.
func (l *ListEntry) PushFront(values [][]byte) int {
	l.items = append(append([][]byte{}, values...), l.items...)
	l.handoff()
	return len(l.items)
}

// PopFrontOne removes and returns the head item, or nil if empty.
func (l *ListEntry) PopFrontOne() []byte {
	if len(l.items) == 0 {
		return nil
	}
	v := l.items[0]
	l.items = l.items[1:]
	return v
}

// PopFrontN removes up to min(count, len) items from the head and
// returns them in order. count <= 0 returns an empty, non-nil slice.
func (l *ListEntry) PopFrontN(count int) [][]byte {
	if count <= 0 {
		return [][]byte{}
	}
	if count > len(l.items) {
		count = len(l.items)
	}
	out := make([][]byte, count)
	copy(out, l.items[:count])
	l.items = l.items[count:]
	return out
}

// Range returns the inclusive slice [start, end] under Redis index
// semantics: a negative index counts from the tail (clamping at 0), an
// end at or past the tail clamps to the last element, and a start past
// the end yields an empty result.
func (l *ListEntry) Range(start, end int) [][]byte {
	n := len(l.items)
	if n == 0 {
		return [][]byte{}
	}

	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if end < 0 {
		end += n
		if end < 0 {
			end = 0
		}
	}
	if end >= n {
		end = n - 1
	}
	if start > end || start >= n {
		return [][]byte{}
	}

	out := make([][]byte, end-start+1)
	copy(out, l.items[start:end+1])
	return out
}

// RegisterWaiter pushes a new Waiter to the back of the queue and runs
// Waiter Handoff immediately, covering the case where items are already
// present at registration time.
func (l *ListEntry) RegisterWaiter() *Waiter {
	w := NewWaiter()
	l.waiters = append(l.waiters, w)
	l.handoff()
	return w
}

// handoff runs after any mutation that may add items or waiters: while
// items and waiters are both non-empty, deliver the head item to the
// oldest waiter; a waiter whose receiver has already gone away is
// dropped and the next one is tried, without losing the item. After
// this returns, the waiter queue is non-empty only when items is
// empty.
func (l *ListEntry) handoff() {
	for len(l.items) > 0 && len(l.waiters) > 0 {
		w := l.waiters[0]
		l.waiters = l.waiters[1:]
		if w.deliver(l.items[0]) {
			l.items = l.items[1:]
		}
	}
}
