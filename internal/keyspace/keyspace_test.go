package keyspace

import (
	"testing"
	"time"
)

func b(s string) []byte { return []byte(s) }

func bs(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = b(s)
	}
	return out
}

func TestStringEntryExpiry(t *testing.T) {
	now := time.Now()
	e := &StringEntry{Value: b("v"), Expiry: now.Add(-time.Second)}
	if !e.ExpiredAt(now) {
		t.Fatal("expected entry with past expiry to report expired")
	}

	fresh := &StringEntry{Value: b("v")}
	if fresh.ExpiredAt(now) {
		t.Fatal("entry with no expiry must never report expired")
	}
}

func TestListRangeNormalization(t *testing.T) {
	l := NewListEntry()
	l.PushBack(bs("a", "b", "c", "d", "e"))

	tests := []struct {
		name       string
		start, end int
		want       []string
	}{
		{"full via -1", 0, -1, []string{"a", "b", "c", "d", "e"}},
		{"middle", 1, 3, []string{"b", "c", "d"}},
		{"negative both", -3, -1, []string{"c", "d", "e"}},
		{"start past end clamps empty", 4, 2, nil},
		{"end beyond len clamps", 0, 100, []string{"a", "b", "c", "d", "e"}},
		{"very negative start clamps to 0", -100, 1, []string{"a", "b"}},
		{"start at len is empty", 5, 10, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := l.Range(tc.start, tc.end)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d items %v, want %d items %v", len(got), toStrings(got), len(tc.want), tc.want)
			}
			for i, w := range tc.want {
				if string(got[i]) != w {
					t.Errorf("index %d: got %q, want %q", i, got[i], w)
				}
			}
		})
	}
}

func TestListRangeEmptyList(t *testing.T) {
	l := NewListEntry()
	if got := l.Range(0, -1); len(got) != 0 {
		t.Fatalf("expected empty range on empty list, got %v", got)
	}
}

func TestPushFrontKeepsCallerOrder(t *testing.T) {
	// LPUSH key a b c -> the command builder reverses args to [c, b, a]
	// before calling PushFront, so the final order is [c, b, a].
	l := NewListEntry()
	l.PushFront(bs("c", "b", "a"))
	got := l.Range(0, -1)
	want := []string{"c", "b", "a"}
	for i, w := range want {
		if string(got[i]) != w {
			t.Errorf("index %d: got %q, want %q", i, got[i], w)
		}
	}
}

func TestPopFrontNClampsToLength(t *testing.T) {
	l := NewListEntry()
	l.PushBack(bs("a", "b"))

	got := l.PopFrontN(10)
	if len(got) != 2 {
		t.Fatalf("expected clamp to list length, got %d items", len(got))
	}
	if l.Len() != 0 {
		t.Fatalf("expected list empty after draining, got len %d", l.Len())
	}
}

func TestPopFrontNNonPositiveIsEmpty(t *testing.T) {
	l := NewListEntry()
	l.PushBack(bs("a"))
	got := l.PopFrontN(0)
	if len(got) != 0 {
		t.Fatalf("expected empty result for count<=0, got %v", got)
	}
}

// TestWaiterHandoffFIFO exercises invariant 4: items are delivered to
// at most one waiter, in FIFO order over the waiter queue.
func TestWaiterHandoffFIFO(t *testing.T) {
	l := NewListEntry()
	w1 := l.RegisterWaiter()
	w2 := l.RegisterWaiter()

	l.PushBack(bs("x"))

	select {
	case v := <-w1.Receive():
		if string(v) != "x" {
			t.Fatalf("w1 got wrong value %q", v)
		}
	default:
		t.Fatal("expected w1 (oldest waiter) to receive the pushed value")
	}

	select {
	case v := <-w2.Receive():
		t.Fatalf("w2 should not have received anything yet, got %q", v)
	default:
	}

	if l.Len() != 0 {
		t.Fatalf("item should have been handed to the waiter, not retained in items; len=%d", l.Len())
	}
}

// TestWaiterHandoffSkipsDroppedReceiver simulates a waiter whose
// receive half has been abandoned (timed out) before delivery: handoff
// must skip it and deliver to the next waiter without losing the item.
func TestWaiterHandoffSkipsDroppedReceiver(t *testing.T) {
	l := NewListEntry()
	w1 := l.RegisterWaiter()
	if _, delivered := w1.Cancel(); delivered {
		t.Fatal("nothing was pushed yet, Cancel must not report a delivery")
	}

	w2 := l.RegisterWaiter()

	l.PushBack(bs("y"))

	select {
	case v := <-w1.Receive():
		t.Fatalf("cancelled w1 must not receive, got %q", v)
	default:
	}
	select {
	case v := <-w2.Receive():
		if string(v) != "y" {
			t.Fatalf("w2 got wrong value %q", v)
		}
	default:
		t.Fatal("expected w2 to receive after w1's delivery failed")
	}
}

// TestCancelledWaiterRetainsItem checks that a push after the only
// waiter has been cancelled keeps the item in the list rather than
// swallowing it.
func TestCancelledWaiterRetainsItem(t *testing.T) {
	l := NewListEntry()
	w := l.RegisterWaiter()
	w.Cancel()

	l.PushBack(bs("kept"))

	if l.Len() != 1 {
		t.Fatalf("expected the item to stay in the list, len=%d", l.Len())
	}
	if len(l.waiters) != 0 {
		t.Fatalf("expected the cancelled waiter to be discarded, waiters=%d", len(l.waiters))
	}
}

// TestCancelRecoversCommittedDelivery covers the race where delivery
// commits just before the receiver gives up: Cancel hands the value
// back instead of dropping it.
func TestCancelRecoversCommittedDelivery(t *testing.T) {
	l := NewListEntry()
	w := l.RegisterWaiter()
	l.PushBack(bs("z"))

	v, delivered := w.Cancel()
	if !delivered || string(v) != "z" {
		t.Fatalf("expected Cancel to return the committed value, got %q (delivered=%v)", v, delivered)
	}
}

// TestInvariantItemsOrWaitersNotBoth checks invariant 3: a ListEntry at
// rest never has both items and waiters non-empty.
func TestInvariantItemsOrWaitersNotBoth(t *testing.T) {
	l := NewListEntry()
	l.RegisterWaiter()
	l.PushBack(bs("only"))

	if l.Len() != 0 || len(l.waiters) != 0 {
		t.Fatalf("expected item to be handed off immediately, got len=%d waiters=%d", l.Len(), len(l.waiters))
	}
}

func TestKeyspaceListEntryForTypeError(t *testing.T) {
	ks := New()
	ks.Insert("k", &StringEntry{Value: b("v")})

	_, ok := ks.ListEntryFor("k")
	if ok {
		t.Fatal("expected ListEntryFor to report wrong kind for a StringEntry key")
	}
}

func TestKeyspaceListEntryForCreatesOnAbsence(t *testing.T) {
	ks := New()
	l, ok := ks.ListEntryFor("new")
	if !ok {
		t.Fatal("expected ListEntryFor to create a fresh ListEntry")
	}
	l.PushBack(bs("a"))

	again, ok := ks.ListEntryFor("new")
	if !ok || again != l {
		t.Fatal("expected the same ListEntry to be returned on a second call")
	}
}

func toStrings(bb [][]byte) []string {
	out := make([]string, len(bb))
	for i, b := range bb {
		out[i] = string(b)
	}
	return out
}
