package command

import (
	"time"

	"github.com/respcore/respd/internal/keyspace"
	"github.com/respcore/respd/internal/resp"
)

// Apply for PING: always +PONG\r\n.
func (r *PingRequest) Apply(_ *keyspace.Keyspace, _ time.Time) Response {
	return Immediate(resp.SimpleString("PONG"))
}

// Apply for ECHO: bulk string of Body.
func (r *EchoRequest) Apply(_ *keyspace.Keyspace, _ time.Time) Response {
	return Immediate(resp.BulkString(r.Body))
}

// Apply for GET: a StringEntry whose expiry precedes the snapshot time
// is removed and treated as absent; a ListEntry at the same key is a
// type mismatch, rendered the same as a miss.
func (r *GetRequest) Apply(ks *keyspace.Keyspace, _ time.Time) Response {
	entry := ks.Get(r.Key)
	str, ok := entry.(*keyspace.StringEntry)
	if entry == nil || !ok {
		return Immediate(resp.BulkString(nil))
	}
	if str.ExpiredAt(r.SnapshotTime) {
		ks.Remove(r.Key)
		return Immediate(resp.BulkString(nil))
	}
	return Immediate(resp.BulkString(str.Value))
}

// Apply for SET: always replaces any prior entry with a fresh
// StringEntry, regardless of the prior entry's kind.
func (r *SetRequest) Apply(ks *keyspace.Keyspace, _ time.Time) Response {
	ks.Insert(r.Key, &keyspace.StringEntry{Value: r.Value, Expiry: r.AbsoluteExpiry})
	return Immediate(resp.SimpleString("OK"))
}

// Apply for RPUSH: creates a ListEntry on first use, appends, and
// renders the new length. Applying to a StringEntry key is a type
// error, rendered as a null bulk.
func (r *RPushRequest) Apply(ks *keyspace.Keyspace, _ time.Time) Response {
	list, ok := ks.ListEntryFor(r.Key)
	if !ok {
		return Immediate(resp.BulkString(nil))
	}
	length := list.PushBack(r.Values)
	return Immediate(resp.Integer(length))
}

// Apply for LPUSH: symmetric to RPUSH using PushFront with
// already-reversed values.
func (r *LPushRequest) Apply(ks *keyspace.Keyspace, _ time.Time) Response {
	list, ok := ks.ListEntryFor(r.Key)
	if !ok {
		return Immediate(resp.BulkString(nil))
	}
	length := list.PushFront(r.Values)
	return Immediate(resp.Integer(length))
}

// Apply for LPOP: absent key or wrong kind renders a null bulk; a nil
// Count pops (at most) one element and renders a single bulk string;
// a given Count pops up to that many and renders an array, or a null
// bulk when nothing was popped.
func (r *LPopRequest) Apply(ks *keyspace.Keyspace, _ time.Time) Response {
	entry := ks.Get(r.Key)
	if entry == nil {
		return Immediate(resp.BulkString(nil))
	}
	list, ok := entry.(*keyspace.ListEntry)
	if !ok {
		// Type error: list-returning commands reply with a null bulk.
		return Immediate(resp.BulkString(nil))
	}

	if r.Count == nil {
		return Immediate(resp.BulkString(list.PopFrontOne()))
	}

	values := list.PopFrontN(*r.Count)
	if len(values) == 0 {
		return Immediate(resp.BulkString(nil))
	}
	return Immediate(resp.Array(values))
}

// Apply for LLEN: length of the ListEntry if present and list-kind,
// else 0; an absent key and a StringEntry key are indistinguishable
// here.
func (r *LLenRequest) Apply(ks *keyspace.Keyspace, _ time.Time) Response {
	entry := ks.Get(r.Key)
	list, ok := entry.(*keyspace.ListEntry)
	if entry == nil || !ok {
		return Immediate(resp.Integer(0))
	}
	return Immediate(resp.Integer(list.Len()))
}

// Apply for LRANGE: empty array if the key is absent, a type error
// (null bulk) if it holds a StringEntry, else the normalized range.
func (r *LRangeRequest) Apply(ks *keyspace.Keyspace, _ time.Time) Response {
	entry := ks.Get(r.Key)
	if entry == nil {
		return Immediate(resp.Array(nil))
	}
	list, ok := entry.(*keyspace.ListEntry)
	if !ok {
		return Immediate(resp.BulkString(nil))
	}
	return Immediate(resp.Array(list.Range(r.Start, r.End)))
}

// Apply for BLPOP: an absent or wrong-kind key resolves immediately to
// a null bulk. Otherwise RegisterWaiter runs synchronously (the
// handoff it triggers may already deliver a buffered item before Apply
// returns) and a Deferred response is built that races the waiter
// against the configured timeout once rendered, outside the executor.
func (r *BLPopRequest) Apply(ks *keyspace.Keyspace, _ time.Time) Response {
	entry := ks.Get(r.Key)
	if entry == nil {
		// No ListEntry at all: resolve immediately. No waiter is
		// registered, so a later push to this key does not reach this
		// caller.
		return Immediate(resp.BulkString(nil))
	}
	list, ok := entry.(*keyspace.ListEntry)
	if !ok {
		return Immediate(resp.BulkString(nil))
	}

	waiter := list.RegisterWaiter()
	key := r.Key
	timeout := time.Duration(r.TimeoutSeconds) * time.Second

	return Deferred(func() []byte {
		if r.TimeoutSeconds == 0 {
			value := <-waiter.Receive()
			return resp.Array([][]byte{[]byte(key), value})
		}

		select {
		case value := <-waiter.Receive():
			return resp.Array([][]byte{[]byte(key), value})
		case <-time.After(timeout):
			// Cancel so a later push cannot deliver into an abandoned
			// waiter and lose the item. A delivery that committed just
			// as the timer fired is returned by Cancel and still
			// honored here.
			if value, ok := waiter.Cancel(); ok {
				return resp.Array([][]byte{[]byte(key), value})
			}
			return resp.BulkString(nil)
		}
	})
}
