package keyspace

// Keyspace is the mapping from key to Entry. Exactly one goroutine,
// the executor loop in internal/executor, may ever call these methods;
// see the package doc for why no lock is needed here.
type Keyspace struct {
	entries map[string]Entry
}

// New returns an empty Keyspace.
func New() *Keyspace {
	return &Keyspace{entries: make(map[string]Entry)}
}

// Insert replaces any prior entry at key and returns it, if present.
func (k *Keyspace) Insert(key string, e Entry) Entry {
	prior := k.entries[key]
	k.entries[key] = e
	return prior
}

// Get returns a read-only view of the entry at key, or nil if absent.
func (k *Keyspace) Get(key string) Entry {
	return k.entries[key]
}

// Remove deletes and returns the entry at key, or nil if absent.
func (k *Keyspace) Remove(key string) Entry {
	e := k.entries[key]
	delete(k.entries, key)
	return e
}

// ListEntryFor returns the ListEntry at key, creating and storing one
// if the key is absent. ok is false if key holds a StringEntry
// instead; the caller must not mutate the keyspace further in that
// case.
func (k *Keyspace) ListEntryFor(key string) (entry *ListEntry, ok bool) {
	existing := k.entries[key]
	if existing == nil {
		l := NewListEntry()
		k.entries[key] = l
		return l, true
	}
	l, isList := existing.(*ListEntry)
	return l, isList
}

// TotalWaiters sums the waiters queued on every ListEntry, for the
// executor's blocked-waiters gauge. A waiter whose BLPOP has already
// timed out stays counted until the next handoff on its list discards
// it.
func (k *Keyspace) TotalWaiters() int {
	total := 0
	for _, e := range k.entries {
		if l, ok := e.(*ListEntry); ok {
			total += len(l.waiters)
		}
	}
	return total
}
