package irc

import (
	"cmp"
	"iter"
	"slices"
	"sync"
)

// BanEntry is a single channel ban. Entries are never modified after creation.
type BanEntry struct {
	Channel  string // Channel name as given when the ban was set
	SetBy    string // Nickname of the oper that set the ban
	SetOn    int64  // Creation time in seconds
	Duration int64  // Seconds until expiry, 0 is permanent
	Reason   string
}

// Permanent reports whether the entry is exempt from expiry.
func (b BanEntry) Permanent() bool {
	return b.Duration == 0
}

// Expiry returns the sort key of the entry. Permanent entries sort as if they expired when they were set.
func (b BanEntry) Expiry() int64 {
	return b.SetOn + b.Duration
}

// Expired reports whether a timed entry has run out at now.
func (b BanEntry) Expired(now int64) bool {
	return !b.Permanent() && b.Expiry() <= now
}

// Remaining returns the seconds left before expiry, or 0 for permanent entries.
func (b BanEntry) Remaining(now int64) int64 {
	if b.Permanent() {
		return 0
	}
	return b.Expiry() - now
}

// Elapsed returns the seconds since the entry was set.
func (b BanEntry) Elapsed(now int64) int64 {
	return now - b.SetOn
}

// BanMgr is the interface consulted by the CBAN handlers and the replication bridge.
type BanMgr interface {
	Add(entry BanEntry)
	RemoveFirstMatching(channel string) (BanEntry, bool)
	FindFirstMatching(channel string) (BanEntry, bool)
	Sweep(now int64) []BanEntry
	All() iter.Seq[BanEntry]
	Len() int
}

// BanStore holds the active channel bans, ordered ascending by Expiry.
type BanStore struct {
	bans []BanEntry

	mu sync.Mutex
}

func NewBanStore() *BanStore {
	return &BanStore{}
}

func banSortFunc(a, b BanEntry) int {
	return cmp.Compare(a.Expiry(), b.Expiry())
}

// Add appends entry and restores the expiry order. Duplicate channels are allowed.
func (bs *BanStore) Add(entry BanEntry) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.bans = append(bs.bans, entry)

	// Stable so that equal keys keep insertion order and removal stays predictable.
	slices.SortStableFunc(bs.bans, banSortFunc)
}

// RemoveFirstMatching deletes the first entry in expiry order whose channel matches.
// The second return value is false when nothing matched; the store is left untouched.
func (bs *BanStore) RemoveFirstMatching(channel string) (BanEntry, bool) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	i := bs.indexOf(channel)
	if i < 0 {
		return BanEntry{}, false
	}

	entry := bs.bans[i]
	bs.bans = slices.Delete(bs.bans, i, i+1)

	return entry, true
}

func (bs *BanStore) FindFirstMatching(channel string) (BanEntry, bool) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	i := bs.indexOf(channel)
	if i < 0 {
		return BanEntry{}, false
	}

	return bs.bans[i], true
}

func (bs *BanStore) indexOf(channel string) int {
	return slices.IndexFunc(bs.bans, func(b BanEntry) bool {
		return ChannelsEqual(b.Channel, channel)
	})
}

// Sweep removes every timed entry that has expired at now and returns the removed entries in
// store order. The store is rebuilt in a single filtering pass.
func (bs *BanStore) Sweep(now int64) (expired []BanEntry) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	kept := bs.bans[:0]
	for _, b := range bs.bans {
		if b.Expired(now) {
			expired = append(expired, b)
			continue
		}
		kept = append(kept, b)
	}

	// Clear the tail so removed reasons are not retained by the backing array.
	clear(bs.bans[len(kept):])
	bs.bans = kept

	return expired
}

// All returns the current entries in expiry order. The sequence iterates over a snapshot taken
// when All is called, so the store may be modified during iteration.
func (bs *BanStore) All() iter.Seq[BanEntry] {
	bs.mu.Lock()
	snapshot := slices.Clone(bs.bans)
	bs.mu.Unlock()

	return slices.Values(snapshot)
}

func (bs *BanStore) Len() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return len(bs.bans)
}
