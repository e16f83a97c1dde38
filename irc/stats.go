package irc

import (
	"sync"
)

// Counter keys.
const (
	StatCurrentlyConnected = iota
	StatConnectionPeak
	StatConnectionCounter
	StatBansAdded
	StatBansExpired
	StatJoinsRefused
)

var statNames = map[int]string{
	StatCurrentlyConnected: "CurrentlyConnected",
	StatConnectionPeak:     "ConnectionPeak",
	StatConnectionCounter:  "ConnectionCounter",
	StatBansAdded:          "BansAdded",
	StatBansExpired:        "BansExpired",
	StatJoinsRefused:       "JoinsRefused",
}

type Counter interface {
	Increment(keys ...int)
	Decrement(key int)
	Set(key, val int)
	Get(key int) int
	Since() int64
	Values() map[string]any
}

type Stats struct {
	stats map[int]int
	since int64

	mu sync.Mutex
}

// NewStats returns zeroed counters started at since.
func NewStats(since int64) *Stats {
	s := &Stats{
		stats: make(map[int]int, len(statNames)),
		since: since,
	}
	for key := range statNames {
		s.stats[key] = 0
	}

	return s
}

// Increment adds one to each key. Raising StatCurrentlyConnected also raises StatConnectionPeak when a new high is reached.
func (s *Stats) Increment(keys ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		s.stats[key]++
	}

	if s.stats[StatCurrentlyConnected] > s.stats[StatConnectionPeak] {
		s.stats[StatConnectionPeak] = s.stats[StatCurrentlyConnected]
	}
}

func (s *Stats) Decrement(key int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stats[key] > 0 {
		s.stats[key]--
	}
}

func (s *Stats) Set(key, val int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats[key] = val
}

func (s *Stats) Get(key int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats[key]
}

// Since returns the server time the counters were started at.
func (s *Stats) Since() int64 {
	return s.since
}

// Values returns every counter by name, plus the start time under "Since".
func (s *Stats) Values() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[string]any, len(statNames)+1)
	for key, name := range statNames {
		values[name] = s.stats[key]
	}
	values["Since"] = s.since

	return values
}
