// Package conversation provides bounded per-channel message history.
package conversation

import (
	"sync"

	"github.com/mheard/bobbot/internal/llm"
)

// DefaultWindow is the number of messages kept per conversation.
const DefaultWindow = 20

// Store keeps a sliding window of messages per conversation key (one
// key per channel). Entries are created on first use and live for the
// process lifetime; eviction is by window size only, oldest first.
//
// Access is serialized per key: two calls for the same channel never
// interleave, while unrelated channels proceed in parallel.
type Store struct {
	window int

	mu      sync.Mutex // guards the map only
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	msgs []llm.Message
}

// NewStore creates a conversation store with the given window size.
// A non-positive window falls back to DefaultWindow.
func NewStore(window int) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		window:  window,
		entries: make(map[string]*entry),
	}
}

func (s *Store) entryFor(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// Messages returns a copy of the history for key, oldest first.
func (s *Store) Messages(key string) []llm.Message {
	e := s.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]llm.Message, len(e.msgs))
	copy(out, e.msgs)
	return out
}

// Append adds messages to the history for key, evicting the oldest
// entries once the window is exceeded.
func (s *Store) Append(key string, msgs ...llm.Message) {
	e := s.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msgs...)
	if over := len(e.msgs) - s.window; over > 0 {
		e.msgs = append([]llm.Message(nil), e.msgs[over:]...)
	}
}

// Len returns the number of messages stored for key.
func (s *Store) Len(key string) int {
	e := s.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.msgs)
}

// Conversations returns the number of distinct keys seen.
func (s *Store) Conversations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
