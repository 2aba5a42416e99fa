// Package pagination manages paged message sessions for long results.
package pagination

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Session is a server-held cursor over a large result set. The preamble
// is the model's natural chat response shown above the pages.
type Session struct {
	Title    string
	Preamble string
	Pages    []string
	Page     int
	Metadata map[string]string
}

// Bridge holds active paged sessions, keyed by session id. Sessions are
// created by tools during a generation call and navigated later by the
// end user's next/previous actions.
type Bridge struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewBridge creates an empty pagination bridge.
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Open creates a session from a flat item list, chunked perPage items
// to a page, and returns its id. An empty item list yields one empty
// page so that rendering never has to special-case it.
func (b *Bridge) Open(title, preamble string, items []string, perPage int) string {
	if perPage <= 0 {
		perPage = 10
	}

	var pages []string
	if len(items) == 0 {
		pages = []string{""}
	} else {
		for i := 0; i < len(items); i += perPage {
			end := min(i+perPage, len(items))
			pages = append(pages, strings.Join(items[i:end], "\n")+"\n")
		}
	}

	id := uuid.NewString()
	b.mu.Lock()
	b.sessions[id] = &Session{
		Title:    title,
		Preamble: preamble,
		Pages:    pages,
		Metadata: make(map[string]string),
	}
	b.mu.Unlock()

	b.logger.Debug("created pagination session", "session", id, "pages", len(pages))
	return id
}

// Get returns a snapshot of the session, or false if it does not exist.
func (b *Bridge) Get(id string) (Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Turn moves the session's cursor by delta pages and returns the
// updated snapshot. The index is clamped to the valid range, so turning
// past either end is a harmless no-op rather than an error.
func (b *Bridge) Turn(id string, delta int) (Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return Session{}, false
	}
	page := s.Page + delta
	if page < 0 {
		page = 0
	}
	if page > len(s.Pages)-1 {
		page = len(s.Pages) - 1
	}
	s.Page = page
	return *s, true
}

// SetPreamble replaces the session's natural-language preamble.
func (b *Bridge) SetPreamble(id, preamble string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[id]; ok {
		s.Preamble = preamble
	}
}

// Remove deletes a session.
func (b *Bridge) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, id)
}
