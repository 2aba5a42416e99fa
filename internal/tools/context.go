package tools

import (
	"context"
	"sync"
)

type contextKey string

const callScopeKey contextKey = "call_scope"

// CallScope carries the ambient identity of one generation call: who is
// speaking and in which guild. A fresh scope is attached to the context
// at the start of each call and travels with it into every tool handler,
// including handlers the model client runs on other goroutines; values
// are carried explicitly by the context, never by goroutine identity.
//
// The pagination session id is the one piece of information that flows
// the other way, from a tool back to the orchestrator, so it lives here
// behind a mutex.
type CallScope struct {
	CallerID string
	GuildID  string

	mu           sync.Mutex
	paginationID string
}

// SetPaginationID records the paged session a tool opened during this
// call. The orchestrator reads it back when assembling the outcome.
func (s *CallScope) SetPaginationID(id string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paginationID = id
}

// PaginationID returns the paged session id opened during this call,
// or "" if no tool opened one.
func (s *CallScope) PaginationID() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paginationID
}

// WithScope attaches a call scope to the context.
func WithScope(ctx context.Context, scope *CallScope) context.Context {
	return context.WithValue(ctx, callScopeKey, scope)
}

// ScopeFrom extracts the call scope from the context. Returns nil when
// called outside a generation call; tool handlers treat that as "no
// user context" rather than failing.
func ScopeFrom(ctx context.Context) *CallScope {
	if s, ok := ctx.Value(callScopeKey).(*CallScope); ok {
		return s
	}
	return nil
}
