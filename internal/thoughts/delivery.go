package thoughts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mheard/bobbot/internal/settings"
)

// DM chunks stay under Discord's 2000-char message ceiling with room
// for the code fence and part label.
const chunkSize = 1900

// Messenger sends direct messages. Implemented by the Discord REST
// client.
type Messenger interface {
	OpenDM(ctx context.Context, userID string) (string, error)
	SendMessage(ctx context.Context, channelID, content string) (string, error)
}

// Service delivers reasoning logs to the configured recipients and
// answers on-demand lookups from the cache. Admin status is checked at
// delivery time, not capture time, so role changes take effect
// immediately.
type Service struct {
	cache       *Cache
	messenger   Messenger
	settings    *settings.Store
	superuserID string
	isAdmin     func(ctx context.Context, userID string) bool
	logger      *slog.Logger
}

// NewService creates a delivery service. isAdmin may be nil, in which
// case only the superuser passes the admin check.
func NewService(cache *Cache, messenger Messenger, st *settings.Store, superuserID string, isAdmin func(ctx context.Context, userID string) bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cache:       cache,
		messenger:   messenger,
		settings:    st,
		superuserID: superuserID,
		isAdmin:     isAdmin,
		logger:      logger.With("component", "thoughts"),
	}
}

// Cache returns the underlying reasoning cache.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Remember stores a reasoning log for later lookup by message id.
func (s *Service) Remember(messageID, prompt, reasoning, authorID string) {
	s.cache.Put(messageID, prompt, reasoning, authorID)
}

// Deliver DMs a reasoning log to every configured recipient. Each
// recipient's admin status is re-checked here, so a demoted admin on
// the opt-in list stops receiving logs immediately. Failures for one
// recipient do not block the others.
func (s *Service) Deliver(ctx context.Context, prompt, reasoning string) {
	if reasoning == "" {
		return
	}

	for _, userID := range s.recipients() {
		if !s.admin(ctx, userID) {
			s.logger.Debug("skipping reasoning recipient without admin status", "user_id", userID)
			continue
		}
		if err := s.deliverTo(ctx, userID, prompt, reasoning); err != nil {
			s.logger.Warn("failed to deliver reasoning", "user_id", userID, "error", err)
		}
	}
}

// CachedFor returns the reasoning for a message id, but only to the
// user who asked the original question or to an admin.
func (s *Service) CachedFor(ctx context.Context, messageID, requesterID string) (Entry, error) {
	entry, ok := s.cache.Get(messageID)
	if !ok {
		return Entry{}, fmt.Errorf("no reasoning is cached for that message")
	}
	if entry.AuthorID != requesterID && !s.admin(ctx, requesterID) {
		return Entry{}, fmt.Errorf("only the person who asked, or an admin, can see that reasoning")
	}
	return entry, nil
}

func (s *Service) recipients() []string {
	snap := s.settings.Snapshot()
	if len(snap.ThoughtRecipientIDs) > 0 {
		return snap.ThoughtRecipientIDs
	}
	if s.superuserID != "" {
		return []string{s.superuserID}
	}
	return nil
}

func (s *Service) admin(ctx context.Context, userID string) bool {
	if userID == s.superuserID {
		return true
	}
	if s.isAdmin != nil {
		return s.isAdmin(ctx, userID)
	}
	return false
}

func (s *Service) deliverTo(ctx context.Context, userID, prompt, reasoning string) error {
	channelID, err := s.messenger.OpenDM(ctx, userID)
	if err != nil {
		return fmt.Errorf("open DM: %w", err)
	}

	chunks := splitChunks(reasoning, chunkSize)
	for i, chunk := range chunks {
		var msg string
		if len(chunks) == 1 {
			msg = fmt.Sprintf("**Reasoning for:** %s\n```\n%s\n```", prompt, chunk)
		} else {
			msg = fmt.Sprintf("**Reasoning for:** %s (Part %d)\n```\n%s\n```", prompt, i+1, chunk)
		}
		if _, err := s.messenger.SendMessage(ctx, channelID, msg); err != nil {
			return fmt.Errorf("send part %d: %w", i+1, err)
		}
	}
	return nil
}

// splitChunks breaks text into pieces of at most size runes, preferring
// to break at line boundaries.
func splitChunks(text string, size int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= size {
			chunks = append(chunks, string(runes))
			break
		}
		cut := size
		for i := size; i > size/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}
