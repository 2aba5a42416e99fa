// Package settings holds the bot's runtime-mutable settings.
//
// Unlike the static YAML config, these values change while the bot is
// running (admins repoint the model endpoint, move channels, opt in to
// thinking logs) and must survive restarts, so they persist to
// settings.json in the data directory. The store hands out immutable
// snapshots; every update produces and persists a new snapshot.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// Settings is one immutable snapshot of the bot's mutable settings.
type Settings struct {
	AIURL                string   `json:"aiUrl,omitempty"`
	AIModel              string   `json:"aiModel,omitempty"`
	BobsChatChannelID    string   `json:"bobsChatChannelId,omitempty"`
	LeaderboardChannelID string   `json:"leaderboardChannelId,omitempty"`
	AdminRoleID          string   `json:"adminRoleId,omitempty"`
	AdminUserIDs         []string `json:"adminUserIds,omitempty"`
	Status               string   `json:"status,omitempty"`
	ThoughtRecipientIDs  []string `json:"thoughtRecipientIds,omitempty"`
}

// IsAdminUser reports whether a user id is on the stored admin list.
func (s Settings) IsAdminUser(userID string) bool {
	return userID != "" && slices.Contains(s.AdminUserIDs, userID)
}

func defaults() Settings {
	return Settings{Status: "online"}
}

// clone returns a deep copy so snapshots never share slice backing.
func (s Settings) clone() Settings {
	out := s
	out.AdminUserIDs = slices.Clone(s.AdminUserIDs)
	out.ThoughtRecipientIDs = slices.Clone(s.ThoughtRecipientIDs)
	return out
}

// Store is a read-mostly settings store backed by a JSON file.
// Snapshot is cheap; Update serializes writers and persists before the
// new snapshot becomes visible.
type Store struct {
	path string

	mu  sync.RWMutex
	cur Settings
}

// NewStore loads settings from dataDir/settings.json, falling back to
// defaults when the file does not exist yet.
func NewStore(dataDir string) (*Store, error) {
	s := &Store{
		path: filepath.Join(dataDir, "settings.json"),
		cur:  defaults(),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s.cur); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if s.cur.Status == "" {
		s.cur.Status = "online"
	}
	return s, nil
}

// Snapshot returns the current settings. The returned value is a copy;
// mutating it has no effect on the store.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.clone()
}

// Update applies fn to a copy of the current settings, persists the
// result, and installs it as the new snapshot. Readers see either the
// old or the new snapshot, never a partial write.
func (s *Store) Update(fn func(Settings) Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.cur.clone())
	if err := s.persist(next); err != nil {
		return err
	}
	s.cur = next
	return nil
}

func (s *Store) persist(v Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
