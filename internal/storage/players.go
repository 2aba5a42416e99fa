// Package storage persists player account links as JSON files.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PlayerRecord links a Discord user to an OSRS account.
type PlayerRecord struct {
	Username       string    `json:"username"`
	LastTotalLevel int       `json:"lastTotalLevel"`
	LastCheckedAt  time.Time `json:"lastCheckedAt"`
}

// WithTotalLevel returns a copy with an updated total level and a
// refreshed timestamp.
func (r PlayerRecord) WithTotalLevel(level int) PlayerRecord {
	r.LastTotalLevel = level
	r.LastCheckedAt = time.Now().UTC()
	return r
}

// Store reads and writes players.json, keyed by Discord user id.
// Reads return copies; writes are serialized by an RW mutex.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a player store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{dir: dataDir}
}

func (s *Store) playersPath() string {
	return filepath.Join(s.dir, "players.json")
}

// Players loads all player records. A missing or unreadable file is an
// empty map, matching first-run behavior.
func (s *Store) Players() map[string]PlayerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readLocked()
}

// readLocked loads the player map. Callers must hold mu.
func (s *Store) readLocked() map[string]PlayerRecord {
	data, err := os.ReadFile(s.playersPath())
	if err != nil {
		return map[string]PlayerRecord{}
	}
	players := map[string]PlayerRecord{}
	if err := json.Unmarshal(data, &players); err != nil {
		return map[string]PlayerRecord{}
	}
	return players
}

// Player returns the record linked to a Discord user id.
func (s *Store) Player(userID string) (PlayerRecord, bool) {
	rec, ok := s.Players()[userID]
	return rec, ok
}

// SavePlayers persists the full player map.
func (s *Store) SavePlayers(players map[string]PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(players)
}

// saveLocked persists the player map. Callers must hold mu.
func (s *Store) saveLocked(players map[string]PlayerRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(players, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	tmp := s.playersPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write players: %w", err)
	}
	if err := os.Rename(tmp, s.playersPath()); err != nil {
		return fmt.Errorf("replace players: %w", err)
	}
	return nil
}

// Upsert stores a single player record. The write lock is held across
// the whole read-modify-write so concurrent upserts cannot drop each
// other's records.
func (s *Store) Upsert(userID string, rec PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := s.readLocked()
	players[userID] = rec
	return s.saveLocked(players)
}
