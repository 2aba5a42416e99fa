package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestPlayers_MissingFileIsEmpty(t *testing.T) {
	st := NewStore(t.TempDir())
	if got := st.Players(); len(got) != 0 {
		t.Errorf("Players = %v, want empty map", got)
	}
	if _, ok := st.Player("12345"); ok {
		t.Error("Player should miss on empty store")
	}
}

func TestPlayers_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "players.json"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := NewStore(dir)
	if got := st.Players(); len(got) != 0 {
		t.Errorf("Players = %v, want empty map for corrupt file", got)
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(dir)

	rec := PlayerRecord{Username: "Zezima", LastTotalLevel: 2277}
	if err := st.Upsert("12345", rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, ok := st.Player("12345")
	if !ok {
		t.Fatal("Player miss after Upsert")
	}
	if got.Username != "Zezima" || got.LastTotalLevel != 2277 {
		t.Errorf("record = %+v", got)
	}

	// A fresh store over the same directory sees the persisted data.
	got, ok = NewStore(dir).Player("12345")
	if !ok || got.Username != "Zezima" {
		t.Errorf("reloaded record = %+v, ok=%v", got, ok)
	}
}

func TestUpsertReplacesExisting(t *testing.T) {
	st := NewStore(t.TempDir())
	if err := st.Upsert("12345", PlayerRecord{Username: "Old Name"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Upsert("12345", PlayerRecord{Username: "New Name"}); err != nil {
		t.Fatal(err)
	}
	got, _ := st.Player("12345")
	if got.Username != "New Name" {
		t.Errorf("Username = %q, want New Name", got.Username)
	}
	if len(st.Players()) != 1 {
		t.Errorf("Players count = %d, want 1", len(st.Players()))
	}
}

func TestUpsertConcurrent(t *testing.T) {
	st := NewStore(t.TempDir())

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", i)
			errs[i] = st.Upsert(id, PlayerRecord{Username: fmt.Sprintf("Player %d", i)})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
	}
	players := st.Players()
	if len(players) != workers {
		t.Fatalf("got %d records after %d concurrent upserts: %v", len(players), workers, players)
	}
	for i := range workers {
		if _, ok := players[fmt.Sprintf("user-%d", i)]; !ok {
			t.Errorf("user-%d lost", i)
		}
	}
}

func TestWithTotalLevel(t *testing.T) {
	before := time.Now().UTC()
	rec := PlayerRecord{Username: "Zezima", LastTotalLevel: 2200}
	updated := rec.WithTotalLevel(2210)

	if updated.LastTotalLevel != 2210 {
		t.Errorf("LastTotalLevel = %d", updated.LastTotalLevel)
	}
	if updated.Username != "Zezima" {
		t.Errorf("Username = %q", updated.Username)
	}
	if updated.LastCheckedAt.Before(before) {
		t.Errorf("LastCheckedAt = %v, want >= %v", updated.LastCheckedAt, before)
	}
	// Receiver is a value; the original must be untouched.
	if rec.LastTotalLevel != 2200 || !rec.LastCheckedAt.IsZero() {
		t.Errorf("original mutated: %+v", rec)
	}
}

func TestSavePlayersMultiple(t *testing.T) {
	st := NewStore(t.TempDir())
	players := map[string]PlayerRecord{
		"1": {Username: "Alice"},
		"2": {Username: "Bert", LastTotalLevel: 1500},
	}
	if err := st.SavePlayers(players); err != nil {
		t.Fatalf("SavePlayers: %v", err)
	}
	got := st.Players()
	if len(got) != 2 || got["2"].LastTotalLevel != 1500 {
		t.Errorf("Players = %v", got)
	}
}
