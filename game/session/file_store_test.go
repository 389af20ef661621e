package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewFileStore(filepath.Join(dir, "sessions"), 0)
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}

	rec := testRecord(t, "test1")

	t.Run("Save and Load Record", func(t *testing.T) {
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}

		loaded, err := store.Get(ctx, "test1")
		if err != nil {
			t.Fatalf("Failed to load record: %v", err)
		}
		if loaded.ActiveGameID != rec.ActiveGameID {
			t.Errorf("Expected active game %s, got %s", rec.ActiveGameID, loaded.ActiveGameID)
		}
		if loaded.Active().State.TotalPairs != 2 {
			t.Errorf("Expected 2 pairs, got %d", loaded.Active().State.TotalPairs)
		}
	})

	t.Run("Save State Changes", func(t *testing.T) {
		rec.Active().State.Flip(0)
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Failed to save updated record: %v", err)
		}

		loaded, err := store.Get(ctx, "test1")
		if err != nil {
			t.Fatalf("Failed to load updated record: %v", err)
		}
		if !loaded.Active().State.Cards[0].IsFlipped {
			t.Error("Flip not persisted")
		}
	})

	t.Run("List All Records", func(t *testing.T) {
		if err := store.Put(ctx, testRecord(t, "test2")); err != nil {
			t.Fatalf("Failed to save second record: %v", err)
		}

		keys, err := store.ListAll()
		if err != nil {
			t.Fatalf("Failed to list records: %v", err)
		}
		found := make(map[string]bool)
		for _, k := range keys {
			found[k] = true
		}
		if !found["test1"] || !found["test2"] || len(keys) != 2 {
			t.Errorf("Expected test1 and test2, got %v", keys)
		}
	})

	t.Run("Delete Record", func(t *testing.T) {
		if err := store.Delete(ctx, "test2"); err != nil {
			t.Fatalf("Failed to delete record: %v", err)
		}
		if _, err := store.Get(ctx, "test2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if err := store.Delete(ctx, "test2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
		}
	})

	t.Run("Invalid Key", func(t *testing.T) {
		if _, err := store.Get(ctx, "../escape"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Expected ErrInvalidKey, got %v", err)
		}
		if err := store.Put(ctx, &Record{Key: "a/b"}); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("Corrupt State", func(t *testing.T) {
		bad := testRecord(t, "bad")
		bad.Active().State.MatchedPairs = 5
		if err := store.Put(ctx, bad); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
		if _, err := store.Get(ctx, "bad"); err == nil {
			t.Error("Expected corrupt state to be rejected")
		}
	})

	t.Run("Unreadable File", func(t *testing.T) {
		path := filepath.Join(dir, "sessions", "junk.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := store.Get(ctx, "junk")
		if err == nil || errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected decode error, got %v", err)
		}
	})
}

func TestFileStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}

	rec := testRecord(t, "stale")
	rec.UpdatedAt = time.Now().Add(-2 * time.Hour)
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := store.Get(ctx, "stale"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected stale record to be missing, got %v", err)
	}
	keys, _ := store.ListAll()
	if len(keys) != 0 {
		t.Errorf("Expected stale file to be removed, got %v", keys)
	}
}

func TestFileStore_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}

	fresh := testRecord(t, "fresh")
	fresh.UpdatedAt = time.Now()
	store.Put(ctx, fresh)
	store.Put(ctx, testRecord(t, "old"))

	past := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "old.json"), past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	if _, err := store.Get(ctx, "fresh"); err != nil {
		t.Errorf("Expected fresh record to survive, got %v", err)
	}
}

func TestManager_WithFileStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir(), DefaultTTL)
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}

	manager := NewManager(store)
	game := newTestGame(t, 3)
	if _, err := manager.AddGame(ctx, "persisted", game); err != nil {
		t.Fatalf("AddGame failed: %v", err)
	}

	// A second manager over the same directory sees the game.
	other := NewManager(store)
	active, err := other.Active(ctx, "persisted")
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if active.ID != game.ID {
		t.Errorf("Expected %s, got %s", game.ID, active.ID)
	}
}
