package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/memory-match/game/engine"
)

func newTestGame(t *testing.T, pairs int) *Game {
	t.Helper()
	gameID, state, err := engine.NewGame(pairs)
	if err != nil {
		t.Fatalf("Failed to deal game: %v", err)
	}
	return &Game{ID: gameID, State: state}
}

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func TestManager_AddGame(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(NewMemoryStore(0))

	t.Run("first game becomes active", func(t *testing.T) {
		game := newTestGame(t, 4)
		evicted, err := manager.AddGame(ctx, "alpha", game)
		if err != nil {
			t.Fatalf("AddGame failed: %v", err)
		}
		if len(evicted) != 0 {
			t.Errorf("Expected no evictions, got %v", evicted)
		}

		active, err := manager.Active(ctx, "alpha")
		if err != nil {
			t.Fatalf("Active failed: %v", err)
		}
		if active.ID != game.ID {
			t.Errorf("Expected active game %s, got %s", game.ID, active.ID)
		}
		if active.CreatedAt.IsZero() {
			t.Error("Expected creation time to be set")
		}
	})

	t.Run("empty key", func(t *testing.T) {
		if _, err := manager.AddGame(ctx, "", newTestGame(t, 2)); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Expected ErrInvalidKey, got %v", err)
		}
	})

	t.Run("missing state", func(t *testing.T) {
		if _, err := manager.AddGame(ctx, "alpha", &Game{ID: "x"}); err == nil {
			t.Error("Expected error for game without state")
		}
	})

	t.Run("stored state is a copy", func(t *testing.T) {
		game := newTestGame(t, 2)
		if _, err := manager.AddGame(ctx, "copy", game); err != nil {
			t.Fatalf("AddGame failed: %v", err)
		}
		game.State.Flip(0)

		active, _ := manager.Active(ctx, "copy")
		if active.State.Cards[0].IsFlipped {
			t.Error("Mutating the caller's state must not change the stored game")
		}
	})
}

func TestManager_EvictsOldestCreated(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(NewMemoryStore(0), WithCapacity(3), WithClock(stepClock()))

	var ids []string
	for i := 0; i < 3; i++ {
		game := newTestGame(t, 2)
		ids = append(ids, game.ID)
		if _, err := manager.AddGame(ctx, "key", game); err != nil {
			t.Fatalf("AddGame %d failed: %v", i, err)
		}
	}

	// Reading the oldest game does not protect it from eviction.
	if _, err := manager.Game(ctx, "key", ids[0]); err != nil {
		t.Fatalf("Expected first game to exist: %v", err)
	}

	fourth := newTestGame(t, 2)
	evicted, err := manager.AddGame(ctx, "key", fourth)
	if err != nil {
		t.Fatalf("AddGame failed: %v", err)
	}
	if len(evicted) != 1 || evicted[0] != ids[0] {
		t.Fatalf("Expected %s to be evicted, got %v", ids[0], evicted)
	}

	if _, err := manager.Game(ctx, "key", ids[0]); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("Expected evicted game to be gone, got %v", err)
	}

	games, err := manager.Games(ctx, "key")
	if err != nil {
		t.Fatalf("Games failed: %v", err)
	}
	want := []string{ids[1], ids[2], fourth.ID}
	if len(games) != len(want) {
		t.Fatalf("Expected %d games, got %d", len(want), len(games))
	}
	for i, g := range games {
		if g.ID != want[i] {
			t.Errorf("Game %d: expected %s, got %s", i, want[i], g.ID)
		}
	}
}

func TestManager_EvictionIgnoresPlayOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	manager := NewManager(store, WithCapacity(2))

	first := newTestGame(t, 2)
	second := newTestGame(t, 2)
	manager.AddGame(ctx, "key", first)
	manager.AddGame(ctx, "key", second)

	// Make the first game active again and play it.
	rec, _ := store.Get(ctx, "key")
	rec.ActiveGameID = first.ID
	store.Put(ctx, rec)
	if _, err := manager.UpdateActive(ctx, "key", func(g *Game) error {
		g.State.Flip(0)
		return nil
	}); err != nil {
		t.Fatalf("UpdateActive failed: %v", err)
	}

	evicted, err := manager.AddGame(ctx, "key", newTestGame(t, 2))
	if err != nil {
		t.Fatalf("AddGame failed: %v", err)
	}
	if len(evicted) != 1 || evicted[0] != first.ID {
		t.Errorf("Expected most recently played but oldest game %s evicted, got %v", first.ID, evicted)
	}
}

func TestManager_UpdateActive(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(NewMemoryStore(0))

	t.Run("no session", func(t *testing.T) {
		_, err := manager.UpdateActive(ctx, "nobody", func(g *Game) error { return nil })
		if !errors.Is(err, ErrGameNotFound) {
			t.Errorf("Expected ErrGameNotFound, got %v", err)
		}
	})

	game := newTestGame(t, 4)
	manager.AddGame(ctx, "key", game)

	t.Run("saves mutation", func(t *testing.T) {
		updated, err := manager.UpdateActive(ctx, "key", func(g *Game) error {
			g.State.Flip(2)
			return nil
		})
		if err != nil {
			t.Fatalf("UpdateActive failed: %v", err)
		}
		if len(updated.State.FlippedCards) != 1 {
			t.Errorf("Expected one tracked card, got %v", updated.State.FlippedCards)
		}

		active, _ := manager.Active(ctx, "key")
		if !active.State.Cards[2].IsFlipped {
			t.Error("Expected flip to be persisted")
		}
	})

	t.Run("error discards mutation", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := manager.UpdateActive(ctx, "key", func(g *Game) error {
			g.State.Flip(3)
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Expected callback error, got %v", err)
		}

		active, _ := manager.Active(ctx, "key")
		if active.State.Cards[3].IsFlipped {
			t.Error("Expected failed update to be discarded")
		}
	})
}

func TestManager_ConcurrentFlipsAreSerialized(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(NewMemoryStore(0))
	manager.AddGame(ctx, "key", newTestGame(t, 8))

	var wg sync.WaitGroup
	for id := 0; id < 16; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			manager.UpdateActive(ctx, "key", func(g *Game) error {
				outcome := g.State.Flip(id)
				if outcome.NoMatch {
					g.State.ResetFlipped(outcome.CardsToFlipBack)
				}
				return nil
			})
		}(id)
	}
	wg.Wait()

	active, err := manager.Active(ctx, "key")
	if err != nil {
		t.Fatalf("Active failed: %v", err)
	}
	if err := active.State.Validate(); err != nil {
		t.Fatalf("Concurrent flips broke the state: %v", err)
	}

	open := 0
	for _, c := range active.State.Cards {
		if c.IsFlipped && !c.IsMatched {
			open++
		}
	}
	if open != len(active.State.FlippedCards) {
		t.Errorf("Expected %d open cards, got %d", len(active.State.FlippedCards), open)
	}
	if active.State.Moves != 8 {
		t.Errorf("Expected 8 moves from 16 flips, got %d", active.State.Moves)
	}
	if manager.locks.size() != 0 {
		t.Errorf("Expected all key locks released, %d left", manager.locks.size())
	}
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(NewMemoryStore(0))
	manager.AddGame(ctx, "key", newTestGame(t, 2))

	if err := manager.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Active(ctx, "key"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("Expected ErrGameNotFound after delete, got %v", err)
	}
	if err := manager.Delete(ctx, "key"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(NewMemoryStore(0))
	a := newTestGame(t, 2)
	b := newTestGame(t, 2)
	manager.AddGame(ctx, "a", a)
	manager.AddGame(ctx, "b", b)

	if _, err := manager.Game(ctx, "a", b.ID); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("Expected session a not to see session b's game, got %v", err)
	}
}

func TestWithCapacity_IgnoresInvalid(t *testing.T) {
	m := NewManager(NewMemoryStore(0), WithCapacity(0))
	if m.Capacity() != DefaultCapacity {
		t.Errorf("Expected default capacity, got %d", m.Capacity())
	}
}
