package account

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
)

func newTestPostgresDirectory(t *testing.T) *PostgresDirectory {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := ConnectPostgres(ctx, url)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(pool.Close)

	dir := NewPostgresDirectory(pool)
	if err := dir.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return dir
}

func TestPostgresDirectory(t *testing.T) {
	dir := newTestPostgresDirectory(t)
	ctx := context.Background()
	name := "pg_" + uuid.NewString()[:8]

	u := &User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := dir.Create(ctx, u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.ID == 0 || u.CreatedAt.IsZero() {
		t.Errorf("Expected id and created_at to be set, got %+v", u)
	}

	dup := &User{Username: name, Email: "other-" + name + "@example.com", PasswordHash: "x"}
	if err := dir.Create(ctx, dup); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}

	got, err := dir.GetByUsername(ctx, u.Username)
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByUsername failed: %v %+v", err, got)
	}

	if err := dir.MarkVerified(ctx, u.ID); err != nil {
		t.Fatalf("MarkVerified failed: %v", err)
	}

	high, improved, err := dir.RecordScore(ctx, u.ID, 7000)
	if err != nil || !improved || high != 7000 {
		t.Errorf("Expected improvement to 7000, got %d %v %v", high, improved, err)
	}
	high, improved, err = dir.RecordScore(ctx, u.ID, 100)
	if err != nil || improved || high != 7000 {
		t.Errorf("Expected 7000 kept, got %d %v %v", high, improved, err)
	}

	got, _ = dir.GetByID(ctx, u.ID)
	if !got.EmailVerified || got.HighScore != 7000 {
		t.Errorf("Unexpected stored user %+v", got)
	}

	if _, err := dir.GetByID(ctx, -1); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}
