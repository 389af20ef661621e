package account

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryDirectory is a Directory held in process memory.
type MemoryDirectory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*User
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		nextID: 1,
		users:  make(map[int64]*User),
	}
}

func (d *MemoryDirectory) Create(ctx context.Context, u *User) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return ErrUsernameTaken
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}

	u.ID = d.nextID
	d.nextID++
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	stored := *u
	d.users[u.ID] = &stored
	return nil
}

func (d *MemoryDirectory) GetByID(ctx context.Context, id int64) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (d *MemoryDirectory) GetByUsername(ctx context.Context, username string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, u := range d.users {
		if strings.EqualFold(u.Username, username) {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *MemoryDirectory) MarkVerified(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.EmailVerified = true
	return nil
}

func (d *MemoryDirectory) RecordScore(ctx context.Context, id int64, score int) (int, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return 0, false, ErrUserNotFound
	}
	if score > u.HighScore {
		u.HighScore = score
		return score, true, nil
	}
	return u.HighScore, false, nil
}

func (d *MemoryDirectory) TopScores(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	d.mu.RLock()
	users := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		if u.HighScore > 0 {
			c := *u
			users = append(users, &c)
		}
	}
	d.mu.RUnlock()

	slices.SortFunc(users, func(a, b *User) int {
		if c := cmp.Compare(b.HighScore, a.HighScore); c != 0 {
			return c
		}
		return strings.Compare(a.Username, b.Username)
	})

	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{Rank: i + 1, Username: u.Username, HighScore: u.HighScore}
	}
	return entries, nil
}
