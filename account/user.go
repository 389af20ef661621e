package account

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrTooManyAttempts    = errors.New("too many verification attempts")
)

// User is a registered player.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	HighScore     int       `json:"high_score"`
	CreatedAt     time.Time `json:"created_at"`
}

// LeaderboardEntry is one row of the high score table.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Username  string `json:"username"`
	HighScore int    `json:"high_score"`
}

// Directory stores users. Lookups by username are case-insensitive.
type Directory interface {
	// Create inserts u and sets its ID and CreatedAt. It returns
	// ErrUsernameTaken or ErrEmailTaken on conflicts.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	MarkVerified(ctx context.Context, id int64) error
	// RecordScore keeps score as the user's high score when it beats the
	// stored one, atomically, and returns the resulting high score.
	RecordScore(ctx context.Context, id int64, score int) (highScore int, improved bool, err error)
	TopScores(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// UsernameTakenError carries alternative names for a taken username.
type UsernameTakenError struct {
	Username    string
	Suggestions []string
}

func (e *UsernameTakenError) Error() string {
	return "username already exists: " + e.Username
}

func (e *UsernameTakenError) Is(target error) bool {
	return target == ErrUsernameTaken
}
