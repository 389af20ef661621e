package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

// Service implements signup, e-mail verification and login.
type Service struct {
	users       Directory
	codes       CodeStore
	mailer      Mailer
	codeTTL     time.Duration
	maxAttempts int
	resendEvery time.Duration
	log         *slog.Logger
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithCodeTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.codeTTL = ttl
		}
	}
}

func WithMaxAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithResendInterval(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.resendEvery = d
		}
	}
}

func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(users Directory, codes CodeStore, mailer Mailer, opts ...ServiceOption) *Service {
	s := &Service{
		users:       users,
		codes:       codes,
		mailer:      mailer,
		codeTTL:     DefaultCodeTTL,
		maxAttempts: DefaultMaxAttempts,
		resendEvery: DefaultResendInterval,
		log:         slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Users returns the directory the service works on.
func (s *Service) Users() Directory {
	return s.users
}

// Signup registers an unverified user and mails a verification code. A
// taken username yields a *UsernameTakenError with alternatives.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-32 letters, digits or underscores", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, s.takenError(ctx, username)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, s.takenError(ctx, username)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "user signed up", "user_id", u.ID, "username", u.Username)

	if err := s.sendCode(ctx, u, 1); err != nil {
		// The account exists; the user can ask for another code.
		s.log.WarnContext(ctx, "failed to send verification code", "username", u.Username, "error", err)
	}
	return u, nil
}

// Verify checks a code entered by the user and marks the e-mail verified.
func (s *Service) Verify(ctx context.Context, username, code string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if u.EmailVerified {
		return u, nil
	}

	pending, err := s.codes.Get(ctx, u.Username)
	if err != nil {
		return nil, err
	}

	keep, checkErr := checkCode(pending, code, s.now(), s.maxAttempts)
	if keep != nil {
		if err := s.codes.Put(ctx, u.Username, *keep); err != nil {
			return nil, err
		}
		return nil, checkErr
	}
	if err := s.codes.Delete(ctx, u.Username); err != nil {
		return nil, err
	}
	if checkErr != nil {
		return nil, checkErr
	}

	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return nil, err
	}
	u.EmailVerified = true
	s.log.InfoContext(ctx, "email verified", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// ResendCode replaces any pending code with a new one and mails it. Unknown
// and already verified users get the same nil result as a real resend.
// Resends are refused with ErrTooManyAttempts while the pending code is
// younger than the resend interval or has been mailed maxAttempts times.
func (s *Service) ResendCode(ctx context.Context, username string) error {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		s.log.DebugContext(ctx, "resend for unknown user ignored")
		return nil
	}
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return nil
	}

	sends := 0
	pending, err := s.codes.Get(ctx, u.Username)
	switch {
	case errors.Is(err, ErrInvalidCode):
	case err != nil:
		return err
	case !resendAllowed(pending, s.now(), s.resendEvery, s.maxAttempts):
		return ErrTooManyAttempts
	case s.now().Before(pending.ExpiresAt):
		sends = pending.Sends
	}
	return s.sendCode(ctx, u, sends+1)
}

// Login checks credentials. Unverified users are refused with
// ErrEmailNotVerified once their password has been checked.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return u, nil
}

// Profile returns the user with the given id.
func (s *Service) Profile(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// Leaderboard returns the top limit high scores.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return s.users.TopScores(ctx, limit)
}

func (s *Service) sendCode(ctx context.Context, u *User, sends int) error {
	code, err := GenerateCode()
	if err != nil {
		return err
	}
	now := s.now()
	pc := PendingCode{Code: code, ExpiresAt: now.Add(s.codeTTL), SentAt: now, Sends: sends}
	if err := s.codes.Put(ctx, u.Username, pc); err != nil {
		return err
	}
	return s.mailer.SendVerificationCode(ctx, u.Email, u.Username, code)
}

func (s *Service) takenError(ctx context.Context, username string) error {
	return &UsernameTakenError{
		Username:    username,
		Suggestions: s.suggestUsernames(ctx, username),
	}
}

// suggestUsernames proposes up to three free variants of a taken name.
func (s *Service) suggestUsernames(ctx context.Context, username string) []string {
	base := username
	if len(base) > 26 {
		base = base[:26]
	}

	candidates := []string{
		fmt.Sprintf("%s%d", base, rand.IntN(100)+1),
		fmt.Sprintf("%s_%d", base, rand.IntN(900)+100),
		fmt.Sprintf("%s%d", base, rand.IntN(9000)+1000),
	}

	suggestions := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, err := s.users.GetByUsername(ctx, c); errors.Is(err, ErrUserNotFound) {
			suggestions = append(suggestions, c)
		}
	}
	return suggestions
}
