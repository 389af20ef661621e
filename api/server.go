package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wricardo/memory-match/account"
	"github.com/wricardo/memory-match/game/engine"
	"github.com/wricardo/memory-match/game/service"
	"github.com/wricardo/memory-match/game/session"
	"github.com/wricardo/memory-match/metrics"
	"github.com/wricardo/memory-match/transport/websocket"
)

// Accounts is the account behaviour the API exposes.
type Accounts interface {
	Signup(ctx context.Context, username, email, password string) (*account.User, error)
	Verify(ctx context.Context, username, code string) (*account.User, error)
	ResendCode(ctx context.Context, username string) error
	Login(ctx context.Context, username, password string) (*account.User, error)
	Profile(ctx context.Context, id int64) (*account.User, error)
	Leaderboard(ctx context.Context, limit int) ([]account.LeaderboardEntry, error)
}

// Tokens issues and verifies login tokens.
type Tokens interface {
	Issue(u *account.User, sessionID string) (string, error)
	Parse(token string) (*account.Claims, error)
	TTL() time.Duration
}

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// Server represents the REST API server
type Server struct {
	service  service.GameService
	accounts Accounts
	tokens   Tokens
	hub      *websocket.Hub
	metrics  *metrics.Collector
	log      *slog.Logger

	staticDir     string
	secureCookies bool
	newSessionID  func() string

	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithHub enables the /ws event stream.
func WithHub(hub *websocket.Hub) Option {
	return func(s *Server) { s.hub = hub }
}

// WithMetrics enables /metrics and request instrumentation.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithStaticDir sets the directory served under /. Empty disables it.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithSecureCookies marks the session cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, accounts Accounts, tokens Tokens, opts ...Option) *Server {
	s := &Server{
		service:      gameService,
		accounts:     accounts,
		tokens:       tokens,
		log:          slog.Default(),
		staticDir:    "./static/",
		newSessionID: newSessionID,
		router:       mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.accessLog)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	// Accounts
	s.router.HandleFunc("/signup", s.handleSignup).Methods("POST")
	s.router.HandleFunc("/verify", s.handleVerify).Methods("POST")
	s.router.HandleFunc("/verify/resend", s.handleResendCode).Methods("POST")
	s.router.HandleFunc("/login", s.handleLogin).Methods("POST")
	s.router.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	s.router.HandleFunc("/configs", s.handleListConfigs).Methods("GET")

	// Everything below needs a logged in user
	auth := s.router.NewRoute().Subrouter()
	auth.Use(s.requireAuth)

	auth.HandleFunc("/logout", s.handleLogout).Methods("POST")
	auth.HandleFunc("/me", s.handleMe).Methods("GET")

	// Game operations
	auth.HandleFunc("/new_game", s.handleNewGame).Methods("POST")
	auth.HandleFunc("/game", s.handleGetGame).Methods("GET")
	auth.HandleFunc("/flip_card", s.handleFlipCard).Methods("POST")
	auth.HandleFunc("/reset_flipped_cards", s.handleResetFlippedCards).Methods("POST")
	auth.HandleFunc("/preload_images", s.handlePreloadImages).Methods("GET")
	auth.HandleFunc("/save_score", s.handleSaveScore).Methods("POST")

	if s.hub != nil {
		auth.HandleFunc("/ws", s.handleWebSocket).Methods("GET")
	}

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors to status codes and messages.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var taken *account.UsernameTakenError
	switch {
	case errors.As(err, &taken):
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":       "Username already exists!",
			"suggestions": taken.Suggestions,
		})
	case errors.Is(err, service.ErrNoActiveGame), errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusBadRequest, "No active game")
	case errors.Is(err, service.ErrInvalidCardID):
		respondError(w, http.StatusBadRequest, "Invalid card ID")
	case errors.Is(err, session.ErrGameNotFound):
		respondError(w, http.StatusNotFound, "Game not found")
	case errors.Is(err, service.ErrInvalidScoreInput),
		errors.Is(err, engine.ErrInvalidPairCount),
		errors.Is(err, account.ErrInvalidInput),
		errors.Is(err, account.ErrInvalidCode),
		errors.Is(err, account.ErrCodeExpired):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnknownConfig), errors.Is(err, account.ErrUserNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, account.ErrEmailTaken):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid username or password")
	case errors.Is(err, account.ErrEmailNotVerified):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, account.ErrTooManyAttempts):
		respondError(w, http.StatusTooManyRequests, err.Error())
	default:
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON decodes an optional JSON body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Game Operation Handlers

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Config string `json:"config,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Config == "" {
		req.Config = r.URL.Query().Get("config")
	}

	info, err := s.service.NewGame(r.Context(), sessionKey(r), req.Config)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetGame(r.Context(), sessionKey(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleFlipCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := readCardID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid card ID")
		return
	}

	result, err := s.service.FlipCard(r.Context(), sessionKey(r), cardID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// readCardID accepts {"card_id": n} or a card_id form field.
func readCardID(r *http.Request) (int, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			CardID *int `json:"card_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == nil {
			return 0, false
		}
		return *req.CardID, true
	}

	raw := r.FormValue("card_id")
	if raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) handleResetFlippedCards(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardIDs []int `json:"card_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.ResetFlippedCards(r.Context(), sessionKey(r), req.CardIDs)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handlePreloadImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.service.PreloadImages(r.Context(), r.URL.Query().Get("config"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"images": images,
	})
}

func (s *Server) handleSaveScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Moves   int `json:"moves"`
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claims := claimsFrom(r)
	result, err := s.service.SaveScore(r.Context(), claims.SessionID, claims.UserID, req.Moves, req.Seconds)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

// Account Handlers

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
	Code     string `json:"code,omitempty"`
}

// readCredentials accepts a JSON body or the signup/login form fields.
func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&c)
		return c, err
	}
	if err := r.ParseForm(); err != nil {
		return c, err
	}
	c.Username = r.PostFormValue("username")
	c.Email = r.PostFormValue("email")
	c.Password = r.PostFormValue("password")
	c.Code = r.PostFormValue("code")
	return c, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.accounts.Signup(r.Context(), c.Username, c.Email, c.Password)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Verification code sent to " + user.Email,
		"user":    user,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.accounts.Verify(r.Context(), c.Username, c.Code)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Email verified",
		"user":    user,
	})
}

func (s *Server) handleResendCode(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.accounts.ResendCode(r.Context(), c.Username); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Verification code sent",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.accounts.Login(r.Context(), c.Username, c.Password)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(user, s.newSessionID())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.service.EndSession(r.Context(), sessionKey(r)); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.Profile(r.Context(), claimsFrom(r).UserID)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, maxLeaderboardLimit)
		}
	}

	entries, err := s.accounts.Leaderboard(r.Context(), limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []account.LeaderboardEntry{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)

	// Send the current game first so a new tab can render immediately.
	var initial *websocket.Message
	if info, err := s.service.GetGame(r.Context(), key); err == nil {
		initial = &websocket.Message{
			Event:     "connected",
			GameID:    info.GameID,
			GameState: info.GameState,
		}
	}

	s.hub.ServeWS(w, r, key, initial)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
