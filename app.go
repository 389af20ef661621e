package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wricardo/memory-match/account"
	"github.com/wricardo/memory-match/api"
	"github.com/wricardo/memory-match/events"
	"github.com/wricardo/memory-match/game/config"
	"github.com/wricardo/memory-match/game/service"
	"github.com/wricardo/memory-match/game/session"
	"github.com/wricardo/memory-match/logger"
	"github.com/wricardo/memory-match/metrics"
	"github.com/wricardo/memory-match/transport/mcp"
	"github.com/wricardo/memory-match/transport/websocket"
)

// agentUsername is the account the mcp command plays as on its internal server.
const agentUsername = "mcp_agent"

// app holds the wired services of one process.
type app struct {
	settings settings
	log      *slog.Logger

	configs  *config.Manager
	store    session.Store
	sessions *session.Manager
	users    account.Directory
	accounts *account.Service
	tokens   *account.TokenIssuer
	hub      *websocket.Hub
	metrics  *metrics.Collector
	games    service.GameService

	closers []func()
}

// newApp wires config, storage, accounts and the game service from s.
func newApp(ctx context.Context, s settings) (*app, error) {
	a := &app{settings: s, log: logger.Get()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	configs, err := config.NewManager(s.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	a.configs = configs

	var rdb *redis.Client
	if s.RedisAddr != "" {
		rdb, err = session.DialRedis(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { rdb.Close() })
	}

	switch s.SessionStore {
	case "", "memory":
		a.store = session.NewMemoryStore(s.SessionTTL)
	case "file":
		a.store, err = session.NewFileStore(s.SessionsDir, s.SessionTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create session store: %w", err)
		}
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("session store redis needs --redis-addr")
		}
		a.store = session.NewRedisStore(rdb, s.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session store %q (use memory, file or redis)", s.SessionStore)
	}
	a.sessions = session.NewManager(a.store, session.WithCapacity(s.SessionCap))

	if s.DatabaseURL != "" {
		pool, err := account.ConnectPostgres(ctx, s.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)

		dir := account.NewPostgresDirectory(pool)
		if s.AutoMigrate {
			if err := dir.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		a.users = dir
	} else {
		a.log.Warn("no --database-url set, users are kept in memory")
		a.users = account.NewMemoryDirectory()
	}

	var codes account.CodeStore = account.NewMemoryCodeStore()
	if rdb != nil {
		codes = account.NewRedisCodeStore(rdb)
	}

	var mailer account.Mailer = account.LogMailer{Logger: a.log}
	if s.SendGridKey != "" {
		mailer = account.NewSendGridMailer(s.SendGridKey, s.MailFrom, s.MailFromName)
	}

	secret := s.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return nil, err
		}
		a.log.Warn("no --jwt-secret set, logins will not survive a restart")
	}
	a.tokens, err = account.NewTokenIssuer(secret, s.TokenTTL)
	if err != nil {
		return nil, err
	}

	a.accounts = account.NewService(a.users, codes, mailer, account.WithLogger(a.log))

	a.metrics = metrics.New()
	a.hub = websocket.NewHub(a.log, s.AllowedOrigins...)

	publishers := events.Multi{a.hub}
	if s.NATSURL != "" {
		nc, err := events.Connect(s.NATSURL, AppName)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, nc.Close)
		publishers = append(publishers, events.NewNATSPublisher(nc, s.NATSPrefix))
	}

	a.games = service.NewGameService(a.sessions, a.configs, a.users,
		service.WithPublisher(publishers),
		service.WithMetrics(a.metrics),
		service.WithLogger(a.log),
	)

	ok = true
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// handler combines the API with an /mcp endpoint that proxies to baseURL.
func (a *app) handler(baseURL string) http.Handler {
	apiServer := api.NewServer(a.games, a.accounts, a.tokens,
		api.WithHub(a.hub),
		api.WithMetrics(a.metrics),
		api.WithLogger(a.log),
		api.WithStaticDir(a.settings.StaticDir),
		api.WithSecureCookies(a.settings.SecureCookies),
	)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", a.mcpHandler(baseURL))
	return mainRouter
}

// mcpHandler answers single JSON-RPC MCP messages. The caller's bearer token
// is forwarded to the API, so tools act on the caller's session.
func (a *app) mcpHandler(baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		client := mcp.NewClient(baseURL, strings.TrimSpace(token))
		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// cleanupRoutine periodically removes expired sessions from backends that do
// not expire keys themselves.
func (a *app) cleanupRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.cleanupOnce(ctx); removed > 0 {
				a.log.Info("cleaned up expired sessions", "removed", removed)
			}
		}
	}
}

func (a *app) cleanupOnce(ctx context.Context) int {
	switch store := a.store.(type) {
	case *session.MemoryStore:
		return store.CleanupExpired()
	case *session.FileStore:
		removed, err := store.CleanupExpired(ctx)
		if err != nil {
			a.log.Warn("session cleanup failed", "error", err)
		}
		return removed
	default:
		return 0
	}
}

// localToken returns a login token for the agent account, creating the
// account on first use.
func (a *app) localToken(ctx context.Context) (string, error) {
	u, err := a.users.GetByUsername(ctx, agentUsername)
	if errors.Is(err, account.ErrUserNotFound) {
		password, err := randomSecret()
		if err != nil {
			return "", err
		}
		hash, err := account.HashPassword(password[:32])
		if err != nil {
			return "", err
		}
		u = &account.User{
			Username:      agentUsername,
			Email:         agentUsername + "@localhost.localdomain",
			PasswordHash:  hash,
			EmailVerified: true,
		}
		if err := a.users.Create(ctx, u); err != nil {
			return "", fmt.Errorf("failed to create agent account: %w", err)
		}
	} else if err != nil {
		return "", err
	}

	return a.tokens.Issue(u, uuid.NewString())
}
