package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/memory-match/account"
	"github.com/wricardo/memory-match/game/config"
	"github.com/wricardo/memory-match/game/session"
	"github.com/wricardo/memory-match/logger"
	"github.com/wricardo/memory-match/transport/mcp"
)

// settings is the resolved flag and environment configuration.
type settings struct {
	Host      string
	Port      int
	ConfigDir string
	StaticDir string

	SessionStore string
	SessionsDir  string
	SessionCap   int
	SessionTTL   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL string
	AutoMigrate bool

	JWTSecret     string
	TokenTTL      time.Duration
	SecureCookies bool

	SendGridKey  string
	MailFrom     string
	MailFromName string

	NATSURL    string
	NATSPrefix string

	AllowedOrigins []string

	LogLevel  string
	LogFormat string

	Ngrok       bool
	NgrokAuth   string
	NgrokDomain string

	APIURL   string
	MCPToken string
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "memory-match",
		Usage:   AppName,
		Version: Version,
		Flags:   globalFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server with the game API, WebSocket events, metrics and an MCP endpoint (default)",
				Action: runServe,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run an MCP stdio server, starting an internal HTTP API if none is reachable",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "API server to proxy to when it is reachable",
						Sources: cli.EnvVars("MCP_API_URL"),
					},
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Login token for the external API server",
						Sources: cli.EnvVars("MCP_TOKEN"),
					},
				},
				Action: runMCP,
			},
			{
				Name:   "migrate",
				Usage:  "Create the PostgreSQL user tables",
				Action: runMigrate,
			},
			{
				Name:      "validate",
				Usage:     "Check every deck theme of a directory",
				ArgsUsage: "[dir]",
				Action:    runValidate,
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
		&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing deck themes", Sources: cli.EnvVars("CONFIG_DIR")},
		&cli.StringFlag{Name: "static-dir", Value: "static", Usage: "Directory served under / (empty disables it)", Sources: cli.EnvVars("STATIC_DIR")},

		&cli.StringFlag{Name: "session-store", Value: "memory", Usage: "Session backend: memory, file or redis", Sources: cli.EnvVars("SESSION_STORE")},
		&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory of the file session backend", Sources: cli.EnvVars("SESSIONS_DIR")},
		&cli.IntFlag{Name: "session-cap", Value: session.DefaultCapacity, Usage: "Games kept per session", Sources: cli.EnvVars("SESSION_CAP")},
		&cli.DurationFlag{Name: "session-ttl", Value: session.DefaultTTL, Usage: "Lifetime of an idle session", Sources: cli.EnvVars("SESSION_TTL")},

		&cli.StringFlag{Name: "redis-addr", Usage: "Redis address for sessions and verification codes", Sources: cli.EnvVars("REDIS_ADDR")},
		&cli.StringFlag{Name: "redis-password", Usage: "Redis password", Sources: cli.EnvVars("REDIS_PASSWORD")},
		&cli.IntFlag{Name: "redis-db", Value: 0, Usage: "Redis database", Sources: cli.EnvVars("REDIS_DB")},

		&cli.StringFlag{Name: "database-url", Usage: "PostgreSQL URL of the user directory (in-memory when empty)", Sources: cli.EnvVars("DATABASE_URL")},
		&cli.BoolFlag{Name: "auto-migrate", Value: true, Usage: "Create the user tables on startup", Sources: cli.EnvVars("AUTO_MIGRATE")},

		&cli.StringFlag{Name: "jwt-secret", Usage: "Secret signing login tokens (random when empty)", Sources: cli.EnvVars("JWT_SECRET")},
		&cli.DurationFlag{Name: "token-ttl", Value: account.DefaultTokenTTL, Usage: "Lifetime of a login", Sources: cli.EnvVars("TOKEN_TTL")},
		&cli.BoolFlag{Name: "secure-cookies", Usage: "Mark the session cookie Secure", Sources: cli.EnvVars("SECURE_COOKIES")},

		&cli.StringFlag{Name: "sendgrid-api-key", Usage: "SendGrid key for verification mails (codes are logged when empty)", Sources: cli.EnvVars("SENDGRID_API_KEY")},
		&cli.StringFlag{Name: "mail-from", Value: "noreply@memory-match.local", Usage: "Sender address", Sources: cli.EnvVars("MAIL_FROM")},
		&cli.StringFlag{Name: "mail-from-name", Value: "Memory Match", Usage: "Sender name", Sources: cli.EnvVars("MAIL_FROM_NAME")},

		&cli.StringFlag{Name: "nats-url", Usage: "NATS server receiving game events", Sources: cli.EnvVars("NATS_URL")},
		&cli.StringFlag{Name: "nats-prefix", Value: "memorymatch", Usage: "Subject prefix of game events", Sources: cli.EnvVars("NATS_PREFIX")},

		&cli.StringSliceFlag{Name: "allowed-origin", Usage: "Origin allowed to open WebSockets (repeatable, any when unset)", Sources: cli.EnvVars("ALLOWED_ORIGINS")},

		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error", Sources: cli.EnvVars("LOG_LEVEL")},
		&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json", Sources: cli.EnvVars("LOG_FORMAT")},

		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

func settingsFrom(cmd *cli.Command) settings {
	return settings{
		Host:      cmd.String("host"),
		Port:      int(cmd.Int("port")),
		ConfigDir: cmd.String("config-dir"),
		StaticDir: cmd.String("static-dir"),

		SessionStore: cmd.String("session-store"),
		SessionsDir:  cmd.String("sessions-dir"),
		SessionCap:   int(cmd.Int("session-cap")),
		SessionTTL:   cmd.Duration("session-ttl"),

		RedisAddr:     cmd.String("redis-addr"),
		RedisPassword: cmd.String("redis-password"),
		RedisDB:       int(cmd.Int("redis-db")),

		DatabaseURL: cmd.String("database-url"),
		AutoMigrate: cmd.Bool("auto-migrate"),

		JWTSecret:     cmd.String("jwt-secret"),
		TokenTTL:      cmd.Duration("token-ttl"),
		SecureCookies: cmd.Bool("secure-cookies"),

		SendGridKey:  cmd.String("sendgrid-api-key"),
		MailFrom:     cmd.String("mail-from"),
		MailFromName: cmd.String("mail-from-name"),

		NATSURL:    cmd.String("nats-url"),
		NATSPrefix: cmd.String("nats-prefix"),

		AllowedOrigins: cmd.StringSlice("allowed-origin"),

		LogLevel:  cmd.String("log-level"),
		LogFormat: cmd.String("log-format"),

		Ngrok:       cmd.Bool("ngrok"),
		NgrokAuth:   cmd.String("ngrok-auth"),
		NgrokDomain: cmd.String("ngrok-domain"),

		APIURL:   cmd.String("api-url"),
		MCPToken: cmd.String("token"),
	}
}

func (s settings) addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// runServe starts the HTTP server and, when enabled, an ngrok tunnel serving
// the same handler. It returns after SIGINT or SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	s := settingsFrom(cmd)
	logger.Init(s.LogLevel, s.LogFormat)
	logger.Info("starting", "app", AppName, "version", Version)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, s)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.Close()

	go a.hub.Run(ctx)
	go a.cleanupRoutine(ctx, time.Hour)

	addr := s.addr()
	handler := a.handler(fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening", "addr", addr)
		logger.Info("endpoints",
			"game", fmt.Sprintf("http://%s/", addr),
			"websocket", fmt.Sprintf("ws://%s/ws", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr),
			"metrics", fmt.Sprintf("http://%s/metrics", addr),
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	if s.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, s, handler)
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	wg.Wait()
	logger.Info("server stopped")

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, s settings, handler http.Handler) {
	if s.NgrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if s.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(s.NgrokDomain))
		logger.Info("using custom ngrok domain", "domain", s.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(s.NgrokAuth))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	logger.Info("ngrok tunnel established", "url", tun.URL())

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}

// runMCP runs an MCP stdio server. It proxies to --api-url when that server
// answers, otherwise it starts a private API on a loopback port with an
// agent account of its own.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	s := settingsFrom(cmd)
	// stdout carries the MCP protocol
	logger.InitWriter(os.Stderr, s.LogLevel, s.LogFormat)

	baseURL, token := s.APIURL, s.MCPToken

	if !apiReachable(ctx, s.APIURL) {
		logger.Info("no external API server found, starting internal HTTP server")

		a, err := newApp(ctx, s)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer a.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		token, err = a.localToken(ctx)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go a.hub.Run(ctx)

		httpServer := &http.Server{Handler: a.handler(baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()
	} else if token == "" {
		return fmt.Errorf("an external API server is running at %s: pass --token with a login token", s.APIURL)
	}

	logger.Info("MCP stdio server ready", "api", baseURL)

	client := mcp.NewClient(baseURL, token)
	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiReachable(ctx context.Context, baseURL string) bool {
	if baseURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runMigrate creates the user tables in --database-url.
func runMigrate(ctx context.Context, cmd *cli.Command) error {
	s := settingsFrom(cmd)
	logger.Init(s.LogLevel, s.LogFormat)

	if s.DatabaseURL == "" {
		return fmt.Errorf("--database-url is required")
	}

	pool, err := account.ConnectPostgres(ctx, s.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := account.NewPostgresDirectory(pool).Migrate(ctx); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

// runValidate reports every invalid deck theme of a directory.
func runValidate(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = cmd.String("config-dir")
	}

	problems, err := config.ValidateDir(dir)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	if len(problems) == 0 {
		fmt.Fprintf(out, "All deck themes in %s are valid\n", dir)
		return nil
	}

	names := make([]string, 0, len(problems))
	for name := range problems {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%s: %v\n", name, problems[name])
	}
	return fmt.Errorf("%d invalid deck theme(s) in %s", len(problems), dir)
}
