package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/resumark/internal/auth"
	"github.com/debemdeboas/resumark/internal/cache"
	"github.com/debemdeboas/resumark/internal/comment"
	"github.com/debemdeboas/resumark/internal/config"
	"github.com/debemdeboas/resumark/internal/db"
	"github.com/debemdeboas/resumark/internal/editor"
	"github.com/debemdeboas/resumark/internal/logger"
	"github.com/debemdeboas/resumark/internal/model"
	"github.com/debemdeboas/resumark/internal/pages"
	"github.com/debemdeboas/resumark/internal/render"
	"github.com/debemdeboas/resumark/internal/routes"
	"github.com/debemdeboas/resumark/internal/sse"
	"github.com/debemdeboas/resumark/internal/store"
	"github.com/debemdeboas/resumark/internal/util"
)

//go:embed static/* templates/*
var content embed.FS

const shutdownTimeout = 10 * time.Second

func main() {
	envErr := godotenv.Load()

	l := logger.New(os.Getenv("LOG_LEVEL"))
	if envErr != nil {
		l.Debug().Err(envErr).Msg("No .env file loaded")
	}

	config.SetLogger(l)
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	if err := config.LoadConfig(configPath); err != nil {
		l.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	if os.Getenv("LOG_LEVEL") == "" {
		l = logger.New(config.AppConfig.Logging.Level)
	}
	setLoggers(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, l); err != nil {
		l.Fatal().Err(err).Msg("Server stopped")
	}
}

func setLoggers(l zerolog.Logger) {
	config.SetLogger(l.With().Str("component", "config").Logger())
	db.SetLogger(l.With().Str("component", "db").Logger())
	store.SetLogger(l.With().Str("component", "store").Logger())
	render.SetLogger(l.With().Str("component", "render").Logger())
	editor.SetLogger(l.With().Str("component", "editor").Logger())
	auth.SetLogger(l.With().Str("component", "auth").Logger())
}

func run(ctx context.Context, l zerolog.Logger) error {
	cfg := config.AppConfig

	resumes, database, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if database != nil {
		defer database.Close()
	}

	static, err := fs.Sub(content, config.StaticLocalDir)
	if err != nil {
		return fmt.Errorf("failed to open static files: %w", err)
	}
	hashStatic(static)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	renderer, err := render.NewRenderer(cfg.Editor.PreviewCacheSize)
	if err != nil {
		return err
	}

	clients := sse.NewSSEClients()
	manager := editor.NewManager(resumes, cfg.Editor, editor.EventPublisher(clients), editor.NewMetrics(reg))
	defer manager.CloseAll()
	go manager.Run(ctx)

	admin, social := authProviders(cfg, database, l)

	var comments *comment.Board
	if cfg.Features.Comments.Enabled {
		comments = comment.NewBoard(cfg.Features.Comments.MaxPerResume)
	}

	a := &app{
		resumes:  resumes,
		manager:  manager,
		clients:  clients,
		renderer: renderer,
		admin:    admin,
		social:   social,
		comments: comments,
		registry: reg,
	}
	handler, err := a.handler(l, static)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Type).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	l.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type app struct {
	resumes  store.ResumeStore
	manager  *editor.Manager
	clients  *sse.SSEClients
	renderer *render.Renderer
	admin    *auth.Ed25519AuthProvider
	social   *auth.ClerkAuthProvider
	comments *comment.Board
	registry *prometheus.Registry
}

// handler registers every route and wraps the mux in the auth, cache and
// security middleware.
func (a *app) handler(l zerolog.Logger, static fs.FS) (http.Handler, error) {
	users := auth.Chain{a.social}
	if a.admin != nil {
		users = append(auth.Chain{a.admin}, users...)
	}

	mux := http.NewServeMux()
	mux.Handle(config.StaticURLPath, http.StripPrefix(config.StaticURLPath, http.FileServer(http.FS(static))))
	mux.Handle("GET "+routes.MetricsPath, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))

	if err := auth.RegisterRoutes(mux, a.admin, a.social, content); err != nil {
		return nil, err
	}
	editor.NewHandler(a.manager, a.clients, a.renderer, a.resumes, users, content).Register(mux)
	pages.NewHandler(a.resumes, a.comments, a.renderer, users, content).WithNames(a.social).Register(mux)

	return withLogger(l, cacheIt(users.WithHeaderAuthorization()(secureHeaders(mux)))), nil
}

// openStore builds the configured resume store with S3 credentials taken from
// the environment.
func openStore(ctx context.Context, cfg *config.Config) (store.ResumeStore, db.DB, error) {
	return store.Open(ctx, cfg, os.Getenv("S3_ACCESS_KEY_ID"), os.Getenv("S3_SECRET_ACCESS_KEY"))
}

// authProviders returns the key login provider, nil when disabled or not
// configured, and the social login provider, which is always usable.
func authProviders(cfg *config.Config, database db.DB, l zerolog.Logger) (*auth.Ed25519AuthProvider, *auth.ClerkAuthProvider) {
	var social *auth.ClerkAuthProvider
	if cfg.Features.SocialLogin.Enabled {
		social = auth.NewClerkAuthProvider(os.Getenv("CLERK_API"), os.Getenv("CLERK_SIGN_IN_URL"), database)
	} else {
		social = auth.NewClerkAuthProvider("", "", database)
	}
	if !social.Enabled() {
		l.Info().Msg("Social login is not configured")
	}

	if !cfg.Features.Authentication.Enabled || cfg.Features.Authentication.Type != "ed25519" {
		return nil, social
	}

	admin, err := auth.NewEd25519AuthProvider(os.Getenv("ED25519_PUBKEY"), config.HeaderAuthorize, model.UserID("admin"))
	if err != nil {
		l.Warn().Err(err).Msg("Administrator key login disabled")
		return nil, social
	}
	return admin, social
}

func hashStatic(static fs.FS) {
	fs.WalkDir(static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(static, path)
		if err != nil {
			return nil
		}
		cache.SetStaticHash(config.StaticURLPath+path, util.ContentHash(data))
		return nil
	})
}

// withLogger attaches a request scoped logger to the request context.
func withLogger(l zerolog.Logger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl := l.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		h.ServeHTTP(w, r.WithContext(rl.WithContext(r.Context())))
	})
}

func cacheIt(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCacheControl, "no-cache")
		w.Header().Set("Vary", "Cookie")

		if hash, ok := cache.GetStaticHash(r.URL.Path); ok {
			w.Header().Set(config.HCacheControl, "public, max-age=3600")
			w.Header().Set(config.HETag, hash)
		}

		h.ServeHTTP(w, r)
	})
}

func secureHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != routes.RobotsPath {
			w.Header().Set("X-Frame-Options", "deny")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-XSS-Protection", "1; mode=block")
		}

		h.ServeHTTP(w, r)
	})
}
