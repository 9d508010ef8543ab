package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social_auth/internal/auth"
	"social_auth/internal/config"
	"social_auth/internal/http_server/handlers/health"
	"social_auth/internal/http_server/handlers/login"
	"social_auth/internal/http_server/handlers/logout"
	oauthHandlers "social_auth/internal/http_server/handlers/oauth"
	"social_auth/internal/http_server/handlers/refresh"
	"social_auth/internal/http_server/handlers/register"
	"social_auth/internal/lib/jwt"
	sl "social_auth/internal/lib/logger/sl"
	"social_auth/internal/lib/password"
	"social_auth/internal/metrics"
	"social_auth/internal/middleware/authn"
	rateLimit "social_auth/internal/middleware/ratelimit"
	"social_auth/internal/middleware/secure"
	"social_auth/internal/oauth"
	"social_auth/internal/observability"
	"social_auth/internal/rabbitmq"
	"social_auth/internal/storage/postgres"
	redisRepo "social_auth/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad(config.Path())

	log := setupLogger(cfg.Env)

	log.Info("starting auth service", slog.String("env", cfg.Env))

	if err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env); err != nil {
		log.Error("failed to init sentry", sl.Err(err))
	}
	defer observability.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("auth service stopped with error", sl.Err(err))
		observability.FlushSentry()
		os.Exit(1)
	}

	log.Info("Main service stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	if err := storage.Migrate(ctx); err != nil {
		return err
	}

	kv, err := redisRepo.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer kv.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		return err
	}
	defer msgBroker.Close()

	issuer := jwt.NewIssuer(
		cfg.Tokens.AccessTokenSecret,
		cfg.Tokens.RefreshTokenSecret,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
	)

	authService := auth.New(
		log,
		storage,
		storage,
		storage,
		password.NewHasher(cfg.Hashing.BcryptCost, cfg.Hashing.MaxConcurrent),
		issuer,
		msgBroker,
		auth.WithLockout(auth.NewLockout(cfg.Lockout.MaxAttempts, cfg.Lockout.Duration)),
		auth.WithRefreshRotation(cfg.Tokens.RotateRefresh),
		auth.WithHandoffStore(kv, cfg.OAuth.HandoffTTL),
	)

	validate := validator.New()
	if err := password.RegisterValidation(validate); err != nil {
		return err
	}

	var google *oauth.Google
	if cfg.OAuth.Google.Enabled() {
		google = oauth.NewGoogle(
			cfg.OAuth.Google.ClientID,
			cfg.OAuth.Google.ClientSecret,
			cfg.OAuth.Google.RedirectURL,
		)
	} else {
		log.Warn("google oauth is not configured, federated login disabled")
	}

	router := setupRouter(log, cfg, validate, authService, issuer, google, map[string]health.Pinger{
		"postgres": storage,
		"redis":    kv,
	})

	go auth.RunTokenPurge(ctx, log, storage, cfg.Tokens.PurgeInterval)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErr := make(chan error, 1)

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", sl.Err(err))
		return err
	}

	log.Info("Server stopped gracefully")

	return nil
}

func setupRouter(
	log *slog.Logger,
	cfg *config.Config,
	validate *validator.Validate,
	authService *auth.Auth,
	issuer *jwt.Issuer,
	google *oauth.Google,
	deps map[string]health.Pinger,
) *chi.Mux {
	limits := cfg.RateLimit

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(observability.Middleware)
	r.Use(secure.Headers)

	r.Get("/healthz", health.New(log, deps))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(rateLimit.Global(limits.Global, limits.Window))

		r.With(rateLimit.Register(limits.Register, limits.Window)).
			Post("/register", register.New(log, validate, authService))
		r.With(rateLimit.Login(limits.Login, limits.Window)).
			Post("/login", login.New(log, validate, authService))
		r.With(rateLimit.Refresh(limits.Refresh, limits.Window)).
			Post("/token", refresh.New(log, authService))
		r.With(rateLimit.Logout(limits.Logout, limits.Window), authn.New(log, issuer)).
			Post("/logout", logout.New(log, authService))

		if google == nil {
			return
		}

		r.Group(func(r chi.Router) {
			r.Use(rateLimit.OAuth(limits.OAuth, limits.Window))

			r.Get("/google/start", oauthHandlers.Start(log, authService, google))
			r.Get("/google", oauthHandlers.Callback(log, authService, google, authService, cfg.ClientURL))
			r.Post("/oauth/exchange", oauthHandlers.Exchange(log, authService))
		})
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
