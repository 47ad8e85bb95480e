// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Quill HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) and Redis.
//  4. Run database migrations (idempotent).
//  5. Build signing keys, throttles and delivery channels.
//  6. Wire the account and auth services and their handlers.
//  7. Start the revoked token sweeper.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/jonboulle/clockwork"

	"github.com/taibuivan/quill/internal/api"
	"github.com/taibuivan/quill/internal/platform/cache"
	"github.com/taibuivan/quill/internal/platform/config"
	"github.com/taibuivan/quill/internal/platform/constants"
	"github.com/taibuivan/quill/internal/platform/migration"
	"github.com/taibuivan/quill/internal/platform/notify"
	"github.com/taibuivan/quill/internal/platform/oauth"
	pgstore "github.com/taibuivan/quill/internal/platform/postgres"
	redisstore "github.com/taibuivan/quill/internal/platform/redis"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/platform/throttle"
	"github.com/taibuivan/quill/internal/users/account"
	"github.com/taibuivan/quill/internal/users/auth"
)

// outboundTimeout bounds calls to social providers.
const outboundTimeout = 10 * time.Second

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL and Redis ───────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	rdb, err := redisstore.NewClient(startupCtx, redisstore.Options{
		URL:          cfg.RedisURL,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
		DialTimeout:  cfg.RedisDialTimeout,
		IOTimeout:    cfg.RedisIOTimeout,
	}, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, cfg.Debug, log), "run migrations")

	// ── 5. Keys, Throttles and Delivery ───────────────────────────────────
	tokenService, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	sealer, err := sec.NewSealer(cfg.CacheEncryptionKey)
	must(log, err, "initialize session sealer")

	linkSigner := sec.NewLinkSigner(cfg.LinkSigningSecret, cfg.VerificationLinkTTL)

	store := cache.New(rdb)
	limiter := func(scope string, limit int) *throttle.Limiter {
		return throttle.NewLimiter(store, constants.RedisPrefixThrottle+scope+":", limit, cfg.ThrottleWindow)
	}

	mailer, err := notify.NewMailer(notify.MailerConfig{
		Driver:   cfg.MailDriver,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		SendRate: cfg.MailSendRate,
	}, log)
	must(log, err, "initialize mailer")

	sms, err := notify.NewSMSSender(notify.SMSConfig{
		Driver:     cfg.SMSDriver,
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
		SendRate:   cfg.SMSSendRate,
	}, log)
	must(log, err, "initialize sms sender")

	social := oauth.NewVerifier(&http.Client{Timeout: outboundTimeout}, oauth.Endpoints{}, cfg.GoogleClientID)

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	clock := clockwork.NewRealClock()
	accountRepository := account.NewAccountRepository(pool)
	revocationRepository := auth.NewRevocationRepository(pool)

	authService := auth.NewService(auth.Dependencies{
		Accounts:    accountRepository,
		Revocations: revocationRepository,
		Sessions:    auth.NewOTPSessionStore(store),
		Tokens:      tokenService,
		Links:       linkSigner,
		Sealer:      sealer,
		Mailer:      mailer,
		SMS:         sms,
		Social:      social,
		Clock:       clock,
		Logger:      log,
	}, auth.Policy{
		MaxLoginFailures: cfg.MaxLoginFailureLimit,
		FailureWindow:    cfg.LoginFailureWindow,
		AccessTokenTTL:   cfg.AccessTokenTTL,
		RefreshTokenTTL:  cfg.RefreshTokenTTL,
		FrontendURL:      cfg.FrontendURL,
	})

	accountService := account.NewService(accountRepository, authService, clock, cfg.MaxStrikes, log)

	authHandler := auth.NewHandler(authService, auth.Limiters{
		Login:         limiter("login", cfg.ThrottleLogin),
		ResendOTP:     limiter("resend_otp", cfg.ThrottleResendOTP),
		EmailVerify:   limiter("email_verify", cfg.ThrottleEmailVerify),
		PhoneVerify:   limiter("phone_verify", cfg.ThrottlePhoneVerify),
		PasswordReset: limiter("password_reset", cfg.ThrottlePasswordReset),
	})
	accountHandler := account.NewHandler(accountService, limiter("user_create", cfg.ThrottleUserCreate))

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(context context.Context) error {
			return pgstore.Ping(context, pool)
		},
		CheckCache: redisstore.Checker(rdb),
	}, log)

	// ── 7. Background Work ────────────────────────────────────────────────
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	go auth.NewSweeper(revocationRepository, clock, log).Run(rootCtx, cfg.TokenSweepInterval)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(cfg, log, tokenService, limiter("global", cfg.ThrottleGlobal), api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Accounts:  accountHandler,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	rootCancel()

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
