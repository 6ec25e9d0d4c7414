// Package app wires configuration, storage, and the HTTP server into a
// runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	internalauth "github.com/authflow-app/authflow/internal/auth"
	"github.com/authflow-app/authflow/internal/config"
	"github.com/authflow-app/authflow/internal/db"
	"github.com/authflow-app/authflow/internal/http/api"
	"github.com/authflow-app/authflow/internal/mailer"
	"github.com/authflow-app/authflow/internal/ratelimit"
	"github.com/authflow-app/authflow/internal/session"
	"github.com/authflow-app/authflow/internal/store"
	"github.com/authflow-app/authflow/internal/suggest"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// tokenSweepInterval is how often expired reset and two-factor tokens are
// purged from the database.
const tokenSweepInterval = time.Hour

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer boots the authentication API server with database-backed
// components.
func RunServer(ctx context.Context, cfg config.AppConfig, defaultPort int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtConfig, errJWT := config.LoadJWTConfig(configPath)
	if errJWT != nil {
		return errJWT
	}
	authConfig, errAuth := config.LoadAuthConfig(configPath)
	if errAuth != nil {
		return errAuth
	}
	mailConfig, errMail := config.LoadMailConfig(configPath)
	if errMail != nil {
		return errMail
	}
	suggestConfig, errSuggest := config.LoadSuggestConfig(configPath)
	if errSuggest != nil {
		return errSuggest
	}

	users := store.NewUsers(conn)
	tokens := store.NewTokens(conn)

	var notifier internalauth.Notifier
	if mailConfig.APIKey != "" {
		notifier = mailer.NewResendMailer(mailConfig)
	} else {
		log.Warn("no mail API key configured, mail delivery is log-only")
		notifier = mailer.LogMailer{}
	}

	var engine internalauth.Engine
	switch authConfig.SecondFactor {
	case config.StrategyTOTP:
		engine = internalauth.NewTOTPEngine(users, "AuthFlow")
	case config.StrategyEmailCode:
		engine = internalauth.NewEmailCodeEngine(tokens, notifier, authConfig.TwoFactorTokenTTL, authConfig.TwoFactorCodeLen)
	default:
		return fmt.Errorf("app: unknown second-factor strategy %q", authConfig.SecondFactor)
	}

	sessions := session.NewIssuer(tokens, jwtConfig)
	authenticator := internalauth.New(users, tokens, engine, notifier, sessions, authConfig)
	suggestClient := suggest.NewClient(suggestConfig, conn)

	var limiter ratelimit.Limiter
	if addr := config.LoadRedisAddr(configPath); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		limiter = ratelimit.NewRedisLimiter(client, "authflow")
		log.Infof("login rate limiting backed by redis at %s", addr)
	} else {
		limiter = ratelimit.NewMemoryLimiter()
	}

	go sweepExpiredTokens(ctx, tokens)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.RegisterRoutes(router, api.Deps{
		DB:            conn,
		Users:         users,
		Authenticator: authenticator,
		Suggest:       suggestClient,
		Limiter:       limiter,
		JWT:           jwtConfig,
		Auth:          authConfig,
	})

	if defaultPort <= 0 {
		defaultPort = 8318
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", defaultPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (second factor: %s)", server.Addr, engine.Name())
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return ctx.Err()
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// sweepExpiredTokens periodically clears expired reset and two-factor
// tokens. Expiry is always enforced at read time; this keeps tables small.
func sweepExpiredTokens(ctx context.Context, tokens *store.Tokens) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := tokens.DeleteExpired(ctx, time.Now().UTC()); err != nil {
				log.WithError(err).Warn("expired token sweep failed")
			}
		}
	}
}
