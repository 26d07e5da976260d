// Package server wires the storage backend, mail provider, rate limiter and
// services together and runs the HTTP API until the process is signalled.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/gatekeeper/internal/server/mailer"
	"github.com/dmitrijs2005/gatekeeper/internal/server/ratelimit"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/redis/go-redis/v9"
)

// openRepositories is a seam for tests.
var openRepositories = repomanager.Open

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	redis  *redis.Client
	http   *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.Env, os.Stdout)
	if err != nil {
		return nil, err
	}

	repos, err := openRepositories(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := repos.RunMigrations(ctx); err != nil {
		_ = repos.Close(ctx)
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app := &App{config: c, logger: logger, repos: repos}

	mail, err := app.newMailer(ctx)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	issuer := auth.NewIssuer(c.SecretKey)
	otp, err := auth.NewOTPDeriver(c.OTPMode, c.SecretKey)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	hasher := cryptox.NewHasher(c.BcryptCost)

	accounts, err := services.NewAccounts(repos, issuer, otp, hasher, mail, logger.With("module", "accounts"), c)
	if err != nil {
		app.close(ctx)
		return nil, err
	}

	app.http = httpapi.NewServer(httpapi.Deps{
		Accounts: accounts,
		Tasks:    services.NewTasks(repos),
		Issuer:   issuer,
		Limiter:  app.newLimiter(ctx),
		Storage:  repos,
		Logger:   logger,
		Config:   c,
	})

	return app, nil
}

func (app *App) newMailer(ctx context.Context) (mailer.Sender, error) {
	if app.config.Mail.Region == "" {
		app.logger.Warn(ctx, "no mail region configured, outgoing mail is only logged")
		return mailer.NewLogMailer(app.logger.With("module", "mailer")), nil
	}
	m, err := mailer.NewSESMailer(ctx, app.config.Mail)
	if err != nil {
		return nil, fmt.Errorf("mailer init error: %w", err)
	}
	return m, nil
}

func (app *App) newLimiter(ctx context.Context) ratelimit.Limiter {
	rc := app.config.Redis
	if rc.Addr == "" {
		app.logger.Info(ctx, "rate limiting disabled")
		return ratelimit.Noop{}
	}
	app.redis = redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	if err := app.redis.Ping(ctx).Err(); err != nil {
		app.logger.Warn(ctx, "redis not reachable, attempts are let through until it is", "error", err)
	}
	return ratelimit.NewRedisLimiter(app.redis, app.config.RateLimit.Limit, app.config.RateLimit.Window)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the storage and redis connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.WithoutCancel(ctx))
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close", "error", err)
		}
	}
	if err := app.repos.Close(ctx); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
}
