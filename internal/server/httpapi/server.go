// Package httpapi exposes the account flows and the task list over HTTP/JSON
// using gin.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/ratelimit"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Accounts *services.Accounts
	Tasks    *services.Tasks
	Issuer   *auth.Issuer
	Limiter  ratelimit.Limiter
	Storage  Pinger
	Logger   logging.Logger
	Config   *config.Config
}

type Server struct {
	accounts *services.Accounts
	tasks    *services.Tasks
	issuer   *auth.Issuer
	limiter  ratelimit.Limiter
	storage  Pinger
	logger   logging.Logger
	cfg      *config.Config

	router *gin.Engine
}

func NewServer(d Deps) *Server {
	if d.Config.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	limiter := d.Limiter
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}

	s := &Server{
		accounts: d.Accounts,
		tasks:    d.Tasks,
		issuer:   d.Issuer,
		limiter:  limiter,
		storage:  d.Storage,
		logger:   d.Logger.With("module", "http_server"),
		cfg:      d.Config,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
// within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-done
}
