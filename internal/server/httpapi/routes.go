package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	// forwarding headers are only believed from configured proxies; an empty
	// list makes ClientIP the socket peer
	if err := r.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		s.logger.Error(context.Background(), "invalid trusted proxies, ignoring forwarding headers", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(s.requestID, s.requestLogger, s.recovery(), s.errorHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	})

	r.GET("/healthz", s.handleHealth)

	r.POST("/login", s.rateLimited, s.handleLogin)
	r.POST("/register", s.rateLimited, s.handleRegister)
	r.POST("/verify-mfa", s.rateLimited, s.authenticated, s.handleConfirmRegistration)
	r.GET("/verify-mfa", s.handleLoginLink)
	r.GET("/verify-user", s.handleVerifyUser)

	r.POST("/forget", s.rateLimited, s.handleForget)
	r.GET("/verify-email", s.handleResetLink)
	r.POST("/verify-email", s.rateLimited, s.handleVerifyIdentity)
	r.POST("/reset", s.rateLimited, s.authenticated, s.handleReset)

	r.POST("/task", s.authenticated, s.handleCreateTask)
	r.GET("/tasks", s.authenticated, s.handleListTasks)
	r.GET("/current-user", s.authenticated, s.handleCurrentUser)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.storage.Ping(c.Request.Context()); err != nil {
		s.logger.Warn(c.Request.Context(), "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
