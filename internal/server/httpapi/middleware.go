package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	claimsCtxKey = "claims"
	bodyCtxKey   = "raw_body"

	maxLoggedBody = 4 << 10
)

// requestID echoes X-Request-ID or generates one, and stores it in the
// request context for the logger.
func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(common.RequestIDHeaderName)
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	c.Header(common.RequestIDHeaderName, id)
	c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
	c.Next()
}

func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()

	if c.Request.Body != nil {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody+1))
		if err == nil {
			rest := c.Request.Body
			c.Request.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(body), rest), rest}
			c.Set(bodyCtxKey, body)
		}
	}

	c.Next()

	s.logger.Info(c.Request.Context(), "request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"latency", time.Since(start).String(),
		"client_ip", c.ClientIP(),
	)
}

// errorHandler turns errors pushed with c.Error into responses. Unexpected
// failures are logged with the request and answered with 500.
func (s *Server) errorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors.Last().Err

	code, body := statusFor(err)
	if body != nil {
		c.JSON(code, body)
		return
	}

	s.logFault(c, err, nil)
	c.JSON(http.StatusInternalServerError, gin.H{"message": s.publicMessage(err)})
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		s.logFault(c, nil, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": msgInternal})
	})
}

func (s *Server) logFault(c *gin.Context, err error, recovered any) {
	args := []any{
		"method", c.Request.Method,
		"url", c.Request.URL.String(),
		"headers", redactedHeaders(c.Request.Header),
	}
	if !s.cfg.IsProduction() {
		if body, ok := c.Get(bodyCtxKey); ok {
			args = append(args, "body", string(body.([]byte)))
		}
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	if recovered != nil {
		args = append(args, "panic", recovered, "stack", string(debug.Stack()))
	}
	s.logger.Error(c.Request.Context(), "request failed", args...)
}

// publicMessage hides error detail in production.
func (s *Server) publicMessage(err error) string {
	if s.cfg.IsProduction() {
		return msgInternal
	}
	return err.Error()
}

func redactedHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if strings.EqualFold(k, common.AuthorizationHeaderName) || strings.EqualFold(k, "Cookie") {
			out[k] = "[redacted]"
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// authenticated requires a valid bearer token and stores its claims.
func (s *Server) authenticated(c *gin.Context) {
	ctx := c.Request.Context()

	header := c.GetHeader(common.AuthorizationHeaderName)
	if header == "" {
		s.logger.Debug(ctx, "authorization header required")
		abort(c, newAPIError(http.StatusUnauthorized, msgNotAuthenticated))
		return
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		s.logger.Debug(ctx, "invalid authorization header")
		abort(c, newAPIError(http.StatusUnauthorized, msgAuthFailed))
		return
	}

	claims, err := s.issuer.Verify(strings.TrimSpace(token))
	if err != nil {
		s.logger.Debug(ctx, "token rejected", "error", err)
		abort(c, newAPIError(http.StatusUnauthorized, msgAuthFailed))
		return
	}

	c.Set(claimsCtxKey, claims)
	c.Next()
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsCtxKey)
	if !ok {
		return &auth.Claims{}
	}
	claims, _ := v.(*auth.Claims)
	if claims == nil {
		return &auth.Claims{}
	}
	return claims
}

// rateLimited counts attempts per route and client address. When the
// limiter store is down attempts are let through.
func (s *Server) rateLimited(c *gin.Context) {
	key := c.FullPath() + ":" + c.ClientIP()

	err := s.limiter.Allow(c.Request.Context(), key)
	switch {
	case err == nil:
		c.Next()
	case errors.Is(err, common.ErrRateLimited):
		s.logger.Warn(c.Request.Context(), "rate limit exceeded", "key", key)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"valid": false, "message": msgTooManyAttempts})
	case errors.Is(err, ratelimit.ErrUnavailable):
		s.logger.Error(c.Request.Context(), "rate limiter unavailable", "error", err)
		c.Next()
	default:
		_ = c.Error(err)
		c.Abort()
	}
}
