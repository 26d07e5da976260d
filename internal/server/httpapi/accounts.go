package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,bytemax=72"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	link, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"userId":  link.UserID,
		"token":   link.Token,
		"message": services.MsgLoginLinkSent,
	})
}

type registerRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,bytemax=72"`
	Email    string `json:"email" binding:"required,email"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	res, err := s.accounts.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"username": res.Username,
		"email":    res.Email,
		"password": res.PasswordHash,
		"token":    res.Token,
		"message":  services.MsgOTPSent,
	})
}

type confirmRegistrationRequest struct {
	Token    string `json:"token" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	OTP      string `json:"otp" binding:"required"`
}

func (s *Server) handleConfirmRegistration(c *gin.Context) {
	var req confirmRegistrationRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	session, err := s.accounts.ConfirmRegistration(c.Request.Context(), services.ConfirmRegistrationInput{
		Token:        req.Token,
		Username:     req.Username,
		PasswordHash: req.Password,
		Email:        req.Email,
		OTP:          req.OTP,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"token":   session.Token,
		"user":    session.Username,
		"userId":  session.UserID,
		"message": services.MsgOTPVerified,
	})
}

type linkQuery struct {
	Token  string `form:"token"`
	UserID string `form:"userId"`
}

// handleLoginLink consumes the emailed sign-in link and redirects to the
// client with a session token.
func (s *Server) handleLoginLink(c *gin.Context) {
	var q linkQuery
	_ = c.ShouldBindQuery(&q)

	session, err := s.accounts.ConfirmLoginLink(c.Request.Context(), q.Token, q.UserID)
	if err != nil {
		s.linkFailed(c, err)
		return
	}

	v := url.Values{}
	v.Set("token", session.Token)
	v.Set("userId", session.UserID)
	c.Redirect(http.StatusFound, s.cfg.ClientURL+"?"+v.Encode())
}

func (s *Server) handleVerifyUser(c *gin.Context) {
	var q linkQuery
	_ = c.ShouldBindQuery(&q)

	session, err := s.accounts.ExchangeToken(c.Request.Context(), q.Token, q.UserID)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			c.JSON(http.StatusOK, gin.H{"valid": false})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "token": session.Token})
}

type forgetRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

func (s *Server) handleForget(c *gin.Context) {
	var req forgetRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	link, err := s.accounts.Forget(c.Request.Context(), req.Username, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrMailDelivery) {
			err = fmt.Errorf("%w%s", err, services.MsgSendFailedSuffix)
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"userId":  link.UserID,
		"token":   link.Token,
		"message": services.MsgResetLinkSent,
	})
}

// handleResetLink checks the emailed reset link and hands the same token to
// the client reset form.
func (s *Server) handleResetLink(c *gin.Context) {
	var q linkQuery
	_ = c.ShouldBindQuery(&q)

	if err := s.accounts.ConfirmResetLink(c.Request.Context(), q.Token, q.UserID); err != nil {
		s.linkFailed(c, err)
		return
	}

	v := url.Values{}
	v.Set("token", q.Token)
	v.Set("userId", q.UserID)
	c.Redirect(http.StatusFound, s.cfg.ClientURL+"/reset?"+v.Encode())
}

func (s *Server) linkFailed(c *gin.Context, err error) {
	if !errors.Is(err, common.ErrInvalidToken) {
		s.logger.Error(c.Request.Context(), "link verification failed", "error", err)
	}
	c.Redirect(http.StatusFound, s.cfg.ClientURL+"/timeout")
}

type verifyIdentityRequest struct {
	Email string `json:"email" binding:"required"`
}

func (s *Server) handleVerifyIdentity(c *gin.Context) {
	var req verifyIdentityRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	if err := s.accounts.VerifyIdentity(c.Request.Context(), req.Email); err != nil {
		s.logger.Warn(c.Request.Context(), "identity verification failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"valid": false, "message": services.MsgIdentityCheckFailed + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "message": services.MsgIdentityCheckSent})
}

type resetRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Password string `json:"password" binding:"required,bytemax=72"`
	Token    string `json:"token"`
}

func (s *Server) handleReset(c *gin.Context) {
	var req resetRequest
	if !bind(c, &req, binding.JSON) {
		return
	}

	if err := s.accounts.ResetPassword(c.Request.Context(), req.UserID, req.Password, req.Token); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "message": services.MsgPasswordReset})
}

type currentUserQuery struct {
	Email string `form:"email" binding:"required,email"`
}

func (s *Server) handleCurrentUser(c *gin.Context) {
	var q currentUserQuery
	if !bind(c, &q, binding.Query) {
		return
	}

	user, err := s.accounts.CurrentUser(c.Request.Context(), q.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, user)
}
