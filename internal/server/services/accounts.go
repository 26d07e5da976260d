// Package services contains server-side business logic: the registration,
// login and password reset flows built on signed verification tokens, and
// the per-user task list.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/mailer"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
)

// Messages reported to clients.
const (
	MsgInvalidCredentials  = "Please fill correct details"
	MsgLoginLinkSent       = "Please check the mfa link in your email"
	MsgUsernameTaken       = "Username already exists, please choose another username"
	MsgOTPSent             = "Please check the otp in your linked email"
	MsgResetLinkSent       = "Please click the verification link in your email"
	MsgIdentityCheckSent   = "Please check the verification link in your email"
	MsgOTPExpired          = "otp expired, please generate new otp"
	MsgOTPWrong            = "please enter correct otp"
	MsgOTPMismatch         = "please fill correct otp"
	MsgOTPVerified         = "otp verified successfully"
	MsgPasswordReset       = "password reset successfully"
	MsgResetNeedsLink      = "Please use verification link to reset password"
	MsgTaskAdded           = "added successfully"
	MsgUserNotFound        = "user not found"
	MsgSendFailedSuffix    = " error in sending request"
	MsgIdentityCheckFailed = "Please fill correct email: "
)

// Rejection is an expected negative outcome. Handlers report it as
// {valid:false, message} rather than as a fault.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string { return r.Message }

func reject(msg string) error { return &Rejection{Message: msg} }

// RegisterResult is handed back to the client, which resubmits it with the
// mailed OTP. No pending registration is kept on the server.
type RegisterResult struct {
	Username     string
	Email        string
	PasswordHash string
	Token        string
}

// ConfirmRegistrationInput is the resubmitted registration.
type ConfirmRegistrationInput struct {
	Token        string
	Username     string
	PasswordHash string
	Email        string
	OTP          string
}

// Session is an issued session credential.
type Session struct {
	Token    string
	UserID   string
	Username string
}

// LinkResult describes an emailed verification link.
type LinkResult struct {
	UserID string
	Token  string
}

// Accounts implements the registration, login-MFA and password reset flows.
type Accounts struct {
	repos  repomanager.RepositoryManager
	issuer *auth.Issuer
	otp    auth.OTPDeriver
	hasher *cryptox.Hasher
	mail   mailer.Sender
	logger logging.Logger
	cfg    *config.Config

	// compared against when the user does not exist, so both denial paths
	// do the same work
	dummyHash string
}

func NewAccounts(
	repos repomanager.RepositoryManager,
	issuer *auth.Issuer,
	otp auth.OTPDeriver,
	hasher *cryptox.Hasher,
	mail mailer.Sender,
	logger logging.Logger,
	cfg *config.Config,
) (*Accounts, error) {
	dummy, err := hasher.Hash("gatekeeper-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Accounts{
		repos:     repos,
		issuer:    issuer,
		otp:       otp,
		hasher:    hasher,
		mail:      mail,
		logger:    logger,
		cfg:       cfg,
		dummyHash: dummy,
	}, nil
}

// Register starts a registration: it hashes the password, issues a
// short-lived token for username and mails the OTP derived from it. Nothing
// is stored.
func (s *Accounts) Register(ctx context.Context, username, password, email string) (*RegisterResult, error) {
	_, err := s.repos.Users().GetByUsername(ctx, username)
	if err == nil {
		return nil, reject(MsgUsernameTaken)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(auth.Claims{Username: username, Purpose: common.PurposeRegister}, s.cfg.RegisterTokenTTL)
	if err != nil {
		return nil, err
	}

	body := "Use otp below\n\notp: " + s.otp.Derive(token)
	if err := s.mail.Send(ctx, email, body); err != nil {
		return nil, err
	}

	return &RegisterResult{Username: username, Email: email, PasswordHash: hash, Token: token}, nil
}

// ConfirmRegistration checks the OTP against the token it was derived from
// and creates the user. Only one user can ever hold a username; a repeated
// confirmation is rejected as a taken username.
func (s *Accounts) ConfirmRegistration(ctx context.Context, in ConfirmRegistrationInput) (*Session, error) {
	expected := s.otp.Derive(in.Token)

	claims, err := s.issuer.Verify(in.Token)
	if err != nil {
		if auth.EqualOTP(in.OTP, expected) {
			return nil, reject(MsgOTPExpired)
		}
		return nil, reject(MsgOTPWrong)
	}

	if claims.Purpose != common.PurposeRegister ||
		claims.Username != in.Username ||
		!auth.EqualOTP(in.OTP, expected) ||
		!cryptox.IsHash(in.PasswordHash) {
		return nil, reject(MsgOTPMismatch)
	}

	user, err := s.createRegisteredUser(ctx, in)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, reject(MsgUsernameTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return s.newSession(user)
}

// createRegisteredUser completes an email-only record created by a previous
// lookup, or creates a new user.
func (s *Accounts) createRegisteredUser(ctx context.Context, in ConfirmRegistrationInput) (*models.User, error) {
	var user *models.User
	err := s.repos.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		existing, err := r.Users.GetByEmail(ctx, in.Email)
		switch {
		case err == nil && existing.Username == "":
			if err := r.Users.Claim(ctx, existing.ID, in.Username, in.PasswordHash); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrorAlreadyExists
				}
				return err
			}
			existing.Username = in.Username
			existing.PasswordHash = in.PasswordHash
			user = existing
			return nil
		case err == nil:
			return common.ErrorAlreadyExists
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		user, err = r.Users.Create(ctx, &models.User{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: in.PasswordHash,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and mails a short-lived sign-in link. Unknown
// usernames and wrong passwords get the same rejection.
func (s *Accounts) Login(ctx context.Context, username, password string) (*LinkResult, error) {
	user, err := s.repos.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Compare(s.dummyHash, password)
			return nil, reject(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.HasPassword() {
		s.hasher.Compare(s.dummyHash, password)
		return nil, reject(MsgInvalidCredentials)
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, reject(MsgInvalidCredentials)
	}

	token, err := s.issuer.Issue(auth.Claims{UserID: user.ID, Purpose: common.PurposeLogin}, s.cfg.LoginTokenTTL)
	if err != nil {
		return nil, err
	}

	link := s.link("/verify-mfa", token, user.ID)
	if err := s.mail.Send(ctx, user.Email, "Please click this link to log in to your account "+link); err != nil {
		return nil, err
	}

	return &LinkResult{UserID: user.ID, Token: token}, nil
}

// ConfirmLoginLink consumes a clicked sign-in link and mints the session.
// Any problem with the link yields common.ErrInvalidToken.
func (s *Accounts) ConfirmLoginLink(ctx context.Context, token, userID string) (*Session, error) {
	user, err := s.userForLink(ctx, token, userID, common.PurposeLogin)
	if err != nil {
		return nil, err
	}
	return s.newSession(user)
}

// ExchangeToken trades a still valid sign-in or session token for a fresh
// session token without a redirect.
func (s *Accounts) ExchangeToken(ctx context.Context, token, userID string) (*Session, error) {
	user, err := s.userForLink(ctx, token, userID, common.PurposeLogin, common.PurposeSession)
	if err != nil {
		return nil, err
	}
	return s.newSession(user)
}

// Forget mails a password reset link when username and email belong to the
// same user.
func (s *Accounts) Forget(ctx context.Context, username, email string) (*LinkResult, error) {
	user, err := s.repos.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, reject(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.Email != email {
		return nil, reject(MsgInvalidCredentials)
	}

	token, err := s.issuer.Issue(auth.Claims{UserID: user.ID, Purpose: common.PurposeReset}, s.cfg.ResetTokenTTL)
	if err != nil {
		return nil, err
	}

	link := s.link("/verify-email", token, user.ID)
	if err := s.mail.Send(ctx, user.Email, "Please click this link to reset your password "+link); err != nil {
		return nil, err
	}

	return &LinkResult{UserID: user.ID, Token: token}, nil
}

// ConfirmResetLink checks a clicked reset link. The same token is passed on
// to the reset form.
func (s *Accounts) ConfirmResetLink(ctx context.Context, token, userID string) error {
	_, err := s.userForLink(ctx, token, userID, common.PurposeReset)
	return err
}

// ResetPassword stores a new password for userID. When the server requires
// it, resetToken must be a valid reset token for the same user.
func (s *Accounts) ResetPassword(ctx context.Context, userID, password, resetToken string) error {
	users := s.repos.Users()

	if _, err := users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return reject(MsgResetNeedsLink)
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if s.cfg.ResetRequireToken {
		claims, err := s.issuer.Verify(resetToken)
		if err != nil || claims.Purpose != common.PurposeReset || claims.UserID != userID {
			return reject(MsgResetNeedsLink)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return reject(MsgResetNeedsLink)
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info(ctx, "password reset", "user_id", userID)
	return nil
}

// VerifyIdentity asks the mail provider to verify email as a recipient.
func (s *Accounts) VerifyIdentity(ctx context.Context, email string) error {
	return s.mail.VerifyIdentity(ctx, email)
}

// CurrentUser returns the user with email, creating an email-only record on
// first lookup. Tasks holds the ids of the user's tasks.
func (s *Accounts) CurrentUser(ctx context.Context, email string) (*models.User, error) {
	users := s.repos.Users()

	user, err := users.GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		user, err = users.Create(ctx, &models.User{Email: email})
		if errors.Is(err, common.ErrorAlreadyExists) {
			// created concurrently
			user, err = users.GetByEmail(ctx, email)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	list, err := s.repos.Tasks().ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	user.Tasks = make([]string, 0, len(list))
	for _, t := range list {
		user.Tasks = append(user.Tasks, t.ID)
	}
	return user, nil
}

// userForLink verifies token, its purpose and that it was issued for userID,
// and loads the user.
func (s *Accounts) userForLink(ctx context.Context, token, userID string, purposes ...string) (*models.User, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.UserID != userID || !slices.Contains(purposes, claims.Purpose) {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repos.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *Accounts) newSession(user *models.User) (*Session, error) {
	token, err := s.issuer.Issue(auth.Claims{UserID: user.ID, Purpose: common.PurposeSession}, s.cfg.SessionTokenTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, UserID: user.ID, Username: user.Username}, nil
}

func (s *Accounts) link(path, token, userID string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("userId", userID)
	return s.cfg.PublicAPIURL + path + "?" + q.Encode()
}

