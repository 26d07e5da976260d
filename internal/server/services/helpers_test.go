package services

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/cryptox"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/auth"
	"github.com/dmitrijs2005/gatekeeper/internal/server/config"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	To   string
	Body string
}

type fakeMailer struct {
	mu        sync.Mutex
	sent      []sentMail
	verified  []string
	err       error
	verifyErr error
}

func (f *fakeMailer) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Body: body})
	return nil
}

func (f *fakeMailer) VerifyIdentity(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.verified = append(f.verified, email)
	return nil
}

func (f *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail sent")
	return f.sent[len(f.sent)-1]
}

// linkParams extracts the query of the link at the end of a mail body.
func linkParams(t *testing.T, body string) (path string, q url.Values) {
	t.Helper()
	i := strings.Index(body, "http")
	require.GreaterOrEqual(t, i, 0, "no link in %q", body)
	u, err := url.Parse(body[i:])
	require.NoError(t, err)
	return u.Path, u.Query()
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	cfg      *config.Config
	repos    *repomanager.MemoryRepositoryManager
	mail     *fakeMailer
	clock    *clock
	issuer   *auth.Issuer
	accounts *Accounts
	tasks    *Tasks
	admin    *Admin
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.DatabaseDSN = "memory://"
	cfg.PublicAPIURL = "http://api.test/api"
	for _, m := range mutate {
		m(cfg)
	}

	logger, err := logging.New(logging.BackendZerolog, config.EnvProd, io.Discard)
	require.NoError(t, err)

	clk := &clock{now: time.Now()}
	issuer := auth.NewIssuer(cfg.SecretKey, auth.WithClock(clk.Now))
	otp, err := auth.NewOTPDeriver(cfg.OTPMode, cfg.SecretKey)
	require.NoError(t, err)

	repos := repomanager.NewMemoryRepositoryManager()
	mail := &fakeMailer{}
	hasher := cryptox.NewHasher(cfg.BcryptCost)

	accounts, err := NewAccounts(repos, issuer, otp, hasher, mail, logger, cfg)
	require.NoError(t, err)

	return &fixture{
		cfg:      cfg,
		repos:    repos,
		mail:     mail,
		clock:    clk,
		issuer:   issuer,
		accounts: accounts,
		tasks:    NewTasks(repos),
		admin:    NewAdmin(repos, hasher, logger),
	}
}

// registered runs the full registration flow and returns the session.
func (f *fixture) registered(t *testing.T, username, password, email string) *Session {
	t.Helper()
	ctx := context.Background()

	res, err := f.accounts.Register(ctx, username, password, email)
	require.NoError(t, err)

	otp := strings.TrimPrefix(f.mail.last(t).Body, "Use otp below\n\notp: ")
	s, err := f.accounts.ConfirmRegistration(ctx, ConfirmRegistrationInput{
		Token:        res.Token,
		Username:     res.Username,
		PasswordHash: res.PasswordHash,
		Email:        res.Email,
		OTP:          otp,
	})
	require.NoError(t, err)
	return s
}

func requireRejection(t *testing.T, err error, msg string) {
	t.Helper()
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	require.Equal(t, msg, rej.Message)
}
