// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/quill/internal/platform/cache"
	"github.com/taibuivan/quill/internal/platform/notify"
	"github.com/taibuivan/quill/internal/platform/oauth"
	"github.com/taibuivan/quill/internal/platform/sec"
	"github.com/taibuivan/quill/internal/users/account"
	"github.com/taibuivan/quill/internal/users/account/accounttest"
	"github.com/taibuivan/quill/internal/users/auth"
)

const fixturePassword = "Str0ng!pass"

var fixtureTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// rsaKey is shared by every test in the package; key generation is slow.
var rsaKey = sync.OnceValue(func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
})

// fixtureHash is computed once; bcrypt is deliberately slow.
var fixtureHash = sync.OnceValue(func() string {
	hash, err := sec.HashPassword(fixturePassword)
	if err != nil {
		panic(err)
	}
	return hash
})

// # Fakes

type recordingMailer struct {
	mu     sync.Mutex
	emails []notify.Email
	err    error
}

func (mailer *recordingMailer) SendEmail(_ context.Context, email notify.Email) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if mailer.err != nil {
		return mailer.err
	}
	mailer.emails = append(mailer.emails, email)
	return nil
}

func (mailer *recordingMailer) last(t *testing.T) notify.Email {
	t.Helper()
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	require.NotEmpty(t, mailer.emails, "no email sent")
	return mailer.emails[len(mailer.emails)-1]
}

func (mailer *recordingMailer) count() int {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	return len(mailer.emails)
}

type sms struct {
	to   string
	body string
}

type recordingSMS struct {
	mu       sync.Mutex
	messages []sms
	err      error
}

func (sender *recordingSMS) SendSMS(_ context.Context, to, body string) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.err != nil {
		return sender.err
	}
	sender.messages = append(sender.messages, sms{to: to, body: body})
	return nil
}

type stubSocial struct {
	user *oauth.ExternalUser
	err  error
}

func (social *stubSocial) Exchange(_ context.Context, _, _ string) (*oauth.ExternalUser, error) {
	return social.user, social.err
}

type memoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{entries: make(map[string]time.Time)}
}

func (repository *memoryRevocations) Revoke(_ context.Context, jti, _ string, expiresAt time.Time) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	if _, ok := repository.entries[jti]; ok {
		return false, nil
	}
	repository.entries[jti] = expiresAt
	return true, nil
}

func (repository *memoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	_, ok := repository.entries[jti]
	return ok, nil
}

func (repository *memoryRevocations) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()
	var removed int64
	for jti, expiresAt := range repository.entries {
		if expiresAt.Before(before) {
			delete(repository.entries, jti)
			removed++
		}
	}
	return removed, nil
}

// # Harness

type harness struct {
	service     *auth.Service
	accounts    *accounttest.MemoryRepository
	revocations *memoryRevocations
	sessions    *auth.OTPSessionStore
	sealer      *sec.Sealer
	tokens      *sec.TokenService
	mailer      *recordingMailer
	sms         *recordingSMS
	social      *stubSocial
	clock       *clockwork.FakeClock
	redis       *miniredis.Miniredis
}

var testPolicy = auth.Policy{
	MaxLoginFailures: 5,
	FailureWindow:    10 * time.Minute,
	AccessTokenTTL:   15 * time.Minute,
	RefreshTokenTTL:  24 * time.Hour,
	FrontendURL:      "https://quill.test",
}

func newHarness(t *testing.T, seed ...*account.Account) *harness {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sealer, err := sec.NewSealer("test-cache-key")
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(fixtureTime)
	key := rsaKey()

	h := &harness{
		accounts:    accounttest.NewMemoryRepository(seed...),
		revocations: newMemoryRevocations(),
		sessions:    auth.NewOTPSessionStore(cache.New(client)),
		sealer:      sealer,
		tokens:      sec.NewTokenServiceFromKey(key, &key.PublicKey, "quill.test", clock),
		mailer:      &recordingMailer{},
		sms:         &recordingSMS{},
		social:      &stubSocial{},
		clock:       clock,
		redis:       server,
	}

	h.service = auth.NewService(auth.Dependencies{
		Accounts:    h.accounts,
		Revocations: h.revocations,
		Sessions:    h.sessions,
		Tokens:      h.tokens,
		Links:       sec.NewLinkSigner("test-link-secret", 24*time.Hour),
		Sealer:      sealer,
		Mailer:      h.mailer,
		SMS:         h.sms,
		Social:      h.social,
		Clock:       clock,
		Logger:      discardLogger(),
	}, testPolicy)

	return h
}

// newMember returns a verified, active email account with the fixture password.
func newMember(email string, role sec.UserRole) *account.Account {
	return account.NewAccount(account.NewAccountInput{
		Email:        email,
		PasswordHash: fixtureHash(),
		Role:         role,
		Verified:     true,
	}, fixtureTime)
}

var (
	otpPattern  = regexp.MustCompile(`\b\d{6}\b`)
	linkPattern = regexp.MustCompile(`token=(\S+)`)
)

// codeFrom extracts the six-digit code from a message body.
func codeFrom(t *testing.T, body string) string {
	t.Helper()
	code := otpPattern.FindString(body)
	require.NotEmpty(t, code, "no code in %q", body)
	return code
}

// tokenFrom extracts the signed token from a link in an email body.
func tokenFrom(t *testing.T, body string) string {
	t.Helper()
	match := linkPattern.FindStringSubmatch(body)
	require.Len(t, match, 2, "no link in %q", body)
	token, err := url.QueryUnescape(match[1])
	require.NoError(t, err)
	return token
}

var errDown = errors.New("upstream unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
