package services

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"

	"foodhub/internal/apperr"
	"foodhub/internal/auth"
	"foodhub/internal/mailer"
	"foodhub/internal/store/memstore"
)

var fastArgon2 = &argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mailer.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// lastToken pulls the token query parameter out of the last mailed link.
func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		t.Fatal("no mail sent")
	}
	text := m.messages[len(m.messages)-1].Text
	start := strings.Index(text, "http")
	if start < 0 {
		t.Fatalf("no link in mail: %q", text)
	}
	link := strings.TrimSpace(text[start:])
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	return u.Query().Get("token")
}

type authFixture struct {
	store  *memstore.Store
	tokens *auth.TokenService
	svc    *AuthService
	clock  *testClock
	mail   *recordingMailer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := newTestClock()
	tokens, err := auth.NewTokenService(auth.TokenConfig{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	tokens.WithClock(clock.Now)

	st := memstore.New()
	mail := &recordingMailer{}
	svc := NewAuthService(st, tokens, auth.NewArgon2Hasher(fastArgon2), mail, AuthConfig{
		PublicBaseURL: "http://localhost:8080",
	}).WithClock(clock.Now)

	return &authFixture{store: st, tokens: tokens, svc: svc, clock: clock, mail: mail}
}

func (f *authFixture) register(t *testing.T, name, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return res
}

func expectKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %v, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected kind %v, got %v (%v)", kind, got, err)
	}
}
