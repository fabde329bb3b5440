package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestNewTokenServiceRequiresDistinctSecrets(t *testing.T) {
	if _, err := NewTokenService(TokenConfig{AccessSecret: "a"}); err == nil {
		t.Fatal("expected error for missing refresh secret")
	}
	if _, err := NewTokenService(TokenConfig{AccessSecret: "same", RefreshSecret: "same"}); err == nil {
		t.Fatal("expected error for shared secret")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)
	token, err := svc.IssueAccessToken("64b7f0c2a1b2c3d4e5f60718", "admin")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.UserID != "64b7f0c2a1b2c3d4e5f60718" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 15*time.Minute {
		t.Fatalf("expected 15m lifetime, got %v", got)
	}
}

func TestAccessAndRefreshSecretsAreNotInterchangeable(t *testing.T) {
	svc := newTestTokenService(t)
	refresh, _, err := svc.IssueRefreshToken("u1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if _, err := svc.VerifyAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access token: %v", err)
	}

	access, err := svc.IssueAccessToken("u1", "user")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := svc.VerifyRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
}

func TestRefreshTokenExpiry(t *testing.T) {
	now := time.Now()
	svc := newTestTokenService(t).WithClock(func() time.Time { return now })

	token, expiresAt, err := svc.IssueRefreshToken("u1")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if !expiresAt.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	claims, err := svc.VerifyRefreshToken(token)
	if err != nil || claims.UserID != "u1" {
		t.Fatalf("VerifyRefreshToken: %+v %v", claims, err)
	}

	now = now.Add(8 * 24 * time.Hour)
	if _, err := svc.VerifyRefreshToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	svc := newTestTokenService(t)
	first, _, _ := svc.IssueRefreshToken("u1")
	second, _, _ := svc.IssueRefreshToken("u1")
	if first == second {
		t.Fatal("expected distinct refresh tokens")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t)
	for _, raw := range []string{"", "abc", "a.b.c"} {
		if _, err := svc.VerifyAccessToken(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}
