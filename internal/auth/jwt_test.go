package auth

import (
	"context"
	"testing"
	"time"

	"prepaid-telecom/internal/config"
)

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, "770000001", "subscriber")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected token strings")
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.SubjectID != "770000001" || claims.Role != "subscriber" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, err := m.IssuePair(time.Now(), "admin", "manager")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.RefreshToken, TokenTypeAccess, time.Now()); err == nil {
		t.Fatalf("expected token_type mismatch")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	now := time.Unix(1700000000, 0).UTC()
	p, err := m.IssuePair(now, "admin", "manager")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now.Add(2*time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerifyEnforcesIssuerAndLeeway(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "api", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	now := time.Unix(1700000000, 0).UTC()
	p, err := m.IssuePair(now, "admin", "manager")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "someone-else", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if _, err := other.Verify(p.AccessToken, TokenTypeAccess, now); err == nil {
		t.Fatalf("expected issuer mismatch")
	}

	// Just past expiry but inside the 30s skew allowance still verifies.
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, now.Add(time.Minute+10*time.Second)); err != nil {
		t.Fatalf("expected skew tolerance, got %v", err)
	}
}

func TestAttemptLimiterLocksAfterMaxFailures(t *testing.T) {
	l := NewAttemptLimiter(NewMemoryAttemptStore(), 3, time.Minute)
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		remaining, err := l.RecordFailure(ctx, "770000001")
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if remaining != want {
			t.Fatalf("expected %d remaining, got %d", want, remaining)
		}
	}

	locked, err := l.Locked(ctx, "770000001")
	if err != nil {
		t.Fatalf("locked: %v", err)
	}
	if !locked {
		t.Fatalf("expected lockout after 3 failures")
	}

	if err := l.Reset(ctx, "770000001"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	locked, _ = l.Locked(ctx, "770000001")
	if locked {
		t.Fatalf("expected unlock after reset")
	}
}
