package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	sessions, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("create redis store: %v", err)
	}
	return sessions, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	sessions, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer sessions.Close()

	if err := sessions.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	ctx := context.Background()
	if err := sessions.SaveRefreshSession(ctx, "hash-1", "u_123", time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession: %v", err)
	}

	user, err := sessions.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupRefreshSession: %v", err)
	}
	if user.ID != "u_123" {
		t.Errorf("user ID = %s, want u_123", user.ID)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	ctx := context.Background()
	if err := sessions.SaveRefreshSession(ctx, "hash-exp", "u_456", time.Now().Add(time.Millisecond)); err != nil {
		t.Fatalf("SaveRefreshSession: %v", err)
	}

	s.FastForward(2 * time.Millisecond)

	if _, err := sessions.LookupRefreshSession(ctx, "hash-exp"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestLookupNonExistentSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	if _, err := sessions.LookupRefreshSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	ctx := context.Background()
	if err := sessions.SaveRefreshSession(ctx, "hash-rev", "u_789", time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession: %v", err)
	}
	if _, err := sessions.LookupRefreshSession(ctx, "hash-rev"); err != nil {
		t.Fatalf("lookup before revoke: %v", err)
	}

	if err := sessions.RevokeRefreshSession(ctx, "hash-rev"); err != nil {
		t.Fatalf("RevokeRefreshSession: %v", err)
	}
	if _, err := sessions.LookupRefreshSession(ctx, "hash-rev"); err == nil {
		t.Error("expected error after revoke, got nil")
	}
}

func TestRevokeNonExistentSession(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	if err := sessions.RevokeRefreshSession(context.Background(), "missing"); err != nil {
		t.Errorf("RevokeRefreshSession for missing token: %v", err)
	}
}

func TestAccessTokenRevocation(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	ctx := context.Background()
	revoked, err := sessions.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsAccessTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("fresh jti should not be revoked")
	}

	if err := sessions.RevokeAccessToken(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeAccessToken: %v", err)
	}
	revoked, err = sessions.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsAccessTokenRevoked: %v", err)
	}
	if !revoked {
		t.Error("jti should be revoked")
	}

	s.FastForward(2 * time.Hour)
	revoked, err = sessions.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsAccessTokenRevoked after expiry: %v", err)
	}
	if revoked {
		t.Error("revocation should lapse with the token's own expiry")
	}
}

func TestRevokeAlreadyExpiredAccessTokenIsNoop(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	if err := sessions.RevokeAccessToken(context.Background(), "jti-old", time.Now().Add(-time.Minute)); err != nil {
		t.Errorf("RevokeAccessToken for expired token: %v", err)
	}
}

func TestSessionIsolation(t *testing.T) {
	sessions, s := setupTestRedis(t)
	defer sessions.Close()
	defer s.Close()

	ctx := context.Background()
	expiresAt := time.Now().Add(24 * time.Hour)

	if err := sessions.SaveRefreshSession(ctx, "token-1", "user-1", expiresAt); err != nil {
		t.Fatalf("save token-1: %v", err)
	}
	if err := sessions.SaveRefreshSession(ctx, "token-2", "user-2", expiresAt); err != nil {
		t.Fatalf("save token-2: %v", err)
	}

	if err := sessions.RevokeRefreshSession(ctx, "token-1"); err != nil {
		t.Fatalf("revoke token-1: %v", err)
	}

	if _, err := sessions.LookupRefreshSession(ctx, "token-1"); err == nil {
		t.Error("token-1 should be gone")
	}
	user, err := sessions.LookupRefreshSession(ctx, "token-2")
	if err != nil {
		t.Fatalf("lookup token-2: %v", err)
	}
	if user.ID != "user-2" {
		t.Errorf("user = %s, want user-2", user.ID)
	}
}
