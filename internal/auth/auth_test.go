package auth

import (
	"testing"
	"time"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2" {
		t.Fatalf("hash must not equal the password")
	}
	if !CheckPassword(hash, "hunter2") {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword(hash, "hunter3") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := SignSessionToken(42, "01SESSIONID", "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := ParseSessionToken(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.SessionID != "01SESSIONID" {
		t.Fatalf("unexpected claims: uid=%d sid=%q", claims.UserID, claims.SessionID)
	}
}

func TestSessionTokenWrongSecret(t *testing.T) {
	token, err := SignSessionToken(42, "01SESSIONID", "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseSessionToken(token, "other-secret"); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestSessionTokenExpired(t *testing.T) {
	token, err := SignSessionToken(42, "01SESSIONID", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseSessionToken(token, "secret"); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}
