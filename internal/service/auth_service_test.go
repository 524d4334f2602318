package service

import (
	"errors"
	"testing"
	"time"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	auth := NewAuthService("secret", "exam-prep")
	token, err := auth.GenerateToken(42, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user_id = %d, want 42", claims.UserID)
	}
}

func TestAuthServiceRejects(t *testing.T) {
	auth := NewAuthService("secret", "exam-prep")

	expired, _ := auth.GenerateToken(1, -time.Minute)
	if _, err := auth.ValidateToken(expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired err = %v, want ErrTokenExpired", err)
	}

	foreign, _ := NewAuthService("other", "exam-prep").GenerateToken(1, time.Minute)
	if _, err := auth.ValidateToken(foreign); err == nil {
		t.Fatal("token signed with another secret accepted")
	}

	wrongIssuer, _ := NewAuthService("secret", "someone-else").GenerateToken(1, time.Minute)
	if _, err := auth.ValidateToken(wrongIssuer); err == nil {
		t.Fatal("token from another issuer accepted")
	}

	noUser, _ := auth.GenerateToken(0, time.Minute)
	if _, err := auth.ValidateToken(noUser); err == nil {
		t.Fatal("token without user accepted")
	}

	if _, err := auth.ValidateToken("garbage"); err == nil {
		t.Fatal("garbage token accepted")
	}
}
