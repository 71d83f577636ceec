package service

import (
	"errors"
	"testing"

	"github.com/dujiao-next/foodcart/internal/config"
)

func TestUserTokenRoundTrip(t *testing.T) {
	svc := NewUserTokenService(config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1})

	token, expiresAt, err := svc.GenerateUserJWT(42, 0)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if expiresAt.IsZero() {
		t.Fatalf("expiry should be set")
	}
	claims, err := svc.ParseUserJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("unexpected user id %d", claims.UserID)
	}
}

func TestUserTokenRejectsForeignSignature(t *testing.T) {
	issuer := NewUserTokenService(config.JWTConfig{SecretKey: "secret-a"})
	verifier := NewUserTokenService(config.JWTConfig{SecretKey: "secret-b"})

	token, _, err := issuer.GenerateUserJWT(1, 1)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if _, err := verifier.ParseUserJWT(token); !errors.Is(err, ErrUserTokenInvalid) {
		t.Fatalf("want ErrUserTokenInvalid got %v", err)
	}
	if _, err := verifier.ParseUserJWT("not-a-token"); !errors.Is(err, ErrUserTokenInvalid) {
		t.Fatalf("want ErrUserTokenInvalid got %v", err)
	}
}

func TestUserTokenRequiresSecret(t *testing.T) {
	svc := NewUserTokenService(config.JWTConfig{})
	if _, _, err := svc.GenerateUserJWT(1, 1); !errors.Is(err, ErrJWTSecretMissing) {
		t.Fatalf("want ErrJWTSecretMissing got %v", err)
	}
	if _, err := svc.ParseUserJWT("x"); !errors.Is(err, ErrJWTSecretMissing) {
		t.Fatalf("want ErrJWTSecretMissing got %v", err)
	}
}
