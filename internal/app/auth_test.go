package app_test

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
)

func TestAuthenticatorPlainPassword(t *testing.T) {
	auth := app.NewAuthenticator("admin", "secret", "")

	if err := auth.Check(domain.Credentials{Username: "admin", Password: "secret"}); err != nil {
		t.Fatalf("expected valid credentials, got %v", err)
	}
	for _, creds := range []domain.Credentials{
		{Username: "admin", Password: "wrong"},
		{Username: "root", Password: "secret"},
		{},
	} {
		if err := auth.Check(creds); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected %+v rejected, got %v", creds, err)
		}
	}
}

func TestAuthenticatorBcryptHashWins(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	auth := app.NewAuthenticator("admin", "plain", string(hash))

	if err := auth.Check(domain.Credentials{Username: "admin", Password: "hashed-secret"}); err != nil {
		t.Fatalf("expected hash match, got %v", err)
	}
	if err := auth.Check(domain.Credentials{Username: "admin", Password: "plain"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected plain password ignored when a hash is set, got %v", err)
	}
}

func TestAuthenticatorWithoutConfiguredPasswordRejects(t *testing.T) {
	auth := app.NewAuthenticator("admin", "", "")
	if err := auth.Check(domain.Credentials{Username: "admin"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected rejection, got %v", err)
	}
}
