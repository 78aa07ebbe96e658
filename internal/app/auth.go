package app

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"mcq-quiz-service/internal/domain"
)

// Authenticator performs the single admin credential check. When a bcrypt
// hash is configured it wins over the plain password.
type Authenticator struct {
	username     string
	password     string
	passwordHash []byte
}

func NewAuthenticator(username, password, passwordHash string) *Authenticator {
	a := &Authenticator{username: username, password: password}
	if passwordHash != "" {
		a.passwordHash = []byte(passwordHash)
	}
	return a
}

// Check returns domain.ErrInvalidCredentials unless creds match.
func (a *Authenticator) Check(creds domain.Credentials) error {
	if a.username == "" || creds.Username == "" {
		return domain.ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(a.username)) == 1

	var passOK bool
	if a.passwordHash != nil {
		passOK = bcrypt.CompareHashAndPassword(a.passwordHash, []byte(creds.Password)) == nil
	} else {
		passOK = a.password != "" && subtle.ConstantTimeCompare([]byte(creds.Password), []byte(a.password)) == 1
	}
	if !userOK || !passOK {
		return domain.ErrInvalidCredentials
	}
	return nil
}
