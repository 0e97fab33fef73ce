package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role the application issues.
const RoleAdmin = "Admin"

// ErrInvalidCredentials is returned for any failed login, whichever field was wrong.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Identity is what a session asserts about the signed-in operator.
type Identity struct {
	Name  string
	Email string
	Role  string
}

// Verifier checks a credential pair and resolves the identity behind it.
type Verifier interface {
	Verify(ctx context.Context, email, password string) (Identity, error)
}

// StaticVerifier accepts exactly one configured credential.
type StaticVerifier struct {
	email string
	name  string
	hash  []byte
}

// NewStaticVerifier hashes password once so Verify never compares plaintext.
func NewStaticVerifier(email, password, name string) (*StaticVerifier, error) {
	return newStaticVerifier(email, password, name, bcrypt.DefaultCost)
}

func newStaticVerifier(email, password, name string, cost int) (*StaticVerifier, error) {
	if email == "" || password == "" {
		return nil, errors.New("auth: demo email and password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to hash demo password: %w", err)
	}
	if name == "" {
		name = RoleAdmin
	}
	return &StaticVerifier{email: strings.TrimSpace(email), name: name, hash: hash}, nil
}

func (v *StaticVerifier) Verify(_ context.Context, email, password string) (Identity, error) {
	emailOK := strings.EqualFold(strings.TrimSpace(email), v.email)
	passwordErr := bcrypt.CompareHashAndPassword(v.hash, []byte(password))
	if !emailOK || passwordErr != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{Name: v.name, Email: v.email, Role: RoleAdmin}, nil
}
