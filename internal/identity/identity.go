// Package identity resolves who the current user is. Each backend lives in
// its own subpackage and satisfies Provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"skytrack/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnsupported        = errors.New("operation not supported by identity provider")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidInput       = errors.New("invalid input")
)

type Provider interface {
	Name() string
	Login(ctx context.Context, email, password string) (model.User, error)
	Register(ctx context.Context, r Registration) (model.User, error)
	// LoginWithGoogle signs in with a Google ID token, creating the user on first use.
	LoginWithGoogle(ctx context.Context, idToken string) (model.User, error)
	Logout(ctx context.Context, uid string) error
	UpdateProfile(ctx context.Context, uid string, p model.ProfilePatch) (model.User, error)
	User(ctx context.Context, uid string) (model.User, error)
}

type Registration struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Name     string     `json:"name" validate:"required"`
	Role     model.Role `json:"role" validate:"omitempty,oneof=student teacher tutor"`
}

// Normalize trims the fields, lowercases the email and defaults the role.
func (r Registration) Normalize() (Registration, error) {
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	if r.Role == "" {
		r.Role = model.RoleStudent
	}
	if err := model.Validate(r); err != nil {
		return r, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return r, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName falls back to the local part of the email when name is blank.
func DisplayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

// CheckPatch validates a profile patch and wraps failures as ErrInvalidInput.
func CheckPatch(p model.ProfilePatch) error {
	if err := model.Validate(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}
