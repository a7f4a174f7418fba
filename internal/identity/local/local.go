// Package local is the self-contained identity backend: bcrypt accounts kept
// in the configured storage, plus Google sign-in by ID token.
package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"

	"skytrack/internal/auth"
	"skytrack/internal/identity"
	"skytrack/internal/model"
)

// TokenValidator checks Google ID tokens. *idtoken.Validator satisfies it.
type TokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

type Provider struct {
	accounts Accounts
	google   TokenValidator
	audience string
	now      func() time.Time
}

type Option func(*Provider)

// WithGoogle enables LoginWithGoogle for tokens issued to clientID.
func WithGoogle(v TokenValidator, clientID string) Option {
	return func(p *Provider) {
		p.google = v
		p.audience = clientID
	}
}

func New(accounts Accounts, opts ...Option) *Provider {
	p := &Provider{accounts: accounts, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Provider) Name() string { return "local" }

func (p *Provider) Login(ctx context.Context, email, password string) (model.User, error) {
	a, err := p.accounts.AccountByEmail(ctx, identity.NormalizeEmail(email))
	if errors.Is(err, identity.ErrNotFound) {
		return model.User{}, identity.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	// google-only accounts have no hash and never match
	if a.PasswordHash == "" || !auth.CheckPassword(a.PasswordHash, password) {
		return model.User{}, identity.ErrInvalidCredentials
	}
	return a.User, nil
}

func (p *Provider) Register(ctx context.Context, r identity.Registration) (model.User, error) {
	r, err := r.Normalize()
	if err != nil {
		return model.User{}, err
	}
	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := p.now()
	a := &model.Account{
		User:         model.User{UID: uuid.NewString(), Name: r.Name, Email: r.Email, Role: r.Role},
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.accounts.CreateAccount(ctx, a); err != nil {
		return model.User{}, err
	}
	return a.User, nil
}

func (p *Provider) LoginWithGoogle(ctx context.Context, idToken string) (model.User, error) {
	if p.google == nil {
		return model.User{}, identity.ErrUnsupported
	}
	payload, err := p.google.Validate(ctx, idToken, p.audience)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %v", identity.ErrInvalidCredentials, err)
	}
	email, _ := payload.Claims["email"].(string)
	email = identity.NormalizeEmail(email)
	if email == "" {
		return model.User{}, fmt.Errorf("%w: token carries no email", identity.ErrInvalidCredentials)
	}
	// accounts are matched by email, so an unverified one could claim someone else's
	if !emailVerified(payload.Claims["email_verified"]) {
		return model.User{}, fmt.Errorf("%w: google email not verified", identity.ErrInvalidCredentials)
	}

	a, err := p.accounts.AccountByEmail(ctx, email)
	if err == nil {
		return a.User, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return model.User{}, err
	}

	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	now := p.now()
	a = &model.Account{
		User: model.User{
			UID:      uuid.NewString(),
			Name:     identity.DisplayName(name, email),
			Email:    email,
			PhotoURL: picture,
			Role:     model.RoleStudent,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.accounts.CreateAccount(ctx, a); err != nil {
		return model.User{}, err
	}
	return a.User, nil
}

// Logout has nothing to tear down; sessions are revoked by the caller.
func (p *Provider) Logout(context.Context, string) error { return nil }

func (p *Provider) UpdateProfile(ctx context.Context, uid string, patch model.ProfilePatch) (model.User, error) {
	if err := identity.CheckPatch(patch); err != nil {
		return model.User{}, err
	}
	a, err := p.accounts.AccountByID(ctx, uid)
	if err != nil {
		return model.User{}, err
	}
	patch.Apply(&a.User)
	a.UpdatedAt = p.now()
	if err := p.accounts.UpdateAccount(ctx, a); err != nil {
		return model.User{}, err
	}
	return a.User, nil
}

func (p *Provider) User(ctx context.Context, uid string) (model.User, error) {
	a, err := p.accounts.AccountByID(ctx, uid)
	if err != nil {
		return model.User{}, err
	}
	return a.User, nil
}

// emailVerified reads the email_verified claim, which Google sends as a bool
// and some older tokens as a string.
func emailVerified(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	}
	return false
}
