// Package firebase signs users in through the Firebase Identity Toolkit REST
// API and keeps their profile documents in slots.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"skytrack/internal/identity"
	"skytrack/internal/model"
)

type Config struct {
	APIKey     string
	AuthDomain string
	ProjectID  string
	AppID      string
}

func (c Config) Ready() bool {
	return c.APIKey != "" && c.AuthDomain != "" && c.ProjectID != "" && c.AppID != ""
}

type Provider struct {
	svc        *identitytoolkit.Service
	profiles   *identity.Profiles
	requestURI string

	mu     sync.Mutex
	tokens map[string]string // uid -> last Firebase idToken
}

// New builds the provider. Extra client options are appended after the API
// key, so tests can point the service at a fake endpoint.
func New(ctx context.Context, cfg Config, profiles *identity.Profiles, opts ...option.ClientOption) (*Provider, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("identitytoolkit: %w", err)
	}
	return &Provider{
		svc:        svc,
		profiles:   profiles,
		requestURI: "https://" + cfg.AuthDomain,
		tokens:     map[string]string{},
	}, nil
}

func (p *Provider) Name() string { return "firebase" }

func (p *Provider) Login(ctx context.Context, email, password string) (model.User, error) {
	resp, err := p.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             identity.NormalizeEmail(email),
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return model.User{}, mapError(err)
	}
	p.remember(resp.LocalId, resp.IdToken)
	return p.profiles.Ensure(ctx, model.User{UID: resp.LocalId, Name: resp.DisplayName, Email: resp.Email, PhotoURL: resp.PhotoUrl})
}

func (p *Provider) Register(ctx context.Context, r identity.Registration) (model.User, error) {
	r, err := r.Normalize()
	if err != nil {
		return model.User{}, err
	}
	resp, err := p.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:       r.Email,
		Password:    r.Password,
		DisplayName: r.Name,
	}).Context(ctx).Do()
	if err != nil {
		return model.User{}, mapError(err)
	}
	p.remember(resp.LocalId, resp.IdToken)

	// registration always writes the document, with the chosen role
	u := model.User{UID: resp.LocalId, Name: r.Name, Email: r.Email, Role: r.Role}
	if err := p.profiles.Put(ctx, u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (p *Provider) LoginWithGoogle(ctx context.Context, idToken string) (model.User, error) {
	body := url.Values{"id_token": {idToken}, "providerId": {"google.com"}}
	resp, err := p.svc.Relyingparty.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        p.requestURI,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return model.User{}, mapError(err)
	}
	p.remember(resp.LocalId, resp.IdToken)
	return p.profiles.Ensure(ctx, model.User{UID: resp.LocalId, Name: resp.DisplayName, Email: resp.Email, PhotoURL: resp.PhotoUrl})
}

func (p *Provider) Logout(_ context.Context, uid string) error {
	p.mu.Lock()
	delete(p.tokens, uid)
	p.mu.Unlock()
	return nil
}

// UpdateProfile writes the profile document, and the Firebase display name
// and photo too while the user's Firebase token is still cached.
func (p *Provider) UpdateProfile(ctx context.Context, uid string, patch model.ProfilePatch) (model.User, error) {
	if err := identity.CheckPatch(patch); err != nil {
		return model.User{}, err
	}
	if tok := p.token(uid); tok != "" {
		req := &identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{IdToken: tok, ReturnSecureToken: true}
		if patch.Name != nil {
			req.DisplayName = *patch.Name
		}
		if patch.PhotoURL != nil {
			req.PhotoUrl = *patch.PhotoURL
		}
		resp, err := p.svc.Relyingparty.SetAccountInfo(req).Context(ctx).Do()
		if err != nil {
			return model.User{}, mapError(err)
		}
		p.remember(uid, resp.IdToken)
	}
	return p.profiles.Update(ctx, uid, patch)
}

func (p *Provider) User(ctx context.Context, uid string) (model.User, error) {
	u, ok, err := p.profiles.Get(ctx, uid)
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, identity.ErrNotFound
	}
	return u, nil
}

func (p *Provider) remember(uid, tok string) {
	if tok == "" {
		return
	}
	p.mu.Lock()
	p.tokens[uid] = tok
	p.mu.Unlock()
}

func (p *Provider) token(uid string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokens[uid]
}

// mapError turns Identity Toolkit error messages into identity errors.
func mapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	msg := gerr.Message
	switch {
	case strings.HasPrefix(msg, "EMAIL_EXISTS"):
		return identity.ErrEmailTaken
	case strings.HasPrefix(msg, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(msg, "INVALID_PASSWORD"),
		strings.HasPrefix(msg, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(msg, "INVALID_IDP_RESPONSE"),
		strings.HasPrefix(msg, "USER_DISABLED"):
		return fmt.Errorf("%w: %s", identity.ErrInvalidCredentials, msg)
	case strings.HasPrefix(msg, "INVALID_EMAIL"),
		strings.HasPrefix(msg, "WEAK_PASSWORD"):
		return fmt.Errorf("%w: %s", identity.ErrInvalidInput, msg)
	}
	return err
}
