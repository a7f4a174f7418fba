// Package appwrite authenticates against an Appwrite project. Passwords are
// checked with an email session; user records are read and written through
// the server users API, with role and photo kept in the user's prefs.
package appwrite

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"skytrack/internal/identity"
	"skytrack/internal/identity/rest"
	"skytrack/internal/model"
)

type Config struct {
	Endpoint  string // e.g. https://cloud.appwrite.io/v1
	ProjectID string
	APIKey    string
}

func (c Config) Ready() bool { return c.Endpoint != "" && c.ProjectID != "" }

type Provider struct {
	api *rest.Client
}

func New(cfg Config, hc *http.Client) *Provider {
	h := http.Header{}
	h.Set("X-Appwrite-Project", cfg.ProjectID)
	if cfg.APIKey != "" {
		h.Set("X-Appwrite-Key", cfg.APIKey)
	}
	return &Provider{api: rest.New(cfg.Endpoint, hc, h)}
}

type prefs struct {
	Role     model.Role `json:"role,omitempty"`
	PhotoURL string     `json:"photoURL,omitempty"`
}

type user struct {
	ID    string `json:"$id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Prefs prefs  `json:"prefs"`
}

func (u user) model() model.User {
	role := u.Prefs.Role
	if role == "" {
		role = model.RoleStudent
	}
	return model.User{UID: u.ID, Name: identity.DisplayName(u.Name, u.Email), Email: u.Email, PhotoURL: u.Prefs.PhotoURL, Role: role}
}

type session struct {
	ID     string `json:"$id"`
	UserID string `json:"userId"`
}

func (p *Provider) Name() string { return "appwrite" }

func (p *Provider) Login(ctx context.Context, email, password string) (model.User, error) {
	var s session
	err := p.api.Do(ctx, http.MethodPost, "/account/sessions/email",
		map[string]string{"email": identity.NormalizeEmail(email), "password": password}, &s)
	if err != nil {
		return model.User{}, mapError(err)
	}
	return p.User(ctx, s.UserID)
}

func (p *Provider) Register(ctx context.Context, r identity.Registration) (model.User, error) {
	r, err := r.Normalize()
	if err != nil {
		return model.User{}, err
	}
	var u user
	err = p.api.Do(ctx, http.MethodPost, "/users", map[string]string{
		"userId":   "unique()",
		"email":    r.Email,
		"password": r.Password,
		"name":     r.Name,
	}, &u)
	if err != nil {
		return model.User{}, mapError(err)
	}
	u.Prefs = prefs{Role: r.Role}
	if err := p.putPrefs(ctx, u.ID, u.Prefs); err != nil {
		return model.User{}, err
	}
	return u.model(), nil
}

// LoginWithGoogle is not available: Appwrite OAuth only runs as a browser redirect.
func (p *Provider) LoginWithGoogle(context.Context, string) (model.User, error) {
	return model.User{}, identity.ErrUnsupported
}

func (p *Provider) Logout(ctx context.Context, uid string) error {
	err := p.api.Do(ctx, http.MethodDelete, "/users/"+url.PathEscape(uid)+"/sessions", nil, nil)
	return mapError(err)
}

func (p *Provider) UpdateProfile(ctx context.Context, uid string, patch model.ProfilePatch) (model.User, error) {
	if err := identity.CheckPatch(patch); err != nil {
		return model.User{}, err
	}
	var u user
	if err := p.api.Do(ctx, http.MethodGet, "/users/"+url.PathEscape(uid), nil, &u); err != nil {
		return model.User{}, mapError(err)
	}
	if patch.Name != nil {
		err := p.api.Do(ctx, http.MethodPatch, "/users/"+url.PathEscape(uid)+"/name",
			map[string]string{"name": *patch.Name}, nil)
		if err != nil {
			return model.User{}, mapError(err)
		}
		u.Name = *patch.Name
	}
	if patch.PhotoURL != nil {
		u.Prefs.PhotoURL = *patch.PhotoURL
		if err := p.putPrefs(ctx, uid, u.Prefs); err != nil {
			return model.User{}, err
		}
	}
	return u.model(), nil
}

func (p *Provider) User(ctx context.Context, uid string) (model.User, error) {
	var u user
	if err := p.api.Do(ctx, http.MethodGet, "/users/"+url.PathEscape(uid), nil, &u); err != nil {
		return model.User{}, mapError(err)
	}
	return u.model(), nil
}

func (p *Provider) putPrefs(ctx context.Context, uid string, pr prefs) error {
	err := p.api.Do(ctx, http.MethodPatch, "/users/"+url.PathEscape(uid)+"/prefs",
		map[string]prefs{"prefs": pr}, nil)
	return mapError(err)
}

func mapError(err error) error {
	switch rest.Status(err) {
	case 0:
		return err
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", identity.ErrInvalidCredentials, err)
	case http.StatusNotFound:
		return identity.ErrNotFound
	case http.StatusConflict:
		return identity.ErrEmailTaken
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %v", identity.ErrInvalidInput, err)
	}
	return err
}
