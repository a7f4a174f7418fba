// Package clerk authenticates against the Clerk backend API with a secret key.
package clerk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"skytrack/internal/identity"
	"skytrack/internal/identity/rest"
	"skytrack/internal/model"
)

const DefaultAPIURL = "https://api.clerk.com/v1"

type Config struct {
	SecretKey string
	APIURL    string
}

type Provider struct {
	api *rest.Client
}

func New(cfg Config, hc *http.Client) *Provider {
	base := cfg.APIURL
	if base == "" {
		base = DefaultAPIURL
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+cfg.SecretKey)
	return &Provider{api: rest.New(base, hc, h)}
}

type metadata struct {
	Role     model.Role `json:"role,omitempty"`
	PhotoURL string     `json:"photoURL,omitempty"`
}

type emailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type user struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []emailAddress `json:"email_addresses"`
	PublicMetadata        metadata       `json:"public_metadata"`
}

func (u user) email() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (u user) model() model.User {
	out := model.User{
		UID:      u.ID,
		Email:    u.email(),
		PhotoURL: u.PublicMetadata.PhotoURL,
		Role:     u.PublicMetadata.Role,
	}
	out.Name = identity.DisplayName(strings.TrimSpace(u.FirstName+" "+u.LastName), out.Email)
	if out.PhotoURL == "" {
		out.PhotoURL = u.ImageURL
	}
	if out.Role == "" {
		out.Role = model.RoleStudent
	}
	return out
}

type apiErrors struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (p *Provider) Name() string { return "clerk" }

func (p *Provider) Login(ctx context.Context, email, password string) (model.User, error) {
	var found []user
	q := url.Values{"email_address": {identity.NormalizeEmail(email)}}
	if err := p.api.Do(ctx, http.MethodGet, "/users?"+q.Encode(), nil, &found); err != nil {
		return model.User{}, mapError(err)
	}
	if len(found) == 0 {
		return model.User{}, identity.ErrInvalidCredentials
	}
	u := found[0]

	var res struct {
		Verified bool `json:"verified"`
	}
	err := p.api.Do(ctx, http.MethodPost, "/users/"+url.PathEscape(u.ID)+"/verify_password",
		map[string]string{"password": password}, &res)
	if rest.Status(err) == http.StatusUnprocessableEntity || (err == nil && !res.Verified) {
		return model.User{}, identity.ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, mapError(err)
	}
	return u.model(), nil
}

func (p *Provider) Register(ctx context.Context, r identity.Registration) (model.User, error) {
	r, err := r.Normalize()
	if err != nil {
		return model.User{}, err
	}
	var u user
	err = p.api.Do(ctx, http.MethodPost, "/users", map[string]any{
		"email_address":   []string{r.Email},
		"password":        r.Password,
		"first_name":      r.Name,
		"public_metadata": metadata{Role: r.Role},
	}, &u)
	if err != nil {
		return model.User{}, mapError(err)
	}
	return u.model(), nil
}

// LoginWithGoogle is not available: Clerk social sign-in runs in its hosted frontend.
func (p *Provider) LoginWithGoogle(context.Context, string) (model.User, error) {
	return model.User{}, identity.ErrUnsupported
}

// Logout revokes every active Clerk session of the user.
func (p *Provider) Logout(ctx context.Context, uid string) error {
	var sessions []struct {
		ID string `json:"id"`
	}
	q := url.Values{"user_id": {uid}, "status": {"active"}}
	if err := p.api.Do(ctx, http.MethodGet, "/sessions?"+q.Encode(), nil, &sessions); err != nil {
		return mapError(err)
	}
	var errs []error
	for _, s := range sessions {
		if err := p.api.Do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(s.ID)+"/revoke", nil, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) UpdateProfile(ctx context.Context, uid string, patch model.ProfilePatch) (model.User, error) {
	if err := identity.CheckPatch(patch); err != nil {
		return model.User{}, err
	}
	var u user
	if patch.Name != nil {
		err := p.api.Do(ctx, http.MethodPatch, "/users/"+url.PathEscape(uid),
			map[string]string{"first_name": *patch.Name, "last_name": ""}, &u)
		if err != nil {
			return model.User{}, mapError(err)
		}
	}
	if patch.PhotoURL != nil {
		err := p.api.Do(ctx, http.MethodPatch, "/users/"+url.PathEscape(uid)+"/metadata",
			map[string]any{"public_metadata": map[string]string{"photoURL": *patch.PhotoURL}}, &u)
		if err != nil {
			return model.User{}, mapError(err)
		}
	}
	if u.ID == "" {
		return p.User(ctx, uid)
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

func mapError(err error) error {
	var se *rest.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Status {
	case http.StatusNotFound:
		return identity.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", identity.ErrInvalidCredentials, err)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		var body apiErrors
		json.Unmarshal(se.Body, &body)
		for _, e := range body.Errors {
			if e.Code == "form_identifier_exists" {
				return identity.ErrEmailTaken
			}
		}
		return fmt.Errorf("%w: %v", identity.ErrInvalidInput, err)
	}
	return err
}
