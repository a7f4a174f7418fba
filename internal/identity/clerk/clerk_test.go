package clerk_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"skytrack/internal/identity"
	"skytrack/internal/identity/clerk"
	"skytrack/internal/model"
)

type fakeClerk struct {
	mu       sync.Mutex
	users    map[string]map[string]any
	password map[string]string // user id -> password
	revoked  []string
}

func (f *fakeClerk) find(email string) map[string]any {
	for _, u := range f.users {
		addrs := u["email_addresses"].([]map[string]any)
		if addrs[0]["email_address"] == email {
			return u
		}
	}
	return nil
}

func (f *fakeClerk) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer sk_test" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/users":
		out := []map[string]any{}
		if u := f.find(r.URL.Query().Get("email_address")); u != nil {
			out = append(out, u)
		}
		writeJSON(w, http.StatusOK, out)
	case r.Method == http.MethodPost && r.URL.Path == "/users":
		email := body["email_address"].([]any)[0].(string)
		if f.find(email) != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []map[string]string{{"code": "form_identifier_exists"}}})
			return
		}
		id := fmt.Sprintf("user_%d", len(f.users)+1)
		u := map[string]any{
			"id":                       id,
			"first_name":               body["first_name"],
			"primary_email_address_id": "idn_" + id,
			"email_addresses":          []map[string]any{{"id": "idn_" + id, "email_address": email}},
			"public_metadata":          body["public_metadata"],
		}
		f.users[id] = u
		f.password[id] = body["password"].(string)
		writeJSON(w, http.StatusOK, u)
	case r.Method == http.MethodGet && r.URL.Path == "/sessions":
		writeJSON(w, http.StatusOK, []map[string]string{{"id": "sess_" + r.URL.Query().Get("user_id")}})
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "sessions" && parts[2] == "revoke":
		f.revoked = append(f.revoked, parts[1])
		writeJSON(w, http.StatusOK, map[string]string{"id": parts[1]})
	case len(parts) >= 2 && parts[0] == "users":
		u, ok := f.users[parts[1]]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"errors": []map[string]string{{"code": "resource_not_found"}}})
			return
		}
		switch {
		case len(parts) == 2 && r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, u)
		case len(parts) == 2 && r.Method == http.MethodPatch:
			u["first_name"] = body["first_name"]
			writeJSON(w, http.StatusOK, u)
		case len(parts) == 3 && parts[2] == "metadata":
			md, _ := u["public_metadata"].(map[string]any)
			if md == nil {
				md = map[string]any{}
			}
			for k, v := range body["public_metadata"].(map[string]any) {
				md[k] = v
			}
			u["public_metadata"] = md
			writeJSON(w, http.StatusOK, u)
		case len(parts) == 3 && parts[2] == "verify_password":
			if f.password[parts[1]] != body["password"] {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []map[string]string{{"code": "incorrect_password"}}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func setup(t *testing.T) (*clerk.Provider, *fakeClerk) {
	t.Helper()
	fake := &fakeClerk{users: map[string]map[string]any{}, password: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return clerk.New(clerk.Config{SecretKey: "sk_test", APIURL: srv.URL}, srv.Client()), fake
}

func TestRegisterLogin(t *testing.T) {
	ctx := context.Background()
	p, _ := setup(t)

	u, err := p.Register(ctx, identity.Registration{Email: "ada@example.com", Password: "secret1", Name: "Ada", Role: model.RoleTeacher})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.UID != "user_1" || u.Email != "ada@example.com" || u.Role != model.RoleTeacher {
		t.Fatalf("registered: %+v", u)
	}
	if _, err := p.Register(ctx, identity.Registration{Email: "ada@example.com", Password: "secret1", Name: "Ada"}); !errors.Is(err, identity.ErrEmailTaken) {
		t.Errorf("duplicate: %v", err)
	}

	got, err := p.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.UID != u.UID || got.Name != "Ada" {
		t.Errorf("login: %+v", got)
	}
	if _, err := p.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", err)
	}
	if _, err := p.Login(ctx, "ghost@example.com", "secret1"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("unknown email: %v", err)
	}
}

func TestProfileAndLogout(t *testing.T) {
	ctx := context.Background()
	p, fake := setup(t)
	u, _ := p.Register(ctx, identity.Registration{Email: "ada@example.com", Password: "secret1", Name: "Ada"})

	photo := "https://img/a.png"
	got, err := p.UpdateProfile(ctx, u.UID, model.ProfilePatch{PhotoURL: &photo})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.PhotoURL != photo || got.Role != model.RoleStudent || got.Name != "Ada" {
		t.Errorf("updated: %+v", got)
	}

	if err := p.Logout(ctx, u.UID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(fake.revoked) != 1 || fake.revoked[0] != "sess_"+u.UID {
		t.Errorf("revoked: %v", fake.revoked)
	}
	if _, err := p.User(ctx, "user_404"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}

func TestBadSecret(t *testing.T) {
	fake := &fakeClerk{users: map[string]map[string]any{}, password: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	p := clerk.New(clerk.Config{SecretKey: "wrong", APIURL: srv.URL}, srv.Client())
	if _, err := p.User(context.Background(), "user_1"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("got %v", err)
	}
}
