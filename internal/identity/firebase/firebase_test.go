package firebase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"

	"skytrack/internal/identity"
	"skytrack/internal/identity/firebase"
	"skytrack/internal/model"
	"skytrack/internal/slot"
)

// fakeToolkit is a minimal Identity Toolkit relying party.
type fakeToolkit struct {
	mu        sync.Mutex
	users     map[string]map[string]string // email -> record
	setCalls  int
	assertion url.Values
}

func (f *fakeToolkit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	defer f.mu.Unlock()

	str := func(k string) string {
		s, _ := req[k].(string)
		return s
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/signupNewUser"):
		if _, ok := f.users[str("email")]; ok {
			fail(w, "EMAIL_EXISTS")
			return
		}
		u := map[string]string{"localId": "fb-" + str("email"), "email": str("email"), "password": str("password"), "displayName": str("displayName")}
		f.users[str("email")] = u
		reply(w, map[string]string{"localId": u["localId"], "email": u["email"], "idToken": "tok-" + u["localId"]})
	case strings.HasSuffix(r.URL.Path, "/verifyPassword"):
		u, ok := f.users[str("email")]
		if !ok {
			fail(w, "EMAIL_NOT_FOUND")
			return
		}
		if u["password"] != str("password") {
			fail(w, "INVALID_PASSWORD")
			return
		}
		reply(w, map[string]string{"localId": u["localId"], "email": u["email"], "displayName": u["displayName"], "idToken": "tok-" + u["localId"]})
	case strings.HasSuffix(r.URL.Path, "/verifyAssertion"):
		f.assertion, _ = url.ParseQuery(str("postBody"))
		reply(w, map[string]string{"localId": "google-1", "email": "g@example.com", "displayName": "", "photoUrl": "https://img/p.png", "idToken": "tok-g"})
	case strings.HasSuffix(r.URL.Path, "/setAccountInfo"):
		f.setCalls++
		reply(w, map[string]string{"localId": "x", "idToken": str("idToken")})
	default:
		http.NotFound(w, r)
	}
}

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 400, "message": msg}})
}

func setup(t *testing.T) (*firebase.Provider, *fakeToolkit) {
	t.Helper()
	fake := &fakeToolkit{users: map[string]map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := firebase.Config{APIKey: "k", AuthDomain: "demo.firebaseapp.com", ProjectID: "demo", AppID: "app"}
	p, err := firebase.New(context.Background(), cfg, identity.NewProfiles(slot.NewMemory()),
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return p, fake
}

func TestConfigReady(t *testing.T) {
	if (firebase.Config{APIKey: "k", AuthDomain: "d", ProjectID: "p"}).Ready() {
		t.Error("config without app id reported ready")
	}
	if !(firebase.Config{APIKey: "k", AuthDomain: "d", ProjectID: "p", AppID: "a"}).Ready() {
		t.Error("complete config not ready")
	}
}

func TestRegisterLogin(t *testing.T) {
	ctx := context.Background()
	p, _ := setup(t)

	u, err := p.Register(ctx, identity.Registration{Email: "ada@example.com", Password: "secret1", Name: "Ada", Role: model.RoleTeacher})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.UID != "fb-ada@example.com" || u.Role != model.RoleTeacher {
		t.Fatalf("registered: %+v", u)
	}
	if _, err := p.Register(ctx, identity.Registration{Email: "ada@example.com", Password: "secret1", Name: "Ada"}); !errors.Is(err, identity.ErrEmailTaken) {
		t.Errorf("duplicate: %v", err)
	}

	got, err := p.Login(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	// the stored document keeps the registered role
	if got.Role != model.RoleTeacher || got.Name != "Ada" {
		t.Errorf("login user: %+v", got)
	}
	if _, err := p.Login(ctx, "ada@example.com", "nope"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("bad password: %v", err)
	}
	if _, err := p.Login(ctx, "who@example.com", "x"); !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Errorf("unknown email: %v", err)
	}
}

func TestGoogleCreatesProfile(t *testing.T) {
	ctx := context.Background()
	p, fake := setup(t)

	u, err := p.LoginWithGoogle(ctx, "google-id-token")
	if err != nil {
		t.Fatalf("google: %v", err)
	}
	if fake.assertion.Get("id_token") != "google-id-token" || fake.assertion.Get("providerId") != "google.com" {
		t.Errorf("assertion body: %v", fake.assertion)
	}
	if u.Name != "g" || u.Role != model.RoleStudent || u.PhotoURL != "https://img/p.png" {
		t.Errorf("profile: %+v", u)
	}
	stored, err := p.User(ctx, "google-1")
	if err != nil || stored.UID != u.UID {
		t.Errorf("stored profile: %+v %v", stored, err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	p, fake := setup(t)
	u, _ := p.Register(ctx, identity.Registration{Email: "ada@example.com", Password: "secret1", Name: "Ada"})

	photo := "https://img/ada.png"
	got, err := p.UpdateProfile(ctx, u.UID, model.ProfilePatch{PhotoURL: &photo})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.PhotoURL != photo || got.Name != "Ada" || fake.setCalls != 1 {
		t.Errorf("updated: %+v calls=%d", got, fake.setCalls)
	}

	// after logout only the document is written
	p.Logout(ctx, u.UID)
	name := "Ada L."
	if _, err := p.UpdateProfile(ctx, u.UID, model.ProfilePatch{Name: &name}); err != nil {
		t.Fatalf("update after logout: %v", err)
	}
	if fake.setCalls != 1 {
		t.Errorf("setAccountInfo called without a token")
	}
	if _, err := p.User(ctx, "missing"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
}
