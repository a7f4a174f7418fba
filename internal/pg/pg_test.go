package pg_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"skytrack/internal/auth"
	"skytrack/internal/identity"
	"skytrack/internal/model"
	"skytrack/internal/pg"
	"skytrack/internal/slot/slottest"
)

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@h/db": "pgx5://u:p@h/db",
		"postgresql://h/db":   "pgx5://h/db",
		"pgx5://h/db":         "pgx5://h/db",
	}
	for in, want := range tests {
		if got := pg.MigrateURL(in); got != want {
			t.Errorf("%s: got %s want %s", in, got, want)
		}
	}
}

func setup(t *testing.T) *pg.Store {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	mg, err := pg.NewMigrator(url)
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if _, err := mg.Up(); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	mg.Close()

	pool, err := pg.Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pg.New(pool)
}

func TestSlots(t *testing.T) {
	slottest.Run(t, setup(t))
}

func TestAccounts(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	a := &model.Account{
		User:         model.User{UID: uuid.NewString(), Name: "Test", Email: uuid.NewString() + "@test.com", Role: model.RoleStudent},
		PasswordHash: "hash",
	}
	if err := s.CreateAccount(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := *a
	dup.UID = uuid.NewString()
	if err := s.CreateAccount(ctx, &dup); !errors.Is(err, identity.ErrEmailTaken) {
		t.Fatalf("duplicate email: %v", err)
	}

	got, err := s.AccountByEmail(ctx, a.Email)
	if err != nil || got.UID != a.UID || got.PasswordHash != "hash" {
		t.Fatalf("by email: %+v %v", got, err)
	}

	got.Name = "Renamed"
	got.Role = model.RoleTutor
	if err := s.UpdateAccount(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.AccountByID(ctx, a.UID)
	if got.Name != "Renamed" || got.Role != model.RoleTutor {
		t.Errorf("after update: %+v", got)
	}

	if _, err := s.AccountByID(ctx, "missing"); !errors.Is(err, identity.ErrNotFound) {
		t.Errorf("missing account: %v", err)
	}
}

func TestRefreshTokens(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	sessions := auth.NewSessions(auth.NewIssuer("secret", time.Minute), s, time.Hour)

	uid := uuid.NewString()
	first, err := sessions.Issue(ctx, uid, "local")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := sessions.Refresh(ctx, first.RefreshToken, "local"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, _, err := sessions.Refresh(ctx, first.RefreshToken, "local"); !errors.Is(err, auth.ErrRefreshReused) {
		t.Fatalf("reuse: %v", err)
	}
	if _, err := s.GetRefreshTokenByHash(ctx, "nope"); !errors.Is(err, auth.ErrBadToken) {
		t.Errorf("unknown hash: %v", err)
	}
}
