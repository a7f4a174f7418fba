package config_test

import (
	"testing"
	"time"

	"skytrack/internal/config"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GRPCPort != "50051" || cfg.HTTPPort != "8080" {
		t.Errorf("ports: %s %s", cfg.GRPCPort, cfg.HTTPPort)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Errorf("access ttl: %v", cfg.AccessTTL)
	}
	if cfg.IdentityBackend() != config.IdentityLocal {
		t.Errorf("identity: %s", cfg.IdentityBackend())
	}
	if cfg.StorageBackend() != config.StorageDir {
		t.Errorf("storage: %s", cfg.StorageBackend())
	}
}

func TestIdentitySelection(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"none", nil, config.IdentityLocal},
		{"partial firebase", map[string]string{"FIREBASE_API_KEY": "k"}, config.IdentityLocal},
		{"firebase", map[string]string{
			"FIREBASE_API_KEY": "k", "FIREBASE_AUTH_DOMAIN": "d", "FIREBASE_PROJECT_ID": "p", "FIREBASE_APP_ID": "a",
		}, config.IdentityFirebase},
		{"appwrite", map[string]string{"APPWRITE_ENDPOINT": "http://aw/v1", "APPWRITE_PROJECT_ID": "p"}, config.IdentityAppwrite},
		{"clerk", map[string]string{"CLERK_SECRET_KEY": "sk_test"}, config.IdentityClerk},
		{"firebase wins over clerk", map[string]string{
			"FIREBASE_API_KEY": "k", "FIREBASE_AUTH_DOMAIN": "d", "FIREBASE_PROJECT_ID": "p", "FIREBASE_APP_ID": "a",
			"CLERK_SECRET_KEY": "sk_test",
		}, config.IdentityFirebase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := config.Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got := cfg.IdentityBackend(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStorageSelection(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageBackend() != config.StorageRedis {
		t.Errorf("storage: %s", cfg.StorageBackend())
	}

	t.Setenv("STORAGE_BACKEND", "postgres")
	if _, err := config.Load(); err == nil {
		t.Fatal("postgres without DATABASE_URL should fail")
	}

	t.Setenv("STORAGE_BACKEND", "floppy")
	if _, err := config.Load(); err == nil {
		t.Fatal("unknown backend should fail")
	}
}

func TestAllowedOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	cfg, _ := config.Load()
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("origins: %v", got)
	}
}
