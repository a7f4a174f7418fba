package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Identity backends, chosen by which credentials are present.
const (
	IdentityFirebase = "firebase"
	IdentityAppwrite = "appwrite"
	IdentityClerk    = "clerk"
	IdentityLocal    = "local"
)

// Slot backends.
const (
	StorageMemory   = "memory"
	StorageDir      = "dir"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	Environment string        `mapstructure:"environment"`
	GRPCPort    string        `mapstructure:"grpc_port"`
	HTTPPort    string        `mapstructure:"http_port"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	AccessTTL   time.Duration `mapstructure:"access_ttl"`
	RefreshTTL  time.Duration `mapstructure:"refresh_ttl"`
	CORSOrigins string        `mapstructure:"cors_origins"`

	Log       Log       `mapstructure:"log"`
	Storage   Storage   `mapstructure:"storage"`
	Firebase  Firebase  `mapstructure:"firebase"`
	Appwrite  Appwrite  `mapstructure:"appwrite"`
	Clerk     Clerk     `mapstructure:"clerk"`
	Google    Google    `mapstructure:"google"`
	Upload    Upload    `mapstructure:"upload"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Storage struct {
	// Backend forces a slot backend; empty picks one from what is configured.
	Backend       string `mapstructure:"backend"`
	DataDir       string `mapstructure:"data_dir"`
	DatabaseURL   string `mapstructure:"database_url"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

type Firebase struct {
	APIKey     string `mapstructure:"api_key"`
	AuthDomain string `mapstructure:"auth_domain"`
	ProjectID  string `mapstructure:"project_id"`
	AppID      string `mapstructure:"app_id"`
}

type Appwrite struct {
	Endpoint  string `mapstructure:"endpoint"`
	ProjectID string `mapstructure:"project_id"`
	APIKey    string `mapstructure:"api_key"`
}

type Clerk struct {
	SecretKey string `mapstructure:"secret_key"`
	APIURL    string `mapstructure:"api_url"`
}

type Google struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type Upload struct {
	CloudinaryCloudName    string `mapstructure:"cloudinary_cloud_name"`
	CloudinaryUploadPreset string `mapstructure:"cloudinary_upload_preset"`
	GCSBucket              string `mapstructure:"gcs_bucket"`
	Dir                    string `mapstructure:"dir"`
}

type RateLimit struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// env var for each config key
var envKeys = map[string]string{
	"environment":                     "APP_ENV",
	"grpc_port":                       "PORT",
	"http_port":                       "WEB_PORT",
	"jwt_secret":                      "JWT_SECRET",
	"access_ttl":                      "ACCESS_TOKEN_TTL",
	"refresh_ttl":                     "REFRESH_TOKEN_TTL",
	"cors_origins":                    "CORS_ORIGINS",
	"log.level":                       "LOG_LEVEL",
	"log.format":                      "LOG_FORMAT",
	"storage.backend":                 "STORAGE_BACKEND",
	"storage.data_dir":                "DATA_DIR",
	"storage.database_url":            "DATABASE_URL",
	"storage.redis_addr":              "REDIS_ADDR",
	"storage.redis_password":          "REDIS_PASSWORD",
	"storage.redis_db":                "REDIS_DB",
	"firebase.api_key":                "FIREBASE_API_KEY",
	"firebase.auth_domain":            "FIREBASE_AUTH_DOMAIN",
	"firebase.project_id":             "FIREBASE_PROJECT_ID",
	"firebase.app_id":                 "FIREBASE_APP_ID",
	"appwrite.endpoint":               "APPWRITE_ENDPOINT",
	"appwrite.project_id":             "APPWRITE_PROJECT_ID",
	"appwrite.api_key":                "APPWRITE_API_KEY",
	"clerk.secret_key":                "CLERK_SECRET_KEY",
	"clerk.api_url":                   "CLERK_API_URL",
	"google.client_id":                "GOOGLE_CLIENT_ID",
	"google.client_secret":            "GOOGLE_CLIENT_SECRET",
	"google.redirect_url":             "GOOGLE_REDIRECT_URL",
	"upload.cloudinary_cloud_name":    "CLOUDINARY_CLOUD_NAME",
	"upload.cloudinary_upload_preset": "CLOUDINARY_UPLOAD_PRESET",
	"upload.gcs_bucket":               "GCS_BUCKET",
	"upload.dir":                      "UPLOAD_DIR",
	"rate_limit.rps":                  "RATE_LIMIT_RPS",
	"rate_limit.burst":                "RATE_LIMIT_BURST",
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("grpc_port", "50051")
	v.SetDefault("http_port", "8080")
	v.SetDefault("access_ttl", "15m")
	v.SetDefault("refresh_ttl", "168h")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("clerk.api_url", "https://api.clerk.com/v1")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 10)
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.AccessTTL <= 0 {
		return errors.New("access token ttl must be positive")
	}
	switch c.Storage.Backend {
	case "", StorageMemory, StorageDir, StorageRedis, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == StoragePostgres && c.Storage.DatabaseURL == "" {
		return errors.New("postgres storage needs DATABASE_URL")
	}
	if c.Storage.Backend == StorageRedis && c.Storage.RedisAddr == "" {
		return errors.New("redis storage needs REDIS_ADDR")
	}
	return nil
}

// IdentityBackend picks the first backend whose credentials are complete.
func (c *Config) IdentityBackend() string {
	f := c.Firebase
	switch {
	case f.APIKey != "" && f.AuthDomain != "" && f.ProjectID != "" && f.AppID != "":
		return IdentityFirebase
	case c.Appwrite.Endpoint != "" && c.Appwrite.ProjectID != "":
		return IdentityAppwrite
	case c.Clerk.SecretKey != "":
		return IdentityClerk
	default:
		return IdentityLocal
	}
}

// StorageBackend resolves an empty Backend: postgres, then redis, then the data dir.
func (c *Config) StorageBackend() string {
	if c.Storage.Backend != "" {
		return c.Storage.Backend
	}
	switch {
	case c.Storage.DatabaseURL != "":
		return StoragePostgres
	case c.Storage.RedisAddr != "":
		return StorageRedis
	case c.Storage.DataDir != "":
		return StorageDir
	default:
		return StorageMemory
	}
}

func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
