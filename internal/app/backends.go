package app

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"skytrack/internal/config"
	"skytrack/internal/identity"
	"skytrack/internal/identity/appwrite"
	"skytrack/internal/identity/clerk"
	"skytrack/internal/identity/firebase"
	"skytrack/internal/identity/local"
	"skytrack/internal/slot"
	"skytrack/internal/upload"
)

// Accounts is where the local backend keeps its users.
type Accounts = local.Accounts

// ProviderFor builds the identity backend config.IdentityBackend picks.
// accounts may be nil, in which case local accounts live in slots.
func ProviderFor(ctx context.Context, cfg *config.Config, slots slot.Slots, accounts Accounts, hc *http.Client) (identity.Provider, error) {
	switch cfg.IdentityBackend() {
	case config.IdentityFirebase:
		f := cfg.Firebase
		p, err := firebase.New(ctx, firebase.Config{
			APIKey:     f.APIKey,
			AuthDomain: f.AuthDomain,
			ProjectID:  f.ProjectID,
			AppID:      f.AppID,
		}, identity.NewProfiles(slots))
		if err != nil {
			return nil, fmt.Errorf("firebase: %w", err)
		}
		return p, nil
	case config.IdentityAppwrite:
		return appwrite.New(appwrite.Config{
			Endpoint:  cfg.Appwrite.Endpoint,
			ProjectID: cfg.Appwrite.ProjectID,
			APIKey:    cfg.Appwrite.APIKey,
		}, hc), nil
	case config.IdentityClerk:
		return clerk.New(clerk.Config{SecretKey: cfg.Clerk.SecretKey, APIURL: cfg.Clerk.APIURL}, hc), nil
	}

	if accounts == nil {
		accounts = local.NewSlotAccounts(slots)
	}
	var opts []local.Option
	if cfg.Google.ClientID != "" {
		v, err := idtoken.NewValidator(ctx, option.WithHTTPClient(hc))
		if err != nil {
			return nil, fmt.Errorf("google id token validator: %w", err)
		}
		opts = append(opts, local.WithGoogle(v, cfg.Google.ClientID))
	}
	return local.New(accounts, opts...), nil
}

// UploaderFor prefers Cloudinary, then a GCS bucket, then the local directory.
func UploaderFor(ctx context.Context, cfg *config.Config) (upload.Uploader, error) {
	u := cfg.Upload
	switch {
	case u.CloudinaryCloudName != "" && u.CloudinaryUploadPreset != "":
		return upload.NewCloudinary(u.CloudinaryCloudName, u.CloudinaryUploadPreset, "", nil), nil
	case u.GCSBucket != "":
		g, err := upload.NewGCS(ctx, u.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return g, nil
	default:
		return upload.NewDir(u.Dir), nil
	}
}
