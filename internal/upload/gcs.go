package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"google.golang.org/api/option"
	"google.golang.org/api/storage/v1"
)

// GCS writes uploads into a Cloud Storage bucket through the JSON API.
type GCS struct {
	svc    *storage.Service
	bucket string
	public string
}

// NewGCS uses application default credentials unless opts say otherwise.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return &GCS{svc: svc, bucket: bucket, public: "https://storage.googleapis.com"}, nil
}

func (g *GCS) Name() string { return "gcs" }

func (g *GCS) Upload(ctx context.Context, uid, filename, contentType string, r io.Reader) (string, error) {
	if err := CheckImage(contentType); err != nil {
		return "", err
	}
	obj := &storage.Object{
		Name:         objectName(uid, filename),
		ContentType:  contentType,
		CacheControl: "public, max-age=3600",
	}
	got, err := g.svc.Objects.Insert(g.bucket, obj).
		Media(io.LimitReader(r, MaxPhotoBytes)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("gcs insert: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", g.public, g.bucket, (&url.URL{Path: got.Name}).EscapedPath()), nil
}
