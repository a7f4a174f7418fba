// Package upload stores profile photos and returns the URL they are served from.
package upload

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxPhotoBytes caps a single upload.
const MaxPhotoBytes = 5 << 20

var ErrNotImage = errors.New("only image uploads are accepted")

type Uploader interface {
	Upload(ctx context.Context, uid, filename, contentType string, r io.Reader) (string, error)
	Name() string
}

// CheckImage rejects anything that does not declare an image content type.
func CheckImage(contentType string) error {
	if !strings.HasPrefix(contentType, "image/") {
		return ErrNotImage
	}
	return nil
}

// objectName is avatars/<uid>/<random><ext>, so uploads never overwrite each other.
func objectName(uid, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if len(ext) > 6 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join("avatars", uid, uuid.NewString()+ext)
}
