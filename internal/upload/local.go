package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// Dir writes uploads below root; the HTTP gateway serves root at URLPrefix.
type Dir struct {
	root   string
	prefix string
}

const URLPrefix = "/uploads"

func NewDir(root string) *Dir {
	return &Dir{root: root, prefix: URLPrefix}
}

func (d *Dir) Name() string { return "local" }

func (d *Dir) Root() string { return d.root }

func (d *Dir) Upload(_ context.Context, uid, filename, contentType string, r io.Reader) (string, error) {
	if err := CheckImage(contentType); err != nil {
		return "", err
	}
	name := objectName(uid, filename)
	full := filepath.Join(d.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, io.LimitReader(r, MaxPhotoBytes)); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path.Join(d.prefix, name), nil
}
