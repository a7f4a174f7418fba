package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"
	"time"
)

const cloudinaryAPI = "https://api.cloudinary.com"

// Cloudinary performs unsigned uploads with an upload preset.
type Cloudinary struct {
	cloud  string
	preset string
	base   string
	hc     *http.Client
}

// NewCloudinary targets api.cloudinary.com unless base is set.
func NewCloudinary(cloud, preset, base string, hc *http.Client) *Cloudinary {
	if base == "" {
		base = cloudinaryAPI
	}
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Cloudinary{cloud: cloud, preset: preset, base: strings.TrimRight(base, "/"), hc: hc}
}

func (c *Cloudinary) Name() string { return "cloudinary" }

func (c *Cloudinary) Upload(ctx context.Context, uid, filename, contentType string, r io.Reader) (string, error) {
	if err := CheckImage(contentType); err != nil {
		return "", err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("upload_preset", c.preset)
	mw.WriteField("folder", path.Join("skytrack", uid))

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(filename)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, io.LimitReader(r, MaxPhotoBytes)); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", c.base, c.cloud)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		SecureURL string `json:"secure_url"`
		Error     *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("cloudinary: status %d: %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("cloudinary: %s", out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || out.SecureURL == "" {
		return "", fmt.Errorf("cloudinary: status %d", resp.StatusCode)
	}
	return out.SecureURL, nil
}
