package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// UploadsRoute is where the post service serves locally stored files.
const UploadsRoute = "/static/uploads"

// LocalStore writes objects to a directory served by the post service.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, publicBaseURL string) *LocalStore {
	if dir == "" {
		dir = filepath.Join("static", "uploads")
	}
	base := strings.TrimRight(publicBaseURL, "/")
	if base == "" {
		base = UploadsRoute
	}
	return &LocalStore{dir: dir, baseURL: base}
}

// Dir is the directory files are written to.
func (l *LocalStore) Dir() string { return l.dir }

func (l *LocalStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst := filepath.Join(l.dir, key)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, &ctxReader{ctx: ctx, r: body}); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return l.baseURL + "/" + url.PathEscape(key), nil
}

// ctxReader stops a copy once the request is gone.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
