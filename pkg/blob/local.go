package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects under a base directory on the local filesystem.
// Returned URLs are relative paths with a "public/" prefix, matching how the
// server exposes the upload dir.
type LocalStore struct {
	BaseDir   string
	URLPrefix string // defaults to "public"
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create blob base dir %s: %w", baseDir, err)
	}
	return &LocalStore{BaseDir: baseDir, URLPrefix: "public"}, nil
}

// Put streams r into BaseDir/key. Keys may contain forward slashes; parent
// directories are created as needed. Path traversal outside the base dir is
// rejected.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (PutResult, error) {
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return PutResult{}, fmt.Errorf("invalid blob key %q", key)
	}
	full := filepath.Join(s.BaseDir, clean)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return PutResult{}, err
	}
	f, err := os.Create(full)
	if err != nil {
		return PutResult{}, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// best effort: don't leave a truncated object behind
		_ = os.Remove(full)
		return PutResult{}, err
	}
	prefix := s.URLPrefix
	if prefix == "" {
		prefix = "public"
	}
	return PutResult{URL: prefix + "/" + filepath.ToSlash(clean), Size: n}, nil
}
