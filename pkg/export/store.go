package export

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vango-dev/suspense/internal/errors"
)

// Artifact is one exported file.
type Artifact struct {
	// Path is slash separated and relative, e.g. "about/index.html".
	Path        string
	ContentType string
	Body        []byte
}

// Store receives artifacts.
type Store interface {
	// Put writes the artifact, replacing any previous one at its path.
	Put(ctx context.Context, a Artifact) error

	// Location describes where artifacts go, for logs.
	Location() string
}

// DirStore writes artifacts below a local directory.
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.New("E141").WithDetailf("create %s", dir).Wrap(err)
	}
	return &DirStore{dir: dir}, nil
}

// Put implements Store.
func (s *DirStore) Put(ctx context.Context, a Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := cleanPath(a.Path)
	if err != nil {
		return err
	}
	full := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}

	// Write then rename so readers never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".export-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(a.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), full)
}

// Location implements Store.
func (s *DirStore) Location() string {
	return s.dir
}

// cleanPath rejects absolute paths and paths leaving the store root.
func cleanPath(p string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(p))[1:]
	if clean == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "..") {
		return "", errors.New("E141").WithDetailf("invalid artifact path %q", p)
	}
	return clean, nil
}
