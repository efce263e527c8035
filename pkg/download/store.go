package download

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/slimdeps/pkg/deps"
	"github.com/matzehuels/slimdeps/pkg/strategy"
)

// RelocatedDir is the store subdirectory holding relocated artifacts.
const RelocatedDir = "relocated"

// Store is the local placement policy: every dependency maps to one
// deterministic path under the store root, mirroring the repository layout.
// Repeated downloads of a coordinate therefore collide on the same file,
// which is what makes skip-if-present possible.
type Store struct {
	dir       string
	extension string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithExtension sets the artifact extension (default "jar").
func WithExtension(ext string) StoreOption {
	return func(s *Store) { s.extension = ext }
}

// NewStore creates the store directory if needed.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{dir: abs, extension: strategy.DefaultExtension}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	return s, nil
}

// Dir returns the absolute store root.
func (s *Store) Dir() string { return s.dir }

// LocationFor returns the destination for d. It is pure and safe for
// concurrent use.
func (s *Store) LocationFor(d deps.Dependency) (string, error) {
	rel, err := strategy.RelativePath(d, s.extension)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(rel)), nil
}

// RelocatedLocationFor returns the destination of d's relocated artifact.
// A non-empty fingerprint identifies the rule set that produced the output
// and is added before the extension, so changing the rules selects a
// different file.
func (s *Store) RelocatedLocationFor(d deps.Dependency, fingerprint string) (string, error) {
	rel, err := strategy.RelativePath(d, s.extension)
	if err != nil {
		return "", err
	}
	p := filepath.Join(s.dir, RelocatedDir, filepath.FromSlash(rel))
	if fingerprint == "" {
		return p, nil
	}
	ext := filepath.Ext(p)
	return strings.TrimSuffix(p, ext) + "." + fingerprint + ext, nil
}

// Exists reports whether a published artifact exists at path. Staging files
// never match because they use a different name.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Create prepares an atomic writer for d's destination.
func (s *Store) Create(d deps.Dependency) (*Writer, error) {
	dest, err := s.LocationFor(d)
	if err != nil {
		return nil, err
	}
	return NewWriter(d.String(), dest)
}

// Remove deletes d's stored artifact, its saved signature and every
// relocated copy of it.
func (s *Store) Remove(d deps.Dependency) error {
	loc, err := s.LocationFor(d)
	if err != nil {
		return err
	}
	plain, err := s.RelocatedLocationFor(d, "")
	if err != nil {
		return err
	}
	ext := filepath.Ext(plain)
	copies, err := filepath.Glob(strings.TrimSuffix(plain, ext) + ".*" + ext)
	if err != nil {
		return err
	}
	for _, p := range append([]string{loc, loc + SignatureSuffix, plain}, copies...) {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
