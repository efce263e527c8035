// Package reader parses dependency manifests into [deps.Data].
//
// Three formats are supported and selected by file extension:
//
//   - JSON (.json): the slimdeps.json layout, validated against an embedded
//     JSON Schema before decoding
//   - TOML (.toml): same structure using [[dependencies]] tables
//   - YAML (.yaml, .yml): same structure, unknown fields rejected
//
// Every reader validates coordinates and repository URLs and de-duplicates
// transitive sets by identity, so the returned graph is ready for the
// resolver and injector.
package reader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/slimdeps/pkg/deps"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

// DefaultManifest is the manifest filename looked up when none is given.
const DefaultManifest = "slimdeps.json"

// Reader decodes a manifest stream.
type Reader interface {
	// Format returns the format name ("json", "toml", "yaml").
	Format() string
	// Read decodes, validates and normalizes one manifest.
	Read(r io.Reader) (*deps.Data, error)
}

// ForFile returns the reader matching the extension of filename.
func ForFile(filename string) (Reader, error) {
	base := filepath.Base(filename)
	if err := errs.ValidateManifestFilename(base); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".json":
		return JSON{}, nil
	case ".toml":
		return TOML{}, nil
	case ".yaml", ".yml":
		return YAML{}, nil
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "unsupported manifest format: %s", base)
	}
}

// ReadFile reads the manifest at path using the reader for its extension.
func ReadFile(path string) (*deps.Data, error) {
	r, err := ForFile(path)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G304: path is a user-supplied manifest
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "manifest %s", path)
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	data, err := r.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// finish validates and normalizes decoded data.
func finish(data *deps.Data) (*deps.Data, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	data.Normalize()
	return data, nil
}

func invalid(format string, cause error) error {
	return errs.Wrap(errs.ErrCodeInvalidManifest, cause, "decode %s manifest", format)
}
