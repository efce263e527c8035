package transport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

// File serves file:// repositories from the local filesystem.
type File struct{}

// Probe stats the file behind u. Directories are reported as not found.
func (File) Probe(ctx context.Context, u *url.URL) error {
	if err := ctx.Err(); err != nil {
		return classify(ctx, err)
	}
	info, err := os.Stat(localPath(u))
	if err != nil {
		return fileError(err)
	}
	if info.IsDir() {
		return ErrNotFound
	}
	return nil
}

// Open opens the file behind u.
func (File) Open(ctx context.Context, u *url.URL) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, err)
	}
	//nolint:gosec // G304: path comes from a configured file:// repository
	f, err := os.Open(localPath(u))
	if err != nil {
		return nil, fileError(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fileError(err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}
	return &Stream{Body: f, ContentLength: info.Size()}, nil
}

func localPath(u *url.URL) string {
	return filepath.FromSlash(u.Path)
}

func fileError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

var _ Transport = File{}
