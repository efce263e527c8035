package download

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

// ErrLengthMismatch is the cause of a DownloadFailedError when the number of
// bytes received differs from the declared length.
var ErrLengthMismatch = errors.New("content length mismatch")

const stagingMarker = ".part-"

// Writer streams bytes into a staging file next to its destination and
// publishes it with a rename once the stream is complete and verified.
// A failed or abandoned write never leaves a file at the destination.
type Writer struct {
	dependency string
	dest       string

	// Source names where bytes come from, for error messages. Defaults to
	// the destination.
	Source string

	// Expect, when set, is verified against the streamed bytes before
	// publishing.
	Expect Checksum

	// Verify, when set, runs against the complete staging file before
	// publishing. Returning an error discards the file.
	Verify func(staged string) error

	// Progress, when set, is called after each write with the running total.
	Progress func(written int64)
}

// NewWriter creates a writer publishing to dest.
func NewWriter(dependency, dest string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, &errs.DownloadFailedError{Dependency: dependency, Location: dest, Cause: err}
	}
	return &Writer{dependency: dependency, dest: dest}, nil
}

// Destination returns the final path.
func (w *Writer) Destination() string { return w.dest }

// WriteFrom copies r into the staging file and publishes it. When expected
// is non-negative the copied length must match it exactly. It returns the
// final location.
func (w *Writer) WriteFrom(r io.Reader, expected int64) (string, error) {
	source := w.Source
	if source == "" {
		source = w.dest
	}

	var hasher hash.Hash
	if !w.Expect.IsZero() {
		h, err := newHash(w.Expect.Algorithm)
		if err != nil {
			return "", err
		}
		hasher = h
	}

	staged := w.dest + stagingMarker + uuid.NewString()
	//nolint:gosec // G304: staging path is derived from the store layout
	f, err := os.OpenFile(staged, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", w.storeFailure(err)
	}
	published := false
	defer func() {
		if !published {
			_ = f.Close()
			_ = os.Remove(staged)
		}
	}()

	var dst io.Writer = f
	if hasher != nil {
		dst = io.MultiWriter(f, hasher)
	}
	if w.Progress != nil {
		dst = &progressWriter{w: dst, fn: w.Progress}
	}

	n, err := io.Copy(dst, r)
	if err != nil {
		return "", &errs.DownloadFailedError{Dependency: w.dependency, Location: source, Cause: err}
	}
	if expected >= 0 && n != expected {
		return "", &errs.DownloadFailedError{
			Dependency: w.dependency,
			Location:   source,
			Cause:      fmt.Errorf("%w: expected %d bytes, got %d", ErrLengthMismatch, expected, n),
		}
	}
	if hasher != nil {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if actual != w.Expect.Hex {
			return "", &errs.IntegrityError{
				Dependency: w.dependency,
				Algorithm:  w.Expect.Algorithm,
				Expected:   w.Expect.Hex,
				Actual:     actual,
			}
		}
	}

	if err := f.Sync(); err != nil {
		return "", w.storeFailure(err)
	}
	if err := f.Close(); err != nil {
		return "", w.storeFailure(err)
	}
	if w.Verify != nil {
		if err := w.Verify(staged); err != nil {
			return "", err
		}
	}
	if err := os.Rename(staged, w.dest); err != nil {
		return "", w.storeFailure(err)
	}
	published = true
	return w.dest, nil
}

// storeFailure reports a local filesystem failure while staging or
// publishing. The location is the destination, not the source.
func (w *Writer) storeFailure(err error) error {
	return &errs.DownloadFailedError{Dependency: w.dependency, Location: w.dest, Cause: err}
}

type progressWriter struct {
	w       io.Writer
	fn      func(int64)
	written int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.fn(p.written)
	return n, err
}
