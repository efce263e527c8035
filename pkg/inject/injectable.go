package inject

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Injectable makes an artifact available to running code. What "available"
// means is up to the implementation: appending to a class path, linking
// into a directory, registering with a loader.
type Injectable interface {
	Inject(location string) error
}

// Func adapts a function to the Injectable interface.
type Func func(location string) error

// Inject calls f(location).
func (f Func) Inject(location string) error { return f(location) }

// Classpath collects artifact locations in injection order. Repeated
// locations are ignored. It is safe for concurrent use.
type Classpath struct {
	mu      sync.Mutex
	entries []string
	seen    map[string]bool
}

// Inject appends the absolute form of location.
func (c *Classpath) Inject(location string) error {
	abs, err := filepath.Abs(location)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[abs] {
		return nil
	}
	c.seen[abs] = true
	c.entries = append(c.entries, abs)
	return nil
}

// Entries returns a copy of the collected locations.
func (c *Classpath) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.entries...)
}

// String joins the entries with the platform list separator, ready for
// -cp or CLASSPATH.
func (c *Classpath) String() string {
	return strings.Join(c.Entries(), string(filepath.ListSeparator))
}

// WriteFile writes the class path to path followed by a newline.
func (c *Classpath) WriteFile(path string) error {
	return os.WriteFile(path, []byte(c.String()+"\n"), 0o644)
}

// LinkDir places every injected artifact in Dir under its base name, using
// a hard link when possible and a copy otherwise.
type LinkDir struct {
	Dir string
}

// Inject links or copies location into the directory.
func (l LinkDir) Inject(location string) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(l.Dir, filepath.Base(location))

	src, err := os.Stat(location)
	if err != nil {
		return err
	}
	if dst, err := os.Stat(dest); err == nil && os.SameFile(src, dst) {
		return nil
	}

	tmp := dest + ".part-" + uuid.NewString()
	if err := os.Link(location, tmp); err != nil {
		if err := copyFile(location, tmp); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("copy %s: %w", location, err)
		}
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	//nolint:gosec // G304: src is a stored artifact
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	//nolint:gosec // G304: dst is inside the link directory
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
