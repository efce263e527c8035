package relocation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/slimdeps/pkg/cache"
	"github.com/matzehuels/slimdeps/pkg/deps"
)

const servicesDir = "META-INF/services/"

// ZipRelocator relocates jar archives: entry paths, class file constant
// pools and META-INF/services descriptors are rewritten according to Rules.
// Entries that collide after relocation keep the first occurrence.
type ZipRelocator struct {
	Rules []Rule
}

// NewZipRelocator returns a ZipRelocator for manifest relocation rules.
func NewZipRelocator(rules []deps.RelocationRule) *ZipRelocator {
	return &ZipRelocator{Rules: RulesFrom(rules)}
}

// Fingerprint returns the first 16 hex digits of the SHA-256 of the rules.
// Rule order is significant, so reordering rules changes the fingerprint.
func (z *ZipRelocator) Fingerprint() string {
	data, _ := json.Marshal(z.Rules)
	return cache.ShortHash(data, 16)
}

// Relocate writes the relocated archive to output. The archive is built in
// a staging file next to output and renamed into place only when complete.
func (z *ZipRelocator) Relocate(input, output string) error {
	r, err := zip.OpenReader(input)
	if err != nil {
		return fmt.Errorf("open %s: %w", input, err)
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	staged := output + ".part-" + uuid.NewString()
	//nolint:gosec // G304: output path is derived from the store layout
	f, err := os.OpenFile(staged, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	published := false
	defer func() {
		if !published {
			_ = f.Close()
			_ = os.Remove(staged)
		}
	}()

	w := zip.NewWriter(f)
	seen := make(map[string]bool, len(r.File))
	for _, entry := range r.File {
		name := z.entryName(entry.Name)
		if seen[name] {
			continue
		}
		seen[name] = true
		if err := z.copyEntry(w, entry, name); err != nil {
			return fmt.Errorf("%s: %w", entry.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(staged, output); err != nil {
		return err
	}
	published = true
	return nil
}

// entryName maps an archive path to its relocated path.
func (z *ZipRelocator) entryName(name string) string {
	if strings.HasPrefix(name, servicesDir) {
		svc := strings.TrimPrefix(name, servicesDir)
		if svc == "" {
			return name
		}
		mapped, _ := mapDotted(z.Rules, svc)
		return servicesDir + mapped
	}

	dir := strings.HasSuffix(name, "/")
	trimmed := strings.TrimSuffix(name, "/")
	ext := ""
	if strings.HasSuffix(trimmed, ".class") {
		ext = ".class"
		trimmed = strings.TrimSuffix(trimmed, ext)
	}
	mapped, ok := mapSlashed(z.Rules, trimmed)
	if !ok {
		return name
	}
	if dir {
		return mapped + "/"
	}
	return mapped + ext
}

func (z *ZipRelocator) copyEntry(w *zip.Writer, entry *zip.File, name string) error {
	header := entry.FileHeader
	header.Name = name

	if entry.FileInfo().IsDir() {
		_, err := w.CreateHeader(&header)
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dst, err := w.CreateHeader(&header)
	if err != nil {
		return err
	}

	switch {
	case strings.HasSuffix(entry.Name, ".class"):
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		rewritten, err := relocateClass(z.Rules, data)
		if err != nil {
			return err
		}
		_, err = dst.Write(rewritten)
		return err
	case strings.HasPrefix(entry.Name, servicesDir):
		return z.rewriteServices(dst, rc)
	default:
		_, err = io.Copy(dst, rc)
		return err
	}
}

// rewriteServices relocates the provider class names listed in a service
// descriptor, one per line. Comments and blank lines are kept.
func (z *ZipRelocator) rewriteServices(dst io.Writer, src io.Reader) error {
	scanner := bufio.NewScanner(src)
	bw := bufio.NewWriter(dst)
	for scanner.Scan() {
		line := scanner.Text()
		name, _, _ := strings.Cut(line, "#")
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			mapped, _ := mapDotted(z.Rules, trimmed)
			line = strings.Replace(line, trimmed, mapped, 1)
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return bw.Flush()
}
