package download

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/slimdeps/pkg/deps"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

func TestParseChecksum(t *testing.T) {
	sha1Hex := strings.Repeat("a", 40)
	sha256Hex := strings.Repeat("B", 64)

	tests := []struct {
		in      string
		want    Checksum
		wantErr bool
	}{
		{in: "", want: Checksum{}},
		{in: sha1Hex, want: Checksum{Algorithm: "sha1", Hex: sha1Hex}},
		{in: "sha256:" + sha256Hex, want: Checksum{Algorithm: "sha256", Hex: strings.ToLower(sha256Hex)}},
		{in: "SHA-256:" + sha256Hex, want: Checksum{Algorithm: "sha256", Hex: strings.ToLower(sha256Hex)}},
		{in: "md5:" + strings.Repeat("0", 32), want: Checksum{Algorithm: "md5", Hex: strings.Repeat("0", 32)}},
		{in: "abc", wantErr: true},
		{in: "sha1:" + strings.Repeat("a", 64), wantErr: true},
		{in: "crc32:deadbeef", wantErr: true},
		{in: "sha1:" + strings.Repeat("z", 40), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChecksum(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChecksum() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChecksum() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	_ = os.WriteFile(path, []byte("hello"), 0o644)
	c, err := FileChecksum(path, "sha256")
	if err != nil {
		t.Fatal(err)
	}
	if c.Hex != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" {
		t.Errorf("FileChecksum() = %s", c.Hex)
	}
	if c.String() != "sha256:"+c.Hex {
		t.Errorf("String() = %s", c.String())
	}
}

func TestStoreLocations(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	d := deps.Dependency{Group: "a.b", Artifact: "c", Version: "1", Classifier: "x"}

	loc, err := store.LocationFor(d)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(store.Dir(), "a", "b", "c", "1", "c-1-x.jar"); loc != want {
		t.Errorf("LocationFor() = %s, want %s", loc, want)
	}
	again, _ := store.LocationFor(d)
	if again != loc {
		t.Error("LocationFor() must be deterministic")
	}
	rel, _ := store.RelocatedLocationFor(d, "")
	if want := filepath.Join(store.Dir(), RelocatedDir, "a", "b", "c", "1", "c-1-x.jar"); rel != want {
		t.Errorf("RelocatedLocationFor() = %s, want %s", rel, want)
	}
	scoped, _ := store.RelocatedLocationFor(d, "f00d")
	if want := filepath.Join(store.Dir(), RelocatedDir, "a", "b", "c", "1", "c-1-x.f00d.jar"); scoped != want {
		t.Errorf("RelocatedLocationFor(fingerprint) = %s, want %s", scoped, want)
	}

	_, err = store.LocationFor(deps.Dependency{Group: "a", Artifact: "..", Version: "1"})
	if !errs.Is(err, errs.ErrCodeMalformedCoordinate) {
		t.Errorf("LocationFor(malformed) error = %v", err)
	}
}

func TestStoreCreateAndRemove(t *testing.T) {
	store, _ := NewStore(t.TempDir(), WithExtension("pom"))
	d := deps.Dependency{Group: "g", Artifact: "a", Version: "1"}
	w, err := store.Create(d)
	if err != nil {
		t.Fatal(err)
	}
	path, err := w.WriteFrom(strings.NewReader("<project/>"), -1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "a-1.pom") || !Exists(path) {
		t.Errorf("Create() wrote %s", path)
	}
	relocated, _ := store.RelocatedLocationFor(d, "abc123")
	if err := os.MkdirAll(filepath.Dir(relocated), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(relocated, []byte("<project/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(d); err != nil {
		t.Fatal(err)
	}
	if Exists(path) {
		t.Error("Remove() left the artifact")
	}
	if Exists(relocated) {
		t.Error("Remove() left the relocated copy")
	}
	if err := store.Remove(d); err != nil {
		t.Errorf("Remove() of missing artifact: %v", err)
	}
}

func TestNewStoreRequiresDir(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Error("NewStore(\"\") should fail")
	}
}
