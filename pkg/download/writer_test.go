package download

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

type failingReader struct {
	data []byte
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset")
}

func TestWriterPublishes(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "g", "a", "a-1.jar")
	w, err := NewWriter("g:a:1", dest)
	if err != nil {
		t.Fatal(err)
	}
	var progress []int64
	w.Progress = func(n int64) { progress = append(progress, n) }

	got, err := w.WriteFrom(strings.NewReader("hello"), 5)
	if err != nil {
		t.Fatalf("WriteFrom() error = %v", err)
	}
	if got != dest || w.Destination() != dest {
		t.Errorf("WriteFrom() = %s, want %s", got, dest)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}
	if len(progress) == 0 || progress[len(progress)-1] != 5 {
		t.Errorf("progress = %v", progress)
	}
}

func TestWriterFailuresLeaveNothing(t *testing.T) {
	tests := []struct {
		name     string
		reader   func() io.Reader
		expected int64
		expect   Checksum
		verify   func(string) error
		code     errs.Code
	}{
		{
			name:     "short body",
			reader:   func() io.Reader { return strings.NewReader("hel") },
			expected: 5,
			code:     errs.ErrCodeDownloadFailed,
		},
		{
			name:     "long body",
			reader:   func() io.Reader { return strings.NewReader("hello world") },
			expected: 5,
			code:     errs.ErrCodeDownloadFailed,
		},
		{
			name:     "interrupted stream",
			reader:   func() io.Reader { return &failingReader{data: []byte("partial")} },
			expected: -1,
			code:     errs.ErrCodeDownloadFailed,
		},
		{
			name:     "checksum mismatch",
			reader:   func() io.Reader { return strings.NewReader("hello") },
			expected: -1,
			expect:   Checksum{Algorithm: "sha256", Hex: strings.Repeat("0", 64)},
			code:     errs.ErrCodeIntegrity,
		},
		{
			name:     "verify hook rejects",
			reader:   func() io.Reader { return strings.NewReader("hello") },
			expected: -1,
			verify: func(string) error {
				return &errs.IntegrityError{Dependency: "g:a:1", Algorithm: "pgp", Cause: errors.New("bad signature")}
			},
			code: errs.ErrCodeSignatureInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "a-1.jar")
			w, _ := NewWriter("g:a:1", dest)
			w.Expect = tt.expect
			w.Verify = tt.verify

			_, err := w.WriteFrom(tt.reader(), tt.expected)
			if !errs.Is(err, tt.code) {
				t.Fatalf("WriteFrom() error = %v, want %s", err, tt.code)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("directory not empty after failure: %v", entries)
			}
		})
	}
}

func TestWriterLengthMismatchCause(t *testing.T) {
	w, _ := NewWriter("g:a:1", filepath.Join(t.TempDir(), "a.jar"))
	w.Source = "https://repo.tld/a.jar"
	_, err := w.WriteFrom(strings.NewReader("abc"), 4)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("error = %v, want ErrLengthMismatch", err)
	}
	if !strings.Contains(err.Error(), "https://repo.tld/a.jar") {
		t.Errorf("error should name the source: %v", err)
	}
}

func TestWriterReplacesExisting(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a.jar")
	_ = os.WriteFile(dest, []byte("old"), 0o644)
	w, _ := NewWriter("g:a:1", dest)
	if _, err := w.WriteFrom(strings.NewReader("new"), -1); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "new" {
		t.Errorf("content = %q", data)
	}
}

func TestWriterPublishFailureIsDownloadFailed(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a-1.jar")
	// A non-empty directory at the destination makes the final rename fail.
	if err := os.MkdirAll(filepath.Join(dest, "occupied"), 0o755); err != nil {
		t.Fatal(err)
	}
	w, err := NewWriter("g:a:1", dest)
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.WriteFrom(strings.NewReader("bytes"), -1)
	var df *errs.DownloadFailedError
	if !errors.As(err, &df) {
		t.Fatalf("WriteFrom() error = %v, want DownloadFailedError", err)
	}
	if df.Dependency != "g:a:1" || df.Location != dest {
		t.Errorf("error = %+v", df)
	}
	if found := stagingFiles(t, filepath.Dir(dest)); len(found) != 0 {
		t.Errorf("staging files left behind: %v", found)
	}

	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWriter("g:a:1", filepath.Join(blocker, "sub", "a.jar")); !errs.Is(err, errs.ErrCodeDownloadFailed) {
		t.Errorf("NewWriter() under a file error = %v, want DOWNLOAD_FAILED", err)
	}
}
