package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/slimdeps/pkg/deps"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
	"github.com/matzehuels/slimdeps/pkg/resolver"
	"github.com/matzehuels/slimdeps/pkg/transport"
)

func newStoreServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"com/ex/lib/1.0/lib-1.0.jar":        "jar-bytes",
		"com/ex/lib/1.0/lib-1.0.jar.part-x": "partial",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, dir
}

func TestServer(t *testing.T) {
	ts, _ := newStoreServer(t)

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/healthz", http.StatusOK, "ok\n"},
		{http.MethodGet, "/com/ex/lib/1.0/lib-1.0.jar", http.StatusOK, "jar-bytes"},
		{http.MethodHead, "/com/ex/lib/1.0/lib-1.0.jar", http.StatusOK, ""},
		{http.MethodHead, "/com/ex/lib/2.0/lib-2.0.jar", http.StatusNotFound, ""},
		{http.MethodGet, "/com/ex/lib/1.0/", http.StatusNotFound, ""},
		{http.MethodGet, "/com/ex/lib/1.0/lib-1.0.jar.part-x", http.StatusNotFound, ""},
		{http.MethodGet, "/com/../../etc/passwd", http.StatusBadRequest, ""},
		{http.MethodPost, "/com/ex/lib/1.0/lib-1.0.jar", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.body != "" {
				b, _ := io.ReadAll(resp.Body)
				if string(b) != tt.body {
					t.Errorf("body = %q, want %q", b, tt.body)
				}
			}
		})
	}
}

func TestServerHeadReportsLength(t *testing.T) {
	ts, _ := newStoreServer(t)
	resp, err := http.Head(ts.URL + "/com/ex/lib/1.0/lib-1.0.jar")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.ContentLength != int64(len("jar-bytes")) {
		t.Errorf("Content-Length = %d", resp.ContentLength)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/java-archive" {
		t.Errorf("Content-Type = %s", ct)
	}
}

// TestServerAsRepository resolves against a served store.
func TestServerAsRepository(t *testing.T) {
	ts, _ := newStoreServer(t)
	res := resolver.New([]deps.Repository{{URL: ts.URL}}, transport.Default(nil), resolver.Options{})

	loc, err := res.Resolve(context.Background(), deps.Dependency{Group: "com.ex", Artifact: "lib", Version: "1.0"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if loc.URL != ts.URL+"/com/ex/lib/1.0/lib-1.0.jar" {
		t.Errorf("Location = %s", loc.URL)
	}
}

func TestNewRejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	if !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("New() error = %v", err)
	}
	file := filepath.Join(t.TempDir(), "f")
	_ = os.WriteFile(file, nil, 0o644)
	if _, err := New(file); !errs.Is(err, errs.ErrCodeInvalidPath) {
		t.Errorf("New(file) error = %v", err)
	}
}

func TestListenAndServe(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a }) }()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr.String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
