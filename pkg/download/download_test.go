package download

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/matzehuels/slimdeps/pkg/deps"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
	"github.com/matzehuels/slimdeps/pkg/resolver"
	"github.com/matzehuels/slimdeps/pkg/transport"
)

var testDep = deps.Dependency{Group: "a.b", Artifact: "lib", Version: "1.0"}

const artifactPath = "/a/b/lib/1.0/lib-1.0.jar"

// repo is a minimal HTTP repository that counts GET requests per path.
type repo struct {
	mu    sync.Mutex
	files map[string][]byte
	gets  map[string]int
	delay time.Duration
}

func newRepo(t *testing.T, files map[string][]byte) (*repo, *httptest.Server) {
	t.Helper()
	r := &repo{files: files, gets: map[string]int{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		data, ok := r.files[req.URL.Path]
		if req.Method == http.MethodGet {
			r.gets[req.URL.Path]++
		}
		r.mu.Unlock()
		if !ok {
			http.NotFound(w, req)
			return
		}
		if r.delay > 0 {
			time.Sleep(r.delay)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if req.Method == http.MethodGet {
			w.Write(data)
		}
	}))
	t.Cleanup(server.Close)
	return r, server
}

func (r *repo) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets[path]
}

func newDownloader(t *testing.T, base string, opts Options) *Downloader {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tr := transport.Default(transport.NewHTTP())
	res := resolver.New([]deps.Repository{{URL: base}}, tr, resolver.Options{})
	return New(res, tr, store, opts)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func stagingFiles(t *testing.T, dir string) []string {
	t.Helper()
	var found []string
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && strings.Contains(info.Name(), stagingMarker) {
			found = append(found, path)
		}
		return nil
	})
	return found
}

func TestDownload(t *testing.T) {
	content := []byte("jar-bytes")
	_, server := newRepo(t, map[string][]byte{artifactPath: content})
	dl := newDownloader(t, server.URL, Options{})

	art, err := dl.Download(context.Background(), testDep)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	want, _ := dl.Store().LocationFor(testDep)
	if art.Path != want {
		t.Errorf("Path = %s, want %s", art.Path, want)
	}
	got, _ := os.ReadFile(art.Path)
	if !bytes.Equal(got, content) {
		t.Errorf("stored content = %q", got)
	}
	if art.Reused || art.Size != int64(len(content)) {
		t.Errorf("artifact = %+v", art)
	}
	if art.Location.URL != server.URL+artifactPath {
		t.Errorf("Location = %s", art.Location.URL)
	}
}

func TestDownloadReusesStoredArtifact(t *testing.T) {
	content := []byte("jar-bytes")
	r, server := newRepo(t, map[string][]byte{artifactPath: content})
	dl := newDownloader(t, server.URL, Options{})
	ctx := context.Background()

	if _, err := dl.Download(ctx, testDep); err != nil {
		t.Fatal(err)
	}
	// A new downloader over the same store models a re-run.
	tr := transport.Default(transport.NewHTTP())
	rerun := New(resolver.New([]deps.Repository{{URL: server.URL}}, tr, resolver.Options{}), tr, dl.Store(), Options{})
	art, err := rerun.Download(ctx, testDep)
	if err != nil {
		t.Fatal(err)
	}
	if !art.Reused {
		t.Error("second download should reuse the stored artifact")
	}
	if r.count(artifactPath) != 1 {
		t.Errorf("GET count = %d, want 1", r.count(artifactPath))
	}
}

func TestDownloadReuseChecksChecksum(t *testing.T) {
	content := []byte("good")
	r, server := newRepo(t, map[string][]byte{artifactPath: content})
	d := testDep
	d.Checksum = "sha256:" + sha256Hex(content)
	dl := newDownloader(t, server.URL, Options{})
	ctx := context.Background()

	art, err := dl.Download(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(art.Path, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}

	dl2 := New(resolver.New([]deps.Repository{{URL: server.URL}}, transport.Default(nil), resolver.Options{}), transport.Default(nil), dl.Store(), Options{})
	art, err = dl2.Download(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	if art.Reused {
		t.Error("tampered artifact must not be reused")
	}
	got, _ := os.ReadFile(art.Path)
	if string(got) != "good" {
		t.Errorf("content = %q after refetch", got)
	}
	if r.count(artifactPath) != 2 {
		t.Errorf("GET count = %d, want 2", r.count(artifactPath))
	}
}

func TestDownloadChecksumMismatch(t *testing.T) {
	_, server := newRepo(t, map[string][]byte{artifactPath: []byte("evil")})
	d := testDep
	d.Checksum = sha256Hex([]byte("good"))
	dl := newDownloader(t, server.URL, Options{})

	_, err := dl.Download(context.Background(), d)
	var ie *errs.IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("Download() error = %v, want IntegrityError", err)
	}
	if ie.Expected != sha256Hex([]byte("good")) || ie.Actual != sha256Hex([]byte("evil")) {
		t.Errorf("IntegrityError = %+v", ie)
	}
	dest, _ := dl.Store().LocationFor(d)
	if Exists(dest) {
		t.Error("destination must not exist after checksum mismatch")
	}
	if s := stagingFiles(t, dl.Store().Dir()); len(s) != 0 {
		t.Errorf("staging files left behind: %v", s)
	}
}

func TestDownloadInvalidDeclaredChecksum(t *testing.T) {
	_, server := newRepo(t, map[string][]byte{artifactPath: []byte("x")})
	d := testDep
	d.Checksum = "sha256:zz"
	_, err := newDownloader(t, server.URL, Options{}).Download(context.Background(), d)
	if !errs.Is(err, errs.ErrCodeInvalidManifest) {
		t.Errorf("Download() error = %v, want INVALID_MANIFEST", err)
	}
}

func TestDownloadUnresolved(t *testing.T) {
	_, server := newRepo(t, map[string][]byte{})
	_, err := newDownloader(t, server.URL, Options{}).Download(context.Background(), testDep)
	if !errs.Is(err, errs.ErrCodeUnresolvedDependency) {
		t.Errorf("Download() error = %v, want UNRESOLVED_DEPENDENCY", err)
	}
}

// vanishingTransport probes successfully but the artifact is gone by the
// time it is opened.
type vanishingTransport struct{ transport.File }

func (vanishingTransport) Probe(context.Context, *url.URL) error { return nil }

func TestDownloadOpenFailure(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	tr := vanishingTransport{}
	res := resolver.New([]deps.Repository{{URL: "file://" + filepath.ToSlash(t.TempDir())}}, tr, resolver.Options{})
	dl := New(res, tr, store, Options{})

	_, err := dl.Download(context.Background(), testDep)
	var de *errs.DownloadFailedError
	if !errors.As(err, &de) {
		t.Fatalf("Download() error = %v, want DownloadFailedError", err)
	}
	if !errors.Is(err, transport.ErrNotFound) {
		t.Errorf("cause = %v, want ErrNotFound", de.Cause)
	}
	if res.Memo().Len() != 0 {
		t.Error("stale location should be forgotten")
	}
}

func TestDownloadSidecar(t *testing.T) {
	content := []byte("jar")
	sum := sha1.Sum(content) //nolint:gosec
	good := hex.EncodeToString(sum[:]) + "  lib-1.0.jar\n"

	tests := []struct {
		name    string
		sidecar string
		wantErr bool
	}{
		{"matching sidecar", good, false},
		{"mismatching sidecar", strings.Repeat("0", 40), true},
		{"missing sidecar", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := map[string][]byte{artifactPath: content}
			if tt.sidecar != "" {
				files[artifactPath+".sha1"] = []byte(tt.sidecar)
			}
			_, server := newRepo(t, files)
			_, err := newDownloader(t, server.URL, Options{FetchChecksums: true}).Download(context.Background(), testDep)
			if tt.wantErr {
				if !errs.Is(err, errs.ErrCodeIntegrity) {
					t.Errorf("Download() error = %v, want INTEGRITY", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Download() error = %v", err)
			}
		})
	}
}

func TestDownloadConcurrentSingleTransfer(t *testing.T) {
	r, server := newRepo(t, map[string][]byte{artifactPath: []byte("shared")})
	r.delay = 30 * time.Millisecond
	dl := newDownloader(t, server.URL, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := dl.Download(context.Background(), testDep); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if n := r.count(artifactPath); n != 1 {
		t.Errorf("GET count = %d, want 1", n)
	}
}

func TestDownloadForce(t *testing.T) {
	r, server := newRepo(t, map[string][]byte{artifactPath: []byte("x")})
	dl := newDownloader(t, server.URL, Options{Force: true})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := dl.Download(ctx, testDep); err != nil {
			t.Fatal(err)
		}
	}
	if r.count(artifactPath) != 2 {
		t.Errorf("GET count = %d, want 2 with Force", r.count(artifactPath))
	}
}

func newTestKey(t *testing.T) (*openpgp.Entity, []byte) {
	t.Helper()
	entity, err := openpgp.NewEntity("slimdeps test", "", "test@example.com", &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatal(err)
	}
	w.Close()
	return entity, buf.Bytes()
}

func sign(t *testing.T, signer *openpgp.Entity, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, signer, bytes.NewReader(data), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDownloadSignature(t *testing.T) {
	signer, pub := newTestKey(t)
	other, _ := newTestKey(t)
	content := []byte("signed jar")

	verifier, err := NewPGPVerifier(bytes.NewReader(pub))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		signature []byte
		wantErr   bool
	}{
		{"valid signature", sign(t, signer, content), false},
		{"wrong key", sign(t, other, content), true},
		{"missing signature", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := map[string][]byte{artifactPath: content}
			if tt.signature != nil {
				files[artifactPath+SignatureSuffix] = tt.signature
			}
			_, server := newRepo(t, files)
			dl := newDownloader(t, server.URL, Options{Verifier: verifier})
			_, err := dl.Download(context.Background(), testDep)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Download() error = %v", err)
				}
				return
			}
			if !errs.Is(err, errs.ErrCodeSignatureInvalid) {
				t.Errorf("Download() error = %v, want SIGNATURE_INVALID", err)
			}
			dest, _ := dl.Store().LocationFor(testDep)
			if Exists(dest) {
				t.Error("unverified artifact must not be published")
			}
		})
	}
}

func TestDownloadReuseChecksSignature(t *testing.T) {
	signer, pub := newTestKey(t)
	content := []byte("signed jar")
	verifier, err := NewPGPVerifier(bytes.NewReader(pub))
	if err != nil {
		t.Fatal(err)
	}
	r, server := newRepo(t, map[string][]byte{
		artifactPath:                   content,
		artifactPath + SignatureSuffix: sign(t, signer, content),
	})
	ctx := context.Background()
	rerun := func(store *Store, opts Options) *Downloader {
		tr := transport.Default(transport.NewHTTP())
		return New(resolver.New([]deps.Repository{{URL: server.URL}}, tr, resolver.Options{}), tr, store, opts)
	}

	// Stored by a run without signature checks: no signature is kept.
	unsigned := newDownloader(t, server.URL, Options{})
	if _, err := unsigned.Download(ctx, testDep); err != nil {
		t.Fatal(err)
	}
	art, err := rerun(unsigned.Store(), Options{Verifier: verifier}).Download(ctx, testDep)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if art.Reused || r.count(artifactPath) != 2 {
		t.Errorf("artifact without a stored signature was reused (GETs = %d)", r.count(artifactPath))
	}
	if !Exists(art.Path + SignatureSuffix) {
		t.Error("verified download did not keep its signature")
	}

	art, err = rerun(unsigned.Store(), Options{Verifier: verifier}).Download(ctx, testDep)
	if err != nil {
		t.Fatal(err)
	}
	if !art.Reused || r.count(artifactPath) != 2 {
		t.Errorf("signed artifact not reused (GETs = %d)", r.count(artifactPath))
	}

	// Tampering with the stored artifact invalidates it.
	if err := os.WriteFile(art.Path, []byte("tampered!!"), 0o644); err != nil {
		t.Fatal(err)
	}
	art, err = rerun(unsigned.Store(), Options{Verifier: verifier}).Download(ctx, testDep)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(art.Path)
	if art.Reused || !bytes.Equal(got, content) {
		t.Errorf("tampered artifact reused: %q", got)
	}
}
