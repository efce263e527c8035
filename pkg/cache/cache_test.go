package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/slimdeps/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache should never hit")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("Get on empty cache should miss")
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || !bytes.Equal(data, []byte("v")) {
		t.Fatalf("Get() = %q, %v, %v", data, hit, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("Clear() left %d entries", len(entries))
	}
}

func TestFileCacheConcurrent(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Set(ctx, "shared", []byte("value"), time.Hour)
			if data, hit, _ := c.Get(ctx, "shared"); hit && string(data) != "value" {
				t.Errorf("torn read: %q", data)
			}
		}()
	}
	wg.Wait()
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestShortHash(t *testing.T) {
	full := Hash([]byte("rules"))
	tests := []struct {
		n    int
		want string
	}{
		{16, full[:16]},
		{0, full},
		{100, full},
	}
	for _, tt := range tests {
		if got := ShortHash([]byte("rules"), tt.n); got != tt.want {
			t.Errorf("ShortHash(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	repos := []string{"https://r1/", "https://r2/"}

	k1 := k.ResolveKey("a:b:1", "jar", repos)
	if k1 != k.ResolveKey("a:b:1", "jar", repos) {
		t.Error("ResolveKey should be deterministic")
	}
	if k1 == k.ResolveKey("a:b:1", "jar", []string{"https://r2/", "https://r1/"}) {
		t.Error("repository order must change the key")
	}
	if k1 == k.ResolveKey("a:b:1", "pom", repos) {
		t.Error("extension must change the key")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "proj:")

	want := "proj:" + inner.ResolveKey("a:b:1", "jar", nil)
	if got := scoped.ResolveKey("a:b:1", "jar", nil); got != want {
		t.Errorf("ResolveKey = %q, want %q", got, want)
	}
	if got := NewScopedKeyer(nil, "x:").ResolveKey("a:b:1", "jar", nil); got != "x:"+inner.ResolveKey("a:b:1", "jar", nil) {
		t.Errorf("nil inner keyer: %q", got)
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	mu                sync.Mutex
	hits, misses, set int
}

func (h *countingHooks) OnCacheHit(context.Context, string) {
	h.mu.Lock()
	h.hits++
	h.mu.Unlock()
}

func (h *countingHooks) OnCacheMiss(context.Context, string) {
	h.mu.Lock()
	h.misses++
	h.mu.Unlock()
}

func (h *countingHooks) OnCacheSet(context.Context, string, int) {
	h.mu.Lock()
	h.set++
	h.mu.Unlock()
}

func TestInstrument(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	c := Instrument(fc, "resolve")

	_, _, _ = c.Get(ctx, "k")
	_ = c.Set(ctx, "k", []byte("v"), 0)
	_, _, _ = c.Get(ctx, "k")

	if hooks.hits != 1 || hooks.misses != 1 || hooks.set != 1 {
		t.Errorf("hits=%d misses=%d set=%d, want 1/1/1", hooks.hits, hooks.misses, hooks.set)
	}
}
