package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/slimdeps/pkg/cache"
	"github.com/matzehuels/slimdeps/pkg/config"
	errs "github.com/matzehuels/slimdeps/pkg/errors"
)

func testCLI(t *testing.T) *CLI {
	t.Helper()
	dir := t.TempDir()
	c := New(&bytes.Buffer{}, log.InfoLevel)
	c.cfg = config.Default()
	c.cfg.Store.Dir = filepath.Join(dir, "store")
	c.cfg.Cache.Dir = filepath.Join(dir, "resolve")
	return c
}

func TestCacheClear(t *testing.T) {
	c := testCLI(t)
	fc, err := cache.NewFileCache(c.cfg.Cache.Dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := fc.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(c.cfg.Store.Dir, 0o755); err != nil {
		t.Fatal(err)
	}

	cmd := c.cacheClearCommand()
	cmd.SetArgs([]string{"--store"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	if _, ok, _ := fc.Get(ctx, "k"); ok {
		t.Error("cache entry survived clear")
	}
	if _, err := os.Stat(c.cfg.Store.Dir); !os.IsNotExist(err) {
		t.Errorf("store dir still exists: %v", err)
	}
}

func TestCacheClearEmpty(t *testing.T) {
	c := testCLI(t)
	cmd := c.cacheClearCommand()
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("cache clear on missing dir: %v", err)
	}
}

func TestCacheClearRemoteBackend(t *testing.T) {
	c := testCLI(t)
	c.cfg.Cache.Backend = config.BackendRedis
	err := c.clearResolutions()
	if !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("clearResolutions() = %v, want UNSUPPORTED", err)
	}
}

func TestCachePath(t *testing.T) {
	c := testCLI(t)
	var out bytes.Buffer
	cmd := c.cachePathCommand()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "store\t"+c.cfg.Store.Dir) || !strings.Contains(got, "cache\t"+c.cfg.Cache.Dir) {
		t.Errorf("cache path output = %q", got)
	}
}
