package inject

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClasspath(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jar")
	b := filepath.Join(dir, "b.jar")

	cp := &Classpath{}
	for _, loc := range []string{a, b, a} {
		if err := cp.Inject(loc); err != nil {
			t.Fatal(err)
		}
	}
	if got := cp.Entries(); len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("Entries() = %v", got)
	}
	want := a + string(filepath.ListSeparator) + b
	if cp.String() != want {
		t.Errorf("String() = %q, want %q", cp.String(), want)
	}

	out := filepath.Join(dir, "classpath.txt")
	if err := cp.WriteFile(out); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(out)
	if strings.TrimSpace(string(data)) != want {
		t.Errorf("file = %q", data)
	}
}

func TestLinkDir(t *testing.T) {
	src := filepath.Join(t.TempDir(), "lib-1.jar")
	if err := os.WriteFile(src, []byte("jar"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := LinkDir{Dir: filepath.Join(t.TempDir(), "libs")}

	for i := 0; i < 2; i++ {
		if err := target.Inject(src); err != nil {
			t.Fatalf("Inject() #%d error = %v", i, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(target.Dir, "lib-1.jar"))
	if err != nil || string(data) != "jar" {
		t.Errorf("linked file = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(target.Dir)
	if len(entries) != 1 {
		t.Errorf("link dir holds %d entries, want 1", len(entries))
	}

	if err := target.Inject(filepath.Join(t.TempDir(), "missing.jar")); err == nil {
		t.Error("Inject() of a missing artifact should fail")
	}
}
