package zealfs

import (
	"testing"
	"testing/fstest"

	"github.com/spf13/afero"
)

// TestGoFS runs the stdlib filesystem test suite against the io/fs adapter
// on a populated image.
func TestGoFS(t *testing.T) {
	backing, err := afero.NewMemMapFs().Create("test.img")
	if err != nil {
		t.Fatal(err)
	}
	gofs, err := NewGoFS(backing, Options{Variant: V2, SizeKiB: 256})
	if err != nil {
		t.Fatal(err)
	}

	files := map[string][]byte{
		"/hello.txt":      []byte("Hello, World!"),
		"/docs/notes.txt": pattern(700),
		"/docs/empty":     nil,
	}
	if err := gofs.Mkdir("/docs", 0777); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		file, err := gofs.Create(name)
		if err != nil {
			t.Fatalf("Create(%v) error = %v", name, err)
		}
		if _, err := file.Write(content); err != nil {
			t.Fatalf("Write(%v) error = %v", name, err)
		}
		if err := file.Close(); err != nil {
			t.Fatal(err)
		}
	}

	if err := fstest.TestFS(gofs, "hello.txt", "docs/notes.txt", "docs/empty"); err != nil {
		t.Fatal(err)
	}
}

func TestGoFSOpenInvalid(t *testing.T) {
	backing, err := afero.NewMemMapFs().Create("test.img")
	if err != nil {
		t.Fatal(err)
	}
	gofs, err := NewGoFS(backing, Options{Variant: V1, SizeKiB: 32})
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"/rooted", "a//b", "../escape", ""} {
		if _, err := gofs.Open(name); err == nil {
			t.Errorf("Open(%q) should fail on an invalid fs.FS name", name)
		}
	}
}
