// Package testutil locates shared test fixtures and loads them into an
// in-memory file system.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/bazelbuild/rules_go/go/tools/bazel"
	"github.com/stretchr/testify/require"

	"martianoff/flowc/internal/pathres"
	"martianoff/flowc/internal/vfs"
)

// Root returns the module root. In Bazel tests it is found through the
// runfiles of go.mod; otherwise by walking up from the working directory.
func Root(t testing.TB) string {
	t.Helper()
	if modPath, err := bazel.Runfile("go.mod"); err == nil {
		return filepath.Dir(modPath)
	}

	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above the working directory")
		}
		dir = parent
	}
}

// Testdata returns the absolute path of a file or directory below the
// module's testdata directory.
func Testdata(t testing.TB, elem ...string) string {
	t.Helper()
	return filepath.Join(append([]string{Root(t), "testdata"}, elem...)...)
}

// Files reads every file below testdata/dir and returns them keyed by
// virtual path under mount.
func Files(t testing.TB, dir, mount string) map[string]string {
	t.Helper()
	base := Testdata(t, dir)
	files := make(map[string]string)
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files[pathres.Join(mount, filepath.ToSlash(rel))] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

// MemoryFS loads testdata/dir into a fresh in-memory file system mounted at
// mount. Extra files are added on top.
func MemoryFS(t testing.TB, dir, mount string, extra map[string]string) *vfs.Billy {
	t.Helper()
	files := Files(t, dir, mount)
	for p, content := range extra {
		files[p] = content
	}
	fsys, err := vfs.NewMemory(files)
	require.NoError(t, err)
	return fsys
}
