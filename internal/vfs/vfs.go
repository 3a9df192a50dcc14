// Package vfs defines the virtual file-system contract the loader reads graph
// files through, together with implementations backed by go-billy
// filesystems (disk or memory) and by a git revision.
//
// Paths are absolute and posix-style ("/src/items.flow.ts") regardless of
// the host platform.
package vfs

import (
	"context"
	"path"
	"sort"
)

// EntryType distinguishes files from directories in a tree listing.
type EntryType string

const (
	TypeFile EntryType = "file"
	TypeDir  EntryType = "dir"
)

// Entry is one element of a ListTree result.
type Entry struct {
	Path string
	Type EntryType
}

// FS supplies raw file bytes to the loader.
//
// Read returns (nil, nil) when the file does not exist; a non-nil error is
// reserved for I/O failures. ListTree returns every entry below root.
type FS interface {
	Read(ctx context.Context, path string) ([]byte, error)
	ListTree(ctx context.Context, root string) ([]Entry, error)
}

// Exists reports whether path can be read as a file.
func Exists(ctx context.Context, fs FS, p string) (bool, error) {
	data, err := fs.Read(ctx, p)
	if err != nil {
		return false, err
	}
	return data != nil, nil
}

// Files returns the sorted file paths below root.
func Files(ctx context.Context, fs FS, root string) ([]string, error) {
	entries, err := fs.ListTree(ctx, root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type == TypeFile {
			files = append(files, e.Path)
		}
	}
	sort.Strings(files)
	return files, nil
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
