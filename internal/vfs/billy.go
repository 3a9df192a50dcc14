package vfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Billy adapts any go-billy filesystem to FS.
type Billy struct {
	fs billy.Filesystem
}

// NewBilly wraps a go-billy filesystem.
func NewBilly(fs billy.Filesystem) *Billy {
	return &Billy{fs: fs}
}

// NewOS returns an FS rooted at dir on the host disk. Virtual "/" maps to dir.
func NewOS(dir string) *Billy {
	return NewBilly(osfs.New(dir))
}

// NewMemory returns an in-memory FS pre-populated with files (path -> content).
func NewMemory(files map[string]string) (*Billy, error) {
	fs := memfs.New()
	for p, content := range files {
		if err := util.WriteFile(fs, clean(p), []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	return NewBilly(fs), nil
}

// Filesystem exposes the wrapped filesystem, mostly for tests that mutate files.
func (b *Billy) Filesystem() billy.Filesystem {
	return b.fs
}

// Read implements FS.
func (b *Billy) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p = clean(p)
	info, err := b.fs.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}
	f, err := b.fs.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// ListTree implements FS.
func (b *Billy) ListTree(ctx context.Context, root string) ([]Entry, error) {
	root = clean(root)
	var entries []Entry
	err := util.Walk(b.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p = clean(p)
		if p == root && info.IsDir() {
			return nil
		}
		if info.IsDir() {
			entries = append(entries, Entry{Path: p, Type: TypeDir})
		} else {
			entries = append(entries, Entry{Path: p, Type: TypeFile})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteFile writes content at p, creating parent directories.
func (b *Billy) WriteFile(p string, content []byte) error {
	p = clean(p)
	if err := b.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return err
	}
	return util.WriteFile(b.fs, p, content, 0o644)
}

// Remove deletes the file at p.
func (b *Billy) Remove(p string) error {
	return b.fs.Remove(clean(p))
}

// Rename moves the file at from to to.
func (b *Billy) Rename(from, to string) error {
	to = clean(to)
	if err := b.fs.MkdirAll(path.Dir(to), 0o755); err != nil {
		return err
	}
	return b.fs.Rename(clean(from), to)
}

var _ FS = (*Billy)(nil)
