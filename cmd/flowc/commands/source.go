package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"martianoff/flowc/internal/model"
	"martianoff/flowc/internal/vfs"
)

// openSource returns the file system a build reads. Virtual "/" is root on
// disk, or the repository root when a git revision is requested.
func openSource(root, rev string) (vfs.FS, error) {
	if rev != "" {
		g, err := vfs.OpenGit(root, rev)
		if err != nil {
			return nil, fmt.Errorf("opening revision %s of %s: %w", rev, root, err)
		}
		return g, nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return vfs.NewOS(abs), nil
}

func readModel(path string) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := model.Decode(f, model.FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return m, nil
}

// writeModel writes m to path, or as JSON to stdout when path is "-".
func writeModel(stdout io.Writer, path string, m *model.Model) error {
	if path == "-" {
		return model.Encode(stdout, m, model.FormatJSON)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := model.Encode(f, m, model.FormatForPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
