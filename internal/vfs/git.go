package vfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"golang.org/x/mod/semver"
)

// Latest selects the highest semver tag when passed as a revision to NewGit.
const Latest = "latest"

// Git serves the tree of one commit of a git repository. Nothing is checked
// out; blobs are read straight from the object store.
type Git struct {
	tree     *object.Tree
	revision string
	hash     plumbing.Hash
}

// OpenGit opens the repository at dir (searching parent directories) and
// resolves revision.
func OpenGit(dir, revision string) (*Git, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", dir, err)
	}
	return NewGit(repo, revision)
}

// NewGit resolves revision (tag, branch, commit hash, HEAD or Latest) in repo.
func NewGit(repo *git.Repository, revision string) (*Git, error) {
	if revision == "" {
		revision = "HEAD"
	}
	rev := revision
	if revision == Latest {
		tag, err := latestTag(repo)
		if err != nil {
			return nil, err
		}
		rev = tag
	}

	hash, err := resolveRevision(repo, rev)
	if err != nil {
		return nil, fmt.Errorf("revision %s: %w", revision, err)
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree of %s: %w", hash, err)
	}
	return &Git{tree: tree, revision: rev, hash: hash}, nil
}

// Revision returns the resolved revision name.
func (g *Git) Revision() string {
	return g.revision
}

// Hash returns the commit the tree belongs to.
func (g *Git) Hash() string {
	return g.hash.String()
}

// Read implements FS.
func (g *Git) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := g.tree.File(strings.TrimPrefix(clean(p), "/"))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) || errors.Is(err, object.ErrEntryNotFound) {
			return nil, nil
		}
		return nil, err
	}
	r, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// ListTree implements FS. Directories are derived from file paths since git
// trees store no empty directories.
func (g *Git) ListTree(ctx context.Context, root string) ([]Entry, error) {
	root = clean(root)
	prefix := strings.TrimSuffix(root, "/") + "/"
	dirs := make(map[string]bool)
	var entries []Entry

	err := g.tree.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := "/" + f.Name
		if root != "/" && !strings.HasPrefix(p, prefix) {
			return nil
		}
		for dir := path.Dir(p); dir != root && dir != "/" && !dirs[dir]; dir = path.Dir(dir) {
			dirs[dir] = true
			entries = append(entries, Entry{Path: dir, Type: TypeDir})
		}
		entries = append(entries, Entry{Path: p, Type: TypeFile})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func resolveRevision(repo *git.Repository, rev string) (plumbing.Hash, error) {
	candidates := []plumbing.Revision{
		plumbing.Revision(plumbing.NewTagReferenceName(rev)),
		plumbing.Revision(plumbing.NewBranchReferenceName(rev)),
		plumbing.Revision(rev),
	}
	var lastErr error
	for _, c := range candidates {
		hash, err := repo.ResolveRevision(c)
		if err == nil {
			return *hash, nil
		}
		lastErr = err
	}
	return plumbing.ZeroHash, lastErr
}

func latestTag(repo *git.Repository) (string, error) {
	iter, err := repo.Tags()
	if err != nil {
		return "", fmt.Errorf("listing tags: %w", err)
	}
	var versions []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if semver.IsValid(name) {
			versions = append(versions, name)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", errors.New("no semver tags found")
	}
	semver.Sort(versions)
	return versions[len(versions)-1], nil
}

var _ FS = (*Git)(nil)
