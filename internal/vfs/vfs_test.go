package vfs

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_ReadAndList(t *testing.T) {
	ctx := context.Background()
	fs, err := NewMemory(map[string]string{
		"/flows/items.flow.ts": "flow('Items', () => {})",
		"/flows/shared/types.ts": "export type A = string",
	})
	require.NoError(t, err)

	data, err := fs.Read(ctx, "/flows/items.flow.ts")
	require.NoError(t, err)
	assert.Equal(t, "flow('Items', () => {})", string(data))

	missing, err := fs.Read(ctx, "/flows/nope.ts")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dir, err := fs.Read(ctx, "/flows/shared")
	require.NoError(t, err)
	assert.Nil(t, dir, "directories read as missing files")

	files, err := Files(ctx, fs, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"/flows/items.flow.ts", "/flows/shared/types.ts"}, files)

	entries, err := fs.ListTree(ctx, "/flows")
	require.NoError(t, err)
	assert.Contains(t, entries, Entry{Path: "/flows/shared", Type: TypeDir})
}

func TestMemory_Mutations(t *testing.T) {
	ctx := context.Background()
	fs, err := NewMemory(map[string]string{"/a.ts": "1"})
	require.NoError(t, err)

	require.NoError(t, fs.WriteFile("/nested/b.ts", []byte("2")))
	ok, err := Exists(ctx, fs, "/nested/b.ts")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fs.Rename("/a.ts", "/moved/a.ts"))
	ok, _ = Exists(ctx, fs, "/a.ts")
	assert.False(t, ok)
	ok, _ = Exists(ctx, fs, "/moved/a.ts")
	assert.True(t, ok)

	require.NoError(t, fs.Remove("/nested/b.ts"))
	ok, _ = Exists(ctx, fs, "/nested/b.ts")
	assert.False(t, ok)
}

func TestMemory_EmptyFileIsNotMissing(t *testing.T) {
	fs, err := NewMemory(map[string]string{"/empty.ts": ""})
	require.NoError(t, err)

	data, err := fs.Read(context.Background(), "/empty.ts")
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data)
}

func commitFiles(t *testing.T, repo *git.Repository, files map[string]string, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for p, content := range files {
		require.NoError(t, util.WriteFile(wt.Filesystem, p, []byte(content), 0o644))
		_, err := wt.Add(p)
		require.NoError(t, err)
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "flowc", Email: "flowc@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
}

func TestGit_LatestTag(t *testing.T) {
	ctx := context.Background()
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)

	commitFiles(t, repo, map[string]string{"flows/a.flow.ts": "v1"}, "first")
	head, err := repo.Head()
	require.NoError(t, err)
	_, err = repo.CreateTag("v1.0.0", head.Hash(), nil)
	require.NoError(t, err)

	commitFiles(t, repo, map[string]string{"flows/a.flow.ts": "v2", "flows/lib/b.ts": "b"}, "second")
	head, err = repo.Head()
	require.NoError(t, err)
	_, err = repo.CreateTag("v1.10.0", head.Hash(), nil)
	require.NoError(t, err)
	_, err = repo.CreateTag("not-a-version", head.Hash(), nil)
	require.NoError(t, err)

	g, err := NewGit(repo, Latest)
	require.NoError(t, err)
	assert.Equal(t, "v1.10.0", g.Revision())

	data, err := g.Read(ctx, "/flows/a.flow.ts")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	missing, err := g.Read(ctx, "/flows/missing.ts")
	require.NoError(t, err)
	assert.Nil(t, missing)

	files, err := Files(ctx, g, "/flows")
	require.NoError(t, err)
	assert.Equal(t, []string{"/flows/a.flow.ts", "/flows/lib/b.ts"}, files)

	old, err := NewGit(repo, "v1.0.0")
	require.NoError(t, err)
	data, err = old.Read(ctx, "/flows/a.flow.ts")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestGit_NoTags(t *testing.T) {
	repo, err := git.Init(memory.NewStorage(), memfs.New())
	require.NoError(t, err)
	commitFiles(t, repo, map[string]string{"a.ts": "x"}, "only")

	_, err = NewGit(repo, Latest)
	assert.Error(t, err)

	g, err := NewGit(repo, "")
	require.NoError(t, err)
	assert.Equal(t, "HEAD", g.Revision())
}
