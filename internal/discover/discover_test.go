package discover_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybrota/igloo/internal/discover"
)

func mkRepo(t *testing.T, root, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, name, ".git"), 0755))
}

func TestDiscoverRecursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	mkRepo(t, root, "alpha")
	mkRepo(t, root, "beta")
	mkRepo(t, root, "gamma")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-repo"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644))

	folders, err := discover.Discover(root, false)
	require.NoError(t, err)

	names := make([]string, 0, len(folders))
	for _, f := range folders {
		assert.Equal(t, filepath.Join(root, f.Name), f.Path)
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"alpha", "beta", "gamma"}, names)
}

func TestDiscoverNoRecurseSingleRepo(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))

	folders, err := discover.Discover(root, true)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, root, folders[0].Path)
	assert.Equal(t, filepath.Base(root), folders[0].Name)
}

func TestDiscoverNoRecurseNotARepo(t *testing.T) {
	t.Parallel()

	_, err := discover.Discover(t.TempDir(), true)
	assert.ErrorIs(t, err, discover.ErrNoRepos)
}

func TestDiscoverEmptyRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "plain"), 0755))

	_, err := discover.Discover(root, false)
	assert.ErrorIs(t, err, discover.ErrNoRepos)
}

func TestDiscoverGitFileIsNotARepo(t *testing.T) {
	t.Parallel()

	// Submodules and worktrees keep a .git file, not a directory; the
	// scan targets full working copies only.
	root := t.TempDir()
	sub := filepath.Join(root, "worktree")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, ".git"), []byte("gitdir: elsewhere"), 0644))

	_, err := discover.Discover(root, false)
	assert.ErrorIs(t, err, discover.ErrNoRepos)
}
