package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_MakesWorkspaceWithAssetsDir(t *testing.T) {
	m := New(t.TempDir())

	dir, err := m.Create()

	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assetsInfo, err := os.Stat(filepath.Join(dir, assetsDirName))
	require.NoError(t, err)
	assert.True(t, assetsInfo.IsDir())
}

func TestCreate_NamesAreUniqueAndSortable(t *testing.T) {
	m := New(t.TempDir())

	first, err := m.Create()
	require.NoError(t, err)
	second, err := m.Create()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	all, err := m.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.True(t, all[0] <= all[1])
}

func TestList_EmptyWhenRunsDirAbsent(t *testing.T) {
	m := New(t.TempDir())

	got, err := m.List()

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssetsDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/run-1", "assets"), AssetsDir("/tmp/run-1"))
}
