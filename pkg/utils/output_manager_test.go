package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputManager_ResolvePath(t *testing.T) {
	base := t.TempDir()
	om := NewOutputManager(base)

	t.Run("base dir", func(t *testing.T) {
		path, err := om.ResolvePath("", "out.csv")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "out.csv"), path)
	})

	t.Run("relative dir is created under base", func(t *testing.T) {
		path, err := om.ResolvePath("reports/daily", "out.csv")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "reports", "daily", "out.csv"), path)
		assert.DirExists(t, filepath.Join(base, "reports", "daily"))
	})

	t.Run("absolute dir is kept", func(t *testing.T) {
		abs := t.TempDir()
		path, err := om.ResolvePath(abs, "out.json")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(abs, "out.json"), path)
	})

	t.Run("file name cannot escape the directory", func(t *testing.T) {
		path, err := om.ResolvePath("", "../../etc/passwd")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "passwd"), path)
	})
}

func TestOutputManager_Defaults(t *testing.T) {
	om := NewOutputManager("")
	assert.Equal(t, ".", om.BaseOutputDir)

	now := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "query_results_2024-03-09.csv", om.DefaultFileName("query_results", "csv", now))
	assert.Equal(t, "query_results_2024-03-09.json", om.DefaultFileName("query_results", ".json", now))
	assert.Equal(t, "x_2024-03-09.csv", om.DefaultFileName("x", "", now))
}

func TestOutputManager_FileInfo(t *testing.T) {
	om := NewOutputManager(t.TempDir())
	assert.Equal(t, "csv", om.GetFileType("a.CSV"))
	assert.Equal(t, "json", om.GetFileType("a.json"))
	assert.Equal(t, "unknown", om.GetFileType("a.txt"))

	path, err := om.ResolvePath("", "size.csv")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2"), 0644))
	size, err := om.GetFileSize(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)

	_, err = om.GetFileSize(path + ".missing")
	assert.Error(t, err)
}
