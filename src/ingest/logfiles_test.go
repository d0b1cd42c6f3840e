package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "logs")

	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureDir_FileInTheWay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	assert.Error(t, EnsureDir(path))
}

func TestLogFileNames(t *testing.T) {
	full, filtered := LogFileNames("/tmp/logs", 123456)
	assert.Equal(t, "/tmp/logs/123456.txt", full)
	assert.Equal(t, "/tmp/logs/123456-filtered.txt", filtered)
}

func TestLogFiles(t *testing.T) {
	dir := t.TempDir()
	files, err := CreateLogFiles(dir, 42)
	require.NoError(t, err)

	require.NoError(t, files.WriteLine("plain\n", 0))
	require.NoError(t, files.WriteLine("MySuite OK (1 tests, 2 assertions)\n", 1))
	require.NoError(t, files.WriteLine("double\n", 2))
	require.NoError(t, files.WriteLine("tail", 0))
	assert.Equal(t, int64(len("plain\nMySuite OK (1 tests, 2 assertions)\ndouble\ntail")), files.Written())

	require.NoError(t, files.Close())
	require.NoError(t, files.Close())
	assert.ErrorIs(t, files.WriteLine("late\n", 0), os.ErrClosed)

	full, err := os.ReadFile(filepath.Join(dir, "42.txt"))
	require.NoError(t, err)
	assert.Equal(t, "plain\nMySuite OK (1 tests, 2 assertions)\ndouble\ntail", string(full))

	filtered, err := os.ReadFile(filepath.Join(dir, "42-filtered.txt"))
	require.NoError(t, err)
	assert.Equal(t, "MySuite OK (1 tests, 2 assertions)\ndouble\ndouble\n", string(filtered))
}

func TestCreateLogFiles_Truncates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "7.txt"), []byte("stale content"), 0o644))

	files, err := CreateLogFiles(dir, 7)
	require.NoError(t, err)
	require.NoError(t, files.Close())

	full, err := os.ReadFile(filepath.Join(dir, "7.txt"))
	require.NoError(t, err)
	assert.Empty(t, full)
}

func TestCreateLogFiles_MissingDir(t *testing.T) {
	_, err := CreateLogFiles(filepath.Join(t.TempDir(), "missing"), 1)
	assert.Error(t, err)
}
