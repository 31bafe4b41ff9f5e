package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_FindsCSVs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BANK2.CSV"), []byte("data!"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "BANK2.CSV", files[0].Name)
	assert.Equal(t, int64(5), files[0].Size)
	assert.Equal(t, filepath.Join(dir, "bank.csv"), files[1].Path)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")
	require.NoError(t, os.MkdirAll(processed, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.csv"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processed, "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Name)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stmt.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o644))

	files, err := ReadFiles([]string{path})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "stmt.csv", files[0].Name)
	assert.Equal(t, []byte("a,b\n"), files[0].Content)

	_, err = ReadFiles([]string{filepath.Join(dir, "missing.csv")})
	assert.ErrorContains(t, err, "missing.csv")
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bank.csv")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	require.NoError(t, MarkProcessed(dir, src))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	info, err := os.Stat(filepath.Join(dir, "processed"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(filepath.Join(dir, "processed", "bank.csv"))
	assert.NoError(t, err)
}

func TestMarkProcessed_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := MarkProcessed(dir, filepath.Join(dir, "ghost.csv"))
	assert.ErrorContains(t, err, "moving ghost.csv to processed")
}
