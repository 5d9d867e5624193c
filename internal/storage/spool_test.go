package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/docqa/internal/storage"
)

func TestSpool_CreateAndRemove(t *testing.T) {
	tmpDir := t.TempDir()

	spool, err := storage.NewSpool(filepath.Join(tmpDir, "nested", "spool"))
	require.NoError(t, err)

	f, err := spool.Create(".pdf")
	require.NoError(t, err)
	_, err = f.WriteString("BodyContent")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.Equal(t, ".pdf", filepath.Ext(f.Name()))
	assert.Equal(t, spool.Dir(), filepath.Dir(f.Name()))

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "BodyContent", string(data))

	require.NoError(t, spool.Remove(f.Name()))
	_, err = os.Stat(f.Name())
	assert.True(t, os.IsNotExist(err))
}

func TestSpool_UniqueNames(t *testing.T) {
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)

	a, err := spool.Create("docx")
	require.NoError(t, err)
	defer a.Close()
	b, err := spool.Create("docx")
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Name(), b.Name())
	assert.Equal(t, ".docx", filepath.Ext(a.Name()))
}

func TestSpool_SanitizesExtension(t *testing.T) {
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)

	f, err := spool.Create("./../x")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, spool.Dir(), filepath.Dir(f.Name()))
}

func TestSpool_RemoveMissing(t *testing.T) {
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, spool.Remove(filepath.Join(spool.Dir(), "missing.pdf")))
}

func TestSpool_RemoveOutside(t *testing.T) {
	spool, err := storage.NewSpool(t.TempDir())
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	assert.Error(t, spool.Remove(outside))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}
