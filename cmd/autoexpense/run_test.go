package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectReceipts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.JPG", "a.png", "notes.txt", "c.jpeg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "processed.jpg"), 0o755))

	receipts, err := collectReceipts(dir, []string{".jpg", ".jpeg", ".png"})
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.JPG"),
		filepath.Join(dir, "c.jpeg"),
	}
	assert.Equal(t, want, receipts)
}

func TestCollectReceiptsMissingFolder(t *testing.T) {
	_, err := collectReceipts(filepath.Join(t.TempDir(), "nope"), []string{".jpg"})
	assert.Error(t, err)
}
