package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	s := NewImageStore(t.TempDir(), "/images", 0)

	assert.NoError(t, s.Validate("cat.PNG", 100))
	assert.NoError(t, s.Validate("cat.webp", DefaultMaxImageSize))
	assert.ErrorIs(t, s.Validate("", 1), ErrImageRequired)
	assert.ErrorIs(t, s.Validate("cat.bmp", 1), ErrUnsupportedImage)
	assert.ErrorIs(t, s.Validate("cat.jpg", DefaultMaxImageSize+1), ErrImageTooLarge)
}

func TestSaveWritesUniqueFile(t *testing.T) {
	dir := t.TempDir()
	s := NewImageStore(dir, "images", 0)

	p1, err := s.Save("photo.JPG", 5, bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	p2, err := s.Save("photo.jpg", 5, bytes.NewReader([]byte("hello")))
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	assert.True(t, strings.HasPrefix(p1, "/images/"))
	assert.True(t, strings.HasSuffix(p1, ".jpg"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(p1)))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Remove(p1))
	assert.NoFileExists(t, filepath.Join(dir, filepath.Base(p1)))
	require.NoError(t, s.Remove("/elsewhere/x.jpg"))
}

func TestSaveRejectsStreamsOverLimit(t *testing.T) {
	dir := t.TempDir()
	s := NewImageStore(dir, "/images", 4)

	// declared size lies; the copy limit still applies
	_, err := s.Save("big.png", 1, bytes.NewReader([]byte("too large")))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
