package filesystem

import (
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystem_OpenAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("data/messages.csv", "id,message\n1,hello\n")

	rc, err := mfs.Open("data/messages.csv")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id,message\n1,hello\n", string(content))
}

func TestMemoryFileSystem_PathNormalization(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("./data//categories.csv", "id,categories\n")

	rc, err := mfs.Open("data/categories.csv")
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id,categories\n", string(content))
}

func TestMemoryFileSystem_Stat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("messages.csv", "abc")

	info, err := mfs.Stat("messages.csv")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, "messages.csv", info.Name())
	assert.Equal(t, int64(3), info.Size())
}

func TestMemoryFileSystem_NotFound(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.Open("missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = mfs.Stat("missing.csv")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
