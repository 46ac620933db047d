package filesystem

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sync"
	"time"
)

// memoryFileInfo implements fs.FileInfo for in-memory files
type memoryFileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return false }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

type memoryFile struct {
	content []byte
	info    *memoryFileInfo
}

// MemoryFileSystem implements FileSystemProvider for in-memory testing.
// Paths are normalized to forward slashes.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string]*memoryFile
}

// NewMemoryFileSystem creates a new empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{files: make(map[string]*memoryFile)}
}

// AddFile adds a file to the in-memory filesystem
func (mfs *MemoryFileSystem) AddFile(filePath string, content string) {
	mfs.AddFileWithTime(filePath, content, time.Now())
}

// AddFileWithTime adds a file with a specific modification time
func (mfs *MemoryFileSystem) AddFileWithTime(filePath string, content string, modTime time.Time) {
	key := normalize(filePath)
	data := []byte(content)

	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.files[key] = &memoryFile{
		content: data,
		info: &memoryFileInfo{
			name:    path.Base(key),
			size:    int64(len(data)),
			modTime: modTime,
		},
	}
}

func (mfs *MemoryFileSystem) lookup(filePath string) (*memoryFile, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	f, ok := mfs.files[normalize(filePath)]
	if !ok {
		return nil, fmt.Errorf("file not found: %s: %w", filePath, fs.ErrNotExist)
	}
	return f, nil
}

func (mfs *MemoryFileSystem) Open(filePath string) (io.ReadCloser, error) {
	f, err := mfs.lookup(filePath)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

func (mfs *MemoryFileSystem) Stat(filePath string) (FileInfo, error) {
	f, err := mfs.lookup(filePath)
	if err != nil {
		return nil, err
	}
	return f.info, nil
}

func normalize(filePath string) string {
	return path.Clean(filepath.ToSlash(filePath))
}

var _ FileSystemProvider = (*MemoryFileSystem)(nil)
