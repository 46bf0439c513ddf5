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

// MemoryFileSystem implements FileSystemProvider for in-memory testing.
// It also counts how many times each file was opened.
type MemoryFileSystem struct {
	mu    sync.Mutex
	files map[string][]byte
	opens map[string]int
}

// NewMemoryFileSystem creates an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string][]byte),
		opens: make(map[string]int),
	}
}

// AddFile adds (or replaces) a file. Content is stored as raw bytes so
// tests can hold non-UTF-8 data.
func (mfs *MemoryFileSystem) AddFile(filePath string, content []byte) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.files[normalize(filePath)] = append([]byte(nil), content...)
}

// Opens returns how many times filePath was opened.
func (mfs *MemoryFileSystem) Opens(filePath string) int {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	return mfs.opens[normalize(filePath)]
}

// OpenFile implements FileSystemProvider.OpenFile
func (mfs *MemoryFileSystem) OpenFile(filePath string) (io.ReadCloser, error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	key := normalize(filePath)
	content, ok := mfs.files[key]
	if !ok {
		return nil, fmt.Errorf("failed to access path: %w", &fs.PathError{Op: "open", Path: filePath, Err: fs.ErrNotExist})
	}
	mfs.opens[key]++
	return io.NopCloser(bytes.NewReader(content)), nil
}

// Stat implements FileSystemProvider.Stat
func (mfs *MemoryFileSystem) Stat(filePath string) (FileInfo, error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	content, ok := mfs.files[normalize(filePath)]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: filePath, Err: fs.ErrNotExist}
	}
	return &memoryFileInfo{
		name:    path.Base(normalize(filePath)),
		size:    int64(len(content)),
		modTime: time.Now(),
	}, nil
}

// normalize converts to forward slashes (virtual filesystem convention).
func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

var _ FileSystemProvider = (*MemoryFileSystem)(nil)
