package waymark

import "os"

// FileHandle represents a live file a mark points into.
type FileHandle interface{}

// FileResolver turns a saved path back into a live file.
// It is consulted lazily, never while state is being loaded.
type FileResolver interface {
	Resolve(path string) (FileHandle, bool)
}

// ResolverFunc adapts a function to FileResolver.
type ResolverFunc func(path string) (FileHandle, bool)

// Resolve calls f(path).
func (f ResolverFunc) Resolve(path string) (FileHandle, bool) {
	return f(path)
}

// LocalFile is the handle LocalResolver returns.
type LocalFile struct {
	Path string
	Info os.FileInfo
}

// LocalResolver resolves paths against the local file system.
type LocalResolver struct{}

// Resolve returns a handle for path if it names an existing regular file.
func (LocalResolver) Resolve(path string) (FileHandle, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return &LocalFile{Path: path, Info: info}, true
}
