package waymark

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// StateStore persists a State between sessions.
type StateStore interface {
	// Load returns the saved state, or ErrStateNotFound if nothing was saved yet.
	Load() (*State, error)

	// Save replaces the saved state.
	Save(state *State) error
}

// FileSystem abstracts the file operations a FileStateStore needs.
// The library provides a default implementation for local files.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	Rename(oldName, newName string) error
	MkdirAll(path string) error
	Remove(name string) error
}

// localFileSystem implements FileSystem for local files.
type localFileSystem struct{}

func (localFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (localFileSystem) WriteFile(name string, data []byte) error {
	return os.WriteFile(name, data, 0644)
}

func (localFileSystem) Rename(oldName, newName string) error {
	return os.Rename(oldName, newName)
}

func (localFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func (localFileSystem) Remove(name string) error {
	return os.Remove(name)
}

// LocalFileSystem returns the FileSystem backed by the os package.
func LocalFileSystem() FileSystem {
	return localFileSystem{}
}

// FileStateStore keeps state in a single XML or JSON file.
type FileStateStore struct {
	fs     FileSystem
	path   string
	format Format
}

// NewFileStateStore creates a store for path on the local file system.
// The format follows the file extension.
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{fs: localFileSystem{}, path: path, format: FormatForPath(path)}
}

// NewFileStateStoreWith creates a store over a custom file system and format.
func NewFileStateStoreWith(fsys FileSystem, path string, format Format) *FileStateStore {
	if fsys == nil {
		fsys = localFileSystem{}
	}
	return &FileStateStore{fs: fsys, path: path, format: format}
}

// Path returns the file the store writes.
func (s *FileStateStore) Path() string {
	return s.path
}

// Load implements StateStore.
func (s *FileStateStore) Load() (*State, error) {
	data, err := s.fs.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return Decode(bytes.NewReader(data), s.format)
}

// Save implements StateStore. The file is replaced atomically where the
// file system's Rename is atomic.
func (s *FileStateStore) Save(state *State) error {
	var buf bytes.Buffer
	if err := Encode(&buf, state, s.format); err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := s.fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := s.fs.WriteFile(tmp, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}
