package waymark

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStateStoreMissingFile(t *testing.T) {
	store := NewFileStateStore(filepath.Join(t.TempDir(), "marks.xml"))
	if _, err := store.Load(); !errors.Is(err, ErrStateNotFound) {
		t.Errorf("expected ErrStateNotFound, got %v", err)
	}
}

func TestFileStateStoreSaveLoad(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"marks.xml", "marks.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", "state", name)
			store := NewFileStateStore(path)

			s := NewSession(Options{Clock: stepClock()})
			populate(t, s)
			s.SetStore(store)
			if err := s.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			if _, err := os.Stat(path); err != nil {
				t.Fatalf("state file not written: %v", err)
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Errorf("temporary file left behind: %v", err)
			}

			restored := NewSession(Options{Clock: stepClock()})
			restored.SetStore(store)
			if err := restored.Load(); err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			doc := NewTextDocument("/p/a.txt", "")
			if m, ok := restored.GetMark(doc, 'z'); !ok || m.Line() != 9 {
				t.Errorf("mark z = %v, %v", m, ok)
			}
			if restored.Jumps().Len() != 2 {
				t.Errorf("expected 2 jumps, got %d", restored.Jumps().Len())
			}
		})
	}
}

func TestFileStateStoreFormatOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.state")
	store := NewFileStateStoreWith(nil, path, FormatJSON)

	if err := store.Save(&State{Jumps: []JumpState{{Line: Num(1), Column: Num(2), Filename: "/j.txt"}}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) == 0 || data[0] != '{' {
		t.Errorf("expected JSON output, got %q", data)
	}
}

// failingRename wraps the local file system but refuses to rename.
type failingRename struct {
	FileSystem
	removed []string
}

var errRename = errors.New("rename refused")

func (f *failingRename) Rename(oldName, newName string) error {
	return errRename
}

func (f *failingRename) Remove(name string) error {
	f.removed = append(f.removed, name)
	return f.FileSystem.Remove(name)
}

func TestFileStateStoreFailedRename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.xml")
	fsys := &failingRename{FileSystem: LocalFileSystem()}
	store := NewFileStateStoreWith(fsys, path, FormatXML)

	err := store.Save(&State{})
	if !errors.Is(err, errRename) {
		t.Fatalf("expected rename error, got %v", err)
	}
	if len(fsys.removed) != 1 || fsys.removed[0] != path+".tmp" {
		t.Errorf("removed = %v, want the temporary file", fsys.removed)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("state file should not exist: %v", err)
	}
}

func TestFileStateStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewSession(Options{})
	s.SetStore(NewFileStateStore(path))
	if err := s.Load(); err == nil {
		t.Error("expected error loading a corrupt state file")
	}
}
