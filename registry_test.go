package waymark

import (
	"testing"
)

func TestSetAndGetMark(t *testing.T) {
	r := NewRegistry(Options{})

	m, ok := r.SetMark('a', 3, 4, "/f.txt", "")
	if !ok {
		t.Fatal("SetMark failed")
	}
	if m.Key() != 'a' || m.FilePath() != "/f.txt" || m.Protocol() != DefaultProtocol {
		t.Errorf("unexpected mark: %s", m)
	}

	got, ok := r.GetMark('a', "/f.txt")
	if !ok || got != m {
		t.Fatalf("GetMark returned %v, %v", got, ok)
	}
	if _, ok := r.GetMark('a', "/other.txt"); ok {
		t.Error("file mark visible from another file")
	}
	if _, ok := r.GetMark('b', "/f.txt"); ok {
		t.Error("unset mark found")
	}

	// Out-of-range positions are the caller's business.
	if _, ok := r.SetMark('b', 100000, 500, "/f.txt", ""); !ok {
		t.Error("SetMark rejected an out-of-range position")
	}
}

func TestSetMarkRejects(t *testing.T) {
	r := NewRegistry(Options{})

	if _, ok := r.SetMark('a', 0, 0, "", ""); ok {
		t.Error("SetMark accepted an empty path")
	}
	for _, name := range []rune{'!', ' ', 'é', '~'} {
		if _, ok := r.SetMark(name, 0, 0, "/f.txt", ""); ok {
			t.Errorf("SetMark accepted %q", name)
		}
	}
	if _, ok := r.GetMark('a', ""); ok {
		t.Error("GetMark found a file mark without a path")
	}
	if r.FileMarks("") != nil || r.AllMarksFor("") != nil {
		t.Error("empty path should have no table")
	}
}

// TestGlobalMarkDualBookkeeping verifies a global mark lives in the global
// table and its file's table as one shared instance, and moves cleanly
// when it is set again in another file.
func TestGlobalMarkDualBookkeeping(t *testing.T) {
	r := NewRegistry(Options{})

	first, _ := r.SetMark('A', 1, 0, "/x.txt", "")
	x, _ := r.LookupFileMarks("/x.txt")
	if inTable, ok := x.Get('A'); !ok || inTable != first {
		t.Fatal("global mark missing from its file table")
	}
	if r.GlobalMarks()['A'] != first {
		t.Fatal("global mark missing from the global table")
	}

	second, _ := r.SetMark('A', 2, 0, "/y.txt", "")
	if !first.IsClear() {
		t.Error("replaced global mark should be cleared")
	}
	if _, ok := x.Get('A'); ok {
		t.Error("old file table still holds A")
	}
	y, _ := r.LookupFileMarks("/y.txt")
	if inTable, ok := y.Get('A'); !ok || inTable != second {
		t.Error("new file table does not hold A")
	}

	got, ok := r.GetMark('A', "/anything.txt")
	if !ok || got != second {
		t.Error("global mark should be visible from any file")
	}

	checkConsistent(t, r)
}

// checkConsistent verifies every global entry is in its file's table.
func checkConsistent(t *testing.T, r *Registry) {
	t.Helper()
	for name, m := range r.GlobalMarks() {
		table, ok := r.LookupFileMarks(m.FilePath())
		if !ok {
			t.Errorf("no table for global mark %q in %s", name, m.FilePath())
			continue
		}
		if inTable, ok := table.Get(name); !ok || inTable != m {
			t.Errorf("table for %s does not hold global mark %q", m.FilePath(), name)
		}
	}
}

func TestRemoveMarkIdentityGuard(t *testing.T) {
	r := NewRegistry(Options{})

	stale, _ := r.SetMark('a', 1, 0, "/f.txt", "")
	current, _ := r.SetMark('a', 2, 0, "/f.txt", "")
	if !stale.IsClear() {
		t.Error("overwritten mark should be cleared")
	}

	if r.RemoveMark('a', stale) {
		t.Error("RemoveMark removed a mark through a stale reference")
	}
	if got, ok := r.GetMark('a', "/f.txt"); !ok || got != current {
		t.Fatal("current mark lost")
	}

	if !r.RemoveMark('a', current) {
		t.Error("RemoveMark failed on the current mark")
	}
	if _, ok := r.GetMark('a', "/f.txt"); ok {
		t.Error("mark still visible after removal")
	}
	if r.RemoveMark('a', current) {
		t.Error("second removal should report nothing removed")
	}
	if r.RemoveMark('a', nil) {
		t.Error("RemoveMark(nil) should be a no-op")
	}
}

func TestRemoveGlobalMark(t *testing.T) {
	r := NewRegistry(Options{})
	m, _ := r.SetMark('Q', 4, 0, "/q.txt", "")

	if !r.RemoveMark('Q', m) {
		t.Fatal("RemoveMark failed")
	}
	if _, ok := r.GlobalMarks()['Q']; ok {
		t.Error("global table still holds Q")
	}
	table, _ := r.LookupFileMarks("/q.txt")
	if _, ok := table.Get('Q'); ok {
		t.Error("file table still holds Q")
	}
}

func TestJumpAliasIsOneMark(t *testing.T) {
	r := NewRegistry(Options{})

	m, _ := r.SetMark('`', 7, 1, "/f.txt", "")
	if m.Key() != '\'' {
		t.Errorf("alias not folded: key %q", m.Key())
	}
	if got, ok := r.GetMark('\'', "/g.txt"); !ok || got != m {
		t.Error("mark set through ` not visible as '")
	}
	if !r.DeleteMark('`', "") {
		t.Error("DeleteMark through the alias failed")
	}
	if _, ok := r.GetMark('\'', ""); ok {
		t.Error("mark still set")
	}
}

func TestAllMarksFor(t *testing.T) {
	r := NewRegistry(Options{})
	r.SetMark('a', 1, 0, "/f.txt", "")
	r.SetMark('[', 2, 0, "/f.txt", "")
	r.SetMark('B', 3, 0, "/f.txt", "")
	r.SetMark('C', 4, 0, "/g.txt", "")
	r.SetMark('b', 5, 0, "/g.txt", "")

	all := r.AllMarksFor("/f.txt")
	if len(all) != 3 {
		t.Fatalf("expected 3 marks for /f.txt, got %d", len(all))
	}
	for _, name := range "a[B" {
		if _, ok := all[name]; !ok {
			t.Errorf("missing %q", name)
		}
	}

	// ListMarks adds globals from other files.
	var names []rune
	for _, m := range r.ListMarks("/f.txt") {
		names = append(names, m.Key())
	}
	if string(names) != "BC[a" {
		t.Errorf("ListMarks = %q, want %q", string(names), "BC[a")
	}
}

func TestDeleteFileMarksKeepsGlobals(t *testing.T) {
	r := NewRegistry(Options{})
	r.SetMark('a', 1, 0, "/f.txt", "")
	r.SetMark('b', 2, 0, "/f.txt", "")
	g, _ := r.SetMark('G', 3, 0, "/f.txt", "")

	if n := r.DeleteFileMarks("/f.txt"); n != 2 {
		t.Errorf("DeleteFileMarks removed %d, want 2", n)
	}
	if got, ok := r.GetMark('G', "/f.txt"); !ok || got != g {
		t.Error("global mark removed with file marks")
	}
	checkConsistent(t, r)

	if n := r.DeleteFileMarks("/missing.txt"); n != 0 {
		t.Errorf("DeleteFileMarks on unknown file removed %d", n)
	}
}

func TestClear(t *testing.T) {
	r := NewRegistry(Options{})
	a, _ := r.SetMark('a', 1, 0, "/f.txt", "")
	g, _ := r.SetMark('G', 3, 0, "/g.txt", "")

	r.Clear()
	if !a.IsClear() || !g.IsClear() {
		t.Error("Clear left live marks")
	}
	if len(r.Files()) != 0 || len(r.GlobalMarks()) != 0 {
		t.Error("Clear left tables behind")
	}
}

func TestFileTableTimestamps(t *testing.T) {
	clock := stepClock()
	r := NewRegistry(Options{Clock: clock})

	r.SetMark('a', 1, 0, "/f.txt", "")
	table, _ := r.LookupFileMarks("/f.txt")
	first := table.LastTouched()

	r.SetMark('b', 1, 0, "/f.txt", "")
	if !table.LastTouched().After(first) {
		t.Error("setting a mark should touch the table")
	}
	if got := string(table.Names()); got != "ab" {
		t.Errorf("Names = %q", got)
	}
}

// TestBookmarkMirroring verifies bookmarks added and removed in the bookmark
// system show up in, and leave, both mark tables.
func TestBookmarkMirroring(t *testing.T) {
	bookmarks := NewMemoryBookmarks()
	r := NewRegistry(Options{UseBookmarks: true, Bookmarks: bookmarks})

	bookmarks.Add('B', 4, "/b.txt")
	m, ok := r.GetMark('B', "")
	if !ok {
		t.Fatal("bookmark not mirrored")
	}
	if m.Line() != 4 || m.Column() != 0 || m.FilePath() != "/b.txt" {
		t.Errorf("mirrored mark = %s", m)
	}
	checkConsistent(t, r)

	// Moving the bookmark to another file replaces the mirror.
	bookmarks.Add('B', 9, "/c.txt")
	m2, ok := r.GetMark('B', "")
	if !ok || m2.FilePath() != "/c.txt" || m2.Line() != 9 {
		t.Fatalf("re-added bookmark = %v, %v", m2, ok)
	}
	if !m.IsClear() {
		t.Error("old mirror should be cleared")
	}
	if old, _ := r.LookupFileMarks("/b.txt"); old.Len() != 0 {
		t.Error("old file table still holds the mirror")
	}

	bookmarks.Remove('B')
	if _, ok := r.GetMark('B', ""); ok {
		t.Error("removed bookmark still mirrored")
	}
	if table, _ := r.LookupFileMarks("/c.txt"); table.Len() != 0 {
		t.Error("file table still holds removed bookmark")
	}

	// Names outside the mnemonic set are ignored.
	bookmarks.Add('x', 1, "/b.txt")
	if _, ok := r.GetMark('x', "/b.txt"); ok {
		t.Error("non-mnemonic bookmark mirrored")
	}
}

func TestSetMarkThroughBookmarks(t *testing.T) {
	bookmarks := NewMemoryBookmarks()
	r := NewRegistry(Options{UseBookmarks: true, Bookmarks: bookmarks})

	m, ok := r.SetMark('C', 6, 2, "/c.txt", "")
	if !ok {
		t.Fatal("SetMark failed")
	}
	b, ok := m.Bookmark()
	if !ok || b.Line() != 6 {
		t.Fatal("mark not backed by a bookmark")
	}
	if got, _ := bookmarks.Get('C'); got != b {
		t.Error("bookmark system does not hold the mark's bookmark")
	}
	if got, _ := r.GetMark('C', ""); got != m || got.Column() != 2 {
		t.Error("registry does not hold the bookmark-backed mark")
	}
	checkConsistent(t, r)

	// File marks never go through the bookmark system.
	fm, _ := r.SetMark('c', 1, 0, "/c.txt", "")
	if _, ok := fm.Bookmark(); ok {
		t.Error("file mark backed by a bookmark")
	}

	// A declining bookmark system falls back to a plain mark.
	bookmarks.SetEnabled(false)
	plain, ok := r.SetMark('D', 2, 0, "/c.txt", "")
	if !ok {
		t.Fatal("SetMark failed with bookmarks disabled")
	}
	if _, ok := plain.Bookmark(); ok {
		t.Error("expected a plain mark while bookmarks are disabled")
	}
	if r.CreateOrGetSystemMark('E', 1, 0, "/c.txt") != nil {
		t.Error("CreateOrGetSystemMark should decline while disabled")
	}
}

func TestMarkFileResolution(t *testing.T) {
	calls := 0
	resolver := ResolverFunc(func(path string) (FileHandle, bool) {
		calls++
		if calls == 1 {
			return nil, false
		}
		return path + "!", true
	})

	m := NewMark('a', 0, 0, "/r.txt", "")
	if _, ok := m.File(nil); ok {
		t.Error("resolved without a resolver")
	}
	if _, ok := m.File(resolver); ok {
		t.Error("first resolution should fail")
	}
	h, ok := m.File(resolver)
	if !ok || h != "/r.txt!" {
		t.Fatalf("File = %v, %v", h, ok)
	}
	m.File(resolver)
	if calls != 2 {
		t.Errorf("resolver called %d times, want 2", calls)
	}
}

func TestNewMark(t *testing.T) {
	if NewMark('a', 0, 0, "", "") != nil {
		t.Error("NewMark without a path should return nil")
	}
	m := NewMark('`', 1, 2, "/f.txt", "jar")
	if m.Key() != '\'' || m.Protocol() != "jar" || m.Position() != (LogicalPosition{1, 2}) {
		t.Errorf("unexpected mark: %s", m)
	}
}
