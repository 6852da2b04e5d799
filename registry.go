package waymark

import (
	"sort"
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("waymark")

// Registry owns every mark of a session: the global table, keyed by the
// names of cross-file marks, and one FileMarkTable per file.
//
// A global mark is stored in both the global table and its file's table.
// Both entries point at the same *Mark, so moving or clearing it through one
// index is visible through the other; every structural change updates both.
//
// Lock order is Registry.mu, then FileMarkTable.mu, then Mark.mu.
type Registry struct {
	mu          sync.RWMutex
	globalMarks map[rune]*Mark
	fileMarks   map[string]*FileMarkTable

	bookmarks    BookmarkSystem
	useBookmarks bool
	resolver     FileResolver
	now          func() time.Time
}

// NewRegistry creates an empty registry. If options name a bookmark system
// the registry subscribes to it.
func NewRegistry(options Options) *Registry {
	options = options.withDefaults()
	r := &Registry{
		globalMarks:  make(map[rune]*Mark),
		fileMarks:    make(map[string]*FileMarkTable),
		bookmarks:    options.Bookmarks,
		useBookmarks: options.UseBookmarks,
		resolver:     options.Resolver,
		now:          options.Clock,
	}
	if r.bookmarks != nil {
		r.bookmarks.Subscribe(r)
	}
	return r
}

// UsesBookmarks reports whether global marks are routed through the bookmark system.
func (r *Registry) UsesBookmarks() bool {
	return r.useBookmarks
}

// Resolver returns the file resolver marks use on first navigation.
func (r *Registry) Resolver() FileResolver {
	return r.resolver
}

// FileMarks returns the table for path, creating it on first use.
// It returns nil if path is empty.
func (r *Registry) FileMarks(path string) *FileMarkTable {
	if path == "" {
		return nil
	}

	r.mu.RLock()
	t, ok := r.fileMarks[path]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fileMarksLocked(path)
}

// LookupFileMarks returns the table for path without creating one.
func (r *Registry) LookupFileMarks(path string) (*FileMarkTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.fileMarks[path]
	return t, ok
}

// fileMarksLocked returns or creates the table for path. Caller holds r.mu.
func (r *Registry) fileMarksLocked(path string) *FileMarkTable {
	t, ok := r.fileMarks[path]
	if !ok {
		t = newFileMarkTable(path, r.now())
		r.fileMarks[path] = t
	}
	return t
}

// SetMark creates or overwrites the mark name at line:col of path.
// Global names are also entered in the global table. When bookmarks are in
// use, a bookmark mnemonic is backed by an external bookmark if the
// bookmark system accepts it. It returns false if name cannot be set or path
// is empty; positions are not validated.
func (r *Registry) SetMark(name rune, line, col int, path, protocol string) (*Mark, bool) {
	name = NormalizeMarkName(name)
	if !ValidSetMark(name) || path == "" {
		return nil, false
	}

	// Resolved before locking: the bookmark system may call back into BookmarkAdded.
	mark := r.CreateOrGetSystemMark(name, line, col, path)
	if mark == nil {
		mark = NewMark(name, line, col, path, protocol)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(mark, true)
	return mark, true
}

// putLocked enters mark in its file table and, for global names, the global
// table. A replaced mark is cleared. Caller holds r.mu.
func (r *Registry) putLocked(mark *Mark, touch bool) {
	table := r.fileMarksLocked(mark.filePath)

	if IsGlobalMark(mark.key) {
		if old, ok := r.globalMarks[mark.key]; ok && old != mark {
			if old.filePath != mark.filePath {
				if ot, ok := r.fileMarks[old.filePath]; ok {
					ot.remove(mark.key, old)
				}
			}
			old.clear()
		}
		r.globalMarks[mark.key] = mark
	}

	if touch {
		if old := table.put(mark, r.now()); old != nil && old != mark {
			old.clear()
		}
	} else {
		table.load(mark)
	}
}

// CreateOrGetSystemMark asks the bookmark system for a bookmark-backed mark.
// It returns nil when bookmarks are off, name is not a bookmark mnemonic, or
// the bookmark system declines.
func (r *Registry) CreateOrGetSystemMark(name rune, line, col int, path string) *Mark {
	if !r.useBookmarks || r.bookmarks == nil || !IsBookmarkMnemonic(name) {
		return nil
	}
	b, ok := r.bookmarks.CreateOrGetBookmark(name, line, path)
	if !ok || b == nil {
		return nil
	}
	return newBookmarkMark(b, col)
}

// GetMark returns the live mark name as seen from path. Global names are
// looked up in the global table regardless of path.
func (r *Registry) GetMark(name rune, path string) (*Mark, bool) {
	name = NormalizeMarkName(name)

	if IsGlobalMark(name) {
		r.mu.RLock()
		m, ok := r.globalMarks[name]
		r.mu.RUnlock()
		if !ok || m.IsClear() {
			return nil, false
		}
		return m, true
	}

	if path == "" || !IsFileMark(name) {
		return nil, false
	}
	t, ok := r.LookupFileMarks(path)
	if !ok {
		return nil, false
	}
	m, ok := t.Get(name)
	if !ok || m.IsClear() {
		return nil, false
	}
	return m, true
}

// AllMarksFor returns every mark an edit to path could affect: the file's own
// table plus any global mark pointing into path. A global entry wins over a
// table entry of the same name.
func (r *Registry) AllMarksFor(path string) map[rune]*Mark {
	if path == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make(map[rune]*Mark)
	if t, ok := r.fileMarks[path]; ok {
		for k, m := range t.Marks() {
			res[k] = m
		}
	}
	for k, m := range r.globalMarks {
		if m.filePath == path {
			res[k] = m
		}
	}
	return res
}

// ListMarks returns the live marks visible from path, sorted by name.
func (r *Registry) ListMarks(path string) []*Mark {
	all := r.AllMarksFor(path)
	if all == nil {
		all = make(map[rune]*Mark)
	}
	r.mu.RLock()
	for k, m := range r.globalMarks {
		all[k] = m
	}
	r.mu.RUnlock()

	marks := make([]*Mark, 0, len(all))
	for _, m := range all {
		if !m.IsClear() {
			marks = append(marks, m)
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].key < marks[j].key })
	return marks
}

// GlobalMarks returns a copy of the global table.
func (r *Registry) GlobalMarks() map[rune]*Mark {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[rune]*Mark, len(r.globalMarks))
	for k, m := range r.globalMarks {
		out[k] = m
	}
	return out
}

// Files returns every file table, in no particular order.
func (r *Registry) Files() []*FileMarkTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	files := make([]*FileMarkTable, 0, len(r.fileMarks))
	for _, t := range r.fileMarks {
		files = append(files, t)
	}
	return files
}

// RemoveMark removes mark from whichever tables hold it under name. Tables
// whose entry for name is a different mark are left alone, so a stale
// reference cannot remove its replacement.
func (r *Registry) RemoveMark(name rune, mark *Mark) bool {
	if mark == nil {
		return false
	}
	name = NormalizeMarkName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	if g, ok := r.globalMarks[name]; ok && g == mark {
		delete(r.globalMarks, name)
		removed = true
	}
	if t, ok := r.fileMarks[mark.filePath]; ok && t.remove(name, mark) {
		removed = true
	}
	if removed {
		mark.clear()
	}
	return removed
}

// DeleteMark removes the mark name as seen from path.
func (r *Registry) DeleteMark(name rune, path string) bool {
	m, ok := r.GetMark(name, path)
	if !ok {
		return false
	}
	return r.RemoveMark(name, m)
}

// DeleteFileMarks removes every file-local mark of path. Global marks that
// point into path are kept. It returns the number of marks removed.
func (r *Registry) DeleteFileMarks(path string) int {
	t, ok := r.LookupFileMarks(path)
	if !ok {
		return 0
	}
	n := 0
	for k, m := range t.Marks() {
		if IsGlobalMark(k) {
			continue
		}
		if t.remove(k, m) {
			m.clear()
			n++
		}
	}
	return n
}

// Clear drops every mark and file table.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.globalMarks {
		m.clear()
	}
	for _, t := range r.fileMarks {
		for _, m := range t.removeAll() {
			m.clear()
		}
	}
	r.globalMarks = make(map[rune]*Mark)
	r.fileMarks = make(map[string]*FileMarkTable)
}

// BookmarkAdded mirrors a new bookmark into the mark tables.
func (r *Registry) BookmarkAdded(b Bookmark) {
	if !r.useBookmarks || !IsBookmarkMnemonic(b.Mnemonic()) {
		return
	}
	m := newBookmarkMark(b, 0)
	if m == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(m, true)
	log.Debugf("mirrored bookmark %q at %s:%d", b.Mnemonic(), b.Path(), b.Line())
}

// BookmarkRemoved drops the mark mirrored from a removed bookmark.
func (r *Registry) BookmarkRemoved(b Bookmark) {
	ch := b.Mnemonic()
	if !r.useBookmarks || !IsBookmarkMnemonic(ch) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.fileMarks[b.Path()]; ok {
		if m, ok := t.Get(ch); ok && t.remove(ch, m) {
			m.clear()
		}
	}
	if g, ok := r.globalMarks[ch]; ok {
		if t, ok := r.fileMarks[g.filePath]; ok {
			t.remove(ch, g)
		}
		delete(r.globalMarks, ch)
		g.clear()
	}
	log.Debugf("dropped bookmark %q at %s", ch, b.Path())
}

// registrySnapshot is a point-in-time copy of the registry's structure.
type registrySnapshot struct {
	globals []*Mark
	files   []fileSnapshot
}

type fileSnapshot struct {
	path        string
	lastTouched time.Time
	marks       map[rune]*Mark
}

// snapshot copies the registry's structure while holding the structural lock.
func (r *Registry) snapshot() registrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := registrySnapshot{
		globals: make([]*Mark, 0, len(r.globalMarks)),
		files:   make([]fileSnapshot, 0, len(r.fileMarks)),
	}
	for _, m := range r.globalMarks {
		snap.globals = append(snap.globals, m)
	}
	for path, t := range r.fileMarks {
		snap.files = append(snap.files, fileSnapshot{
			path:        path,
			lastTouched: t.LastTouched(),
			marks:       t.Marks(),
		})
	}
	return snap
}

// loadGlobal enters a restored global mark in both indexes without touching
// its file table's timestamp.
func (r *Registry) loadGlobal(m *Mark) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(m, false)
}

// loadFileMarks enters restored file marks and stamps the table with ts.
func (r *Registry) loadFileMarks(path string, marks []*Mark, ts time.Time) {
	r.mu.Lock()
	t := r.fileMarksLocked(path)
	r.mu.Unlock()

	for _, m := range marks {
		t.load(m)
	}
	t.SetTimestamp(ts)
}
