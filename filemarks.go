package waymark

import (
	"sort"
	"sync"
	"time"
)

// FileMarkTable holds the marks of one file, global ones included, along with
// the time any of them was last set.
type FileMarkTable struct {
	path string

	mu          sync.RWMutex
	marks       map[rune]*Mark
	lastTouched time.Time
}

// newFileMarkTable creates an empty table for path.
func newFileMarkTable(path string, now time.Time) *FileMarkTable {
	return &FileMarkTable{
		path:        path,
		marks:       make(map[rune]*Mark),
		lastTouched: now,
	}
}

// Path returns the file the table belongs to.
func (t *FileMarkTable) Path() string {
	return t.path
}

// LastTouched returns the time a mark in this table was last set.
func (t *FileMarkTable) LastTouched() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastTouched
}

// SetTimestamp overrides the last-touched time, as when restoring saved state.
func (t *FileMarkTable) SetTimestamp(ts time.Time) {
	t.mu.Lock()
	t.lastTouched = ts
	t.mu.Unlock()
}

// Get returns the mark stored under name.
func (t *FileMarkTable) Get(name rune) (*Mark, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.marks[NormalizeMarkName(name)]
	return m, ok
}

// Len returns the number of marks in the table.
func (t *FileMarkTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.marks)
}

// Marks returns a copy of the table's name to mark mapping.
func (t *FileMarkTable) Marks() map[rune]*Mark {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[rune]*Mark, len(t.marks))
	for k, m := range t.marks {
		out[k] = m
	}
	return out
}

// Names returns the names of all marks in the table, sorted.
func (t *FileMarkTable) Names() []rune {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]rune, 0, len(t.marks))
	for k := range t.marks {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// put stores m under its key and touches the table. It returns the mark it replaced.
func (t *FileMarkTable) put(m *Mark, now time.Time) *Mark {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.marks[m.key]
	t.marks[m.key] = m
	t.lastTouched = now
	return old
}

// load stores m without touching the table's timestamp.
func (t *FileMarkTable) load(m *Mark) {
	t.mu.Lock()
	t.marks[m.key] = m
	t.mu.Unlock()
}

// remove deletes name if it is still bound to m. A nil m removes unconditionally.
func (t *FileMarkTable) remove(name rune, m *Mark) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.marks[name]
	if !ok || (m != nil && cur != m) {
		return false
	}
	delete(t.marks, name)
	return true
}

// removeAll empties the table and returns what it held.
func (t *FileMarkTable) removeAll() map[rune]*Mark {
	t.mu.Lock()
	defer t.mu.Unlock()
	old := t.marks
	t.marks = make(map[rune]*Mark)
	return old
}
