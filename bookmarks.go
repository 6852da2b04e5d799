package waymark

import "sync"

// Bookmark is a line bookmark owned by an external bookmark system.
type Bookmark interface {
	Mnemonic() rune
	Line() int
	Path() string
}

// BookmarkListener is notified as bookmarks come and go.
type BookmarkListener interface {
	BookmarkAdded(b Bookmark)
	BookmarkRemoved(b Bookmark)
}

// BookmarkSystem is an external bookmark manager that can mirror global marks.
type BookmarkSystem interface {
	// CreateOrGetBookmark returns the bookmark for mnemonic on line of path,
	// creating or moving it as needed. It returns false if the system declines.
	CreateOrGetBookmark(mnemonic rune, line int, path string) (Bookmark, bool)

	// Subscribe registers l for add and remove notifications.
	Subscribe(l BookmarkListener)
}

// memoryBookmark is a Bookmark kept by MemoryBookmarks.
type memoryBookmark struct {
	mnemonic rune
	path     string

	mu   sync.RWMutex
	line int
}

func (b *memoryBookmark) Mnemonic() rune { return b.mnemonic }
func (b *memoryBookmark) Path() string   { return b.path }

func (b *memoryBookmark) Line() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.line
}

// MemoryBookmarks is an in-process BookmarkSystem.
type MemoryBookmarks struct {
	mu        sync.Mutex
	enabled   bool
	bookmarks map[rune]*memoryBookmark
	listeners []BookmarkListener
}

// NewMemoryBookmarks creates an enabled, empty bookmark system.
func NewMemoryBookmarks() *MemoryBookmarks {
	return &MemoryBookmarks{
		enabled:   true,
		bookmarks: make(map[rune]*memoryBookmark),
	}
}

// SetEnabled turns bookmark creation on or off. While disabled the system
// declines every CreateOrGetBookmark call.
func (mb *MemoryBookmarks) SetEnabled(enabled bool) {
	mb.mu.Lock()
	mb.enabled = enabled
	mb.mu.Unlock()
}

// Subscribe registers l for add and remove notifications.
func (mb *MemoryBookmarks) Subscribe(l BookmarkListener) {
	mb.mu.Lock()
	mb.listeners = append(mb.listeners, l)
	mb.mu.Unlock()
}

// CreateOrGetBookmark implements BookmarkSystem.
func (mb *MemoryBookmarks) CreateOrGetBookmark(mnemonic rune, line int, path string) (Bookmark, bool) {
	mb.mu.Lock()
	if !mb.enabled || !IsBookmarkMnemonic(mnemonic) {
		mb.mu.Unlock()
		return nil, false
	}
	if b, ok := mb.bookmarks[mnemonic]; ok && b.path == path && b.Line() == line {
		mb.mu.Unlock()
		return b, true
	}
	mb.mu.Unlock()

	mb.Remove(mnemonic)
	return mb.Add(mnemonic, line, path), true
}

// Add places a bookmark, replacing any bookmark with the same mnemonic,
// and notifies listeners.
func (mb *MemoryBookmarks) Add(mnemonic rune, line int, path string) Bookmark {
	b := &memoryBookmark{mnemonic: mnemonic, path: path, line: line}

	mb.mu.Lock()
	old := mb.bookmarks[mnemonic]
	mb.bookmarks[mnemonic] = b
	listeners := append([]BookmarkListener(nil), mb.listeners...)
	mb.mu.Unlock()

	// Listeners run outside the lock; they may call back into the system.
	for _, l := range listeners {
		if old != nil {
			l.BookmarkRemoved(old)
		}
		l.BookmarkAdded(b)
	}
	return b
}

// Remove deletes the bookmark for mnemonic and notifies listeners.
func (mb *MemoryBookmarks) Remove(mnemonic rune) bool {
	mb.mu.Lock()
	b, ok := mb.bookmarks[mnemonic]
	if ok {
		delete(mb.bookmarks, mnemonic)
	}
	listeners := append([]BookmarkListener(nil), mb.listeners...)
	mb.mu.Unlock()

	if !ok {
		return false
	}
	for _, l := range listeners {
		l.BookmarkRemoved(b)
	}
	return true
}

// Move sets the line of the bookmark for mnemonic, as the host would after an edit.
func (mb *MemoryBookmarks) Move(mnemonic rune, line int) bool {
	mb.mu.Lock()
	b, ok := mb.bookmarks[mnemonic]
	mb.mu.Unlock()
	if !ok {
		return false
	}
	b.mu.Lock()
	b.line = line
	b.mu.Unlock()
	return true
}

// Get returns the bookmark for mnemonic.
func (mb *MemoryBookmarks) Get(mnemonic rune) (Bookmark, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	b, ok := mb.bookmarks[mnemonic]
	if !ok {
		return nil, false
	}
	return b, true
}
