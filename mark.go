package waymark

import (
	"fmt"
	"sync"
)

// DefaultProtocol is the protocol recorded for marks on local files.
const DefaultProtocol = "file"

// Mark is a named location in a file.
// Its name and file are fixed for its lifetime; only its line and column move,
// and only through edit reconciliation.
type Mark struct {
	key      rune
	filePath string
	protocol string

	// bookmark is set when an external bookmark system tracks this mark's line.
	bookmark Bookmark

	mu      sync.RWMutex
	line    int
	col     int
	cleared bool

	// Lazily resolved file handle
	handle   FileHandle
	resolved bool
}

// NewMark creates a mark. It returns nil when the mark has no file to live in.
// An empty protocol defaults to DefaultProtocol.
func NewMark(key rune, line, col int, filePath, protocol string) *Mark {
	if filePath == "" {
		return nil
	}
	if protocol == "" {
		protocol = DefaultProtocol
	}
	return &Mark{
		key:      NormalizeMarkName(key),
		filePath: filePath,
		protocol: protocol,
		line:     line,
		col:      col,
	}
}

// newBookmarkMark creates a mark whose line follows an external bookmark.
func newBookmarkMark(b Bookmark, col int) *Mark {
	m := NewMark(b.Mnemonic(), b.Line(), col, b.Path(), DefaultProtocol)
	if m != nil {
		m.bookmark = b
	}
	return m
}

// Key returns the mark's name.
func (m *Mark) Key() rune {
	return m.key
}

// FilePath returns the path of the file the mark lives in.
func (m *Mark) FilePath() string {
	return m.filePath
}

// Protocol returns the protocol tag of the mark's file.
func (m *Mark) Protocol() string {
	return m.protocol
}

// Line returns the mark's 0-indexed logical line.
func (m *Mark) Line() int {
	if m.bookmark != nil {
		return m.bookmark.Line()
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.line
}

// Column returns the mark's 0-indexed column.
func (m *Mark) Column() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.col
}

// Position returns the mark's line and column together.
func (m *Mark) Position() LogicalPosition {
	return LogicalPosition{Line: m.Line(), Column: m.Column()}
}

// Bookmark returns the external bookmark backing this mark, if any.
func (m *Mark) Bookmark() (Bookmark, bool) {
	return m.bookmark, m.bookmark != nil
}

// IsClear reports whether the mark has been invalidated.
func (m *Mark) IsClear() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cleared
}

// clear invalidates the mark. A cleared mark is never persisted.
func (m *Mark) clear() {
	m.mu.Lock()
	m.cleared = true
	m.mu.Unlock()
}

// setLine moves the mark to another line, keeping its column.
func (m *Mark) setLine(line int) {
	m.mu.Lock()
	m.line = line
	m.mu.Unlock()
}

// File resolves the mark's path to a live file handle. Resolution happens on
// first use and a successful result is cached.
func (m *Mark) File(resolver FileResolver) (FileHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resolved {
		return m.handle, true
	}
	if resolver == nil {
		return nil, false
	}
	h, ok := resolver.Resolve(m.filePath)
	if !ok {
		return nil, false
	}
	m.handle = h
	m.resolved = true
	return h, true
}

// String returns a debug representation of the mark.
func (m *Mark) String() string {
	return fmt.Sprintf("Mark{key=%q, line=%d, col=%d, file=%s, protocol=%s}",
		m.key, m.Line(), m.Column(), m.filePath, m.protocol)
}
