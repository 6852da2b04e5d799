package waymark

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// TextDocument is an in-memory, line-indexed text that reports its edits.
// It implements Document and TextEditEventSource.
//
// Offsets are byte offsets into the UTF-8 text; columns count runes. The
// line break is the last character of its line.
type TextDocument struct {
	path string

	mu         sync.RWMutex
	text       string
	lineStarts []int

	listenersMu sync.Mutex
	listeners   []ChangeListener
}

// NewTextDocument creates a document for path holding text.
// An empty path makes a scratch document that marks cannot attach to.
func NewTextDocument(path, text string) *TextDocument {
	d := &TextDocument{path: path}
	d.setText(text)
	return d
}

// setText replaces the text and rebuilds the line index. Caller holds d.mu
// or owns d exclusively.
func (d *TextDocument) setText(text string) {
	d.text = text
	d.lineStarts = d.lineStarts[:0]
	d.lineStarts = append(d.lineStarts, 0)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			d.lineStarts = append(d.lineStarts, i+1)
		}
	}
}

// Path implements Document.
func (d *TextDocument) Path() string {
	return d.path
}

// Text returns the whole document.
func (d *TextDocument) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// Len returns the document length in bytes.
func (d *TextDocument) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.text)
}

// LineCount implements Document.
func (d *TextDocument) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lineStarts)
}

// Line returns the content of line without its line break.
func (d *TextDocument) Line(line int) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text[d.lineStartLocked(line):d.lineEndLocked(line)]
}

// OffsetToPosition implements Document.
func (d *TextDocument) OffsetToPosition(offset int) LogicalPosition {
	d.mu.RLock()
	defer d.mu.RUnlock()

	offset = clamp(offset, 0, len(d.text))
	line := sort.Search(len(d.lineStarts), func(i int) bool {
		return d.lineStarts[i] > offset
	}) - 1
	col := utf8.RuneCountInString(d.text[d.lineStarts[line]:offset])
	return LogicalPosition{Line: line, Column: col}
}

// PositionToOffset implements Document. Columns past the end of the line
// clamp to the line end.
func (d *TextDocument) PositionToOffset(pos LogicalPosition) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	start := d.lineStartLocked(pos.Line)
	end := d.lineEndLocked(pos.Line)
	off := start
	for col := 0; col < pos.Column && off < end; col++ {
		_, size := utf8.DecodeRuneInString(d.text[off:end])
		off += size
	}
	return off
}

// LineStartOffset implements Document. Lines past the end clamp to the
// document end.
func (d *TextDocument) LineStartOffset(line int) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lineStartLocked(line)
}

// LineEndOffset implements Document.
func (d *TextDocument) LineEndOffset(line int) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lineEndLocked(line)
}

func (d *TextDocument) lineStartLocked(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(d.lineStarts) {
		return len(d.text)
	}
	return d.lineStarts[line]
}

func (d *TextDocument) lineEndLocked(line int) int {
	if line < 0 {
		line = 0
	}
	if line+1 < len(d.lineStarts) {
		return d.lineStarts[line+1] - 1
	}
	return len(d.text)
}

// AddChangeListener implements TextEditEventSource.
func (d *TextDocument) AddChangeListener(l ChangeListener) {
	d.listenersMu.Lock()
	d.listeners = append(d.listeners, l)
	d.listenersMu.Unlock()
}

// RemoveChangeListener implements TextEditEventSource.
func (d *TextDocument) RemoveChangeListener(l ChangeListener) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	for i, cur := range d.listeners {
		if cur == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// Insert inserts text at offset.
func (d *TextDocument) Insert(offset int, text string) error {
	return d.Replace(offset, 0, text, false)
}

// Delete removes length bytes at offset.
func (d *TextDocument) Delete(offset, length int) error {
	return d.Replace(offset, length, "", false)
}

// Change replaces length bytes at offset with text as one change command.
func (d *TextDocument) Change(offset, length int, text string) error {
	return d.Replace(offset, length, text, true)
}

// SetText replaces the whole document.
func (d *TextDocument) SetText(text string) error {
	return d.Replace(0, d.Len(), text, false)
}

// Replace replaces length bytes at offset with text. Listeners see the
// edit before it is applied and again after. change flags the edit as part
// of a change command.
func (d *TextDocument) Replace(offset, length int, text string, change bool) error {
	d.mu.RLock()
	size := len(d.text)
	d.mu.RUnlock()
	if offset < 0 || length < 0 || offset+length > size {
		return ErrInvalidPosition
	}
	if length == 0 && text == "" {
		return nil
	}

	ev := ChangeEvent{
		Offset:      offset,
		OldLength:   length,
		NewLength:   len(text),
		NewFragment: text,
		Change:      change,
	}

	d.listenersMu.Lock()
	listeners := append([]ChangeListener(nil), d.listeners...)
	d.listenersMu.Unlock()

	// Listeners read the document, so they run without d.mu held.
	for _, l := range listeners {
		l.BeforeChange(d, ev)
	}

	d.mu.Lock()
	var b strings.Builder
	b.Grow(len(d.text) - length + len(text))
	b.WriteString(d.text[:offset])
	b.WriteString(text)
	b.WriteString(d.text[offset+length:])
	d.setText(b.String())
	d.mu.Unlock()

	for _, l := range listeners {
		l.AfterChange(d, ev)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
