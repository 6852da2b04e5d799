package waymark

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// numberedText returns n lines of the form "line NN\n". Every line is 8
// bytes, so line i starts at offset 8*i.
func numberedText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "line %02d\n", i)
	}
	return b.String()
}

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

// trackedDocument creates a session and a document of n numbered lines
// whose edits the session reconciles.
func trackedDocument(t *testing.T, path string, n int) (*Session, *TextDocument) {
	t.Helper()
	s := NewSession(Options{Clock: stepClock()})
	doc := NewTextDocument(path, numberedText(n))
	s.Track(doc)
	return s, doc
}

func mustSetMark(t *testing.T, s *Session, doc *TextDocument, name rune, line, col int) *Mark {
	t.Helper()
	m, ok := s.SetMarkAt(doc, name, LogicalPosition{Line: line, Column: col})
	if !ok {
		t.Fatalf("Failed to set mark %q at %d:%d", name, line, col)
	}
	return m
}
