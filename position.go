package waymark

import "fmt"

// LogicalPosition is a line and a rune position within that line.
// Both values are 0-indexed. The line break is the last character of its line.
type LogicalPosition struct {
	Line   int
	Column int
}

// String returns the position as "line:column".
func (p LogicalPosition) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Document is the view of the host's text the reconciler needs.
// Offsets are absolute byte offsets into the document text.
type Document interface {
	// Path returns the file path backing the document, or "" if it has none.
	Path() string

	// OffsetToPosition converts an absolute offset to a logical position.
	// Offsets past the end clamp to the end of the document.
	OffsetToPosition(offset int) LogicalPosition

	// PositionToOffset converts a logical position to an absolute offset.
	PositionToOffset(pos LogicalPosition) int

	// LineStartOffset returns the offset of the first character of line.
	LineStartOffset(line int) int

	// LineEndOffset returns the offset just past the content of line,
	// which is the offset of its line break when it has one.
	LineEndOffset(line int) int

	// LineCount returns the number of lines. An empty document has one line.
	LineCount() int
}
