package waymark

import (
	"strings"
	"unicode"
)

// Mark name classes.
const (
	// FileMarkNames are the file-local marks a user sets directly.
	FileMarkNames = "abcdefghijklmnopqrstuvwxyz"

	// SymbolicFileMarkNames are file-local marks the host sets implicitly:
	// change start/end, visual start/end, last insert and last change.
	SymbolicFileMarkNames = "[]<>^."

	// GlobalMarkNames are the cross-file marks a user sets directly. They are
	// also the mnemonics an external bookmark system can back.
	GlobalMarkNames = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// SymbolicGlobalMarkNames are cross-file marks the host sets implicitly:
	// last position and jump origin.
	SymbolicGlobalMarkNames = "\"'"

	// SavedFileMarkNames is the allow-set written into persisted file tables.
	SavedFileMarkNames = FileMarkNames + "[]^."
)

// Well-known symbolic marks.
const (
	MarkLastPosition rune = '"'
	MarkJumpOrigin   rune = '\''
	MarkJumpAlias    rune = '`'
	MarkChangeStart  rune = '['
	MarkChangeEnd    rune = ']'
	MarkVisualStart  rune = '<'
	MarkVisualEnd    rune = '>'
	MarkLastInsert   rune = '^'
	MarkLastChange   rune = '.'
)

// NormalizeMarkName folds aliases onto their canonical name.
func NormalizeMarkName(name rune) rune {
	if name == MarkJumpAlias {
		return MarkJumpOrigin
	}
	return name
}

// IsFileMark reports whether name is kept only in its file's table.
func IsFileMark(name rune) bool {
	name = NormalizeMarkName(name)
	return strings.ContainsRune(FileMarkNames, name) || strings.ContainsRune(SymbolicFileMarkNames, name)
}

// IsGlobalMark reports whether name is kept in the global table as well.
func IsGlobalMark(name rune) bool {
	name = NormalizeMarkName(name)
	return strings.ContainsRune(GlobalMarkNames, name) || strings.ContainsRune(SymbolicGlobalMarkNames, name)
}

// IsBookmarkMnemonic reports whether name can be backed by an external bookmark.
func IsBookmarkMnemonic(name rune) bool {
	return strings.ContainsRune(GlobalMarkNames, name)
}

// ValidSetMark reports whether name can be set at all.
func ValidSetMark(name rune) bool {
	return IsFileMark(name) || IsGlobalMark(name)
}

// isSavedFileMark reports whether a file table entry belongs in persisted state.
func isSavedFileMark(name rune) bool {
	return !unicode.IsUpper(name) && strings.ContainsRune(SavedFileMarkNames, name)
}
