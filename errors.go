// Package waymark maintains named marks and a jump history for a text
// editing environment, keeping every mark on the right line as the text
// underneath it is edited.
package waymark

import "errors"

// Mark errors
var (
	// ErrNoFilePath indicates that a document has no resolvable file path.
	ErrNoFilePath = errors.New("document has no file path")

	// ErrInvalidMarkName indicates that a character cannot name a mark.
	ErrInvalidMarkName = errors.New("invalid mark name")

	// ErrMarkNotFound indicates that no mark is set under the requested name.
	ErrMarkNotFound = errors.New("mark not set")
)

// Position errors
var (
	// ErrInvalidPosition indicates that an offset or range is out of bounds.
	ErrInvalidPosition = errors.New("position out of bounds")
)

// Jump errors
var (
	// ErrNoMoreJumps indicates that the jump cursor is already at an end of the list.
	ErrNoMoreJumps = errors.New("no more jumps in that direction")
)

// State errors
var (
	// ErrNoStateStore indicates that a save or load was requested without a store.
	ErrNoStateStore = errors.New("no state store configured")

	// ErrStateNotFound indicates that the store holds no saved state yet.
	ErrStateNotFound = errors.New("no saved state")

	// ErrUnknownFormat indicates that a state encoding is not recognised.
	ErrUnknownFormat = errors.New("unknown state format")
)

// Document errors
var (
	// ErrFileNotOpen indicates that the file handle is not open.
	ErrFileNotOpen = errors.New("file not open")
)
