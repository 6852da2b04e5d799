package waymark

import "time"

// Defaults for Options fields left at their zero value.
const (
	DefaultJumpCapacity   = 100
	DefaultSavedFileCount = 20
)

// Options configures a Registry and the Session that owns it.
type Options struct {
	// JumpCapacity bounds the jump list. Oldest entries drop first.
	JumpCapacity int

	// SavedFileCount is how many of the most recently touched file tables
	// are written when state is saved.
	SavedFileCount int

	// UseBookmarks routes global marks through the external bookmark system.
	// Global marks are then left out of saved state, since the bookmark
	// system persists them itself.
	UseBookmarks bool

	// Bookmarks is the external bookmark system, if any.
	Bookmarks BookmarkSystem

	// Resolver turns saved file paths back into live files on first use.
	Resolver FileResolver

	// Clock supplies timestamps for file tables. Defaults to time.Now.
	Clock func() time.Time
}

// withDefaults fills zero-valued fields.
func (o Options) withDefaults() Options {
	if o.JumpCapacity <= 0 {
		o.JumpCapacity = DefaultJumpCapacity
	}
	if o.SavedFileCount <= 0 {
		o.SavedFileCount = DefaultSavedFileCount
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
