package waymark

import (
	"fmt"
	"sync"
)

// Jump is a recorded past cursor location.
type Jump struct {
	Line     int
	Column   int
	FilePath string
}

// String returns the jump as "path:line:column".
func (j Jump) String() string {
	return fmt.Sprintf("%s:%d:%d", j.FilePath, j.Line, j.Column)
}

// JumpList is a bounded navigation history, oldest first, holding at most
// one entry per file. A traversal cursor walks it without changing it.
type JumpList struct {
	mu       sync.Mutex
	capacity int
	jumps    []Jump

	// pos is the traversal cursor. len(jumps) means "at the present", past
	// the newest entry.
	pos int
}

// NewJumpList creates an empty list holding at most capacity entries.
// A non-positive capacity selects DefaultJumpCapacity.
func NewJumpList(capacity int) *JumpList {
	if capacity <= 0 {
		capacity = DefaultJumpCapacity
	}
	return &JumpList{capacity: capacity}
}

// Capacity returns the maximum number of entries.
func (jl *JumpList) Capacity() int {
	return jl.capacity
}

// Add records a visit to line:col of path. An older entry for the same file
// is dropped first, the oldest entries are dropped past capacity, and the
// traversal cursor returns to the present.
func (jl *JumpList) Add(line, col int, path string) {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	jl.addLocked(Jump{Line: line, Column: col, FilePath: path})
}

func (jl *JumpList) addLocked(j Jump) {
	for i, old := range jl.jumps {
		if old.FilePath == j.FilePath {
			jl.jumps = append(jl.jumps[:i], jl.jumps[i+1:]...)
			break
		}
	}
	jl.jumps = append(jl.jumps, j)
	if over := len(jl.jumps) - jl.capacity; over > 0 {
		jl.jumps = append(jl.jumps[:0], jl.jumps[over:]...)
	}
	jl.pos = len(jl.jumps)
}

// Back moves the cursor to the next older entry and returns it.
func (jl *JumpList) Back() (Jump, bool) {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	if jl.pos <= 0 || len(jl.jumps) == 0 {
		return Jump{}, false
	}
	jl.pos--
	return jl.jumps[jl.pos], true
}

// Forward moves the cursor to the next newer entry and returns it.
func (jl *JumpList) Forward() (Jump, bool) {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	if jl.pos+1 >= len(jl.jumps) {
		return Jump{}, false
	}
	jl.pos++
	return jl.jumps[jl.pos], true
}

// Position returns the traversal cursor. It equals Len when at the present.
func (jl *JumpList) Position() int {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	return jl.pos
}

// Len returns the number of entries.
func (jl *JumpList) Len() int {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	return len(jl.jumps)
}

// Jumps returns a copy of the entries, oldest first.
func (jl *JumpList) Jumps() []Jump {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	return append([]Jump(nil), jl.jumps...)
}

// Clear empties the list.
func (jl *JumpList) Clear() {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	jl.jumps = nil
	jl.pos = 0
}

// replace rebuilds the list from jumps, oldest first, as if each were added in turn.
func (jl *JumpList) replace(jumps []Jump) {
	jl.mu.Lock()
	defer jl.mu.Unlock()
	jl.jumps = nil
	jl.pos = 0
	for _, j := range jumps {
		jl.addLocked(j)
	}
}
