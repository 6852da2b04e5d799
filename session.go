package waymark

import (
	"errors"
	"fmt"
	"sync"
)

// Session owns the marks and jumps of one editing context and the
// reconciler that keeps them current. Consumers share a *Session instead
// of reaching for a global.
type Session struct {
	options    Options
	registry   *Registry
	jumps      *JumpList
	reconciler *Reconciler

	storeMu sync.Mutex
	store   StateStore
}

// NewSession creates an empty session.
func NewSession(options Options) *Session {
	options = options.withDefaults()
	registry := NewRegistry(options)
	return &Session{
		options:    options,
		registry:   registry,
		jumps:      NewJumpList(options.JumpCapacity),
		reconciler: NewReconciler(registry),
	}
}

// Options returns the session's options with defaults applied.
func (s *Session) Options() Options {
	return s.options
}

// Registry returns the session's mark registry.
func (s *Session) Registry() *Registry {
	return s.registry
}

// Jumps returns the session's jump list.
func (s *Session) Jumps() *JumpList {
	return s.jumps
}

// Reconciler returns the reconciler keeping the session's marks current.
func (s *Session) Reconciler() *Reconciler {
	return s.reconciler
}

// Track starts reconciling marks against edits reported by src.
func (s *Session) Track(src TextEditEventSource) {
	s.reconciler.Attach(src)
}

// Untrack stops reconciling marks against src.
func (s *Session) Untrack(src TextEditEventSource) {
	s.reconciler.Detach(src)
}

// SetMark sets name at offset in doc. It is a no-op returning false when
// doc has no path or name cannot be set.
func (s *Session) SetMark(doc Document, name rune, offset int) (*Mark, bool) {
	if doc == nil || doc.Path() == "" {
		return nil, false
	}
	return s.SetMarkAt(doc, name, doc.OffsetToPosition(offset))
}

// SetMarkAt sets name at pos in doc.
func (s *Session) SetMarkAt(doc Document, name rune, pos LogicalPosition) (*Mark, bool) {
	if doc == nil || doc.Path() == "" {
		return nil, false
	}
	return s.registry.SetMark(name, pos.Line, pos.Column, doc.Path(), DefaultProtocol)
}

// GetMark returns the mark name as seen from doc.
func (s *Session) GetMark(doc Document, name rune) (*Mark, bool) {
	path := ""
	if doc != nil {
		path = doc.Path()
	}
	return s.registry.GetMark(name, path)
}

// DeleteMark removes the mark name as seen from doc.
func (s *Session) DeleteMark(doc Document, name rune) bool {
	if doc == nil {
		return s.registry.DeleteMark(name, "")
	}
	return s.registry.DeleteMark(name, doc.Path())
}

// SaveJumpLocation records offset in doc as a jump origin: it is added to
// the jump list and becomes the ' mark.
func (s *Session) SaveJumpLocation(doc Document, offset int) bool {
	if doc == nil || doc.Path() == "" {
		return false
	}
	pos := doc.OffsetToPosition(offset)
	s.jumps.Add(pos.Line, pos.Column, doc.Path())
	_, ok := s.registry.SetMark(MarkJumpOrigin, pos.Line, pos.Column, doc.Path(), DefaultProtocol)
	return ok
}

// JumpBack moves back through the jump list.
func (s *Session) JumpBack() (Jump, error) {
	j, ok := s.jumps.Back()
	if !ok {
		return Jump{}, ErrNoMoreJumps
	}
	return j, nil
}

// JumpForward moves forward through the jump list.
func (s *Session) JumpForward() (Jump, error) {
	j, ok := s.jumps.Forward()
	if !ok {
		return Jump{}, ErrNoMoreJumps
	}
	return j, nil
}

// EditorReleased records the last cursor offset in doc as the " mark, as
// when the file is closed.
func (s *Session) EditorReleased(doc Document, offset int) bool {
	_, ok := s.SetMark(doc, MarkLastPosition, offset)
	return ok
}

// ExportState returns the persisted form of the session.
func (s *Session) ExportState() *State {
	return exportState(s.registry, s.jumps, s.options.SavedFileCount)
}

// ImportState restores a persisted session. Marks are added to the current
// ones; the jump list is replaced.
func (s *Session) ImportState(state *State) {
	importState(state, s.registry, s.jumps, s.options.Clock())
}

// SetStore selects where Save and Load go.
func (s *Session) SetStore(store StateStore) {
	s.storeMu.Lock()
	s.store = store
	s.storeMu.Unlock()
}

// Save writes the session to its store.
func (s *Session) Save() error {
	s.storeMu.Lock()
	store := s.store
	s.storeMu.Unlock()
	if store == nil {
		return ErrNoStateStore
	}

	state := s.ExportState()
	if err := store.Save(state); err != nil {
		return fmt.Errorf("failed to save marks: %w", err)
	}
	log.Infof("saved %d global marks, %d file tables, %d jumps",
		len(state.GlobalMarks), len(state.FileMarks), len(state.Jumps))
	return nil
}

// Load restores the session from its store. A store with nothing saved yet
// leaves the session unchanged.
func (s *Session) Load() error {
	s.storeMu.Lock()
	store := s.store
	s.storeMu.Unlock()
	if store == nil {
		return ErrNoStateStore
	}

	state, err := store.Load()
	if errors.Is(err, ErrStateNotFound) {
		log.Info("no saved marks")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load marks: %w", err)
	}
	s.ImportState(state)
	log.Infof("loaded %d global marks, %d file tables, %d jumps",
		len(state.GlobalMarks), len(state.FileMarks), len(state.Jumps))
	return nil
}
