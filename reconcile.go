package waymark

import (
	"sync/atomic"

	"github.com/tliron/commonlog"
)

// ChangeEvent describes one edit to a document.
// The same event is delivered before the edit (with the document still
// holding the old text) and after it (with the new text in place).
type ChangeEvent struct {
	// Offset is where the edit starts.
	Offset int

	// OldLength is the number of bytes removed at Offset.
	OldLength int

	// NewLength is the number of bytes inserted at Offset.
	NewLength int

	// NewFragment is the inserted text. Only its first character is consulted.
	NewFragment string

	// Change is set when the edit comes from a change command, one that
	// replaces text rather than only deleting it.
	Change bool
}

// ChangeListener receives edit notifications from a TextEditEventSource.
// For a given document, notifications arrive in the order the edits are applied.
type ChangeListener interface {
	BeforeChange(doc Document, ev ChangeEvent)
	AfterChange(doc Document, ev ChangeEvent)
}

// TextEditEventSource is a host that reports edits to its documents.
type TextEditEventSource interface {
	AddChangeListener(l ChangeListener)
	RemoveChangeListener(l ChangeListener)
}

// Reconciler keeps a registry's marks on the right lines as documents change.
// Deletions are applied before the edit, while the removed text can still be
// measured; insertions are applied after it.
type Reconciler struct {
	registry *Registry
	disabled atomic.Bool
}

// NewReconciler creates a reconciler for the marks in registry.
func NewReconciler(registry *Registry) *Reconciler {
	return &Reconciler{registry: registry}
}

// Attach subscribes the reconciler to src.
func (rc *Reconciler) Attach(src TextEditEventSource) {
	src.AddChangeListener(rc)
}

// Detach unsubscribes the reconciler from src.
func (rc *Reconciler) Detach(src TextEditEventSource) {
	src.RemoveChangeListener(rc)
}

// SetEnabled turns mark tracking on or off.
func (rc *Reconciler) SetEnabled(enabled bool) {
	rc.disabled.Store(!enabled)
}

// Enabled reports whether mark tracking is on.
func (rc *Reconciler) Enabled() bool {
	return !rc.disabled.Load()
}

// BeforeChange updates marks for the text an edit is about to remove.
func (rc *Reconciler) BeforeChange(doc Document, ev ChangeEvent) {
	if !rc.Enabled() || doc == nil || ev.OldLength == 0 {
		return
	}
	log.Debugf("before change at %d: -%d bytes", ev.Offset, ev.OldLength)
	UpdateMarksFromDelete(doc, rc.registry.AllMarksFor(doc.Path()), ev.Offset, ev.OldLength, ev.Change, rc.registry.RemoveMark)
}

// AfterChange updates marks for the text an edit has just inserted.
func (rc *Reconciler) AfterChange(doc Document, ev ChangeEvent) {
	if !rc.Enabled() || doc == nil || ev.NewLength == 0 {
		return
	}
	// A single typed character cannot add a line unless it is the line break.
	if ev.NewLength == 1 && (ev.NewFragment == "" || ev.NewFragment[0] != '\n') {
		return
	}
	log.Debugf("after change at %d: +%d bytes", ev.Offset, ev.NewLength)
	UpdateMarksFromInsert(doc, rc.registry.AllMarksFor(doc.Path()), ev.Offset, ev.NewLength)
}

// UpdateMarksFromDelete updates marks for the deletion of delLength bytes at
// delStartOff. doc must still hold the text being deleted.
//
// A mark below the deletion moves up by the number of line breaks removed.
// A mark whose whole line, line break included, lies inside the deletion is
// removed through remove, unless change is set and the deletion starts
// exactly at the start of the mark's line: the line is then being replaced,
// not removed. A mark on the last line of a deletion that starts on an
// earlier line moves to the line the deletion starts on.
func UpdateMarksFromDelete(doc Document, marks map[rune]*Mark, delStartOff, delLength int, change bool, remove func(name rune, m *Mark) bool) {
	if doc == nil || len(marks) == 0 || delLength <= 0 {
		return
	}

	// delEndOff is the last deleted byte.
	delEndOff := delStartOff + delLength - 1
	delStart := doc.OffsetToPosition(delStartOff)
	delEnd := doc.OffsetToPosition(delEndOff + 1)
	log.Debugf("mark delete: start=%s end=%s", delStart, delEnd)

	for ch, mark := range marks {
		if mark == nil || mark.bookmark != nil || mark.IsClear() {
			continue
		}
		line := mark.Line()
		if log.AllowLevel(commonlog.Debug) {
			log.Debugf("mark = %s", mark)
		}

		switch {
		case delEnd.Line < line:
			lines := delEnd.Line - delStart.Line
			mark.setLine(line - lines)
			log.Debugf("shifting mark %q up by %d lines", ch, lines)

		case delStart.Line <= line && delEnd.Line >= line:
			lineStartOff := doc.LineStartOffset(line)
			lineEndOff := doc.LineEndOffset(line)
			changeFromLineStart := change && delStartOff == lineStartOff

			if delStartOff <= lineStartOff && delEndOff >= lineEndOff && !changeFromLineStart {
				if remove != nil {
					remove(ch, mark)
				}
				log.Debugf("removed mark %q", ch)
			} else if delStart.Line < line {
				mark.setLine(delStart.Line)
				log.Debugf("shifting mark %q to line %d", ch, delStart.Line)
			}
		}
	}
}

// UpdateMarksFromInsert updates marks for the insertion of insLength bytes at
// insStartOff. doc must already hold the inserted text.
//
// Only marks on lines after the line the insertion starts on move, and only
// when the insertion contains line breaks.
func UpdateMarksFromInsert(doc Document, marks map[rune]*Mark, insStartOff, insLength int) {
	if doc == nil || len(marks) == 0 || insLength <= 0 {
		return
	}

	insStart := doc.OffsetToPosition(insStartOff)
	insEnd := doc.OffsetToPosition(insStartOff + insLength)
	log.Debugf("mark insert: start=%s end=%s", insStart, insEnd)

	lines := insEnd.Line - insStart.Line
	if lines == 0 {
		return
	}

	for ch, mark := range marks {
		if mark == nil || mark.bookmark != nil || mark.IsClear() {
			continue
		}
		if line := mark.Line(); insStart.Line < line {
			mark.setLine(line + lines)
			log.Debugf("shifting mark %q down by %d lines", ch, lines)
		}
	}
}
