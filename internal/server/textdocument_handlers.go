package server

import (
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/phroun/waymark"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	doc := waymark.NewTextDocument(path, params.TextDocument.Text)

	s.mu.Lock()
	if old, ok := s.docs[params.TextDocument.URI]; ok {
		s.session.Untrack(old)
	}
	s.docs[params.TextDocument.URI] = doc
	s.session.Track(doc)
	s.mu.Unlock()

	log.Debugf("opened %s", path)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return fmt.Errorf("%w: %s", waymark.ErrFileNotOpen, params.TextDocument.URI)
	}

	for _, raw := range params.ContentChanges {
		if err := applyChange(doc, raw); err != nil {
			return fmt.Errorf("failed to apply change to %s: %w", doc.Path(), err)
		}
	}
	return nil
}

// applyChange applies one content change event. An incremental change
// that both removes and inserts text is reported as a change command.
func applyChange(doc *waymark.TextDocument, raw any) error {
	switch change := raw.(type) {
	case protocol.TextDocumentContentChangeEvent:
		if change.Range == nil {
			return doc.SetText(change.Text)
		}
		start := positionToOffset(doc, change.Range.Start)
		end := positionToOffset(doc, change.Range.End)
		if end < start {
			start, end = end, start
		}
		return doc.Replace(start, end-start, change.Text, end > start && change.Text != "")
	case protocol.TextDocumentContentChangeEventWhole:
		return doc.SetText(change.Text)
	default:
		return fmt.Errorf("unexpected change event type %T", raw)
	}
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	s.mu.Lock()
	doc, ok := s.docs[params.TextDocument.URI]
	if ok {
		delete(s.docs, params.TextDocument.URI)
		s.session.Untrack(doc)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}
	log.Debugf("closed %s", doc.Path())
	return s.save()
}
