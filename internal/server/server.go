package server

import (
	"fmt"
	"io"
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/phroun/waymark"
	"github.com/phroun/waymark/internal/config"
	"github.com/phroun/waymark/store/sqlite"
)

const Name = "waymark"

var log = commonlog.GetLogger("waymark.server")

type Server struct {
	handler *protocol.Handler
	config  config.Config

	mu      sync.Mutex
	session *waymark.Session
	closer  io.Closer
	docs    map[protocol.DocumentUri]*waymark.TextDocument
}

// NewServer creates the language server. cfg is the base configuration;
// initialization options sent by the client are merged over it.
func NewServer(cfg config.Config) (*server.Server, error) {
	ls := newServer(cfg)
	return server.NewServer(ls.handler, Name, false), nil
}

func newServer(cfg config.Config) *Server {
	ls := &Server{
		config:  cfg,
		session: waymark.NewSession(sessionOptions(cfg)),
		docs:    make(map[protocol.DocumentUri]*waymark.TextDocument),
	}
	ls.handler = &protocol.Handler{
		Initialize:              ls.initialize,
		Initialized:             ls.initialized,
		Shutdown:                ls.shutdown,
		TextDocumentDidOpen:     ls.textDocumentDidOpen,
		TextDocumentDidChange:   ls.textDocumentDidChange,
		TextDocumentDidClose:    ls.textDocumentDidClose,
		WorkspaceExecuteCommand: ls.workspaceExecuteCommand,
	}
	return ls
}

func sessionOptions(cfg config.Config) waymark.Options {
	options := waymark.Options{
		JumpCapacity:   cfg.JumpCapacity,
		SavedFileCount: cfg.SavedFileCount,
		UseBookmarks:   cfg.IdeaMarks,
		Resolver:       waymark.LocalResolver{},
	}
	if cfg.IdeaMarks {
		options.Bookmarks = waymark.NewMemoryBookmarks()
	}
	return options
}

// openStore opens the state store cfg selects. The returned closer is nil
// for stores that hold nothing open.
func openStore(cfg config.Config) (waymark.StateStore, io.Closer, error) {
	path, err := cfg.ResolveStatePath()
	if err != nil {
		return nil, nil, err
	}

	if cfg.StateFormat == "sqlite" {
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open state database: %w", err)
		}
		return store, store, nil
	}

	format, err := waymark.ParseFormat(cfg.StateFormat)
	if err != nil {
		return nil, nil, err
	}
	return waymark.NewFileStateStoreWith(nil, path, format), nil, nil
}

// document returns the open document for uri.
func (s *Server) document(uri protocol.DocumentUri) (*waymark.TextDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// documentForPath returns the open document backed by path.
func (s *Server) documentForPath(path string) (*waymark.TextDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc.Path() == path {
			return doc, true
		}
	}
	return nil, false
}

func (s *Server) currentSession() *waymark.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// save writes the session if a store is configured.
func (s *Server) save() error {
	err := s.currentSession().Save()
	if err == waymark.ErrNoStateStore {
		return nil
	}
	return err
}
