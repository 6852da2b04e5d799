package server

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/phroun/waymark"
)

var Version = "(dev) v0.0.0"

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := s.config.Merge(params.InitializationOptions)
	if err != nil {
		return nil, err
	}
	log.Infof("config: %+v", cfg)

	session := waymark.NewSession(sessionOptions(cfg))
	store, closer, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	session.SetStore(store)
	if err := session.Load(); err != nil {
		// Start with no marks if the saved state is unreadable.
		log.Warningf("could not restore marks: %s", err)
	}

	s.mu.Lock()
	old := s.session
	s.config = cfg
	s.session = session
	s.closer = closer
	for _, doc := range s.docs {
		old.Untrack(doc)
		session.Track(doc)
	}
	s.mu.Unlock()

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}
	capabilities.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{
		Commands: commandNames(),
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &Version,
		},
	}, nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	err := s.save()

	s.mu.Lock()
	closer := s.closer
	s.closer = nil
	s.mu.Unlock()

	if closer != nil {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
