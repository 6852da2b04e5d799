package server

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/phroun/waymark"
)

// CommandArgs is the single argument object of every waymark command.
type CommandArgs struct {
	URI      protocol.DocumentUri `json:"uri,omitempty"`
	Name     string               `json:"name,omitempty"`
	Position *protocol.Position   `json:"position,omitempty"`
}

// MarkResult describes a mark in a command reply.
type MarkResult struct {
	Name     string               `json:"name"`
	URI      protocol.DocumentUri `json:"uri"`
	Position protocol.Position    `json:"position"`
}

// JumpResult describes a jump in a command reply.
type JumpResult struct {
	URI      protocol.DocumentUri `json:"uri"`
	Position protocol.Position    `json:"position"`
}

type commandFunc func(s *Server, args CommandArgs) (any, error)

var commands = map[string]commandFunc{
	"waymark.setMark":     (*Server).setMark,
	"waymark.getMark":     (*Server).getMark,
	"waymark.deleteMark":  (*Server).deleteMark,
	"waymark.listMarks":   (*Server).listMarks,
	"waymark.addJump":     (*Server).addJump,
	"waymark.jumpBack":    (*Server).jumpBack,
	"waymark.jumpForward": (*Server).jumpForward,
	"waymark.release":     (*Server).release,
	"waymark.save":        (*Server).saveCommand,
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) workspaceExecuteCommand(
	context *glsp.Context,
	params *protocol.ExecuteCommandParams,
) (any, error) {
	cmd, ok := commands[params.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
	args, err := decodeArgs(params.Arguments)
	if err != nil {
		return nil, err
	}
	log.Debugf("command %s %+v", params.Command, args)
	return cmd(s, args)
}

func decodeArgs(arguments []any) (CommandArgs, error) {
	var args CommandArgs
	if len(arguments) == 0 {
		return args, nil
	}
	data, err := json.Marshal(arguments[0])
	if err != nil {
		return args, fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(data, &args); err != nil {
		return args, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}
	return args, nil
}

// openAt returns the open document args names and the byte offset of
// args.Position within it.
func (s *Server) openAt(args CommandArgs) (*waymark.TextDocument, int, error) {
	doc, ok := s.document(args.URI)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", waymark.ErrFileNotOpen, args.URI)
	}
	if doc.Path() == "" {
		return nil, 0, fmt.Errorf("%w: %s", waymark.ErrNoFilePath, args.URI)
	}
	if args.Position == nil {
		return nil, 0, fmt.Errorf("%w: missing position", waymark.ErrInvalidPosition)
	}
	return doc, positionToOffset(doc, *args.Position), nil
}

func (s *Server) markResult(m *waymark.Mark) MarkResult {
	doc, _ := s.documentForPath(m.FilePath())
	return MarkResult{
		Name:     string(m.Key()),
		URI:      pathToURI(m.FilePath()),
		Position: lspPosition(doc, m.Line(), m.Column()),
	}
}

func (s *Server) jumpResult(j waymark.Jump) JumpResult {
	doc, _ := s.documentForPath(j.FilePath)
	return JumpResult{
		URI:      pathToURI(j.FilePath),
		Position: lspPosition(doc, j.Line, j.Column),
	}
}

func (s *Server) setMark(args CommandArgs) (any, error) {
	name, err := markName(args.Name)
	if err != nil {
		return nil, err
	}
	doc, offset, err := s.openAt(args)
	if err != nil {
		return nil, err
	}
	m, ok := s.currentSession().SetMark(doc, name, offset)
	if !ok {
		return nil, fmt.Errorf("%w: %q", waymark.ErrInvalidMarkName, args.Name)
	}
	return s.markResult(m), nil
}

func (s *Server) getMark(args CommandArgs) (any, error) {
	name, err := markName(args.Name)
	if err != nil {
		return nil, err
	}
	path := ""
	if args.URI != "" {
		if path, err = uriToPath(args.URI); err != nil {
			return nil, err
		}
	}
	m, ok := s.currentSession().Registry().GetMark(name, path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", waymark.ErrMarkNotFound, args.Name)
	}
	return s.markResult(m), nil
}

func (s *Server) deleteMark(args CommandArgs) (any, error) {
	name, err := markName(args.Name)
	if err != nil {
		return nil, err
	}
	path, err := uriToPath(args.URI)
	if err != nil {
		return nil, err
	}
	return s.currentSession().Registry().DeleteMark(name, path), nil
}

func (s *Server) listMarks(args CommandArgs) (any, error) {
	path := ""
	if args.URI != "" {
		var err error
		if path, err = uriToPath(args.URI); err != nil {
			return nil, err
		}
	}
	marks := s.currentSession().Registry().ListMarks(path)
	results := make([]MarkResult, 0, len(marks))
	for _, m := range marks {
		results = append(results, s.markResult(m))
	}
	return results, nil
}

func (s *Server) addJump(args CommandArgs) (any, error) {
	doc, offset, err := s.openAt(args)
	if err != nil {
		return nil, err
	}
	return s.currentSession().SaveJumpLocation(doc, offset), nil
}

func (s *Server) jumpBack(args CommandArgs) (any, error) {
	j, err := s.currentSession().JumpBack()
	if err != nil {
		return nil, err
	}
	return s.jumpResult(j), nil
}

func (s *Server) jumpForward(args CommandArgs) (any, error) {
	j, err := s.currentSession().JumpForward()
	if err != nil {
		return nil, err
	}
	return s.jumpResult(j), nil
}

// release records the cursor position of a document the editor is done
// with as the last-position mark.
func (s *Server) release(args CommandArgs) (any, error) {
	doc, offset, err := s.openAt(args)
	if err != nil {
		return nil, err
	}
	return s.currentSession().EditorReleased(doc, offset), nil
}

func (s *Server) saveCommand(args CommandArgs) (any, error) {
	return nil, s.currentSession().Save()
}
