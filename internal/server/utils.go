package server

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/phroun/waymark"
)

// uriToPath returns the file path marks use for uri. URIs that are not
// file URIs are used as they are.
func uriToPath(uri protocol.DocumentUri) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return uri, nil
	}
	return filepath.FromSlash(u.Path), nil
}

func pathToURI(path string) protocol.DocumentUri {
	if strings.Contains(path, "://") {
		return path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// positionToOffset converts an LSP position, whose character counts UTF-16
// code units, to a byte offset in doc.
func positionToOffset(doc *waymark.TextDocument, pos protocol.Position) int {
	line := int(pos.Line)
	if line >= doc.LineCount() {
		return doc.Len()
	}
	offset := doc.LineStartOffset(line)

	var charCount int
	for _, r := range doc.Line(line) {
		unitCount := 1
		if r > 0xFFFF {
			unitCount = 2
		}
		if uint32(charCount+unitCount) > pos.Character {
			break
		}
		charCount += unitCount
		offset += len(string(r))
	}
	return offset
}

// lspPosition converts a line and rune column to an LSP position. The
// column is translated to UTF-16 units when doc is open.
func lspPosition(doc *waymark.TextDocument, line, col int) protocol.Position {
	pos := protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
	if doc == nil || line >= doc.LineCount() {
		return pos
	}

	var units, runes int
	for _, r := range doc.Line(line) {
		if runes >= col {
			break
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		runes++
	}
	pos.Character = protocol.UInteger(units)
	return pos
}

// markName decodes a one-character mark name.
func markName(s string) (rune, error) {
	r := []rune(s)
	if len(r) != 1 || !waymark.ValidSetMark(r[0]) {
		return 0, fmt.Errorf("%w: %q", waymark.ErrInvalidMarkName, s)
	}
	return waymark.NormalizeMarkName(r[0]), nil
}
