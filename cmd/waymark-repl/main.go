package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/phroun/waymark"
	"github.com/phroun/waymark/store/sqlite"
)

// REPL holds the state of the interactive session
type REPL struct {
	session *waymark.Session
	docs    map[string]*waymark.TextDocument
	doc     *waymark.TextDocument
	cursor  int
	reader  *bufio.Reader
	closer  func() error
}

func main() {
	verbosity := flag.Int("verbosity", 0, "Log verbosity")
	ideamarks := flag.Bool("ideamarks", false, "Back global marks with bookmarks")
	flag.Parse()
	commonlog.Configure(*verbosity, nil)

	fmt.Println("Waymark REPL - Interactive Mark Demo")
	fmt.Println("Type 'help' for available commands, 'quit' to exit")
	fmt.Println()

	options := waymark.Options{Resolver: waymark.LocalResolver{}}
	if *ideamarks {
		options.UseBookmarks = true
		options.Bookmarks = waymark.NewMemoryBookmarks()
	}

	repl := &REPL{
		session: waymark.NewSession(options),
		docs:    make(map[string]*waymark.TextDocument),
		reader:  bufio.NewReader(os.Stdin),
	}

	// Main loop
	for {
		fmt.Print(repl.prompt())
		input, err := repl.reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye!")
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if !repl.handleCommand(input) {
			break
		}
	}

	// Cleanup
	repl.closeStore()
}

func (r *REPL) prompt() string {
	if r.doc == nil {
		return "waymark> "
	}
	return fmt.Sprintf("waymark %s> ", filepath.Base(r.doc.Path()))
}

func (r *REPL) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help":
		r.printHelp()

	case "quit", "exit":
		fmt.Println("Goodbye!")
		return false

	case "new":
		r.cmdNew(args)

	case "open":
		r.cmdOpen(args)

	case "switch":
		r.cmdSwitch(args)

	case "close":
		r.cmdClose()

	case "status":
		r.cmdStatus()

	case "seek":
		r.cmdSeek(args)

	case "insert":
		r.cmdInsert(args)

	case "delete":
		r.cmdDelete(args)

	case "change":
		r.cmdChange(args)

	case "dump":
		r.cmdDump()

	case "mark", "m":
		r.cmdMark(args)

	case "goto", "'":
		r.cmdGoto(args)

	case "marks":
		r.cmdMarks()

	case "delmark", "delmarks":
		r.cmdDelMarks(args)

	case "jump":
		r.cmdJump()

	case "back":
		r.cmdBack()

	case "forward":
		r.cmdForward()

	case "jumps":
		r.cmdJumps()

	case "tracking":
		r.cmdTracking(args)

	case "store":
		r.cmdStore(args)

	case "save":
		r.cmdSave()

	case "load":
		r.cmdLoad()

	default:
		fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}

	return true
}

func (r *REPL) printHelp() {
	help := `
Available Commands:
-------------------

DOCUMENTS:
  new <path> <text>       Create an in-memory document for path
  open <filepath>         Open a file from disk
  switch <path>           Make an open document current
  close                   Close the current document (sets the " mark)
  status                  Show the current document and cursor

CURSOR AND EDITS:
  seek byte <pos>         Move cursor to byte offset
  seek line <line> <col>  Move cursor to line:column
  insert <text>           Insert text at the cursor (\n and \t are expanded)
  delete <length>         Delete bytes at the cursor
  change <length> <text>  Replace bytes at the cursor as a change command
  dump                    Show the current document with marks and cursor

MARKS:
  mark <name>             Set a mark at the cursor
  goto <name>             Jump to a mark (records a jump)
  marks                   List marks visible from the current document
  delmark <name>...       Delete marks
  tracking on|off         Enable or disable mark tracking

JUMPS:
  jump                    Record the cursor in the jump list
  back                    Go to the previous jump
  forward                 Go to the next jump
  jumps                   List the jump list

STATE:
  store <path>            Choose the state file (.xml, .json or .db)
  save                    Save marks and jumps
  load                    Load marks and jumps

OTHER:
  help                    Show this help message
  quit, exit              Exit the REPL
`
	fmt.Println(help)
}

func (r *REPL) cmdNew(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: new <path> <text>")
		return
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		fmt.Printf("Invalid path: %v\n", err)
		return
	}
	r.addDocument(waymark.NewTextDocument(path, unescape(strings.Join(args[1:], " "))))
}

func (r *REPL) cmdOpen(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: open <filepath>")
		return
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		fmt.Printf("Invalid path: %v\n", err)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error opening file: %v\n", err)
		return
	}
	r.addDocument(waymark.NewTextDocument(path, string(data)))
}

func (r *REPL) addDocument(doc *waymark.TextDocument) {
	if old, ok := r.docs[doc.Path()]; ok {
		r.session.Untrack(old)
	}
	r.docs[doc.Path()] = doc
	r.session.Track(doc)
	r.doc = doc
	r.cursor = 0
	fmt.Printf("Opened %s: %d bytes, %d lines\n", doc.Path(), doc.Len(), doc.LineCount())
}

func (r *REPL) cmdSwitch(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: switch <path>")
		return
	}
	path, _ := filepath.Abs(args[0])
	doc, ok := r.docs[path]
	if !ok {
		fmt.Printf("%s is not open\n", path)
		return
	}
	r.doc = doc
	r.cursor = 0
	if m, ok := r.session.GetMark(doc, waymark.MarkLastPosition); ok && m.FilePath() == doc.Path() {
		r.cursor = doc.PositionToOffset(m.Position())
	}
	r.printCursor()
}

func (r *REPL) cmdClose() {
	if !r.ensureDocument() {
		return
	}

	r.session.EditorReleased(r.doc, r.cursor)
	r.session.Untrack(r.doc)
	delete(r.docs, r.doc.Path())
	fmt.Printf("Closed %s\n", r.doc.Path())
	r.doc = nil
	r.cursor = 0
}

func (r *REPL) cmdStatus() {
	fmt.Printf("Open documents: %d\n", len(r.docs))
	fmt.Printf("Jumps: %d (cursor %d)\n", r.session.Jumps().Len(), r.session.Jumps().Position())
	fmt.Printf("Tracking: %v\n", r.session.Reconciler().Enabled())
	if r.doc == nil {
		fmt.Println("No document is current. Use 'new' or 'open'.")
		return
	}
	fmt.Printf("Current: %s (%d bytes, %d lines)\n", r.doc.Path(), r.doc.Len(), r.doc.LineCount())
	r.printCursor()
}

func (r *REPL) printCursor() {
	fmt.Printf("Cursor: byte=%d, line=%s\n", r.cursor, r.doc.OffsetToPosition(r.cursor))
}

func (r *REPL) cmdSeek(args []string) {
	if !r.ensureDocument() {
		return
	}

	if len(args) < 2 {
		fmt.Println("Usage: seek byte|line <pos> [<col>]")
		return
	}

	mode := strings.ToLower(args[0])
	pos, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Printf("Invalid position: %v\n", err)
		return
	}

	switch mode {
	case "byte":
		if pos < 0 || pos > r.doc.Len() {
			fmt.Printf("Seek error: %v\n", waymark.ErrInvalidPosition)
			return
		}
		r.cursor = pos
	case "line":
		col := 0
		if len(args) >= 3 {
			if col, err = strconv.Atoi(args[2]); err != nil {
				fmt.Printf("Invalid column: %v\n", err)
				return
			}
		}
		r.cursor = r.doc.PositionToOffset(waymark.LogicalPosition{Line: pos, Column: col})
	default:
		fmt.Println("Unknown seek mode. Use: byte or line")
		return
	}

	r.printCursor()
}

func (r *REPL) cmdInsert(args []string) {
	if !r.ensureDocument() {
		return
	}

	text := unescape(strings.Join(args, " "))
	if text == "" {
		fmt.Println("Usage: insert <text>")
		return
	}

	if err := r.doc.Insert(r.cursor, text); err != nil {
		fmt.Printf("Insert error: %v\n", err)
		return
	}
	r.cursor += len(text)
	fmt.Printf("Inserted %d bytes\n", len(text))
}

func (r *REPL) cmdDelete(args []string) {
	if !r.ensureDocument() {
		return
	}

	if len(args) < 1 {
		fmt.Println("Usage: delete <length>")
		return
	}
	length, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Invalid length: %v\n", err)
		return
	}

	if err := r.doc.Delete(r.cursor, length); err != nil {
		fmt.Printf("Delete error: %v\n", err)
		return
	}
	fmt.Printf("Deleted %d bytes\n", length)
}

func (r *REPL) cmdChange(args []string) {
	if !r.ensureDocument() {
		return
	}

	if len(args) < 1 {
		fmt.Println("Usage: change <length> <text>")
		return
	}
	length, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Invalid length: %v\n", err)
		return
	}
	text := unescape(strings.Join(args[1:], " "))

	if err := r.doc.Change(r.cursor, length, text); err != nil {
		fmt.Printf("Change error: %v\n", err)
		return
	}
	fmt.Printf("Replaced %d bytes with %d bytes\n", length, len(text))
}

func (r *REPL) cmdDump() {
	if !r.ensureDocument() {
		return
	}

	marksByLine := make(map[int][]rune)
	for _, m := range r.session.Registry().ListMarks(r.doc.Path()) {
		if m.FilePath() == r.doc.Path() {
			marksByLine[m.Line()] = append(marksByLine[m.Line()], m.Key())
		}
	}

	cursor := r.doc.OffsetToPosition(r.cursor)

	fmt.Println("Content:")
	fmt.Println("--------")
	for i := 0; i < r.doc.LineCount(); i++ {
		line := r.doc.Line(i)
		fmt.Printf("%4d %-6s %s\n", i, string(marksByLine[i]), line)
		if i == cursor.Line {
			fmt.Printf("%12s%s^\n", "", strings.Repeat(" ", displayWidth(line, cursor.Column)))
		}
	}
	fmt.Println("--------")
}

// displayWidth returns the terminal width of the first col runes of line.
func displayWidth(line string, col int) int {
	width := 0
	for _, ch := range line {
		if col == 0 {
			break
		}
		width += runewidth.RuneWidth(ch)
		col--
	}
	return width
}

func (r *REPL) cmdMark(args []string) {
	if !r.ensureDocument() {
		return
	}

	name, ok := parseName(args)
	if !ok {
		fmt.Println("Usage: mark <name>")
		return
	}
	m, ok := r.session.SetMark(r.doc, name, r.cursor)
	if !ok {
		fmt.Printf("Error: %v: %q\n", waymark.ErrInvalidMarkName, name)
		return
	}
	fmt.Printf("Set %s\n", m)
}

func (r *REPL) cmdGoto(args []string) {
	name, ok := parseName(args)
	if !ok {
		fmt.Println("Usage: goto <name>")
		return
	}

	var from waymark.Document
	if r.doc != nil {
		from = r.doc
	}
	m, ok := r.session.GetMark(from, name)
	if !ok {
		fmt.Printf("Error: %v: %q\n", waymark.ErrMarkNotFound, name)
		return
	}

	if r.doc != nil {
		r.session.SaveJumpLocation(r.doc, r.cursor)
	}
	if h, ok := m.File(r.session.Registry().Resolver()); ok {
		if lf, ok := h.(*waymark.LocalFile); ok {
			fmt.Printf("Resolved %s (%d bytes on disk)\n", lf.Path, lf.Info.Size())
		}
	}
	r.moveTo(m.FilePath(), m.Line(), m.Column())
}

// moveTo makes path current, if it is open, and puts the cursor at line:col.
func (r *REPL) moveTo(path string, line, col int) {
	doc, ok := r.docs[path]
	if !ok {
		fmt.Printf("%s:%d:%d (not open)\n", path, line, col)
		return
	}
	r.doc = doc
	r.cursor = doc.PositionToOffset(waymark.LogicalPosition{Line: line, Column: col})
	r.printCursor()
}

func (r *REPL) cmdMarks() {
	path := ""
	if r.doc != nil {
		path = r.doc.Path()
	}
	marks := r.session.Registry().ListMarks(path)
	if len(marks) == 0 {
		fmt.Println("  (no marks)")
		return
	}
	fmt.Println("mark line  col file")
	for _, m := range marks {
		fmt.Printf(" %c   %5d %4d %s\n", m.Key(), m.Line(), m.Column(), m.FilePath())
	}
}

func (r *REPL) cmdDelMarks(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: delmark <name>...")
		return
	}
	if args[0] == "!" {
		if !r.ensureDocument() {
			return
		}
		n := r.session.Registry().DeleteFileMarks(r.doc.Path())
		fmt.Printf("Deleted %d file marks\n", n)
		return
	}

	var from waymark.Document
	if r.doc != nil {
		from = r.doc
	}
	for _, arg := range args {
		for _, name := range arg {
			if r.session.DeleteMark(from, name) {
				fmt.Printf("Deleted %c\n", name)
			} else {
				fmt.Printf("Mark %c not set\n", name)
			}
		}
	}
}

func (r *REPL) cmdJump() {
	if !r.ensureDocument() {
		return
	}
	r.session.SaveJumpLocation(r.doc, r.cursor)
	fmt.Printf("Recorded jump at %s\n", r.doc.OffsetToPosition(r.cursor))
}

func (r *REPL) cmdBack() {
	j, err := r.session.JumpBack()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	r.moveTo(j.FilePath, j.Line, j.Column)
}

func (r *REPL) cmdForward() {
	j, err := r.session.JumpForward()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	r.moveTo(j.FilePath, j.Line, j.Column)
}

func (r *REPL) cmdJumps() {
	jumps := r.session.Jumps().Jumps()
	pos := r.session.Jumps().Position()
	if len(jumps) == 0 {
		fmt.Println("  (no jumps)")
		return
	}
	for i, j := range jumps {
		marker := "  "
		if i == pos {
			marker = "> "
		}
		fmt.Printf("%s%3d %s\n", marker, i, j)
	}
	if pos == len(jumps) {
		fmt.Println(">")
	}
}

func (r *REPL) cmdTracking(args []string) {
	if len(args) < 1 {
		fmt.Printf("Tracking: %v\n", r.session.Reconciler().Enabled())
		return
	}
	r.session.Reconciler().SetEnabled(strings.EqualFold(args[0], "on"))
	fmt.Printf("Tracking: %v\n", r.session.Reconciler().Enabled())
}

func (r *REPL) cmdStore(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: store <path>")
		return
	}
	r.closeStore()

	path := args[0]
	if strings.EqualFold(filepath.Ext(path), ".db") {
		store, err := sqlite.Open(path)
		if err != nil {
			fmt.Printf("Error opening database: %v\n", err)
			return
		}
		r.session.SetStore(store)
		r.closer = store.Close
	} else {
		r.session.SetStore(waymark.NewFileStateStore(path))
	}
	fmt.Printf("Storing state in %s\n", path)
}

func (r *REPL) closeStore() {
	if r.closer != nil {
		r.closer()
		r.closer = nil
	}
}

func (r *REPL) cmdSave() {
	if err := r.session.Save(); err != nil {
		fmt.Printf("Save error: %v\n", err)
		return
	}
	fmt.Println("Saved")
}

func (r *REPL) cmdLoad() {
	err := r.session.Load()
	if errors.Is(err, waymark.ErrNoStateStore) {
		fmt.Println("No store chosen. Use 'store <path>' first.")
		return
	}
	if err != nil {
		fmt.Printf("Load error: %v\n", err)
		return
	}

	files := r.session.Registry().Files()
	sort.Slice(files, func(i, j int) bool { return files[i].Path() < files[j].Path() })
	for _, t := range files {
		fmt.Printf("  %s: %s\n", t.Path(), string(t.Names()))
	}
	fmt.Printf("Loaded. %d jumps\n", r.session.Jumps().Len())
}

func (r *REPL) ensureDocument() bool {
	if r.doc == nil {
		fmt.Println("No document is open. Use 'new <path> <text>' to create one.")
		return false
	}
	return true
}

func parseName(args []string) (rune, bool) {
	if len(args) < 1 {
		return 0, false
	}
	name := []rune(args[0])
	if len(name) != 1 {
		return 0, false
	}
	return name[0], true
}

// Handle escape sequences
func unescape(text string) string {
	text = strings.ReplaceAll(text, "\\n", "\n")
	text = strings.ReplaceAll(text, "\\t", "\t")
	return text
}
