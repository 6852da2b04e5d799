package waymark

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// populate fills s with marks in two files and a few jumps.
func populate(t *testing.T, s *Session) {
	t.Helper()
	a := NewTextDocument("/p/a.txt", numberedText(20))
	b := NewTextDocument("/p/b.txt", numberedText(20))

	mustSetMark(t, s, a, 'a', 3, 1)
	mustSetMark(t, s, a, 'z', 9, 0)
	mustSetMark(t, s, a, '[', 4, 0)
	mustSetMark(t, s, a, '.', 5, 2)
	mustSetMark(t, s, a, '<', 6, 0)
	mustSetMark(t, s, b, 'c', 1, 7)
	mustSetMark(t, s, b, 'A', 12, 3)
	mustSetMark(t, s, a, '7', 2, 2)

	s.SaveJumpLocation(a, a.LineStartOffset(10))
	s.SaveJumpLocation(b, b.LineStartOffset(2)+1)
	s.EditorReleased(a, a.LineStartOffset(11))
}

func TestExportState(t *testing.T) {
	s := NewSession(Options{Clock: stepClock()})
	populate(t, s)

	state := s.ExportState()

	var globals []string
	for _, g := range state.GlobalMarks {
		globals = append(globals, g.Key+"@"+g.Filename)
	}
	want := []string{`"@/p/a.txt`, `'@/p/b.txt`, "7@/p/a.txt", "A@/p/b.txt"}
	if !reflect.DeepEqual(globals, want) {
		t.Errorf("global marks = %v, want %v", globals, want)
	}

	if len(state.FileMarks) != 2 {
		t.Fatalf("expected 2 file tables, got %d", len(state.FileMarks))
	}
	keys := make(map[string]string)
	for _, f := range state.FileMarks {
		for _, m := range f.Marks {
			keys[f.Name] += m.Key
		}
	}
	// Uppercase, digit and visual marks stay out of file tables.
	if keys["/p/a.txt"] != ".[az" {
		t.Errorf("saved marks for a.txt = %q, want %q", keys["/p/a.txt"], ".[az")
	}
	if keys["/p/b.txt"] != "c" {
		t.Errorf("saved marks for b.txt = %q, want %q", keys["/p/b.txt"], "c")
	}

	if len(state.Jumps) != 2 || state.Jumps[0].Filename != "/p/a.txt" || state.Jumps[1].Column.Int(-1) != 1 {
		t.Errorf("jumps = %+v", state.Jumps)
	}
}

// TestStateRoundTrip verifies marks and jumps survive encoding in each format.
func TestStateRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatXML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			source := NewSession(Options{Clock: stepClock()})
			populate(t, source)
			exported := source.ExportState()

			var buf bytes.Buffer
			if err := Encode(&buf, exported, format); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			t.Logf("Encoded %d bytes", buf.Len())

			decoded, err := Decode(&buf, format)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			restored := NewSession(Options{Clock: stepClock()})
			restored.ImportState(decoded)

			if got := restored.ExportState(); !reflect.DeepEqual(got, exported) {
				t.Errorf("round trip differs:\n got  %+v\n want %+v", got, exported)
			}

			// Restored global marks are mirrored into their file's table.
			checkConsistent(t, restored.Registry())
			if m, ok := restored.Registry().GetMark('A', ""); !ok || m.Position() != (LogicalPosition{12, 3}) {
				t.Errorf("mark A = %v, %v", m, ok)
			}
			if restored.Jumps().Position() != restored.Jumps().Len() {
				t.Error("restored jump cursor should be at the present")
			}
		})
	}
}

// TestPruneMostRecentFiles verifies only the N most recently touched file
// tables are saved.
func TestPruneMostRecentFiles(t *testing.T) {
	s := NewSession(Options{SavedFileCount: 3, Clock: stepClock()})
	r := s.Registry()
	for _, f := range []string{"/f0", "/f1", "/f2", "/f3", "/f4"} {
		r.SetMark('a', 1, 0, f, "")
	}

	names := func() string {
		var out []string
		for _, f := range s.ExportState().FileMarks {
			out = append(out, f.Name)
		}
		return strings.Join(out, ",")
	}

	if got := names(); got != "/f2,/f3,/f4" {
		t.Errorf("saved files = %s, want /f2,/f3,/f4", got)
	}

	r.SetMark('b', 2, 0, "/f0", "")
	if got := names(); got != "/f3,/f4,/f0" {
		t.Errorf("after touching /f0: %s, want /f3,/f4,/f0", got)
	}
}

func TestExportWithBookmarksOmitsGlobals(t *testing.T) {
	s := NewSession(Options{UseBookmarks: true, Bookmarks: NewMemoryBookmarks()})
	doc := NewTextDocument("/bm.txt", numberedText(5))
	mustSetMark(t, s, doc, 'A', 1, 0)
	mustSetMark(t, s, doc, 'a', 2, 0)

	state := s.ExportState()
	if len(state.GlobalMarks) != 0 {
		t.Errorf("global marks written while bookmarks are in use: %+v", state.GlobalMarks)
	}
	if len(state.FileMarks) != 1 || len(state.FileMarks[0].Marks) != 1 {
		t.Errorf("file marks = %+v", state.FileMarks)
	}

	// Import skips them too.
	other := NewSession(Options{UseBookmarks: true, Bookmarks: NewMemoryBookmarks()})
	other.ImportState(&State{GlobalMarks: []GlobalMarkState{
		{Key: "B", Line: Num(1), Column: Num(0), Filename: "/bm.txt"},
	}})
	if _, ok := other.Registry().GetMark('B', ""); ok {
		t.Error("global mark imported while bookmarks are in use")
	}
}

// TestLenientXMLDecoding verifies malformed numbers fall back to defaults
// and unusable records are skipped without failing the load.
func TestLenientXMLDecoding(t *testing.T) {
	input := `<?xml version="1.0" encoding="UTF-8"?>
<marks>
  <globalmarks>
    <mark key="A" line="x" column="3" filename="/a.txt" protocol="file"/>
    <mark key="a" line="1" column="1" filename="/a.txt" protocol="file"/>
    <mark key="B" line="2" column="2" filename="" protocol="file"/>
  </globalmarks>
  <filemarks>
    <file name="/b.txt" timestamp="garbage">
      <mark key="a" line="4" column="oops"/>
      <mark key="Z" line="1" column="1"/>
      <mark key="" line="1" column="1"/>
    </file>
  </filemarks>
  <jumps>
    <jump line="2" filename="/b.txt"/>
  </jumps>
</marks>`

	state, err := Decode(strings.NewReader(input), FormatXML)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	now := time.Date(2030, 5, 6, 7, 8, 9, 0, time.UTC)
	s := NewSession(Options{Clock: func() time.Time { return now }})
	s.ImportState(state)
	r := s.Registry()

	a, ok := r.GetMark('A', "")
	if !ok || a.Line() != 0 || a.Column() != 3 {
		t.Errorf("mark A = %v, %v; want line 0 col 3", a, ok)
	}
	if len(r.GlobalMarks()) != 1 {
		t.Errorf("expected only A in the global table, got %d", len(r.GlobalMarks()))
	}

	table, ok := r.LookupFileMarks("/b.txt")
	if !ok {
		t.Fatal("no table for /b.txt")
	}
	if !table.LastTouched().Equal(now) {
		t.Errorf("timestamp = %v, want %v", table.LastTouched(), now)
	}
	if got := string(table.Names()); got != "a" {
		t.Errorf("marks in /b.txt = %q, want %q", got, "a")
	}
	if m, ok := table.Get('a'); !ok || m.Line() != 4 || m.Column() != 0 {
		t.Errorf("mark a = %v, %v; want line 4 col 0", m, ok)
	}

	jumps := s.Jumps().Jumps()
	if len(jumps) != 1 || jumps[0].Line != 2 || jumps[0].Column != 0 {
		t.Errorf("jumps = %v", jumps)
	}
}

func TestLenientJSONDecoding(t *testing.T) {
	input := `{"filemarks":[{"name":"/c.txt","timestamp":"1700000000000","marks":[{"key":"b","line":"7","column":null}]}]}`

	state, err := Decode(strings.NewReader(input), FormatJSON)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	s := NewSession(Options{})
	s.ImportState(state)

	table, ok := s.Registry().LookupFileMarks("/c.txt")
	if !ok {
		t.Fatal("no table for /c.txt")
	}
	if table.LastTouched().UnixMilli() != 1700000000000 {
		t.Errorf("timestamp = %d", table.LastTouched().UnixMilli())
	}
	if m, ok := table.Get('b'); !ok || m.Line() != 7 || m.Column() != 0 {
		t.Errorf("mark b = %v, %v", m, ok)
	}
}

func TestImportMergesMarksAndReplacesJumps(t *testing.T) {
	s := NewSession(Options{})
	doc := NewTextDocument("/m.txt", numberedText(5))
	mustSetMark(t, s, doc, 'q', 1, 0)
	s.SaveJumpLocation(doc, 0)

	s.ImportState(&State{
		FileMarks: []FileMarksState{{Name: "/m.txt", Timestamp: Num(1), Marks: []FileMarkState{
			{Key: "r", Line: Num(2), Column: Num(0)},
		}}},
		Jumps: []JumpState{{Line: Num(3), Column: Num(0), Filename: "/other.txt"}},
	})

	if _, ok := s.GetMark(doc, 'q'); !ok {
		t.Error("existing mark lost on import")
	}
	if _, ok := s.GetMark(doc, 'r'); !ok {
		t.Error("imported mark missing")
	}
	if jumps := s.Jumps().Jumps(); len(jumps) != 1 || jumps[0].FilePath != "/other.txt" {
		t.Errorf("jumps not replaced: %v", jumps)
	}
}

func TestFormats(t *testing.T) {
	if f, err := ParseFormat(" JSON "); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat = %q, %v", f, err)
	}
	if _, err := ParseFormat("yaml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if FormatForPath("/x/marks.JSON") != FormatJSON || FormatForPath("/x/marks") != FormatXML {
		t.Error("FormatForPath picked the wrong format")
	}
	if err := Encode(&bytes.Buffer{}, &State{}, Format("toml")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Encode: expected ErrUnknownFormat, got %v", err)
	}
	if _, err := Decode(strings.NewReader("<marks"), FormatXML); err == nil {
		t.Error("expected error for truncated XML")
	}
}
