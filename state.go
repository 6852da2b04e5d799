package waymark

import (
	"encoding/xml"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// State is the persisted form of a registry and jump list.
type State struct {
	XMLName     xml.Name          `xml:"marks" json:"-"`
	GlobalMarks []GlobalMarkState `xml:"globalmarks>mark" json:"globalmarks"`
	FileMarks   []FileMarksState  `xml:"filemarks>file" json:"filemarks"`
	Jumps       []JumpState       `xml:"jumps>jump" json:"jumps"`
}

// GlobalMarkState is a persisted global mark.
type GlobalMarkState struct {
	Key      string `xml:"key,attr" json:"key"`
	Line     Number `xml:"line,attr" json:"line"`
	Column   Number `xml:"column,attr" json:"column"`
	Filename string `xml:"filename,attr" json:"filename"`
	Protocol string `xml:"protocol,attr" json:"protocol"`
}

// FileMarksState is a persisted file table.
type FileMarksState struct {
	Name      string          `xml:"name,attr" json:"name"`
	Timestamp Number          `xml:"timestamp,attr" json:"timestamp"`
	Marks     []FileMarkState `xml:"mark" json:"marks"`
}

// FileMarkState is a persisted file-local mark.
type FileMarkState struct {
	Key    string `xml:"key,attr" json:"key"`
	Line   Number `xml:"line,attr" json:"line"`
	Column Number `xml:"column,attr" json:"column"`
}

// JumpState is a persisted jump.
type JumpState struct {
	Line     Number `xml:"line,attr" json:"line"`
	Column   Number `xml:"column,attr" json:"column"`
	Filename string `xml:"filename,attr" json:"filename"`
}

// Number is an integer field that tolerates malformed input. A value that is
// missing or does not parse decodes as invalid instead of failing the load.
type Number struct {
	Value int64
	Valid bool
}

// Num returns a valid Number.
func Num(v int64) Number {
	return Number{Value: v, Valid: true}
}

// Int returns the value, or def if the field was malformed.
func (n Number) Int(def int) int {
	if !n.Valid {
		return def
	}
	return int(n.Value)
}

func parseNumber(s string) Number {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return Number{}
	}
	return Num(v)
}

// MarshalXMLAttr implements xml.MarshalerAttr.
func (n Number) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: strconv.FormatInt(n.Value, 10)}, nil
}

// UnmarshalXMLAttr implements xml.UnmarshalerAttr.
func (n *Number) UnmarshalXMLAttr(attr xml.Attr) error {
	*n = parseNumber(attr.Value)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, n.Value, 10), nil
}

// UnmarshalJSON implements json.Unmarshaler. Quoted numbers are accepted.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = parseNumber(strings.Trim(string(data), `"`))
	return nil
}

// exportState builds the persisted form of registry and jumps.
// The registry's structure is copied under its lock; the rest runs unlocked.
func exportState(registry *Registry, jumps *JumpList, savedFileCount int) *State {
	snap := registry.snapshot()
	state := &State{}

	if !registry.UsesBookmarks() {
		sort.Slice(snap.globals, func(i, j int) bool { return snap.globals[i].key < snap.globals[j].key })
		for _, m := range snap.globals {
			if m.IsClear() {
				continue
			}
			state.GlobalMarks = append(state.GlobalMarks, GlobalMarkState{
				Key:      string(m.key),
				Line:     Num(int64(m.Line())),
				Column:   Num(int64(m.Column())),
				Filename: m.filePath,
				Protocol: m.protocol,
			})
			log.Debugf("saved mark = %s", m)
		}
	}

	for _, f := range mostRecentlyTouched(snap.files, savedFileCount) {
		fs := FileMarksState{
			Name:      f.path,
			Timestamp: Num(f.lastTouched.UnixMilli()),
		}
		keys := make([]rune, 0, len(f.marks))
		for k := range f.marks {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			m := f.marks[k]
			if m.IsClear() || !isSavedFileMark(k) {
				continue
			}
			fs.Marks = append(fs.Marks, FileMarkState{
				Key:    string(k),
				Line:   Num(int64(m.Line())),
				Column: Num(int64(m.Column())),
			})
		}
		if len(fs.Marks) > 0 {
			state.FileMarks = append(state.FileMarks, fs)
		}
	}

	if jumps != nil {
		for _, j := range jumps.Jumps() {
			state.Jumps = append(state.Jumps, JumpState{
				Line:     Num(int64(j.Line)),
				Column:   Num(int64(j.Column)),
				Filename: j.FilePath,
			})
			log.Debugf("saved jump = %s", j)
		}
	}

	log.Debugf("exported %d global marks, %d file tables, %d jumps",
		len(state.GlobalMarks), len(state.FileMarks), len(state.Jumps))
	return state
}

// importState restores state into registry and jumps. Marks are added to
// what the registry already holds; the jump list is replaced. Malformed
// numbers fall back to defaults and unusable records are skipped.
func importState(state *State, registry *Registry, jumps *JumpList, now time.Time) {
	if state == nil {
		return
	}

	if !registry.UsesBookmarks() {
		for _, gs := range state.GlobalMarks {
			key, ok := stateKey(gs.Key)
			if !ok || !IsGlobalMark(key) {
				log.Warningf("skipping global mark with key %q", gs.Key)
				continue
			}
			m := NewMark(key, gs.Line.Int(0), gs.Column.Int(0), gs.Filename, gs.Protocol)
			if m == nil {
				log.Warningf("skipping global mark %q without a file", gs.Key)
				continue
			}
			registry.loadGlobal(m)
		}
	}

	for _, fs := range state.FileMarks {
		if fs.Name == "" {
			log.Warning("skipping file marks without a file name")
			continue
		}
		ts := now
		if fs.Timestamp.Valid {
			ts = time.UnixMilli(fs.Timestamp.Value)
		}
		marks := make([]*Mark, 0, len(fs.Marks))
		for _, ms := range fs.Marks {
			key, ok := stateKey(ms.Key)
			if !ok || !IsFileMark(key) {
				log.Warningf("skipping mark with key %q in %s", ms.Key, fs.Name)
				continue
			}
			if m := NewMark(key, ms.Line.Int(0), ms.Column.Int(0), fs.Name, ""); m != nil {
				marks = append(marks, m)
			}
		}
		registry.loadFileMarks(fs.Name, marks, ts)
	}

	if jumps != nil {
		restored := make([]Jump, 0, len(state.Jumps))
		for _, js := range state.Jumps {
			restored = append(restored, Jump{
				Line:     js.Line.Int(0),
				Column:   js.Column.Int(0),
				FilePath: js.Filename,
			})
		}
		jumps.replace(restored)
	}

	log.Debugf("imported %d global marks, %d file tables, %d jumps",
		len(state.GlobalMarks), len(state.FileMarks), len(state.Jumps))
}

// stateKey decodes a persisted mark key: its first character.
func stateKey(s string) (rune, bool) {
	if s == "" {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0, false
	}
	return NormalizeMarkName(r), true
}
