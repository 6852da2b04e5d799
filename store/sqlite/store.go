// Package sqlite persists waymark state in a SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"

	"github.com/phroun/waymark"
)

var log = commonlog.GetLogger("waymark.store.sqlite")

// Store is a waymark.StateStore backed by SQLite. Each Save replaces the
// stored state in a single transaction.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and prepares its tables.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set PRAGMA: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save implements waymark.StateStore.
func (s *Store) Save(state *waymark.State) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"file_marks", "mark_files", "global_marks", "jumps"} {
		if _, err := tx.Exec("DELETE FROM " + table + ";"); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, gm := range state.GlobalMarks {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO global_marks (key, line, col, filename, protocol) VALUES (?, ?, ?, ?, ?);`,
			gm.Key, nullable(gm.Line), nullable(gm.Column), gm.Filename, gm.Protocol,
		); err != nil {
			return fmt.Errorf("failed to save global mark %q: %w", gm.Key, err)
		}
	}

	for i, fm := range state.FileMarks {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO mark_files (name, timestamp, position) VALUES (?, ?, ?);`,
			fm.Name, nullable(fm.Timestamp), i,
		); err != nil {
			return fmt.Errorf("failed to save file %s: %w", fm.Name, err)
		}
		for _, m := range fm.Marks {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO file_marks (file, key, line, col) VALUES (?, ?, ?, ?);`,
				fm.Name, m.Key, nullable(m.Line), nullable(m.Column),
			); err != nil {
				return fmt.Errorf("failed to save mark %q in %s: %w", m.Key, fm.Name, err)
			}
		}
	}

	for i, j := range state.Jumps {
		if _, err := tx.Exec(
			`INSERT INTO jumps (seq, line, col, filename) VALUES (?, ?, ?, ?);`,
			i, nullable(j.Line), nullable(j.Column), j.Filename,
		); err != nil {
			return fmt.Errorf("failed to save jump %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('saved_at', ?);`,
		strconv.FormatInt(time.Now().UnixMilli(), 10),
	); err != nil {
		return fmt.Errorf("failed to record save time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	log.Debugf("saved %d global marks, %d files, %d jumps",
		len(state.GlobalMarks), len(state.FileMarks), len(state.Jumps))
	return nil
}

// Load implements waymark.StateStore.
func (s *Store) Load() (*waymark.State, error) {
	var savedAt string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'saved_at';`).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return nil, waymark.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query save time: %w", err)
	}

	state := &waymark.State{}
	if state.GlobalMarks, err = s.loadGlobalMarks(); err != nil {
		return nil, err
	}
	if state.FileMarks, err = s.loadFileMarks(); err != nil {
		return nil, err
	}
	if state.Jumps, err = s.loadJumps(); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) loadGlobalMarks() ([]waymark.GlobalMarkState, error) {
	rows, err := s.db.Query(`SELECT key, line, col, filename, protocol FROM global_marks ORDER BY key;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query global marks: %w", err)
	}
	defer rows.Close()

	var marks []waymark.GlobalMarkState
	for rows.Next() {
		var gm waymark.GlobalMarkState
		var line, col sql.NullInt64
		if err := rows.Scan(&gm.Key, &line, &col, &gm.Filename, &gm.Protocol); err != nil {
			return nil, fmt.Errorf("failed to scan global mark: %w", err)
		}
		gm.Line, gm.Column = number(line), number(col)
		marks = append(marks, gm)
	}
	return marks, rows.Err()
}

func (s *Store) loadFileMarks() ([]waymark.FileMarksState, error) {
	rows, err := s.db.Query(`SELECT name, timestamp FROM mark_files ORDER BY position;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}

	var files []waymark.FileMarksState
	for rows.Next() {
		var fm waymark.FileMarksState
		var ts sql.NullInt64
		if err := rows.Scan(&fm.Name, &ts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		fm.Timestamp = number(ts)
		files = append(files, fm)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range files {
		marks, err := s.loadMarksOf(files[i].Name)
		if err != nil {
			return nil, err
		}
		files[i].Marks = marks
	}
	return files, nil
}

func (s *Store) loadMarksOf(file string) ([]waymark.FileMarkState, error) {
	rows, err := s.db.Query(`SELECT key, line, col FROM file_marks WHERE file = ? ORDER BY key;`, file)
	if err != nil {
		return nil, fmt.Errorf("failed to query marks of %s: %w", file, err)
	}
	defer rows.Close()

	var marks []waymark.FileMarkState
	for rows.Next() {
		var m waymark.FileMarkState
		var line, col sql.NullInt64
		if err := rows.Scan(&m.Key, &line, &col); err != nil {
			return nil, fmt.Errorf("failed to scan mark: %w", err)
		}
		m.Line, m.Column = number(line), number(col)
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

func (s *Store) loadJumps() ([]waymark.JumpState, error) {
	rows, err := s.db.Query(`SELECT line, col, filename FROM jumps ORDER BY seq;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jumps: %w", err)
	}
	defer rows.Close()

	var jumps []waymark.JumpState
	for rows.Next() {
		var j waymark.JumpState
		var line, col sql.NullInt64
		if err := rows.Scan(&line, &col, &j.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan jump: %w", err)
		}
		j.Line, j.Column = number(line), number(col)
		jumps = append(jumps, j)
	}
	return jumps, rows.Err()
}

// nullable stores a malformed number as NULL.
func nullable(n waymark.Number) any {
	if !n.Valid {
		return nil
	}
	return n.Value
}

func number(v sql.NullInt64) waymark.Number {
	return waymark.Number{Value: v.Int64, Valid: v.Valid}
}
