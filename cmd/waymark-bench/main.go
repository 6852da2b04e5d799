// waymark-bench is a benchmark and stress test for the waymark library.
// It measures mark reconciliation under edits, jump list churn and state
// persistence in every supported format.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/phroun/waymark"
	"github.com/phroun/waymark/store/sqlite"
)

const (
	docLines  = 100_000
	lineEdits = 5_000
	keystroke = 50_000
	jumpAdds  = 100_000
	jumpFiles = 500
	markFiles = 1_000
)

type BenchResult struct {
	Name     string
	Duration time.Duration
	Ops      int
	Extra    string
}

func (r BenchResult) String() string {
	if r.Ops > 0 {
		opsPerSec := float64(r.Ops) / r.Duration.Seconds()
		if r.Extra != "" {
			return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec) %s", r.Name, r.Duration.Round(time.Microsecond), r.Ops, opsPerSec, r.Extra)
		}
		return fmt.Sprintf("%-40s %12v  (%d ops, %.2f ops/sec)", r.Name, r.Duration.Round(time.Microsecond), r.Ops, opsPerSec)
	}
	if r.Extra != "" {
		return fmt.Sprintf("%-40s %12v  %s", r.Name, r.Duration.Round(time.Microsecond), r.Extra)
	}
	return fmt.Sprintf("%-40s %12v", r.Name, r.Duration.Round(time.Microsecond))
}

func main() {
	seed := flag.Int64("seed", 1, "Random seed")
	verbosity := flag.Int("verbosity", 0, "Log verbosity")
	flag.Parse()
	commonlog.Configure(*verbosity, nil)

	fmt.Println("Waymark Benchmark and Stress Test")
	fmt.Println("=================================")
	fmt.Printf("Document: %d lines\n", docLines)
	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
	fmt.Println()

	tmpDir, err := os.MkdirTemp("", "waymark-bench-*")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	rng := rand.New(rand.NewSource(*seed))
	var results []BenchResult

	// Helper to run and print each benchmark
	runBench := func(name string, fn func() BenchResult) {
		fmt.Printf("  %-40s ", name+"...")
		result := fn()
		fmt.Printf("%v\n", result.Duration.Round(time.Microsecond))
		results = append(results, result)
	}

	fmt.Println("Reconciliation:")
	runBench("Line inserts", func() BenchResult { return benchLineInserts(rng) })
	runBench("Line deletes", func() BenchResult { return benchLineDeletes(rng) })
	runBench("Line changes", func() BenchResult { return benchLineChanges(rng) })
	runBench("Single character typing", func() BenchResult { return benchTyping(rng) })

	fmt.Println("\nJump list:")
	runBench("Jump adds", func() BenchResult { return benchJumpAdds(rng) })

	fmt.Println("\nPersistence:")
	session := populatedSession(rng)
	runBench("Export state", func() BenchResult { return benchExport(session) })
	runBench("XML save/load", func() BenchResult {
		return benchStore("XML save/load", session, waymark.NewFileStateStore(filepath.Join(tmpDir, "marks.xml")))
	})
	runBench("JSON save/load", func() BenchResult {
		return benchStore("JSON save/load", session, waymark.NewFileStateStore(filepath.Join(tmpDir, "marks.json")))
	})
	runBench("SQLite save/load", func() BenchResult {
		store, err := sqlite.Open(filepath.Join(tmpDir, "marks.db"))
		if err != nil {
			return BenchResult{Name: "SQLite save/load", Extra: fmt.Sprintf("ERROR: %v", err)}
		}
		defer store.Close()
		return benchStore("SQLite save/load", session, store)
	})

	// Print summary
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	for _, r := range results {
		fmt.Println(r)
	}

	// Memory stats
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Println()
	fmt.Printf("Peak heap allocation: %d MB\n", m.HeapSys/(1024*1024))
	fmt.Printf("Total allocations: %d MB\n", m.TotalAlloc/(1024*1024))
}

// generateText returns n numbered lines of filler text.
func generateText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%08d: ", i+1)
		for j := 0; j < 40; j++ {
			b.WriteByte('a' + byte((i+j)%26))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// markedDocument creates a tracked document with every user mark set at a
// random line.
func markedDocument(rng *rand.Rand) (*waymark.Session, *waymark.TextDocument) {
	session := waymark.NewSession(waymark.Options{})
	doc := waymark.NewTextDocument("/bench/doc.txt", generateText(docLines))
	session.Track(doc)
	for _, name := range waymark.FileMarkNames + waymark.GlobalMarkNames {
		session.SetMark(doc, name, doc.LineStartOffset(rng.Intn(docLines)))
	}
	return session, doc
}

func liveMarks(session *waymark.Session, doc *waymark.TextDocument) int {
	n := 0
	for _, m := range session.Registry().ListMarks(doc.Path()) {
		if m.FilePath() == doc.Path() {
			n++
		}
	}
	return n
}

func benchLineInserts(rng *rand.Rand) BenchResult {
	session, doc := markedDocument(rng)
	start := time.Now()

	for i := 0; i < lineEdits; i++ {
		line := rng.Intn(doc.LineCount())
		doc.Insert(doc.LineStartOffset(line), "inserted line\nand another\n")
	}

	return BenchResult{
		Name:     "Line inserts",
		Duration: time.Since(start),
		Ops:      lineEdits,
		Extra:    fmt.Sprintf("%d marks live", liveMarks(session, doc)),
	}
}

func benchLineDeletes(rng *rand.Rand) BenchResult {
	session, doc := markedDocument(rng)
	start := time.Now()

	ops := 0
	for i := 0; i < lineEdits && doc.LineCount() > 2; i++ {
		line := rng.Intn(doc.LineCount() - 1)
		startOff := doc.LineStartOffset(line)
		doc.Delete(startOff, doc.LineEndOffset(line)+1-startOff)
		ops++
	}

	return BenchResult{
		Name:     "Line deletes",
		Duration: time.Since(start),
		Ops:      ops,
		Extra:    fmt.Sprintf("%d marks live", liveMarks(session, doc)),
	}
}

func benchLineChanges(rng *rand.Rand) BenchResult {
	session, doc := markedDocument(rng)
	start := time.Now()

	for i := 0; i < lineEdits; i++ {
		line := rng.Intn(doc.LineCount() - 1)
		startOff := doc.LineStartOffset(line)
		doc.Change(startOff, doc.LineEndOffset(line)+1-startOff, "changed\n")
	}

	return BenchResult{
		Name:     "Line changes",
		Duration: time.Since(start),
		Ops:      lineEdits,
		Extra:    fmt.Sprintf("%d marks live", liveMarks(session, doc)),
	}
}

func benchTyping(rng *rand.Rand) BenchResult {
	session, doc := markedDocument(rng)
	off := doc.LineStartOffset(docLines / 2)
	start := time.Now()

	for i := 0; i < keystroke; i++ {
		ch := string(rune('a' + i%26))
		if i%80 == 79 {
			ch = "\n"
		}
		doc.Insert(off, ch)
		off++
	}

	return BenchResult{
		Name:     "Single character typing",
		Duration: time.Since(start),
		Ops:      keystroke,
		Extra:    fmt.Sprintf("%d marks live", liveMarks(session, doc)),
	}
}

func benchJumpAdds(rng *rand.Rand) BenchResult {
	jumps := waymark.NewJumpList(waymark.DefaultJumpCapacity)
	start := time.Now()

	for i := 0; i < jumpAdds; i++ {
		jumps.Add(rng.Intn(docLines), rng.Intn(80), fmt.Sprintf("/bench/file-%d.txt", rng.Intn(jumpFiles)))
	}
	for {
		if _, ok := jumps.Back(); !ok {
			break
		}
	}

	return BenchResult{
		Name:     "Jump adds",
		Duration: time.Since(start),
		Ops:      jumpAdds,
		Extra:    fmt.Sprintf("%d entries kept", jumps.Len()),
	}
}

// populatedSession sets marks in many files so persistence has to prune.
func populatedSession(rng *rand.Rand) *waymark.Session {
	base := time.Now()
	tick := 0
	session := waymark.NewSession(waymark.Options{
		Clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Millisecond)
		},
	})
	registry := session.Registry()
	for i := 0; i < markFiles; i++ {
		path := fmt.Sprintf("/bench/file-%d.txt", i)
		for _, name := range "abcdefgh" {
			registry.SetMark(name, rng.Intn(docLines), rng.Intn(80), path, waymark.DefaultProtocol)
		}
		session.Jumps().Add(rng.Intn(docLines), 0, path)
	}
	for _, name := range waymark.GlobalMarkNames {
		registry.SetMark(name, rng.Intn(docLines), 0, fmt.Sprintf("/bench/file-%d.txt", rng.Intn(markFiles)), "")
	}
	return session
}

func benchExport(session *waymark.Session) BenchResult {
	const rounds = 100
	start := time.Now()

	var state *waymark.State
	for i := 0; i < rounds; i++ {
		state = session.ExportState()
	}

	var buf bytes.Buffer
	waymark.Encode(&buf, state, waymark.FormatXML)
	return BenchResult{
		Name:     "Export state",
		Duration: time.Since(start),
		Ops:      rounds,
		Extra:    fmt.Sprintf("%d files kept, %d KB as XML", len(state.FileMarks), buf.Len()/1024),
	}
}

func benchStore(name string, session *waymark.Session, store waymark.StateStore) BenchResult {
	const rounds = 20
	start := time.Now()

	for i := 0; i < rounds; i++ {
		if err := store.Save(session.ExportState()); err != nil {
			return BenchResult{Name: name, Duration: time.Since(start), Extra: fmt.Sprintf("ERROR: %v", err)}
		}
		restored := waymark.NewSession(waymark.Options{})
		restored.SetStore(store)
		if err := restored.Load(); err != nil {
			return BenchResult{Name: name, Duration: time.Since(start), Extra: fmt.Sprintf("ERROR: %v", err)}
		}
	}

	return BenchResult{
		Name:     name,
		Duration: time.Since(start),
		Ops:      rounds,
	}
}
