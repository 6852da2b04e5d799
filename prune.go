package waymark

import "sort"

// mostRecentlyTouched returns at most n file snapshots, the most recently
// touched ones, ordered oldest first.
func mostRecentlyTouched(files []fileSnapshot, n int) []fileSnapshot {
	candidates := append([]fileSnapshot(nil), files...)

	// Oldest first; a zero time (never touched) sorts first.
	sort.SliceStable(candidates, func(i, j int) bool {
		ti, tj := candidates[i].lastTouched, candidates[j].lastTouched
		if ti.Equal(tj) {
			return candidates[i].path < candidates[j].path
		}
		return ti.Before(tj)
	})

	if n >= 0 && len(candidates) > n {
		candidates = candidates[len(candidates)-n:]
	}
	return candidates
}
