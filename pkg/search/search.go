// Package search provides exact and bounded-edit-distance substring
// search primitives for byte sequences.
//
// All functions are pure, keep no shared state, and are safe to call
// concurrently from any number of goroutines on disjoint inputs. The
// scheduler relies on this property for lock-free parallel matching.
//
// Exact search rides on bytes.Index, which the Go runtime vectorizes
// with wide-lane comparisons on amd64 and arm64. Fuzzy search uses the
// Myers bit-parallel algorithm for needles up to 64 bytes (bit vectors
// as 64-wide lanes) and a cutoff-banded dynamic-programming sweep beyond
// that, so worst-case cost is O(n * maxEdits) rather than O(n * m).
package search

import "bytes"

// Match describes a located window of a haystack.
type Match struct {
	// Offset is the start of the matched window in the haystack.
	Offset int
	// Length is the matched window length, which may differ from the
	// needle length when insertions or deletions are involved.
	Length int
	// Edits is the number of substitutions, insertions, and deletions
	// (each cost 1) between the needle and the window.
	Edits int
}

// End returns the exclusive end offset of the matched window.
func (m Match) End() int {
	return m.Offset + m.Length
}

// FindExact returns the offset of the first (leftmost) occurrence of
// needle in haystack, or false if absent. An empty needle matches at 0.
func FindExact(haystack, needle []byte) (int, bool) {
	i := bytes.Index(haystack, needle)
	if i < 0 {
		return 0, false
	}
	return i, true
}
