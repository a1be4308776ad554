package search

import (
	"bytes"

	"github.com/seqweave/seqweave/pkg/pool"
)

// FindWithinDistance searches haystack for the window with the fewest
// edits (substitutions, insertions, deletions, each cost 1) from needle,
// bounded by maxEdits. Among windows with the minimum edit count the
// leftmost is returned. Returns false if no window is within the budget.
//
// maxEdits of 0 degenerates to FindExact and agrees with it on all inputs.
func FindWithinDistance(haystack, needle []byte, maxEdits int) (Match, bool) {
	if maxEdits < 0 {
		return Match{}, false
	}
	m := len(needle)
	if m == 0 {
		return Match{Offset: 0, Length: 0, Edits: 0}, true
	}
	if maxEdits == 0 {
		off, ok := FindExact(haystack, needle)
		if !ok {
			return Match{}, false
		}
		return Match{Offset: off, Length: m, Edits: 0}, true
	}

	bestEnd := -1
	bestScore := maxEdits + 1
	scanEnds(haystack, needle, maxEdits, func(end, score int) bool {
		if score < bestScore {
			bestScore = score
			bestEnd = end
		}
		return bestScore > 0
	})
	if bestEnd < 0 {
		return Match{}, false
	}

	start := matchStart(haystack, needle, bestEnd, bestScore)
	return Match{Offset: start, Length: bestEnd - start, Edits: bestScore}, true
}

// FindLeftmostWithinDistance returns the match whose window starts
// leftmost among all windows within the edit budget, reporting the fewest
// edits achievable at that position. This is the primitive behind
// greedy-minimal wildcard resolution: the earliest possible literal
// placement wins even when a later window would need fewer edits.
func FindLeftmostWithinDistance(haystack, needle []byte, maxEdits int) (Match, bool) {
	if maxEdits < 0 {
		return Match{}, false
	}
	m := len(needle)
	if m == 0 {
		return Match{Offset: 0, Length: 0, Edits: 0}, true
	}
	if maxEdits == 0 {
		off, ok := FindExact(haystack, needle)
		if !ok {
			return Match{}, false
		}
		return Match{Offset: off, Length: m, Edits: 0}, true
	}

	// A window within the budget is at most m+maxEdits long, so once an
	// end can no longer reach left of the best start the scan is done.
	// Every in-budget end before that point must be inspected: the
	// earliest end can belong to a short, costlier alignment while a
	// longer window starting further left only comes into budget later.
	bestStart, bestEnd := -1, -1
	scanEnds(haystack, needle, maxEdits, func(end, score int) bool {
		if bestStart >= 0 && end-m-maxEdits >= bestStart {
			return false
		}
		if s := leftmostStart(haystack, needle, end, maxEdits); bestStart < 0 || s < bestStart {
			bestStart, bestEnd = s, end
		}
		return bestStart != 0
	})
	if bestStart < 0 {
		return Match{}, false
	}

	// Realign at the final start for the true length and edit count.
	if length, edits, aligned := MatchPrefix(haystack[bestStart:], needle, maxEdits); aligned {
		return Match{Offset: bestStart, Length: length, Edits: edits}, true
	}
	return Match{Offset: bestStart, Length: bestEnd - bestStart, Edits: maxEdits}, true
}

// scanEnds dispatches to the bit-parallel or banded automaton on needle
// length, invoking visit at every haystack position where some window
// ending there is within the budget. visit returns false to stop the
// scan.
func scanEnds(haystack, needle []byte, maxEdits int, visit func(end, score int) bool) {
	if len(needle) <= 64 {
		scanMyers(haystack, needle, maxEdits, visit)
	} else {
		scanBanded(haystack, needle, maxEdits, visit)
	}
}

// scanMyers runs the Myers bit-parallel approximate search automaton over
// the haystack. After consuming haystack[j], the running score is the
// minimum edit distance between the needle and any window ending at j+1;
// visit fires whenever that score is within the budget.
func scanMyers(haystack, needle []byte, maxEdits int, visit func(end, score int) bool) {
	m := len(needle)

	var peq [256]uint64
	for i, c := range needle {
		peq[c] |= 1 << uint(i)
	}

	pv := ^uint64(0)
	mv := uint64(0)
	score := m
	high := uint64(1) << uint(m-1)

	for j := 0; j < len(haystack); j++ {
		eq := peq[haystack[j]]
		xv := eq | mv
		xh := (((eq & pv) + pv) ^ pv) | eq
		ph := mv | ^(xh | pv)
		mh := pv & xh

		if ph&high != 0 {
			score++
		}
		if mh&high != 0 {
			score--
		}

		// Free start in the haystack: shift a zero horizontal delta
		// into the top boundary.
		ph <<= 1
		mh <<= 1
		pv = mh | ^(xv | ph)
		mv = ph & xv

		if score <= maxEdits && !visit(j+1, score) {
			return
		}
	}
}

// scanBanded is the fallback for needles longer than one machine word:
// a column-major dynamic-programming sweep with the Ukkonen cutoff, so
// only rows within maxEdits of the frontier are evaluated.
func scanBanded(haystack, needle []byte, maxEdits int, visit func(end, score int) bool) {
	m := len(needle)

	col := make([]int, m+1)
	for i := 0; i <= m; i++ {
		col[i] = i
	}
	// Rows below lastActive are known to exceed the budget.
	lastActive := maxEdits
	if lastActive > m {
		lastActive = m
	}

	for j := 0; j < len(haystack); j++ {
		c := haystack[j]
		prevDiag := col[0] // D[0][j] = 0: a window may start anywhere
		col[0] = 0

		limit := lastActive + 1
		if limit > m {
			limit = m
		}

		for i := 1; i <= limit; i++ {
			sub := prevDiag
			if needle[i-1] != c {
				sub++
			}
			del := col[i-1] + 1 // gap in the haystack
			ins := col[i] + 1   // gap in the needle
			prevDiag = col[i]

			v := sub
			if del < v {
				v = del
			}
			if ins < v {
				v = ins
			}
			col[i] = v
		}
		if limit < m {
			col[limit+1] = maxEdits + 1
		}

		// Retreat or advance the active frontier.
		lastActive = limit
		for lastActive > 0 && col[lastActive] > maxEdits {
			lastActive--
		}

		if lastActive == m && col[m] <= maxEdits && !visit(j+1, col[m]) {
			return
		}
	}
}

// matchStart recovers the leftmost window start for a match that ends at
// end with the given edit count, by aligning the reversed needle against
// the reversed haystack suffix ending there.
func matchStart(haystack, needle []byte, end, edits int) int {
	m := len(needle)
	lo := end - m - edits
	if lo < 0 {
		lo = 0
	}
	window := haystack[lo:end]

	rw := reverseInto(pool.GetBuffer(len(window)), window)
	rn := reverseInto(pool.GetBuffer(m), needle)
	defer pool.PutBuffer(rw)
	defer pool.PutBuffer(rn)

	// The longest prefix of the reversed window reachable with the known
	// edit count corresponds to the leftmost start in the original.
	bestLen := -1
	forEachPrefixDistance(rw, rn, edits, func(length, d int) {
		if d == edits && length > bestLen {
			bestLen = length
		}
	})
	if bestLen < 0 {
		// Not reachable with exactly the reported edits; minimal-length
		// fallback keeps the result well formed.
		bestLen = m
		if bestLen > len(window) {
			bestLen = len(window)
		}
	}
	return end - bestLen
}

// leftmostStart recovers the leftmost window start reachable within the
// full edit budget for a match ending at end. Unlike matchStart it is
// not pinned to one edit count: a costlier window starting earlier
// still wins, which is what leftmost placement requires.
func leftmostStart(haystack, needle []byte, end, maxEdits int) int {
	m := len(needle)
	lo := end - m - maxEdits
	if lo < 0 {
		lo = 0
	}
	window := haystack[lo:end]

	rw := reverseInto(pool.GetBuffer(len(window)), window)
	rn := reverseInto(pool.GetBuffer(m), needle)
	defer pool.PutBuffer(rw)
	defer pool.PutBuffer(rn)

	bestLen := 0
	forEachPrefixDistance(rw, rn, maxEdits, func(length, d int) {
		if length > bestLen {
			bestLen = length
		}
	})
	return end - bestLen
}

// MatchPrefix aligns the whole needle against a prefix of text. Among the
// prefixes with the fewest edits, the one whose length is closest to the
// needle length is chosen (shorter on a remaining tie), so a plain
// substitution is never reported as a shorter indel alignment. Returns
// false if no prefix is within maxEdits.
func MatchPrefix(text, needle []byte, maxEdits int) (length, edits int, ok bool) {
	m := len(needle)
	if m == 0 {
		return 0, 0, true
	}
	if maxEdits == 0 {
		if bytes.HasPrefix(text, needle) {
			return m, 0, true
		}
		return 0, 0, false
	}

	bestLen := -1
	bestEdits := maxEdits + 1
	bestDelta := m + maxEdits + 1
	forEachPrefixDistance(text, needle, maxEdits, func(l, d int) {
		delta := l - m
		if delta < 0 {
			delta = -delta
		}
		if d < bestEdits || (d == bestEdits && delta < bestDelta) {
			bestEdits = d
			bestLen = l
			bestDelta = delta
		}
	})
	if bestLen < 0 {
		return 0, 0, false
	}
	return bestLen, bestEdits, true
}

// forEachPrefixDistance computes the edit distance between needle and
// every prefix of text up to length len(needle)+maxEdits, invoking fn in
// increasing prefix-length order for prefixes within the budget.
func forEachPrefixDistance(text, needle []byte, maxEdits int, fn func(length, edits int)) {
	m := len(needle)
	maxLen := m + maxEdits
	if maxLen > len(text) {
		maxLen = len(text)
	}

	col := make([]int, m+1)
	for i := 0; i <= m; i++ {
		col[i] = i
	}
	if col[m] <= maxEdits {
		fn(0, col[m])
	}

	for j := 1; j <= maxLen; j++ {
		c := text[j-1]
		prevDiag := col[0]
		col[0] = j // the prefix must be consumed in full

		for i := 1; i <= m; i++ {
			sub := prevDiag
			if needle[i-1] != c {
				sub++
			}
			del := col[i-1] + 1
			ins := col[i] + 1
			prevDiag = col[i]

			v := sub
			if del < v {
				v = del
			}
			if ins < v {
				v = ins
			}
			col[i] = v
		}

		if col[m] <= maxEdits {
			fn(j, col[m])
		}
	}
}

// reverseInto appends b reversed onto dst and returns it.
func reverseInto(dst, b []byte) []byte {
	for i := len(b) - 1; i >= 0; i-- {
		dst = append(dst, b[i])
	}
	return dst
}
