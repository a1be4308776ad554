package search

import (
	"encoding/binary"
	"math/bits"
)

// HammingDistance returns the number of mismatched positions between two
// equal-length byte sequences, or false if the lengths differ.
//
// Bytes are compared eight at a time: the XOR of two words is folded so
// each differing byte leaves exactly one bit in its low position, and a
// single popcount yields the mismatch total for the word.
func HammingDistance(a, b []byte) (int, bool) {
	if len(a) != len(b) {
		return 0, false
	}

	n := len(a)
	mismatches := 0
	i := 0

	for ; i+8 <= n; i += 8 {
		aw := binary.LittleEndian.Uint64(a[i:])
		bw := binary.LittleEndian.Uint64(b[i:])

		xor := aw ^ bw
		or1 := xor | (xor >> 1)
		or2 := or1 | (or1 >> 2)
		or3 := or2 | (or2 >> 4)
		mismatches += bits.OnesCount64(or3 & 0x0101010101010101)
	}

	for ; i < n; i++ {
		if a[i] != b[i] {
			mismatches++
		}
	}

	return mismatches, true
}

// HammingSearch slides pattern over text and returns the window with the
// fewest mismatches at or under maxMismatches, ties broken by leftmost
// offset. Returns false when no window qualifies or pattern is longer
// than text.
func HammingSearch(text, pattern []byte, maxMismatches int) (Match, bool) {
	m := len(pattern)
	if m == 0 {
		return Match{Offset: 0, Length: 0, Edits: 0}, true
	}
	if m > len(text) {
		return Match{}, false
	}

	best := Match{}
	bestMM := maxMismatches + 1

	for i := 0; i+m <= len(text); i++ {
		mm, _ := HammingDistance(text[i:i+m], pattern)
		if mm < bestMM {
			bestMM = mm
			best = Match{Offset: i, Length: m, Edits: mm}
			if mm == 0 {
				break
			}
		}
	}

	if bestMM > maxMismatches {
		return Match{}, false
	}
	return best, true
}
