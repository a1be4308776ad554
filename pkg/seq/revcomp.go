package seq

var complement [256]byte

func init() {
	complement['A'] = 'T'
	complement['C'] = 'G'
	complement['G'] = 'C'
	complement['T'] = 'A'
	complement['U'] = 'A'
	complement['R'] = 'Y'
	complement['Y'] = 'R'
	complement['S'] = 'S'
	complement['W'] = 'W'
	complement['K'] = 'M'
	complement['M'] = 'K'
	complement['B'] = 'V'
	complement['V'] = 'B'
	complement['D'] = 'H'
	complement['H'] = 'D'
	complement['N'] = 'N'
	for c := byte('a'); c <= 'z'; c++ {
		complement[c] = complement[c-'a'+'A']
	}
}

// Complement returns the complementary base for b. Unrecognized bytes
// complement to 'N'.
func Complement(b byte) byte {
	c := complement[b]
	if c == 0 {
		return 'N'
	}
	return c
}

// RevComp returns a newly allocated reverse complement of seq.
// IUPAC ambiguity codes are complemented to their partners.
func RevComp(seq []byte) []byte {
	n := len(seq)
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = Complement(seq[n-1-i])
	}
	return out
}
