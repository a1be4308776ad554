package pattern

import (
	"bytes"

	"github.com/seqweave/seqweave/pkg/errors"
	"github.com/seqweave/seqweave/pkg/search"
)

// Capture is one named interval produced by a successful match.
type Capture struct {
	Name  string
	Start int
	Len   int
	// Edits is the edit count spent matching a literal capture; zero
	// for wildcard captures.
	Edits int
}

// Result holds the captures of a successful match in declaration order.
type Result struct {
	Captures []Capture
}

// Capture returns the named capture and whether it exists.
func (r Result) Capture(name string) (Capture, bool) {
	for _, c := range r.Captures {
		if c.Name == name {
			return c, true
		}
	}
	return Capture{}, false
}

// matcher carries the cursor state of one Match call. Wildcard segments
// cannot be sized when first encountered: they stay pending until the
// next literal, anchor, or the end of the text fixes their right edge.
type matcher struct {
	text []byte

	cursor int
	// pending holds consecutive unresolved range segments; winStart is
	// the text offset where the first of them begins.
	pending  []*Segment
	winStart int

	captures []Capture
}

// Match runs the program against text. Wildcards are greedy-minimal:
// each consumes the fewest bytes consistent with the remaining segments
// matching, earlier wildcards resolving first. The program must explain
// every byte of the text; leftover bytes after the final segment are a
// no-match. On failure the returned error has type no_match and the
// caller decides whether to discard or tag the record.
func (p *Program) Match(text []byte) (Result, error) {
	m := &matcher{text: text, captures: make([]Capture, 0, len(p.captures))}

	for i := range p.segments {
		seg := &p.segments[i]
		var err error
		switch seg.Kind {
		case KindLiteral:
			err = m.literal(seg)
		case KindRange:
			err = m.pushRange(seg)
		case KindAnchor:
			err = m.anchor(seg)
		}
		if err != nil {
			return Result{}, err
		}
	}

	if len(m.pending) > 0 {
		if err := m.resolvePending(len(text)); err != nil {
			return Result{}, err
		}
	}
	if m.cursor != len(text) {
		return Result{}, errors.Newf(errors.ErrorTypeNoMatch,
			"%d trailing bytes not covered by the read structure", len(text)-m.cursor)
	}
	return Result{Captures: m.captures}, nil
}

func (m *matcher) pushRange(seg *Segment) error {
	// A fixed-length range at a determined cursor consumes immediately,
	// keeping the following segment anchored.
	if len(m.pending) == 0 && seg.MinLen == seg.MaxLen {
		if m.cursor+seg.MinLen > len(m.text) {
			return errors.Newf(errors.ErrorTypeNoMatch,
				"read too short for fixed range of %d bytes at position %d", seg.MinLen, m.cursor)
		}
		m.record(seg, m.cursor, seg.MinLen, 0)
		m.cursor += seg.MinLen
		return nil
	}
	if len(m.pending) == 0 {
		m.winStart = m.cursor
	}
	m.pending = append(m.pending, seg)
	m.cursor = -1 // cursor is undefined until the window is resolved
	return nil
}

// literal locates seg in the text. With no pending wildcards the literal
// is anchored at the cursor; otherwise the leftmost placement past the
// pending minimums wins, which also fixes the wildcard lengths.
func (m *matcher) literal(seg *Segment) error {
	if len(m.pending) == 0 {
		return m.literalAnchored(seg)
	}

	minSum := 0
	for _, r := range m.pending {
		minSum += r.MinLen
	}
	from := m.winStart + minSum
	if from > len(m.text) {
		return errors.Newf(errors.ErrorTypeNoMatch,
			"read too short for wildcard minimums before literal %q", seg.Bytes)
	}

	var start, length, edits int
	switch seg.strat {
	case strategyExact:
		off, ok := search.FindExact(m.text[from:], seg.Bytes)
		if !ok {
			return errors.Newf(errors.ErrorTypeNoMatch, "literal %q not found", seg.Bytes)
		}
		start, length = from+off, len(seg.Bytes)
	default:
		hit, ok := search.FindLeftmostWithinDistance(m.text[from:], seg.Bytes, seg.MaxMismatches)
		if !ok {
			return errors.Newf(errors.ErrorTypeNoMatch,
				"literal %q not found within %d edits", seg.Bytes, seg.MaxMismatches)
		}
		start, length, edits = from+hit.Offset, hit.Length, hit.Edits
	}

	if err := m.resolvePending(start); err != nil {
		return err
	}
	m.record(seg, start, length, edits)
	m.cursor = start + length
	return nil
}

func (m *matcher) literalAnchored(seg *Segment) error {
	rest := m.text[m.cursor:]
	switch seg.strat {
	case strategyExact:
		if !bytes.HasPrefix(rest, seg.Bytes) {
			return errors.Newf(errors.ErrorTypeNoMatch,
				"literal %q absent at position %d", seg.Bytes, m.cursor)
		}
		m.record(seg, m.cursor, len(seg.Bytes), 0)
		m.cursor += len(seg.Bytes)
	default:
		length, edits, ok := search.MatchPrefix(rest, seg.Bytes, seg.MaxMismatches)
		if !ok {
			return errors.Newf(errors.ErrorTypeNoMatch,
				"literal %q absent at position %d within %d edits", seg.Bytes, m.cursor, seg.MaxMismatches)
		}
		m.record(seg, m.cursor, length, edits)
		m.cursor += length
	}
	return nil
}

func (m *matcher) anchor(seg *Segment) error {
	if len(m.pending) > 0 {
		return m.resolvePendingAt(seg.Pos)
	}
	if m.cursor != seg.Pos {
		return errors.Newf(errors.ErrorTypeNoMatch,
			"anchor at %d but segments consumed %d bytes", seg.Pos, m.cursor)
	}
	return nil
}

func (m *matcher) resolvePendingAt(end int) error {
	if end > len(m.text) {
		return errors.Newf(errors.ErrorTypeNoMatch,
			"anchor at %d beyond read of length %d", end, len(m.text))
	}
	return m.resolvePending(end)
}

// resolvePending assigns lengths to the pending range segments so that
// together they cover [winStart, end). Every segment gets its minimum;
// the slack is pushed onto the later segments first so earlier wildcards
// stay minimal.
func (m *matcher) resolvePending(end int) error {
	total := end - m.winStart
	lens := make([]int, len(m.pending))
	slack := total
	for i, r := range m.pending {
		lens[i] = r.MinLen
		slack -= r.MinLen
	}
	if slack < 0 {
		return errors.Newf(errors.ErrorTypeNoMatch,
			"wildcard window of %d bytes below combined minimum", total)
	}
	for i := len(m.pending) - 1; i >= 0 && slack > 0; i-- {
		r := m.pending[i]
		if r.MaxLen < 0 {
			lens[i] += slack
			slack = 0
			break
		}
		room := r.MaxLen - r.MinLen
		if room > slack {
			room = slack
		}
		lens[i] += room
		slack -= room
	}
	if slack > 0 {
		return errors.Newf(errors.ErrorTypeNoMatch,
			"wildcard window of %d bytes above combined maximum", total)
	}

	pos := m.winStart
	for i, r := range m.pending {
		m.record(r, pos, lens[i], 0)
		pos += lens[i]
	}
	m.pending = m.pending[:0]
	m.cursor = end
	return nil
}

func (m *matcher) record(seg *Segment, start, length, edits int) {
	if seg.Name == "" {
		return
	}
	m.captures = append(m.captures, Capture{Name: seg.Name, Start: start, Len: length, Edits: edits})
}
