package pattern

import (
	"strconv"

	"github.com/seqweave/seqweave/pkg/errors"
)

// parser is a hand-rolled recursive-descent parser over the description
// bytes. Every syntax error reports the byte offset at which it occurred.
type parser struct {
	src []byte
	pos int
}

func parse(description string) ([]Segment, error) {
	p := &parser{src: []byte(description)}
	var segments []Segment

	p.skipSpace()
	if p.eof() {
		return segments, nil
	}
	for {
		seg, err := p.segment()
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)

		p.skipSpace()
		if p.eof() {
			return segments, nil
		}
		if !p.consume(',') {
			return nil, p.errorf("expected ',' or end of description, found %q", p.peek())
		}
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("trailing ',' at end of description")
		}
	}
}

func (p *parser) segment() (Segment, error) {
	p.skipSpace()
	start := p.pos
	kind := p.ident()

	var seg Segment
	var err error
	switch kind {
	case "literal":
		seg, err = p.literalArgs()
	case "range":
		seg, err = p.rangeArgs()
	case "anchor":
		seg, err = p.anchorArgs()
	case "":
		return Segment{}, p.errorf("expected segment declaration")
	default:
		p.pos = start
		return Segment{}, p.errorf("unknown segment kind %q", kind)
	}
	if err != nil {
		return Segment{}, err
	}

	// Optional `as name` suffix.
	save := p.pos
	p.skipSpace()
	if word := p.ident(); word == "as" {
		p.skipSpace()
		name := p.ident()
		if name == "" {
			return Segment{}, p.errorf("expected capture name after 'as'")
		}
		if seg.Kind == KindAnchor {
			return Segment{}, errors.Newf(errors.ErrorTypeUnresolvedLabel,
				"anchor segments consume no bytes and cannot be named %q", name)
		}
		if name != "_" {
			seg.Name = name
		}
	} else {
		p.pos = save
	}
	return seg, nil
}

func (p *parser) literalArgs() (Segment, error) {
	if err := p.expect('('); err != nil {
		return Segment{}, err
	}
	p.skipSpace()
	bases := p.bases()
	if len(bases) == 0 {
		return Segment{}, p.errorf("literal requires at least one base")
	}
	seg := Segment{Kind: KindLiteral, Bytes: bases}

	p.skipSpace()
	if p.consume(',') {
		p.skipSpace()
		k, err := p.number()
		if err != nil {
			return Segment{}, err
		}
		seg.MaxMismatches = k
	}
	if err := p.expectClose(); err != nil {
		return Segment{}, err
	}
	if seg.MaxMismatches >= len(seg.Bytes) {
		return Segment{}, p.errorf("mismatch budget %d must be below literal length %d",
			seg.MaxMismatches, len(seg.Bytes))
	}
	return seg, nil
}

func (p *parser) rangeArgs() (Segment, error) {
	if err := p.expect('('); err != nil {
		return Segment{}, err
	}
	p.skipSpace()
	min, err := p.number()
	if err != nil {
		return Segment{}, err
	}
	p.skipSpace()
	if !p.consume(',') {
		return Segment{}, p.errorf("range requires a minimum and a maximum")
	}
	p.skipSpace()

	max := -1
	if !p.consume('*') {
		max, err = p.number()
		if err != nil {
			return Segment{}, err
		}
	}
	if err := p.expectClose(); err != nil {
		return Segment{}, err
	}
	return Segment{Kind: KindRange, MinLen: min, MaxLen: max}, nil
}

func (p *parser) anchorArgs() (Segment, error) {
	if err := p.expect('('); err != nil {
		return Segment{}, err
	}
	p.skipSpace()
	pos, err := p.number()
	if err != nil {
		return Segment{}, err
	}
	if err := p.expectClose(); err != nil {
		return Segment{}, err
	}
	return Segment{Kind: KindAnchor, Pos: pos}, nil
}

// bases scans an uppercase IUPAC nucleotide literal.
func (p *parser) bases() []byte {
	start := p.pos
	for !p.eof() && isBase(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return nil
	}
	out := make([]byte, p.pos-start)
	copy(out, p.src[start:p.pos])
	return out
}

func (p *parser) number() (int, error) {
	start := p.pos
	for !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, p.errorf("expected a number")
	}
	n, err := strconv.Atoi(string(p.src[start:p.pos]))
	if err != nil {
		p.pos = start
		return 0, p.errorf("invalid number: %v", err)
	}
	return n, nil
}

// ident scans a lowercase word usable as a keyword or capture name.
func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isIdent(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if !p.consume(c) {
		return p.errorf("expected %q", string(c))
	}
	return nil
}

func (p *parser) expectClose() error {
	p.skipSpace()
	if !p.consume(')') {
		return p.errorf("expected ')'")
	}
	return nil
}

func (p *parser) consume(c byte) bool {
	if !p.eof() && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) peek() string {
	if p.eof() {
		return "end of description"
	}
	return string(p.src[p.pos])
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) errorf(format string, args ...interface{}) error {
	err := errors.Newf(errors.ErrorTypeSyntax, format, args...)
	return err.WithDetail("offset", p.pos)
}

func isBase(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T', 'U', 'N', 'R', 'Y', 'S', 'W', 'K', 'M', 'B', 'D', 'H', 'V':
		return true
	}
	return false
}

func isIdent(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}
