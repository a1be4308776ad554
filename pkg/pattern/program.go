// Package pattern implements the read-structure description language and
// its compiler. A description declares the expected layout of a read as
// an ordered sequence of segments:
//
//	literal(AGCT, 1) as adapter, range(6, 6) as barcode, range(0, *) as insert
//
// Segment forms:
//   - literal(BASES) or literal(BASES, maxMismatches): a byte literal with
//     an allowed edit budget
//   - range(min, max): a wildcard consuming between min and max bytes;
//     max may be * for unbounded
//   - anchor(pos): pins matching at a fixed byte offset
//
// Any segment may be named with `as name` for later region lookup; the
// name `_` discards the capture. Compilation is fatal on error and
// happens once at graph build time; a compiled Program is immutable and
// shared read-only across all threads and batches.
package pattern

import (
	"github.com/seqweave/seqweave/pkg/errors"
)

// SegmentKind discriminates the segment variants of a program.
type SegmentKind uint8

const (
	// KindLiteral matches a byte literal with a bounded edit budget.
	KindLiteral SegmentKind = iota
	// KindRange is a variable or fixed-length wildcard.
	KindRange
	// KindAnchor pins the match cursor at a fixed position.
	KindAnchor
)

func (k SegmentKind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindRange:
		return "range"
	case KindAnchor:
		return "anchor"
	default:
		return "unknown"
	}
}

// strategy is the matching strategy assigned to a literal at compile time.
type strategy uint8

const (
	strategyNone strategy = iota
	// strategyExact uses the vectorized equality scan.
	strategyExact
	// strategyEdit uses bounded edit-distance search.
	strategyEdit
)

// Segment is one element of a compiled program.
type Segment struct {
	Kind SegmentKind

	// Name is the capture name, empty for uncaptured segments.
	Name string

	// Literal fields.
	Bytes         []byte
	MaxMismatches int

	// Range fields. MaxLen of -1 means unbounded.
	MinLen int
	MaxLen int

	// Anchor field.
	Pos int

	strat strategy
}

// fixedLen returns the segment's length when it is fixed, or -1.
func (s Segment) fixedLen() int {
	switch s.Kind {
	case KindLiteral:
		if s.MaxMismatches == 0 {
			return len(s.Bytes)
		}
		return -1
	case KindRange:
		if s.MinLen == s.MaxLen {
			return s.MinLen
		}
		return -1
	default:
		return -1
	}
}

// Program is a compiled read-structure description: an ordered, immutable
// sequence of segments with per-segment matching strategies.
type Program struct {
	segments []Segment
	// captures holds the named segments in declaration order.
	captures []string
}

// Segments returns the compiled segments.
func (p *Program) Segments() []Segment {
	return p.segments
}

// Captures returns the capture names in declaration order. These are the
// region names a successful match produces.
func (p *Program) Captures() []string {
	return p.captures
}

// Compile parses and validates a read-structure description, producing
// an immutable Program. Errors are build-time fatal: syntax errors carry
// the byte offset of the failure, and duplicate or invalid capture names
// are reported as unresolved labels.
func Compile(description string) (*Program, error) {
	segments, err := parse(description)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, errors.New(errors.ErrorTypeSyntax, "empty read-structure description")
	}

	seen := make(map[string]struct{})
	captures := make([]string, 0, len(segments))
	for i := range segments {
		seg := &segments[i]

		if seg.Name != "" {
			if _, dup := seen[seg.Name]; dup {
				return nil, errors.Newf(errors.ErrorTypeUnresolvedLabel,
					"capture name %q declared more than once", seg.Name)
			}
			seen[seg.Name] = struct{}{}
			captures = append(captures, seg.Name)
		}

		switch seg.Kind {
		case KindLiteral:
			if seg.MaxMismatches == 0 {
				seg.strat = strategyExact
			} else {
				seg.strat = strategyEdit
			}
		case KindRange:
			if seg.MaxLen >= 0 && seg.MaxLen < seg.MinLen {
				return nil, errors.Newf(errors.ErrorTypeSyntax,
					"range maximum %d below minimum %d", seg.MaxLen, seg.MinLen)
			}
			// Adjacent variable-length wildcards have no deterministic
			// boundary; require a fixed segment between them.
			if seg.fixedLen() < 0 && i > 0 && segments[i-1].Kind == KindRange && segments[i-1].fixedLen() < 0 {
				return nil, errors.New(errors.ErrorTypeSyntax,
					"two adjacent variable-length ranges are ambiguous")
			}
		case KindAnchor:
			if err := checkAnchor(segments[:i], seg.Pos); err != nil {
				return nil, err
			}
		}
	}

	return &Program{segments: segments, captures: captures}, nil
}

// checkAnchor validates total-length consistency: when every segment
// before the anchor has a fixed length, their sum must equal the anchor
// position.
func checkAnchor(before []Segment, pos int) error {
	total := 0
	for _, s := range before {
		l := s.fixedLen()
		if l < 0 {
			return nil // a variable segment absorbs the slack at match time
		}
		total += l
	}
	if total != pos {
		return errors.Newf(errors.ErrorTypeSyntax,
			"anchor at %d is unreachable: preceding segments consume exactly %d bytes", pos, total)
	}
	return nil
}
