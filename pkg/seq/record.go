// Package seq provides the in-memory record and region model for
// sequencing reads. A Record holds an immutable base sequence, a parallel
// quality-score sequence, and a set of named regions addressing sub-ranges
// of the sequence. Regions are (offset, length) views into the record's
// buffer; no operation copies the underlying sequence except reverse
// complement, which is computed lazily and cached per record.
//
// Records flow through the operator graph as values owned by exactly one
// worker at a time, so none of the methods here take locks.
package seq

import (
	"github.com/seqweave/seqweave/pkg/errors"
	"github.com/seqweave/seqweave/pkg/pool"
)

// Record is a single sequencing read: an identifier, base sequence,
// quality scores, named regions, and key/value tags.
type Record struct {
	ID string

	seq     []byte
	qual    []byte
	regions map[string]Region
	tags    map[string]string

	// rc caches the reverse complement of the full sequence. Region-level
	// reverse complements are views into this buffer.
	rc []byte
}

var recordPool = pool.New(
	func() *Record {
		return &Record{
			regions: make(map[string]Region, 8),
			tags:    make(map[string]string, 4),
		}
	},
	func(r *Record) { r.reset() },
)

// NewRecord creates a record from an identifier, base sequence, and
// quality scores. qual may be nil for quality-less input; otherwise it
// must have the same length as seq. The sequence buffer is owned by the
// record and must not be mutated by the caller afterwards.
//
// Every record starts with the WholeRead region spanning the full sequence.
func NewRecord(id string, seqBytes, qual []byte) (*Record, error) {
	r := &Record{
		ID:      id,
		regions: make(map[string]Region, 8),
		tags:    make(map[string]string, 4),
	}
	if err := r.init(seqBytes, qual); err != nil {
		return nil, err
	}
	return r, nil
}

// FromPool creates a record backed by the package record pool. Call
// Release when the record exits the pipeline to recycle it.
func FromPool(id string, seqBytes, qual []byte) (*Record, error) {
	r := recordPool.Get()
	r.ID = id
	if err := r.init(seqBytes, qual); err != nil {
		recordPool.Put(r)
		return nil, err
	}
	return r, nil
}

// Release returns the record to the pool. The record must not be used
// after calling Release.
func (r *Record) Release() {
	recordPool.Put(r)
}

func (r *Record) init(seqBytes, qual []byte) error {
	if qual != nil && len(qual) != len(seqBytes) {
		return errors.Newf(errors.ErrorTypeValidation,
			"quality length %d does not match sequence length %d", len(qual), len(seqBytes))
	}
	r.seq = seqBytes
	r.qual = qual
	r.regions[WholeRead] = Region{Name: WholeRead, Start: 0, Len: len(seqBytes)}
	return nil
}

func (r *Record) reset() {
	r.ID = ""
	r.seq = nil
	r.qual = nil
	r.rc = nil
	for k := range r.regions {
		delete(r.regions, k)
	}
	for k := range r.tags {
		delete(r.tags, k)
	}
}

// Seq returns the full base sequence. The returned slice must be treated
// as read-only.
func (r *Record) Seq() []byte { return r.seq }

// Qual returns the full quality-score sequence, or nil if the record has
// no qualities.
func (r *Record) Qual() []byte { return r.qual }

// Len returns the sequence length.
func (r *Record) Len() int { return len(r.seq) }

// Region looks up a region by name.
func (r *Record) Region(name string) (Region, bool) {
	reg, ok := r.regions[name]
	return reg, ok
}

// Regions returns a copy of the region table.
func (r *Record) Regions() map[string]Region {
	out := make(map[string]Region, len(r.regions))
	for k, v := range r.regions {
		out[k] = v
	}
	return out
}

// Slice returns the bytes of a named region. The slice aliases the
// record's sequence buffer.
func (r *Record) Slice(name string) ([]byte, error) {
	reg, ok := r.regions[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "region %q not found", name)
	}
	if reg.Orient == OrientReverse {
		return r.reverseComplementRange(reg.Start, reg.Len), nil
	}
	return r.seq[reg.Start:reg.End()], nil
}

// QualSlice returns the quality scores of a named region, or nil if the
// record has no qualities. Reverse-oriented regions return qualities in
// reverse order to stay parallel with Slice.
func (r *Record) QualSlice(name string) ([]byte, error) {
	reg, ok := r.regions[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "region %q not found", name)
	}
	if r.qual == nil {
		return nil, nil
	}
	if reg.Orient == OrientReverse {
		out := make([]byte, reg.Len)
		for i := 0; i < reg.Len; i++ {
			out[i] = r.qual[reg.End()-1-i]
		}
		return out, nil
	}
	return r.qual[reg.Start:reg.End()], nil
}

// SetRegion creates or replaces a named region. The byte range must lie
// within the sequence. Nested ranges (one fully containing the other) are
// always permitted; partial overlaps with existing regions fail with an
// overlap violation unless allowOverlap is set.
func (r *Record) SetRegion(name string, start, length int, orient Orientation, allowOverlap bool) error {
	if name == "" {
		return errors.New(errors.ErrorTypeValidation, "region name must not be empty")
	}
	if start < 0 || length < 0 || start+length > len(r.seq) {
		return errors.Newf(errors.ErrorTypeValidation,
			"region %q range [%d, %d) outside sequence of length %d", name, start, start+length, len(r.seq))
	}
	if !allowOverlap {
		for existing, reg := range r.regions {
			if existing == name {
				continue
			}
			if reg.overlaps(start, length) {
				return errors.Newf(errors.ErrorTypeOverlap,
					"region %q [%d, %d) partially overlaps region %q [%d, %d)",
					name, start, start+length, existing, reg.Start, reg.End())
			}
		}
	}
	r.regions[name] = Region{Name: name, Start: start, Len: length, Orient: orient}
	return nil
}

// Trim narrows a region to the byte range [start, start+length). The new
// range must be contained in the current one; trimming never grows a
// region. Trimming to the current range is a no-op.
func (r *Record) Trim(name string, start, length int) (Region, error) {
	reg, ok := r.regions[name]
	if !ok {
		return Region{}, errors.Newf(errors.ErrorTypeNotFound, "region %q not found", name)
	}
	if start == reg.Start && length == reg.Len {
		return reg, nil
	}
	if !reg.Contains(start, length) {
		return Region{}, errors.Newf(errors.ErrorTypeValidation,
			"trim of region %q to [%d, %d) would grow beyond [%d, %d)",
			name, start, start+length, reg.Start, reg.End())
	}
	reg.Start = start
	reg.Len = length
	r.regions[name] = reg
	return reg, nil
}

// ReverseComplement returns the reverse complement of a named region as a
// view into the record's cached reverse-complement buffer. The buffer is
// computed once per record on first use.
func (r *Record) ReverseComplement(name string) ([]byte, error) {
	reg, ok := r.regions[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "region %q not found", name)
	}
	return r.reverseComplementRange(reg.Start, reg.Len), nil
}

func (r *Record) reverseComplementRange(start, length int) []byte {
	if r.rc == nil {
		r.rc = RevComp(r.seq)
	}
	n := len(r.seq)
	return r.rc[n-start-length : n-start]
}

// SetTag attaches a key/value annotation to the record.
func (r *Record) SetTag(key, value string) {
	r.tags[key] = value
}

// Tag looks up a tag by key.
func (r *Record) Tag(key string) (string, bool) {
	v, ok := r.tags[key]
	return v, ok
}

// Tags returns a copy of the tag table.
func (r *Record) Tags() map[string]string {
	out := make(map[string]string, len(r.tags))
	for k, v := range r.tags {
		out[k] = v
	}
	return out
}

// Adopt replaces the record's regions, tags, and cached reverse
// complement with those of other. The two records must share the same
// sequence buffer; branch operators use Adopt to commit a trial Clone
// back into the record they were handed.
func (r *Record) Adopt(other *Record) {
	for k := range r.regions {
		delete(r.regions, k)
	}
	for k, v := range other.regions {
		r.regions[k] = v
	}
	for k := range r.tags {
		delete(r.tags, k)
	}
	for k, v := range other.tags {
		r.tags[k] = v
	}
	r.rc = other.rc
}

// Clone returns a record sharing the immutable sequence, quality, and
// reverse-complement buffers but with independent region and tag tables.
func (r *Record) Clone() *Record {
	out := &Record{
		ID:      r.ID,
		seq:     r.seq,
		qual:    r.qual,
		rc:      r.rc,
		regions: make(map[string]Region, len(r.regions)),
		tags:    make(map[string]string, len(r.tags)),
	}
	for k, v := range r.regions {
		out.regions[k] = v
	}
	for k, v := range r.tags {
		out.tags[k] = v
	}
	return out
}
