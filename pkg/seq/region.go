package seq

// Orientation indicates whether a region is read forward or as its
// reverse complement.
type Orientation uint8

const (
	// OrientForward reads the region left to right as stored.
	OrientForward Orientation = iota
	// OrientReverse reads the region as its reverse complement.
	OrientReverse
)

// String returns the strand symbol for the orientation.
func (o Orientation) String() string {
	if o == OrientReverse {
		return "-"
	}
	return "+"
}

// WholeRead is the implicit region spanning the full sequence of every
// record. It always exists and cannot be removed.
const WholeRead = "read"

// Region is a named sub-range of a record's sequence. Regions are views
// into the owning record's byte buffer, never independent allocations.
type Region struct {
	Name   string      `json:"name"`
	Start  int         `json:"start"`
	Len    int         `json:"len"`
	Orient Orientation `json:"orient"`
}

// End returns the exclusive end offset of the region.
func (r Region) End() int {
	return r.Start + r.Len
}

// Contains reports whether the region fully contains the byte range
// [start, start+length).
func (r Region) Contains(start, length int) bool {
	return start >= r.Start && start+length <= r.End()
}

// overlaps reports whether the region partially overlaps [start, start+length)
// without either range containing the other. Full containment is nesting,
// which the region model always permits.
func (r Region) overlaps(start, length int) bool {
	end := start + length
	if end <= r.Start || r.End() <= start {
		return false
	}
	if r.Contains(start, length) {
		return false
	}
	if start <= r.Start && r.End() <= end {
		return false
	}
	return true
}
