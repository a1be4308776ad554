package graph

import (
	"github.com/seqweave/seqweave/pkg/seq"
)

// Predicate decides whether a record passes a filter node.
type Predicate func(*seq.Record) bool

// TagExists passes records carrying the tag key.
func TagExists(key string) Predicate {
	return func(r *seq.Record) bool {
		_, ok := r.Tag(key)
		return ok
	}
}

// TagEquals passes records whose tag key holds value.
func TagEquals(key, value string) Predicate {
	return func(r *seq.Record) bool {
		v, ok := r.Tag(key)
		return ok && v == value
	}
}

// RegionExists passes records carrying the named region.
func RegionExists(name string) Predicate {
	return func(r *seq.Record) bool {
		_, ok := r.Region(name)
		return ok
	}
}

// RegionLenBetween passes records whose named region length lies in
// [min, max]. A max of -1 means unbounded. Records missing the region
// fail.
func RegionLenBetween(name string, min, max int) Predicate {
	return func(r *seq.Record) bool {
		reg, ok := r.Region(name)
		if !ok {
			return false
		}
		if reg.Len < min {
			return false
		}
		return max < 0 || reg.Len <= max
	}
}

// And passes records passing every predicate.
func And(preds ...Predicate) Predicate {
	return func(r *seq.Record) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Or passes records passing any predicate.
func Or(preds ...Predicate) Predicate {
	return func(r *seq.Record) bool {
		for _, p := range preds {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(r *seq.Record) bool { return !p(r) }
}
