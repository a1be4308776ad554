// Package graph implements the operator graph: a validated DAG of
// match/trim/filter/tag/custom nodes connected by data dependencies on
// named regions. A graph is assembled with a Builder, validated and
// frozen by Seal, and then shared read-only across all workers; Process
// drives a single record through the sealed graph in topological order.
package graph

import (
	"fmt"
	"strconv"

	"github.com/seqweave/seqweave/pkg/errors"
	"github.com/seqweave/seqweave/pkg/pattern"
	"github.com/seqweave/seqweave/pkg/seq"
)

// NodeStatus is the outcome of applying one node to one record.
type NodeStatus uint8

const (
	// StatusOK means the node applied cleanly.
	StatusOK NodeStatus = iota
	// StatusNoMatch means a match node found no placement; the record is
	// tagged and continues through the graph.
	StatusNoMatch
	// StatusRejected means a filter predicate failed; the record is
	// routed to the discarded output.
	StatusRejected
	// StatusError means the node failed on this record.
	StatusError
)

func (s NodeStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoMatch:
		return "no_match"
	case StatusRejected:
		return "rejected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// NodeResult is what a node reports back for one record.
type NodeResult struct {
	Status NodeStatus
	Reason string
	Err    error
}

func ok() NodeResult { return NodeResult{Status: StatusOK} }

// Node is the capability shared by all operator variants. Apply must be
// safe for concurrent use on distinct records; a record is owned by one
// worker at a time, so Apply may mutate its regions and tags freely.
type Node interface {
	Name() string
	Apply(*seq.Record) NodeResult
}

// MatchNode runs a compiled pattern program against a named region. On
// success every named capture becomes a sub-region of the input region
// and the record is tagged match:<region>=true; captures that spent
// edits also get an edits:<capture> tag. On no-match the record is
// tagged match:<region>=false and passes through untouched.
type MatchNode struct {
	name    string
	region  string
	program *pattern.Program
}

// NewMatchNode builds a match node over the given input region.
func NewMatchNode(name, region string, program *pattern.Program) *MatchNode {
	return &MatchNode{name: name, region: region, program: program}
}

func (n *MatchNode) Name() string { return n.name }

// Produces returns the region names a successful match writes.
func (n *MatchNode) Produces() []string { return n.program.Captures() }

func (n *MatchNode) Apply(rec *seq.Record) NodeResult {
	base, found := rec.Region(n.region)
	if !found {
		return NodeResult{Status: StatusError,
			Err: errors.Newf(errors.ErrorTypeNotFound, "match node %q: region %q not found", n.name, n.region)}
	}
	text, err := rec.Slice(n.region)
	if err != nil {
		return NodeResult{Status: StatusError, Err: err}
	}

	res, err := n.program.Match(text)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNoMatch) {
			rec.SetTag("match:"+n.region, "false")
			return NodeResult{Status: StatusNoMatch, Reason: err.Error()}
		}
		return NodeResult{Status: StatusError, Err: err}
	}

	for _, c := range res.Captures {
		start, length := forwardRange(base, c.Start, c.Len)
		if err := rec.SetRegion(c.Name, start, length, base.Orient, true); err != nil {
			return NodeResult{Status: StatusError,
				Err: errors.Wrap(err, errors.ErrorTypeInternal, "match node "+n.name)}
		}
		if c.Edits > 0 {
			rec.SetTag("edits:"+c.Name, strconv.Itoa(c.Edits))
		}
	}
	rec.SetTag("match:"+n.region, "true")
	return ok()
}

// forwardRange maps a capture interval inside a region's view back to
// forward sequence coordinates. Reverse-oriented regions are viewed as
// their reverse complement, so the mapping flips around the region end.
func forwardRange(base seq.Region, start, length int) (int, int) {
	if base.Orient == seq.OrientReverse {
		return base.Start + base.Len - start - length, length
	}
	return base.Start + start, length
}

// TrimNode narrows a region by removing a sub-region that sits flush at
// one of its edges, the usual step after a match locates an adapter.
type TrimNode struct {
	name   string
	region string
	cut    string
}

// NewTrimNode builds a trim node that removes region cut from region.
func NewTrimNode(name, region, cut string) *TrimNode {
	return &TrimNode{name: name, region: region, cut: cut}
}

func (n *TrimNode) Name() string { return n.name }

func (n *TrimNode) Apply(rec *seq.Record) NodeResult {
	reg, found := rec.Region(n.region)
	if !found {
		return NodeResult{Status: StatusError,
			Err: errors.Newf(errors.ErrorTypeNotFound, "trim node %q: region %q not found", n.name, n.region)}
	}
	cut, found := rec.Region(n.cut)
	if !found {
		return NodeResult{Status: StatusError,
			Err: errors.Newf(errors.ErrorTypeNotFound, "trim node %q: region %q not found", n.name, n.cut)}
	}

	var start, length int
	switch {
	case cut.Start == reg.Start && cut.Len <= reg.Len:
		start, length = cut.End(), reg.Len-cut.Len
	case cut.End() == reg.End() && cut.Len <= reg.Len:
		start, length = reg.Start, reg.Len-cut.Len
	default:
		return NodeResult{Status: StatusError,
			Err: errors.Newf(errors.ErrorTypeValidation,
				"trim node %q: region %q [%d, %d) is not flush with an edge of %q [%d, %d)",
				n.name, n.cut, cut.Start, cut.End(), n.region, reg.Start, reg.End())}
	}
	if _, err := rec.Trim(n.region, start, length); err != nil {
		return NodeResult{Status: StatusError, Err: err}
	}
	return ok()
}

// FilterNode applies a predicate; records failing it are routed to the
// discarded output with a reason, never silently dropped.
type FilterNode struct {
	name string
	pred Predicate
	desc string
}

// NewFilterNode builds a filter node. desc is the human-readable reason
// attached to rejected records.
func NewFilterNode(name string, pred Predicate, desc string) *FilterNode {
	return &FilterNode{name: name, pred: pred, desc: desc}
}

func (n *FilterNode) Name() string { return n.name }

func (n *FilterNode) Apply(rec *seq.Record) NodeResult {
	if n.pred(rec) {
		return ok()
	}
	return NodeResult{
		Status: StatusRejected,
		Reason: fmt.Sprintf("filter %q: %s", n.name, n.desc),
		Err:    errors.Newf(errors.ErrorTypeFilterRejected, "filter %q rejected record %s", n.name, rec.ID),
	}
}

// SetTagNode attaches a fixed key/value annotation to every record.
type SetTagNode struct {
	name  string
	key   string
	value string
}

func NewSetTagNode(name, key, value string) *SetTagNode {
	return &SetTagNode{name: name, key: key, value: value}
}

func (n *SetTagNode) Name() string { return n.name }

func (n *SetTagNode) Apply(rec *seq.Record) NodeResult {
	rec.SetTag(n.key, n.value)
	return ok()
}

// CustomNode wraps an externally supplied function. The graph treats it
// as a black box: panics and errors are caught at the node boundary and
// converted to a per-record custom_operator error, so foreign code can
// never take down the pipeline.
type CustomNode struct {
	name string
	fn   func(*seq.Record) error
}

func NewCustomNode(name string, fn func(*seq.Record) error) *CustomNode {
	return &CustomNode{name: name, fn: fn}
}

func (n *CustomNode) Name() string { return n.name }

func (n *CustomNode) Apply(rec *seq.Record) (res NodeResult) {
	defer func() {
		if p := recover(); p != nil {
			res = NodeResult{Status: StatusError,
				Err: errors.Newf(errors.ErrorTypeCustomOperator, "custom node %q panicked: %v", n.name, p)}
		}
	}()
	if err := n.fn(rec); err != nil {
		return NodeResult{Status: StatusError,
			Err: errors.Wrap(err, errors.ErrorTypeCustomOperator, "custom node "+n.name)}
	}
	return ok()
}
