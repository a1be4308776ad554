package graph

import (
	"fmt"

	"github.com/seqweave/seqweave/pkg/seq"
)

// ForkNode tries alternative branch nodes against the record, in order.
// Each branch runs on a trial Clone so a failed branch leaves no partial
// regions or tags behind. The first branch reporting StatusOK has its
// trial adopted into the record and its name written under the
// branch:<fork> tag; when no branch succeeds the tag is set to "none"
// and the record passes through as a no-match. A branch error stops the
// fork and fails the record.
type ForkNode struct {
	name     string
	branches []Node
}

// NewForkNode builds a fork over the given branches. Branch order is
// priority order.
func NewForkNode(name string, branches ...Node) *ForkNode {
	return &ForkNode{name: name, branches: branches}
}

func (n *ForkNode) Name() string { return n.name }

// Produces returns the union of the regions the branches can write, so
// downstream consumers of any branch's captures order after the fork.
func (n *ForkNode) Produces() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, br := range n.branches {
		p, produces := br.(interface{ Produces() []string })
		if !produces {
			continue
		}
		for _, region := range p.Produces() {
			if _, dup := seen[region]; dup {
				continue
			}
			seen[region] = struct{}{}
			out = append(out, region)
		}
	}
	return out
}

func (n *ForkNode) Apply(rec *seq.Record) NodeResult {
	for _, br := range n.branches {
		trial := rec.Clone()
		res := br.Apply(trial)
		switch res.Status {
		case StatusOK:
			rec.Adopt(trial)
			rec.SetTag("branch:"+n.name, br.Name())
			return ok()
		case StatusError:
			return res
		}
		// NoMatch and Rejected discard the trial; the record is untouched.
	}
	rec.SetTag("branch:"+n.name, "none")
	return NodeResult{Status: StatusNoMatch,
		Reason: fmt.Sprintf("fork %q: no branch matched", n.name)}
}
