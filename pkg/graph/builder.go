package graph

import (
	"sort"
	"strings"

	"github.com/seqweave/seqweave/pkg/errors"
	"github.com/seqweave/seqweave/pkg/seq"
)

// Builder assembles an operator graph. Nodes are held in an arena slice
// with edges as index pairs; the structure may be wired in any order and
// is only validated by Seal.
type Builder struct {
	nodes    []builderNode
	byName   map[string]int
	explicit [][2]int
	provided map[string]struct{}
	errs     []error
}

type builderNode struct {
	node      Node
	readsFrom []string
	writesTo  []string
}

// NewBuilder creates an empty builder. The whole-read region is always
// available as an input; further externally supplied regions can be
// declared with Provide.
func NewBuilder() *Builder {
	return &Builder{
		byName:   make(map[string]int),
		provided: map[string]struct{}{seq.WholeRead: {}},
	}
}

// Provide declares region names the input records already carry, so
// consumers of those regions need no producer inside the graph.
func (b *Builder) Provide(regions ...string) *Builder {
	for _, r := range regions {
		b.provided[r] = struct{}{}
	}
	return b
}

// AddNode registers a node with the regions it reads and writes. Nodes
// that declare their outputs through a Produces method, match and fork
// nodes among them, have those regions added to writesTo automatically.
func (b *Builder) AddNode(node Node, readsFrom, writesTo []string) *Builder {
	if _, dup := b.byName[node.Name()]; dup {
		b.errs = append(b.errs,
			errors.Newf(errors.ErrorTypeValidation, "node %q added more than once", node.Name()))
		return b
	}
	if p, declares := node.(interface{ Produces() []string }); declares {
		writesTo = append(append([]string(nil), writesTo...), p.Produces()...)
	}
	b.byName[node.Name()] = len(b.nodes)
	b.nodes = append(b.nodes, builderNode{node: node, readsFrom: readsFrom, writesTo: writesTo})
	return b
}

// Connect adds an explicit producer-to-consumer ordering edge between
// two nodes, for dependencies the region lists cannot express.
func (b *Builder) Connect(producer, consumer string) *Builder {
	p, okP := b.byName[producer]
	c, okC := b.byName[consumer]
	if !okP || !okC {
		b.errs = append(b.errs,
			errors.Newf(errors.ErrorTypeValidation, "connect %q -> %q references an unknown node", producer, consumer))
		return b
	}
	b.explicit = append(b.explicit, [2]int{p, c})
	return b
}

// Seal validates the graph and freezes it. Every region a node reads
// must be provided by the input or written by some node; region
// dependencies and explicit edges together must form a DAG. Validation
// failures are build-time fatal.
func (b *Builder) Seal() (*SealedGraph, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if len(b.nodes) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "graph has no nodes")
	}

	producers := make(map[string][]int)
	for i, n := range b.nodes {
		for _, region := range n.writesTo {
			producers[region] = append(producers[region], i)
		}
	}

	// Adjacency from region data flow plus explicit edges.
	adj := make([][]int, len(b.nodes))
	indeg := make([]int, len(b.nodes))
	addEdge := func(from, to int) {
		if from == to {
			return
		}
		for _, existing := range adj[from] {
			if existing == to {
				return
			}
		}
		adj[from] = append(adj[from], to)
		indeg[to]++
	}

	for i, n := range b.nodes {
		for _, region := range n.readsFrom {
			srcs, produced := producers[region]
			if !produced {
				if _, external := b.provided[region]; external {
					continue
				}
				return nil, errors.Newf(errors.ErrorTypeUnresolvedDependency,
					"node %q reads region %q which no node writes", n.node.Name(), region)
			}
			for _, src := range srcs {
				addEdge(src, i)
			}
		}
	}
	for _, e := range b.explicit {
		addEdge(e[0], e[1])
	}

	order, err := b.topoSort(adj, indeg)
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, len(order))
	for i, idx := range order {
		nodes[i] = b.nodes[idx].node
	}
	return &SealedGraph{nodes: nodes}, nil
}

// topoSort runs Kahn's algorithm. Ready nodes are taken in insertion
// order so independent branches execute in a stable order; the required
// invariant is that any order gives identical results, the stable choice
// just keeps runs reproducible.
func (b *Builder) topoSort(adj [][]int, indeg []int) ([]int, error) {
	ready := make([]int, 0, len(b.nodes))
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(b.nodes))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, succ := range adj[next] {
			indeg[succ]--
			if indeg[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) != len(b.nodes) {
		var stuck []string
		for i, d := range indeg {
			if d > 0 {
				stuck = append(stuck, b.nodes[i].node.Name())
			}
		}
		return nil, errors.Newf(errors.ErrorTypeCycle,
			"graph contains a cycle through nodes: %s", strings.Join(stuck, ", "))
	}
	return order, nil
}

// Outcome of driving one record through a sealed graph.
type Outcome struct {
	Record *seq.Record
	Status Status
	Reason string
	Err    error
}

// Status classifies a record's exit from the graph.
type Status uint8

const (
	// Accepted records ran every node cleanly.
	Accepted Status = iota
	// Discarded records failed a filter predicate.
	Discarded
	// Errored records hit a per-record error; siblings are unaffected.
	Errored
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Discarded:
		return "discarded"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// SealedGraph is an operator graph after validation: node order is fixed
// and no internal state remains mutable, so a sealed graph is safe for
// concurrent use by any number of workers.
type SealedGraph struct {
	nodes []Node
}

// Nodes returns the node names in execution order.
func (g *SealedGraph) Nodes() []string {
	out := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Name()
	}
	return out
}

// Process drives a single record through the graph in topological order.
// A no-match passes through (the record carries the tag), a filter
// rejection stops the record as Discarded, and a node error stops it as
// Errored. The record is mutated in place; the caller owns it.
func (g *SealedGraph) Process(rec *seq.Record) Outcome {
	for _, n := range g.nodes {
		res := n.Apply(rec)
		switch res.Status {
		case StatusOK, StatusNoMatch:
			continue
		case StatusRejected:
			return Outcome{Record: rec, Status: Discarded, Reason: res.Reason, Err: res.Err}
		case StatusError:
			reason := res.Reason
			if reason == "" && res.Err != nil {
				reason = res.Err.Error()
			}
			return Outcome{Record: rec, Status: Errored, Reason: reason, Err: res.Err}
		}
	}
	return Outcome{Record: rec, Status: Accepted}
}
