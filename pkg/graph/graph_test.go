package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqweave/seqweave/pkg/errors"
	"github.com/seqweave/seqweave/pkg/pattern"
	"github.com/seqweave/seqweave/pkg/seq"
)

func mustRecord(t *testing.T, id, bases string) *seq.Record {
	t.Helper()
	rec, err := seq.NewRecord(id, []byte(bases), nil)
	require.NoError(t, err)
	return rec
}

func mustProgram(t *testing.T, desc string) *pattern.Program {
	t.Helper()
	prog, err := pattern.Compile(desc)
	require.NoError(t, err)
	return prog
}

func TestSealRejectsCycle(t *testing.T) {
	b := NewBuilder()
	b.AddNode(NewSetTagNode("a", "k", "1"), nil, nil)
	b.AddNode(NewSetTagNode("b", "k", "2"), nil, nil)
	b.AddNode(NewSetTagNode("c", "k", "3"), nil, nil)
	b.Connect("a", "b").Connect("b", "c").Connect("c", "a")

	_, err := b.Seal()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCycle))
	assert.True(t, errors.IsBuildTime(err))
}

func TestSealRejectsDanglingDependency(t *testing.T) {
	b := NewBuilder()
	b.AddNode(NewFilterNode("keep", RegionExists("barcode"), "barcode present"),
		[]string{"barcode"}, nil)

	_, err := b.Seal()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnresolvedDependency))
}

func TestSealRejectsDuplicateNode(t *testing.T) {
	b := NewBuilder()
	b.AddNode(NewSetTagNode("a", "k", "1"), nil, nil)
	b.AddNode(NewSetTagNode("a", "k", "2"), nil, nil)

	_, err := b.Seal()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestSealOrdersByRegionFlow(t *testing.T) {
	prog := mustProgram(t, "literal(AGCT) as adapter, range(0, *) as insert")

	b := NewBuilder()
	// Added out of dependency order on purpose.
	b.AddNode(NewTrimNode("trim-adapter", seq.WholeRead, "adapter"),
		[]string{"adapter"}, nil)
	b.AddNode(NewMatchNode("find-adapter", seq.WholeRead, prog),
		[]string{seq.WholeRead}, nil)

	g, err := b.Seal()
	require.NoError(t, err)
	assert.Equal(t, []string{"find-adapter", "trim-adapter"}, g.Nodes())
}

func TestProcessMatchTrimFilter(t *testing.T) {
	prog := mustProgram(t, "literal(AGCT, 1) as adapter, range(6, 6) as barcode, range(0, *) as insert")

	b := NewBuilder()
	b.AddNode(NewMatchNode("structure", seq.WholeRead, prog), []string{seq.WholeRead}, nil)
	b.AddNode(NewTrimNode("trim-adapter", seq.WholeRead, "adapter"), []string{"adapter"}, nil)
	b.AddNode(NewFilterNode("require-match", TagEquals("match:"+seq.WholeRead, "true"), "structure matched"),
		nil, nil)
	b.Connect("structure", "require-match")
	g, err := b.Seal()
	require.NoError(t, err)

	rec := mustRecord(t, "r1", "AGCACCGGTTTTAA")
	out := g.Process(rec)
	require.Equal(t, Accepted, out.Status, "reason: %s", out.Reason)

	adapter, ok := rec.Region("adapter")
	require.True(t, ok)
	assert.Equal(t, 0, adapter.Start)
	assert.Equal(t, 4, adapter.Len)

	barcode, ok := rec.Region("barcode")
	require.True(t, ok)
	assert.Equal(t, 4, barcode.Start)
	assert.Equal(t, 6, barcode.Len)

	insert, ok := rec.Region("insert")
	require.True(t, ok)
	assert.Equal(t, 10, insert.Start)
	assert.Equal(t, 4, insert.Len)

	// The adapter spent one edit and the whole read was trimmed past it.
	edits, ok := rec.Tag("edits:adapter")
	require.True(t, ok)
	assert.Equal(t, "1", edits)

	whole, _ := rec.Region(seq.WholeRead)
	assert.Equal(t, 4, whole.Start)
	assert.Equal(t, 10, whole.Len)
}

func TestProcessNoMatchTagsAndContinues(t *testing.T) {
	prog := mustProgram(t, "literal(AGCT) as adapter, range(0, *) as insert")

	b := NewBuilder()
	b.AddNode(NewMatchNode("structure", seq.WholeRead, prog), []string{seq.WholeRead}, nil)
	b.AddNode(NewSetTagNode("mark", "seen", "yes"), nil, nil)
	b.Connect("structure", "mark")
	g, err := b.Seal()
	require.NoError(t, err)

	rec := mustRecord(t, "r1", "TTTTCCCC")
	out := g.Process(rec)
	require.Equal(t, Accepted, out.Status)

	matched, ok := rec.Tag("match:" + seq.WholeRead)
	require.True(t, ok)
	assert.Equal(t, "false", matched)

	// Downstream nodes still ran.
	seen, _ := rec.Tag("seen")
	assert.Equal(t, "yes", seen)

	_, hasAdapter := rec.Region("adapter")
	assert.False(t, hasAdapter)
}

func TestProcessNoMatchPairedWithFilterDiscards(t *testing.T) {
	prog := mustProgram(t, "literal(AGCT) as adapter, range(0, *) as insert")

	b := NewBuilder()
	b.AddNode(NewMatchNode("structure", seq.WholeRead, prog), []string{seq.WholeRead}, nil)
	b.AddNode(NewFilterNode("require-match", TagEquals("match:"+seq.WholeRead, "true"), "structure matched"),
		nil, nil)
	b.Connect("structure", "require-match")
	g, err := b.Seal()
	require.NoError(t, err)

	out := g.Process(mustRecord(t, "r1", "TTTTCCCC"))
	require.Equal(t, Discarded, out.Status)
	assert.Contains(t, out.Reason, "require-match")
	assert.True(t, errors.IsType(out.Err, errors.ErrorTypeFilterRejected))
	assert.True(t, errors.IsRecoverable(out.Err))
}

func TestProcessFilterPredicates(t *testing.T) {
	rec := mustRecord(t, "r1", "ACGTACGT")
	require.NoError(t, rec.SetRegion("umi", 0, 4, seq.OrientForward, true))
	rec.SetTag("lane", "3")

	assert.True(t, TagExists("lane")(rec))
	assert.False(t, TagExists("sample")(rec))
	assert.True(t, TagEquals("lane", "3")(rec))
	assert.True(t, RegionExists("umi")(rec))
	assert.True(t, RegionLenBetween("umi", 4, 4)(rec))
	assert.False(t, RegionLenBetween("umi", 5, -1)(rec))
	assert.True(t, RegionLenBetween("umi", 0, -1)(rec))
	assert.False(t, RegionLenBetween("missing", 0, -1)(rec))

	assert.True(t, And(TagExists("lane"), RegionExists("umi"))(rec))
	assert.False(t, And(TagExists("lane"), RegionExists("missing"))(rec))
	assert.True(t, Or(TagExists("sample"), TagExists("lane"))(rec))
	assert.False(t, Not(TagExists("lane"))(rec))
}

func TestProcessCustomNode(t *testing.T) {
	b := NewBuilder()
	b.AddNode(NewCustomNode("annotate", func(r *seq.Record) error {
		r.SetTag("custom", "ran")
		return nil
	}), nil, nil)
	g, err := b.Seal()
	require.NoError(t, err)

	rec := mustRecord(t, "r1", "ACGT")
	out := g.Process(rec)
	require.Equal(t, Accepted, out.Status)
	v, _ := rec.Tag("custom")
	assert.Equal(t, "ran", v)
}

func TestProcessCustomNodePanicRecovered(t *testing.T) {
	b := NewBuilder()
	b.AddNode(NewCustomNode("explode", func(r *seq.Record) error {
		panic("boom")
	}), nil, nil)
	g, err := b.Seal()
	require.NoError(t, err)

	out := g.Process(mustRecord(t, "r1", "ACGT"))
	require.Equal(t, Errored, out.Status)
	assert.True(t, errors.IsType(out.Err, errors.ErrorTypeCustomOperator))
	assert.True(t, errors.IsRecoverable(out.Err))
}

func TestProcessCustomNodeErrorWrapped(t *testing.T) {
	b := NewBuilder()
	b.AddNode(NewCustomNode("fail", func(r *seq.Record) error {
		return fmt.Errorf("downstream unavailable")
	}), nil, nil)
	g, err := b.Seal()
	require.NoError(t, err)

	out := g.Process(mustRecord(t, "r1", "ACGT"))
	require.Equal(t, Errored, out.Status)
	assert.True(t, errors.IsType(out.Err, errors.ErrorTypeCustomOperator))
}

func TestProcessTrimNotFlush(t *testing.T) {
	b := NewBuilder()
	b.Provide("mid")
	b.AddNode(NewTrimNode("trim", seq.WholeRead, "mid"), []string{"mid"}, nil)
	g, err := b.Seal()
	require.NoError(t, err)

	rec := mustRecord(t, "r1", "ACGTACGT")
	require.NoError(t, rec.SetRegion("mid", 2, 3, seq.OrientForward, true))
	out := g.Process(rec)
	require.Equal(t, Errored, out.Status)
	assert.True(t, errors.IsType(out.Err, errors.ErrorTypeValidation))
}

func TestMatchOnReverseOrientedRegion(t *testing.T) {
	// Forward sequence whose reverse complement starts with AGCT.
	// revcomp("TTAGCT") = "AGCTAA".
	rec := mustRecord(t, "r1", "TTAGCT")
	require.NoError(t, rec.SetRegion("rev", 0, 6, seq.OrientReverse, true))

	prog := mustProgram(t, "literal(AGCT) as adapter, range(0, *) as rest")
	node := NewMatchNode("structure", "rev", prog)
	res := node.Apply(rec)
	require.Equal(t, StatusOK, res.Status)

	// The adapter occupies view positions 0..4, which map to forward
	// positions 2..6 and keep the reverse orientation.
	adapter, ok := rec.Region("adapter")
	require.True(t, ok)
	assert.Equal(t, 2, adapter.Start)
	assert.Equal(t, 4, adapter.Len)
	assert.Equal(t, seq.OrientReverse, adapter.Orient)

	view, err := rec.Slice("adapter")
	require.NoError(t, err)
	assert.Equal(t, "AGCT", string(view))
}

func TestProcessBranchOrderIndependence(t *testing.T) {
	prog := mustProgram(t, "range(4, 4) as umi, range(0, *) as rest")

	build := func(flip bool) *SealedGraph {
		b := NewBuilder()
		match := NewMatchNode("structure", seq.WholeRead, prog)
		tagA := NewSetTagNode("tag-a", "a", "1")
		tagB := NewSetTagNode("tag-b", "b", "2")
		if flip {
			b.AddNode(tagB, nil, nil)
			b.AddNode(tagA, nil, nil)
			b.AddNode(match, []string{seq.WholeRead}, nil)
		} else {
			b.AddNode(match, []string{seq.WholeRead}, nil)
			b.AddNode(tagA, nil, nil)
			b.AddNode(tagB, nil, nil)
		}
		g, err := b.Seal()
		require.NoError(t, err)
		return g
	}

	for _, flip := range []bool{false, true} {
		rec := mustRecord(t, "r1", "ACGTTTTT")
		out := build(flip).Process(rec)
		require.Equal(t, Accepted, out.Status)
		umi, ok := rec.Region("umi")
		require.True(t, ok)
		assert.Equal(t, 4, umi.Len)
		a, _ := rec.Tag("a")
		bTag, _ := rec.Tag("b")
		assert.Equal(t, "1", a)
		assert.Equal(t, "2", bTag)
	}
}

func TestForkFirstMatchingBranchWins(t *testing.T) {
	progA := mustProgram(t, "literal(GGGG) as siteA, range(0, *) as tailA")
	progB := mustProgram(t, "literal(CCCC) as siteB, range(0, *) as tailB")

	fork := NewForkNode("demux",
		NewMatchNode("variant-a", seq.WholeRead, progA),
		NewMatchNode("variant-b", seq.WholeRead, progB))
	assert.ElementsMatch(t, []string{"siteA", "tailA", "siteB", "tailB"}, fork.Produces())

	b := NewBuilder()
	// The consumer is added first; region flow must still order it after
	// the fork that produces siteB.
	b.AddNode(NewFilterNode("keep-b", RegionExists("siteB"), "variant B present"),
		[]string{"siteB"}, nil)
	b.AddNode(fork, []string{seq.WholeRead}, nil)
	g, err := b.Seal()
	require.NoError(t, err)
	assert.Equal(t, []string{"demux", "keep-b"}, g.Nodes())

	rec := mustRecord(t, "r1", "CCCCTTTT")
	out := g.Process(rec)
	require.Equal(t, Accepted, out.Status, "reason: %s", out.Reason)

	branch, ok := rec.Tag("branch:demux")
	require.True(t, ok)
	assert.Equal(t, "variant-b", branch)

	site, ok := rec.Region("siteB")
	require.True(t, ok)
	assert.Equal(t, 0, site.Start)
	assert.Equal(t, 4, site.Len)

	// The losing branch's trial must leave nothing behind.
	_, ok = rec.Region("siteA")
	assert.False(t, ok)
	matched, ok := rec.Tag("match:" + seq.WholeRead)
	require.True(t, ok)
	assert.Equal(t, "true", matched)
}

func TestForkNoBranchLeavesRecordUntouched(t *testing.T) {
	progA := mustProgram(t, "literal(GGGG) as siteA, range(0, *) as tailA")
	progB := mustProgram(t, "literal(CCCC) as siteB, range(0, *) as tailB")

	b := NewBuilder()
	b.AddNode(NewForkNode("demux",
		NewMatchNode("variant-a", seq.WholeRead, progA),
		NewMatchNode("variant-b", seq.WholeRead, progB)),
		[]string{seq.WholeRead}, nil)
	g, err := b.Seal()
	require.NoError(t, err)

	rec := mustRecord(t, "r1", "TTTTTTTT")
	out := g.Process(rec)
	require.Equal(t, Accepted, out.Status)

	branch, ok := rec.Tag("branch:demux")
	require.True(t, ok)
	assert.Equal(t, "none", branch)

	// No trial regions or tags escape the failed branches.
	assert.Len(t, rec.Regions(), 1)
	_, ok = rec.Tag("match:" + seq.WholeRead)
	assert.False(t, ok)
}

func TestForkBranchErrorFailsRecord(t *testing.T) {
	b := NewBuilder()
	b.AddNode(NewForkNode("demux",
		NewCustomNode("boom", func(*seq.Record) error {
			return fmt.Errorf("branch failure")
		})),
		[]string{seq.WholeRead}, nil)
	g, err := b.Seal()
	require.NoError(t, err)

	out := g.Process(mustRecord(t, "r1", "ACGT"))
	require.Equal(t, Errored, out.Status)
	assert.True(t, errors.IsType(out.Err, errors.ErrorTypeCustomOperator))
}
