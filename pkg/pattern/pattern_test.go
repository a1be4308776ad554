package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqweave/seqweave/pkg/errors"
)

func TestCompileBasic(t *testing.T) {
	prog, err := Compile("literal(AGCT, 1) as adapter, range(6, 6) as barcode, range(0, *) as insert")
	require.NoError(t, err)

	segs := prog.Segments()
	require.Len(t, segs, 3)

	assert.Equal(t, KindLiteral, segs[0].Kind)
	assert.Equal(t, []byte("AGCT"), segs[0].Bytes)
	assert.Equal(t, 1, segs[0].MaxMismatches)
	assert.Equal(t, "adapter", segs[0].Name)

	assert.Equal(t, KindRange, segs[1].Kind)
	assert.Equal(t, 6, segs[1].MinLen)
	assert.Equal(t, 6, segs[1].MaxLen)

	assert.Equal(t, KindRange, segs[2].Kind)
	assert.Equal(t, 0, segs[2].MinLen)
	assert.Equal(t, -1, segs[2].MaxLen)

	assert.Equal(t, []string{"adapter", "barcode", "insert"}, prog.Captures())
}

func TestCompileAnchor(t *testing.T) {
	prog, err := Compile("literal(ACGT), anchor(4), range(0, *) as rest")
	require.NoError(t, err)
	require.Len(t, prog.Segments(), 3)
	assert.Equal(t, 4, prog.Segments()[1].Pos)
}

func TestCompileSyntaxErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"unknown segment", "splice(ACGT)"},
		{"missing paren", "literal(ACGT"},
		{"no bases", "literal()"},
		{"lowercase bases", "literal(acgt)"},
		{"range missing max", "range(4)"},
		{"range max below min", "range(5, 2)"},
		{"trailing comma", "literal(ACGT),"},
		{"budget not below length", "literal(AC, 2)"},
		{"adjacent variable ranges", "range(0, *), range(1, 8), literal(ACGT)"},
		{"anchor after fixed mismatch", "literal(ACGT), anchor(6)"},
		{"missing capture name", "literal(ACGT) as"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.src)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeSyntax), "got %v", err)
			assert.True(t, errors.IsBuildTime(err))
		})
	}
}

func TestCompileSyntaxErrorOffset(t *testing.T) {
	_, err := Compile("literal(ACGT) range(1, 2)")
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 14, e.Details["offset"])
}

func TestCompileLabelErrors(t *testing.T) {
	_, err := Compile("literal(ACGT) as x, range(0, *) as x")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnresolvedLabel))

	_, err = Compile("anchor(4) as pin")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnresolvedLabel))
}

func TestMatchAdapterBarcodeInsert(t *testing.T) {
	prog, err := Compile("literal(AGCT, 1) as adapter, range(6, 6) as barcode, range(0, *) as insert")
	require.NoError(t, err)

	// One substitution in the adapter, then a 6-byte barcode, then the rest.
	res, err := prog.Match([]byte("AGCACCGGTTTTAA"))
	require.NoError(t, err)
	require.Len(t, res.Captures, 3)

	adapter, ok := res.Capture("adapter")
	require.True(t, ok)
	assert.Equal(t, 0, adapter.Start)
	assert.Equal(t, 4, adapter.Len)
	assert.Equal(t, 1, adapter.Edits)

	barcode, ok := res.Capture("barcode")
	require.True(t, ok)
	assert.Equal(t, 4, barcode.Start)
	assert.Equal(t, 6, barcode.Len)

	insert, ok := res.Capture("insert")
	require.True(t, ok)
	assert.Equal(t, 10, insert.Start)
	assert.Equal(t, 4, insert.Len)
	assert.Equal(t, 0, insert.Edits)
}

func TestMatchZeroBudgetRejectsMismatch(t *testing.T) {
	prog, err := Compile("literal(AGCT) as adapter, range(6, 6) as barcode, range(0, *) as insert")
	require.NoError(t, err)

	_, err = prog.Match([]byte("AGCACCGGTTTTAA"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoMatch))
	assert.True(t, errors.IsRecoverable(err))
}

func TestMatchGreedyMinimalWildcard(t *testing.T) {
	prog, err := Compile("range(0, 10) as lead, literal(AC) as probe, range(0, *) as rest")
	require.NoError(t, err)

	// AC occurs at offsets 2 and 6; the leftmost placement wins, so the
	// leading wildcard stays minimal.
	res, err := prog.Match([]byte("TTACGGACGG"))
	require.NoError(t, err)

	lead, _ := res.Capture("lead")
	assert.Equal(t, 0, lead.Start)
	assert.Equal(t, 2, lead.Len)

	probe, _ := res.Capture("probe")
	assert.Equal(t, 2, probe.Start)
	assert.Equal(t, 2, probe.Len)

	rest, _ := res.Capture("rest")
	assert.Equal(t, 4, rest.Start)
	assert.Equal(t, 6, rest.Len)
}

func TestMatchRepetitiveLiteralAfterWildcard(t *testing.T) {
	prog, err := Compile("range(0, 2) as lead, literal(AAAA, 1) as site, range(0, *) as rest")
	require.NoError(t, err)

	// On a homopolymer run the exact four-base alignment at offset zero
	// must win over a truncated one-edit alignment at the same offset.
	res, err := prog.Match([]byte("AAAAA"))
	require.NoError(t, err)

	lead, _ := res.Capture("lead")
	assert.Equal(t, 0, lead.Len)

	site, _ := res.Capture("site")
	assert.Equal(t, 0, site.Start)
	assert.Equal(t, 4, site.Len)
	assert.Equal(t, 0, site.Edits)

	rest, _ := res.Capture("rest")
	assert.Equal(t, 4, rest.Start)
	assert.Equal(t, 1, rest.Len)
}

func TestMatchWildcardMaximumEnforced(t *testing.T) {
	prog, err := Compile("range(0, 2) as lead, literal(GGGG), range(0, *) as rest")
	require.NoError(t, err)

	_, err = prog.Match([]byte("TTTTGGGGAA"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoMatch))

	res, err := prog.Match([]byte("TTGGGGAA"))
	require.NoError(t, err)
	lead, _ := res.Capture("lead")
	assert.Equal(t, 2, lead.Len)
}

func TestMatchWildcardMinimumShiftsSearch(t *testing.T) {
	prog, err := Compile("range(3, 10) as lead, literal(AC) as probe, range(0, *) as rest")
	require.NoError(t, err)

	// AC at offset 1 is inside the wildcard minimum; the occurrence at 5
	// is the first legal placement.
	res, err := prog.Match([]byte("TACTTACGGG"))
	require.NoError(t, err)

	lead, _ := res.Capture("lead")
	assert.Equal(t, 5, lead.Len)
	probe, _ := res.Capture("probe")
	assert.Equal(t, 5, probe.Start)
}

func TestMatchAnchorResolvesWildcard(t *testing.T) {
	prog, err := Compile("range(0, *) as umi, anchor(5), literal(ACGT) as tag, range(0, *) as rest")
	require.NoError(t, err)

	res, err := prog.Match([]byte("GGGGGACGTTT"))
	require.NoError(t, err)

	umi, _ := res.Capture("umi")
	assert.Equal(t, 0, umi.Start)
	assert.Equal(t, 5, umi.Len)

	tag, _ := res.Capture("tag")
	assert.Equal(t, 5, tag.Start)
	assert.Equal(t, 4, tag.Len)
}

func TestMatchAnchorMismatch(t *testing.T) {
	prog, err := Compile("literal(ACGT), anchor(4)")
	require.NoError(t, err)

	// Anchor satisfied but trailing bytes remain uncovered.
	_, err = prog.Match([]byte("ACGTTT"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoMatch))
}

func TestMatchFullCoverageRequired(t *testing.T) {
	prog, err := Compile("literal(ACGT) as adapter")
	require.NoError(t, err)

	_, err = prog.Match([]byte("ACGTAA"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoMatch))

	res, err := prog.Match([]byte("ACGT"))
	require.NoError(t, err)
	assert.Len(t, res.Captures, 1)
}

func TestMatchTrailingOpenRangeAbsorbsRemainder(t *testing.T) {
	prog, err := Compile("literal(ACGT), range(0, *) as rest")
	require.NoError(t, err)

	res, err := prog.Match([]byte("ACGT")) // zero-length remainder
	require.NoError(t, err)
	rest, _ := res.Capture("rest")
	assert.Equal(t, 4, rest.Start)
	assert.Equal(t, 0, rest.Len)
}

func TestMatchDiscardedCaptureName(t *testing.T) {
	prog, err := Compile("range(4, 4) as _, literal(ACGT) as probe")
	require.NoError(t, err)

	res, err := prog.Match([]byte("TTTTACGT"))
	require.NoError(t, err)
	require.Len(t, res.Captures, 1)
	assert.Equal(t, "probe", res.Captures[0].Name)
}

func TestMatchReadTooShort(t *testing.T) {
	prog, err := Compile("range(6, 6) as barcode, range(0, *) as rest")
	require.NoError(t, err)

	_, err = prog.Match([]byte("ACGT"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoMatch))
}

func TestMatchVariableThenFixedWindow(t *testing.T) {
	prog, err := Compile("range(0, *) as lead, range(3, 3) as umi, literal(TTTT), range(0, *) as rest")
	require.NoError(t, err)

	res, err := prog.Match([]byte("ACGACGTTTTGG"))
	require.NoError(t, err)

	lead, _ := res.Capture("lead")
	assert.Equal(t, 0, lead.Start)
	assert.Equal(t, 3, lead.Len)
	umi, _ := res.Capture("umi")
	assert.Equal(t, 3, umi.Start)
	assert.Equal(t, 3, umi.Len)
	rest, _ := res.Capture("rest")
	assert.Equal(t, 10, rest.Start)
	assert.Equal(t, 2, rest.Len)
}

func TestProgramReuseAcrossGoroutines(t *testing.T) {
	prog, err := Compile("literal(AGCT, 1) as adapter, range(0, *) as insert")
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				res, err := prog.Match([]byte("AGCTACGTACGT"))
				if err != nil || len(res.Captures) != 2 {
					t.Error("concurrent match failed")
					return
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
