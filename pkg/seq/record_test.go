package seq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqweave/seqweave/pkg/errors"
)

func TestNewRecord(t *testing.T) {
	r, err := NewRecord("read1", []byte("AGCTTT"), []byte("IIIIII"))
	require.NoError(t, err)

	assert.Equal(t, "read1", r.ID)
	assert.Equal(t, 6, r.Len())

	whole, ok := r.Region(WholeRead)
	require.True(t, ok)
	assert.Equal(t, 0, whole.Start)
	assert.Equal(t, 6, whole.Len)
	assert.Equal(t, OrientForward, whole.Orient)
}

func TestNewRecordQualityMismatch(t *testing.T) {
	_, err := NewRecord("read1", []byte("AGCT"), []byte("II"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestSetRegionAndSlice(t *testing.T) {
	r, err := NewRecord("read1", []byte("AGCTTTGGCC"), []byte("0123456789"))
	require.NoError(t, err)

	require.NoError(t, r.SetRegion("adapter", 0, 4, OrientForward, false))
	require.NoError(t, r.SetRegion("barcode", 4, 6, OrientForward, false))

	adapter, err := r.Slice("adapter")
	require.NoError(t, err)
	assert.Equal(t, []byte("AGCT"), adapter)

	qual, err := r.QualSlice("barcode")
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), qual)
}

func TestSetRegionOutOfBounds(t *testing.T) {
	r, err := NewRecord("read1", []byte("AGCT"), nil)
	require.NoError(t, err)

	err = r.SetRegion("bad", 2, 5, OrientForward, false)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestSetRegionOverlap(t *testing.T) {
	r, err := NewRecord("read1", []byte("AGCTTTGGCC"), nil)
	require.NoError(t, err)

	require.NoError(t, r.SetRegion("left", 0, 6, OrientForward, false))

	// Partial overlap is rejected without allowOverlap.
	err = r.SetRegion("straddle", 4, 4, OrientForward, false)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeOverlap))

	// The same range succeeds when the operator permits overlap.
	require.NoError(t, r.SetRegion("straddle", 4, 4, OrientForward, true))

	// Nesting inside an existing region is always permitted.
	require.NoError(t, r.SetRegion("inner", 1, 3, OrientForward, false))
}

func TestTrim(t *testing.T) {
	r, err := NewRecord("read1", []byte("AGCTTTGGCC"), nil)
	require.NoError(t, err)
	require.NoError(t, r.SetRegion("insert", 2, 6, OrientForward, false))

	reg, err := r.Trim("insert", 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Start)
	assert.Equal(t, 4, reg.Len)

	// Trimming to the current range is a no-op.
	again, err := r.Trim("insert", 3, 4)
	require.NoError(t, err)
	assert.Equal(t, reg, again)

	// Trimming never grows.
	_, err = r.Trim("insert", 2, 6)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestReverseComplement(t *testing.T) {
	r, err := NewRecord("read1", []byte("AACGTT"), nil)
	require.NoError(t, err)
	require.NoError(t, r.SetRegion("head", 0, 4, OrientForward, false))

	rc, err := r.ReverseComplement("head")
	require.NoError(t, err)
	assert.Equal(t, []byte("CGTT"), rc)

	// The whole-read reverse complement of a palindrome-free sequence.
	whole, err := r.ReverseComplement(WholeRead)
	require.NoError(t, err)
	assert.Equal(t, []byte("AACGTT"), whole)
}

func TestReverseOrientedSlice(t *testing.T) {
	r, err := NewRecord("read1", []byte("AACGTT"), []byte("012345"))
	require.NoError(t, err)
	require.NoError(t, r.SetRegion("tail", 2, 4, OrientReverse, false))

	s, err := r.Slice("tail")
	require.NoError(t, err)
	assert.Equal(t, []byte("AACG"), s)

	q, err := r.QualSlice("tail")
	require.NoError(t, err)
	assert.Equal(t, []byte("5432"), q)
}

func TestSliceNotFound(t *testing.T) {
	r, err := NewRecord("read1", []byte("AGCT"), nil)
	require.NoError(t, err)

	_, err = r.Slice("nope")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestTags(t *testing.T) {
	r, err := NewRecord("read1", []byte("AGCT"), nil)
	require.NoError(t, err)

	r.SetTag("sample", "s1")
	v, ok := r.Tag("sample")
	assert.True(t, ok)
	assert.Equal(t, "s1", v)

	_, ok = r.Tag("missing")
	assert.False(t, ok)
}

func TestClone(t *testing.T) {
	r, err := NewRecord("read1", []byte("AGCTTT"), nil)
	require.NoError(t, err)
	require.NoError(t, r.SetRegion("head", 0, 3, OrientForward, false))
	r.SetTag("k", "v")

	c := r.Clone()
	require.NoError(t, c.SetRegion("tail", 3, 3, OrientForward, false))
	c.SetTag("k", "other")

	_, ok := r.Region("tail")
	assert.False(t, ok, "clone regions must be independent")
	v, _ := r.Tag("k")
	assert.Equal(t, "v", v, "clone tags must be independent")
}

func TestAdoptCommitsTrialClone(t *testing.T) {
	r, err := NewRecord("read1", []byte("AGCTTT"), nil)
	require.NoError(t, err)

	c := r.Clone()
	require.NoError(t, c.SetRegion("head", 0, 3, OrientForward, false))
	c.SetTag("k", "v")
	// Written after the clone, so it exists only on the original.
	r.SetTag("stale", "1")

	r.Adopt(c)

	head, ok := r.Region("head")
	require.True(t, ok)
	assert.Equal(t, 3, head.Len)
	v, _ := r.Tag("k")
	assert.Equal(t, "v", v)
	_, ok = r.Tag("stale")
	assert.False(t, ok, "adopt replaces the tag table")
}

func TestRecordPool(t *testing.T) {
	r, err := FromPool("read1", []byte("AGCT"), nil)
	require.NoError(t, err)
	require.NoError(t, r.SetRegion("head", 0, 2, OrientForward, false))
	r.Release()

	r2, err := FromPool("read2", []byte("TTTT"), nil)
	require.NoError(t, err)
	_, ok := r2.Region("head")
	assert.False(t, ok, "pooled records must come back clean")
	whole, ok := r2.Region(WholeRead)
	require.True(t, ok)
	assert.Equal(t, 4, whole.Len)
	r2.Release()
}

func TestRevComp(t *testing.T) {
	assert.Equal(t, []byte("NACGT"), RevComp([]byte("ACGTN")))
	assert.Nil(t, RevComp(nil))
	// lowercase input complements through the uppercase table
	assert.Equal(t, []byte("ACGT"), RevComp([]byte("acgt")))
}
