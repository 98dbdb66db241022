package clonotype

import (
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

var shared = []int{5, 10, 15, 20, 25}

func evaluatePair(t *testing.T, opts Opts, a, b []testChain, cellsA, cellsB []Cell) (JoinEvidence, JoinDecision) {
	var bld builder
	bld.add(cellsA, a...)
	bld.add(cellsB, b...)
	d := bld.build(t)
	require.Len(t, d.Infos, 2)
	return NewJoinContext(d, opts).Evaluate(0, 1)
}

func TestEvaluateClonal(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(1)))
	ev, decision := evaluatePair(t, testOpts(),
		[]testChain{l.heavy(shared...), l.light(shared...)},
		[]testChain{l.heavy(append(shared, 30)...), l.light(shared...)},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, decision, Accepted)
	expect.EQ(t, ev.Shares, 10)
	expect.EQ(t, ev.Indeps, 1)
	expect.EQ(t, ev.Diffs, 1)
	expect.EQ(t, ev.CDR3Diffs, 0)
	expect.EQ(t, ev.NRefs, 1)
	expect.EQ(t, ev.Mult, 1.0)
	expect.True(t, ev.P1 < 1e-6)
	expect.EQ(t, ev.Score, ev.P1)
	expect.False(t, ev.Err)
}

func TestEvaluateIndependentMutations(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(2)))
	b := l.heavy(shared...)
	// Both mutated at 40, to different bases.
	b.seq = shift(b.seq, 2, 40)
	a := l.heavy(shared...)
	a.seq = shift(a.seq, 1, 40)
	ev, decision := evaluatePair(t, testOpts(),
		[]testChain{a, l.light()}, []testChain{b, l.light()},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, decision, Accepted)
	expect.EQ(t, ev.Shares, 5)
	expect.EQ(t, ev.Indeps, 2)
}

func TestEvaluateNoInformation(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(3)))
	_, decision := evaluatePair(t, testOpts(),
		[]testChain{l.heavy(), l.light()}, []testChain{l.heavy(), l.light()},
		mkCells(0, 0, "a", 1), mkCells(0, 0, "b", 1))
	expect.EQ(t, decision, NotCompared)
}

func TestEvaluateOnesie(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(4)))
	_, decision := evaluatePair(t, testOpts(),
		[]testChain{l.heavy(shared...)}, []testChain{l.heavy(shared...), l.light()},
		mkCells(0, 0, "a", 1), mkCells(0, 0, "b", 1))
	expect.EQ(t, decision, NotCompared)
}

func TestEvaluateCDR3Multiplier(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(5)))
	b := l.heavy(30)
	b.cdr3 = string(mutate([]byte(l.hcdr3), 0, 1, 2))
	ev, decision := evaluatePair(t, testOpts(),
		[]testChain{l.heavy(), l.light()}, []testChain{b, l.light()},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, decision, Rejected)
	expect.EQ(t, ev.CDR3Diffs, 3)
	expect.EQ(t, ev.P1, 1.0)
	require.InDelta(t, 512000, ev.Mult, 1e-6)
	require.InDelta(t, 512000, ev.Score, 1e-6)

	// Enough shared mutations accept regardless of score.
	opts := testOpts()
	opts.MaxScore = 0
	opts.AutoShare = 10
	_, decision = evaluatePair(t, opts,
		[]testChain{l.heavy(shared...), l.light(shared...)}, []testChain{l.heavy(shared...), l.light(shared...)},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, decision, Accepted)
	opts.AutoShare = 11
	_, decision = evaluatePair(t, opts,
		[]testChain{l.heavy(shared...), l.light(shared...)}, []testChain{l.heavy(shared...), l.light(shared...)},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, decision, Rejected)

	opts = testOpts()
	opts.OldMult = true
	ev, _ = evaluatePair(t, opts,
		[]testChain{l.heavy(), l.light()}, []testChain{b, l.light()},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	// 1 + 252 + 252*251/2 + 252*251*250/6
	require.InDelta(t, 1+252+31626+2635500, ev.Mult, 1e-6)
}

func TestEvaluateJunctionConcentration(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(6)))
	b := l.heavy(append(shared, 30)...)
	b.cdr3 = string(mutate([]byte(l.hcdr3), 0, 1, 2, 3, 4))
	ev, decision := evaluatePair(t, testOpts(),
		[]testChain{l.heavy(shared...), l.light()}, []testChain{b, l.light()},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, ev.Indeps, 1)
	expect.EQ(t, decision, Rejected)
	expect.EQ(t, ev.P1, 0.0)
}

func TestEvaluateTCR(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(7)))
	opts := testOpts()
	opts.IsBCR = false
	b := l.heavy(shared...)
	b.cdr3 = string(mutate([]byte(l.hcdr3), 0))
	_, decision := evaluatePair(t, opts,
		[]testChain{l.heavy(shared...), l.light()}, []testChain{b, l.light()},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, decision, Rejected)

	// Identical CDR3s, but six tig mismatches exceed the TCR cap.
	_, decision = evaluatePair(t, opts,
		[]testChain{l.heavy(), l.light()}, []testChain{l.heavy(1, 2, 3, 4, 5, 6), l.light()},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, decision, NotCompared)
}

func TestEvaluateDonors(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(8)))
	a := []testChain{l.heavy(shared...), l.light()}
	b := []testChain{l.heavy(shared...), l.light(30)}
	_, decision := evaluatePair(t, testOpts(), a, b, mkCells(0, 0, "a", 2), mkCells(0, 1, "b", 2))
	expect.EQ(t, decision, Rejected)

	opts := testOpts()
	opts.MixDonors = true
	ev, decision := evaluatePair(t, opts, a, b, mkCells(0, 0, "a", 2), mkCells(0, 1, "b", 2))
	expect.EQ(t, decision, Accepted)
	expect.True(t, ev.Err)

	// Unknown donors never block a join, but the pair is flagged.
	ev, decision = evaluatePair(t, testOpts(), a, b, mkCells(0, NoDonor, "a", 2), mkCells(0, 1, "b", 2))
	expect.EQ(t, decision, Accepted)
	expect.True(t, ev.Err)
}

func TestEvaluateBarcodeOverlap(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(9)))
	cellsB := mkCells(1, 0, "b", 2)
	cellsB[1].Barcode = "a-0"
	_, decision := evaluatePair(t, testOpts(),
		[]testChain{l.heavy(shared...), l.light()}, []testChain{l.heavy(shared...), l.light(30)},
		mkCells(0, 0, "a", 2), cellsB)
	expect.EQ(t, decision, Rejected)
}

func TestEvaluateTwoReferences(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(10)))
	b := l.heavy(shared...)
	b.v = 9
	ev, decision := evaluatePair(t, testOpts(),
		[]testChain{l.heavy(shared...), l.light()}, []testChain{b, l.light(30)},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, decision, Accepted)
	expect.EQ(t, ev.NRefs, 2)

	// A germline that explains the two units very differently is not
	// trusted.
	b.germ = mutate(l.hgerm, 40, 41, 42)
	_, decision = evaluatePair(t, testOpts(),
		[]testChain{l.heavy(shared...), l.light()}, []testChain{b, l.light(30)},
		mkCells(0, 0, "a", 2), mkCells(0, 0, "b", 2))
	expect.EQ(t, decision, Rejected)
}
