package clonotype

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/grailbio/clonotype/equiv"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

// onesieDataset has a large two-chain subclonotype X, a three-cell onesie O
// carrying X's heavy chain, and two onesies that never qualify for
// disintegration: P with one cell and Q with too many cells.
func onesieDataset(t *testing.T, donorO int) *Dataset {
	r := rand.New(rand.NewSource(1))
	l, l2 := newLineage(r), newLineage(r)
	var b builder
	b.add(mkCells(0, 0, "x", 3001), l.heavy(shared...), l.light(shared...))
	b.add(mkCells(0, donorO, "o", 3), l.heavy(shared...))
	b.add(mkCells(0, 0, "p", 1), l2.heavy(1))
	b.add(mkCells(0, 0, "q", 4), l2.heavy(2))
	return b.build(t)
}

func TestDisintegrate(t *testing.T) {
	d := onesieDataset(t, 0)
	d.JoinLog = []JoinLogEntry{{A: 1, B: 0}, {A: 2, B: 3}}
	d.RawJoins = []RawJoin{{0, 1}}
	p := equiv.New(len(d.Infos))

	p2, n := Disintegrate(d, p, testOpts())
	expect.EQ(t, n, 1)
	require.Len(t, d.Exacts, 6)
	require.Len(t, d.Infos, 6)
	expect.EQ(t, d.Disintegrated, []bool{false, true, true, true, false, false})
	for s := 1; s <= 3; s++ {
		ex := &d.Exacts[s]
		expect.EQ(t, ex.NumCells(), 1)
		expect.True(t, ex.IsOnesie())
		expect.EQ(t, d.Infos[s].Subclonotype, SubclonotypeID(s))
		expect.EQ(t, d.Infos[s].Origin, []int{0})
	}
	expect.EQ(t, d.Exacts[4].Cells[0].Barcode, "p-0")
	expect.EQ(t, d.JoinLog, []JoinLogEntry{{A: 1, B: 0}, {A: 2, B: 0}, {A: 3, B: 0}, {A: 4, B: 5}})
	expect.EQ(t, d.RawJoins, []RawJoin{{0, 1}})
	expect.EQ(t, p2.N(), 6)
	expect.EQ(t, p2.NumOrbits(), 6)
	expect.EQ(t, d.TotalCells(), 3009)

	// Disintegrated onesies are not split again.
	p3, n := Disintegrate(d, p2, testOpts())
	expect.EQ(t, n, 0)
	expect.EQ(t, p3, p2)
}

func TestDisintegrateDisabled(t *testing.T) {
	d := onesieDataset(t, 0)
	opts := testOpts()
	opts.WeakOnesies = false
	_, n := Disintegrate(d, equiv.New(len(d.Infos)), opts)
	expect.EQ(t, n, 0)
	expect.EQ(t, len(d.Exacts), 4)
}

func TestDisintegratePreservesClasses(t *testing.T) {
	d := onesieDataset(t, 0)
	p := equiv.New(len(d.Infos))
	// P and Q are joined, so only O qualifies.
	p.Join(2, 3)
	p2, n := Disintegrate(d, p, testOpts())
	expect.EQ(t, n, 1)
	expect.True(t, p2.Equivalent(4, 5))
	expect.EQ(t, p2.NumOrbits(), 5)
}

func xOrbitBarcodes(d *Dataset, orbits []Orbit) []string {
	for i, o := range orbits {
		for _, id := range o {
			if d.Infos[id].Subclonotype == 0 {
				bcs := orbitBarcodes(d, orbits[i:i+1])[0]
				sort.Strings(bcs)
				return bcs
			}
		}
	}
	return nil
}

func TestDisintegrateMergeRoundTrip(t *testing.T) {
	// Merging the onesie whole.
	d := onesieDataset(t, 0)
	opts := testOpts()
	opts.WeakOnesies = false
	opts.MergeOnesiesCtl = false
	orbits, n := MergeOnesies(d, OrbitsOf(equiv.New(len(d.Infos))), opts)
	expect.EQ(t, n, 1)
	checkPartition(t, d, orbits)
	want := xOrbitBarcodes(d, orbits)
	require.Len(t, want, 3004)
	wantDonors := d.orbitDonors(orbits[0])

	// Disintegrating, then merging each cell.
	d = onesieDataset(t, 0)
	opts = testOpts()
	p, _ := Disintegrate(d, equiv.New(len(d.Infos)), opts)
	orbits, n = MergeOnesies(d, OrbitsOf(p), opts)
	expect.EQ(t, n, 3)
	checkPartition(t, d, orbits)
	expect.EQ(t, xOrbitBarcodes(d, orbits), want)
	expect.EQ(t, d.orbitDonors(orbits[0]), wantDonors)
	expect.EQ(t, len(orbits), 3)
}

func TestMergeOnesiesDonors(t *testing.T) {
	d := onesieDataset(t, 1)
	orbits, n := MergeOnesies(d, OrbitsOf(equiv.New(len(d.Infos))), testOpts())
	expect.EQ(t, n, 0)
	expect.EQ(t, len(orbits), 4)

	opts := testOpts()
	opts.MixDonors = true
	_, n = MergeOnesies(d, OrbitsOf(equiv.New(len(d.Infos))), opts)
	expect.EQ(t, n, 1)
}

func TestMergeOnesiesUnknownDonors(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(2)))
	var b builder
	b.add(mkCells(0, NoDonor, "x", 5), l.heavy(shared...), l.light())
	b.add(mkCells(0, NoDonor, "o", 1), l.light())
	d := b.build(t)
	orbits, n := MergeOnesies(d, OrbitsOf(equiv.New(len(d.Infos))), testOpts())
	expect.EQ(t, n, 1)
	expect.EQ(t, orbits, []Orbit{{0, 1}})
}

func TestMergeOnesiesAmbiguous(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	l1, l2 := newLineage(r), newLineage(r)
	heavy := l1.heavy(shared...)
	var b builder
	b.add(mkCells(0, 0, "y", 5), heavy, l1.light())
	b.add(mkCells(0, 0, "z", 5), heavy, l2.light())
	b.add(mkCells(0, 0, "o", 1), heavy)
	d := b.build(t)
	orbits, n := MergeOnesies(d, OrbitsOf(equiv.New(len(d.Infos))), testOpts())
	expect.EQ(t, n, 0)
	expect.EQ(t, orbits, []Orbit{{0}, {1}, {2}})

	// Once the two carriers are one orbit, the match is unambiguous.
	orbits, n = MergeOnesies(d, []Orbit{{0, 1}, {2}}, testOpts())
	expect.EQ(t, n, 1)
	expect.EQ(t, orbits, []Orbit{{0, 1, 2}})
}

func TestMergeOnesiesNegligible(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(4)))
	var b builder
	b.add(mkCells(0, 0, "x", 10001), l.heavy(shared...), l.light())
	b.add(mkCells(0, 0, "o", 1), l.heavy(shared...))
	d := b.build(t)
	_, n := MergeOnesies(d, OrbitsOf(equiv.New(len(d.Infos))), testOpts())
	expect.EQ(t, n, 0)

	opts := testOpts()
	opts.MergeOnesiesCtl = false
	_, n = MergeOnesies(d, OrbitsOf(equiv.New(len(d.Infos))), opts)
	expect.EQ(t, n, 1)

	opts.MergeOnesies = false
	_, n = MergeOnesies(d, OrbitsOf(equiv.New(len(d.Infos))), opts)
	expect.EQ(t, n, 0)
}

func TestMergeOnesiesChainClass(t *testing.T) {
	l := newLineage(rand.New(rand.NewSource(5)))
	heavy := l.heavy(shared...)
	// A right chain with the sequence of x's heavy chain.
	right := heavy
	right.left = false
	for _, test := range []struct {
		onesie testChain
		merged int
	}{
		{heavy, 1},
		{right, 0},
	} {
		var b builder
		b.add(mkCells(0, 0, "x", 5), heavy, l.light())
		b.add(mkCells(0, 0, "o", 1), test.onesie)
		d := b.build(t)
		orbits, n := MergeOnesies(d, OrbitsOf(equiv.New(len(d.Infos))), testOpts())
		expect.EQ(t, n, test.merged)
		expect.EQ(t, len(orbits), 2-test.merged)
	}
}
