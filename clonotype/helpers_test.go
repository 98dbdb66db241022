package clonotype

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

var bases = []byte("ACGT")

func randSeq(r *rand.Rand, n int) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = bases[r.Intn(4)]
	}
	return s
}

func baseIndex(b byte) int {
	for i, x := range bases {
		if x == b {
			return i
		}
	}
	panic(b)
}

// mutate returns a copy of seq with each base at pos shifted by one.
func mutate(seq []byte, pos ...int) []byte {
	return shift(seq, 1, pos...)
}

func shift(seq []byte, by int, pos ...int) []byte {
	s := append([]byte(nil), seq...)
	for _, p := range pos {
		s[p] = bases[(baseIndex(s[p])+by)%4]
	}
	return s
}

type testChain struct {
	left bool
	germ []byte
	seq  []byte
	cdr3 string
	v, j int
}

func (c testChain) chain() Chain {
	typ := "IGK"
	if c.left {
		typ = "IGH"
	}
	return Chain{
		ChainType: typ,
		VGene:     c.v,
		JGene:     c.j,
		CDR3AA:    c.cdr3,
		CDR3:      c.cdr3,
		Seq:       c.seq,
		Left:      c.left,
		UMICount:  1,
	}
}

func mkCells(dataset, donor int, prefix string, n int) []Cell {
	cells := make([]Cell, n)
	for i := range cells {
		cells[i] = Cell{Dataset: dataset, Donor: donor, Barcode: fmt.Sprintf("%s-%d", prefix, i), UMICount: 10}
	}
	return cells
}

// builder assembles a Dataset.  Onesies get one join unit; other
// subclonotypes get one unit per (left, right) chain pair.
type builder struct {
	exacts []ExactSubclonotype
	germs  [][][]byte
}

func (b *builder) add(cells []Cell, chains ...testChain) SubclonotypeID {
	ex := ExactSubclonotype{Cells: cells}
	var germs [][]byte
	for _, c := range chains {
		ex.Chains = append(ex.Chains, c.chain())
		germs = append(germs, c.germ)
	}
	b.exacts = append(b.exacts, ex)
	b.germs = append(b.germs, germs)
	return SubclonotypeID(len(b.exacts) - 1)
}

func (b *builder) build(t *testing.T) *Dataset {
	var infos []CloneInfo
	for s := range b.exacts {
		ex := &b.exacts[s]
		id := SubclonotypeID(s)
		if ex.IsOnesie() {
			infos = append(infos, NewCloneInfo(ex, id, []int{0}, [][]byte{b.germs[s][0]}))
			continue
		}
		for l, lc := range ex.Chains {
			if !lc.Left {
				continue
			}
			for r, rc := range ex.Chains {
				if rc.Left {
					continue
				}
				infos = append(infos, NewCloneInfo(ex, id, []int{l, r}, [][]byte{b.germs[s][l], b.germs[s][r]}))
			}
		}
	}
	d, err := NewDataset(b.exacts, infos)
	require.NoError(t, err)
	return d
}

// lineage is a germline pair with a CDR3 per chain, from which clonal
// and unrelated chains are derived.
type lineage struct {
	hgerm, lgerm []byte
	hcdr3, lcdr3 string
}

func newLineage(r *rand.Rand) lineage {
	return lineage{
		hgerm: randSeq(r, 60),
		lgerm: randSeq(r, 60),
		hcdr3: string(randSeq(r, 42)),
		lcdr3: string(randSeq(r, 42)),
	}
}

// heavy returns the left chain mutated at pos.
func (l lineage) heavy(pos ...int) testChain {
	return testChain{left: true, germ: l.hgerm, seq: mutate(l.hgerm, pos...), cdr3: l.hcdr3, v: 1, j: 2}
}

// light returns the right chain mutated at pos.
func (l lineage) light(pos ...int) testChain {
	return testChain{germ: l.lgerm, seq: mutate(l.lgerm, pos...), cdr3: l.lcdr3, v: 3, j: 4}
}

// checkPartition verifies that orbits partition the join units of d.
func checkPartition(t *testing.T, d *Dataset, orbits []Orbit) {
	seen := make([]int, len(d.Infos))
	for _, o := range orbits {
		require.NotEmpty(t, o)
		for _, id := range o {
			seen[id]++
		}
	}
	for i, n := range seen {
		require.Equalf(t, 1, n, "join unit %d", i)
	}
}

// orbitBarcodes returns the barcodes of each orbit's cells.
func orbitBarcodes(d *Dataset, orbits []Orbit) [][]string {
	var out [][]string
	for _, o := range orbits {
		var bcs []string
		for _, s := range d.orbitExacts(o) {
			for _, c := range d.Exacts[s].Cells {
				bcs = append(bcs, c.Barcode)
			}
		}
		out = append(out, bcs)
	}
	return out
}

func testOpts() Opts {
	opts := DefaultOpts
	opts.Parallelism = 2
	return opts
}
