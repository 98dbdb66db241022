package clonotype

import (
	"math"
	"sort"

	"github.com/grailbio/clonotype/stats"
)

// cdr3Identity is the minimum percent CDR3 nucleotide identity of BCR join
// candidates.
const cdr3Identity = 85.0

// JoinEvidence summarizes the comparison of two join units.
type JoinEvidence struct {
	// Shares counts positions where both units carry the same non-germline
	// base.
	Shares int
	// Indeps counts independent mutations: one per position mutated in one
	// unit only, two per position mutated differently in both.
	Indeps int
	// Diffs counts mismatches between the two units' tigs.
	Diffs int
	// CDR3Diffs counts CDR3 nucleotide mismatches.
	CDR3Diffs int
	// NRefs is 2 if the units were called against different germlines.
	NRefs int
	// P1 is the probability that Indeps+2*Shares draws from 3*(tig length)
	// objects yield at least Shares duplicates.
	P1   float64
	Mult float64
	// Score = P1*Mult.  Lower is stronger evidence.
	Score float64
	// Err is set when the donor assignments show the pair cannot be
	// clonal.  It is used only to estimate the false join rate.
	Err bool
}

// JoinDecision is the outcome of Evaluate.
type JoinDecision int

const (
	// NotCompared means the pair is not a join candidate.
	NotCompared JoinDecision = iota
	// Rejected means the pair was scored and rejected.
	Rejected
	// Accepted means the pair was scored and accepted.
	Accepted
)

// JoinContext holds read-only state shared by join workers.
type JoinContext struct {
	data *Dataset
	opts Opts
	sr   *stats.StirlingRatioTable
	// barcodes[s] lists the sorted distinct barcodes of subclonotype s.
	barcodes [][]string
	// donors[s] lists the known donors of subclonotype s.
	donors [][]int
}

// NewJoinContext creates a JoinContext for d.
func NewJoinContext(d *Dataset, opts Opts) *JoinContext {
	c := &JoinContext{
		data:     d,
		opts:     opts,
		barcodes: make([][]string, len(d.Exacts)),
		donors:   make([][]int, len(d.Exacts)),
	}
	for s := range d.Exacts {
		ex := &d.Exacts[s]
		bcs := make([]string, len(ex.Cells))
		for i, cell := range ex.Cells {
			bcs[i] = cell.Barcode
		}
		sort.Strings(bcs)
		n := 0
		for i, bc := range bcs {
			if i == 0 || bc != bcs[n-1] {
				bcs[n] = bc
				n++
			}
		}
		c.barcodes[s] = bcs[:n]
		c.donors[s] = ex.Donors()
	}
	maxLen := 0
	for i := range d.Infos {
		n := 0
		for _, l := range d.Infos[i].Lens {
			n += l
		}
		if n > maxLen {
			maxLen = n
		}
	}
	c.sr = stats.NewStirlingRatioTable(2 * maxLen)
	return c
}

func isACGT(b byte) bool {
	return b == 'A' || b == 'C' || b == 'G' || b == 'T'
}

// Evaluate compares join units a and b.
func (c *JoinContext) Evaluate(a, b InfoID) (JoinEvidence, JoinDecision) {
	var (
		ev     JoinEvidence
		info1  = &c.data.Infos[a]
		info2  = &c.data.Infos[b]
		s1, s2 = info1.Subclonotype, info2.Subclonotype
		ex1    = &c.data.Exacts[s1]
		ex2    = &c.data.Exacts[s2]
	)
	if len(ex1.Chains) < 2 || len(ex1.Chains) > 3 || len(ex2.Chains) < 2 || len(ex2.Chains) > 3 {
		return ev, NotCompared
	}
	if len(info1.Tigs) != 2 || len(info2.Tigs) != 2 {
		return ev, NotCompared
	}
	chain1 := func(m int) *Chain { return &ex1.Chains[info1.ExactCols[m]] }
	chain2 := func(m int) *Chain { return &ex2.Chains[info2.ExactCols[m]] }
	for m := range info1.Tigs {
		if len(chain1(m).CDR3) != len(chain2(m).CDR3) || len(info1.Tigs[m]) != len(info2.Tigs[m]) {
			return ev, NotCompared
		}
		if chain1(m).Left != chain2(m).Left {
			return ev, NotCompared
		}
	}
	for m := range info1.Tigs {
		t1, t2 := info1.Tigs[m], info2.Tigs[m]
		for p := range t1 {
			if t1[p] != t2[p] {
				ev.Diffs++
			}
		}
	}
	if ev.Diffs > c.opts.MaxDiffs || (!c.opts.IsBCR && ev.Diffs > tcrMaxDiffs) {
		return ev, NotCompared
	}

	// Junction differences.
	var (
		cdPerChain = make([]int, len(info1.Tigs))
		cdr3Len    int
	)
	for m := range info1.Tigs {
		x1, x2 := chain1(m).CDR3, chain2(m).CDR3
		for p := 0; p < len(x1); p++ {
			if x1[p] != x2[p] {
				cdPerChain[m]++
			}
		}
		ev.CDR3Diffs += cdPerChain[m]
		cdr3Len += len(x1)
	}
	if c.opts.IsBCR && cdr3Len > 0 && float64(ev.CDR3Diffs)/float64(cdr3Len) > 1-cdr3Identity/100 {
		return ev, Rejected
	}
	if !c.opts.IsBCR && ev.CDR3Diffs > 0 {
		return ev, Rejected
	}

	donors1, donors2 := c.donors[s1], c.donors[s2]
	sameDonors := equalInts(donors1, donors2)
	if !c.opts.MixDonors && len(donors1) > 0 && len(donors2) > 0 && !sameDonors {
		return ev, Rejected
	}
	ev.Err = !sameDonors || len(donors1) != 1 || len(donors2) != 1

	// Mutations relative to the germline.  If the two units were called
	// against different germlines, both are tried and the weaker evidence
	// is kept.
	ev.NRefs = 1
	for m := range info1.Tigs {
		if chain1(m).VGene != chain2(m).VGene || chain1(m).JGene != chain2(m).JGene {
			ev.NRefs = 2
		}
	}
	var (
		shares = make([]int, ev.NRefs)
		indeps = make([]int, ev.NRefs)
		total  = make([][2]int, ev.NRefs)
	)
	for u := 0; u < ev.NRefs; u++ {
		info := info1
		if u == 1 {
			info = info2
		}
		for m := range info1.Tigs {
			t1, t2, g := info1.Tigs[m], info2.Tigs[m], info.Germlines[m]
			for p := 0; p < len(t1) && p < len(g); p++ {
				r := g[p]
				if !isACGT(r) {
					continue
				}
				switch {
				case t1[p] == t2[p] && t1[p] != r:
					shares[u]++
				case t1[p] != t2[p] && (t1[p] == r || t2[p] == r):
					indeps[u]++
				case t1[p] != r && t2[p] != r:
					indeps[u] += 2
				}
				if t1[p] != r {
					total[u][0]++
				}
				if t2[p] != r {
					total[u][1]++
				}
			}
		}
	}
	if ev.NRefs == 2 {
		for m := 0; m < 2; m++ {
			if absInt(total[0][m]-total[1][m]) > c.opts.MaxDegradation {
				return ev, Rejected
			}
		}
	}
	ev.Shares, ev.Indeps = minInt(shares), minInt(indeps)
	if ev.Shares == 0 && ev.Indeps == 0 {
		return ev, NotCompared
	}

	if intersectsStrings(c.barcodes[s1], c.barcodes[s2]) {
		return ev, Rejected
	}
	// Mutations concentrated in the junction suggest unrelated
	// rearrangements.
	if float64(ev.CDR3Diffs) >= c.opts.CDR3Mult*float64(maxOf(1, ev.Indeps)) {
		return ev, Rejected
	}

	n := 0
	for _, t := range info1.Tigs {
		n += len(t)
	}
	n *= 3
	k := ev.Indeps + 2*ev.Shares
	ev.P1 = c.sr.PAtMostMDistinct(k-ev.Shares, k, n)

	if c.opts.OldMult {
		ev.Mult = 1
		if cdr3Len > 0 {
			ev.Mult = stats.PartialBernoulliSum(3*cdr3Len, ev.CDR3Diffs)
		}
	} else {
		ev.Mult = 1
		for m := range info1.Tigs {
			if l := len(chain1(m).CDR3); l > 0 {
				ev.Mult *= math.Pow(c.opts.MultPow, float64(c.opts.CDR3NormalLen)*float64(cdPerChain[m])/float64(l))
			}
		}
	}
	ev.Score = ev.P1 * ev.Mult
	if ev.Score > c.opts.MaxScore && ev.Shares < c.opts.AutoShare {
		return ev, Rejected
	}
	return ev, Accepted
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intersectsStrings(a, b []string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			return true
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return false
}

func minInt(v []int) int {
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
