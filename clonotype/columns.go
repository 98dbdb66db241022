package clonotype

import (
	"sort"

	"github.com/grailbio/clonotype/equiv"
)

// rawJoinIndex lists, for each join unit, the units it was joined to.
type rawJoinIndex [][]InfoID

func newRawJoinIndex(d *Dataset) rawJoinIndex {
	x := make(rawJoinIndex, len(d.Infos))
	for _, j := range d.RawJoins {
		x[j.A] = append(x[j.A], j.B)
		x[j.B] = append(x[j.B], j.A)
	}
	return x
}

// orbitMatrix aligns the chains of the subclonotypes of an orbit into
// columns.
type orbitMatrix struct {
	exacts []SubclonotypeID
	// mat[col][u] is the index in exacts[u].Chains of the chain in column
	// col, or -1.
	mat  [][]int
	left []bool
}

func (m *orbitMatrix) ncols() int { return len(m.mat) }

// colCells returns the # of cells of subclonotypes with a chain in col.
func (m *orbitMatrix) colCells(d *Dataset, col int) int {
	n := 0
	for u, c := range m.mat[col] {
		if c >= 0 {
			n += d.Exacts[m.exacts[u]].NumCells()
		}
	}
	return n
}

// newOrbitMatrix computes the columns of o.  Two chains share a column if
// they are tigs at the same position of raw-joined units, or have identical
// sequences and class.  Left columns come first.  If one subclonotype has k
// chains in one group, the group spans k columns.
func newOrbitMatrix(d *Dataset, raw rawJoinIndex, o Orbit) orbitMatrix {
	m := orbitMatrix{exacts: d.orbitExacts(o)}
	pos := make(map[SubclonotypeID]int, len(m.exacts))
	offset := make([]int, len(m.exacts)+1)
	for u, s := range m.exacts {
		pos[s] = u
		offset[u+1] = offset[u] + len(d.Exacts[s].Chains)
	}
	node := func(u, c int) int { return offset[u] + c }
	eq := equiv.New(offset[len(m.exacts)])

	inOrbit := make(map[InfoID]bool, len(o))
	for _, id := range o {
		inOrbit[id] = true
	}
	for _, a := range o {
		ia := &d.Infos[a]
		ua := pos[ia.Subclonotype]
		for _, b := range raw[a] {
			if !inOrbit[b] {
				continue
			}
			ib := &d.Infos[b]
			ub := pos[ib.Subclonotype]
			for t := 0; t < len(ia.ExactCols) && t < len(ib.ExactCols); t++ {
				eq.Join(node(ua, ia.ExactCols[t]), node(ub, ib.ExactCols[t]))
			}
		}
	}
	type seqClass struct {
		seq  string
		left bool
	}
	first := map[seqClass]int{}
	for u, s := range m.exacts {
		for c, ch := range d.Exacts[s].Chains {
			k := seqClass{string(ch.Seq), ch.Left}
			if n, ok := first[k]; ok {
				eq.Join(n, node(u, c))
			} else {
				first[k] = node(u, c)
			}
		}
	}

	type group struct {
		members []int
		left    bool
		cdr3    string
		// mult is the largest # of chains of one subclonotype in the group.
		mult int
	}
	var groups []group
	for _, members := range eq.Orbits() {
		g := group{members: members}
		counts := map[int]int{}
		for i, n := range members {
			u := sort.Search(len(m.exacts), func(u int) bool { return offset[u+1] > n })
			ch := &d.Exacts[m.exacts[u]].Chains[n-offset[u]]
			if ch.Left {
				g.left = true
			}
			if i == 0 || ch.CDR3AA < g.cdr3 {
				g.cdr3 = ch.CDR3AA
			}
			counts[u]++
			if counts[u] > g.mult {
				g.mult = counts[u]
			}
		}
		groups = append(groups, g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].left != groups[j].left {
			return groups[i].left
		}
		if groups[i].cdr3 != groups[j].cdr3 {
			return groups[i].cdr3 < groups[j].cdr3
		}
		return groups[i].members[0] < groups[j].members[0]
	})
	for _, g := range groups {
		cols := make([][]int, g.mult)
		for k := range cols {
			cols[k] = make([]int, len(m.exacts))
			for u := range cols[k] {
				cols[k][u] = -1
			}
		}
		next := map[int]int{}
		for _, n := range g.members {
			u := sort.Search(len(m.exacts), func(u int) bool { return offset[u+1] > n })
			cols[next[u]][u] = n - offset[u]
			next[u]++
		}
		for _, col := range cols {
			m.mat = append(m.mat, col)
			m.left = append(m.left, g.left)
		}
	}
	return m
}
