package clonotype

import (
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
)

// signature lists the columns of m occupied by m.exacts[u].
func (m *orbitMatrix) signature(u int) []int {
	var cols []int
	for col := range m.mat {
		if m.mat[col][u] >= 0 {
			cols = append(cols, col)
		}
	}
	return cols
}

func signatureKey(cols []int) string {
	s := make([]string, len(cols))
	for i, c := range cols {
		s[i] = strconv.Itoa(c)
	}
	return strings.Join(s, ",")
}

// pureSubclonotypes splits every orbit into groups of subclonotypes that
// occupy the same columns.
func pureSubclonotypes(d *Dataset, orbits []Orbit, opts Opts) ([][]SubclonotypeID, error) {
	raw := newRawJoinIndex(d)
	groups := make([][][]SubclonotypeID, len(orbits))
	err := forEachOrbit(opts, len(orbits), func(i int) {
		m := newOrbitMatrix(d, raw, orbits[i])
		index := map[string]int{}
		var keys []string
		var pures [][]SubclonotypeID
		for u, s := range m.exacts {
			k := signatureKey(m.signature(u))
			p, ok := index[k]
			if !ok {
				p = len(pures)
				index[k] = p
				keys = append(keys, k)
				pures = append(pures, nil)
			}
			pures[p] = append(pures[p], s)
		}
		order := make([]int, len(pures))
		for p := range order {
			order[p] = p
		}
		sort.Slice(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })
		for _, p := range order {
			groups[i] = append(groups[i], pures[p])
		}
	})
	if err != nil {
		return nil, err
	}
	var pures [][]SubclonotypeID
	for _, g := range groups {
		pures = append(pures, g...)
	}
	return pures, nil
}

// FindDoublets is the default DoubletFinder.  It groups the subclonotypes
// of each orbit into pure groups, and links two groups if they share a CDR3
// nucleotide sequence.  A group u is a doublet if two groups v1 and v2,
// each with at least MinMultDoublet times the cells of u, are linked to u
// but not to each other.
func FindDoublets(d *Dataset, orbits []Orbit, opts Opts) ([]SubclonotypeID, error) {
	pures, err := pureSubclonotypes(d, orbits, opts)
	if err != nil {
		return nil, err
	}
	ncells := make([]int, len(pures))
	byCDR3 := map[string][]int{}
	for p, ss := range pures {
		for _, s := range ss {
			ex := &d.Exacts[s]
			ncells[p] += ex.NumCells()
			for _, c := range ex.Chains {
				ps := byCDR3[c.CDR3]
				if n := len(ps); n == 0 || ps[n-1] != p {
					byCDR3[c.CDR3] = append(ps, p)
				}
			}
		}
	}
	type pair struct{ a, b int }
	shares := map[pair]bool{}
	linked := make([][]int, len(pures))
	for _, ps := range byCDR3 {
		for i, a := range ps {
			for _, b := range ps[i+1:] {
				if !shares[pair{a, b}] {
					shares[pair{a, b}], shares[pair{b, a}] = true, true
					linked[a] = append(linked[a], b)
					linked[b] = append(linked[b], a)
				}
			}
		}
	}
	var ids []SubclonotypeID
	for u := range pures {
		var vs []int
		for _, v := range linked[u] {
			if MinMultDoublet*ncells[u] <= ncells[v] {
				vs = append(vs, v)
			}
		}
		doublet := false
		for i := 0; i < len(vs) && !doublet; i++ {
			for _, v2 := range vs[i+1:] {
				if !shares[pair{vs[i], v2}] {
					doublet = true
					break
				}
			}
		}
		if doublet {
			log.Debug.Printf("doublet: subclonotypes %v (%d cells)", pures[u], ncells[u])
			ids = append(ids, pures[u]...)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SignatureFilter deletes, in each orbit, the subclonotypes whose
// signature has at least two columns and is dwarfed by the two-column
// signatures it overlaps: their cells together exceed SignatureMult times
// the cells of the signature.  The cells are recorded in d.Fate.  It does
// nothing unless opts.Signature is set.  It returns the new orbits and the
// # of subclonotypes and cells deleted.
func SignatureFilter(d *Dataset, orbits []Orbit, opts Opts) ([]Orbit, int, int, error) {
	if !opts.Signature {
		return orbits, 0, 0, nil
	}
	raw := newRawJoinIndex(d)
	dels := make([][]SubclonotypeID, len(orbits))
	err := forEachOrbit(opts, len(orbits), func(i int) {
		m := newOrbitMatrix(d, raw, orbits[i])
		type sig struct {
			cols  []int
			cells int
		}
		var (
			sigs  []sig
			index = map[string]int{}
			of    = make([]int, len(m.exacts))
		)
		for u, s := range m.exacts {
			of[u] = -1
			cols := m.signature(u)
			if len(cols) < 2 {
				continue
			}
			k := signatureKey(cols)
			j, ok := index[k]
			if !ok {
				j = len(sigs)
				index[k] = j
				sigs = append(sigs, sig{cols: cols})
			}
			sigs[j].cells += d.Exacts[s].NumCells()
			of[u] = j
		}
		del := make([]bool, len(sigs))
		for a := range sigs {
			n2 := 0
			for b := range sigs {
				if b != a && len(sigs[b].cols) == 2 && intersects(sigs[a].cols, sigs[b].cols) {
					n2 += sigs[b].cells
				}
			}
			del[a] = n2 > SignatureMult*sigs[a].cells
		}
		for u, s := range m.exacts {
			if of[u] >= 0 && del[of[u]] {
				dels[i] = append(dels[i], s)
			}
		}
	})
	if err != nil {
		return nil, 0, 0, err
	}
	var (
		del           = make([]bool, len(d.Exacts))
		nexact, ncell int
	)
	for _, ss := range dels {
		for _, s := range ss {
			if del[s] {
				continue
			}
			del[s] = true
			nexact++
			ncell += d.Exacts[s].NumCells()
			d.Fate.recordCells(&d.Exacts[s], FateSignature, true)
		}
	}
	log.Printf("signature: %d subclonotypes, %d cells", nexact, ncell)
	if nexact == 0 {
		return orbits, 0, 0, nil
	}
	return d.deleteExacts(orbits, del), nexact, ncell, nil
}
