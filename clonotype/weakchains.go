package clonotype

import (
	"github.com/grailbio/base/log"
)

// isWeakColumn checks if a column holding n of total cells is too poorly
// supported to be trusted.
func isWeakColumn(n, total int) bool {
	return n <= WeakChainMaxCells && WeakChainRatio*n < total
}

// WeakChains finds, in each orbit with more than two columns, the columns
// that hold at most WeakChainMaxCells cells and less than 1/WeakChainRatio
// of the orbit's cells.  The cells of every subclonotype with a chain in
// such a column are recorded in d.Fate.  If opts.WeakChains is set the
// subclonotypes are also deleted from d; otherwise their cells only get a
// note.  It returns the new orbits and the
// # of subclonotypes and cells that failed.
func WeakChains(d *Dataset, orbits []Orbit, opts Opts) ([]Orbit, int, int, error) {
	raw := newRawJoinIndex(d)
	weak := make([][]SubclonotypeID, len(orbits))
	err := forEachOrbit(opts, len(orbits), func(i int) {
		m := newOrbitMatrix(d, raw, orbits[i])
		if m.ncols() <= 2 {
			return
		}
		total := 0
		for _, s := range m.exacts {
			total += d.Exacts[s].NumCells()
		}
		marked := make([]bool, len(m.exacts))
		for col := range m.mat {
			if !isWeakColumn(m.colCells(d, col), total) {
				continue
			}
			for u, c := range m.mat[col] {
				if c >= 0 {
					marked[u] = true
				}
			}
		}
		for u, s := range m.exacts {
			if marked[u] {
				weak[i] = append(weak[i], s)
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
	for _, ss := range weak {
		for _, s := range ss {
			if del[s] {
				continue
			}
			del[s] = true
			nexact++
			ncell += d.Exacts[s].NumCells()
			d.Fate.recordCells(&d.Exacts[s], FateWeakChains, opts.WeakChains)
		}
	}
	log.Printf("weak chains: %d subclonotypes, %d cells", nexact, ncell)
	if !opts.WeakChains || nexact == 0 {
		return orbits, nexact, ncell, nil
	}
	return d.deleteExacts(orbits, del), nexact, ncell, nil
}

// deleteExacts removes the subclonotypes s with del[s] set, and their join
// units, from d and orbits.
func (d *Dataset) deleteExacts(orbits []Orbit, del []bool) []Orbit {
	var (
		exacts        []ExactSubclonotype
		disintegrated []bool
		exactMap      = make([][]SubclonotypeID, len(d.Exacts))
	)
	for s := range d.Exacts {
		if del[s] {
			continue
		}
		exactMap[s] = []SubclonotypeID{SubclonotypeID(len(exacts))}
		exacts = append(exacts, d.Exacts[s])
		disintegrated = append(disintegrated, d.Disintegrated[s])
	}
	return d.reindex(exacts, disintegrated, exactMap).orbits(orbits)
}
