package clonotype

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/clonotype/equiv"
)

// Disintegrate splits every onesie that has more than one cell, holds fewer
// than 1/OnesieCellFraction of all cells and is alone in its class into one
// subclonotype per cell.  It does nothing unless opts.WeakOnesies is set.
// It returns the partition of the new join units and the # of
// subclonotypes split.
func Disintegrate(d *Dataset, p *equiv.Partition, opts Opts) (*equiv.Partition, int) {
	if !opts.WeakOnesies {
		return p, 0
	}
	total := d.TotalCells()
	// unit[s] is a join unit of subclonotype s, or -1.
	unit := make([]int, len(d.Exacts))
	for s := range unit {
		unit[s] = -1
	}
	for i := range d.Infos {
		unit[d.Infos[i].Subclonotype] = i
	}
	var (
		exacts        []ExactSubclonotype
		disintegrated []bool
		exactMap      = make([][]SubclonotypeID, len(d.Exacts))
		nsplit        int
	)
	for s := range d.Exacts {
		ex := &d.Exacts[s]
		if ex.IsOnesie() && ex.NumCells() > 1 && ex.NumCells()*OnesieCellFraction < total &&
			!d.Disintegrated[s] && unit[s] >= 0 && p.OrbitSize(unit[s]) == 1 {
			nsplit++
			for _, cell := range ex.Cells {
				exactMap[s] = append(exactMap[s], SubclonotypeID(len(exacts)))
				exacts = append(exacts, ExactSubclonotype{
					Chains: ex.Chains,
					Cells:  []Cell{cell},
				})
				disintegrated = append(disintegrated, true)
			}
			continue
		}
		exactMap[s] = []SubclonotypeID{SubclonotypeID(len(exacts))}
		exacts = append(exacts, *ex)
		disintegrated = append(disintegrated, d.Disintegrated[s])
	}
	if nsplit == 0 {
		return p, 0
	}
	m := d.reindex(exacts, disintegrated, exactMap)
	log.Printf("disintegrated %d onesies into %d subclonotypes", nsplit, len(exacts)-(len(exactMap)-nsplit))
	return m.partition(p, len(d.Infos)), nsplit
}
