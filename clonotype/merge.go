package clonotype

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/clonotype/equiv"
)

// MergeOnesies attaches single-tig join units to the orbit of the
// multi-tig units that carry the same sequence in a chain of the same
// class.  A onesie is merged only if
// all such units lie in one orbit and, unless opts.MixDonors, the donors of
// the two orbits are compatible.  With opts.MergeOnesiesCtl, a onesie that
// was not produced by Disintegrate must hold at least
// 1/MergeOnesieCellFraction of all cells.  It does nothing unless
// opts.MergeOnesies is set.  It returns the new orbits and the # of onesies
// merged.
func MergeOnesies(d *Dataset, orbits []Orbit, opts Opts) ([]Orbit, int) {
	if !opts.MergeOnesies {
		return orbits, 0
	}
	toOrbit := make([]int, len(d.Infos))
	for i := range toOrbit {
		toOrbit[i] = -1
	}
	for oi, o := range orbits {
		for _, id := range o {
			toOrbit[id] = oi
		}
	}
	idx := newSeqIndex(d, func(id InfoID) bool {
		return toOrbit[id] >= 0 && len(d.Infos[id].Tigs) >= 2
	})
	var (
		total   = d.TotalCells()
		eqo     = equiv.New(len(orbits))
		donors  = make([][]int, len(orbits))
		cached  = make([]bool, len(orbits))
		nmerged int
	)
	orbitDonors := func(oi int) []int {
		if !cached[oi] {
			donors[oi], cached[oi] = d.orbitDonors(orbits[oi]), true
		}
		return donors[oi]
	}
	for i := range d.Infos {
		info := &d.Infos[i]
		if toOrbit[i] < 0 || len(info.Tigs) != 1 {
			continue
		}
		matches := idx.lookup(info.Tigs[0], d.tigLeft(InfoID(i), 0))
		if len(matches) == 0 {
			continue
		}
		target := toOrbit[matches[0]]
		ambiguous := false
		for _, m := range matches[1:] {
			if toOrbit[m] != target {
				ambiguous = true
				break
			}
		}
		if ambiguous {
			log.Debug.Printf("onesie %d (subclonotype %d) matches %d orbits, not merged",
				i, info.Subclonotype, len(matches))
			continue
		}
		if target == toOrbit[i] {
			continue
		}
		if opts.MergeOnesiesCtl && !d.Disintegrated[info.Subclonotype] &&
			d.Exacts[info.Subclonotype].NumCells()*MergeOnesieCellFraction < total {
			continue
		}
		if !opts.MixDonors {
			d1, d2 := orbitDonors(toOrbit[i]), orbitDonors(target)
			if (len(d1) > 0 || len(d2) > 0) && !intersects(d1, d2) {
				log.Debug.Printf("onesie %d (subclonotype %d) has donors %v, orbit has %v, not merged",
					i, info.Subclonotype, d1, d2)
				continue
			}
		}
		if eqo.Join(toOrbit[i], target) {
			nmerged++
		}
	}
	if nmerged == 0 {
		return orbits, 0
	}
	var merged []Orbit
	for _, class := range eqo.Orbits() {
		var o Orbit
		for _, oi := range class {
			o = append(o, orbits[oi]...)
		}
		merged = append(merged, o)
	}
	sortOrbits(merged)
	log.Printf("merged %d onesies, %d -> %d orbits", nmerged, len(orbits), len(merged))
	return merged, nmerged
}
