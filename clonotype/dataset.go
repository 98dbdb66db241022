package clonotype

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/clonotype/equiv"
)

// Dataset owns the collections that the refinement stages mutate in
// lock-step.  Stages hold index references (SubclonotypeID, InfoID) only;
// every structural change goes through reindex, which keeps all of them
// consistent.
type Dataset struct {
	Exacts []ExactSubclonotype
	Infos  []CloneInfo
	// JoinLog lists every scored pair, keyed by subclonotype.
	JoinLog []JoinLogEntry
	// RawJoins lists every accepted pair of join units.
	RawJoins []RawJoin
	// Disintegrated[s] is set if Exacts[s] was produced by Disintegrate.
	Disintegrated []bool
	Fate          *Fate
}

// NewDataset checks the cross references between exacts and infos and
// creates a Dataset owning them.  Origin of each info is recomputed.
func NewDataset(exacts []ExactSubclonotype, infos []CloneInfo) (*Dataset, error) {
	for s := range exacts {
		ex := &exacts[s]
		if len(ex.Cells) == 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("exact subclonotype %d has no cells", s))
		}
		if len(ex.Chains) == 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("exact subclonotype %d has no chains", s))
		}
	}
	for i := range infos {
		info := &infos[i]
		if info.Subclonotype < 0 || int(info.Subclonotype) >= len(exacts) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("clone info %d references subclonotype %d", i, info.Subclonotype))
		}
		ex := &exacts[info.Subclonotype]
		if len(info.Tigs) != len(info.ExactCols) || len(info.Germlines) != len(info.ExactCols) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("clone info %d has inconsistent tig, germline and column counts", i))
		}
		info.Lens = info.Lens[:0]
		for j, col := range info.ExactCols {
			if col < 0 || col >= len(ex.Chains) {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("clone info %d references chain %d", i, col))
			}
			info.Lens = append(info.Lens, len(info.Tigs[j]))
		}
		info.Origin = ex.Datasets()
	}
	return &Dataset{
		Exacts:        exacts,
		Infos:         infos,
		Disintegrated: make([]bool, len(exacts)),
		Fate:          NewFate(),
	}, nil
}

// TotalCells returns the number of cells over all exact subclonotypes.
func (d *Dataset) TotalCells() int {
	n := 0
	for i := range d.Exacts {
		n += d.Exacts[i].NumCells()
	}
	return n
}

// Exact returns the subclonotype of join unit id.
func (d *Dataset) Exact(id InfoID) *ExactSubclonotype {
	return &d.Exacts[d.Infos[id].Subclonotype]
}

// orbitExacts returns the sorted distinct subclonotypes of o.
func (d *Dataset) orbitExacts(o Orbit) []SubclonotypeID {
	var exacts []SubclonotypeID
	for _, id := range o {
		exacts = append(exacts, d.Infos[id].Subclonotype)
	}
	sort.Slice(exacts, func(i, j int) bool { return exacts[i] < exacts[j] })
	n := 0
	for i, s := range exacts {
		if i == 0 || s != exacts[n-1] {
			exacts[n] = s
			n++
		}
	}
	return exacts[:n]
}

// orbitDonors returns the sorted known donors of the cells of o.
func (d *Dataset) orbitDonors(o Orbit) []int {
	var donors []int
	for _, s := range d.orbitExacts(o) {
		donors = append(donors, d.Exacts[s].Donors()...)
	}
	return uniqueInts(donors)
}

// orbitCells returns the number of cells in o.
func (d *Dataset) orbitCells(o Orbit) int {
	n := 0
	for _, s := range d.orbitExacts(o) {
		n += d.Exacts[s].NumCells()
	}
	return n
}

// infoMap[i] lists the join units that replace old join unit i after a
// reindex.  The list is empty if the unit was deleted.
type infoMap [][]InfoID

// reindex replaces the subclonotypes with exacts.  exactMap[s] lists the new
// subclonotypes that replace old subclonotype s (none if deleted, several if
// split).  Join units are cloned once per replacement, the join log is
// expanded by cross product, and raw joins follow the first replacement of
// each endpoint.  The returned map translates old join units into new ones.
func (d *Dataset) reindex(exacts []ExactSubclonotype, disintegrated []bool, exactMap [][]SubclonotypeID) infoMap {
	var joinLog []JoinLogEntry
	for _, e := range d.JoinLog {
		for _, a := range exactMap[e.A] {
			for _, b := range exactMap[e.B] {
				e.A, e.B = a, b
				joinLog = append(joinLog, e)
			}
		}
	}
	var (
		infos = make([]CloneInfo, 0, len(d.Infos))
		m     = make(infoMap, len(d.Infos))
	)
	for i, info := range d.Infos {
		for _, s := range exactMap[info.Subclonotype] {
			info.Subclonotype = s
			info.Origin = exacts[s].Datasets()
			m[i] = append(m[i], InfoID(len(infos)))
			infos = append(infos, info)
		}
	}
	var raw []RawJoin
	for _, j := range d.RawJoins {
		a, b := m[j.A], m[j.B]
		if len(a) > 0 && len(b) > 0 {
			raw = append(raw, RawJoin{a[0], b[0]})
		}
	}
	d.Exacts = exacts
	d.Disintegrated = disintegrated
	d.Infos = infos
	d.JoinLog = joinLog
	d.RawJoins = raw
	return m
}

// partition maps an old partition onto the new join units.  Only the first
// replacement of each old unit inherits its class; further replacements
// start as singletons.
func (m infoMap) partition(old *equiv.Partition, n int) *equiv.Partition {
	p := equiv.New(n)
	for _, o := range old.Orbits() {
		prev := -1
		for _, x := range o {
			if len(m[x]) == 0 {
				continue
			}
			cur := int(m[x][0])
			if prev >= 0 {
				p.Join(prev, cur)
			}
			prev = cur
		}
	}
	return p
}

// orbits maps old orbits onto the new join units.  Orbits left empty are
// dropped.
func (m infoMap) orbits(old []Orbit) []Orbit {
	var orbits []Orbit
	for _, o := range old {
		var no Orbit
		for _, id := range o {
			no = append(no, m[id]...)
		}
		if len(no) == 0 {
			continue
		}
		sortOrbit(no)
		orbits = append(orbits, no)
	}
	return orbits
}

// OrbitsOf materializes the classes of p.
func OrbitsOf(p *equiv.Partition) []Orbit {
	classes := p.Orbits()
	orbits := make([]Orbit, len(classes))
	for i, c := range classes {
		o := make(Orbit, len(c))
		for j, x := range c {
			o[j] = InfoID(x)
		}
		orbits[i] = o
	}
	return orbits
}

func sortOrbit(o Orbit) {
	sort.Slice(o, func(i, j int) bool { return o[i] < o[j] })
}

// sortOrbits orders each orbit and the orbits by their first member.
func sortOrbits(orbits []Orbit) {
	for _, o := range orbits {
		sortOrbit(o)
	}
	sort.Slice(orbits, func(i, j int) bool { return orbits[i][0] < orbits[j][0] })
}
