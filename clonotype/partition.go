package clonotype

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/clonotype/equiv"
)

// BuildPartition unions the accepted pairs of results into a partition of
// d's join units, and appends them to d.RawJoins and d.JoinLog.  Join units
// of the same subclonotype are always placed in the same class.
//
// REQUIRES: results cover every chunk of d exactly once.
func BuildPartition(d *Dataset, results []JoinResult, opts Opts) (*equiv.Partition, JoinStats) {
	var js JoinStats
	for _, r := range results {
		js = js.Merge(r.Stats)
	}
	log.Printf("%d joins, %d rejected of %d compared", js.Accepted, js.Rejected, js.Compared)
	if js.Errors > 0 {
		log.Printf("%d join errors", js.Errors)
	}

	p := equiv.New(len(d.Infos))
	for _, r := range results {
		for _, j := range r.Joins {
			p.Join(int(j.A), int(j.B))
			d.RawJoins = append(d.RawJoins, j)
		}
		d.JoinLog = append(d.JoinLog, r.Log...)
	}
	stitch(d, p)

	if opts.Whitelist {
		if js.Compared > 0 {
			js.WhitelistContamination = 100 * float64(js.Errors) / float64(js.Compared)
		}
		log.Printf("whitelist contamination rate = %.2f%%", js.WhitelistContamination)
	}
	return p, js
}

// stitch joins the classes of all join units of each subclonotype.
func stitch(d *Dataset, p *equiv.Partition) {
	type subclass struct {
		s     SubclonotypeID
		class int
	}
	ox := make([]subclass, len(d.Infos))
	for i := range d.Infos {
		ox[i] = subclass{d.Infos[i].Subclonotype, p.ClassID(i)}
	}
	sort.Slice(ox, func(i, j int) bool {
		if ox[i].s != ox[j].s {
			return ox[i].s < ox[j].s
		}
		return ox[i].class < ox[j].class
	})
	for i := 1; i < len(ox); i++ {
		if ox[i].s == ox[i-1].s {
			p.Join(ox[i-1].class, ox[i].class)
		}
	}
}
