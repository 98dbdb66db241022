package clonotype

import (
	"time"

	"github.com/grailbio/base/log"
)

// DoubletFinder returns the subclonotypes of orbits that look like
// doublets.  Their cells are recorded in Fate and they are deleted before
// onesies are merged.
type DoubletFinder func(d *Dataset, orbits []Orbit, opts Opts) ([]SubclonotypeID, error)

// Pipeline runs all clonotyping stages over a Dataset.
type Pipeline struct {
	Opts Opts
	// Origins describes the datasets.  If any has GEX data, the VDJ/GEX
	// consistency check runs before joining.
	Origins []Origin
	// Metadata is consulted by Opts.Predicates.
	Metadata *Metadata
	// Doublets runs if Opts.Doublet is set.  If nil, FindDoublets is used.
	Doublets DoubletFinder
	// Metrics is optional.
	Metrics *Metrics
}

func (p *Pipeline) hasGEX() bool {
	for i := range p.Origins {
		if p.Origins[i].hasGEX() {
			return true
		}
	}
	return false
}

// Run computes the final orbits of d.  d is modified in place: on return
// its subclonotypes, join units and fate reflect every stage.
func (p *Pipeline) Run(d *Dataset) ([]Orbit, Stats, error) {
	var (
		opts  = p.Opts
		stats = Stats{Exacts: len(d.Exacts), Cells: d.TotalCells()}
		start time.Time
		err   error
	)
	preds := make([]*Predicate, len(opts.Predicates))
	for i, src := range opts.Predicates {
		if preds[i], err = CompilePredicate(src); err != nil {
			return nil, stats, err
		}
	}
	if p.hasGEX() {
		start = time.Now()
		if err = ValidateConsistency(d, p.Origins, opts); err != nil {
			return nil, stats, err
		}
		p.Metrics.observeStage("consistency", start)
	}

	start = time.Now()
	results, err := JoinAll(NewJoinContext(d, opts))
	if err != nil {
		return nil, stats, err
	}
	eq, js := BuildPartition(d, results, opts)
	stats.Join = js
	p.Metrics.observeStage("join", start)

	start = time.Now()
	n0 := len(d.Exacts)
	eq, stats.Disintegrated = Disintegrate(d, eq, opts)
	stats.DisintegratedCells = len(d.Exacts) - (n0 - stats.Disintegrated)
	orbits := OrbitsOf(eq)
	p.Metrics.observeStage("disintegrate", start)

	if opts.Doublet {
		start = time.Now()
		find := p.Doublets
		if find == nil {
			find = FindDoublets
		}
		ids, err := find(d, orbits, opts)
		if err != nil {
			return nil, stats, err
		}
		del := make([]bool, len(d.Exacts))
		ndel := 0
		for _, s := range ids {
			if del[s] {
				continue
			}
			del[s] = true
			ndel++
			stats.DoubletCells += d.Exacts[s].NumCells()
			d.Fate.recordCells(&d.Exacts[s], FateDoublet, true)
		}
		if ndel > 0 {
			orbits = d.deleteExacts(orbits, del)
		}
		log.Printf("doublets: %d subclonotypes, %d cells", ndel, stats.DoubletCells)
		p.Metrics.observeStage("doublets", start)
	}
	start = time.Now()
	if orbits, stats.SignatureExacts, stats.SignatureCells, err = SignatureFilter(d, orbits, opts); err != nil {
		return nil, stats, err
	}
	p.Metrics.observeStage("signature", start)

	start = time.Now()
	orbits, stats.Merged = MergeOnesies(d, orbits, opts)
	p.Metrics.observeStage("merge", start)

	var nsplit int
	start = time.Now()
	if orbits, nsplit, err = SplitOrbits(d, orbits, opts); err != nil {
		return nil, stats, err
	}
	stats.Splits += nsplit
	if orbits, stats.WeakChainExacts, stats.WeakChainCells, err = WeakChains(d, orbits, opts); err != nil {
		return nil, stats, err
	}
	if orbits, nsplit, err = SplitOrbits(d, orbits, opts); err != nil {
		return nil, stats, err
	}
	stats.Splits += nsplit
	p.Metrics.observeStage("refine", start)

	start = time.Now()
	orbits, stats.FilteredCells = FilterByPredicates(d, orbits, p.Metadata, preds)
	p.Metrics.observeStage("predicates", start)

	sortOrbits(orbits)
	stats.Orbits = len(orbits)
	log.Printf("%d orbits, %d cells removed", stats.Orbits, d.Fate.Len())
	p.Metrics.record(stats, d.Fate)
	return orbits, stats, nil
}
