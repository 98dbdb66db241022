package clonotype

// JoinStats counts the outcomes of pairwise join tests.
type JoinStats struct {
	// Compared is the # of pairs scored.
	Compared int
	// Accepted is the # of accepted pairs that were used for joining.
	Accepted int
	// Rejected is the # of scored pairs that were rejected.
	Rejected int
	// Errors is the # of accepted pairs flagged with JoinEvidence.Err.
	Errors int
	// WhitelistContamination is 100*Errors/Compared.  It is set only by
	// BuildPartition with Opts.Whitelist.
	WhitelistContamination float64
}

// Merge adds the counters of the two JoinStats objects and creates new
// JoinStats.
func (s JoinStats) Merge(o JoinStats) JoinStats {
	s.Compared += o.Compared
	s.Accepted += o.Accepted
	s.Rejected += o.Rejected
	s.Errors += o.Errors
	return s
}

// Stats represents high-level statistics of one pipeline run.
type Stats struct {
	Join JoinStats
	// Exacts and Cells are the input sizes.
	Exacts int
	Cells  int
	// Disintegrated is the # of onesies split into single cells, and
	// DisintegratedCells the # of subclonotypes created from them.
	Disintegrated      int
	DisintegratedCells int
	// Merged is the # of onesie units merged into another orbit.
	Merged int
	// Splits is the # of orbits created by SplitOrbits, over both passes.
	Splits int
	// WeakChainExacts is the # of subclonotypes failing the weak chain
	// test, and WeakChainCells the # of their cells.
	WeakChainExacts int
	WeakChainCells  int
	// FilteredCells is the # of cells removed by predicates.
	FilteredCells int
	// DoubletCells is the # of cells removed by the doublet filter.
	DoubletCells int
	// SignatureExacts and SignatureCells count the subclonotypes and cells
	// removed by the signature filter.
	SignatureExacts int
	SignatureCells  int
	// Orbits is the # of final orbits.
	Orbits int
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Join = s.Join.Merge(o.Join)
	s.Exacts += o.Exacts
	s.Cells += o.Cells
	s.Disintegrated += o.Disintegrated
	s.DisintegratedCells += o.DisintegratedCells
	s.Merged += o.Merged
	s.Splits += o.Splits
	s.WeakChainExacts += o.WeakChainExacts
	s.WeakChainCells += o.WeakChainCells
	s.FilteredCells += o.FilteredCells
	s.DoubletCells += o.DoubletCells
	s.SignatureExacts += o.SignatureExacts
	s.SignatureCells += o.SignatureCells
	s.Orbits += o.Orbits
	return s
}
