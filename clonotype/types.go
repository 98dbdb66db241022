package clonotype

import (
	"sort"

	"github.com/grailbio/base/log"
)

// SubclonotypeID indexes Dataset.Exacts.
type SubclonotypeID int

// InfoID indexes Dataset.Infos.
type InfoID int

// NoDonor is the Cell.Donor value of a cell with no donor assignment.
const NoDonor = -1

// Chain is one receptor chain of an exact subclonotype.
type Chain struct {
	// ChainType is the locus name, e.g. "IGH", "IGK", "TRB".
	ChainType string
	// VGene and JGene are germline reference ids.
	VGene, JGene int
	// CDR3AA is the junction amino acid sequence.
	CDR3AA string
	// CDR3 is the junction nucleotide sequence.
	CDR3 string
	// Seq is the trimmed V..J nucleotide sequence used for comparisons.
	Seq []byte
	// Left is set for heavy (IGH) and TRB chains.
	Left bool
	// UMICount is the UMI support of the chain, summed over cells.
	UMICount int
}

// Cell is one barcode of an exact subclonotype.
type Cell struct {
	Dataset int
	// Donor is NoDonor if unknown.
	Donor   int
	Barcode string
	// UMICount is the total UMI support of the cell over all chains.
	UMICount int
}

// ExactSubclonotype is a group of cells sharing identical chain content.
// It always has at least one cell.
type ExactSubclonotype struct {
	Chains []Chain
	Cells  []Cell
}

// NumCells returns the number of cells.
func (ex *ExactSubclonotype) NumCells() int { return len(ex.Cells) }

// IsOnesie checks if the subclonotype has a single chain.
func (ex *ExactSubclonotype) IsOnesie() bool { return len(ex.Chains) == 1 }

// HasBothClasses checks if the subclonotype has at least one left and one
// right chain.
func (ex *ExactSubclonotype) HasBothClasses() bool {
	var left, right bool
	for _, c := range ex.Chains {
		if c.Left {
			left = true
		} else {
			right = true
		}
	}
	return left && right
}

// Donors returns the sorted known donors of the cells.
func (ex *ExactSubclonotype) Donors() []int {
	var donors []int
	for _, c := range ex.Cells {
		if c.Donor != NoDonor {
			donors = append(donors, c.Donor)
		}
	}
	return uniqueInts(donors)
}

// Datasets returns the sorted datasets of the cells.
func (ex *ExactSubclonotype) Datasets() []int {
	datasets := make([]int, len(ex.Cells))
	for i, c := range ex.Cells {
		datasets[i] = c.Dataset
	}
	return uniqueInts(datasets)
}

// CloneInfo is a join unit: a subset of the chains of one exact
// subclonotype, usually one left and one right chain.  Several join units
// may reference the same subclonotype.
type CloneInfo struct {
	Subclonotype SubclonotypeID
	// Origin is the sorted, deduplicated list of datasets of the
	// subclonotype's cells.
	Origin []int
	// ExactCols[i] is the index in the subclonotype's Chains of tig i.
	ExactCols []int
	// Tigs are the comparison sequences.
	Tigs [][]byte
	// Germlines[i] is the reference sequence aligned to Tigs[i].  Bytes
	// other than ACGT mark positions that are never scored.
	Germlines [][]byte
	// Lens[i] = len(Tigs[i]).
	Lens []int
}

// NewCloneInfo creates the join unit of subclonotype id covering the chains
// cols.  germlines[i] is the reference aligned to chain cols[i].
func NewCloneInfo(ex *ExactSubclonotype, id SubclonotypeID, cols []int, germlines [][]byte) CloneInfo {
	if len(cols) != len(germlines) {
		log.Panicf("NewCloneInfo: %d cols, %d germlines", len(cols), len(germlines))
	}
	info := CloneInfo{
		Subclonotype: id,
		Origin:       ex.Datasets(),
		ExactCols:    append([]int(nil), cols...),
		Germlines:    germlines,
	}
	for _, col := range cols {
		seq := ex.Chains[col].Seq
		info.Tigs = append(info.Tigs, seq)
		info.Lens = append(info.Lens, len(seq))
	}
	return info
}

// RawJoin is an accepted pair of join units.
type RawJoin struct {
	A, B InfoID
}

// JoinLogEntry records the outcome of one scored pair, keyed by
// subclonotype.
type JoinLogEntry struct {
	A, B     SubclonotypeID
	Accepted bool
	Evidence JoinEvidence
}

// Orbit is a materialized equivalence class: an ascending list of join
// units.
type Orbit []InfoID

// uniqueInts sorts v and removes duplicates in place.
func uniqueInts(v []int) []int {
	if len(v) == 0 {
		return v
	}
	sort.Ints(v)
	n := 1
	for _, x := range v[1:] {
		if x != v[n-1] {
			v[n] = x
			n++
		}
	}
	return v[:n]
}

func intersects(a, b []int) bool {
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
