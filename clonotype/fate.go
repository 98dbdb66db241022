package clonotype

import "sort"

// Reasons recorded in Fate.
const (
	FateWeakChains = "failed WEAK_CHAINS filter"
	FateFCell      = "failed FCELL filter"
	FateDoublet    = "failed DOUBLET filter"
	FateSignature  = "failed SIGNATURE filter"
)

// CellKey identifies a cell across datasets.
type CellKey struct {
	Dataset int
	Barcode string
}

// FateEntry is one removed cell.
type FateEntry struct {
	CellKey
	Reason string
}

// Fate records why cells were removed.  Only the first removal recorded for
// a cell is kept.  A filter that flags a cell without removing it leaves a
// note, which a later removal replaces.
type Fate struct {
	reasons map[CellKey]string
	// retained holds the cells whose reason is a note.
	retained map[CellKey]bool
}

// NewFate creates an empty Fate.
func NewFate() *Fate {
	return &Fate{reasons: map[CellKey]string{}, retained: map[CellKey]bool{}}
}

// Record records that the cell was removed for reason.  It returns false if
// the cell was already removed.
func (f *Fate) Record(dataset int, barcode, reason string) bool {
	k := CellKey{dataset, barcode}
	if _, ok := f.reasons[k]; ok && !f.retained[k] {
		return false
	}
	delete(f.retained, k)
	f.reasons[k] = reason
	return true
}

// Note records reason for a cell that stays in the data.  It returns false
// if the cell already has a reason.
func (f *Fate) Note(dataset int, barcode, reason string) bool {
	k := CellKey{dataset, barcode}
	if _, ok := f.reasons[k]; ok {
		return false
	}
	f.reasons[k] = reason
	f.retained[k] = true
	return true
}

// Retained checks if the cell's reason is a note.
func (f *Fate) Retained(dataset int, barcode string) bool {
	return f.retained[CellKey{dataset, barcode}]
}

// recordCells records reason for every cell of ex.  If removed is false the
// cells get a note.
func (f *Fate) recordCells(ex *ExactSubclonotype, reason string, removed bool) {
	for _, c := range ex.Cells {
		if removed {
			f.Record(c.Dataset, c.Barcode, reason)
		} else {
			f.Note(c.Dataset, c.Barcode, reason)
		}
	}
}

// Reason returns the reason recorded for the cell.
func (f *Fate) Reason(dataset int, barcode string) (string, bool) {
	r, ok := f.reasons[CellKey{dataset, barcode}]
	return r, ok
}

// Len returns the number of cells recorded.
func (f *Fate) Len() int { return len(f.reasons) }

// Entries returns the recorded cells ordered by dataset and barcode.
func (f *Fate) Entries() []FateEntry {
	entries := make([]FateEntry, 0, len(f.reasons))
	for k, r := range f.reasons {
		entries = append(entries, FateEntry{k, r})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Dataset != entries[j].Dataset {
			return entries[i].Dataset < entries[j].Dataset
		}
		return entries[i].Barcode < entries[j].Barcode
	})
	return entries
}

// Counts returns the number of cells per reason.
func (f *Fate) Counts() map[string]int {
	counts := map[string]int{}
	for _, r := range f.reasons {
		counts[r]++
	}
	return counts
}
