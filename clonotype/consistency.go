package clonotype

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/clonotype/stats"
)

// Origin describes one input dataset.
type Origin struct {
	// VDJPath and GEXPath name the inputs, for messages only.
	VDJPath string
	GEXPath string
	// GEXCells is the sorted list of barcodes called as cells from gene
	// expression data.  It is nil if the dataset has no GEX data.
	GEXCells []string
}

func (o *Origin) hasGEX() bool { return o.GEXCells != nil || o.GEXPath != "" }

func (o *Origin) isGEXCell(barcode string) bool {
	i := sort.SearchStrings(o.GEXCells, barcode)
	return i < len(o.GEXCells) && o.GEXCells[i] == barcode
}

// ConsistencyResult is the VDJ/GEX agreement of one dataset.
type ConsistencyResult struct {
	Dataset int
	// Total is the # of VDJ cells tested, and Good the # of them that are
	// also GEX cells.
	Total, Good int
	// P = stats.BinomialSum(Total, Good, ConsistencyBaseline).
	P  float64
	OK bool
}

// CheckConsistency tests, for each dataset with GEX data, whether the VDJ
// cells agree with the GEX cells.  Up to ConsistencyMaxCells cells having
// both chain classes are tested, at most one per subclonotype, preferring
// cells with the highest UMI counts.  A dataset fails if fewer cells agree
// than is plausible at an agreement rate of ConsistencyBaseline.
func CheckConsistency(d *Dataset, origins []Origin, opts Opts) ([]ConsistencyResult, error) {
	type candidate struct {
		s    SubclonotypeID
		umis int
		gex  bool
		bc   string
	}
	results := make([]ConsistencyResult, len(origins))
	err := forEachOrbit(opts, len(origins), func(li int) {
		r := &results[li]
		r.Dataset, r.OK = li, true
		origin := &origins[li]
		if !origin.hasGEX() {
			return
		}
		var cands []candidate
		for s := range d.Exacts {
			ex := &d.Exacts[s]
			if !ex.HasBothClasses() {
				continue
			}
			for _, c := range ex.Cells {
				if c.Dataset == li {
					cands = append(cands, candidate{SubclonotypeID(s), c.UMICount, origin.isGEXCell(c.Barcode), c.Barcode})
				}
			}
		}
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].umis != cands[j].umis {
				return cands[i].umis > cands[j].umis
			}
			if cands[i].gex != cands[j].gex {
				return cands[i].gex
			}
			return cands[i].bc < cands[j].bc
		})
		used := map[SubclonotypeID]bool{}
		for _, c := range cands {
			if used[c.s] {
				continue
			}
			used[c.s] = true
			r.Total++
			if c.gex {
				r.Good++
			}
			if r.Total == ConsistencyMaxCells {
				break
			}
		}
		if r.Total == 0 {
			return
		}
		r.P = stats.BinomialSum(r.Total, r.Good, ConsistencyBaseline)
		r.OK = r.P >= ConsistencyMinP
	})
	return results, err
}

// ValidateConsistency runs CheckConsistency and returns an errors.Integrity
// error describing every failing dataset.  With opts.AllowInconsistent the
// failures are logged instead.
func ValidateConsistency(d *Dataset, origins []Origin, opts Opts) error {
	results, err := CheckConsistency(d, origins, opts)
	if err != nil {
		return err
	}
	var msgs []string
	for _, r := range results {
		if r.OK {
			continue
		}
		o := &origins[r.Dataset]
		msgs = append(msgs, fmt.Sprintf("the VDJ dataset %s and the GEX dataset %s show insufficient sharing of barcodes: "+
			"of the %d VDJ cells that were tested, only %d were GEX cells (p=%.3g)", o.VDJPath, o.GEXPath, r.Total, r.Good, r.P))
	}
	if len(msgs) == 0 {
		return nil
	}
	msg := strings.Join(msgs, "; ") + fmt.Sprintf(". The test uses cells having both chain classes, at most one cell per "+
		"exact subclonotype and up to %d cells with the highest UMI counts. This suggests a laboratory or informatic mixup",
		ConsistencyMaxCells)
	if opts.AllowInconsistent {
		log.Error.Printf("ignoring inconsistent data: %s", msg)
		return nil
	}
	return errors.E(errors.Integrity, msg)
}
