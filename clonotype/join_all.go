package clonotype

import (
	"runtime"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/clonotype/equiv"
)

// JoinResult is the output of one join worker.
type JoinResult struct {
	// Joins lists the accepted pairs, in acceptance order.
	Joins []RawJoin
	// Log lists every scored pair.
	Log   []JoinLogEntry
	Stats JoinStats
}

// joinChunk is a run of join units with identical tig lengths.  Only units
// in the same chunk are compared.
type joinChunk []InfoID

// joinChunks groups the join units of d by tig lengths.  Chunks are ordered
// by tig lengths, and units within a chunk by id.
func joinChunks(d *Dataset) []joinChunk {
	ids := make([]InfoID, len(d.Infos))
	for i := range ids {
		ids[i] = InfoID(i)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return compareLens(d.Infos[ids[i]].Lens, d.Infos[ids[j]].Lens) < 0
	})
	var chunks []joinChunk
	for i := 0; i < len(ids); {
		j := i + 1
		for j < len(ids) && compareLens(d.Infos[ids[i]].Lens, d.Infos[ids[j]].Lens) == 0 {
			j++
		}
		chunks = append(chunks, joinChunk(ids[i:j]))
		i = j
	}
	return chunks
}

func compareLens(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] - b[i]
		}
	}
	return len(a) - len(b)
}

type potentialJoin struct {
	// i1 < i2 are positions in the chunk.
	i1, i2 int
	ev     JoinEvidence
}

// joinChunk scores all pairs of one chunk.
func (c *JoinContext) joinChunk(chunk joinChunk) JoinResult {
	var (
		r   JoinResult
		eq  = equiv.New(len(chunk))
		pot []potentialJoin
	)
	for i1 := range chunk {
		for i2 := i1 + 1; i2 < len(chunk); i2++ {
			if eq.Equivalent(i1, i2) {
				continue
			}
			a, b := chunk[i1], chunk[i2]
			ev, decision := c.Evaluate(a, b)
			if decision == NotCompared {
				continue
			}
			r.Stats.Compared++
			r.Log = append(r.Log, JoinLogEntry{
				A:        c.data.Infos[a].Subclonotype,
				B:        c.data.Infos[b].Subclonotype,
				Accepted: decision == Accepted,
				Evidence: ev,
			})
			if decision == Rejected {
				r.Stats.Rejected++
				continue
			}
			eq.Join(i1, i2)
			pot = append(pot, potentialJoin{i1, i2, ev})
		}
	}

	// A group of two single-cell units needs the CDR3 differences to be at
	// most half the shared mutations.
	for pass := 0; pass < 2; pass++ {
		eq := equiv.New(len(chunk))
		byFirst := make([][]int, len(chunk))
		for pi, pj := range pot {
			eq.Join(pj.i1, pj.i2)
			byFirst[pj.i1] = append(byFirst[pj.i1], pi)
		}
		del := make([]bool, len(pot))
		for _, o := range eq.Orbits() {
			if len(o) != 2 {
				continue
			}
			ncells := 0
			for _, x := range o {
				ncells += c.data.Exact(chunk[x]).NumCells()
			}
			if ncells != 2 {
				continue
			}
			for _, pi := range byFirst[o[0]] {
				if pot[pi].ev.CDR3Diffs > pot[pi].ev.Shares/2 {
					del[pi] = true
				}
			}
		}
		n := 0
		for pi := range pot {
			if del[pi] {
				r.Stats.Rejected++
				markRejected(r.Log, c.data, chunk, pot[pi])
				continue
			}
			pot[n] = pot[pi]
			n++
		}
		pot = pot[:n]
	}

	eq = equiv.New(len(chunk))
	for _, pj := range pot {
		if !eq.Join(pj.i1, pj.i2) {
			continue
		}
		r.Joins = append(r.Joins, RawJoin{chunk[pj.i1], chunk[pj.i2]})
		r.Stats.Accepted++
		if pj.ev.Err {
			r.Stats.Errors++
		}
	}
	return r
}

// markRejected flips the log entry of a pair rejected after scoring.
func markRejected(entries []JoinLogEntry, d *Dataset, chunk joinChunk, pj potentialJoin) {
	a, b := d.Infos[chunk[pj.i1]].Subclonotype, d.Infos[chunk[pj.i2]].Subclonotype
	for i := range entries {
		e := &entries[i]
		if e.A == a && e.B == b && e.Accepted && e.Evidence == pj.ev {
			e.Accepted = false
			return
		}
	}
}

// JoinAll scores all candidate pairs of c's dataset.  Chunks of join units
// are distributed over workers; each worker fills its own JoinResult.
// The results are ordered by worker and can be passed to BuildPartition.
func JoinAll(c *JoinContext) ([]JoinResult, error) {
	chunks := joinChunks(c.data)
	parallelism := c.opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(chunks) {
		parallelism = len(chunks)
	}
	log.Printf("comparing %d join units in %d chunks, %d jobs", len(c.data.Infos), len(chunks), parallelism)
	results := make([]JoinResult, parallelism)
	err := traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * len(chunks)) / parallelism
		endIdx := ((jobIdx + 1) * len(chunks)) / parallelism
		r := &results[jobIdx]
		for _, chunk := range chunks[startIdx:endIdx] {
			cr := c.joinChunk(chunk)
			r.Joins = append(r.Joins, cr.Joins...)
			r.Log = append(r.Log, cr.Log...)
			r.Stats = r.Stats.Merge(cr.Stats)
		}
		return nil
	})
	return results, err
}
