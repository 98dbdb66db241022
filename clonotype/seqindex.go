package clonotype

import (
	"bytes"

	"github.com/minio/highwayhash"
)

type seqKey = [highwayhash.Size]uint8

var zeroSeed = seqKey{}

type seqRef struct {
	id  InfoID
	tig int
}

// seqIndex maps tig sequences to the join units carrying them.
type seqIndex struct {
	d *Dataset
	m map[seqKey][]seqRef
}

// newSeqIndex indexes the tigs of every join unit for which include returns
// true.
func newSeqIndex(d *Dataset, include func(InfoID) bool) *seqIndex {
	x := &seqIndex{d: d, m: map[seqKey][]seqRef{}}
	for i := range d.Infos {
		id := InfoID(i)
		if !include(id) {
			continue
		}
		for t, seq := range d.Infos[i].Tigs {
			h := highwayhash.Sum(seq, zeroSeed[:])
			x.m[h] = append(x.m[h], seqRef{id, t})
		}
	}
	return x
}

// tigLeft checks if tig t of unit id comes from a left chain.
func (d *Dataset) tigLeft(id InfoID, t int) bool {
	info := &d.Infos[id]
	return d.Exacts[info.Subclonotype].Chains[info.ExactCols[t]].Left
}

// lookup returns the join units having seq as the tig of a chain of the
// given class, in ascending order and without duplicates.
func (x *seqIndex) lookup(seq []byte, left bool) []InfoID {
	var ids []InfoID
	for _, ref := range x.m[highwayhash.Sum(seq, zeroSeed[:])] {
		if !bytes.Equal(x.d.Infos[ref.id].Tigs[ref.tig], seq) || x.d.tigLeft(ref.id, ref.tig) != left {
			continue
		}
		if n := len(ids); n > 0 && ids[n-1] == ref.id {
			continue
		}
		ids = append(ids, ref.id)
	}
	return ids
}
