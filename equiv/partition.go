package equiv

import (
	"github.com/grailbio/base/log"
)

// Partition is a disjoint-set forest over [0, n).  The zero value is an empty
// partition.  It is not safe for concurrent mutation.
type Partition struct {
	parent []int
	size   []int
	// norbits is the number of classes.
	norbits int
}

// New creates a partition of [0, n) into n singleton classes.
func New(n int) *Partition {
	p := &Partition{
		parent:  make([]int, n),
		size:    make([]int, n),
		norbits: n,
	}
	for i := range p.parent {
		p.parent[i] = i
		p.size[i] = 1
	}
	return p
}

// N returns the size of the underlying set.
func (p *Partition) N() int { return len(p.parent) }

// NumOrbits returns the number of equivalence classes.
func (p *Partition) NumOrbits() int { return p.norbits }

func (p *Partition) check(x int) {
	if x < 0 || x >= len(p.parent) {
		log.Panicf("equiv: element %d out of range [0,%d)", x, len(p.parent))
	}
}

// ClassID returns an identifier of the class containing x.  Two elements are
// equivalent iff their class ids are equal.  Class ids are stable only until
// the next Join.
func (p *Partition) ClassID(x int) int {
	p.check(x)
	root := x
	for p.parent[root] != root {
		root = p.parent[root]
	}
	for p.parent[x] != root {
		next := p.parent[x]
		p.parent[x] = root
		x = next
	}
	return root
}

// Join merges the classes containing a and b.  It returns false if they were
// already equivalent.
func (p *Partition) Join(a, b int) bool {
	ra, rb := p.ClassID(a), p.ClassID(b)
	if ra == rb {
		return false
	}
	if p.size[ra] < p.size[rb] {
		ra, rb = rb, ra
	}
	p.parent[rb] = ra
	p.size[ra] += p.size[rb]
	p.norbits--
	return true
}

// Equivalent checks if a and b are in the same class.
func (p *Partition) Equivalent(a, b int) bool { return p.ClassID(a) == p.ClassID(b) }

// OrbitSize returns the number of elements in the class of x.
func (p *Partition) OrbitSize(x int) int { return p.size[p.ClassID(x)] }

// Orbit returns the members of the class containing x, in ascending order.
func (p *Partition) Orbit(x int) []int {
	c := p.ClassID(x)
	o := make([]int, 0, p.size[c])
	for i := range p.parent {
		if p.ClassID(i) == c {
			o = append(o, i)
		}
	}
	return o
}

// OrbitReps returns one representative per class: its smallest member.  The
// result is sorted.
func (p *Partition) OrbitReps() []int {
	reps := make([]int, 0, p.norbits)
	seen := make([]bool, len(p.parent))
	for i := range p.parent {
		c := p.ClassID(i)
		if !seen[c] {
			seen[c] = true
			reps = append(reps, i)
		}
	}
	return reps
}

// Orbits returns every class, each sorted, ordered by smallest member.
func (p *Partition) Orbits() [][]int {
	index := make([]int, len(p.parent))
	for i := range index {
		index[i] = -1
	}
	orbits := make([][]int, 0, p.norbits)
	for i := range p.parent {
		c := p.ClassID(i)
		if index[c] < 0 {
			index[c] = len(orbits)
			orbits = append(orbits, make([]int, 0, p.size[c]))
		}
		orbits[index[c]] = append(orbits[index[c]], i)
	}
	return orbits
}
