package clonotype

import (
	"github.com/grailbio/base/log"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// SplitOrbits divides each orbit into the connected components of its
// evidence graph.  Join units are connected if they
//
//   - were joined by an accepted pair (d.RawJoins),
//   - belong to the same subclonotype, or
//   - belong to multi-chain subclonotypes sharing both a left and a right
//     chain sequence.
//
// A onesie is connected to other onesies with the same sequence, and to
// the multi-chain component carrying its sequence if there is exactly one.
// Applying SplitOrbits to its own output changes nothing.  It returns the
// new orbits and the # of orbits added.
func SplitOrbits(d *Dataset, orbits []Orbit, opts Opts) ([]Orbit, int, error) {
	raw := newRawJoinIndex(d)
	parts := make([][]Orbit, len(orbits))
	err := forEachOrbit(opts, len(orbits), func(i int) {
		parts[i] = splitOrbit(d, raw, orbits[i])
	})
	if err != nil {
		return nil, 0, err
	}
	var split []Orbit
	for _, p := range parts {
		split = append(split, p...)
	}
	sortOrbits(split)
	nadded := len(split) - len(orbits)
	if nadded > 0 {
		log.Printf("split orbits: %d -> %d", len(orbits), len(split))
	}
	return split, nadded, nil
}

func splitOrbit(d *Dataset, raw rawJoinIndex, o Orbit) []Orbit {
	if len(o) == 1 {
		return []Orbit{o}
	}
	g := simple.NewUndirectedGraph()
	pos := make(map[InfoID]int, len(o))
	for i, id := range o {
		pos[id] = i
		g.AddNode(simple.Node(i))
	}
	link := func(a, b int) {
		if a != b {
			g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
		}
	}
	var (
		bySubclonotype = map[SubclonotypeID]int{}
		byPair         = map[string]int{}
		onesies        []int
	)
	for i, id := range o {
		for _, b := range raw[id] {
			if j, ok := pos[b]; ok {
				link(i, j)
			}
		}
		s := d.Infos[id].Subclonotype
		if j, ok := bySubclonotype[s]; ok {
			link(i, j)
		} else {
			bySubclonotype[s] = i
		}
		ex := &d.Exacts[s]
		if ex.IsOnesie() {
			onesies = append(onesies, i)
			continue
		}
		for _, l := range ex.Chains {
			if !l.Left {
				continue
			}
			for _, r := range ex.Chains {
				if r.Left {
					continue
				}
				k := string(l.Seq) + "\x00" + string(r.Seq)
				if j, ok := byPair[k]; ok {
					link(i, j)
				} else {
					byPair[k] = i
				}
			}
		}
	}
	if len(onesies) > 0 {
		// Components of the multi-chain units, and the components
		// carrying each sequence.
		comp := make([]int, len(o))
		for c, nodes := range topo.ConnectedComponents(g) {
			for _, n := range nodes {
				comp[n.ID()] = c
			}
		}
		seqComps := map[string][]int{}
		for i, id := range o {
			ex := d.Exact(id)
			if ex.IsOnesie() {
				continue
			}
			for _, ch := range ex.Chains {
				k := chainKey(&ch)
				seqComps[k] = appendUniqueInt(seqComps[k], comp[i])
			}
		}
		compRep := map[int]int{}
		for i := range o {
			if _, ok := compRep[comp[i]]; !ok {
				compRep[comp[i]] = i
			}
		}
		bySeq := map[string]int{}
		for _, i := range onesies {
			k := chainKey(&d.Exact(o[i]).Chains[0])
			if j, ok := bySeq[k]; ok {
				link(i, j)
			} else {
				bySeq[k] = i
			}
			if cs := seqComps[k]; len(cs) == 1 {
				link(i, compRep[cs[0]])
			}
		}
	}

	components := topo.ConnectedComponents(g)
	if len(components) == 1 {
		return []Orbit{o}
	}
	split := make([]Orbit, len(components))
	for c, nodes := range components {
		for _, n := range nodes {
			split[c] = append(split[c], o[n.ID()])
		}
		sortOrbit(split[c])
	}
	return split
}

// chainKey identifies a chain by class and sequence.
func chainKey(ch *Chain) string {
	if ch.Left {
		return "L" + string(ch.Seq)
	}
	return "R" + string(ch.Seq)
}

func appendUniqueInt(v []int, x int) []int {
	for _, y := range v {
		if y == x {
			return v
		}
	}
	return append(v, x)
}
