package equiv

import (
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestSingletons(t *testing.T) {
	p := New(4)
	expect.EQ(t, p.NumOrbits(), 4)
	expect.EQ(t, p.OrbitReps(), []int{0, 1, 2, 3})
	expect.EQ(t, p.Orbit(2), []int{2})
	expect.EQ(t, p.OrbitSize(3), 1)
}

func TestJoin(t *testing.T) {
	p := New(6)
	expect.True(t, p.Join(0, 3))
	expect.True(t, p.Join(3, 5))
	expect.False(t, p.Join(5, 0))
	expect.True(t, p.Join(1, 2))
	expect.EQ(t, p.NumOrbits(), 3)
	expect.EQ(t, p.Orbit(5), []int{0, 3, 5})
	expect.EQ(t, p.OrbitSize(3), 3)
	expect.EQ(t, p.OrbitReps(), []int{0, 1, 4})
	expect.EQ(t, p.Orbits(), [][]int{{0, 3, 5}, {1, 2}, {4}})
	expect.True(t, p.Equivalent(0, 5))
	expect.False(t, p.Equivalent(0, 1))
}

func TestEmpty(t *testing.T) {
	p := New(0)
	expect.EQ(t, p.NumOrbits(), 0)
	expect.EQ(t, len(p.Orbits()), 0)
}

func TestOutOfRange(t *testing.T) {
	p := New(2)
	require.Panics(t, func() { p.ClassID(2) })
}

// The relation induced by ClassID must be an equivalence relation that
// agrees with a naive label-propagation model.
func TestEquivalenceLaws(t *testing.T) {
	const n = 200
	r := rand.New(rand.NewSource(0))
	p := New(n)
	label := make([]int, n)
	for i := range label {
		label[i] = i
	}
	for iter := 0; iter < 150; iter++ {
		a, b := r.Intn(n), r.Intn(n)
		p.Join(a, b)
		la, lb := label[a], label[b]
		for i := range label {
			if label[i] == lb {
				label[i] = la
			}
		}
	}
	nlabels := map[int]bool{}
	for i := 0; i < n; i++ {
		nlabels[label[i]] = true
		require.True(t, p.Equivalent(i, i))
		for j := 0; j < n; j++ {
			require.Equal(t, label[i] == label[j], p.Equivalent(i, j))
			require.Equal(t, p.Equivalent(i, j), p.Equivalent(j, i))
		}
	}
	require.Equal(t, len(nlabels), p.NumOrbits())
	total := 0
	for _, o := range p.Orbits() {
		total += len(o)
		for _, x := range o {
			require.True(t, p.Equivalent(o[0], x))
		}
	}
	require.Equal(t, n, total)
}
