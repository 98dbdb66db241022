package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

// stirling2 computes S(x,u) exactly for small arguments.
func stirling2(x, u int) float64 {
	s := make([][]float64, x+1)
	for i := range s {
		s[i] = make([]float64, x+1)
	}
	s[0][0] = 1
	for i := 1; i <= x; i++ {
		for j := 1; j <= i; j++ {
			s[i][j] = float64(j)*s[i-1][j] + s[i-1][j-1]
		}
	}
	return s[x][u]
}

func TestStirlingRatioTable(t *testing.T) {
	tab := NewStirlingRatioTable(12)
	expect.EQ(t, tab.Max(), 12)
	expect.EQ(t, tab.Ratio(0, 0), 1.0)
	for x := 1; x <= 12; x++ {
		expect.EQ(t, tab.Ratio(x, 0), 0.0)
		for u := 1; u <= x; u++ {
			fact := 1.0
			for i := 2; i <= u; i++ {
				fact *= float64(i)
			}
			want := stirling2(x, u) * fact / math.Pow(float64(u), float64(x))
			require.InDeltaf(t, want, tab.Ratio(x, u), 1e-12, "x=%d u=%d", x, u)
		}
	}
}

func TestPAtMostMDistinct(t *testing.T) {
	tab := NewStirlingRatioTable(10)
	require.InDelta(t, 0.5, tab.PAtMostMDistinct(1, 2, 2), 1e-12)
	// m >= x is certain.
	expect.EQ(t, tab.PAtMostMDistinct(5, 5, 100), 1.0)
	expect.EQ(t, tab.PAtMostMDistinct(0, 0, 7), 1.0)
	// All-distinct complement: 1 - n!/((n-x)! n^x).
	n, x := 12, 6
	allDistinct := 1.0
	for i := 0; i < x; i++ {
		allDistinct *= float64(n-i) / float64(n)
	}
	require.InDelta(t, 1-allDistinct, tab.PAtMostMDistinct(x-1, x, n), 1e-12)
}

func TestPAtMostMDistinctSimulation(t *testing.T) {
	const (
		n, x, m = 9, 7, 5
		trials  = 200000
	)
	r := rand.New(rand.NewSource(1))
	hits := 0
	for i := 0; i < trials; i++ {
		seen := map[int]bool{}
		for j := 0; j < x; j++ {
			seen[r.Intn(n)] = true
		}
		if len(seen) <= m {
			hits++
		}
	}
	tab := NewStirlingRatioTable(x)
	require.InDelta(t, float64(hits)/trials, tab.PAtMostMDistinct(m, x, n), 0.01)
}

func TestPAtMostMDistinctLarge(t *testing.T) {
	tab := NewStirlingRatioTable(400)
	p := tab.PAtMostMDistinct(300, 400, 2400)
	expect.False(t, math.IsNaN(p))
	expect.True(t, p >= 0 && p <= 1)
}
