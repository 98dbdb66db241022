package stats

import (
	"math"

	"github.com/grailbio/base/log"
)

// StirlingRatioTable holds r[x][u] = S(x,u)·u!/u^x for 0 <= u <= x <= Max,
// where S is the Stirling number of the second kind.  r[x][u] is the
// probability that x draws with replacement from u objects hit all u of them,
// so every entry lies in [0,1] and the table never overflows.
type StirlingRatioTable struct {
	r [][]float64
}

// NewStirlingRatioTable builds the table up to x = max.
func NewStirlingRatioTable(max int) *StirlingRatioTable {
	if max < 0 {
		log.Panicf("NewStirlingRatioTable: max=%d", max)
	}
	r := make([][]float64, max+1)
	r[0] = []float64{1}
	for x := 1; x <= max; x++ {
		r[x] = make([]float64, x+1)
		for u := 1; u <= x; u++ {
			var prev float64
			if u < x {
				prev = r[x-1][u]
			}
			r[x][u] = prev + r[x-1][u-1]*math.Pow(float64(u-1)/float64(u), float64(x-1))
		}
	}
	return &StirlingRatioTable{r: r}
}

// Max returns the largest x covered by the table.
func (t *StirlingRatioTable) Max() int { return len(t.r) - 1 }

// Ratio returns r[x][u].
func (t *StirlingRatioTable) Ratio(x, u int) float64 {
	if x < 0 || x > t.Max() || u < 0 || u > x {
		log.Panicf("StirlingRatioTable: (%d,%d) out of range, max %d", x, u, t.Max())
	}
	return t.r[x][u]
}

// PAtMostMDistinct returns the probability that a sample of x objects drawn
// with replacement from n equally likely objects contains at most m distinct
// objects.
//
// REQUIRES: x <= t.Max(), n >= 1.
func (t *StirlingRatioTable) PAtMostMDistinct(m, x, n int) float64 {
	if n < 1 {
		log.Panicf("PAtMostMDistinct: n=%d, want n >= 1", n)
	}
	if x < 0 || x > t.Max() {
		log.Panicf("PAtMostMDistinct: x=%d out of range [0,%d]", x, t.Max())
	}
	p := 1.0
	logN1, _ := math.Lgamma(float64(n + 1))
	for u := m + 1; u <= x && u <= n; u++ {
		if t.r[x][u] == 0 {
			continue
		}
		// z = r[x][u] * (u/n)^x * choose(n,u), in log space since the middle
		// factor underflows long before the binomial coefficient overflows.
		lu1, _ := math.Lgamma(float64(u + 1))
		lnu1, _ := math.Lgamma(float64(n - u + 1))
		logZ := math.Log(t.r[x][u]) + float64(x)*math.Log(float64(u)/float64(n)) + logN1 - lu1 - lnu1
		p -= math.Exp(logZ)
	}
	if p < 0 {
		p = 0
	}
	return p
}
