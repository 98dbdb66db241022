package stats

import (
	"math"

	"github.com/grailbio/base/log"
)

// PartialBernoulliSum returns sum(choose(n, i), i = 0..k).
//
// REQUIRES: n >= 1, k <= n.
func PartialBernoulliSum(n, k int) float64 {
	if n < 1 {
		log.Panicf("PartialBernoulliSum: n=%d, want n >= 1", n)
	}
	if k < 0 || k > n {
		log.Panicf("PartialBernoulliSum: k=%d out of range [0,%d]", k, n)
	}
	var (
		sum    float64
		choose = 1.0
	)
	for i := 0; i <= k; i++ {
		sum += choose
		choose *= float64(n - i)
		choose /= float64(i + 1)
	}
	return sum
}

// BinomialSum returns the probability of at most k successes in n independent
// trials, each succeeding with probability p.
//
// REQUIRES: n >= 1, k <= n, 0 <= p < 1.
func BinomialSum(n, k int, p float64) float64 {
	if n < 1 {
		log.Panicf("BinomialSum: n=%d, want n >= 1", n)
	}
	if k < 0 || k > n {
		log.Panicf("BinomialSum: k=%d out of range [0,%d]", k, n)
	}
	if p < 0 || p >= 1 {
		log.Panicf("BinomialSum: p=%v out of range [0,1)", p)
	}
	var sum float64
	choose := math.Pow(1-p, float64(n))
	q := p / (1 - p)
	for i := 0; i <= k; i++ {
		sum += choose
		choose *= float64(n - i)
		choose /= float64(i + 1)
		choose *= q
	}
	return sum
}
