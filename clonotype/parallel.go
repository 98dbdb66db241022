package clonotype

import (
	"runtime"

	"github.com/grailbio/base/traverse"
)

// forEachOrbit runs fn(i) for i in [0,n) on opts.Parallelism workers.  fn
// must write only to state owned by index i.
func forEachOrbit(opts Opts, n int, fn func(i int)) error {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > n {
		parallelism = n
	}
	if parallelism == 0 {
		return nil
	}
	return traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * n) / parallelism
		endIdx := ((jobIdx + 1) * n) / parallelism
		for i := startIdx; i < endIdx; i++ {
			fn(i)
		}
		return nil
	})
}
