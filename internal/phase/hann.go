// SPDX-License-Identifier: Unlicense OR MIT

package phase

import (
	"math"
	"sync"
)

// hannLUT is the process-wide Hann window lookup table, a lazily
// initialised singleton shared by every workspace.
var (
	hannOnce sync.Once
	hannLUT  []float64
)

func hann(n int) []float64 {
	hannOnce.Do(func() {
		hannLUT = buildHann(n)
	})
	return hannLUT
}

func buildHann(n int) []float64 {
	lut := make([]float64, n)
	if n == 1 {
		lut[0] = 1
		return lut
	}
	for i := 0; i < n; i++ {
		lut[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return lut
}
