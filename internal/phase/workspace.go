// SPDX-License-Identifier: Unlicense OR MIT

// Package phase implements phase-correlation-based detection of
// integer (dx, dy) translation between two equal-sized image regions,
// the engine the scroll detector drives per region.
package phase

// N is the fixed FFT window size (power of two).
const N = 256

// Workspace is the per-worker set of buffers the phase-correlation
// engine needs: two real input arrays, two complex spectra, one cross
// spectrum, one real correlation surface, and two FFT plans: one
// forward plan, run once for each input, and one inverse plan. It is
// created lazily on first use by a
// worker and retained until shutdown; the pool package
// keyed by worker ID owns that lifecycle (see enginepool.go).
type Workspace struct {
	n int

	realA, realB []float64
	specA, specB []complex128
	cross        []complex128
	corr         []float64

	fwdPlan *plan
	invPlan *plan
}

// NewWorkspace allocates a workspace for an N x N transform. Returns
// an error (never panics) if plan construction fails, matching the
// spec's "allocation failure returns valid=false" contract one layer
// up in Engine.Correlate.
func NewWorkspace(n int) (*Workspace, error) {
	fwd, err := getPlan(n, false)
	if err != nil {
		return nil, err
	}
	inv, err := getPlan(n, true)
	if err != nil {
		return nil, err
	}
	w := &Workspace{
		n:       n,
		realA:   make([]float64, n*n),
		realB:   make([]float64, n*n),
		specA:   make([]complex128, n*n),
		specB:   make([]complex128, n*n),
		cross:   make([]complex128, n*n),
		corr:    make([]float64, n*n),
		fwdPlan: fwd,
		invPlan: inv,
	}
	return w, nil
}
