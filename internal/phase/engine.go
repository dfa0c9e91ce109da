// SPDX-License-Identifier: Unlicense OR MIT

package phase

import (
	"math"
	"math/cmplx"

	"github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"
)

// Engine runs phase correlation over workspaces handed to it; it holds
// no per-call state of its own (workspaces are owned by the caller,
// one per worker — see enginepool.go).
type Engine struct{}

// NewEngine returns a stateless phase-correlation engine.
func NewEngine() *Engine { return &Engine{} }

// minRegion is the smallest region phase correlation will accept.
const minRegion = 16

// Correlate detects the integer translation between region [x0,y0,x1,y1)
// of a and the identical rectangle of b, searching offsets in
// [-maxShift, maxShift]^2. valid is false iff the region is smaller
// than 16x16 or a resource allocation failed; it never panics.
func (e *Engine) Correlate(ws *Workspace, a, b *fbuf.Buffer, x0, y0, x1, y1, maxShift int) (dx, dy int, valid bool) {
	w, h := x1-x0, y1-y0
	if w < minRegion || h < minRegion {
		return 0, 0, false
	}
	if ws == nil {
		return 0, 0, false
	}
	n := ws.n
	s := maxShift
	if m := w / 2; s > m {
		s = m
	}
	if m := h / 2; s > m {
		s = m
	}
	if m := n / 2; s > m {
		s = m
	}
	if s < 1 {
		return 0, 0, false
	}

	lut := hann(n)

	grayA := resampleToN(extractGray(a, x0, y0, x1, y1), n)
	grayB := resampleToN(extractGray(b, x0, y0, x1, y1), n)
	windowInto(ws.realA, grayA, n, lut)
	windowInto(ws.realB, grayB, n, lut)

	for i, v := range ws.realA {
		ws.specA[i] = complex(v, 0)
	}
	for i, v := range ws.realB {
		ws.specB[i] = complex(v, 0)
	}
	fft2D(ws.fwdPlan, ws.specA, n)
	fft2D(ws.fwdPlan, ws.specB, n)

	for i := range ws.cross {
		c := ws.specA[i] * cmplx.Conj(ws.specB[i])
		mag := cmplx.Abs(c)
		if mag < 1e-10 {
			ws.cross[i] = 0
		} else {
			ws.cross[i] = c / complex(mag, 0)
		}
	}
	fft2D(ws.invPlan, ws.cross, n)
	for i, c := range ws.cross {
		ws.corr[i] = real(c)
	}

	bestVal := math.Inf(-1)
	bestDX, bestDY := 0, 0
	for oy := -s; oy <= s; oy++ {
		iy := wrap(oy, n)
		for ox := -s; ox <= s; ox++ {
			ix := wrap(ox, n)
			v := ws.corr[iy*n+ix]
			if v > bestVal {
				bestVal = v
				bestDX, bestDY = ox, oy
			}
		}
	}
	return bestDX, bestDY, true
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
