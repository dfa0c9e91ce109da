// SPDX-License-Identifier: Unlicense OR MIT

// Package scroll partitions a frame into regions and runs the phase
// engine over each in parallel, looking for whole-region translations
// that the remote side can satisfy with a cheap copy instead of a
// pile of dirty tiles.
package scroll

import (
	"context"

	"github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"
	"github.com/maksym-radziwill/p9wl-sub001/internal/phase"
	"github.com/maksym-radziwill/p9wl-sub001/internal/pool"
)

// MaxRegionSize is the longest side a region may have before the grid
// is subdivided further.
const MaxRegionSize = 512

// MaxRegions caps the grid regardless of screen size.
const MaxRegions = 128

// Region is one grid cell's detection result.
type Region struct {
	X0, Y0, X1, Y1 int
	DX, DY         int
	Accepted       bool
}

// Detector runs the scroll-detection pass. It holds no per-frame
// state; the phase engine and its workspace pool are fixed at
// construction, and the worker pool is passed to each Detect call.
type Detector struct {
	engine *phase.Engine
	ws     *phase.WorkspacePool
}

// New creates a detector over the given phase engine and workspace
// pool (one workspace per pool worker, see phase.WorkspacePool).
func New(engine *phase.Engine, ws *phase.WorkspacePool) *Detector {
	return &Detector{engine: engine, ws: ws}
}

// grid computes the region rectangles covering a width x height
// frame, keeping each region's longest side at or below
// MaxRegionSize and the total region count at or below MaxRegions.
func grid(width, height int) []Region {
	size := MaxRegionSize
	for {
		nx := (width + size - 1) / size
		ny := (height + size - 1) / size
		if nx < 1 {
			nx = 1
		}
		if ny < 1 {
			ny = 1
		}
		if nx*ny <= MaxRegions {
			regions := make([]Region, 0, nx*ny)
			for ty := 0; ty < ny; ty++ {
				y0 := ty * size
				y1 := y0 + size
				if y1 > height {
					y1 = height
				}
				for tx := 0; tx < nx; tx++ {
					x0 := tx * size
					x1 := x0 + size
					if x1 > width {
						x1 = width
					}
					regions = append(regions, Region{X0: x0, Y0: y0, X1: x1, Y1: y1})
				}
			}
			return regions
		}
		size *= 2
	}
}

// Detect runs the phase engine over every grid region in parallel via
// pool, accepting a region's displacement iff |dx|+|dy| >= 1, both
// components are within maxShift, and the shift does not exceed half
// the region's own dimension (false-peak rejection edge
// case). Regions are returned in row-major grid order.
func (d *Detector) Detect(ctx context.Context, p *pool.Pool, cur, prev *fbuf.Buffer, maxShift int) []Region {
	regions := grid(cur.Width, cur.Height)
	p.ParallelFor(ctx, len(regions), func(ctx context.Context, workerID, i int) {
		r := &regions[i]
		ws, err := d.ws.Get(ctx, workerID)
		if err != nil {
			return
		}
		dx, dy, valid := d.engine.Correlate(ws, cur, prev, r.X0, r.Y0, r.X1, r.Y1, maxShift)
		if !valid {
			return
		}
		if dx == 0 && dy == 0 {
			return
		}
		absShift := dx
		if absShift < 0 {
			absShift = -absShift
		}
		absDY := dy
		if absDY < 0 {
			absDY = -absDY
		}
		if absShift+absDY < 1 {
			return
		}
		w, h := r.X1-r.X0, r.Y1-r.Y0
		if absShift > w/2 || absDY > h/2 {
			return
		}
		r.DX, r.DY, r.Accepted = dx, dy, true
	})
	return regions
}

// ApplyShift updates the previous framebuffer's region content to
// reflect an accepted scroll, so subsequent per-tile diffing only
// picks up the residual.
func ApplyShift(prev *fbuf.Buffer, r Region) {
	if !r.Accepted {
		return
	}
	prev.ShiftRegion(r.X0, r.Y0, r.X1, r.Y1, r.DX, r.DY)
}
