// SPDX-License-Identifier: Unlicense OR MIT

package scroll

import (
	"context"
	"math/rand"
	"testing"

	"github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"
	"github.com/maksym-radziwill/p9wl-sub001/internal/phase"
	"github.com/maksym-radziwill/p9wl-sub001/internal/pool"
)

func textured(w, h int, seed int64) *fbuf.Buffer {
	b := fbuf.New(w, h)
	r := rand.New(rand.NewSource(seed))
	for y := 0; y < h; y++ {
		row := b.Row(y)
		for x := 0; x < len(row); x += 4 {
			v := byte(r.Intn(256))
			row[x], row[x+1], row[x+2], row[x+3] = v, v, v, 0
		}
	}
	return b
}

func shifted(src *fbuf.Buffer, dx, dy int) *fbuf.Buffer {
	dst := fbuf.New(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		sy := ((y-dy)%src.Height + src.Height) % src.Height
		for x := 0; x < src.Width; x++ {
			sx := ((x-dx)%src.Width + src.Width) % src.Width
			copy(dst.Row(y)[x*4:x*4+4], src.Row(sy)[sx*4:sx*4+4])
		}
	}
	return dst
}

func TestGridCapsAtMaxRegions(t *testing.T) {
	regions := grid(4096, 4096)
	if len(regions) > MaxRegions {
		t.Fatalf("grid produced %d regions, want <= %d", len(regions), MaxRegions)
	}
}

func TestGridSmallFrameSingleRegion(t *testing.T) {
	regions := grid(100, 100)
	if len(regions) != 1 {
		t.Fatalf("grid(100,100) = %d regions, want 1", len(regions))
	}
	r := regions[0]
	if r.X0 != 0 || r.Y0 != 0 || r.X1 != 100 || r.Y1 != 100 {
		t.Fatalf("unexpected region bounds: %+v", r)
	}
}

func TestDetectAcceptsKnownShift(t *testing.T) {
	cur := textured(256, 256, 7)
	prev := shifted(cur, 5, -3)

	p := pool.New()
	defer p.Close()
	ctx := context.Background()
	ws := phase.NewWorkspacePool(ctx, phase.N, pool.MaxWorkers)
	defer ws.Close(ctx)
	engine := phase.NewEngine()
	d := New(engine, ws)

	results := d.Detect(ctx, p, cur, prev, 32)
	if len(results) != 1 {
		t.Fatalf("expected single region for a 256x256 frame, got %d", len(results))
	}
	r := results[0]
	if !r.Accepted {
		t.Fatal("expected the shift to be accepted")
	}
	if r.DX != -5 || r.DY != 3 {
		t.Fatalf("dx,dy = %d,%d want -5,3", r.DX, r.DY)
	}
}

func TestDetectRejectsShiftExceedingHalfRegion(t *testing.T) {
	// A 32x32 region with a shift of 20 exceeds half its own
	// dimension (16) on both axes, so even if phase correlation found
	// it, the false-peak guard must reject it.
	cur := textured(32, 32, 11)
	prev := shifted(cur, 20, 0)

	p := pool.New()
	defer p.Close()
	ctx := context.Background()
	ws := phase.NewWorkspacePool(ctx, phase.N, pool.MaxWorkers)
	defer ws.Close(ctx)
	d := New(phase.NewEngine(), ws)

	results := d.Detect(ctx, p, cur, prev, 32)
	if len(results) != 1 {
		t.Fatalf("expected single region, got %d", len(results))
	}
	if results[0].Accepted {
		t.Fatal("expected shift exceeding half the region dimension to be rejected")
	}
}

func TestApplyShiftNoopWhenNotAccepted(t *testing.T) {
	prev := textured(64, 64, 3)
	before := append([]byte(nil), prev.Pix...)
	ApplyShift(prev, Region{X0: 0, Y0: 0, X1: 64, Y1: 64, Accepted: false})
	for i := range before {
		if prev.Pix[i] != before[i] {
			t.Fatal("ApplyShift mutated buffer despite Accepted=false")
		}
	}
}
