// SPDX-License-Identifier: Unlicense OR MIT

package phase

import (
	"math/rand"
	"testing"

	"github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"
)

// texturedBuffer fills a buffer with pseudo-random but deterministic
// noise so phase correlation has something to lock onto.
func texturedBuffer(w, h int, seed int64) *fbuf.Buffer {
	b := fbuf.New(w, h)
	r := rand.New(rand.NewSource(seed))
	for y := 0; y < h; y++ {
		row := b.Row(y)
		for x := 0; x < w; x++ {
			v := byte(r.Intn(256))
			row[x*4+0] = v
			row[x*4+1] = v
			row[x*4+2] = v
		}
	}
	return b
}

// shiftedCopy returns a buffer equal to src translated by (dx, dy),
// wrapping at the edges so the region stays fully textured.
func shiftedCopy(src *fbuf.Buffer, dx, dy int) *fbuf.Buffer {
	dst := fbuf.New(src.Width, src.Height)
	for y := 0; y < src.Height; y++ {
		sy := ((y-dy)%src.Height + src.Height) % src.Height
		srow := src.Row(sy)
		drow := dst.Row(y)
		for x := 0; x < src.Width; x++ {
			sx := ((x-dx)%src.Width + src.Width) % src.Width
			copy(drow[x*4:x*4+4], srow[sx*4:sx*4+4])
		}
	}
	return dst
}

func TestCorrelateDetectsKnownShift(t *testing.T) {
	ws, err := NewWorkspace(N)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine()
	base := texturedBuffer(N, N, 1)
	const wantDX, wantDY = 6, -4
	shifted := shiftedCopy(base, wantDX, wantDY)

	dx, dy, valid := e.Correlate(ws, shifted, base, 0, 0, N, N, N/4)
	if !valid {
		t.Fatal("Correlate reported invalid on a full-size textured region")
	}
	if dx != wantDX || dy != wantDY {
		t.Fatalf("Correlate = (%d,%d), want (%d,%d)", dx, dy, wantDX, wantDY)
	}
}

func TestCorrelateRejectsSubMinimumRegion(t *testing.T) {
	ws, err := NewWorkspace(N)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine()
	a := fbuf.New(15, 15)
	b := fbuf.New(15, 15)
	_, _, valid := e.Correlate(ws, a, b, 0, 0, 15, 15, 8)
	if valid {
		t.Fatal("15x15 region should be rejected as below the 16x16 minimum")
	}
}

func TestCorrelateAcceptsMinimumRegion(t *testing.T) {
	ws, err := NewWorkspace(N)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine()
	a := texturedBuffer(16, 16, 2)
	b := texturedBuffer(16, 16, 2)
	_, _, valid := e.Correlate(ws, a, b, 0, 0, 16, 16, 4)
	if !valid {
		t.Fatal("16x16 region should be the accepted minimum")
	}
}

func TestCorrelateNoTranslationReturnsZero(t *testing.T) {
	ws, err := NewWorkspace(N)
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine()
	base := texturedBuffer(N, N, 3)
	dx, dy, valid := e.Correlate(ws, base, base, 0, 0, N, N, N/4)
	if !valid {
		t.Fatal("identical regions should be valid")
	}
	if dx != 0 || dy != 0 {
		t.Fatalf("identical regions correlated to (%d,%d), want (0,0)", dx, dy)
	}
}
