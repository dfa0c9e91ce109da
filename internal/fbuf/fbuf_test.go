// SPDX-License-Identifier: Unlicense OR MIT

package fbuf

import "testing"

func TestTileDirtyDetectsDifference(t *testing.T) {
	cur := New(32, 32)
	prev := New(32, 32)
	if TileDirty(cur, prev, 0, 0, 16) {
		t.Fatal("identical buffers reported dirty")
	}
	cur.Row(0)[0] = 0xff
	if !TileDirty(cur, prev, 0, 0, 16) {
		t.Fatal("differing tile reported clean")
	}
	if TileDirty(cur, prev, 1, 1, 16) {
		t.Fatal("untouched tile reported dirty")
	}
}

func TestTileRectClipsEdgeTiles(t *testing.T) {
	b := New(20, 20)
	nx, ny := b.TileCounts(16)
	if nx != 2 || ny != 2 {
		t.Fatalf("TileCounts(16) = %d,%d want 2,2", nx, ny)
	}
	x0, y0, x1, y1 := b.TileRect(1, 1, 16)
	if x0 != 16 || y0 != 16 || x1 != 20 || y1 != 20 {
		t.Fatalf("TileRect(1,1) = %d,%d,%d,%d want 16,16,20,20", x0, y0, x1, y1)
	}
}

func TestCopyTileFromAdvancesPrevious(t *testing.T) {
	cur := New(16, 16)
	prev := New(16, 16)
	for i := range cur.Pix {
		cur.Pix[i] = 0x42
	}
	if err := prev.CopyTileFrom(cur, 0, 0, 16); err != nil {
		t.Fatal(err)
	}
	if TileDirty(cur, prev, 0, 0, 16) {
		t.Fatal("prev not updated by CopyTileFrom")
	}
}

func TestShiftRegionTranslatesPixels(t *testing.T) {
	b := New(4, 4)
	// Mark row 0 with a distinct value.
	for x := 0; x < 4; x++ {
		b.Row(0)[x*4] = 0xaa
	}
	b.ShiftRegion(0, 0, 4, 4, 0, 1)
	if b.Row(1)[0] != 0xaa {
		t.Fatalf("row not shifted down: %v", b.Row(1))
	}
}

func TestResizePreservesCapacityWhenShrinking(t *testing.T) {
	b := New(64, 64)
	orig := cap(b.Pix)
	b.Resize(16, 16)
	if len(b.Pix) != 16*16*BytesPerPixel {
		t.Fatalf("len after shrink = %d", len(b.Pix))
	}
	if cap(b.Pix) != orig {
		t.Fatalf("shrink reallocated: cap=%d want %d", cap(b.Pix), orig)
	}
}
