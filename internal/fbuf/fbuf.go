// SPDX-License-Identifier: Unlicense OR MIT

// Package fbuf implements the fixed-stride XRGB framebuffer shared by
// the scene renderer, the tile codec and the scroll detector.
package fbuf

import "fmt"

// Buffer is a fixed-stride grid of 32-bit XRGB pixels: blue, green,
// red, padding, low byte first.
type Buffer struct {
	Width, Height int
	Pix           []byte
}

// BytesPerPixel is fixed by the wire format.
const BytesPerPixel = 4

// New allocates a buffer of the given dimensions, zero-filled.
func New(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// Stride is the number of bytes per row.
func (b *Buffer) Stride() int {
	return b.Width * BytesPerPixel
}

// Resize reallocates Pix for new dimensions, discarding old content.
// Called on window resize; the previous framebuffer is force-refreshed
// by the caller afterwards.
func (b *Buffer) Resize(width, height int) {
	b.Width, b.Height = width, height
	need := width * height * BytesPerPixel
	if cap(b.Pix) >= need {
		b.Pix = b.Pix[:need]
	} else {
		b.Pix = make([]byte, need)
	}
}

// RowOffset returns the byte offset of row y.
func (b *Buffer) RowOffset(y int) int {
	return y * b.Stride()
}

// Row returns the byte slice for row y.
func (b *Buffer) Row(y int) []byte {
	off := b.RowOffset(y)
	return b.Pix[off : off+b.Stride()]
}

// Fill sets every pixel to the given XRGB value, used to invalidate the
// previous framebuffer with a sentinel that can never match real
// content.
func (b *Buffer) Fill(sentinel [4]byte) {
	for y := 0; y < b.Height; y++ {
		row := b.Row(y)
		for i := 0; i < len(row); i += 4 {
			copy(row[i:i+4], sentinel[:])
		}
	}
}

// SameDims reports whether two buffers share dimensions, the invariant
// required between the live and previous buffers.
func SameDims(a, b *Buffer) bool {
	return a.Width == b.Width && a.Height == b.Height
}

// TileRect is the pixel rectangle covered by tile (tx, ty), clipped to
// the buffer bounds at the right/bottom edge.
func (b *Buffer) TileRect(tx, ty, tileSize int) (x0, y0, x1, y1 int) {
	x0, y0 = tx*tileSize, ty*tileSize
	x1, y1 = x0+tileSize, y0+tileSize
	if x1 > b.Width {
		x1 = b.Width
	}
	if y1 > b.Height {
		y1 = b.Height
	}
	return
}

// TileCounts returns the number of tiles along each axis, rounding up
// for a clipped edge tile.
func (b *Buffer) TileCounts(tileSize int) (nx, ny int) {
	nx = (b.Width + tileSize - 1) / tileSize
	ny = (b.Height + tileSize - 1) / tileSize
	return
}

// CopyTileFrom copies the pixel rectangle of tile (tx,ty) from src into
// b at the same location, used to advance the previous framebuffer
// after a transmitted tile.
func (b *Buffer) CopyTileFrom(src *Buffer, tx, ty, tileSize int) error {
	if !SameDims(b, src) {
		return fmt.Errorf("fbuf: CopyTileFrom: dimension mismatch %dx%d vs %dx%d", b.Width, b.Height, src.Width, src.Height)
	}
	x0, y0, x1, y1 := b.TileRect(tx, ty, tileSize)
	rowBytes := (x1 - x0) * BytesPerPixel
	for y := y0; y < y1; y++ {
		srcRow := src.Row(y)[x0*BytesPerPixel:]
		dstRow := b.Row(y)[x0*BytesPerPixel:]
		copy(dstRow[:rowBytes], srcRow[:rowBytes])
	}
	return nil
}

// TileDirty reports whether tile (tx,ty) differs between cur and prev
// by a byte-wise comparison of each row.
func TileDirty(cur, prev *Buffer, tx, ty, tileSize int) bool {
	x0, y0, x1, y1 := cur.TileRect(tx, ty, tileSize)
	rowBytes := (x1 - x0) * BytesPerPixel
	for y := y0; y < y1; y++ {
		a := cur.Row(y)[x0*BytesPerPixel:][:rowBytes]
		b := prev.Row(y)[x0*BytesPerPixel:][:rowBytes]
		for i := range a {
			if a[i] != b[i] {
				return true
			}
		}
	}
	return false
}

// ShiftRegion translates the pixel rectangle [x0,x1)x[y0,y1) within the
// buffer by (dx, dy), used to advance the previous framebuffer after an accepted
// scroll detection so subsequent per-tile diffing only
// picks up the residual.
func (b *Buffer) ShiftRegion(x0, y0, x1, y1, dx, dy int) {
	w := x1 - x0
	h := y1 - y0
	if w <= 0 || h <= 0 {
		return
	}
	tmp := make([]byte, w*h*BytesPerPixel)
	for row := 0; row < h; row++ {
		sy := y0 + row
		src := b.Row(sy)[x0*BytesPerPixel : x1*BytesPerPixel]
		copy(tmp[row*w*BytesPerPixel:], src)
	}
	for row := 0; row < h; row++ {
		dyRow := row + dy
		if dyRow < 0 || dyRow >= h {
			continue
		}
		dstY := y0 + dyRow
		if dstY < 0 || dstY >= b.Height {
			continue
		}
		dst := b.Row(dstY)[x0*BytesPerPixel : x1*BytesPerPixel]
		for col := 0; col < w; col++ {
			sxCol := col - dx
			if sxCol < 0 || sxCol >= w {
				continue
			}
			copy(dst[col*BytesPerPixel:(col+1)*BytesPerPixel], tmp[(row*w+sxCol)*BytesPerPixel:][:BytesPerPixel])
		}
	}
}
