// SPDX-License-Identifier: Unlicense OR MIT

package tile

import "github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"

// Mode identifies which of the two compression strategies produced a
// tile's payload.
type Mode int

const (
	// ModeRaw means the scratch bound was exceeded by both
	// compressed forms; the payload is uncompressed pixels.
	ModeRaw Mode = iota
	ModeDirect
	ModeDelta
)

// deltaMargin is the minimum byte advantage delta must have over
// direct before it is preferred.
const deltaMargin = 8

// Codec compresses one tile at a time against a previous framebuffer.
type Codec struct {
	scratchBound int
}

// NewCodec creates a codec whose compressed forms must fit within
// scratchBound bytes or the raw fallback is used.
func NewCodec(scratchBound int) *Codec {
	return &Codec{scratchBound: scratchBound}
}

// ScratchBound returns the byte bound compressed payloads must fit
// within, so callers can size their own encode buffer.
func (c *Codec) ScratchBound() int { return c.scratchBound }

// rawSize is the uncompressed byte size of a w x h tile.
func rawSize(w, h int) int { return w * h * fbuf.BytesPerPixel }

func extractTile(buf *fbuf.Buffer, x0, y0, x1, y1 int, dst []byte) {
	w := (x1 - x0) * fbuf.BytesPerPixel
	n := 0
	for y := y0; y < y1; y++ {
		row := buf.Row(y)[x0*fbuf.BytesPerPixel : x0*fbuf.BytesPerPixel+w]
		copy(dst[n:n+w], row)
		n += w
	}
}

func xorTile(buf, prev *fbuf.Buffer, x0, y0, x1, y1 int, dst []byte) {
	w := (x1 - x0) * fbuf.BytesPerPixel
	n := 0
	for y := y0; y < y1; y++ {
		curRow := buf.Row(y)[x0*fbuf.BytesPerPixel : x0*fbuf.BytesPerPixel+w]
		prevRow := prev.Row(y)[x0*fbuf.BytesPerPixel : x0*fbuf.BytesPerPixel+w]
		for i := 0; i < w; i++ {
			dst[n+i] = curRow[i] ^ prevRow[i]
		}
		n += w
	}
}

// EncodeSigned encodes tile (x0,y0,x1,y1) of cur against prev into
// dst, returning a signed size per wire contract: positive
// = delta payload length, negative (its absolute value) = direct
// payload length, zero = raw fallback (whose length is always
// rawSize(w,h), recoverable from the rectangle alone — the "self
// delimiting given the tile rectangle and mode byte" invariant).
// prevValid indicates whether prev currently holds meaningful data for
// this region (it does not after a full-refresh invalidation).
func (c *Codec) EncodeSigned(dst []byte, cur, prev *fbuf.Buffer, x0, y0, x1, y1 int, prevValid bool) (size int, mode Mode) {
	w, h := x1-x0, y1-y0
	raw := rawSize(w, h)

	direct := make([]byte, raw)
	extractTile(cur, x0, y0, x1, y1, direct)
	directBuf := make([]byte, c.scratchBound)
	directN, directOK := compressPackBits(directBuf, direct)

	var deltaN int
	var deltaOK bool
	var deltaBuf []byte
	if prevValid {
		delta := make([]byte, raw)
		xorTile(cur, prev, x0, y0, x1, y1, delta)
		deltaBuf = make([]byte, c.scratchBound)
		deltaN, deltaOK = compressPackBits(deltaBuf, delta)
	}

	useDelta := prevValid && deltaOK && (!directOK || deltaN+deltaMargin < directN)
	switch {
	case useDelta:
		copy(dst, deltaBuf[:deltaN])
		return deltaN, ModeDelta
	case directOK:
		copy(dst, directBuf[:directN])
		return -directN, ModeDirect
	default:
		copy(dst, direct)
		return 0, ModeRaw
	}
}
