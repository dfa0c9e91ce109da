// SPDX-License-Identifier: Unlicense OR MIT

// Package wire implements the outbound Plan 9 draw-channel opcode
// encoding and the Batch type that enforces the per-frame
// ordering invariant (scroll commands, then tile writes, then exactly
// one copy-to-screen, then exactly four border rectangles, then
// exactly one flush).
package wire

import (
	"encoding/binary"
	"fmt"
)

// Opcodes
const (
	OpRaw   byte = 'y' // dst-id, rect, raw pixel bytes
	OpTile  byte = 'Y' // dst-id, rect, compressed tile payload
	OpCopy  byte = 'd' // 11 32-bit values: screen/dst/mask ids, rects, points
	OpFlush byte = 'v' // no operands
)

func putU32(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

// AppendRaw encodes a 'y' command: dstID, rectangle, then raw pixels.
func AppendRaw(buf []byte, dstID, x0, y0, x1, y1 int32, pixels []byte) []byte {
	buf = append(buf, OpRaw)
	buf = appendRect(buf, dstID, x0, y0, x1, y1)
	return append(buf, pixels...)
}

// AppendTile encodes a 'Y' command: dstID, rectangle, then a
// compressed tile payload.
func AppendTile(buf []byte, dstID, x0, y0, x1, y1 int32, payload []byte) []byte {
	buf = append(buf, OpTile)
	buf = appendRect(buf, dstID, x0, y0, x1, y1)
	return append(buf, payload...)
}

func appendRect(buf []byte, dstID, x0, y0, x1, y1 int32) []byte {
	var tmp [20]byte
	putU32(tmp[0:], dstID)
	putU32(tmp[4:], x0)
	putU32(tmp[8:], y0)
	putU32(tmp[12:], x1)
	putU32(tmp[16:], y1)
	return append(buf, tmp[:]...)
}

// Draw11 is the payload of a 'd' command: screen/dst/mask image ids,
// a destination rectangle, a mask origin point, and a source origin
// point — eleven 32-bit values total.
type Draw11 struct {
	ScreenID, DstID, MaskID         int32
	DstX0, DstY0, DstX1, DstY1      int32
	MaskX, MaskY                    int32
	SrcX, SrcY                      int32
}

// AppendCopy encodes a 'd' command.
func AppendCopy(buf []byte, d Draw11) []byte {
	buf = append(buf, OpCopy)
	var tmp [44]byte
	vals := [11]int32{
		d.ScreenID, d.DstID, d.MaskID,
		d.DstX0, d.DstY0, d.DstX1, d.DstY1,
		d.MaskX, d.MaskY,
		d.SrcX, d.SrcY,
	}
	for i, v := range vals {
		putU32(tmp[i*4:], v)
	}
	return append(buf, tmp[:]...)
}

// AppendFlush encodes a 'v' command (no operands).
func AppendFlush(buf []byte) []byte {
	return append(buf, OpFlush)
}

// RawSize returns the wire size of a 'y' command for a rectangle of
// the given pixel dimensions.
func RawSize(w, h int) int {
	return 1 + 20 + w*h*4
}

// TileSize returns the wire size of a 'Y' command given a compressed
// payload length.
func TileSize(payloadLen int) int {
	return 1 + 20 + payloadLen
}

// CopySize is the fixed wire size of a 'd' command.
const CopySize = 1 + 44

// FlushSize is the fixed wire size of a 'v' command.
const FlushSize = 1

// phase tracks which part of a frame's command sequence is being
// built, enforcing ordering guarantee as an internal
// invariant (a violation is a programming error, not a protocol
// error — the protocol itself has no framing for phases).
type phase int

const (
	phaseScroll phase = iota
	phaseTiles
	phaseCopy
	phaseBorders
	phaseFlushed
)

// Batch accumulates one wire batch, rejecting out-of-order appends.
type Batch struct {
	buf        []byte
	phase      phase
	borderN    int
	maxBatch   int
}

// NewBatch creates an empty batch bounded by maxBatch bytes.
func NewBatch(maxBatch int) *Batch {
	return &Batch{maxBatch: maxBatch}
}

// Bytes returns the accumulated wire bytes.
func (b *Batch) Bytes() []byte { return b.buf }

// Len is the current accumulated byte length.
func (b *Batch) Len() int { return len(b.buf) }

// WouldExceed reports whether appending n more bytes would exceed
// maxBatch.
func (b *Batch) WouldExceed(n int) bool {
	return len(b.buf)+n > b.maxBatch
}

// Reset clears the batch for reuse, e.g. after it has been sent.
func (b *Batch) Reset() {
	b.buf = b.buf[:0]
	b.phase = phaseScroll
	b.borderN = 0
}

func (b *Batch) ScrollCopy(d Draw11) error {
	if b.phase != phaseScroll {
		return fmt.Errorf("wire: scroll command appended out of order (phase=%d)", b.phase)
	}
	b.buf = AppendCopy(b.buf, d)
	return nil
}

func (b *Batch) EndScrolls() {
	if b.phase == phaseScroll {
		b.phase = phaseTiles
	}
}

func (b *Batch) TileRaw(dstID, x0, y0, x1, y1 int32, pixels []byte) error {
	if err := b.enterTiles(); err != nil {
		return err
	}
	b.buf = AppendRaw(b.buf, dstID, x0, y0, x1, y1, pixels)
	return nil
}

func (b *Batch) TileCompressed(dstID, x0, y0, x1, y1 int32, payload []byte) error {
	if err := b.enterTiles(); err != nil {
		return err
	}
	b.buf = AppendTile(b.buf, dstID, x0, y0, x1, y1, payload)
	return nil
}

func (b *Batch) enterTiles() error {
	if b.phase == phaseScroll {
		b.phase = phaseTiles
	}
	if b.phase != phaseTiles {
		return fmt.Errorf("wire: tile command appended out of order (phase=%d)", b.phase)
	}
	return nil
}

// CopyToScreen appends the single commit-point 'd' command. May only be called once per batch sequence.
func (b *Batch) CopyToScreen(d Draw11) error {
	if b.phase == phaseScroll || b.phase == phaseTiles {
		b.phase = phaseCopy
	}
	if b.phase != phaseCopy {
		return fmt.Errorf("wire: copy-to-screen appended out of order (phase=%d)", b.phase)
	}
	b.buf = AppendCopy(b.buf, d)
	b.phase = phaseBorders
	return nil
}

// Border appends one of the exactly-four border rectangles.
func (b *Batch) Border(d Draw11) error {
	if b.phase != phaseBorders {
		return fmt.Errorf("wire: border appended out of order (phase=%d)", b.phase)
	}
	if b.borderN >= 4 {
		return fmt.Errorf("wire: more than four border commands appended")
	}
	b.buf = AppendCopy(b.buf, d)
	b.borderN++
	return nil
}

// Flush appends the trailing 'v' marker. Must be called after exactly
// four borders.
func (b *Batch) Flush() error {
	if b.phase != phaseBorders || b.borderN != 4 {
		return fmt.Errorf("wire: flush appended before four borders (phase=%d borderN=%d)", b.phase, b.borderN)
	}
	b.buf = AppendFlush(b.buf)
	b.phase = phaseFlushed
	return nil
}
