// SPDX-License-Identifier: Unlicense OR MIT

// Package sender implements the frame sender — the single long-lived
// goroutine that diffs, compresses, batches and writes tiles to the
// remote draw device, driving the scroll detector, tile codec and
// pipeline depth controller.
package sender

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"

	"github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"
	"github.com/maksym-radziwill/p9wl-sub001/internal/framequeue"
	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs"
	"github.com/maksym-radziwill/p9wl-sub001/internal/pipeline"
	"github.com/maksym-radziwill/p9wl-sub001/internal/pool"
	"github.com/maksym-radziwill/p9wl-sub001/internal/scroll"
	"github.com/maksym-radziwill/p9wl-sub001/internal/tile"
	"github.com/maksym-radziwill/p9wl-sub001/internal/wire"
)

// probeInterval is the idle-wait timeout that also triggers a
// periodic probe write.
const probeInterval = 2 * time.Second

// invalidSentinel fills the previous framebuffer after a remote draw
// error, guaranteeing the next frame diffs as fully dirty.
var invalidSentinel = [4]byte{0xff, 0x00, 0xff, 0x00}

// ErrUnknownID is returned (wrapped, recognised via errors.Is) by
// recvAck when the draw channel's acknowledgement byte is non-zero,
// which the sender takes as the remote reporting that an image id it
// was given no longer exists; that normally follows a resize or a
// reconnect.
var ErrUnknownID = errors.New("sender: remote reported unknown id")

// DrawIDs names the remote image ids used in copy/border commands.
type DrawIDs struct {
	Screen, Dst, Mask int32
}

// WindowRect is the remote window's position, size and title, as
// reported by /dev/wctl.
type WindowRect struct {
	X0, Y0, X1, Y1 int32
	Name           string
}

// WindowLookup re-resolves the remote window, called whenever the
// input package's wctl poller has flagged a change.
type WindowLookup func(ctx context.Context) (WindowRect, error)

// Sender owns the draw-channel writer and every per-frame controller.
type Sender struct {
	file p9fs.File
	ids  DrawIDs

	queue    *framequeue.Queue
	depth    *pipeline.Controller
	detector *scroll.Detector
	codec    *tile.Codec
	workers  *pool.Pool

	lookupWindow WindowLookup
	maxShift     int
	batchBound   int

	log zerolog.Logger

	prev          *fbuf.Buffer
	window        WindowRect
	forceFull     bool
	windowChanged func() bool
	resizePending func() bool
}

// Config collects Sender's dependencies.
type Config struct {
	File         p9fs.File
	IDs          DrawIDs
	Queue        *framequeue.Queue
	Depth        *pipeline.Controller
	Detector     *scroll.Detector
	Codec        *tile.Codec
	Workers      *pool.Pool
	LookupWindow WindowLookup
	MaxShift     int
	BatchBound   int
	Logger       zerolog.Logger

	// WindowChanged reports whether the wctl poller observed a change
	// since the last frame; ResizePending reports whether that change
	// is still being resolved (new dimensions not yet applied to the
	// live buffer). Both default to "never" if nil.
	WindowChanged func() bool
	ResizePending func() bool
}

// New creates a Sender over the given previous-framebuffer instance
// (created by the caller at the current window size).
func New(cfg Config, prev *fbuf.Buffer) *Sender {
	s := &Sender{
		file:          cfg.File,
		ids:           cfg.IDs,
		queue:         cfg.Queue,
		depth:         cfg.Depth,
		detector:      cfg.Detector,
		codec:         cfg.Codec,
		workers:       cfg.Workers,
		lookupWindow:  cfg.LookupWindow,
		maxShift:      cfg.MaxShift,
		batchBound:    cfg.BatchBound,
		log:           cfg.Logger,
		prev:          prev,
		windowChanged: cfg.WindowChanged,
		resizePending: cfg.ResizePending,
	}
	if s.windowChanged == nil {
		s.windowChanged = func() bool { return false }
	}
	if s.resizePending == nil {
		s.resizePending = func() bool { return false }
	}
	return s
}

// Run is the long-lived loop of: wait for a pending frame,
// a window change, shutdown, or a probe timeout, then run one frame.
func (s *Sender) Run(ctx context.Context) error {
	timer := time.NewTimer(probeInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.queue.Signal():
		case <-timer.C:
			if err := s.probe(ctx); err != nil {
				s.log.Warn().Err(err).Msg("sender: probe write failed")
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(probeInterval)

		if err := s.runPendingFrames(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error().Err(err).Msg("sender: frame failed")
			if s.log.GetLevel() <= zerolog.DebugLevel {
				s.log.Debug().Msg(spew.Sdump(s.window, s.forceFull, s.maxShift, s.batchBound))
			}
		}
	}
}

// runPendingFrames drains every frame currently queued, so a burst of
// submissions doesn't each wait a full loop iteration.
func (s *Sender) runPendingFrames(ctx context.Context) error {
	for {
		buf, ok := s.queue.TryClaim()
		if !ok {
			return nil
		}
		err := s.runFrame(ctx, buf)
		s.queue.Release()
		if err != nil {
			return err
		}
	}
}

func (s *Sender) probe(ctx context.Context) error {
	b := wire.NewBatch(s.batchBound)
	b.EndScrolls()
	if err := b.CopyToScreen(s.copyCommand(0, 0, 0, 0)); err != nil {
		return err
	}
	for i := 0; i < 4; i++ {
		if err := b.Border(s.copyCommand(0, 0, 0, 0)); err != nil {
			return err
		}
	}
	if err := b.Flush(); err != nil {
		return err
	}
	return s.send(b)
}

// runFrame implements nine-step per-frame algorithm.
func (s *Sender) runFrame(ctx context.Context, active *fbuf.Buffer) error {
	doFull := s.forceFull
	s.forceFull = false

	if s.windowChanged() {
		w, err := s.lookupWindow(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("sender: window lookup failed")
		} else {
			s.window = w
		}
		if s.resizePending() {
			return nil
		}
	}

	if !fbuf.SameDims(active, s.prev) {
		s.prev.Resize(active.Width, active.Height)
		doFull = true
	}

	var regions []scroll.Region
	if !doFull {
		regions = s.detector.Detect(ctx, s.workers, active, s.prev, s.maxShift)
	}

	batch := wire.NewBatch(s.batchBound)
	for _, r := range regions {
		if !r.Accepted {
			continue
		}
		if err := batch.ScrollCopy(s.scrollCommand(r)); err != nil {
			return err
		}
	}
	batch.EndScrolls()
	for _, r := range regions {
		scroll.ApplyShift(s.prev, r)
	}

	batches := 0
	pendingWrites := 0
	transmitted := make([]tile.Rect, 0)

	nx, ny := active.TileCounts(tile.Size)
	scratch := make([]byte, s.codec.ScratchBound())
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ {
			x0, y0, x1, y1 := active.TileRect(tx, ty, tile.Size)
			dirty := doFull || fbuf.TileDirty(active, s.prev, tx, ty, tile.Size)
			if !dirty {
				continue
			}
			size, mode := s.codec.EncodeSigned(scratch, active, s.prev, x0, y0, x1, y1, !doFull)
			payload := scratch[:absInt(size)]
			if mode == tile.ModeRaw {
				payload = rawTile(active, x0, y0, x1, y1)
			}

			wireLen := wireCommandLen(payload)
			if batch.WouldExceed(wireLen) && batch.Len() > 0 {
				if err := s.flushBatch(ctx, batch, &pendingWrites); err != nil {
					return err
				}
				batches++
				batch.Reset()
				batch.EndScrolls()
			}
			if err := appendTileCommand(batch, s.ids.Dst, mode, int32(x0), int32(y0), int32(x1), int32(y1), payload); err != nil {
				return err
			}
			transmitted = append(transmitted, tile.Rect{TX: tx, TY: ty})
		}
	}

	if err := batch.CopyToScreen(s.copyCommand(s.window.X0, s.window.Y0, s.window.X1, s.window.Y1)); err != nil {
		return err
	}
	for _, bd := range s.borderCommands() {
		if err := batch.Border(bd); err != nil {
			return err
		}
	}
	if err := batch.Flush(); err != nil {
		return err
	}
	sendStart := time.Now()
	if err := s.send(batch); err != nil {
		s.handleWriteError(err)
		return err
	}
	pendingWrites++
	batches++
	sendDone := time.Now()

	for pendingWrites > 0 {
		if err := s.recvAck(); err != nil {
			s.handleWriteError(err)
			return err
		}
		pendingWrites--
	}
	recvDone := time.Now()

	sendTime := sendDone.Sub(sendStart)
	drainTime := recvDone.Sub(sendDone)
	s.depth.Adjust(sendTime, drainTime, batches)

	for _, r := range transmitted {
		if err := s.prev.CopyTileFrom(active, r.TX, r.TY, tile.Size); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sender) flushBatch(ctx context.Context, b *wire.Batch, pendingWrites *int) error {
	if err := s.send(b); err != nil {
		return err
	}
	*pendingWrites++
	if *pendingWrites > s.depth.Depth() {
		if err := s.recvAck(); err != nil {
			return err
		}
		*pendingWrites--
	}
	return nil
}

func (s *Sender) send(b *wire.Batch) error {
	_, err := s.file.Write(b.Bytes())
	return err
}

// recvAck blocks for one response from the draw channel. The Plan 9
// draw protocol piggybacks errors on the next read; a short read is
// treated as an empty ack.
func (s *Sender) recvAck() error {
	var ack [1]byte
	n, err := s.file.Read(ack[:])
	if err != nil {
		return err
	}
	if n > 0 && ack[0] != 0 {
		return fmt.Errorf("sender: %w", ErrUnknownID)
	}
	return nil
}

func (s *Sender) handleWriteError(err error) {
	s.log.Warn().Err(err).Msg("sender: write error, invalidating previous frame")
	s.prev.Fill(invalidSentinel)
	s.forceFull = true
	if errors.Is(err, ErrUnknownID) || strings.Contains(err.Error(), "unknown id") {
		s.forceFull = true
	}
}

func (s *Sender) scrollCommand(r scroll.Region) wire.Draw11 {
	return wire.Draw11{
		ScreenID: s.ids.Screen, DstID: s.ids.Dst, MaskID: s.ids.Mask,
		DstX0: int32(r.X0), DstY0: int32(r.Y0), DstX1: int32(r.X1), DstY1: int32(r.Y1),
		SrcX: int32(r.X0 - r.DX), SrcY: int32(r.Y0 - r.DY),
	}
}

func (s *Sender) copyCommand(x0, y0, x1, y1 int32) wire.Draw11 {
	return wire.Draw11{
		ScreenID: s.ids.Screen, DstID: s.ids.Screen, MaskID: s.ids.Mask,
		DstX0: x0, DstY0: y0, DstX1: x1, DstY1: y1,
		SrcX: 0, SrcY: 0,
	}
}

// borderSize is the fixed thickness of the four border rectangles.
const borderSize = 4

func (s *Sender) borderCommands() [4]wire.Draw11 {
	w := s.window
	return [4]wire.Draw11{
		s.copyCommand(w.X0, w.Y0, w.X1, w.Y0+borderSize),          // top
		s.copyCommand(w.X0, w.Y1-borderSize, w.X1, w.Y1),          // bottom
		s.copyCommand(w.X0, w.Y0, w.X0+borderSize, w.Y1),          // left
		s.copyCommand(w.X1-borderSize, w.Y0, w.X1, w.Y1),          // right
	}
}

func rawTile(buf *fbuf.Buffer, x0, y0, x1, y1 int) []byte {
	w := (x1 - x0) * fbuf.BytesPerPixel
	out := make([]byte, 0, w*(y1-y0))
	for y := y0; y < y1; y++ {
		out = append(out, buf.Row(y)[x0*fbuf.BytesPerPixel:x0*fbuf.BytesPerPixel+w]...)
	}
	return out
}

// wireCommandLen is the wire size of a 'y' or 'Y' command carrying
// payload: both share the same 1-byte opcode + 20-byte rect header.
func wireCommandLen(payload []byte) int {
	return 1 + 20 + len(payload)
}

func appendTileCommand(b *wire.Batch, dstID int32, mode tile.Mode, x0, y0, x1, y1 int32, payload []byte) error {
	if mode == tile.ModeRaw {
		return b.TileRaw(dstID, x0, y0, x1, y1, payload)
	}
	return b.TileCompressed(dstID, x0, y0, x1, y1, payload)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
