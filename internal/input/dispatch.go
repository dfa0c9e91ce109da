// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs"
)

// WctlRect is the four integers /dev/wctl reports.
type WctlRect struct {
	X0, Y0, X1, Y1 int
}

// Dispatcher owns the three reader goroutines and the shared ring
// they push events into.
type Dispatcher struct {
	Ring *Ring
	Wake *WakePipe

	fs FS

	onWindowChanged func(WctlRect)

	baseline *WctlRect
}

// FS is the subset of p9fs.FS the dispatcher needs; kept narrow so
// tests can supply a fake without a full draw-channel mount.
type FS interface {
	Open(ctx context.Context, name string, mode p9fs.OpenMode) (p9fs.File, error)
}

// NewDispatcher creates a dispatcher over fs, pushing parsed events
// into ring (waking wake on every push) and invoking onWindowChanged
// whenever /dev/wctl reports a new rectangle.
func NewDispatcher(fs FS, ring *Ring, wake *WakePipe, onWindowChanged func(WctlRect)) *Dispatcher {
	return &Dispatcher{Ring: ring, Wake: wake, fs: fs, onWindowChanged: onWindowChanged}
}

// Run starts the keyboard, mouse and wctl readers and blocks until one
// fails or ctx is cancelled; a 9P disconnect on any single reader is
// thus observed promptly by the rest of the process.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.readMouse(ctx) })
	g.Go(func() error { return d.readKeyboard(ctx) })
	g.Go(func() error { return d.readWctl(ctx) })
	return g.Wait()
}

// mouseRecordSize is /dev/mouse's fixed wire record: a one-byte tag
// followed by four space-padded 11-character decimal fields. Records
// aren't newline-delimited, so they're read by fixed size rather than
// line-scanned.
const mouseRecordSize = 49

func (d *Dispatcher) readMouse(ctx context.Context) error {
	f, err := d.fs.Open(ctx, "mouse", p9fs.OREAD)
	if err != nil {
		return err
	}
	defer f.Close()
	buf := make([]byte, mouseRecordSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			if err == io.EOF {
				return errors.New("input: mouse file closed")
			}
			return err
		}
		ev, ok, err := parseMouse(string(buf))
		if err != nil {
			continue
		}
		if ok {
			d.push(ev)
		}
	}
}

func (d *Dispatcher) readKeyboard(ctx context.Context) error {
	f, err := d.fs.Open(ctx, "kbd", p9fs.OREAD)
	if err != nil {
		return d.readConsole(ctx)
	}
	defer f.Close()
	dec := newKeyboardDecoder()
	scanner := newKBDScanner(f)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, ev := range dec.decode(string(scanner.Bytes())) {
			d.push(ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return errors.New("input: keyboard file closed")
}

// readConsole is the fallback keyboard source used when /dev/kbd is
// absent: it switches /dev/cons into raw mode via /dev/consctl and
// treats every rune read from /dev/cons as an immediate press+release,
// the same handling decode already gives a 'c' message.
func (d *Dispatcher) readConsole(ctx context.Context) error {
	ctl, err := d.fs.Open(ctx, "consctl", p9fs.OWRITE)
	if err != nil {
		return fmt.Errorf("input: kbd and consctl both unavailable: %w", err)
	}
	defer ctl.Close()
	if _, err := ctl.Write([]byte("rawon")); err != nil {
		return fmt.Errorf("input: consctl rawon: %w", err)
	}

	cons, err := d.fs.Open(ctx, "cons", p9fs.OREAD)
	if err != nil {
		return fmt.Errorf("input: open cons: %w", err)
	}
	defer cons.Close()

	dec := newKeyboardDecoder()
	r := bufio.NewReader(cons)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rn, _, err := r.ReadRune()
		if err != nil {
			return err
		}
		for _, ev := range dec.decode("c" + string(rn)) {
			d.push(ev)
		}
	}
}

// wctlPollInterval is the fixed open/read/close poll period.
const wctlPollInterval = 50 * time.Millisecond

func (d *Dispatcher) readWctl(ctx context.Context) error {
	ticker := time.NewTicker(wctlPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		rect, err := d.pollWctl(ctx)
		if err != nil {
			continue
		}
		if d.baseline == nil {
			b := rect
			d.baseline = &b
			continue
		}
		if rect != *d.baseline {
			b := rect
			d.baseline = &b
			d.push(Event{Kind: EventResize, X: rect.X0, Y: rect.Y0})
			if d.onWindowChanged != nil {
				d.onWindowChanged(rect)
			}
		}
	}
}

func (d *Dispatcher) pollWctl(ctx context.Context) (WctlRect, error) {
	f, err := d.fs.Open(ctx, "wctl", p9fs.OREAD)
	if err != nil {
		return WctlRect{}, err
	}
	defer f.Close()
	var buf [256]byte
	n, err := f.Read(buf[:])
	if err != nil && n == 0 {
		return WctlRect{}, err
	}
	return parseWctl(string(buf[:n]))
}

func (d *Dispatcher) push(ev Event) {
	d.Ring.Push(ev)
}
