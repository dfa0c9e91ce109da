// SPDX-License-Identifier: Unlicense OR MIT

// Command p9wl is the remote compositor process: it dials the Plan 9
// draw device, streams the local scene as diffed/compressed tiles,
// and translates the remote side's mouse, keyboard and window-control
// files back into local input and focus events.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/maksym-radziwill/p9wl-sub001/internal/config"
	"github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"
	"github.com/maksym-radziwill/p9wl-sub001/internal/focus"
	"github.com/maksym-radziwill/p9wl-sub001/internal/framequeue"
	"github.com/maksym-radziwill/p9wl-sub001/internal/input"
	"github.com/maksym-radziwill/p9wl-sub001/internal/keymap"
	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs"
	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs/dial9p"
	"github.com/maksym-radziwill/p9wl-sub001/internal/phase"
	"github.com/maksym-radziwill/p9wl-sub001/internal/pipeline"
	"github.com/maksym-radziwill/p9wl-sub001/internal/pool"
	"github.com/maksym-radziwill/p9wl-sub001/internal/scene"
	scenefake "github.com/maksym-radziwill/p9wl-sub001/internal/scene/fake"
	"github.com/maksym-radziwill/p9wl-sub001/internal/scroll"
	"github.com/maksym-radziwill/p9wl-sub001/internal/sender"
	"github.com/maksym-radziwill/p9wl-sub001/internal/tile"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// drawChannelPath is the draw device's write/read file within the
// attached mount. Plan 9's draw device doesn't name this file in the
// wire spec we were given (only the inbound files are named), so it
// is a configured constant rather than a guess embedded in protocol
// logic.
const drawChannelPath = "dev/draw/data"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "p9wl:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	network, address, err := dial9p.Address(cfg.Address)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	client, err := dial9p.Dial(ctx, network, address)
	if err != nil {
		return fmt.Errorf("setup: dial %s: %w", cfg.Address, err)
	}
	mount, err := client.Attach("p9wl", "")
	if err != nil {
		return fmt.Errorf("setup: attach: %w", err)
	}

	drawFile, err := mount.Open(ctx, drawChannelPath, p9fs.ORDWR)
	if err != nil {
		return fmt.Errorf("setup: open draw channel: %w", err)
	}
	defer drawFile.Close()

	window, err := lookupWindow(ctx, mount)
	if err != nil {
		return fmt.Errorf("setup: window lookup: %w", err)
	}
	width := int(window.X1 - window.X0)
	height := int(window.Y1 - window.Y0)
	if width <= 0 || height <= 0 {
		return fmt.Errorf("setup: degenerate window geometry %+v", window)
	}

	workers := pool.New()
	defer workers.Close()
	wsPool := phase.NewWorkspacePool(ctx, phase.N, pool.MaxWorkers)
	defer wsPool.Close(ctx)
	engine := phase.NewEngine()
	detector := scroll.New(engine, wsPool)
	codec := tile.NewCodec(cfg.TileScratchBound)
	depth := pipeline.New(cfg.MaxPipelineDepth)
	queue := framequeue.New(width, height)
	prev := fbuf.New(width, height)

	windowChanged := make(chan struct{}, 1)
	lookup := func(ctx context.Context) (sender.WindowRect, error) { return lookupWindow(ctx, mount) }

	frameSender := sender.New(sender.Config{
		File:         drawFile,
		IDs:          sender.DrawIDs{Screen: 0, Dst: 1, Mask: 0},
		Queue:        queue,
		Depth:        depth,
		Detector:     detector,
		Codec:        codec,
		Workers:      workers,
		LookupWindow: lookup,
		MaxShift:     cfg.MaxShift,
		BatchBound:   p9fs.BatchBound(drawFile.IOUnit(), mount.MSize()),
		Logger:       config.Component(log, "sender"),
		WindowChanged: func() bool {
			select {
			case <-windowChanged:
				return true
			default:
				return false
			}
		},
	}, prev)

	wake, err := input.NewWakePipe()
	if err != nil {
		return fmt.Errorf("setup: wake pipe: %w", err)
	}
	defer wake.Close()
	ring := input.NewRing(wake.Wake)
	dispatcher := input.NewDispatcher(mount, ring, wake, func(r input.WctlRect) {
		select {
		case windowChanged <- struct{}{}:
		default:
		}
		queue.Wake()
	})

	kbmapFile, err := mount.Open(ctx, cfg.KeymapPath, p9fs.OREAD)
	if err != nil {
		return fmt.Errorf("setup: open kbmap: %w", err)
	}
	keys, err := keymap.Load(kbmapFile)
	kbmapFile.Close()
	if err != nil {
		return fmt.Errorf("setup: load keymap: %w", err)
	}
	log.Info().Int("entries", keys.Len()).Msg("keymap loaded")

	// seat stands in for whatever concrete Wayland seat implementation
	// is plugged in behind scene.Seat; this tree owns the focus state
	// machine and input translation that drive it, not the protocol
	// binding itself (see DESIGN.md's entrypoint wiring notes).
	seat := scenefake.NewSeat(nil)
	fm := focus.NewMachine(nil, seatAdapter{seat})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return frameSender.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return runInputLoop(gctx, ring, wake, fm) })

	log.Info().Str("address", cfg.Address).Int("width", width).Int("height", height).Msg("p9wl started")

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return fmt.Errorf("runtime: %w", err)
	}
	return nil
}

// seatAdapter narrows scene.Seat's SurfaceID-typed methods to the
// plain uint64 signature focus.Machine drives.
type seatAdapter struct{ seat scene.Seat }

func (a seatAdapter) SetPointerFocus(id uint64, ok bool) {
	a.seat.SetPointerFocus(scene.SurfaceID(id), ok)
}
func (a seatAdapter) SetKeyboardFocus(id uint64, ok bool) {
	a.seat.SetKeyboardFocus(scene.SurfaceID(id), ok)
}

// runInputLoop drains the ring buffer, translating each mouse event's
// button state into a focus-machine SetButtonsHeld call; keyboard,
// modifier and resize events are drained without further handling. It is the main event-loop
// goroutine's stand-in since this tree has no retained Wayland event
// loop of its own; it blocks on the wake pipe exactly as a real
// event loop would register it with epoll/kqueue.
func runInputLoop(ctx context.Context, ring *input.Ring, wake *input.WakePipe, fm *focus.Machine) error {
	pfd := []unix.PollFd{{Fd: int32(wake.ReadFD()), Events: unix.POLLIN}}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for {
			ev, ok := ring.Pop()
			if !ok {
				break
			}
			if ev.Kind == input.EventMouse {
				held := 0
				if ev.Buttons != 0 {
					held = 1
				}
				fm.SetButtonsHeld(held)
			}
		}
		wake.Drain()
		if _, err := unix.Poll(pfd, 250); err != nil && err != unix.EINTR {
			return fmt.Errorf("input loop: poll: %w", err)
		}
	}
}

func lookupWindow(ctx context.Context, mount *dial9p.Mount) (sender.WindowRect, error) {
	f, err := mount.Open(ctx, "dev/wctl", p9fs.OREAD)
	if err != nil {
		return sender.WindowRect{}, err
	}
	defer f.Close()
	var buf [256]byte
	n, err := f.Read(buf[:])
	if err != nil {
		return sender.WindowRect{}, err
	}
	var x0, y0, x1, y1 int32
	if _, err := fmt.Sscanf(string(buf[:n]), "%d %d %d %d", &x0, &y0, &x1, &y1); err != nil {
		return sender.WindowRect{}, fmt.Errorf("parse wctl: %w", err)
	}
	return sender.WindowRect{X0: x0, Y0: y0, X1: x1, Y1: y1}, nil
}
