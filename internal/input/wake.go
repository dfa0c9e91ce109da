// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// WakePipe is a self-pipe whose read end the Wayland event loop
// registers as a pollable fd, and whose write end the ring writes one
// byte to on every push, waking the loop promptly without a busy
// poll. Grounded on gio's wayland window construction, which creates
// an equivalent non-blocking notify pipe for the same purpose.
type WakePipe struct {
	readFD, writeFD int
}

// NewWakePipe creates a non-blocking, close-on-exec pipe pair.
func NewWakePipe() (*WakePipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("input: create wake pipe: %w", err)
	}
	return &WakePipe{readFD: fds[0], writeFD: fds[1]}, nil
}

// ReadFD is the end registered with the event loop.
func (w *WakePipe) ReadFD() int { return w.readFD }

// Wake writes a single byte, coalescing with any byte already
// pending (EAGAIN on a full, non-blocking pipe is expected and
// ignored).
func (w *WakePipe) Wake() {
	var b [1]byte
	_, err := unix.Write(w.writeFD, b[:])
	if err != nil && err != unix.EAGAIN {
		// Nothing productive to do with a broken wake pipe beyond
		// letting the next blocking read eventually time out; this
		// path only triggers once the process is already tearing
		// down.
		_ = err
	}
}

// Drain consumes any pending wake bytes so a subsequent Wake is
// needed to signal again.
func (w *WakePipe) Drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.readFD, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Close releases both pipe ends.
func (w *WakePipe) Close() error {
	err1 := unix.Close(w.readFD)
	err2 := unix.Close(w.writeFD)
	if err1 != nil {
		return err1
	}
	return err2
}
