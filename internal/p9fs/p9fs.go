// SPDX-License-Identifier: Unlicense OR MIT

// Package p9fs abstracts the 9P file operations (walk, open, read,
// write, clunk) that the rest of the tree needs against the remote
// draw device, kbmap, mouse, and wctl files. It exists so sender,
// input, keymap, and clipboard can be tested against an in-memory
// fake rather than a live 9P mount.
package p9fs

import (
	"context"
	"io"
)

// File is an open 9P file. Implementations must be safe for
// concurrent Read and Write from different goroutines (the sender
// writes the draw file while a separate reader goroutine never reads
// it, but mouse/keyboard/wctl files are read continuously from their
// own goroutine while other files are written from others).
type File interface {
	io.Reader
	io.Writer
	io.Closer

	// IOUnit returns the negotiated maximum Twrite/Tread payload size
	// for this file, or 0 if unknown (caller must fall back to msize).
	IOUnit() int
}

// FS walks and opens files relative to a draw-device mount.
type FS interface {
	// Open walks to name (slash-separated, relative to the mount
	// root) and opens it with the given 9P open mode (see OpenMode*
	// constants).
	Open(ctx context.Context, name string, mode OpenMode) (File, error)

	// MSize returns the negotiated maximum message size for the
	// underlying connection.
	MSize() int
}

// OpenMode mirrors the 9P open mode byte values relevant here.
type OpenMode int

const (
	OREAD  OpenMode = 0
	OWRITE OpenMode = 1
	ORDWR  OpenMode = 2
)

// BatchBound returns the usable per-message payload size for wire
// batches: min(iounit, msize-24) - 23, floored at a single
// command's worth of room so a degenerate negotiation can't produce a
// non-positive bound.
func BatchBound(iounit, msize int) int {
	bound := msize - 24
	if iounit > 0 && iounit < bound {
		bound = iounit
	}
	bound -= 23
	if bound < 64 {
		bound = 64
	}
	return bound
}
