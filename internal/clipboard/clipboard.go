// SPDX-License-Identifier: Unlicense OR MIT

// Package clipboard bridges the local Wayland selection protocol and
// the remote /dev/snarf file.
package clipboard

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs"
)

// MaxCopyBytes caps the accumulated copy-path buffer at 1 MiB; bytes
// beyond that are silently dropped.
const MaxCopyBytes = 1 << 20

// acceptedMimeTypes are the mime types the bridge will forward to the
// remote snarf buffer.
var acceptedMimeTypes = map[string]bool{
	"text/plain":               true,
	"text/plain;charset=utf-8": true,
	"UTF8_STRING":              true,
	"STRING":                   true,
	"TEXT":                     true,
}

// AcceptsMime reports whether mime is one of the plain-text types the
// bridge mirrors to the remote.
func AcceptsMime(mime string) bool {
	return acceptedMimeTypes[mime]
}

// RegisterReadable is the caller-supplied event-loop hook: it must
// arrange for onReadable to be invoked whenever fd has data available
// (or has reached EOF), and return an unregister function. The actual
// event loop is the Wayland client library, kept abstract here.
type RegisterReadable func(fd int, onReadable func()) (unregister func())

// Bridge wires the Wayland data-device callbacks to the 9P snarf
// file.
type Bridge struct {
	fs       p9fs.FS
	register RegisterReadable
	log      zerolog.Logger

	reclaim func(mime string, data []byte) // scene.DataDevice.SetSelection
}

// New creates a bridge over fs (for /dev/snarf) and reclaim (used to
// re-offer the selection locally once the remote copy completes).
func New(fs p9fs.FS, register RegisterReadable, reclaim func(mime string, data []byte), logger zerolog.Logger) *Bridge {
	return &Bridge{fs: fs, register: register, reclaim: reclaim, log: logger}
}

// OnSelectionSet implements the copy path (local -> remote). mime
// must be one of acceptedMimeTypes; src is read to completion via a
// pipe the caller's event loop polls for readability.
func (b *Bridge) OnSelectionSet(ctx context.Context, mime string, src io.Reader, srcFD int) {
	if !AcceptsMime(mime) {
		return
	}
	r, w, err := os.Pipe()
	if err != nil {
		b.log.Warn().Err(err).Msg("clipboard: create copy pipe")
		return
	}
	go func() {
		defer w.Close()
		if _, err := io.Copy(w, src); err != nil {
			b.log.Warn().Err(err).Msg("clipboard: copy source read failed")
		}
	}()

	buf := make([]byte, 0, 4096)
	var unregister func()
	unregister = b.register(int(readerFD(r)), func() {
		chunk := make([]byte, 4096)
		n, err := r.Read(chunk)
		if n > 0 {
			room := MaxCopyBytes - len(buf)
			if room > 0 {
				if n > room {
					n = room
				}
				buf = append(buf, chunk[:n]...)
			}
		}
		if err == io.EOF {
			if unregister != nil {
				unregister()
			}
			r.Close()
			b.finishCopy(ctx, mime, buf)
		}
	})
}

func (b *Bridge) finishCopy(ctx context.Context, mime string, data []byte) {
	f, err := b.fs.Open(ctx, "snarf", p9fs.OWRITE)
	if err != nil {
		b.log.Warn().Err(err).Msg("clipboard: open /dev/snarf for write")
		return
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		b.log.Warn().Err(err).Msg("clipboard: write /dev/snarf")
		return
	}
	if b.reclaim != nil {
		b.reclaim(mime, data)
	}
}

// OnPasteRequest implements the paste path (remote -> local): it
// spawns a detached goroutine that reads /dev/snarf (a blocking 9P
// call) and writes the result to dst, closing it when done, so the
// event loop stays responsive.
func (b *Bridge) OnPasteRequest(ctx context.Context, dst io.WriteCloser) {
	go func() {
		defer dst.Close()
		f, err := b.fs.Open(ctx, "snarf", p9fs.OREAD)
		if err != nil {
			b.log.Warn().Err(err).Msg("clipboard: open /dev/snarf for read")
			return
		}
		defer f.Close()
		if _, err := io.Copy(dst, f); err != nil {
			b.log.Warn().Err(err).Msg("clipboard: paste copy failed")
		}
	}()
}

// readerFD extracts the underlying fd from an *os.File; kept as a
// named helper so the event-loop registration call reads clearly at
// the call site.
func readerFD(f *os.File) uintptr {
	return f.Fd()
}
