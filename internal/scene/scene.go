// SPDX-License-Identifier: Unlicense OR MIT

// Package scene abstracts the Wayland-side objects (surfaces, seat,
// data device) behind interfaces rather than a concrete Wayland client
// library binding. cmd/p9wl drives the focus machine's seat through
// scene.Seat; scene/fake is the in-memory implementation it uses.
package scene

import "github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"

// SurfaceID names a mapped toplevel or popup, opaque outside scene.
type SurfaceID uint64

// Surface is a single Wayland surface (toplevel or popup) visible on
// the remote screen.
type Surface interface {
	ID() SurfaceID
	// Parent returns the parent surface for a popup, or false for a
	// toplevel.
	Parent() (SurfaceID, bool)
	// Geometry returns the surface's screen-relative rectangle.
	Geometry() (x, y, w, h int)
	// Commit delivers the surface's latest rendered contents.
	Commit(buf *fbuf.Buffer)
}

// Seat exposes keyboard/pointer capability grants for one Wayland
// seat.
type Seat interface {
	SetKeyboardFocus(id SurfaceID, ok bool)
	SetPointerFocus(id SurfaceID, ok bool)
	// Keymap returns the seat's current keymap blob (XKB keymap
	// string). keymap.Load does not read it; the key-map always comes
	// from the remote kbmap file.
	Keymap() []byte
}

// DataDevice exposes the Wayland clipboard (data-device) protocol
// surface that clipboard.Bridge drives.
type DataDevice interface {
	// SetSelection offers data of the given MIME type as the current
	// clipboard selection.
	SetSelection(mime string, data []byte)
	// RequestSelection asks the compositor for the current selection
	// contents, invoking cb with the received bytes (or an error)
	// once the paste completes.
	RequestSelection(mime string, cb func([]byte, error))
}
