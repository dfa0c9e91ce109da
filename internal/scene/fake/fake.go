// SPDX-License-Identifier: Unlicense OR MIT

// Package fake implements scene.Surface, scene.Seat, and
// scene.DataDevice against plain in-memory state; cmd/p9wl uses its
// Seat as the stand-in seat behind the focus machine.
package fake

import (
	"sync"

	"github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"
	"github.com/maksym-radziwill/p9wl-sub001/internal/scene"
)

type Surface struct {
	id             scene.SurfaceID
	parent         scene.SurfaceID
	hasParent      bool
	x, y, w, h     int
	mu             sync.Mutex
	lastCommit     *fbuf.Buffer
	commits        int
}

func NewSurface(id scene.SurfaceID, x, y, w, h int) *Surface {
	return &Surface{id: id, x: x, y: y, w: w, h: h}
}

func NewPopup(id, parent scene.SurfaceID, x, y, w, h int) *Surface {
	return &Surface{id: id, parent: parent, hasParent: true, x: x, y: y, w: w, h: h}
}

func (s *Surface) ID() scene.SurfaceID { return s.id }

func (s *Surface) Parent() (scene.SurfaceID, bool) { return s.parent, s.hasParent }

func (s *Surface) Geometry() (int, int, int, int) { return s.x, s.y, s.w, s.h }

func (s *Surface) Commit(buf *fbuf.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCommit = buf
	s.commits++
}

func (s *Surface) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

type Seat struct {
	mu             sync.Mutex
	keyboardFocus  scene.SurfaceID
	hasKeyboard    bool
	pointerFocus   scene.SurfaceID
	hasPointer     bool
	keymap         []byte
}

func NewSeat(keymap []byte) *Seat {
	return &Seat{keymap: keymap}
}

func (s *Seat) SetKeyboardFocus(id scene.SurfaceID, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyboardFocus, s.hasKeyboard = id, ok
}

func (s *Seat) SetPointerFocus(id scene.SurfaceID, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointerFocus, s.hasPointer = id, ok
}

func (s *Seat) Keymap() []byte { return s.keymap }

func (s *Seat) KeyboardFocus() (scene.SurfaceID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyboardFocus, s.hasKeyboard
}

func (s *Seat) PointerFocus() (scene.SurfaceID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointerFocus, s.hasPointer
}

type DataDevice struct {
	mu        sync.Mutex
	selection map[string][]byte
	// RequestResult is returned synchronously to RequestSelection's
	// callback by default; set RequestAsync to defer it to a manual
	// Deliver call instead.
	RequestResult []byte
	RequestErr    error
	RequestAsync  bool

	pendingCB func([]byte, error)
}

func NewDataDevice() *DataDevice {
	return &DataDevice{selection: make(map[string][]byte)}
}

func (d *DataDevice) SetSelection(mime string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selection[mime] = append([]byte(nil), data...)
}

func (d *DataDevice) Selection(mime string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.selection[mime]
	return b, ok
}

func (d *DataDevice) RequestSelection(mime string, cb func([]byte, error)) {
	d.mu.Lock()
	if d.RequestAsync {
		d.pendingCB = cb
		d.mu.Unlock()
		return
	}
	res, err := d.RequestResult, d.RequestErr
	d.mu.Unlock()
	cb(res, err)
}

// Deliver completes a pending async RequestSelection.
func (d *DataDevice) Deliver(data []byte, err error) {
	d.mu.Lock()
	cb := d.pendingCB
	d.pendingCB = nil
	d.mu.Unlock()
	if cb != nil {
		cb(data, err)
	}
}
