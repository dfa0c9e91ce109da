// SPDX-License-Identifier: Unlicense OR MIT

// Package focus implements the pointer/keyboard focus state machine,
// the popup grab stack, and surface lifecycle hooks.
// Machine is single-threaded by contract: only the compositor's main
// event-loop goroutine may call into it.
package focus

import (
	"bytes"
	"os"
	"runtime"
)

// Handle addresses a surface by opaque id, never by pointer — the
// arena/handle model calls for so popup/focus records never
// hold a cyclic reference into the scene graph.
type Handle uint64

// None is the zero Handle, meaning "no surface".
const None Handle = 0

type popupRecord struct {
	surface Handle
	grab    bool
	mapped  bool
}

// HitTest resolves the surface under the pointer, used for pointer
// re-checks and map-time re-hit-testing.
type HitTest func() (Handle, bool)

// Seat is the subset of scene.Seat the machine drives directly.
type Seat interface {
	SetPointerFocus(id uint64, ok bool)
	SetKeyboardFocus(id uint64, ok bool)
}

// Machine holds the two independent focus targets, the popup stack,
// and the toplevel raise order.
type Machine struct {
	pointerFocus  Handle
	keyboardFocus Handle

	buttonsHeld int
	deferred    Handle
	deferredX   int
	deferredY   int
	hasDeferred bool

	popups    []popupRecord
	toplevels []Handle // head (index 0) is most-recently-raised

	hitTest HitTest
	seat    Seat

	ownerGoroutine string
}

// NewMachine creates an empty focus machine. hitTest resolves the
// surface under the pointer for deferred-change rechecks and map-time
// re-hit-testing; seat receives the resulting focus assignments.
func NewMachine(hitTest HitTest, seat Seat) *Machine {
	return &Machine{hitTest: hitTest, seat: seat, ownerGoroutine: goroutineTag()}
}

// goroutineTag is a coarse owner-goroutine assertion: it extracts the
// "goroutine N" id from a stack dump, which is stable for the
// lifetime of that goroutine, and lets assertOwner flag a call from a
// different goroutine in debug builds without taking a lock. Only
// active when P9WL_DEBUG_FOCUS_OWNER is set, since runtime.Stack is
// too costly to call on every method in production.
func goroutineTag() string {
	if os.Getenv("P9WL_DEBUG_FOCUS_OWNER") == "" {
		return ""
	}
	return currentGoroutineID()
}

func (m *Machine) assertOwner() {
	if m.ownerGoroutine == "" {
		return
	}
	if id := currentGoroutineID(); id != m.ownerGoroutine {
		panic("focus: Machine called from a goroutine other than its owner (" + id + " != " + m.ownerGoroutine + ")")
	}
}

func currentGoroutineID() string {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return ""
	}
	buf = buf[len(prefix):]
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

// Reason distinguishes why a pointer-focus change was requested,
// invariant 1.
type Reason int

const (
	ReasonMotion Reason = iota
	ReasonExplicit
	ReasonSurfaceDestroy
)

// SetPointerFocus requests target as the new pointer focus. Per
// invariant 1, a non-explicit, non-destroy change while any button is
// held is deferred (invariant 2) rather than applied immediately.
func (m *Machine) SetPointerFocus(target Handle, x, y int, reason Reason) {
	m.assertOwner()
	if m.buttonsHeld > 0 && reason == ReasonMotion {
		m.deferred, m.deferredX, m.deferredY, m.hasDeferred = target, x, y, true
		return
	}
	m.applyPointerFocus(target)
}

func (m *Machine) applyPointerFocus(target Handle) {
	if target == m.pointerFocus {
		return
	}
	if m.seat != nil {
		if m.pointerFocus != None {
			m.seat.SetPointerFocus(uint64(m.pointerFocus), false)
		}
		if target != None {
			m.seat.SetPointerFocus(uint64(target), true)
		}
	}
	m.pointerFocus = target
}

// SetButtonsHeld updates the held-button count. When it reaches zero,
// a pointer recheck runs: the deferred change is applied if one is
// pending, otherwise the target is rediscovered via hitTest.
func (m *Machine) SetButtonsHeld(n int) {
	m.assertOwner()
	prev := m.buttonsHeld
	m.buttonsHeld = n
	if prev > 0 && n == 0 {
		m.pointerRecheck()
	}
}

func (m *Machine) pointerRecheck() {
	if m.hasDeferred {
		target := m.deferred
		m.hasDeferred = false
		m.applyPointerFocus(target)
		return
	}
	if m.hitTest != nil {
		if target, ok := m.hitTest(); ok {
			m.applyPointerFocus(target)
		}
	}
}

// SetKeyboardFocus unconditionally assigns keyboard focus (there is
// no button-held deferral on the keyboard path).
func (m *Machine) SetKeyboardFocus(target Handle) {
	m.assertOwner()
	if target == m.keyboardFocus {
		return
	}
	if m.seat != nil {
		if m.keyboardFocus != None {
			m.seat.SetKeyboardFocus(uint64(m.keyboardFocus), false)
		}
		if target != None {
			m.seat.SetKeyboardFocus(uint64(target), true)
		}
	}
	m.keyboardFocus = target
}

// PointerFocus returns the current pointer-focus target, or None.
func (m *Machine) PointerFocus() Handle { return m.pointerFocus }

// KeyboardFocus returns the current keyboard-focus target, or None.
func (m *Machine) KeyboardFocus() Handle { return m.keyboardFocus }

// RegisterPopup pushes a new popup to the head of the stack and gives
// it keyboard focus.
func (m *Machine) RegisterPopup(id Handle, grab bool) {
	m.assertOwner()
	m.popups = append([]popupRecord{{surface: id, grab: grab, mapped: true}}, m.popups...)
	m.SetKeyboardFocus(id)
}

// UnregisterPopup removes id from the stack, then restores focus: the
// new topmost popup if any remain, otherwise the first mapped
// toplevel.
func (m *Machine) UnregisterPopup(id Handle) {
	m.assertOwner()
	for i, p := range m.popups {
		if p.surface == id {
			m.popups = append(m.popups[:i], m.popups[i+1:]...)
			break
		}
	}
	m.restoreFocusAfterPopupChange()
}

func (m *Machine) restoreFocusAfterPopupChange() {
	if len(m.popups) > 0 {
		m.SetKeyboardFocus(m.popups[0].surface)
		return
	}
	if t, ok := m.firstMappedToplevel(); ok {
		m.SetKeyboardFocus(t)
		return
	}
	m.SetKeyboardFocus(None)
}

func (m *Machine) firstMappedToplevel() (Handle, bool) {
	if len(m.toplevels) == 0 {
		return None, false
	}
	return m.toplevels[0], true
}

// OnSurfaceDestroy clears the deferred slot if it referenced id, and
// applies the same fallback rules as unmap.
func (m *Machine) OnSurfaceDestroy(id Handle) {
	m.assertOwner()
	if m.hasDeferred && m.deferred == id {
		m.hasDeferred = false
	}
	m.OnSurfaceUnmap(id)
}

// OnSurfaceMap focuses a newly mapped toplevel and re-hit-tests for
// pointer focus; popups are left to the caller's explicit
// RegisterPopup call.
func (m *Machine) OnSurfaceMap(id Handle, isToplevel bool) {
	m.assertOwner()
	if isToplevel {
		m.toplevels = append([]Handle{id}, m.toplevels...)
		m.SetKeyboardFocus(id)
	}
	if m.hitTest != nil {
		if target, ok := m.hitTest(); ok {
			m.SetPointerFocus(target, 0, 0, ReasonExplicit)
		}
	}
}

// OnSurfaceUnmap retargets pointer/keyboard focus away from id if it
// held either, falling back to the topmost popup, else the first
// mapped toplevel, else None.
func (m *Machine) OnSurfaceUnmap(id Handle) {
	m.assertOwner()
	for i, t := range m.toplevels {
		if t == id {
			m.toplevels = append(m.toplevels[:i], m.toplevels[i+1:]...)
			break
		}
	}
	for i, p := range m.popups {
		if p.surface == id {
			m.popups = append(m.popups[:i], m.popups[i+1:]...)
			break
		}
	}
	if m.pointerFocus == id {
		m.applyPointerFocus(m.fallbackTarget())
	}
	if m.keyboardFocus == id {
		m.SetKeyboardFocus(m.fallbackTarget())
	}
}

func (m *Machine) fallbackTarget() Handle {
	if len(m.popups) > 0 {
		return m.popups[0].surface
	}
	if t, ok := m.firstMappedToplevel(); ok {
		return t
	}
	return None
}

// OnClick implements the click-handling rule: a click on a
// popup-stack member passes through unchanged; a click outside an
// active popup stack destroys all popups and asks the caller to
// re-hit-test (via the returned bool); a click on a toplevel raises
// it, moves it to the head of the raise order, and gives it keyboard
// focus.
func (m *Machine) OnClick(clicked Handle) (destroyedPopups bool) {
	m.assertOwner()
	if m.inPopupStack(clicked) {
		return false
	}
	if len(m.popups) > 0 {
		m.popups = nil
		m.restoreFocusAfterPopupChange()
		return true
	}
	m.raiseToplevel(clicked)
	return false
}

func (m *Machine) inPopupStack(id Handle) bool {
	for _, p := range m.popups {
		if p.surface == id {
			return true
		}
	}
	return false
}

func (m *Machine) raiseToplevel(id Handle) {
	for i, t := range m.toplevels {
		if t == id {
			m.toplevels = append(m.toplevels[:i], m.toplevels[i+1:]...)
			break
		}
	}
	m.toplevels = append([]Handle{id}, m.toplevels...)
	m.SetKeyboardFocus(id)
}
