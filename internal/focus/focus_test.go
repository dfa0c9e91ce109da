// SPDX-License-Identifier: Unlicense OR MIT

package focus

import "testing"

type fakeSeat struct {
	pointerFocus, keyboardFocus uint64
	hasPointer, hasKeyboard     bool
}

func (s *fakeSeat) SetPointerFocus(id uint64, ok bool) {
	s.pointerFocus, s.hasPointer = id, ok
}
func (s *fakeSeat) SetKeyboardFocus(id uint64, ok bool) {
	s.keyboardFocus, s.hasKeyboard = id, ok
}

func TestPointerFocusAppliesImmediatelyWithNoButtonsHeld(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.SetPointerFocus(5, 0, 0, ReasonMotion)
	if m.PointerFocus() != 5 {
		t.Fatalf("PointerFocus() = %d, want 5", m.PointerFocus())
	}
}

func TestPointerFocusDeferredWhileButtonHeld(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.SetButtonsHeld(1)
	m.SetPointerFocus(5, 0, 0, ReasonMotion)
	if m.PointerFocus() != None {
		t.Fatalf("PointerFocus() = %d, want None while a button is held", m.PointerFocus())
	}
	m.SetButtonsHeld(0)
	if m.PointerFocus() != 5 {
		t.Fatalf("PointerFocus() = %d, want 5 after buttons released", m.PointerFocus())
	}
}

func TestPointerFocusExplicitBypassesDeferral(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.SetButtonsHeld(1)
	m.SetPointerFocus(7, 0, 0, ReasonExplicit)
	if m.PointerFocus() != 7 {
		t.Fatalf("PointerFocus() = %d, want 7 (explicit bypasses deferral)", m.PointerFocus())
	}
}

func TestPointerRecheckRediscoversWhenNoDeferral(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(func() (Handle, bool) { return 9, true }, seat)
	m.SetButtonsHeld(1)
	m.SetButtonsHeld(0)
	if m.PointerFocus() != 9 {
		t.Fatalf("PointerFocus() = %d, want 9 from rediscovery", m.PointerFocus())
	}
}

func TestPopupStackHeadIsTopmost(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.RegisterPopup(1, false)
	m.RegisterPopup(2, false)
	if m.KeyboardFocus() != 2 {
		t.Fatalf("KeyboardFocus() = %d, want 2 (most recently registered)", m.KeyboardFocus())
	}
	m.UnregisterPopup(2)
	if m.KeyboardFocus() != 1 {
		t.Fatalf("KeyboardFocus() = %d, want 1 after popping the topmost popup", m.KeyboardFocus())
	}
}

func TestUnregisterLastPopupFallsBackToToplevel(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.OnSurfaceMap(100, true)
	m.RegisterPopup(1, false)
	m.UnregisterPopup(1)
	if m.KeyboardFocus() != 100 {
		t.Fatalf("KeyboardFocus() = %d, want 100 (the mapped toplevel)", m.KeyboardFocus())
	}
}

func TestSurfaceDestroyClearsDeferredSlot(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.SetButtonsHeld(1)
	m.SetPointerFocus(42, 0, 0, ReasonMotion)
	m.OnSurfaceDestroy(42)
	m.SetButtonsHeld(0)
	if m.PointerFocus() == 42 {
		t.Fatal("expected the deferred change to surface 42 to be cleared by its destruction")
	}
}

func TestClickOnPopupPassesThroughUnchanged(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.RegisterPopup(1, false)
	if destroyed := m.OnClick(1); destroyed {
		t.Fatal("clicking a popup-stack member should not destroy the stack")
	}
	if len(m.popups) != 1 {
		t.Fatal("popup stack should be unchanged after clicking a popup member")
	}
}

func TestClickOutsidePopupDestroysStack(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.OnSurfaceMap(100, true)
	m.RegisterPopup(1, false)
	if destroyed := m.OnClick(100); !destroyed {
		t.Fatal("clicking outside an active popup stack should destroy it")
	}
	if len(m.popups) != 0 {
		t.Fatal("expected popup stack to be empty after an outside click")
	}
}

func TestClickOnToplevelRaisesAndFocuses(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.OnSurfaceMap(1, true)
	m.OnSurfaceMap(2, true)
	if m.toplevels[0] != 2 {
		t.Fatalf("toplevels[0] = %d, want 2 (most recently mapped)", m.toplevels[0])
	}
	m.OnClick(1)
	if m.toplevels[0] != 1 {
		t.Fatalf("toplevels[0] = %d, want 1 after clicking it", m.toplevels[0])
	}
	if m.KeyboardFocus() != 1 {
		t.Fatalf("KeyboardFocus() = %d, want 1", m.KeyboardFocus())
	}
}

func TestUnmapRetargetsFocusToFallback(t *testing.T) {
	seat := &fakeSeat{}
	m := NewMachine(nil, seat)
	m.OnSurfaceMap(1, true)
	m.OnSurfaceMap(2, true)
	m.SetKeyboardFocus(2)
	m.OnSurfaceUnmap(2)
	if m.KeyboardFocus() != 1 {
		t.Fatalf("KeyboardFocus() = %d, want 1 after unmapping the focused toplevel", m.KeyboardFocus())
	}
}
