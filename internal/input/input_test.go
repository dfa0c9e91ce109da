// SPDX-License-Identifier: Unlicense OR MIT

package input

import "testing"

func TestParseMouseDecodesPointerFrame(t *testing.T) {
	ev, ok, err := parseMouse("m 10 20 5")
	if err != nil || !ok {
		t.Fatalf("parseMouse: %v %v", ok, err)
	}
	if ev.Kind != EventMouse || ev.X != 10 || ev.Y != 20 || ev.Buttons != 5 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestParseMouseDecodesScrollBits(t *testing.T) {
	ev, ok, err := parseMouse("m 0 0 9") // buttons=9 => bit0 (left) + bit3 (scroll up)
	if err != nil || !ok {
		t.Fatalf("parseMouse: %v %v", ok, err)
	}
	if ev.Buttons&0x1 == 0 {
		t.Fatal("expected left button bit set")
	}
	if !ev.ScrollUp {
		t.Fatal("expected ScrollUp set for bit 3")
	}
}

func TestParseMouseResize(t *testing.T) {
	ev, ok, err := parseMouse("r")
	if err != nil || !ok {
		t.Fatalf("parseMouse: %v %v", ok, err)
	}
	if ev.Kind != EventResize {
		t.Fatalf("Kind = %v, want EventResize", ev.Kind)
	}
}

func TestKeyboardDecoderDiffsPressAndRelease(t *testing.T) {
	dec := newKeyboardDecoder()
	pressed := dec.decode("kab")
	if len(pressed) != 2 {
		t.Fatalf("expected 2 press events, got %d", len(pressed))
	}
	for _, e := range pressed {
		if !e.Pressed {
			t.Fatalf("expected all events from 'k' frame to be presses: %+v", e)
		}
	}
	// "Ka" carries the new down-set snapshot {a}, diffed against the
	// previous {a,b}: 'a' stays down (no event) and 'b' is released.
	released := dec.decode("Ka")
	if len(released) != 1 || released[0].Pressed || released[0].Rune != 'b' {
		t.Fatalf("expected single release event for 'b', got %+v", released)
	}
}

func TestKeyboardDecoderEmptySnapshotReleasesEverythingDown(t *testing.T) {
	dec := newKeyboardDecoder()
	pressed := dec.decode("k" + string(rune(0x2191)))
	if len(pressed) != 1 || !pressed[0].Pressed || pressed[0].Rune != 0xF00E {
		t.Fatalf("expected a single press of the translated up-arrow keysym, got %+v", pressed)
	}
	released := dec.decode("K")
	if len(released) != 1 || released[0].Pressed || released[0].Rune != 0xF00E {
		t.Fatalf("expected a single release of the up-arrow keysym, got %+v", released)
	}
}

func TestKeyboardDecoderLiteralCharacterIsPressRelease(t *testing.T) {
	dec := newKeyboardDecoder()
	events := dec.decode("cx")
	if len(events) != 2 {
		t.Fatalf("expected press+release for literal char, got %d", len(events))
	}
	if !events[0].Pressed || events[1].Pressed {
		t.Fatalf("expected press then release, got %+v", events)
	}
}

func TestKeyboardDecoderSurfacesModifierSeparately(t *testing.T) {
	dec := newKeyboardDecoder()
	events := dec.decode("k" + string(rune(runeShiftL)))
	if len(events) != 1 || events[0].Kind != EventModifier {
		t.Fatalf("expected a single modifier event, got %+v", events)
	}
	if events[0].Mod != ModShift || !events[0].ModDown {
		t.Fatalf("unexpected modifier event: %+v", events[0])
	}
}

func TestParseWctlDecodesFourIntegers(t *testing.T) {
	r, err := parseWctl("10 20 300 400\n")
	if err != nil {
		t.Fatalf("parseWctl: %v", err)
	}
	if r != (WctlRect{X0: 10, Y0: 20, X1: 300, Y1: 400}) {
		t.Fatalf("unexpected rect: %+v", r)
	}
}

func TestRingDropsOnOverflow(t *testing.T) {
	r := NewRing(nil)
	for i := 0; i < RingSize; i++ {
		if dropped := r.Push(Event{Kind: EventKey, Rune: rune(i)}); dropped {
			t.Fatalf("unexpected drop at index %d", i)
		}
	}
	if dropped := r.Push(Event{Kind: EventKey}); !dropped {
		t.Fatal("expected the ring to drop once full")
	}
	if r.Len() != RingSize {
		t.Fatalf("Len() = %d, want %d", r.Len(), RingSize)
	}
}

func TestRingPopOrdersFIFO(t *testing.T) {
	r := NewRing(nil)
	r.Push(Event{Kind: EventKey, Rune: 'a'})
	r.Push(Event{Kind: EventKey, Rune: 'b'})
	e1, _ := r.Pop()
	e2, _ := r.Pop()
	if e1.Rune != 'a' || e2.Rune != 'b' {
		t.Fatalf("expected FIFO order, got %q then %q", e1.Rune, e2.Rune)
	}
	if _, ok := r.Pop(); ok {
		t.Fatal("expected empty ring after draining both events")
	}
}

func TestRingPushInvokesOnPush(t *testing.T) {
	n := 0
	r := NewRing(func() { n++ })
	r.Push(Event{Kind: EventKey})
	r.Push(Event{Kind: EventKey})
	if n != 2 {
		t.Fatalf("onPush called %d times, want 2", n)
	}
}
