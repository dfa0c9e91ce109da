// SPDX-License-Identifier: Unlicense OR MIT

package keymap

import (
	"strings"
	"testing"

	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs/fakefs"
)

func load(t *testing.T, body string) *Map {
	t.Helper()
	fs := fakefs.New(8192, 4096)
	f := fs.Put("kbmap", []byte(body))
	m, err := Load(f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestLoadParsesLiteralControlAndNumericRunes(t *testing.T) {
	// 0x31, 061 (octal) and 49 (decimal) all decode to the same rune
	// '1' (49); only the first occurrence is kept.
	body := strings.Join([]string{
		"none 0x10 'q",
		"none 0x1d ^A",
		"none 0x02 0x31",
		"none 0x03 061",
		"none 0x04 49",
	}, "\n")
	m := load(t, body)
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (duplicate rune encodings collapse to one entry)", m.Len())
	}
	if e, ok := m.Lookup('q'); !ok || e.KeyCode != 16 {
		t.Fatalf("lookup 'q' = %+v, %v", e, ok)
	}
	if e, ok := m.Lookup(rune('A') - 0x40); !ok || e.KeyCode != 29 {
		t.Fatalf("lookup ^A = %+v, %v", e, ok)
	}
	if e, ok := m.Lookup('1'); !ok || e.KeyCode != 2 {
		t.Fatalf("lookup '1' (first seen via 0x02 0x31) = %+v, %v, want KeyCode=2", e, ok)
	}
}

func TestLoadIgnoresNonNoneLayers(t *testing.T) {
	m := load(t, "shift 0x10 'Q\nnone 0x10 'q")
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (only the \"none\" layer entry)", m.Len())
	}
}

func TestLoadFirstSeenWinsOnCollision(t *testing.T) {
	m := load(t, "none 0x10 'q\nnone 0x11 'q")
	e, ok := m.Lookup('q')
	if !ok {
		t.Fatal("expected 'q' to resolve")
	}
	if e.KeyCode != 16 {
		t.Fatalf("KeyCode = %d, want 16 (first-seen scancode 0x10)", e.KeyCode)
	}
}

func TestLoadSkipsSpecialRunes(t *testing.T) {
	m := load(t, "none 0x4b 0xF000\nnone 0x10 'q")
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (special rune skipped)", m.Len())
	}
}

func TestLookupAndLookupLinearAgree(t *testing.T) {
	body := strings.Join([]string{
		"none 0x10 'q",
		"none 0x11 'w",
		"none 0x12 'e",
		"none 0x13 'r",
	}, "\n")
	m := load(t, body)
	for _, r := range []rune{'q', 'w', 'e', 'r', 'z'} {
		a, okA := m.Lookup(r)
		b, okB := m.LookupLinear(r)
		if okA != okB || a != b {
			t.Fatalf("Lookup/LookupLinear disagree for %q: (%+v,%v) vs (%+v,%v)", r, a, okA, b, okB)
		}
	}
}

func TestLoadRejectsUnknownScancode(t *testing.T) {
	m := load(t, "none 0x99 'q")
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 for an unmapped scancode", m.Len())
	}
}
