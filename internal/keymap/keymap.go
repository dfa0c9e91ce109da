// SPDX-License-Identifier: Unlicense OR MIT

// Package keymap loads the remote key-map (/dev/kbmap) and resolves
// it into a rune-indexed lookup table.
package keymap

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/maksym-radziwill/p9wl-sub001/internal/p9fs"
)

// MaxEntries bounds the key-map table.
const MaxEntries = 512

// SpecialRuneBase is the start of the reserved range for function
// keys, arrows and modifiers; runes at or above this are skipped when
// building the dynamic map.
const SpecialRuneBase = 0xF000

// Entry is one resolved (rune, key-code, shift-flag) triple.
type Entry struct {
	Rune     rune
	KeyCode  int
	ShiftSet bool
}

// Map is a sorted-by-rune lookup table with first-seen-wins collision
// resolution.
type Map struct {
	entries []Entry
}

// Load walks to /dev/kbmap (already opened as f), reads it whole, and
// parses whitespace-separated (layer, scancode, rune) triples,
// keeping only layer == "none" entries. Scancodes are mapped through
// the fixed PC/AT table; runes are decoded per the grammar in
// decodeRune. First-seen rune wins on collision. Special runes
// (>= SpecialRuneBase) are skipped — they have a static fallback, not
// part of the dynamic map.
func Load(f p9fs.File) (*Map, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("keymap: read /dev/kbmap: %w", err)
	}

	m := &Map{}
	seen := make(map[rune]bool)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		layer, scancodeField, runeField := fields[0], fields[1], fields[2]
		if layer != "none" {
			continue
		}
		scancode, err := strconv.ParseInt(scancodeField, 0, 32)
		if err != nil {
			continue
		}
		r, err := decodeRune(runeField)
		if err != nil {
			continue
		}
		if r >= SpecialRuneBase {
			continue
		}
		if seen[r] {
			continue
		}
		keyCode, ok := pcATTable[int(scancode)]
		if !ok {
			continue
		}
		if len(m.entries) >= MaxEntries {
			break
		}
		seen[r] = true
		m.entries = append(m.entries, Entry{Rune: r, KeyCode: keyCode, ShiftSet: false})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("keymap: scan /dev/kbmap: %w", err)
	}

	slices.SortFunc(m.entries, func(a, b Entry) int { return int(a.Rune) - int(b.Rune) })
	return m, nil
}

// decodeRune implements literal/numeric rune grammar:
// 'x (next byte literal, UTF-8), ^X (X - 0x40, control character),
// 0xNNNN / 0NNN / NNN (numeric).
func decodeRune(field string) (rune, error) {
	switch {
	case strings.HasPrefix(field, "'") && len(field) >= 2:
		runes := []rune(field[1:])
		if len(runes) == 0 {
			return 0, fmt.Errorf("keymap: empty literal rune field %q", field)
		}
		return runes[0], nil
	case strings.HasPrefix(field, "^") && len(field) == 2:
		c := field[1]
		return rune(c) - 0x40, nil
	case strings.HasPrefix(field, "0x") || strings.HasPrefix(field, "0X"):
		v, err := strconv.ParseInt(field[2:], 16, 32)
		if err != nil {
			return 0, err
		}
		return rune(v), nil
	case strings.HasPrefix(field, "0") && len(field) > 1:
		v, err := strconv.ParseInt(field[1:], 8, 32)
		if err != nil {
			return 0, err
		}
		return rune(v), nil
	default:
		v, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return 0, err
		}
		return rune(v), nil
	}
}

// Lookup finds r via binary search over the sorted table.
func (m *Map) Lookup(r rune) (Entry, bool) {
	i, ok := slices.BinarySearchFunc(m.entries, r, func(e Entry, r rune) int {
		return int(e.Rune) - int(r)
	})
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// LookupLinear is a linear scan equivalent to Lookup, kept as a
// verification fallback (tests assert the two always agree).
func (m *Map) LookupLinear(r rune) (Entry, bool) {
	for _, e := range m.entries {
		if e.Rune == r {
			return e, true
		}
	}
	return Entry{}, false
}

// Len reports the number of resolved entries.
func (m *Map) Len() int { return len(m.entries) }
