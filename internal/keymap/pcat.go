// SPDX-License-Identifier: Unlicense OR MIT

package keymap

// pcATTable maps PC/AT scancodes to an internal key-code space. Only
// the alphanumeric row and a handful of common keys are listed; an
// unlisted scancode is rejected by Load.
var pcATTable = map[int]int{
	0x01: 1,  // Esc
	0x02: 2,  // 1
	0x03: 3,  // 2
	0x04: 4,  // 3
	0x05: 5,  // 4
	0x06: 6,  // 5
	0x07: 7,  // 6
	0x08: 8,  // 7
	0x09: 9,  // 8
	0x0a: 10, // 9
	0x0b: 11, // 0
	0x0c: 12, // -
	0x0d: 13, // =
	0x0e: 14, // Backspace
	0x0f: 15, // Tab
	0x10: 16, // Q
	0x11: 17, // W
	0x12: 18, // E
	0x13: 19, // R
	0x14: 20, // T
	0x15: 21, // Y
	0x16: 22, // U
	0x17: 23, // I
	0x18: 24, // O
	0x19: 25, // P
	0x1a: 26, // [
	0x1b: 27, // ]
	0x1c: 28, // Enter
	0x1d: 29, // LCtrl
	0x1e: 30, // A
	0x1f: 31, // S
	0x20: 32, // D
	0x21: 33, // F
	0x22: 34, // G
	0x23: 35, // H
	0x24: 36, // J
	0x25: 37, // K
	0x26: 38, // L
	0x27: 39, // ;
	0x28: 40, // '
	0x29: 41, // `
	0x2a: 42, // LShift
	0x2b: 43, // backslash
	0x2c: 44, // Z
	0x2d: 45, // X
	0x2e: 46, // C
	0x2f: 47, // V
	0x30: 48, // B
	0x31: 49, // N
	0x32: 50, // M
	0x33: 51, // ,
	0x34: 52, // .
	0x35: 53, // /
	0x36: 54, // RShift
	0x39: 57, // Space
	0x4b: 75, // Left
	0x48: 72, // Up
	0x4d: 77, // Right
	0x50: 80, // Down
}
