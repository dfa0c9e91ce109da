// SPDX-License-Identifier: Unlicense OR MIT

package tile

// compressPackBits implements the PackBits run-length scheme: a
// control byte followed either by a literal run (control = count-1,
// 0 <= count <= 128) or a repeat run (control = 257-count as a signed
// byte, so -count+1, writing the single following byte count times).
// This is the self-contained small-buffer codec the wire format
// calls for (see DESIGN.md for why a generic stream compressor was
// rejected).
// Returns ok=false if the encoding would not fit dst.
func compressPackBits(dst, src []byte) (n int, ok bool) {
	i := 0
	for i < len(src) {
		// Count a repeat run.
		runLen := 1
		for i+runLen < len(src) && runLen < 128 && src[i+runLen] == src[i] {
			runLen++
		}
		if runLen >= 2 {
			if n+2 > len(dst) {
				return n, false
			}
			dst[n] = byte(257 - runLen) // -(runLen-1) as int8, i.e. 1-runLen
			dst[n+1] = src[i]
			n += 2
			i += runLen
			continue
		}
		// Count a literal run: until the next repeat run of >=2 appears.
		litStart := i
		litLen := 1
		i++
		for i < len(src) && litLen < 128 {
			if i+1 < len(src) && src[i] == src[i+1] {
				break
			}
			litLen++
			i++
		}
		if n+1+litLen > len(dst) {
			return n, false
		}
		dst[n] = byte(litLen - 1)
		copy(dst[n+1:], src[litStart:litStart+litLen])
		n += 1 + litLen
	}
	return n, true
}

// decompressPackBits is the inverse of compressPackBits, used by tests
// and by the remote side's conceptual decoder (documented for parity;
// the wire-level remote decode happens outside this repo's scope).
func decompressPackBits(dst, src []byte) (n int, ok bool) {
	i := 0
	for i < len(src) {
		ctrl := int8(src[i])
		i++
		switch {
		case ctrl >= 0:
			litLen := int(ctrl) + 1
			if i+litLen > len(src) || n+litLen > len(dst) {
				return n, false
			}
			copy(dst[n:], src[i:i+litLen])
			n += litLen
			i += litLen
		default:
			runLen := 1 - int(ctrl)
			if i >= len(src) || n+runLen > len(dst) {
				return n, false
			}
			v := src[i]
			i++
			for k := 0; k < runLen; k++ {
				dst[n] = v
				n++
			}
		}
	}
	return n, true
}
