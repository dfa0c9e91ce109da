// SPDX-License-Identifier: Unlicense OR MIT

package phase

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/maksym-radziwill/p9wl-sub001/internal/fbuf"
)

// extractGray pulls the rectangle [x0,y0,x1,y1) of buf into an 8-bit
// luminance image, matching the framebuffer's XRGB byte layout (blue,
// green, red, pad).
func extractGray(buf *fbuf.Buffer, x0, y0, x1, y1 int) *image.Gray {
	w, h := x1-x0, y1-y0
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := buf.Row(y0 + y)[x0*fbuf.BytesPerPixel:]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4]
			b, gr, r := int(px[0]), int(px[1]), int(px[2])
			lum := uint8((r*299 + gr*587 + b*114) / 1000)
			g.SetGray(x, y, color.Gray{Y: lum})
		}
	}
	return g
}

// resampleToN bilinearly resamples src onto an n x n grid.
func resampleToN(src *image.Gray, n int) *image.Gray {
	if src.Bounds().Dx() == n && src.Bounds().Dy() == n {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, n, n))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// windowInto writes the Hann-windowed, box-smoothed luminance of img
// (n x n) into dst (len n*n), applying the window separably from the
// precomputed LUT.
func windowInto(dst []float64, img *image.Gray, n int, lut []float64) {
	for y := 0; y < n; y++ {
		wy := lut[y]
		row := img.Pix[y*img.Stride : y*img.Stride+n]
		base := y * n
		for x := 0; x < n; x++ {
			dst[base+x] = float64(row[x]) * wy * lut[x]
		}
	}
	boxSmoothSeparable(dst, n, 8)
}

// boxSmoothSeparable applies a separable box blur of the given radius
// using running sums, O(n^2) total.
func boxSmoothSeparable(buf []float64, n, radius int) {
	tmp := make([]float64, n*n)
	boxSmoothRows(tmp, buf, n, radius)
	boxSmoothCols(buf, tmp, n, radius)
}

func boxSmoothRows(dst, src []float64, n, radius int) {
	for y := 0; y < n; y++ {
		row := src[y*n : (y+1)*n]
		prefix := make([]float64, n+1)
		for x := 0; x < n; x++ {
			prefix[x+1] = prefix[x] + row[x]
		}
		out := dst[y*n : (y+1)*n]
		for x := 0; x < n; x++ {
			lo := x - radius
			if lo < 0 {
				lo = 0
			}
			hi := x + radius
			if hi > n-1 {
				hi = n - 1
			}
			out[x] = (prefix[hi+1] - prefix[lo]) / float64(hi-lo+1)
		}
	}
}

func boxSmoothCols(dst, src []float64, n, radius int) {
	prefix := make([]float64, n+1)
	col := make([]float64, n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			col[y] = src[y*n+x]
		}
		prefix[0] = 0
		for y := 0; y < n; y++ {
			prefix[y+1] = prefix[y] + col[y]
		}
		for y := 0; y < n; y++ {
			lo := y - radius
			if lo < 0 {
				lo = 0
			}
			hi := y + radius
			if hi > n-1 {
				hi = n - 1
			}
			dst[y*n+x] = (prefix[hi+1] - prefix[lo]) / float64(hi-lo+1)
		}
	}
}
