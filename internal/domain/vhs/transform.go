package vhs

import (
	"image"
	"math/rand"
)

// Apply runs the signal-degradation transform over src and returns a new
// image of the same dimensions. The alpha channel passes through untouched.
//
// All randomness (noise, glitch rows) comes from rng, so two calls with
// identically seeded generators produce identical output. Concurrent calls
// are safe as long as each uses its own generator.
func Apply(src *image.NRGBA, p Params, rng *rand.Rand) *image.NRGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return image.NewNRGBA(image.Rect(0, 0, w, h))
	}

	y, cb, cr := splitYCbCr(src, w, h)

	// 1. Bandwidth limiting: uniform horizontal blur per row.
	if p.LumaBandwidth > 1 {
		convolveRows(y, w, h, p.LumaBandwidth)
	}
	if p.ChromaBandwidth > 1 {
		convolveRows(cb, w, h, p.ChromaBandwidth)
		convolveRows(cr, w, h, p.ChromaBandwidth)
	}

	// 2. Chroma offset: opposite-direction phase misalignment.
	if p.ChromaOffset != 0 {
		shiftRows(cr, w, h, p.ChromaOffset)
		shiftRows(cb, w, h, -p.ChromaOffset)
	}

	// 3. Ghosting: delayed copy of the edge content.
	if p.GhostStrength != 0 {
		ghost := gradientX(y, w, h)
		shiftRows(ghost, w, h, p.GhostShiftPixels)
		for i := range y {
			y[i] += p.GhostStrength * ghost[i]
		}
	}

	// 4. Gaussian noise.
	if p.LumaNoiseLevel > 0 {
		for i := range y {
			y[i] += rng.NormFloat64() * p.LumaNoiseLevel
		}
	}
	if p.ChromaNoiseLevel > 0 {
		for i := range cb {
			cb[i] += rng.NormFloat64() * p.ChromaNoiseLevel
			cr[i] += rng.NormFloat64() * p.ChromaNoiseLevel
		}
	}

	// 5. Glitch lines: independent per-row circular tears.
	if p.GlitchProbability > 0 {
		for row := 0; row < h; row++ {
			if rng.Float64() >= p.GlitchProbability {
				continue
			}
			offset := int(p.GlitchStrength * (rng.Float64() - 0.5) * float64(w))
			rollRow(y, w, row, offset)
			rollRow(cb, w, row, offset)
			rollRow(cr, w, row, offset)
		}
	}

	// 6. Clamp and convert back.
	return mergeYCbCr(src, y, cb, cr, w, h)
}

// splitYCbCr converts the RGB samples into full-range JPEG YCbCr planes.
func splitYCbCr(src *image.NRGBA, w, h int) (y, cb, cr []float64) {
	y = make([]float64, w*h)
	cb = make([]float64, w*h)
	cr = make([]float64, w*h)

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			off := src.PixOffset(src.Rect.Min.X+col, src.Rect.Min.Y+row)
			r := float64(src.Pix[off])
			g := float64(src.Pix[off+1])
			b := float64(src.Pix[off+2])

			i := row*w + col
			y[i] = 0.299*r + 0.587*g + 0.114*b
			cb[i] = 128 - 0.168736*r - 0.331264*g + 0.5*b
			cr[i] = 128 + 0.5*r - 0.418688*g - 0.081312*b
		}
	}
	return y, cb, cr
}

func mergeYCbCr(src *image.NRGBA, y, cb, cr []float64, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := row*w + col
			yy := clamp(y[i])
			cbv := clamp(cb[i]) - 128
			crv := clamp(cr[i]) - 128

			srcOff := src.PixOffset(src.Rect.Min.X+col, src.Rect.Min.Y+row)
			dstOff := dst.PixOffset(col, row)
			dst.Pix[dstOff] = toByte(yy + 1.402*crv)
			dst.Pix[dstOff+1] = toByte(yy - 0.344136*cbv - 0.714136*crv)
			dst.Pix[dstOff+2] = toByte(yy + 1.772*cbv)
			dst.Pix[dstOff+3] = src.Pix[srcOff+3]
		}
	}
	return dst
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func toByte(v float64) uint8 {
	return uint8(clamp(v) + 0.5)
}

// convolveRows applies a width-k uniform kernel to each row with zero
// padding, keeping the "same" output alignment (for even k the window sits
// one pixel heavier to the left).
func convolveRows(plane []float64, w, h, k int) {
	if k <= 1 || w == 0 {
		return
	}
	half := (k - 1) / 2
	inv := 1.0 / float64(k)
	buf := make([]float64, w)

	for row := 0; row < h; row++ {
		base := row * w
		for x := 0; x < w; x++ {
			lo := x + half - (k - 1)
			hi := x + half
			if lo < 0 {
				lo = 0
			}
			if hi > w-1 {
				hi = w - 1
			}
			sum := 0.0
			for j := lo; j <= hi; j++ {
				sum += plane[base+j]
			}
			buf[x] = sum * inv
		}
		copy(plane[base:base+w], buf)
	}
}

// shiftRows moves every row horizontally by shift pixels (positive = right),
// zero-filling the exposed edge. A shift beyond the row width blanks it.
func shiftRows(plane []float64, w, h, shift int) {
	if shift == 0 {
		return
	}
	for row := 0; row < h; row++ {
		base := row * w
		if shift > 0 {
			for x := w - 1; x >= 0; x-- {
				if x-shift >= 0 {
					plane[base+x] = plane[base+x-shift]
				} else {
					plane[base+x] = 0
				}
			}
		} else {
			for x := 0; x < w; x++ {
				if x-shift < w {
					plane[base+x] = plane[base+x-shift]
				} else {
					plane[base+x] = 0
				}
			}
		}
	}
}

// gradientX returns the absolute horizontal gradient using a 3-tap central
// difference with replicated borders. Single-column images yield zero.
func gradientX(plane []float64, w, h int) []float64 {
	out := make([]float64, w*h)
	if w < 2 {
		return out
	}
	for row := 0; row < h; row++ {
		base := row * w
		for x := 0; x < w; x++ {
			left := x - 1
			if left < 0 {
				left = 0
			}
			right := x + 1
			if right > w-1 {
				right = w - 1
			}
			g := plane[base+right] - plane[base+left]
			if g < 0 {
				g = -g
			}
			out[base+x] = g
		}
	}
	return out
}

// rollRow circularly shifts one row by offset pixels (positive = right).
func rollRow(plane []float64, w, row, offset int) {
	offset = ((offset % w) + w) % w
	if offset == 0 {
		return
	}
	base := row * w
	buf := make([]float64, w)
	for x := 0; x < w; x++ {
		buf[(x+offset)%w] = plane[base+x]
	}
	copy(plane[base:base+w], buf)
}
