package vhs

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"sort"
	"testing"
)

func disabledParams() Params {
	return Params{
		LumaBandwidth:   1,
		ChromaBandwidth: 1,
	}
}

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8((x * 7) % 256),
				G: uint8((y * 13) % 256),
				B: uint8((x*y + 31) % 256),
				A: 255,
			})
		}
	}
	return img
}

func TestApplyPreservesDimensions(t *testing.T) {
	sizes := []struct{ w, h int }{{64, 48}, {1, 1}, {1, 16}, {16, 1}, {3, 3}}
	for _, size := range sizes {
		img := testImage(size.w, size.h)
		out := Apply(img, DefaultParams(), rand.New(rand.NewSource(1)))
		if out.Bounds().Dx() != size.w || out.Bounds().Dy() != size.h {
			t.Errorf("size %dx%d: output bounds %v", size.w, size.h, out.Bounds())
		}
	}
}

func TestApplyIdentityWhenDisabled(t *testing.T) {
	img := testImage(32, 24)
	out := Apply(img, disabledParams(), rand.New(rand.NewSource(1)))

	if !bytes.Equal(img.Pix, out.Pix) {
		t.Error("transform with all stages disabled should be the identity")
	}
}

func TestApplyDeterministic(t *testing.T) {
	img := testImage(48, 32)
	p := DefaultParams()

	a := Apply(img, p, rand.New(rand.NewSource(42)))
	b := Apply(img, p, rand.New(rand.NewSource(42)))
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("identical seeds must produce identical output")
	}
}

func TestApplyChromaOffsetChangesColor(t *testing.T) {
	img := testImage(32, 8)
	p := disabledParams()
	p.ChromaOffset = 2

	out := Apply(img, p, rand.New(rand.NewSource(1)))
	if bytes.Equal(img.Pix, out.Pix) {
		t.Error("chroma offset should alter the image")
	}
	// Alpha must pass through regardless of the color shuffling.
	for i := 3; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 255 {
			t.Fatalf("alpha modified at %d: %d", i, out.Pix[i])
		}
	}
}

func TestApplyGhostingBrightensEdges(t *testing.T) {
	// A hard vertical edge: ghosting adds shifted gradient energy to luma.
	img := image.NewNRGBA(image.Rect(0, 0, 32, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 32; x++ {
			v := uint8(0)
			if x >= 16 {
				v = 200
			}
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	p := disabledParams()
	p.GhostShiftPixels = 3
	p.GhostStrength = 0.5

	out := Apply(img, p, rand.New(rand.NewSource(1)))
	if bytes.Equal(img.Pix, out.Pix) {
		t.Error("ghosting on an edge-heavy image should change it")
	}
}

func TestApplyGlitchIsCircular(t *testing.T) {
	img := testImage(64, 16)
	p := disabledParams()
	p.GlitchProbability = 1
	p.GlitchStrength = 0.8

	out := Apply(img, p, rand.New(rand.NewSource(7)))

	// A circular tear rearranges a row without changing its sample multiset.
	for row := 0; row < 16; row++ {
		in := rowValues(img, row)
		got := rowValues(out, row)
		sort.Ints(in)
		sort.Ints(got)
		for i := range in {
			// The YCbCr round trip may wiggle samples by one step.
			if diff := in[i] - got[i]; diff < -1 || diff > 1 {
				t.Fatalf("row %d: sample multiset changed beyond rounding: %d vs %d",
					row, in[i], got[i])
			}
		}
	}
}

func rowValues(img *image.NRGBA, row int) []int {
	w := img.Bounds().Dx()
	vals := make([]int, 0, w*3)
	for x := 0; x < w; x++ {
		off := img.PixOffset(x, row)
		vals = append(vals, int(img.Pix[off]), int(img.Pix[off+1]), int(img.Pix[off+2]))
	}
	return vals
}

func TestApplyNoiseStaysInRange(t *testing.T) {
	img := testImage(16, 16)
	p := disabledParams()
	p.LumaNoiseLevel = 200
	p.ChromaNoiseLevel = 200

	// Clamp keeps even extreme noise within the byte range; a panic or
	// wrapped sample would show up as garbage alpha or bounds change.
	out := Apply(img, p, rand.New(rand.NewSource(3)))
	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
}
