package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"retrocast-server-go/internal/domain/vhs"
	platformerrors "retrocast-server-go/internal/platform/errors"
)

func pngPayload(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessProducesResizedPNG(t *testing.T) {
	p := NewPipeline(64, 48, vhs.DefaultParams())

	out, err := p.Process(pngPayload(t, 200, 100), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a valid png: %v", err)
	}
	if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
		t.Errorf("output size = %v, want 64x48", decoded.Bounds())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	p := NewPipeline(64, 64, vhs.DefaultParams())

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"not an image", []byte("<html>not found</html>")},
		{"truncated header", []byte{0x89, 0x50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Decode(tt.payload)
			if err == nil {
				t.Fatal("expected decode error")
			}
			if !platformerrors.IsKind(err, platformerrors.KindDecode) {
				t.Errorf("expected decode kind, got %v", err)
			}
		})
	}
}

func TestResizeUpscalesSmallInput(t *testing.T) {
	p := NewPipeline(32, 32, vhs.DefaultParams())

	img, err := p.Decode(pngPayload(t, 2, 2))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out := p.Resize(img)
	if out.Bounds().Dx() != 32 || out.Bounds().Dy() != 32 {
		t.Errorf("resized bounds = %v, want 32x32", out.Bounds())
	}
}
