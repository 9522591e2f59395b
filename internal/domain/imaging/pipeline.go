package imaging

import (
	"bytes"
	"image"
	"image/png"
	"math/rand"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"retrocast-server-go/internal/domain/vhs"
	platformerrors "retrocast-server-go/internal/platform/errors"
)

// Pipeline turns a downloaded image payload into the encoded frame that goes
// on the wire: decode, resize to the output resolution, degrade, encode PNG.
type Pipeline struct {
	width  int
	height int
	params vhs.Params
}

func NewPipeline(width, height int, params vhs.Params) *Pipeline {
	return &Pipeline{
		width:  width,
		height: height,
		params: params,
	}
}

// Decode parses any of the supported formats (jpeg, png, gif, webp) into an
// NRGBA image. Failures carry the decode error kind so pollers skip the item.
func (p *Pipeline) Decode(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, platformerrors.New(platformerrors.KindDecode, "decode", "empty image payload")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindDecode, "decode", "parse image payload", err)
	}
	return toNRGBA(img), nil
}

// Resize scales img to the configured output resolution with a Catmull-Rom
// filter. Input already at the target size is copied, not shared.
func (p *Pipeline) Resize(img *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// EncodePNG serializes img into a self-describing PNG payload.
func (p *Pipeline) EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindDecode, "encode", "encode png", err)
	}
	return buf.Bytes(), nil
}

// Process runs the full decode → resize → degrade → encode chain.
func (p *Pipeline) Process(data []byte, rng *rand.Rand) ([]byte, error) {
	decoded, err := p.Decode(data)
	if err != nil {
		return nil, err
	}

	resized := p.Resize(decoded)
	degraded := vhs.Apply(resized, p.params, rng)

	return p.EncodePNG(degraded)
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
