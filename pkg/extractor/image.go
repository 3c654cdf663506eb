package extractor

import (
	"bytes"
	"image"
	"image/png"

	// decoders for the image kinds we accept
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Prepare converts img to grayscale and upscales it 2x with bilinear
// interpolation.
func Prepare(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)

	scaled := image.NewGray(image.Rect(0, 0, b.Dx()*2, b.Dy()*2))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), gray, gray.Bounds(), draw.Src, nil)
	return scaled
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
