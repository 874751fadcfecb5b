package dataset

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/draw"
)

// Transform converts a decoded image into the network input tensor:
// grayscale, bilinear resize to Height x Width, scaled to [0,1].
// The tensor layout is [1][Height][Width], flattened.
type Transform struct {
	Height int
	Width  int
}

// Size returns the number of float32 values Apply produces.
func (t Transform) Size() int {
	return t.Height * t.Width
}

// Apply runs the transform on img.
func (t Transform) Apply(img image.Image) ([]float32, error) {
	if t.Height <= 0 || t.Width <= 0 {
		return nil, fmt.Errorf("dataset: invalid transform size %dx%d", t.Height, t.Width)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.New("dataset: empty image")
	}

	gray := toGray(img)

	resized := gray
	if bounds.Dx() != t.Width || bounds.Dy() != t.Height {
		resized = image.NewGray(image.Rect(0, 0, t.Width, t.Height))
		draw.BiLinear.Scale(resized, resized.Bounds(), gray, bounds, draw.Src, nil)
	}

	out := make([]float32, t.Size())
	for y := 0; y < t.Height; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < t.Width; x++ {
			out[y*t.Width+x] = float32(row[x]) / 255
		}
	}
	return out, nil
}

// toGray converts with ITU-R 601-2 luma from non-premultiplied RGB, so
// alpha is ignored rather than darkening translucent pixels.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			l := (19595*uint32(c.R) + 38470*uint32(c.G) + 7471*uint32(c.B) + 1<<15) >> 16
			gray.SetGray(x, y, color.Gray{Y: uint8(l)})
		}
	}
	return gray
}

// LoadTensor decodes the image at path and applies the transform.
func (t Transform) LoadTensor(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: decode %s: %w", path, err)
	}
	tensor, err := t.Apply(img)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tensor, nil
}
