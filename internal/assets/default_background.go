package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
)

// Generated at 4 px/mm so it maps onto a 297x210 mm page.
const (
	backgroundWidth  = 297 * 4
	backgroundHeight = 210 * 4
)

var (
	parchment  = color.RGBA{R: 250, G: 244, B: 227, A: 255}
	frameOuter = color.RGBA{R: 122, G: 94, B: 48, A: 255}
	frameInner = color.RGBA{R: 176, G: 141, B: 87, A: 255}

	backgroundOnce sync.Once
	backgroundPNG  []byte
	backgroundErr  error
)

// DefaultBackground returns the bundled background: a parchment page with a
// double frame.
func DefaultBackground() ([]byte, error) {
	backgroundOnce.Do(func() {
		backgroundPNG, backgroundErr = renderBackground()
	})
	return backgroundPNG, backgroundErr
}

func renderBackground() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, backgroundWidth, backgroundHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: parchment}, image.Point{}, draw.Src)

	frame(img, 32, 12, frameOuter)
	frame(img, 56, 4, frameInner)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// frame draws a rectangular border of the given thickness, inset from the edges.
func frame(img *image.RGBA, inset, thickness int, c color.Color) {
	b := img.Bounds()
	src := &image.Uniform{C: c}
	outer := image.Rect(b.Min.X+inset, b.Min.Y+inset, b.Max.X-inset, b.Max.Y-inset)

	sides := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, outer.Min.Y+thickness),
		image.Rect(outer.Min.X, outer.Max.Y-thickness, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, outer.Min.Y, outer.Min.X+thickness, outer.Max.Y),
		image.Rect(outer.Max.X-thickness, outer.Min.Y, outer.Max.X, outer.Max.Y),
	}
	for _, r := range sides {
		draw.Draw(img, r, src, image.Point{}, draw.Src)
	}
}
