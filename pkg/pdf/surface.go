package pdf

import (
	"context"
	"io"
	"strings"
)

// Surface is the page-drawing target a certificate is laid out on.
// Coordinates and sizes are in millimetres with the origin at the top left.
type Surface interface {
	PageSize() (width, height float64)
	SetFont(family, style string, size float64)
	MeasureTextWidth(text string) float64
	WriteText(x, y float64, text string)
	DrawLine(x1, y1, x2, y2 float64)
	// PlaceImage draws the image behind ref. A zero height keeps the aspect ratio.
	PlaceImage(ctx context.Context, ref string, x, y, w, h float64) error
	Finalize(w io.Writer) error
}

// ImageSource resolves an image reference to its bytes and gofpdf image type
// ("jpg", "png" or "gif").
type ImageSource interface {
	Open(ctx context.Context, ref string) ([]byte, string, error)
}

// PageSize is a named landscape page size in millimetres.
type PageSize struct {
	Name   string
	Width  float64
	Height float64
}

// A4 is the only page size certificates are produced in.
var A4 = PageSize{Name: "A4", Width: 297, Height: 210}

// LookupPageSize maps a size name to its dimensions. Unknown names fall back to A4.
func LookupPageSize(name string) PageSize {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	// A4 Size
	default:
		return A4
	}
}
