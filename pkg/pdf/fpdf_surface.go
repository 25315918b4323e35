package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"
)

// FpdfSurface draws onto a single landscape gofpdf page.
type FpdfSurface struct {
	pdf       *gofpdf.Fpdf
	size      PageSize
	images    ImageSource
	translate func(string) string
	utf8Fonts map[string]bool
	current   string
	fontSet   bool
	err       error
}

// SurfaceOption configures a new FpdfSurface.
type SurfaceOption func(*FpdfSurface)

// WithUTF8Font registers a TrueType font file under family/style.
func WithUTF8Font(family, style, file string) SurfaceOption {
	return func(s *FpdfSurface) {
		data, err := os.ReadFile(file)
		if err != nil {
			s.err = fmt.Errorf("failed to read font %s: %w", file, err)
			return
		}
		WithUTF8FontBytes(family, style, data)(s)
	}
}

// WithUTF8FontBytes registers an in-memory TrueType font under family/style.
func WithUTF8FontBytes(family, style string, data []byte) SurfaceOption {
	return func(s *FpdfSurface) {
		s.pdf.AddUTF8FontFromBytes(family, style, data)
		s.utf8Fonts[fontKey(family, style)] = true
	}
}

// WithMetadata sets the document title and author.
func WithMetadata(title, author string) SurfaceOption {
	return func(s *FpdfSurface) {
		s.pdf.SetTitle(title, true)
		s.pdf.SetAuthor(author, true)
		s.pdf.SetCreator("certificate-backend", true)
	}
}

// NewFpdfSurface creates a one-page landscape document of the given size.
// Font registration failures are reported here.
func NewFpdfSurface(size PageSize, images ImageSource, opts ...SurfaceOption) (*FpdfSurface, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: size.Height, Ht: size.Width},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	s := &FpdfSurface{
		pdf:       pdf,
		size:      size,
		images:    images,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
		utf8Fonts: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to register fonts: %w", err)
	}

	pdf.AddPage()
	return s, nil
}

func (s *FpdfSurface) PageSize() (float64, float64) {
	return s.size.Width, s.size.Height
}

func (s *FpdfSurface) SetFont(family, style string, size float64) {
	s.pdf.SetFont(family, style, size)
	s.current = fontKey(family, style)
	s.fontSet = true
}

func (s *FpdfSurface) MeasureTextWidth(text string) float64 {
	if !s.fontSet {
		return 0
	}
	return s.pdf.GetStringWidth(s.encode(text))
}

func (s *FpdfSurface) WriteText(x, y float64, text string) {
	s.pdf.SetXY(x, y)
	s.pdf.CellFormat(0, 0, s.encode(text), "", 0, "L", false, 0, "")
}

func (s *FpdfSurface) DrawLine(x1, y1, x2, y2 float64) {
	s.pdf.Line(x1, y1, x2, y2)
}

func (s *FpdfSurface) PlaceImage(ctx context.Context, ref string, x, y, w, h float64) error {
	if s.err != nil {
		return s.err
	}

	data, imageType, err := s.images.Open(ctx, ref)
	if err != nil {
		s.err = fmt.Errorf("failed to load image %q: %w", ref, err)
		return s.err
	}

	opts := gofpdf.ImageOptions{ImageType: imageType}
	s.pdf.RegisterImageOptionsReader(ref, opts, bytes.NewReader(data))
	s.pdf.ImageOptions(ref, x, y, w, h, false, opts, 0, "")
	if err := s.pdf.Error(); err != nil {
		s.err = fmt.Errorf("failed to place image %q: %w", ref, err)
		return s.err
	}
	return nil
}

// Finalize writes the document. Nothing is written if any earlier step failed.
func (s *FpdfSurface) Finalize(w io.Writer) error {
	if s.err != nil {
		return s.err
	}
	if err := s.pdf.Error(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := s.pdf.Output(&buf); err != nil {
		return fmt.Errorf("failed to output pdf: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// encode converts text for the core fonts, which are cp1252.
func (s *FpdfSurface) encode(text string) string {
	if s.utf8Fonts[s.current] {
		return text
	}
	return s.translate(text)
}

func fontKey(family, style string) string {
	return family + "|" + style
}
