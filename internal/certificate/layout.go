package certificate

import (
	"context"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"coursecert/certificate-backend/internal/assets"
	"coursecert/certificate-backend/internal/settings"
	"coursecert/certificate-backend/pkg/pdf"
)

// Layout positions in millimetres on a landscape A4 page.
const (
	topLineY         = 45.0
	nameLineWidth    = 120.0
	courseLineWidth  = 180.0
	footerY          = 162.0
	footerLineLength = 60.0
	dateX            = 40.0
	signatureInset   = 100.0 // signature block starts this far from the right edge
	logoY            = 134.0

	headingFontSize    = 32.0
	decorativeFontSize = 16.0
	labelFontSize      = 14.0
	footerFontSize     = 15.0
)

// Font selects a family and style on the surface.
type Font struct {
	Family string
	Style  string
}

// Fonts are the three faces a certificate uses.
type Fonts struct {
	Heading    Font
	Label      Font
	Decorative Font
}

// DefaultFonts uses core PDF fonts only, so no font files are needed.
func DefaultFonts() Fonts {
	return Fonts{
		Heading:    Font{Family: "Helvetica", Style: "B"},
		Label:      Font{Family: "Helvetica"},
		Decorative: Font{Family: "Times", Style: "I"},
	}
}

// ImageSizes are the pixel sizes uploaded signature and logo images are
// scaled to, at 72 dpi.
type ImageSizes struct {
	SignatureWidthPx  float64
	SignatureHeightPx float64
	LogoWidthPx       float64
}

func DefaultImageSizes() ImageSizes {
	return ImageSizes{
		SignatureWidthPx:  340,
		SignatureHeightPx: 80,
		LogoWidthPx:       200,
	}
}

// PxToMM converts pixels to millimetres at 72 dpi.
func PxToMM(px float64) float64 {
	return px * 25.4 / 72
}

// MMToPx converts millimetres to pixels at 72 dpi.
func MMToPx(mm float64) float64 {
	return mm * 72 / 25.4
}

// LeftOfCenter returns the x position that centers an item of width w in a region of width region.
func LeftOfCenter(region, w float64) float64 {
	return (region - w) / 2
}

// Engine lays out the fixed certificate template.
type Engine struct {
	fonts  Fonts
	images ImageSizes
	now    func() time.Time
}

type EngineOption func(*Engine)

func WithFonts(fonts Fonts) EngineOption {
	return func(e *Engine) { e.fonts = fonts }
}

func WithImageSizes(sizes ImageSizes) EngineOption {
	return func(e *Engine) { e.images = sizes }
}

// WithClock overrides the clock used for the printed date.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		fonts:  DefaultFonts(),
		images: DefaultImageSizes(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout draws a complete certificate onto surface. The first surface error
// aborts the layout.
func (e *Engine) Layout(ctx context.Context, surface pdf.Surface, student, course string, s settings.Settings) error {
	pageWidth, pageHeight := surface.PageSize()
	l := &pageLayout{surface: surface, width: pageWidth}

	background := assets.DefaultBackgroundRef
	if s.UsesCustomBackground() {
		background = s.BackgroundURL
	}
	if err := surface.PlaceImage(ctx, background, 0, 0, pageWidth, pageHeight); err != nil {
		return err
	}

	upper := cases.Upper(language.Make(s.Locale))

	l.setFont(e.fonts.Heading, headingFontSize)
	l.centerString(upper.String(s.Labels.Certify), topLineY)

	l.setFont(e.fonts.Decorative, decorativeFontSize)
	l.centerString(student, topLineY+20)
	l.centerLine(nameLineWidth, topLineY+24)

	l.setFont(e.fonts.Heading, headingFontSize)
	l.centerString(upper.String(s.Labels.Completed), topLineY+50)

	l.setFont(e.fonts.Decorative, decorativeFontSize)
	l.centerString(course, topLineY+70)
	l.centerLine(courseLineWidth, topLineY+74)

	signatureX := pageWidth - signatureInset

	l.setFont(e.fonts.Label, labelFontSize)
	surface.WriteText(dateX, footerY+8, s.Labels.Date)
	surface.WriteText(signatureX, footerY+8, s.Labels.Instructor)

	surface.DrawLine(dateX, footerY+3, dateX+footerLineLength, footerY+3)
	surface.DrawLine(signatureX, footerY+3, signatureX+footerLineLength, footerY+3)

	l.setFont(e.fonts.Decorative, footerFontSize)
	date := formatDate(e.now(), s.DateFormat, s.Locale)
	surface.WriteText(dateX+LeftOfCenter(footerLineLength, surface.MeasureTextWidth(date)), footerY, date)

	if err := e.signature(ctx, surface, s, signatureX); err != nil {
		return err
	}
	return e.logo(ctx, surface, s, pageWidth)
}

func (e *Engine) signature(ctx context.Context, surface pdf.Surface, s settings.Settings, signatureX float64) error {
	switch s.SignatureType {
	case settings.SignatureText:
		if s.SignatureText == "" {
			return nil
		}
		w := surface.MeasureTextWidth(s.SignatureText)
		surface.WriteText(signatureX+LeftOfCenter(footerLineLength, w), footerY, s.SignatureText)
		return nil

	case settings.SignatureImage:
		if s.SignatureImageURL == "" {
			return nil
		}
		w := PxToMM(e.images.SignatureWidthPx)
		h := PxToMM(e.images.SignatureHeightPx)
		// only the width is forced; the image keeps its aspect ratio
		return surface.PlaceImage(ctx, s.SignatureImageURL, signatureX+LeftOfCenter(footerLineLength, w), footerY-h+3, w, 0)
	}
	return nil
}

func (e *Engine) logo(ctx context.Context, surface pdf.Surface, s settings.Settings, pageWidth float64) error {
	if !s.ShowsLogo() {
		return nil
	}
	w := PxToMM(e.images.LogoWidthPx)
	return surface.PlaceImage(ctx, s.LogoURL, LeftOfCenter(pageWidth, w), logoY, w, 0)
}

type pageLayout struct {
	surface pdf.Surface
	width   float64
}

func (l *pageLayout) setFont(f Font, size float64) {
	l.surface.SetFont(f.Family, f.Style, size)
}

func (l *pageLayout) centerString(str string, y float64) {
	l.surface.WriteText(LeftOfCenter(l.width, l.surface.MeasureTextWidth(str)), y, str)
}

func (l *pageLayout) centerLine(width, y float64) {
	x := LeftOfCenter(l.width, width)
	l.surface.DrawLine(x, y, x+width, y)
}
