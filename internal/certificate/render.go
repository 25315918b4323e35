package certificate

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"coursecert/certificate-backend/internal/settings"
	"coursecert/certificate-backend/pkg/pdf"
)

const (
	Filename    = "certificate.pdf"
	ContentType = "application/pdf"
)

// OutputMode selects how the browser should treat the document.
type OutputMode string

const (
	OutputInline   OutputMode = "inline"
	OutputDownload OutputMode = "download"
)

// ParseOutputMode accepts "inline" and "browser" for inline display;
// every other value means download.
func ParseOutputMode(s string) OutputMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inline", "browser":
		return OutputInline
	default:
		return OutputDownload
	}
}

// Disposition returns the Content-Disposition type for the mode.
func (m OutputMode) Disposition() string {
	if m == OutputInline {
		return "inline"
	}
	return "attachment"
}

// Document is a finished certificate ready to be served.
type Document struct {
	Data        []byte
	Filename    string
	ContentType string
	Mode        OutputMode
}

// ContentDisposition is the full header value, e.g. `attachment; filename="certificate.pdf"`.
func (d *Document) ContentDisposition() string {
	return fmt.Sprintf("%s; filename=%q", d.Mode.Disposition(), d.Filename)
}

// SurfaceFactory creates a fresh drawing surface for one render.
type SurfaceFactory func(size pdf.PageSize) (pdf.Surface, error)

// Renderer runs the layout engine against a new surface per call.
type Renderer struct {
	engine     *Engine
	newSurface SurfaceFactory
}

func NewRenderer(engine *Engine, newSurface SurfaceFactory) *Renderer {
	return &Renderer{engine: engine, newSurface: newSurface}
}

// Render produces the certificate document. Any error aborts the render and
// no document is returned.
func (r *Renderer) Render(ctx context.Context, req RenderRequest, s settings.Settings) (*Document, error) {
	surface, err := r.newSurface(pdf.LookupPageSize(s.PageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}

	if err := r.engine.Layout(ctx, surface, req.Student, req.Course, s); err != nil {
		return nil, fmt.Errorf("failed to lay out certificate: %w", err)
	}

	var buf bytes.Buffer
	if err := surface.Finalize(&buf); err != nil {
		return nil, fmt.Errorf("failed to finalize certificate: %w", err)
	}

	return &Document{
		Data:        buf.Bytes(),
		Filename:    Filename,
		ContentType: ContentType,
		Mode:        req.Mode,
	}, nil
}
