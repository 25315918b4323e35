package assets

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"coursecert/certificate-backend/pkg/storage"
)

// DefaultBackgroundRef names the bundled certificate background.
const DefaultBackgroundRef = "builtin:default-background"

// maxImageSize bounds a single fetched image.
const maxImageSize = 20 << 20

// Loader resolves image references for the PDF surface. It understands
// http(s) URLs, s3://bucket/key, local paths and DefaultBackgroundRef.
type Loader struct {
	s3                storage.S3Client
	httpClient        *http.Client
	cache             *Cache
	defaultBackground string
	logger            *zap.Logger
}

type LoaderOption func(*Loader)

// WithS3 enables s3:// references.
func WithS3(client storage.S3Client) LoaderOption {
	return func(l *Loader) { l.s3 = client }
}

func WithCache(cache *Cache) LoaderOption {
	return func(l *Loader) { l.cache = cache }
}

// WithDefaultBackground replaces the generated background with an image reference.
func WithDefaultBackground(ref string) LoaderOption {
	return func(l *Loader) { l.defaultBackground = ref }
}

func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) { l.httpClient = client }
}

func NewLoader(logger *zap.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open returns the image bytes and gofpdf image type for ref.
func (l *Loader) Open(ctx context.Context, ref string) ([]byte, string, error) {
	if ref == DefaultBackgroundRef && l.defaultBackground != "" {
		ref = l.defaultBackground
	}

	if l.cache != nil {
		if data, imageType, ok := l.cache.Get(ref); ok {
			return data, imageType, nil
		}
	}

	data, imageType, err := l.fetch(ctx, ref)
	if err != nil {
		l.logger.Warn("Failed to load certificate image", zap.String("ref", ref), zap.Error(err))
		return nil, "", err
	}

	if l.cache != nil {
		l.cache.Set(ref, data, imageType)
	}
	return data, imageType, nil
}

func (l *Loader) fetch(ctx context.Context, ref string) ([]byte, string, error) {
	if ref == DefaultBackgroundRef {
		data, err := DefaultBackground()
		return data, "png", err
	}

	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		return l.fetchFile(ref)
	}

	switch u.Scheme {
	case "http", "https":
		return l.fetchHTTP(ctx, ref)
	case "s3":
		return l.fetchS3(ctx, u)
	case "file":
		return l.fetchFile(u.Path)
	default:
		return nil, "", fmt.Errorf("unsupported image scheme %q", u.Scheme)
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("failed to fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	imageType, err := detectType(ref, resp.Header.Get("Content-Type"), data)
	return data, imageType, err
}

func (l *Loader) fetchS3(ctx context.Context, u *url.URL) ([]byte, string, error) {
	if l.s3 == nil {
		return nil, "", fmt.Errorf("s3 image %s requested but no s3 client configured", u.String())
	}

	body, err := l.s3.Download(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	if err != nil {
		return nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxImageSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	imageType, err := detectType(u.Path, "", data)
	return data, imageType, err
}

func (l *Loader) fetchFile(p string) ([]byte, string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	imageType, err := detectType(p, "", data)
	return data, imageType, err
}

// detectType picks the gofpdf image type from the file extension, then the
// declared content type, then the content itself.
func detectType(ref, contentType string, data []byte) (string, error) {
	if u, err := url.Parse(ref); err == nil {
		ref = u.Path
	}
	if t := normalizeType(strings.TrimPrefix(path.Ext(ref), ".")); t != "" {
		return t, nil
	}

	if contentType != "" {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
			if t := normalizeType(strings.TrimPrefix(mediaType, "image/")); t != "" {
				return t, nil
			}
		}
	}

	detected := mimetype.Detect(data)
	if t := normalizeType(strings.TrimPrefix(detected.Extension(), ".")); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("unsupported image type %s", detected.String())
}

func normalizeType(t string) string {
	switch strings.ToLower(t) {
	case "jpg", "jpeg":
		return "jpg"
	case "png":
		return "png"
	case "gif":
		return "gif"
	}
	return ""
}
