package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	args := m.Called(ctx, bucket, key, body, contentType)
	return args.Error(0)
}

func (m *MockS3Client) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockS3Client) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockS3Client) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expiration)
	return args.String(0), args.Error(1)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	data, err := DefaultBackground()
	require.NoError(t, err)
	return data
}

func TestDefaultBackgroundIsPNG(t *testing.T) {
	data := pngBytes(t)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))

	l := NewLoader(zap.NewNop())
	got, imageType, err := l.Open(context.Background(), DefaultBackgroundRef)
	require.NoError(t, err)
	assert.Equal(t, "png", imageType)
	assert.Equal(t, data, got)
}

func TestLoaderDefaultBackgroundOverride(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "certificate_bg.png")
	require.NoError(t, os.WriteFile(p, pngBytes(t), 0o600))

	l := NewLoader(zap.NewNop(), WithDefaultBackground(p))
	_, imageType, err := l.Open(context.Background(), DefaultBackgroundRef)
	require.NoError(t, err)
	assert.Equal(t, "png", imageType)
}

func TestLoaderHTTP(t *testing.T) {
	data := pngBytes(t)
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		switch r.URL.Path {
		case "/logo":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(data)
		case "/sniff":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cache := NewCache(time.Minute)
	defer cache.Stop()
	l := NewLoader(zap.NewNop(), WithCache(cache))
	ctx := context.Background()

	got, imageType, err := l.Open(ctx, srv.URL+"/logo")
	require.NoError(t, err)
	assert.Equal(t, "png", imageType)
	assert.Equal(t, data, got)

	_, _, err = l.Open(ctx, srv.URL+"/logo")
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second open should be served from cache")

	_, imageType, err = l.Open(ctx, srv.URL+"/sniff")
	require.NoError(t, err)
	assert.Equal(t, "png", imageType)

	_, _, err = l.Open(ctx, srv.URL+"/missing.png")
	assert.Error(t, err)
	assert.Equal(t, 2, cache.Size())
}

func TestLoaderS3(t *testing.T) {
	s3 := new(MockS3Client)
	s3.On("Download", mock.Anything, "assets", "signatures/smith.png").
		Return(io.NopCloser(bytes.NewReader(pngBytes(t))), nil)
	s3.On("Download", mock.Anything, "assets", "missing.jpg").
		Return(nil, errors.New("NoSuchKey"))

	l := NewLoader(zap.NewNop(), WithS3(s3))
	ctx := context.Background()

	_, imageType, err := l.Open(ctx, "s3://assets/signatures/smith.png")
	require.NoError(t, err)
	assert.Equal(t, "png", imageType)

	_, _, err = l.Open(ctx, "s3://assets/missing.jpg")
	assert.Error(t, err)

	s3.AssertExpectations(t)
}

func TestLoaderS3WithoutClient(t *testing.T) {
	l := NewLoader(zap.NewNop())
	_, _, err := l.Open(context.Background(), "s3://assets/logo.png")
	assert.Error(t, err)
}

func TestLoaderUnsupportedInputs(t *testing.T) {
	l := NewLoader(zap.NewNop())
	ctx := context.Background()

	_, _, err := l.Open(ctx, "ftp://example.com/logo.png")
	assert.Error(t, err)

	_, _, err = l.Open(ctx, filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)

	p := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("plain text, not an image"), 0o600))
	_, _, err = l.Open(ctx, p)
	assert.Error(t, err)
}
