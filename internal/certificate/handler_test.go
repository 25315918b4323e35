package certificate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coursecert/certificate-backend/internal/assets"
	"coursecert/certificate-backend/internal/settings"
	"coursecert/certificate-backend/pkg/security"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Render(ctx context.Context, req RenderRequest) (*Document, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockService) Issue(ctx context.Context, req IssueRequest) (*Issued, *Document, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*Issued), args.Get(1).(*Document), args.Error(2)
}

func (m *MockService) Verify(ctx context.Context, id uuid.UUID, code string) (*Issued, error) {
	args := m.Called(ctx, id, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Issued), args.Error(1)
}

func (m *MockService) ArchiveURL(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockService) ExportIssued(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	if args.Error(0) == nil {
		_, _ = w.Write([]byte("xlsx"))
	}
	return args.Error(0)
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	protect := func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("user_id", "admin")
		c.Next()
	}
	NewHandler(svc, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"), protect)
	return r
}

func TestRenderCertificateHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("Render", mock.Anything, RenderRequest{Student: "Jane Doe", Course: "Intro to Go", Mode: OutputInline}).
		Return(&Document{Data: []byte("%PDF-1.3"), Filename: Filename, ContentType: ContentType, Mode: OutputInline}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/render?student=Jane+Doe&course=Intro+to+Go&mode=browser", nil)
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="certificate.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", w.Body.String())
	svc.AssertExpectations(t)
}

func TestRenderCertificateHandlerRequiresNames(t *testing.T) {
	svc := new(MockService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/render?student=Jane", nil)
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestIssueCertificateHandler(t *testing.T) {
	id := uuid.New()
	issued := &Issued{ID: id, Student: "Jane Doe", Course: "Intro to Go", VerificationCode: "ABCD-EF01-2345-6789-ABCD", IssuedBy: "admin"}
	doc := &Document{Data: []byte("%PDF-1.3"), Filename: Filename, ContentType: ContentType, Mode: OutputDownload}

	svc := new(MockService)
	svc.On("Issue", mock.Anything, IssueRequest{Student: "Jane Doe", Course: "Intro to Go", Mode: OutputDownload, IssuedBy: "admin"}).
		Return(issued, doc, nil)
	router := setupRouter(svc)

	body := `{"student":"Jane Doe","course":"Intro to Go"}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/certificates/issue", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/certificates/issue", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got Issued
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/certificates/issue?format=pdf", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), w.Header().Get("X-Certificate-ID"))
	assert.Equal(t, issued.VerificationCode, w.Header().Get("X-Verification-Code"))
	assert.Equal(t, `attachment; filename="certificate.pdf"`, w.Header().Get("Content-Disposition"))
}

func TestVerifyCertificateHandler(t *testing.T) {
	known := uuid.New()
	missing := uuid.New()

	svc := new(MockService)
	svc.On("Verify", mock.Anything, known, "GOOD").Return(&Issued{ID: known}, nil)
	svc.On("Verify", mock.Anything, known, "BAD").Return(nil, ErrInvalidCode)
	svc.On("Verify", mock.Anything, missing, "GOOD").Return(nil, ErrNotFound)
	router := setupRouter(svc)

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/certificates/" + known.String() + "/verify?code=GOOD", http.StatusOK},
		{"/api/v1/certificates/" + known.String() + "/verify?code=BAD", http.StatusForbidden},
		{"/api/v1/certificates/" + missing.String() + "/verify?code=GOOD", http.StatusNotFound},
		{"/api/v1/certificates/not-a-uuid/verify?code=GOOD", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, tt.path)
	}
}

func TestArchiveURLHandler(t *testing.T) {
	archived := uuid.New()
	plain := uuid.New()

	svc := new(MockService)
	svc.On("ArchiveURL", mock.Anything, archived).Return("https://s3.example.com/signed", nil)
	svc.On("ArchiveURL", mock.Anything, plain).Return("", ErrNotArchived)
	router := setupRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/"+archived.String()+"/archive", nil)
	req.Header.Set("Authorization", "Bearer token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://s3.example.com/signed"}`, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/certificates/"+plain.String()+"/archive", nil)
	req.Header.Set("Authorization", "Bearer token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCertificatesHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("ExportIssued", mock.Anything, mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/export", nil)
	req.Header.Set("Authorization", "Bearer token")
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "xlsx", w.Body.String())
}

func TestRenderCertificateDownloadEndToEnd(t *testing.T) {
	var surfaces []*recordingSurface
	renderer := NewRenderer(NewEngine(WithClock(fixedClock)), recordingFactory(&surfaces))
	store := settings.NewService(settings.NewMemoryStore(map[string]string{
		settings.KeyBackgroundType: string(settings.BackgroundDefault),
		settings.KeyLogoEnabled:    "",
		settings.KeySignatureType:  string(settings.SignatureText),
		settings.KeySignatureText:  "J. Smith",
	}), zap.NewNop())
	signer, err := security.NewCodeSigner("test-secret")
	require.NoError(t, err)

	svc := NewService(renderer, store, NewMemoryRepository(), signer, nil, nil, zap.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/render?student=Jane+Doe&course=Intro+to+Go&mode=download", nil)
	setupRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="certificate.pdf"`, w.Header().Get("Content-Disposition"))

	require.Len(t, surfaces, 1)
	surface := surfaces[0]

	sig := surface.text(t, "J. Smith")
	width := 8 * footerFontSize * 0.05
	assert.InDelta(t, 197+(60-width)/2, sig.X, 1e-9)
	assert.Equal(t, 162.0, sig.Y)

	require.Len(t, surface.images, 1)
	assert.Equal(t, assets.DefaultBackgroundRef, surface.images[0].Ref)
	assert.True(t, surface.hasText("Jane Doe"))
	assert.True(t, surface.hasText("Intro to Go"))
}
