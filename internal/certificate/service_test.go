package certificate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"coursecert/certificate-backend/internal/notifications"
	"coursecert/certificate-backend/internal/settings"
	"coursecert/certificate-backend/pkg/security"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyIssued(ctx context.Context, notice notifications.IssuedNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}

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

type failingLoader struct{}

func (failingLoader) Load(ctx context.Context) (settings.Settings, error) {
	return settings.Settings{}, errors.New("store offline")
}

type serviceFixture struct {
	service  Service
	repo     Repository
	notifier *MockNotifier
	s3       *MockS3Client
}

func newServiceFixture(t *testing.T, withArchive bool) *serviceFixture {
	t.Helper()
	signer, err := security.NewCodeSigner("test-secret")
	require.NoError(t, err)

	var surfaces []*recordingSurface
	renderer := NewRenderer(NewEngine(WithClock(fixedClock)), recordingFactory(&surfaces))
	store := settings.NewService(settings.NewMemoryStore(map[string]string{
		settings.KeySignatureText: "Dr. Smith",
	}), zap.NewNop())

	f := &serviceFixture{
		repo:     NewMemoryRepository(),
		notifier: new(MockNotifier),
		s3:       new(MockS3Client),
	}
	var archive *Archive
	if withArchive {
		archive = NewArchive(f.s3, "certs", 15*time.Minute)
	}
	f.service = NewService(renderer, store, f.repo, signer, archive, f.notifier, zap.NewNop())
	return f
}

func TestServiceRender(t *testing.T) {
	f := newServiceFixture(t, false)

	doc, err := f.service.Render(context.Background(), RenderRequest{Student: "Jane Doe", Course: "Intro to Go", Mode: OutputInline})
	require.NoError(t, err)
	assert.Equal(t, OutputInline, doc.Mode)
	assert.Equal(t, "%PDF-recorded", string(doc.Data))
}

func TestServiceRenderSettingsError(t *testing.T) {
	var surfaces []*recordingSurface
	svc := NewService(NewRenderer(NewEngine(), recordingFactory(&surfaces)), failingLoader{},
		NewMemoryRepository(), nil, nil, nil, zap.NewNop())

	doc, err := svc.Render(context.Background(), RenderRequest{Student: "A", Course: "B"})
	assert.Nil(t, doc)
	assert.ErrorContains(t, err, "store offline")
	assert.Empty(t, surfaces)
}

func TestServiceIssueAndVerify(t *testing.T) {
	f := newServiceFixture(t, false)
	f.notifier.On("NotifyIssued", mock.Anything, mock.MatchedBy(func(n notifications.IssuedNotice) bool {
		return n.Email == "jane@example.com" && n.Event.Student == "Jane Doe" && n.Filename == Filename
	})).Return(nil)

	issued, doc, err := f.service.Issue(context.Background(), IssueRequest{
		Student:  "Jane Doe",
		Course:   "Intro to Go",
		Email:    " jane@example.com ",
		IssuedBy: "admin",
	})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "jane@example.com", issued.Email)
	assert.Equal(t, "admin", issued.IssuedBy)
	assert.Nil(t, issued.ArchiveKey)
	assert.Regexp(t, `^[0-9A-F]{4}(-[0-9A-F]{4}){4}$`, issued.VerificationCode)

	got, err := f.service.Verify(context.Background(), issued.ID, issued.VerificationCode)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, got.ID)

	_, err = f.service.Verify(context.Background(), issued.ID, "0000-0000-0000-0000-0000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = f.service.Verify(context.Background(), uuid.New(), issued.VerificationCode)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.ArchiveURL(context.Background(), issued.ID)
	assert.ErrorIs(t, err, ErrNotArchived)

	f.notifier.AssertExpectations(t)
}

func TestServiceIssueNotificationFailureIsNotFatal(t *testing.T) {
	f := newServiceFixture(t, false)
	f.notifier.On("NotifyIssued", mock.Anything, mock.Anything).Return(errors.New("ses down"))

	issued, _, err := f.service.Issue(context.Background(), IssueRequest{Student: "Jane Doe", Course: "Intro to Go"})
	require.NoError(t, err)

	stored, err := f.repo.GetByID(context.Background(), issued.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestServiceIssueArchives(t *testing.T) {
	f := newServiceFixture(t, true)
	f.notifier.On("NotifyIssued", mock.Anything, mock.MatchedBy(func(n notifications.IssuedNotice) bool {
		return n.Event.ArchiveKey != ""
	})).Return(nil)
	f.s3.On("Upload", mock.Anything, "certs", mock.AnythingOfType("string"), mock.Anything, ContentType).Return(nil)

	issued, _, err := f.service.Issue(context.Background(), IssueRequest{Student: "Jane Doe", Course: "Intro to Go"})
	require.NoError(t, err)
	require.NotNil(t, issued.ArchiveKey)
	assert.Regexp(t, `^certificates/\d{4}/\d{2}/`+issued.ID.String()+`\.pdf$`, *issued.ArchiveKey)

	f.s3.On("GetPresignedURL", mock.Anything, "certs", *issued.ArchiveKey, 15*time.Minute).
		Return("https://s3.example.com/signed", nil)
	url, err := f.service.ArchiveURL(context.Background(), issued.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com/signed", url)

	f.s3.AssertExpectations(t)
}

func TestServiceIssueArchiveFailureRecordsNothing(t *testing.T) {
	f := newServiceFixture(t, true)
	f.s3.On("Upload", mock.Anything, "certs", mock.Anything, mock.Anything, ContentType).Return(errors.New("access denied"))

	issued, doc, err := f.service.Issue(context.Background(), IssueRequest{Student: "Jane Doe", Course: "Intro to Go"})
	assert.ErrorContains(t, err, "access denied")
	assert.Nil(t, issued)
	assert.Nil(t, doc)

	all, err := f.repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	f.notifier.AssertNotCalled(t, "NotifyIssued", mock.Anything, mock.Anything)
}

func TestServiceExportIssued(t *testing.T) {
	f := newServiceFixture(t, false)
	f.notifier.On("NotifyIssued", mock.Anything, mock.Anything).Return(nil)

	for _, student := range []string{"Jane Doe", "John Roe"} {
		_, _, err := f.service.Issue(context.Background(), IssueRequest{Student: student, Course: "Intro to Go"})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, f.service.ExportIssued(context.Background(), &buf))

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Certificate ID", rows[0][0])
	assert.Equal(t, "Intro to Go", rows[1][2])
}

type failingRepository struct {
	Repository
	err error
}

func (r failingRepository) Create(ctx context.Context, issued *Issued) error {
	return r.err
}

func TestServiceIssueRemovesArchiveWhenRecordFails(t *testing.T) {
	signer, err := security.NewCodeSigner("test-secret")
	require.NoError(t, err)

	var surfaces []*recordingSurface
	renderer := NewRenderer(NewEngine(WithClock(fixedClock)), recordingFactory(&surfaces))
	store := settings.NewService(settings.NewMemoryStore(nil), zap.NewNop())

	s3 := new(MockS3Client)
	notifier := new(MockNotifier)
	var uploadedKey string
	s3.On("Upload", mock.Anything, "certs", mock.AnythingOfType("string"), mock.Anything, ContentType).
		Run(func(args mock.Arguments) { uploadedKey = args.String(2) }).
		Return(nil)
	s3.On("Delete", mock.Anything, "certs", mock.AnythingOfType("string")).Return(nil)

	svc := NewService(renderer, store, failingRepository{Repository: NewMemoryRepository(), err: errors.New("db down")},
		signer, NewArchive(s3, "certs", time.Minute), notifier, zap.NewNop())

	issued, doc, err := svc.Issue(context.Background(), IssueRequest{Student: "Jane Doe", Course: "Intro to Go"})
	assert.ErrorContains(t, err, "db down")
	assert.Nil(t, issued)
	assert.Nil(t, doc)

	s3.AssertCalled(t, "Delete", mock.Anything, "certs", uploadedKey)
	notifier.AssertNotCalled(t, "NotifyIssued", mock.Anything, mock.Anything)
}

func TestServiceIssueRemoveFailureKeepsRecordError(t *testing.T) {
	signer, err := security.NewCodeSigner("test-secret")
	require.NoError(t, err)

	var surfaces []*recordingSurface
	renderer := NewRenderer(NewEngine(), recordingFactory(&surfaces))
	store := settings.NewService(settings.NewMemoryStore(nil), zap.NewNop())

	s3 := new(MockS3Client)
	s3.On("Upload", mock.Anything, "certs", mock.Anything, mock.Anything, ContentType).Return(nil)
	s3.On("Delete", mock.Anything, "certs", mock.Anything).Return(errors.New("access denied"))

	svc := NewService(renderer, store, failingRepository{Repository: NewMemoryRepository(), err: errors.New("db down")},
		signer, NewArchive(s3, "certs", time.Minute), nil, zap.NewNop())

	_, _, err = svc.Issue(context.Background(), IssueRequest{Student: "Jane Doe", Course: "Intro to Go"})
	assert.ErrorContains(t, err, "failed to record certificate: db down")
	assert.NotContains(t, err.Error(), "access denied")
	s3.AssertNumberOfCalls(t, "Delete", 1)
}
