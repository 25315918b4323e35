package certificate

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coursecert/certificate-backend/internal/notifications"
	"coursecert/certificate-backend/internal/settings"
	"coursecert/certificate-backend/pkg/security"
)

// SettingsLoader supplies the current certificate settings.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Notifier announces issued certificates.
type Notifier interface {
	NotifyIssued(ctx context.Context, notice notifications.IssuedNotice) error
}

type Service interface {
	Render(ctx context.Context, req RenderRequest) (*Document, error)
	Issue(ctx context.Context, req IssueRequest) (*Issued, *Document, error)
	Verify(ctx context.Context, id uuid.UUID, code string) (*Issued, error)
	ArchiveURL(ctx context.Context, id uuid.UUID) (string, error)
	ExportIssued(ctx context.Context, w io.Writer) error
}

type certificateService struct {
	renderer *Renderer
	settings SettingsLoader
	repo     Repository
	signer   *security.CodeSigner
	archive  *Archive
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the certificate operations. archive and notifier may be nil.
func NewService(
	renderer *Renderer,
	settingsLoader SettingsLoader,
	repo Repository,
	signer *security.CodeSigner,
	archive *Archive,
	notifier Notifier,
	logger *zap.Logger,
) Service {
	return &certificateService{
		renderer: renderer,
		settings: settingsLoader,
		repo:     repo,
		signer:   signer,
		archive:  archive,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *certificateService) Render(ctx context.Context, req RenderRequest) (*Document, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return s.renderer.Render(ctx, req, cfg)
}

func (s *certificateService) Issue(ctx context.Context, req IssueRequest) (*Issued, *Document, error) {
	doc, err := s.Render(ctx, RenderRequest{Student: req.Student, Course: req.Course, Mode: req.Mode})
	if err != nil {
		return nil, nil, err
	}

	issued := &Issued{
		ID:       uuid.New(),
		Student:  req.Student,
		Course:   req.Course,
		Email:    strings.TrimSpace(req.Email),
		IssuedBy: req.IssuedBy,
		IssuedAt: s.now().UTC(),
	}
	issued.VerificationCode = s.signer.Code(issued.ID.String(), issued.Student, issued.Course)

	if s.archive != nil {
		key, err := s.archive.Store(ctx, issued, doc.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to archive certificate: %w", err)
		}
		issued.ArchiveKey = &key
	}

	if err := s.repo.Create(ctx, issued); err != nil {
		if issued.ArchiveKey != nil {
			if rmErr := s.archive.Remove(ctx, *issued.ArchiveKey); rmErr != nil {
				s.logger.Error("Failed to remove unrecorded certificate archive",
					zap.Error(rmErr),
					zap.String("archive_key", *issued.ArchiveKey))
			}
		}
		return nil, nil, fmt.Errorf("failed to record certificate: %w", err)
	}

	s.logger.Info("Certificate issued",
		zap.String("certificate_id", issued.ID.String()),
		zap.String("course", issued.Course),
		zap.Bool("archived", issued.ArchiveKey != nil))

	if s.notifier != nil {
		notice := notifications.IssuedNotice{
			Event: notifications.IssuedEvent{
				CertificateID:    issued.ID.String(),
				Student:          issued.Student,
				Course:           issued.Course,
				VerificationCode: issued.VerificationCode,
				IssuedAt:         issued.IssuedAt,
			},
			Email:    issued.Email,
			Document: doc.Data,
			Filename: doc.Filename,
		}
		if issued.ArchiveKey != nil {
			notice.Event.ArchiveKey = *issued.ArchiveKey
		}
		if err := s.notifier.NotifyIssued(ctx, notice); err != nil {
			s.logger.Warn("Failed to send certificate notifications",
				zap.Error(err),
				zap.String("certificate_id", issued.ID.String()))
		}
	}

	return issued, doc, nil
}

func (s *certificateService) Verify(ctx context.Context, id uuid.UUID, code string) (*Issued, error) {
	issued, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if issued == nil {
		return nil, ErrNotFound
	}
	if !s.signer.Verify(code, issued.ID.String(), issued.Student, issued.Course) {
		return nil, ErrInvalidCode
	}
	return issued, nil
}

func (s *certificateService) ArchiveURL(ctx context.Context, id uuid.UUID) (string, error) {
	issued, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if issued == nil {
		return "", ErrNotFound
	}
	if s.archive == nil || issued.ArchiveKey == nil {
		return "", ErrNotArchived
	}
	return s.archive.URL(ctx, *issued.ArchiveKey)
}

func (s *certificateService) ExportIssued(ctx context.Context, w io.Writer) error {
	issued, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	return WriteWorkbook(w, issued)
}
