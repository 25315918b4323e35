package notifications

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Service fans an issued certificate out to the configured channels.
// Either channel may be nil.
type Service struct {
	mailer    *Mailer
	publisher *Publisher
	logger    *zap.Logger
}

func NewService(mailer *Mailer, publisher *Publisher, logger *zap.Logger) *Service {
	return &Service{
		mailer:    mailer,
		publisher: publisher,
		logger:    logger,
	}
}

// NotifyIssued publishes the issued event and, when an address is given,
// e-mails the certificate. All channel errors are joined.
func (s *Service) NotifyIssued(ctx context.Context, notice IssuedNotice) error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.PublishIssued(ctx, notice.Event); err != nil {
			errs = append(errs, err)
		}
	}

	if s.mailer != nil && notice.Email != "" {
		err := s.mailer.Send(ctx, &EmailDelivery{
			To:      []string{notice.Email},
			Subject: fmt.Sprintf("Your certificate for %s", notice.Event.Course),
			Body: fmt.Sprintf("Congratulations %s,\r\n\r\nyour certificate for %s is attached.\r\nVerification code: %s\r\n",
				notice.Event.Student, notice.Event.Course, notice.Event.VerificationCode),
			Attachments: []Attachment{{
				Name:        notice.Filename,
				Data:        notice.Document,
				ContentType: "application/pdf",
			}},
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Debug("Certificate issue notifications sent", zap.String("certificate_id", notice.Event.CertificateID))
	return nil
}
