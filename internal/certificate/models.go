package certificate

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("certificate not found")
	ErrInvalidCode = errors.New("verification code does not match")
	ErrNotArchived = errors.New("certificate has no archived copy")
	ErrDuplicate   = errors.New("certificate already recorded")
)

// RenderRequest asks for one certificate page.
type RenderRequest struct {
	Student string
	Course  string
	Mode    OutputMode
}

// IssueRequest renders a certificate and records it.
type IssueRequest struct {
	Student  string
	Course   string
	Email    string
	Mode     OutputMode
	IssuedBy string
}

// Issued is the persisted record of an issued certificate.
type Issued struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Student          string    `json:"student" db:"student"`
	Course           string    `json:"course" db:"course"`
	Email            string    `json:"email,omitempty" db:"email"`
	VerificationCode string    `json:"verification_code" db:"verification_code"`
	ArchiveKey       *string   `json:"archive_key,omitempty" db:"archive_key"`
	IssuedBy         string    `json:"issued_by,omitempty" db:"issued_by"`
	IssuedAt         time.Time `json:"issued_at" db:"issued_at"`
}
