package notifications

import "time"

// EmailDelivery is a single outgoing message.
type EmailDelivery struct {
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents an email attachment
type Attachment struct {
	Name        string `json:"name"`
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// IssuedEvent is published whenever a certificate is issued.
type IssuedEvent struct {
	CertificateID    string    `json:"certificate_id"`
	Student          string    `json:"student"`
	Course           string    `json:"course"`
	VerificationCode string    `json:"verification_code"`
	ArchiveKey       string    `json:"archive_key,omitempty"`
	IssuedAt         time.Time `json:"issued_at"`
}

// IssuedNotice carries everything needed to announce an issued certificate.
type IssuedNotice struct {
	Event    IssuedEvent
	Email    string // optional recipient
	Document []byte
	Filename string
}
