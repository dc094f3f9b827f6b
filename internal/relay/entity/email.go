package entity

import "time"

// Attachment is a fully resolved attachment ready for the SMTP transport.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AttachmentMeta is what gets persisted about an attachment: names and types
// only, never the bytes.
type AttachmentMeta struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
}

// EmailRecord is the audit row appended after a successful delivery.
type EmailRecord struct {
	ID                  string
	ApiKeyID            string
	TenantID            string
	From                string
	To                  string
	Subject             string
	TextBody            string
	HTMLBody            string
	AttachmentsMetadata string
	CreatedAt           time.Time
}
