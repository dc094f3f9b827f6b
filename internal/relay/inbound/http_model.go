package inbound

// AttachmentRequest carries one attachment. Exactly one of Content (base64)
// or URL must be set.
type AttachmentRequest struct {
	Filename    string `json:"filename"`
	Content     string `json:"content,omitempty"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type SendEmailRequest struct {
	FromName    string              `json:"fromName,omitempty"`
	FromEmail   string              `json:"fromEmail"`
	To          string              `json:"to"`
	Subject     string              `json:"subject"`
	Text        string              `json:"text,omitempty"`
	HTML        string              `json:"html,omitempty"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

type SendEmailResponse struct {
	Message string `json:"message"`
}

// TestServerConfigRequest is an ad-hoc mail server definition with a
// plaintext password, used only for connectivity tests.
type TestServerConfigRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Security string `json:"security"`
	User     string `json:"user"`
	Pass     string `json:"pass"`
}

type SendTestEmailRequest struct {
	MailServerID string                   `json:"mailServerId,omitempty"`
	Config       *TestServerConfigRequest `json:"config,omitempty"`
	Recipient    string                   `json:"recipient"`
}

type SendTestEmailResponse struct {
	Message string `json:"message"`
}
