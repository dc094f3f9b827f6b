package inbound

import (
	"github.com/metafog/freesend/internal/pkg/router"
	"github.com/metafog/freesend/internal/relay/usecase"
	"github.com/samber/lo"
)

// HTTPEndpoint exposes HTTP handlers for the email relay.
type HTTPEndpoint struct {
	uc uc
}

// SendEmail relays a message using the API key from the Authorization header.
func (h *HTTPEndpoint) SendEmail(r *router.Request) (any, error) {
	// Auth header problems outrank body problems.
	if _, err := usecase.ParseBearerToken(r.Header.Get("Authorization")); err != nil {
		return nil, err
	}

	var req SendEmailRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	attachments := lo.Map(req.Attachments, func(att AttachmentRequest, _ int) usecase.AttachmentInput {
		return usecase.AttachmentInput{
			Filename:    att.Filename,
			Content:     att.Content,
			URL:         att.URL,
			ContentType: att.ContentType,
		}
	})

	if err := h.uc.SendEmail(r.Context(), usecase.SendEmailInput{
		Authorization: r.Header.Get("Authorization"),
		Host:          r.Host,
		FromName:      req.FromName,
		FromEmail:     req.FromEmail,
		To:            req.To,
		Subject:       req.Subject,
		Text:          req.Text,
		HTML:          req.HTML,
		Attachments:   attachments,
	}); err != nil {
		return nil, err
	}

	return SendEmailResponse{Message: "Email sent successfully"}, nil
}

// SendTestEmail sends a canned message to verify SMTP settings.
func (h *HTTPEndpoint) SendTestEmail(r *router.Request) (any, error) {
	var req SendTestEmailRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	in := usecase.SendTestEmailInput{
		MailServerID: req.MailServerID,
		Recipient:    req.Recipient,
	}
	if req.Config != nil {
		in.Config = &usecase.TestServerConfigInput{
			Host:     req.Config.Host,
			Port:     req.Config.Port,
			Security: req.Config.Security,
			User:     req.Config.User,
			Pass:     req.Config.Pass,
		}
	}

	if err := h.uc.SendTestEmail(r.Context(), in); err != nil {
		return nil, err
	}

	return SendTestEmailResponse{Message: "Test email sent successfully"}, nil
}
