package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/metafog/freesend/internal/pkg/goerror"
	"github.com/metafog/freesend/internal/relay/entity"
	"github.com/metafog/freesend/internal/relay/outbound/mailer"
	"github.com/samber/lo"
)

type AttachmentInput struct {
	Filename    string
	Content     string
	URL         string
	ContentType string
}

type SendEmailInput struct {
	Authorization string
	// Host is the Host header the request arrived on. Attachment URLs must
	// not point back at it.
	Host        string
	FromName    string
	FromEmail   string
	To          string
	Subject     string
	Text        string
	HTML        string
	Attachments []AttachmentInput
}

// SendEmail relays one message through the SMTP server linked to the bearer
// token in the Authorization header. Validation runs before any lookup so a
// malformed request never touches the database.
func (s *Usecase) SendEmail(ctx context.Context, in SendEmailInput) error {
	ctx, span := s.startSpan(ctx, "SendEmail")
	defer span.End()

	token, err := ParseBearerToken(in.Authorization)
	if err != nil {
		return err
	}

	if err := in.validate(); err != nil {
		return err
	}

	smtpConfig, err := s.repoDB.GetSmtpConfigByToken(ctx, token)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "bearer token has no linked smtp configuration")
		return goerror.NewBusiness("Invalid API Key or no SMTP configuration found.", goerror.CodeForbidden)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get smtp config by token", "error", err)
		return goerror.NewServer(err)
	}

	key, err := s.repoDB.GetApiKeyByToken(ctx, token)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("Invalid API Key or no SMTP configuration found.", goerror.CodeForbidden)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get api key by token", "error", err)
		return goerror.NewServer(err)
	}

	if key.Status == entity.KeyStatusInactive {
		slog.WarnContext(ctx, "api key is inactive", "api_key_id", key.ID)
		return goerror.NewBusiness("This API key is currently inactive.", goerror.CodeInvalidInput)
	}

	password, err := s.cipher.Decrypt(smtpConfig.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt smtp password", "smtp_config_id", smtpConfig.ID, "error", err)
		return goerror.NewServer(err)
	}

	attachments, err := s.resolveAttachments(ctx, in.Host, in.Attachments)
	if err != nil {
		return err
	}

	from := formatFrom(in.FromName, in.FromEmail)

	err = s.repoMailer.Send(ctx, mailer.Server{
		Host:     smtpConfig.Host,
		Port:     smtpConfig.Port,
		Security: smtpConfig.Security,
		Username: smtpConfig.Username,
		Password: password,
	}, mailer.Message{
		FromName:    in.FromName,
		FromEmail:   in.FromEmail,
		To:          in.To,
		Subject:     in.Subject,
		TextBody:    in.Text,
		HTMLBody:    in.HTML,
		Attachments: attachments,
	})
	if errors.Is(err, mailer.ErrClientSetup) {
		slog.ErrorContext(ctx, "failed to build smtp client", "smtp_config_id", smtpConfig.ID, "error", err)
		return goerror.NewBusiness("Could not create the transporter object.", goerror.CodeBadGateway)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to send email", "smtp_config_id", smtpConfig.ID, "error", err)
		return goerror.NewBusiness(fmt.Sprintf("Error sending email: %v", err), goerror.CodeInternal)
	}

	s.recordDelivery(ctx, key, from, in, attachments)
	return nil
}

// recordDelivery appends the audit row. The message is already on the wire,
// so a persistence failure is logged and swallowed.
func (s *Usecase) recordDelivery(ctx context.Context, key *entity.ApiKey, from string, in SendEmailInput, attachments []entity.Attachment) {
	metadata := lo.Map(attachments, func(att entity.Attachment, _ int) entity.AttachmentMeta {
		return entity.AttachmentMeta{Filename: att.Filename, ContentType: att.ContentType}
	})

	raw, err := json.Marshal(metadata)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal attachment metadata", "api_key_id", key.ID, "error", err)
		raw = []byte("[]")
	}

	if err := s.repoDB.CreateEmailRecord(ctx, entity.EmailRecord{
		ID:                  s.oid.Generate(),
		ApiKeyID:            key.ID,
		TenantID:            key.TenantID,
		From:                from,
		To:                  in.To,
		Subject:             in.Subject,
		TextBody:            in.Text,
		HTMLBody:            in.HTML,
		AttachmentsMetadata: string(raw),
		CreatedAt:           s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create email record", "api_key_id", key.ID, "error", err)
	}
}

// ParseBearerToken extracts the API key from an Authorization header value.
func ParseBearerToken(header string) (string, error) {
	if header == "" {
		return "", goerror.NewBusiness("Authorization header not found.", goerror.CodeInvalidInput)
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return "", goerror.NewBusiness("Invalid authorization header. Create a Bearer Token.", goerror.CodeInvalidInput)
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", goerror.NewBusiness("Invalid or missing API Key.", goerror.CodeInvalidInput)
	}

	return token, nil
}

func (in SendEmailInput) validate() error {
	if in.FromEmail == "" {
		return goerror.NewBusiness("Missing required field 'fromEmail'.", goerror.CodeInvalidInput)
	}
	if in.To == "" {
		return goerror.NewBusiness("Missing required field 'to'.", goerror.CodeInvalidInput)
	}
	if in.Subject == "" {
		return goerror.NewBusiness("Missing required field 'subject'.", goerror.CodeInvalidInput)
	}
	if in.Text == "" && in.HTML == "" {
		return goerror.NewBusiness("Missing required field 'text' or 'html'.", goerror.CodeInvalidInput)
	}

	for i, att := range in.Attachments {
		if att.Filename == "" {
			return goerror.NewBusiness(
				fmt.Sprintf("Attachment at index %d is missing required field 'filename'.", i),
				goerror.CodeInvalidInput,
			)
		}
		if (att.Content == "") == (att.URL == "") {
			return goerror.NewBusiness(
				fmt.Sprintf("Attachment '%s' must have exactly one of 'content' or 'url'.", att.Filename),
				goerror.CodeInvalidInput,
			)
		}
	}

	return nil
}
