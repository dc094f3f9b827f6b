package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/metafog/freesend/internal/pkg/goerror"
	"github.com/metafog/freesend/internal/pkg/jwt"
	"github.com/metafog/freesend/internal/relay/entity"
	"github.com/metafog/freesend/internal/relay/outbound/mailer"
)

const testEmailSubject = "Freesend SMTP Test Email: It works!"

const testEmailBody = `Hello from Freesend!

This is a test email to confirm that your SMTP settings are working perfectly.

Sender: %s
Server: %s:%d

If you're seeing this, you're all set to start sending emails from your server through Freesend!

To start sending actual emails, check out our API guide:
https://freesend.metafog.io/docs/api/send-email
`

type TestServerConfigInput struct {
	Host     string
	Port     int
	Security string
	User     string
	Pass     string
}

type SendTestEmailInput struct {
	MailServerID string
	Config       *TestServerConfigInput
	Recipient    string
}

// SendTestEmail sends a canned message through either a stored mail server or
// ad-hoc connection details, so dashboard users can verify their settings.
// Stored servers are resolved within the caller's tenant only.
func (s *Usecase) SendTestEmail(ctx context.Context, in SendTestEmailInput) error {
	ctx, span := s.startSpan(ctx, "SendTestEmail")
	defer span.End()

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return goerror.NewBusiness("Unauthorized", goerror.CodeUnauthorized)
	}

	if in.Recipient == "" || (in.MailServerID == "" && in.Config == nil) {
		return goerror.NewBusiness("Missing required fields", goerror.CodeInvalidInput)
	}

	var server mailer.Server
	if in.MailServerID != "" {
		smtpConfig, err := s.repoDB.GetSmtpConfigByID(ctx, in.MailServerID, clm.TenantID)
		if errors.Is(err, goerror.ErrNotFound) {
			return goerror.NewBusiness("Mail server not found", goerror.CodeNotFound)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo get smtp config by id", "smtp_config_id", in.MailServerID, "error", err)
			return goerror.NewServer(err)
		}

		password, err := s.cipher.Decrypt(smtpConfig.Password)
		if err != nil {
			slog.ErrorContext(ctx, "failed to decrypt smtp password", "smtp_config_id", smtpConfig.ID, "error", err)
			return goerror.NewServer(err)
		}

		server = mailer.Server{
			Host:     smtpConfig.Host,
			Port:     smtpConfig.Port,
			Security: smtpConfig.Security,
			Username: smtpConfig.Username,
			Password: password,
		}
	} else {
		server = mailer.Server{
			Host:     in.Config.Host,
			Port:     in.Config.Port,
			Security: entity.SecurityModeFromString(in.Config.Security),
			Username: in.Config.User,
			Password: in.Config.Pass,
		}
	}

	err := s.repoMailer.Send(ctx, server, mailer.Message{
		FromEmail: server.Username,
		To:        in.Recipient,
		Subject:   testEmailSubject,
		TextBody:  fmt.Sprintf(testEmailBody, server.Username, server.Host, server.Port),
	})
	if errors.Is(err, mailer.ErrClientSetup) {
		slog.ErrorContext(ctx, "failed to build smtp client", "error", err)
		return goerror.NewBusiness("Could not create the transporter object.", goerror.CodeBadGateway)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to send test email", "error", err)
		return goerror.NewBusiness("Failed to send test email", goerror.CodeInternal)
	}

	return nil
}
