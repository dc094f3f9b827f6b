package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/metafog/freesend/internal/pkg/goerror"
	"github.com/metafog/freesend/internal/pkg/jwt"
	"github.com/metafog/freesend/internal/relay/entity"
	"github.com/metafog/freesend/internal/relay/outbound/mailer"
	"github.com/stretchr/testify/require"
)

func authedContext(tenantID string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{
		UserID:    "user-1",
		TenantID:  tenantID,
		UserEmail: "owner@acme.test",
	})
}

func TestSendTestEmail_Unauthenticated(t *testing.T) {
	f := newFixture(t)

	err := f.uc.SendTestEmail(context.Background(), SendTestEmailInput{Recipient: "me@acme.test"})

	requireBusinessError(t, err, "Unauthorized", goerror.CodeUnauthorized)
}

func TestSendTestEmail_MissingFields(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   SendTestEmailInput
	}{
		{name: "NoRecipient", in: SendTestEmailInput{MailServerID: "smtp-1"}},
		{name: "NoServerNoConfig", in: SendTestEmailInput{Recipient: "me@acme.test"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := f.uc.SendTestEmail(authedContext("tenant-1"), tc.in)

			requireBusinessError(t, err, "Missing required fields", goerror.CodeInvalidInput)
		})
	}
}

func TestSendTestEmail_StoredServer(t *testing.T) {
	f := newFixture(t)
	f.store.smtpByID["smtp-1"] = &entity.SmtpConfig{
		ID:       "smtp-1",
		TenantID: "tenant-1",
		Host:     "smtp.example.com",
		Port:     465,
		Security: entity.SecurityModeSSL,
		Username: "mailer@example.com",
		Password: "enc:hunter2",
	}

	err := f.uc.SendTestEmail(authedContext("tenant-1"), SendTestEmailInput{
		MailServerID: "smtp-1",
		Recipient:    "me@acme.test",
	})
	require.NoError(t, err)

	require.Len(t, f.mailer.msgs, 1)
	msg := f.mailer.msgs[0]
	require.Equal(t, "mailer@example.com", msg.FromEmail)
	require.Equal(t, "me@acme.test", msg.To)
	require.Equal(t, "Freesend SMTP Test Email: It works!", msg.Subject)
	require.Contains(t, msg.TextBody, "Hello from Freesend!")
	require.Contains(t, msg.TextBody, "Sender: mailer@example.com")
	require.Contains(t, msg.TextBody, "Server: smtp.example.com:465")

	srv := f.mailer.servers[0]
	require.Equal(t, "hunter2", srv.Password)
	require.Equal(t, entity.SecurityModeSSL, srv.Security)

	// Connectivity tests never hit the audit log.
	require.Empty(t, f.store.records)
}

func TestSendTestEmail_StoredServerNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.uc.SendTestEmail(authedContext("tenant-1"), SendTestEmailInput{
		MailServerID: "nope",
		Recipient:    "me@acme.test",
	})

	requireBusinessError(t, err, "Mail server not found", goerror.CodeNotFound)
}

func TestSendTestEmail_StoredServerWrongTenant(t *testing.T) {
	f := newFixture(t)
	f.store.smtpByID["smtp-1"] = &entity.SmtpConfig{
		ID:       "smtp-1",
		TenantID: "tenant-1",
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer@example.com",
		Password: "enc:hunter2",
	}

	err := f.uc.SendTestEmail(authedContext("tenant-2"), SendTestEmailInput{
		MailServerID: "smtp-1",
		Recipient:    "me@acme.test",
	})

	requireBusinessError(t, err, "Mail server not found", goerror.CodeNotFound)
}

func TestSendTestEmail_InlineConfig(t *testing.T) {
	f := newFixture(t)

	err := f.uc.SendTestEmail(authedContext("tenant-1"), SendTestEmailInput{
		Recipient: "me@acme.test",
		Config: &TestServerConfigInput{
			Host:     "mail.newserver.test",
			Port:     587,
			Security: "TLS",
			User:     "postmaster@newserver.test",
			Pass:     "plaintext-secret",
		},
	})
	require.NoError(t, err)

	require.Len(t, f.mailer.servers, 1)
	srv := f.mailer.servers[0]
	require.Equal(t, "mail.newserver.test", srv.Host)
	require.Equal(t, entity.SecurityModeTLS, srv.Security)
	require.Equal(t, "plaintext-secret", srv.Password)
	require.Contains(t, f.mailer.msgs[0].TextBody, "Server: mail.newserver.test:587")
}

func TestSendTestEmail_SendFailures(t *testing.T) {
	t.Run("ClientSetup", func(t *testing.T) {
		f := newFixture(t)
		f.mailer.err = fmt.Errorf("%w: bad host", mailer.ErrClientSetup)

		err := f.uc.SendTestEmail(authedContext("tenant-1"), SendTestEmailInput{
			Recipient: "me@acme.test",
			Config:    &TestServerConfigInput{Host: "x", Port: 587},
		})

		requireBusinessError(t, err, "Could not create the transporter object.", goerror.CodeBadGateway)
	})

	t.Run("Delivery", func(t *testing.T) {
		f := newFixture(t)
		f.mailer.err = errors.New("dial tcp: i/o timeout")

		err := f.uc.SendTestEmail(authedContext("tenant-1"), SendTestEmailInput{
			Recipient: "me@acme.test",
			Config:    &TestServerConfigInput{Host: "x", Port: 587},
		})

		requireBusinessError(t, err, "Failed to send test email", goerror.CodeInternal)
	})
}
