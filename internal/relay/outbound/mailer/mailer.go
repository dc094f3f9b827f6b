// Package mailer delivers messages over SMTP using per-request server
// credentials. Every send dials the tenant's own mail server; there is no
// shared relay account.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metafog/freesend/internal/pkg/instrument"
	"github.com/metafog/freesend/internal/relay/entity"
	"github.com/wneessen/go-mail"
	"go.opentelemetry.io/otel/codes"
)

// ErrClientSetup is returned when the SMTP client cannot be constructed or
// the message itself is malformed, before any network traffic happens.
var ErrClientSetup = errors.New("smtp client setup failed")

// Server holds the connection parameters for one delivery. Password is the
// plaintext credential, already decrypted by the caller.
type Server struct {
	Host     string
	Port     int
	Security entity.SecurityMode
	Username string
	Password string
}

// Message is one outbound email.
type Message struct {
	FromName    string
	FromEmail   string
	To          string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []entity.Attachment
}

// SMTP sends messages with github.com/wneessen/go-mail.
type SMTP struct {
	timeout time.Duration
	ins     instrument.Instrumentation
}

func NewSMTP(timeout time.Duration, ins instrument.Instrumentation) *SMTP {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SMTP{timeout: timeout, ins: ins}
}

// Send dials srv and delivers msg. Setup failures wrap ErrClientSetup so the
// caller can distinguish them from delivery failures.
func (s *SMTP) Send(ctx context.Context, srv Server, msg Message) error {
	ctx, span := s.ins.Tracer("relay.outbound.mailer").Start(ctx, "Send")
	defer span.End()

	m, err := buildMessage(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClientSetup, err)
	}

	client, err := mail.NewClient(srv.Host, clientOptions(s.timeout, srv)...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClientSetup, err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if msg.FromName != "" {
		if err := m.FromFormat(msg.FromName, msg.FromEmail); err != nil {
			return nil, err
		}
	} else if err := m.From(msg.FromEmail); err != nil {
		return nil, err
	}

	if err := m.To(msg.To); err != nil {
		return nil, err
	}

	m.Subject(msg.Subject)
	m.SetGenHeader(mail.HeaderXMailer, "Freesend")

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.TextBody)
	}

	for _, att := range msg.Attachments {
		opts := []mail.FileOption{}
		if att.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(att.ContentType)))
		}
		if err := m.AttachReader(att.Filename, bytes.NewReader(att.Content), opts...); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func clientOptions(timeout time.Duration, srv Server) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(srv.Port),
		mail.WithTimeout(timeout),
	}

	switch srv.Security {
	case entity.SecurityModeSSL:
		opts = append(opts, mail.WithSSL())
	case entity.SecurityModeTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if srv.Username != "" || srv.Password != "" {
		opts = append(opts,
			mail.WithUsername(srv.Username),
			mail.WithPassword(srv.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}

	return opts
}
