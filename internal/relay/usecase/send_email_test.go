package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/metafog/freesend/internal/pkg/config"
	"github.com/metafog/freesend/internal/pkg/fetchguard"
	"github.com/metafog/freesend/internal/pkg/goerror"
	"github.com/metafog/freesend/internal/pkg/instrument"
	"github.com/metafog/freesend/internal/relay/entity"
	"github.com/metafog/freesend/internal/relay/outbound/mailer"
	"github.com/stretchr/testify/require"
)

func validInput() SendEmailInput {
	return SendEmailInput{
		Authorization: "Bearer fs_live_token",
		FromName:      "Acme Billing",
		FromEmail:     "billing@acme.test",
		To:            "customer@example.com",
		Subject:       "Your invoice",
		Text:          "Invoice attached.",
		HTML:          "<p>Invoice attached.</p>",
	}
}

func TestSendEmail_AuthorizationHeader(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{name: "Missing", header: "", msg: "Authorization header not found."},
		{name: "NotBearer", header: "Basic abc123", msg: "Invalid authorization header. Create a Bearer Token."},
		{name: "EmptyToken", header: "Bearer ", msg: "Invalid or missing API Key."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			in.Authorization = tc.header

			err := f.uc.SendEmail(context.Background(), in)

			requireBusinessError(t, err, tc.msg, goerror.CodeInvalidInput)
			require.Zero(t, f.store.smtpByTokenCalls)
		})
	}
}

func TestSendEmail_FieldValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*SendEmailInput)
		msg    string
	}{
		{
			name:   "MissingFromEmail",
			mutate: func(in *SendEmailInput) { in.FromEmail = "" },
			msg:    "Missing required field 'fromEmail'.",
		},
		{
			name:   "MissingTo",
			mutate: func(in *SendEmailInput) { in.To = "" },
			msg:    "Missing required field 'to'.",
		},
		{
			name:   "MissingSubject",
			mutate: func(in *SendEmailInput) { in.Subject = "" },
			msg:    "Missing required field 'subject'.",
		},
		{
			name:   "MissingBody",
			mutate: func(in *SendEmailInput) { in.Text, in.HTML = "", "" },
			msg:    "Missing required field 'text' or 'html'.",
		},
		{
			name: "AttachmentMissingFilename",
			mutate: func(in *SendEmailInput) {
				in.Attachments = []AttachmentInput{{Content: "aGk="}}
			},
			msg: "Attachment at index 0 is missing required field 'filename'.",
		},
		{
			name: "AttachmentBothContentAndURL",
			mutate: func(in *SendEmailInput) {
				in.Attachments = []AttachmentInput{{Filename: "f.txt", Content: "aGk=", URL: "https://cdn.example.com/f.txt"}}
			},
			msg: "Attachment 'f.txt' must have exactly one of 'content' or 'url'.",
		},
		{
			name: "AttachmentNeitherContentNorURL",
			mutate: func(in *SendEmailInput) {
				in.Attachments = []AttachmentInput{{Filename: "f.txt"}}
			},
			msg: "Attachment 'f.txt' must have exactly one of 'content' or 'url'.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			err := f.uc.SendEmail(context.Background(), in)

			requireBusinessError(t, err, tc.msg, goerror.CodeInvalidInput)
		})
	}

	// Validation runs before any token lookup.
	require.Zero(t, f.store.smtpByTokenCalls)
	require.Empty(t, f.mailer.msgs)
}

func TestSendEmail_UnknownToken(t *testing.T) {
	f := newFixture(t)

	err := f.uc.SendEmail(context.Background(), validInput())

	requireBusinessError(t, err, "Invalid API Key or no SMTP configuration found.", goerror.CodeForbidden)
	require.Empty(t, f.mailer.msgs)
	require.Empty(t, f.store.records)
}

func TestSendEmail_InactiveKey(t *testing.T) {
	f := newFixture(t)
	f.withActiveKey("fs_live_token")
	f.store.keyByToken["fs_live_token"].Status = entity.KeyStatusInactive

	err := f.uc.SendEmail(context.Background(), validInput())

	requireBusinessError(t, err, "This API key is currently inactive.", goerror.CodeInvalidInput)
	require.Empty(t, f.mailer.msgs)
	require.Empty(t, f.store.records)
}

func TestSendEmail_DecryptFailure(t *testing.T) {
	f := newFixture(t)
	f.withActiveKey("fs_live_token")
	f.store.smtpByToken["fs_live_token"].Password = "garbage"

	err := f.uc.SendEmail(context.Background(), validInput())

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, "Internal server error", gerr.Msg())
	require.Empty(t, f.mailer.msgs)
}

func TestSendEmail_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.withActiveKey("fs_live_token")
	f.fetcher.results["https://cdn.example.com/report.pdf"] = &fetchguard.Result{
		Data:        []byte("%PDF-1.7"),
		ContentType: "application/pdf",
	}

	in := validInput()
	in.Attachments = []AttachmentInput{
		{Filename: "hello.txt", Content: base64.StdEncoding.EncodeToString([]byte("hello")), ContentType: "text/plain"},
		{Filename: "report.pdf", URL: "https://cdn.example.com/report.pdf"},
	}

	err := f.uc.SendEmail(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, f.mailer.msgs, 1)
	msg := f.mailer.msgs[0]
	require.Equal(t, "customer@example.com", msg.To)
	require.Equal(t, "Your invoice", msg.Subject)
	require.Equal(t, "Invoice attached.", msg.TextBody)
	require.Len(t, msg.Attachments, 2)
	require.Equal(t, "hello.txt", msg.Attachments[0].Filename)
	require.Equal(t, []byte("hello"), msg.Attachments[0].Content)
	require.Equal(t, "report.pdf", msg.Attachments[1].Filename)
	require.Equal(t, "application/pdf", msg.Attachments[1].ContentType)
	require.Equal(t, []byte("%PDF-1.7"), msg.Attachments[1].Content)

	srv := f.mailer.servers[0]
	require.Equal(t, "smtp.example.com", srv.Host)
	require.Equal(t, 587, srv.Port)
	require.Equal(t, "hunter2", srv.Password)

	require.Len(t, f.store.records, 1)
	rec := f.store.records[0]
	require.Equal(t, "key-1", rec.ApiKeyID)
	require.Equal(t, "tenant-1", rec.TenantID)
	require.Equal(t, `"Acme Billing" <billing@acme.test>`, rec.From)
	require.Equal(t, "customer@example.com", rec.To)
	require.Equal(t, "Your invoice", rec.Subject)
	require.Equal(t, f.now, rec.CreatedAt)

	// Metadata holds names and types only, never content bytes.
	require.JSONEq(t,
		`[{"filename":"hello.txt","contentType":"text/plain"},{"filename":"report.pdf","contentType":"application/pdf"}]`,
		rec.AttachmentsMetadata,
	)
}

func TestSendEmail_BareFromAddress(t *testing.T) {
	f := newFixture(t)
	f.withActiveKey("fs_live_token")

	in := validInput()
	in.FromName = ""

	err := f.uc.SendEmail(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, f.store.records, 1)
	require.Equal(t, "billing@acme.test", f.store.records[0].From)
}

func TestSendEmail_AttachmentErrors(t *testing.T) {
	f := newFixture(t)
	f.withActiveKey("fs_live_token")
	f.fetcher.errs["https://big.example.com/iso"] = fetchguard.ErrTooLarge
	f.fetcher.errs["http://169.254.169.254/latest/meta-data"] = fetchguard.ErrDisallowedURL
	f.fetcher.errs["https://down.example.com/x"] = errors.New("connection refused")

	tests := []struct {
		name string
		att  AttachmentInput
		msg  string
	}{
		{
			name: "InvalidBase64",
			att:  AttachmentInput{Filename: "f.txt", Content: "not_base64!"},
			msg:  "Attachment 'f.txt' has invalid base64 content.",
		},
		{
			name: "TooLarge",
			att:  AttachmentInput{Filename: "huge.iso", URL: "https://big.example.com/iso"},
			msg:  "Attachment 'huge.iso' exceeds the 25 MB remote attachment limit.",
		},
		{
			name: "DisallowedURL",
			att:  AttachmentInput{Filename: "meta.txt", URL: "http://169.254.169.254/latest/meta-data"},
			msg:  "Attachment 'meta.txt' has a disallowed URL.",
		},
		{
			name: "FetchFailure",
			att:  AttachmentInput{Filename: "x.bin", URL: "https://down.example.com/x"},
			msg:  "Attachment 'x.bin' could not be fetched: connection refused",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			in.Attachments = []AttachmentInput{tc.att}

			err := f.uc.SendEmail(context.Background(), in)

			requireBusinessError(t, err, tc.msg, goerror.CodeInvalidInput)
		})
	}

	require.Empty(t, f.mailer.msgs)
	require.Empty(t, f.store.records)
}

func TestSendEmail_AttachmentTargetsRequestHost(t *testing.T) {
	f := newFixture(t)
	f.withActiveKey("fs_live_token")

	// No own_host configured; the request's Host header alone must drive the
	// self-targeting check.
	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  relay:\n    max_concurrent_fetches: 2\n"))
	require.NoError(t, err)

	uc := New(Dependency{
		RepoDB:     f.store,
		RepoMailer: f.mailer,
		Cipher:     stubCipher{},
		Fetcher:    fetchguard.New(fetchguard.Config{}),
		Config:     cfg,
		OID:        &seqID{},
		Clock:      fixedClock{now: f.now},
		Instrument: instrument.NewNoop(),
	})

	urls := []string{
		"http://api.freesend.test/internal/secrets",
		"http://cdn.api.freesend.test/logo.png",
	}

	for _, rawURL := range urls {
		in := validInput()
		in.Host = "api.freesend.test:8080"
		in.Attachments = []AttachmentInput{{Filename: "secrets.txt", URL: rawURL}}

		err := uc.SendEmail(context.Background(), in)

		requireBusinessError(t, err, "Attachment 'secrets.txt' has a disallowed URL.", goerror.CodeInvalidInput)
	}

	require.Empty(t, f.mailer.msgs)
	require.Empty(t, f.store.records)
}

func TestSendEmail_OwnHostsPassedToFetcher(t *testing.T) {
	f := newFixture(t)
	f.withActiveKey("fs_live_token")
	f.fetcher.results["https://cdn.example.com/a.pdf"] = &fetchguard.Result{Data: []byte("ok")}

	in := validInput()
	in.Host = "api.freesend.test"
	in.Attachments = []AttachmentInput{{Filename: "a.pdf", URL: "https://cdn.example.com/a.pdf"}}

	err := f.uc.SendEmail(context.Background(), in)
	require.NoError(t, err)

	// The request Host and the configured public hostname both reach the guard.
	require.Equal(t, []string{"api.freesend.test", "freesend.test"}, f.fetcher.gotOwnHosts)
}

func TestSendEmail_TransportErrors(t *testing.T) {
	t.Run("ClientSetup", func(t *testing.T) {
		f := newFixture(t)
		f.withActiveKey("fs_live_token")
		f.mailer.err = fmt.Errorf("%w: invalid port", mailer.ErrClientSetup)

		err := f.uc.SendEmail(context.Background(), validInput())

		requireBusinessError(t, err, "Could not create the transporter object.", goerror.CodeBadGateway)
		require.Empty(t, f.store.records)
	})

	t.Run("Delivery", func(t *testing.T) {
		f := newFixture(t)
		f.withActiveKey("fs_live_token")
		f.mailer.err = errors.New("550 mailbox unavailable")

		err := f.uc.SendEmail(context.Background(), validInput())

		requireBusinessError(t, err, "Error sending email: 550 mailbox unavailable", goerror.CodeInternal)
		require.Empty(t, f.store.records)
	})
}

func TestSendEmail_RecordFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.withActiveKey("fs_live_token")
	f.store.recordErr = errors.New("connection reset")

	err := f.uc.SendEmail(context.Background(), validInput())

	require.NoError(t, err)
	require.Len(t, f.mailer.msgs, 1)
}

func TestSendEmail_NoIdempotency(t *testing.T) {
	f := newFixture(t)
	f.withActiveKey("fs_live_token")

	require.NoError(t, f.uc.SendEmail(context.Background(), validInput()))
	require.NoError(t, f.uc.SendEmail(context.Background(), validInput()))

	require.Len(t, f.mailer.msgs, 2)
	require.Len(t, f.store.records, 2)
	require.NotEqual(t, f.store.records[0].ID, f.store.records[1].ID)
}
