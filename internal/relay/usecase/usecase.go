package usecase

import (
	"context"
	"fmt"

	"github.com/metafog/freesend/internal/pkg/clock"
	"github.com/metafog/freesend/internal/pkg/config"
	"github.com/metafog/freesend/internal/pkg/fetchguard"
	"github.com/metafog/freesend/internal/pkg/instrument"
	"github.com/metafog/freesend/internal/pkg/uid"
	"github.com/metafog/freesend/internal/relay/entity"
	"github.com/metafog/freesend/internal/relay/outbound/mailer"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	GetSmtpConfigByToken(ctx context.Context, token string) (*entity.SmtpConfig, error)
	GetApiKeyByToken(ctx context.Context, token string) (*entity.ApiKey, error)
	GetSmtpConfigByID(ctx context.Context, id, tenantID string) (*entity.SmtpConfig, error)

	CreateEmailRecord(ctx context.Context, rec entity.EmailRecord) error
}

type repoMailer interface {
	Send(ctx context.Context, srv mailer.Server, msg mailer.Message) error
}

type credCipher interface {
	Decrypt(stored string) (string, error)
}

type remoteFetcher interface {
	Fetch(ctx context.Context, rawURL string, ownHosts ...string) (*fetchguard.Result, error)
}

type Usecase struct {
	repoDB     repoDB
	repoMailer repoMailer
	cipher     credCipher
	fetcher    remoteFetcher
	cfg        config.Config
	oid        uid.StringID
	clock      clock.Clocker
	ins        instrument.Instrumentation
}

type Dependency struct {
	RepoDB     repoDB
	RepoMailer repoMailer
	Cipher     credCipher
	Fetcher    remoteFetcher
	Config     config.Config
	OID        uid.StringID
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:     dep.RepoDB,
		repoMailer: dep.RepoMailer,
		cipher:     dep.Cipher,
		fetcher:    dep.Fetcher,
		cfg:        dep.Config,
		oid:        dep.OID,
		clock:      dep.Clock,
		ins:        dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("relay.usecase").Start(ctx, name)
}

// formatFrom builds the sender header value. A display name wraps the address
// in the quoted `"Name" <addr>` form; a bare address is passed through.
func formatFrom(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%q <%s>", name, email)
}
