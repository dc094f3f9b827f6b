// Package relay is the email relay module: token-authenticated sending,
// attachment resolution, SMTP delivery, and the delivery audit log.
package relay

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metafog/freesend/internal/pkg/clock"
	"github.com/metafog/freesend/internal/pkg/config"
	"github.com/metafog/freesend/internal/pkg/credcipher"
	"github.com/metafog/freesend/internal/pkg/fetchguard"
	"github.com/metafog/freesend/internal/pkg/instrument"
	"github.com/metafog/freesend/internal/pkg/router"
	"github.com/metafog/freesend/internal/pkg/uid"
	"github.com/metafog/freesend/internal/pkg/validator"
	"github.com/metafog/freesend/internal/relay/inbound"
	"github.com/metafog/freesend/internal/relay/outbound/db"
	"github.com/metafog/freesend/internal/relay/outbound/mailer"
	"github.com/metafog/freesend/internal/relay/usecase"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Cipher     *credcipher.Cipher         `validate:"required"`
	Fetcher    *fetchguard.Fetcher        `validate:"required"`
	OID        uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoMailer := mailer.NewSMTP(dep.Config.GetSecond("modules.relay.smtp_timeout_seconds"), dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:     repoDB,
		RepoMailer: repoMailer,
		Cipher:     dep.Cipher,
		Fetcher:    dep.Fetcher,
		Config:     dep.Config,
		OID:        dep.OID,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
