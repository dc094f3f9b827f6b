package app

import (
	"log/slog"
	"os"

	"github.com/metafog/freesend/internal/relay"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.relay.enabled") {
		if err := relay.New(relay.Dependency{
			DBConn:     a.dbConn,
			Router:     a.router,
			Config:     a.config,
			Instrument: a.ins,
			Cipher:     a.cipher,
			Fetcher:    a.fetcher,
			OID:        a.oid,
			Clock:      a.clock,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module relay", "error", err)
			os.Exit(1)
		}
	}
}
