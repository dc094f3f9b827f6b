package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metafog/freesend/internal/pkg/clock"
	"github.com/metafog/freesend/internal/pkg/config"
	"github.com/metafog/freesend/internal/pkg/credcipher"
	"github.com/metafog/freesend/internal/pkg/fetchguard"
	"github.com/metafog/freesend/internal/pkg/instrument"
	"github.com/metafog/freesend/internal/pkg/jwt"
	"github.com/metafog/freesend/internal/pkg/router"
	"github.com/metafog/freesend/internal/pkg/uid"
	"github.com/metafog/freesend/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	validator validator.Validator
	clock     clock.Clocker
	oid       uid.StringID
	uuid      uid.StringID
	jwt       jwt.JWT
	cipher    *credcipher.Cipher
	fetcher   *fetchguard.Fetcher

	// resources
	dbConn *pgxpool.Pool

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
