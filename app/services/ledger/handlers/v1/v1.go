// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/provenance/app/services/ledger/handlers/v1/ledgergrp"
	"github.com/ardanlabs/provenance/business/web/mid"
	"github.com/ardanlabs/provenance/foundation/blockchain/state"
	"github.com/ardanlabs/provenance/foundation/events"
	"github.com/ardanlabs/provenance/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	State  *state.State
	Evts   *events.Events
	Origin string
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	lgr := ledgergrp.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	cors := mid.Cors(cfg.Origin)

	app.Handle(http.MethodGet, version, "/events", lgr.Events)
	app.Handle(http.MethodPost, version, "/tx/submit", lgr.SubmitTransaction, cors)
	app.Handle(http.MethodGet, version, "/tx/list", lgr.Transactions, cors)
	app.Handle(http.MethodGet, version, "/history/*id", lgr.History, cors)
	app.Handle(http.MethodGet, version, "/chain", lgr.Chain, cors)
	app.Handle(http.MethodGet, version, "/chain/tip", lgr.Tip, cors)
	app.Handle(http.MethodGet, version, "/chain/verify", lgr.Verify, cors)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", lgr.BlocksByNumber, cors)
}
