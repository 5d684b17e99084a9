// Package v1 implements the JSON API consumed by the tracker script
// and the admin dashboard.
package v1

import (
	"github.com/karloscodes/cartridge"

	"sitebeam/internal/config"
	"sitebeam/internal/events"
	"sitebeam/internal/livefeed"
	"sitebeam/internal/settings"
	"sitebeam/internal/timeframe"
)

// API bundles the handlers with their collaborators. Route mounting
// receives one API value and wires its methods up.
type API struct {
	cfg           *config.Config
	ingestor      *events.Ingestor
	summarizer    *events.Summarizer
	settingsStore settings.Store
	hub           *livefeed.Hub
	parser        *timeframe.Parser
	dbConfigured  bool
}

type Options struct {
	Config        *config.Config
	Ingestor      *events.Ingestor
	Summarizer    *events.Summarizer
	SettingsStore settings.Store
	Hub           *livefeed.Hub
	DBConfigured  bool
}

func NewAPI(opts Options) *API {
	return &API{
		cfg:           opts.Config,
		ingestor:      opts.Ingestor,
		summarizer:    opts.Summarizer,
		settingsStore: opts.SettingsStore,
		hub:           opts.Hub,
		parser:        timeframe.NewParser(),
		dbConfigured:  opts.DBConfigured,
	}
}

// HealthHandler answers liveness probes.
func (a *API) HealthHandler(ctx *cartridge.Context) error {
	return ctx.JSON(map[string]interface{}{"status": "ok"})
}
