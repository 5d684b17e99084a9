package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	v1 "sitebeam/api/v1"
	"sitebeam/internal/config"
	"sitebeam/internal/database"
	"sitebeam/internal/events"
	"sitebeam/internal/livefeed"
	"sitebeam/internal/pkg/geo"
	"sitebeam/internal/settings"
)

// Application wraps cartridge.Application with the sitebeam components
// the CLI and the server entrypoints need access to.
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Hub       *livefeed.Hub
}

// NewApp builds the full application: database, geo enricher, live
// feed hub, ingestion and aggregation pipelines, routes.
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig builds the application with the provided config.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	enricher := geo.NewEnricher(cfg, logger)
	hub := livefeed.NewHub(logger)

	api := v1.NewAPI(v1.Options{
		Config:        cfg,
		Ingestor:      events.NewIngestor(dbManager, logger, enricher, hub),
		Summarizer:    events.NewSummarizer(dbManager, logger),
		SettingsStore: settings.NewStore(dbManager.GetConnection(), logger),
		Hub:           hub,
		DBConfigured:  dbManager.Configured(),
	})

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:         cfg,
		Logger:         logger,
		DBManager:      dbManager,
		RouteMountFunc: MountAPIRoutes(api),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Hub:         hub,
	}, nil
}
