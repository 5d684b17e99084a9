package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"sitebeam/internal/livefeed"
	"sitebeam/internal/pkg/geo"
	"sitebeam/internal/pkg/sources"
	"sitebeam/internal/pkg/useragent"
)

// Ingestor assembles page views out of raw beacons: parse the UA,
// classify the traffic source, enrich with geo data, append, broadcast.
type Ingestor struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	enricher  geo.Enricher
	hub       *livefeed.Hub
}

func NewIngestor(dbManager cartridge.DBManager, logger *slog.Logger, enricher geo.Enricher, hub *livefeed.Hub) *Ingestor {
	return &Ingestor{
		dbManager: dbManager,
		logger:    logger,
		enricher:  enricher,
		hub:       hub,
	}
}

// Ingest processes one beacon. It always produces a complete PageView;
// the returned error only reports a persistence failure, which callers
// are expected to swallow because the tracking endpoint must never
// surface errors to the visitor's page. Without a configured store the
// event is assembled and broadcast but not persisted.
func (in *Ingestor) Ingest(ctx context.Context, beacon *RawBeacon, reqCtx RequestContext) (*PageView, error) {
	parsed := useragent.Parse(reqCtx.UserAgent)
	referrerHost := useragent.ExtractHost(beacon.Referrer)

	classification := sources.Classify(sources.Input{
		ReferrerHost: referrerHost,
		UTMSource:    beacon.UTMSource,
		UTMMedium:    beacon.UTMMedium,
		Path:         beacon.PagePath(),
	})

	location := in.enricher.Lookup(ctx, reqCtx.IP)

	event := &PageView{
		Path:      beacon.PagePath(),
		ClientID:  beacon.ClientID,
		CreatedAt: time.Now().UTC(),

		Referrer:     beacon.Referrer,
		ReferrerHost: referrerHost,

		UTMSource:   beacon.UTMSource,
		UTMMedium:   beacon.UTMMedium,
		UTMCampaign: beacon.UTMCampaign,
		UTMTerm:     beacon.UTMTerm,
		UTMContent:  beacon.UTMContent,

		SourceCategory: classification.Category,
		SocialNetwork:  classification.SocialNetwork,
		IsOrganic:      classification.IsOrganic,

		UserAgent:  reqCtx.UserAgent,
		DeviceType: parsed.Device,
		OS:         parsed.OS,
		Browser:    parsed.Browser,

		Language:     beacon.Language,
		Timezone:     beacon.Timezone,
		ScreenWidth:  beacon.ScreenWidth,
		ScreenHeight: beacon.ScreenHeight,
		IP:           reqCtx.IP,

		Country:     location.Country,
		CountryCode: location.CountryCode,
		Region:      location.Region,
		RegionCode:  location.RegionCode,
		City:        location.City,
	}

	err := in.append(event)
	if err != nil {
		in.logger.Error("Failed to persist page view",
			slog.String("path", event.Path),
			slog.Any("error", err))
	}

	// Fire and forget: the live feed must never affect ingestion.
	in.hub.Publish(event)

	return event, err
}

func (in *Ingestor) append(event *PageView) error {
	db := in.dbManager.GetConnection()
	if db == nil {
		in.logger.Debug("No database configured, page view not persisted")
		return nil
	}

	return sqlite.PerformWrite(in.logger, db, func(tx *gorm.DB) error {
		return tx.Create(event).Error
	})
}
