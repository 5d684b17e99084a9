package v1

import (
	"log/slog"
	"net/http"

	"github.com/karloscodes/cartridge"

	"sitebeam/internal/events"
)

// CreateBeaconHandler ingests one page-view beacon. The response is
// always 200 {"success":true}: analytics must stay invisible to the
// visitor's page, so malformed payloads and internal failures are
// logged and swallowed.
func (a *API) CreateBeaconHandler(ctx *cartridge.Context) error {
	beacon := &events.RawBeacon{}
	if err := ctx.Ctx.BodyParser(beacon); err != nil {
		ctx.Logger.Debug("Ignoring malformed beacon payload", slog.Any("error", err))
		beacon = &events.RawBeacon{}
	}

	userAgentHeader := ctx.Get("User-Agent")
	if forwardedUA := ctx.Get("X-Forwarded-User-Agent"); forwardedUA != "" {
		userAgentHeader = forwardedUA
	}

	reqCtx := events.RequestContext{
		UserAgent: userAgentHeader,
		IP:        getClientIP(ctx.Ctx),
	}

	if _, err := a.ingestor.Ingest(ctx.Ctx.UserContext(), beacon, reqCtx); err != nil {
		ctx.Logger.Error("Beacon ingestion failed", slog.Any("error", err))
	}

	return ctx.Status(http.StatusOK).JSON(map[string]interface{}{"success": true})
}
