package v1

import (
	"log/slog"
	"net/http"

	"github.com/karloscodes/cartridge"

	"sitebeam/internal/settings"
)

// GetSiteConfigHandler serves the public subset of the site settings
// (maintenance flags and company identity). Read failures degrade to
// defaults so the marketing site always renders.
func (a *API) GetSiteConfigHandler(ctx *cartridge.Context) error {
	current, err := a.settingsStore.Get()
	if err != nil {
		ctx.Logger.Warn("Failed to load site settings, serving defaults", slog.Any("error", err))
		current = settings.Defaults()
	}
	return ctx.JSON(current.Public())
}

// GetSettingsHandler returns the full settings singleton for the
// admin panel.
func (a *API) GetSettingsHandler(ctx *cartridge.Context) error {
	current, err := a.settingsStore.Get()
	if err != nil {
		ctx.Logger.Error("Failed to load site settings", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(map[string]interface{}{
			"error": "Failed to load settings",
		})
	}
	return ctx.JSON(current)
}

// UpdateSettingsHandler replaces the settings singleton. Updates are
// last-write-wins.
func (a *API) UpdateSettingsHandler(ctx *cartridge.Context) error {
	var updated settings.SiteSettings
	if err := ctx.Ctx.BodyParser(&updated); err != nil {
		return ctx.Status(http.StatusBadRequest).JSON(map[string]interface{}{
			"error": "Invalid settings payload",
		})
	}

	if err := a.settingsStore.Update(updated); err != nil {
		ctx.Logger.Error("Failed to update site settings", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(map[string]interface{}{
			"error": "Failed to update settings",
		})
	}

	return ctx.JSON(updated)
}
