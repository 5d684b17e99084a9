package v1

import (
	"log/slog"

	"github.com/karloscodes/cartridge"

	"sitebeam/internal/events"
)

// SummaryResponse wraps the aggregation result with the dbConfigured
// flag so the dashboard can tell "no store at all" apart from "store
// configured but empty for this range".
type SummaryResponse struct {
	events.Summary
	DBConfigured bool `json:"dbConfigured"`
}

// GetSummaryHandler serves the dashboard aggregation for a time range.
// Invalid or missing start/end fall back to the last 30 days.
func (a *API) GetSummaryHandler(ctx *cartridge.Context) error {
	if !a.dbConfigured {
		return ctx.JSON(SummaryResponse{
			Summary:      events.EmptySummary(),
			DBConfigured: false,
		})
	}

	r := a.parser.Parse(ctx.Query("start"), ctx.Query("end"))

	ctx.Logger.Debug("Computing summary",
		slog.Time("start", r.Start),
		slog.Time("end", r.End))

	summary := a.summarizer.Summarize(ctx.Ctx.UserContext(), r)

	return ctx.JSON(SummaryResponse{
		Summary:      summary,
		DBConfigured: true,
	})
}
