package events

import (
	"context"
	"log/slog"

	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"sitebeam/internal/pkg/async"
	"sitebeam/internal/timeframe"
)

// MetricCount is a generic name-count pair for grouped query results.
type MetricCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// TimeSeriesPoint is the page-view count of one UTC calendar day.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// SourceSummary holds the named attribution counters of the dashboard
// header. The google counters match on the referrer host or utm_source
// regardless of the resolved category, so a Google Ads click counts
// under both google and googlePaid.
type SourceSummary struct {
	Direct        int64 `json:"direct"`
	Google        int64 `json:"google"`
	GoogleOrganic int64 `json:"googleOrganic"`
	GooglePaid    int64 `json:"googlePaid"`
	LinkedIn      int64 `json:"linkedin"`
	Instagram     int64 `json:"instagram"`
	Facebook      int64 `json:"facebook"`
	Twitter       int64 `json:"twitter"`
	OtherSocial   int64 `json:"otherSocial"`
	Referral      int64 `json:"referral"`
	Email         int64 `json:"email"`
	Paid          int64 `json:"paid"`
}

// Summary is the full aggregation result for one time range.
type Summary struct {
	TotalPageViews  int64             `json:"totalPageViews"`
	TotalVisitors   int64             `json:"totalVisitors"`
	ByDevice        []MetricCount     `json:"byDevice"`
	ByCountry       []MetricCount     `json:"byCountry"`
	ByCity          []MetricCount     `json:"byCity"`
	TopReferrers    []MetricCount     `json:"topReferrers"`
	TopPages        []MetricCount     `json:"topPages"`
	Sources         []MetricCount     `json:"sources"`
	Social          []MetricCount     `json:"social"`
	OrganicCount    int64             `json:"organicCount"`
	NonOrganicCount int64             `json:"nonOrganicCount"`
	SourceSummary   SourceSummary     `json:"sourceSummary"`
	INStates        []MetricCount     `json:"inStates"`
	USStates        []MetricCount     `json:"usStates"`
	Timeseries      []TimeSeriesPoint `json:"timeseries"`
}

// EmptySummary returns a fully initialized zero summary, used both for
// the unconfigured-store response and as the base that fetched
// groupings are merged into.
func EmptySummary() Summary {
	return Summary{
		ByDevice:     []MetricCount{},
		ByCountry:    []MetricCount{},
		ByCity:       []MetricCount{},
		TopReferrers: []MetricCount{},
		TopPages:     []MetricCount{},
		Sources:      []MetricCount{},
		Social:       []MetricCount{},
		INStates:     []MetricCount{},
		USStates:     []MetricCount{},
		Timeseries:   []TimeSeriesPoint{},
	}
}

// Summarizer rolls stored page views up into a Summary. All queries
// are read-only, so concurrent summaries need no coordination.
type Summarizer struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
}

func NewSummarizer(dbManager cartridge.DBManager, logger *slog.Logger) *Summarizer {
	return &Summarizer{dbManager: dbManager, logger: logger}
}

const summaryWorkers = 6

// Summarize computes every grouping over events with createdAt in
// [r.Start, r.End). The groupings run fan-out over a worker pool and
// each one degrades to its empty value on failure, so the result is
// always a complete Summary even under partial store errors.
func (s *Summarizer) Summarize(ctx context.Context, r timeframe.Range) Summary {
	summary := EmptySummary()

	db := s.dbManager.GetConnection()
	if db == nil {
		return summary
	}

	tasks := []async.Task{
		{Name: "totals", Run: func(ctx context.Context) (interface{}, error) {
			return s.fetchTotals(ctx, db, r)
		}},
		{Name: "byDevice", Run: func(ctx context.Context) (interface{}, error) {
			return fetchGroupedCounts(ctx, db, groupedQuery{column: "device_type", r: r, limit: 0})
		}},
		{Name: "byCountry", Run: func(ctx context.Context) (interface{}, error) {
			counts, err := fetchGroupedCounts(ctx, db, groupedQuery{column: "country_code", skipEmpty: true, r: r, limit: 10})
			if err != nil {
				return nil, err
			}
			return convertCountryCounts(counts), nil
		}},
		{Name: "byCity", Run: func(ctx context.Context) (interface{}, error) {
			return fetchGroupedCounts(ctx, db, groupedQuery{column: "city", skipEmpty: true, r: r, limit: 15})
		}},
		{Name: "topReferrers", Run: func(ctx context.Context) (interface{}, error) {
			return fetchGroupedCounts(ctx, db, groupedQuery{column: "referrer_host", skipEmpty: true, r: r, limit: 10})
		}},
		{Name: "topPages", Run: func(ctx context.Context) (interface{}, error) {
			return fetchGroupedCounts(ctx, db, groupedQuery{column: "path", r: r, limit: 10})
		}},
		{Name: "sources", Run: func(ctx context.Context) (interface{}, error) {
			return fetchGroupedCounts(ctx, db, groupedQuery{column: "source_category", r: r, limit: 0})
		}},
		{Name: "social", Run: func(ctx context.Context) (interface{}, error) {
			return fetchGroupedCounts(ctx, db, groupedQuery{column: "social_network", skipEmpty: true, r: r, limit: 0})
		}},
		{Name: "organic", Run: func(ctx context.Context) (interface{}, error) {
			return fetchOrganicCount(ctx, db, r)
		}},
		{Name: "sourceSummary", Run: func(ctx context.Context) (interface{}, error) {
			return fetchSourceSummary(ctx, db, r)
		}},
		{Name: "inStates", Run: func(ctx context.Context) (interface{}, error) {
			return fetchStateCounts(ctx, db, r, "IN")
		}},
		{Name: "usStates", Run: func(ctx context.Context) (interface{}, error) {
			return fetchStateCounts(ctx, db, r, "US")
		}},
		{Name: "timeseries", Run: func(ctx context.Context) (interface{}, error) {
			return fetchTimeseries(ctx, db, r)
		}},
	}

	pool := async.NewPool(summaryWorkers)
	results := pool.Execute(ctx, tasks)

	for name, result := range results {
		if result.Err != nil {
			s.logger.Warn("Summary grouping failed, returning empty result",
				slog.String("grouping", name),
				slog.Any("error", result.Err))
		}
	}

	if totals, ok := resultAs[viewTotals](results, "totals"); ok {
		summary.TotalPageViews = totals.PageViews
		summary.TotalVisitors = totals.Visitors
	}
	if counts, ok := resultAs[[]MetricCount](results, "byDevice"); ok {
		summary.ByDevice = counts
	}
	if counts, ok := resultAs[[]MetricCount](results, "byCountry"); ok {
		summary.ByCountry = counts
	}
	if counts, ok := resultAs[[]MetricCount](results, "byCity"); ok {
		summary.ByCity = counts
	}
	if counts, ok := resultAs[[]MetricCount](results, "topReferrers"); ok {
		summary.TopReferrers = counts
	}
	if counts, ok := resultAs[[]MetricCount](results, "topPages"); ok {
		summary.TopPages = counts
	}
	if counts, ok := resultAs[[]MetricCount](results, "sources"); ok {
		summary.Sources = counts
	}
	if counts, ok := resultAs[[]MetricCount](results, "social"); ok {
		summary.Social = counts
	}
	if organic, ok := resultAs[int64](results, "organic"); ok {
		summary.OrganicCount = organic
	}
	if srcSummary, ok := resultAs[SourceSummary](results, "sourceSummary"); ok {
		summary.SourceSummary = srcSummary
	}
	if counts, ok := resultAs[[]MetricCount](results, "inStates"); ok {
		summary.INStates = counts
	}
	if counts, ok := resultAs[[]MetricCount](results, "usStates"); ok {
		summary.USStates = counts
	}
	if points, ok := resultAs[[]TimeSeriesPoint](results, "timeseries"); ok {
		summary.Timeseries = points
	}

	summary.NonOrganicCount = summary.TotalPageViews - summary.OrganicCount
	if summary.NonOrganicCount < 0 {
		summary.NonOrganicCount = 0
	}

	return summary
}

// resultAs extracts a successful typed task result.
func resultAs[T any](results map[string]async.Result, name string) (T, bool) {
	var zero T
	result, ok := results[name]
	if !ok || result.Err != nil {
		return zero, false
	}
	value, ok := result.Data.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

type viewTotals struct {
	PageViews int64
	Visitors  int64
}

func (s *Summarizer) fetchTotals(ctx context.Context, db *gorm.DB, r timeframe.Range) (viewTotals, error) {
	var totals viewTotals

	err := db.WithContext(ctx).Raw(`
        SELECT COUNT(*) FROM page_views
        WHERE created_at >= ? AND created_at < ?
    `, r.Start, r.End).Scan(&totals.PageViews).Error
	if err != nil {
		return totals, err
	}

	err = db.WithContext(ctx).Raw(`
        SELECT COUNT(DISTINCT client_id) FROM page_views
        WHERE created_at >= ? AND created_at < ? AND client_id != ''
    `, r.Start, r.End).Scan(&totals.Visitors).Error
	if err != nil {
		return totals, err
	}

	// Old tracker versions did not send a client id; fall back to
	// distinct IPs so the visitor count is not zero for that traffic.
	if totals.Visitors == 0 {
		err = db.WithContext(ctx).Raw(`
            SELECT COUNT(DISTINCT ip) FROM page_views
            WHERE created_at >= ? AND created_at < ? AND ip != ''
        `, r.Start, r.End).Scan(&totals.Visitors).Error
		if err != nil {
			return totals, err
		}
	}

	return totals, nil
}
