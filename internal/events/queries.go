package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/pariz/gountries"
	"go.elara.ws/pcre"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"sitebeam/internal/pkg/sources"
	"sitebeam/internal/timeframe"
)

// googleRegex matches google referrer hosts the same way for every
// counter that needs it (www.google.com, google.co.in, ...).
var googleRegex = pcre.MustCompile(`(?i)google\.`)

type groupedQuery struct {
	column    string
	skipEmpty bool
	r         timeframe.Range
	limit     int
}

// allowedGroupColumns guards the interpolated column name; everything
// else in the query is bound.
var allowedGroupColumns = map[string]bool{
	"device_type":     true,
	"country_code":    true,
	"city":            true,
	"referrer_host":   true,
	"path":            true,
	"source_category": true,
	"social_network":  true,
	"region":          true,
}

func fetchGroupedCounts(ctx context.Context, db *gorm.DB, q groupedQuery) ([]MetricCount, error) {
	if !allowedGroupColumns[q.column] {
		return nil, fmt.Errorf("unsupported grouping column: %s", q.column)
	}

	var sb strings.Builder
	args := []interface{}{q.r.Start, q.r.End}

	fmt.Fprintf(&sb, `
        SELECT %s AS name, COUNT(*) AS count
        FROM page_views
        WHERE created_at >= ? AND created_at < ?`, q.column)
	if q.skipEmpty {
		fmt.Fprintf(&sb, " AND %s != ''", q.column)
	}
	fmt.Fprintf(&sb, " GROUP BY %s ORDER BY count DESC, name ASC", q.column)
	if q.limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.limit)
	}

	results := []MetricCount{}
	err := db.WithContext(ctx).Raw(sb.String(), args...).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching grouped counts for %s: %w", q.column, err)
	}
	return results, nil
}

func fetchStateCounts(ctx context.Context, db *gorm.DB, r timeframe.Range, countryCode string) ([]MetricCount, error) {
	results := []MetricCount{}
	err := db.WithContext(ctx).Raw(`
        SELECT region AS name, COUNT(*) AS count
        FROM page_views
        WHERE created_at >= ? AND created_at < ?
        AND country_code = ? AND region != ''
        GROUP BY region
        ORDER BY count DESC, name ASC
        LIMIT 15
    `, r.Start, r.End, countryCode).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching %s state counts: %w", countryCode, err)
	}
	return results, nil
}

func fetchOrganicCount(ctx context.Context, db *gorm.DB, r timeframe.Range) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`
        SELECT COUNT(*) FROM page_views
        WHERE created_at >= ? AND created_at < ? AND is_organic = ?
    `, r.Start, r.End, true).Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error fetching organic count: %w", err)
	}
	return count, nil
}

func fetchTimeseries(ctx context.Context, db *gorm.DB, r timeframe.Range) ([]TimeSeriesPoint, error) {
	// Timestamps are stored in UTC, so the day buckets are UTC days.
	results := []TimeSeriesPoint{}
	err := db.WithContext(ctx).Raw(`
        SELECT strftime('%Y-%m-%d', created_at) AS date, COUNT(*) AS count
        FROM page_views
        WHERE created_at >= ? AND created_at < ?
        GROUP BY date
        ORDER BY date ASC
    `, r.Start, r.End).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching timeseries: %w", err)
	}
	return results, nil
}

// fetchSourceSummary computes the named attribution counters. The rows
// are pre-grouped by the attribution tuple in SQL and the counter
// routing happens here, because the google match is a regex the store
// cannot evaluate.
func fetchSourceSummary(ctx context.Context, db *gorm.DB, r timeframe.Range) (SourceSummary, error) {
	var rows []struct {
		SourceCategory string
		SocialNetwork  string
		ReferrerHost   string
		UTMSource      string
		IsOrganic      bool
		Count          int64
	}

	err := db.WithContext(ctx).Raw(`
        SELECT source_category, social_network, referrer_host, utm_source, is_organic, COUNT(*) AS count
        FROM page_views
        WHERE created_at >= ? AND created_at < ?
        GROUP BY source_category, social_network, referrer_host, utm_source, is_organic
    `, r.Start, r.End).Scan(&rows).Error
	if err != nil {
		return SourceSummary{}, fmt.Errorf("error fetching source summary: %w", err)
	}

	var summary SourceSummary
	for _, row := range rows {
		isGoogle := googleRegex.MatchString(row.ReferrerHost) ||
			strings.EqualFold(row.UTMSource, "google")

		if isGoogle {
			summary.Google += row.Count
			if row.IsOrganic {
				summary.GoogleOrganic += row.Count
			}
			if row.SourceCategory == sources.CategoryPaid {
				summary.GooglePaid += row.Count
			}
		}

		switch row.SourceCategory {
		case sources.CategoryDirect:
			summary.Direct += row.Count
		case sources.CategoryReferral:
			summary.Referral += row.Count
		case sources.CategoryEmail:
			summary.Email += row.Count
		case sources.CategoryPaid:
			summary.Paid += row.Count
		}

		switch row.SocialNetwork {
		case "":
		case sources.NetworkLinkedIn:
			summary.LinkedIn += row.Count
		case sources.NetworkInstagram:
			summary.Instagram += row.Count
		case sources.NetworkFacebook:
			summary.Facebook += row.Count
		case sources.NetworkTwitter:
			summary.Twitter += row.Count
		default:
			summary.OtherSocial += row.Count
		}
	}

	return summary, nil
}

// convertCountryCounts maps ISO country codes to display names for the
// dashboard. Unresolvable codes are shown uppercased as-is.
func convertCountryCounts(items []MetricCount) []MetricCount {
	if len(items) == 0 {
		return []MetricCount{}
	}

	caser := cases.Upper(language.AmericanEnglish)
	countries := gountries.New()

	result := make([]MetricCount, len(items))
	for i, item := range items {
		name := item.Name
		if country, err := countries.FindCountryByAlpha(item.Name); err == nil {
			name = country.Name.Common
		} else {
			name = caser.String(name)
		}
		result[i] = MetricCount{Name: name, Count: item.Count}
	}
	return result
}
