// Package timeframe parses the start/end query parameters of summary
// requests into a concrete UTC time range.
package timeframe

import (
	"time"
)

// DefaultRangeDays is how far back a summary reaches when the caller
// omits or garbles the range parameters.
const DefaultRangeDays = 30

// Range is a half-open interval [Start, End) in UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// TimeProvider abstracts the clock so tests can pin "now".
type TimeProvider interface {
	Now() time.Time
}

type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Parser turns raw start/end strings into a Range.
type Parser struct {
	timeProvider TimeProvider
}

func NewParser(timeProvider ...TimeProvider) *Parser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}
	return &Parser{timeProvider: provider}
}

// Parse accepts RFC 3339 timestamps or plain dates (2006-01-02).
// Invalid or missing values fall back to the default range of the last
// 30 days ending now; an inverted range falls back the same way.
func (p *Parser) Parse(startStr, endStr string) Range {
	now := p.timeProvider.Now()

	defaultRange := Range{
		Start: now.AddDate(0, 0, -DefaultRangeDays),
		End:   now,
	}

	start, okStart := parseTimestamp(startStr, false)
	end, okEnd := parseTimestamp(endStr, true)

	if !okStart {
		start = defaultRange.Start
	}
	if !okEnd {
		end = defaultRange.End
	}

	if end.Before(start) {
		return defaultRange
	}

	return Range{Start: start.UTC(), End: end.UTC()}
}

func parseTimestamp(value string, isEnd bool) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}

	if t, err := time.Parse("2006-01-02", value); err == nil {
		// A bare end date means "through that whole day".
		if isEnd {
			t = t.AddDate(0, 0, 1)
		}
		return t, true
	}

	return time.Time{}, false
}
