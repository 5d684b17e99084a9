// Package events is the heart of the analytics pipeline: it turns raw
// beacons into classified page-view records and rolls the stored
// records up into dashboard summaries.
package events

import (
	"time"
)

// PageView is one stored page view. Rows are append-only: nothing
// updates or deletes them during normal operation, which is what makes
// the aggregation queries pure reads.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Path      string    `gorm:"not null;index" json:"path"`
	ClientID  string    `gorm:"index" json:"clientId"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`

	Referrer     string `json:"referrer"`
	ReferrerHost string `gorm:"index" json:"referrerHost"`

	UTMSource   string `json:"utmSource"`
	UTMMedium   string `json:"utmMedium"`
	UTMCampaign string `json:"utmCampaign"`
	UTMTerm     string `json:"utmTerm"`
	UTMContent  string `json:"utmContent"`

	SourceCategory string `gorm:"not null;index" json:"sourceCategory"`
	SocialNetwork  string `json:"socialNetwork,omitempty"`
	IsOrganic      bool   `gorm:"not null" json:"isOrganic"`

	UserAgent  string `json:"userAgent"`
	DeviceType string `gorm:"not null" json:"deviceType"`
	OS         string `json:"os"`
	Browser    string `json:"browser"`

	Language     string `json:"language,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	ScreenWidth  int    `json:"screenWidth,omitempty"`
	ScreenHeight int    `json:"screenHeight,omitempty"`
	IP           string `json:"-"`

	Country     string `json:"country,omitempty"`
	CountryCode string `gorm:"index" json:"countryCode,omitempty"`
	Region      string `json:"region,omitempty"`
	RegionCode  string `json:"regionCode,omitempty"`
	City        string `json:"city,omitempty"`
}

// RawBeacon is the untrusted client payload of the tracking endpoint.
// UserAgent and IP are never taken from here; the server derives them
// from the request.
type RawBeacon struct {
	Path         string `json:"path"`
	Page         string `json:"page"`
	ClientID     string `json:"clientId"`
	Referrer     string `json:"referrer"`
	UTMSource    string `json:"utmSource"`
	UTMMedium    string `json:"utmMedium"`
	UTMCampaign  string `json:"utmCampaign"`
	UTMTerm      string `json:"utmTerm"`
	UTMContent   string `json:"utmContent"`
	Language     string `json:"language"`
	Timezone     string `json:"timezone"`
	ScreenWidth  int    `json:"screenWidth"`
	ScreenHeight int    `json:"screenHeight"`
}

// PagePath resolves the tracked path, accepting either field name the
// tracker script may send and defaulting to the root.
func (b *RawBeacon) PagePath() string {
	if b.Path != "" {
		return b.Path
	}
	if b.Page != "" {
		return b.Page
	}
	return "/"
}

// RequestContext carries the server-derived fields of one beacon request.
type RequestContext struct {
	UserAgent string
	IP        string
}
