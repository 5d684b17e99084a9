// Package geo resolves visitor IP addresses to coarse locations.
// Lookups are strictly best-effort: every failure mode collapses to an
// empty Location so ingestion never waits on or fails because of
// enrichment.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/oschwald/geoip2-golang"

	"sitebeam/internal/config"
)

// Location holds the resolved fields for one IP. Any subset may be
// empty when the provider has no data.
type Location struct {
	Country     string
	CountryCode string
	Region      string
	RegionCode  string
	City        string
}

// IsEmpty reports whether the lookup produced no data at all.
func (l Location) IsEmpty() bool {
	return l == Location{}
}

// Enricher resolves an IP to a Location. Implementations never return
// an error; an unresolvable IP yields the zero Location.
type Enricher interface {
	Lookup(ctx context.Context, ip string) Location
}

// NewEnricher builds the enricher selected by configuration. An
// unusable provider (missing database file, no endpoint) degrades to
// the disabled enricher instead of failing startup.
func NewEnricher(cfg *config.Config, logger *slog.Logger) Enricher {
	timeout := time.Duration(cfg.GeoTimeoutMillis) * time.Millisecond

	switch cfg.GeoProvider {
	case config.GeoProviderMMDB:
		reader, err := openDatabase(cfg.GeoDBPath)
		if err != nil {
			logger.Info("Geo database unavailable, lookups disabled",
				slog.String("path", cfg.GeoDBPath),
				slog.Any("error", err))
			return &disabledEnricher{}
		}
		logger.Info("Geo database loaded", slog.String("path", cfg.GeoDBPath))
		return &mmdbEnricher{reader: reader, timeout: timeout, logger: logger}

	case config.GeoProviderHTTP:
		if cfg.GeoHTTPEndpoint == "" {
			logger.Info("Geo HTTP endpoint not configured, lookups disabled")
			return &disabledEnricher{}
		}
		return &httpEnricher{
			endpoint: cfg.GeoHTTPEndpoint,
			timeout:  timeout,
			client:   &http.Client{},
			logger:   logger,
		}

	default:
		return &disabledEnricher{}
	}
}

func openDatabase(path string) (*geoip2.Reader, error) {
	if path == "" {
		return nil, fmt.Errorf("no database path configured")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return geoip2.Open(path)
}

type disabledEnricher struct{}

func (e *disabledEnricher) Lookup(_ context.Context, _ string) Location {
	return Location{}
}

// mmdbEnricher reads a local MaxMind City database. Reads are purely
// in-process but still honor the timeout contract via the context.
type mmdbEnricher struct {
	reader  *geoip2.Reader
	timeout time.Duration
	logger  *slog.Logger
}

func (e *mmdbEnricher) Lookup(ctx context.Context, ip string) Location {
	if ip == "" {
		return Location{}
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}
	}

	if err := ctx.Err(); err != nil {
		return Location{}
	}

	record, err := e.reader.City(parsed)
	if err != nil {
		e.logger.Debug("Geo lookup failed",
			slog.String("ip", ip),
			slog.Any("error", err))
		return Location{}
	}

	loc := Location{
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
	}
	if len(record.Subdivisions) > 0 {
		loc.Region = record.Subdivisions[0].Names["en"]
		loc.RegionCode = record.Subdivisions[0].IsoCode
	}
	return loc
}

// Close releases the underlying database file.
func (e *mmdbEnricher) Close() error {
	return e.reader.Close()
}

// httpEnricher queries an external lookup service. The request is
// bounded by a hard deadline; timeouts, non-2xx responses and decode
// failures all return the zero Location.
type httpEnricher struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
}

type httpLookupResponse struct {
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Region      string `json:"regionName"`
	RegionCode  string `json:"region"`
	City        string `json:"city"`
}

func (e *httpEnricher) Lookup(ctx context.Context, ip string) Location {
	if ip == "" {
		return Location{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/"+ip, nil)
	if err != nil {
		return Location{}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug("Geo lookup request failed",
			slog.String("ip", ip),
			slog.Any("error", err))
		return Location{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Location{}
	}

	var body httpLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}
	}

	return Location{
		Country:     body.Country,
		CountryCode: body.CountryCode,
		Region:      body.Region,
		RegionCode:  body.RegionCode,
		City:        body.City,
	}
}
