// Package settings holds the mutable site-wide configuration
// (maintenance mode, company identity). Two Store implementations
// exist: a database-backed one and an in-memory fallback used when no
// persistent store is configured. Which one runs is decided once at
// startup, so the degradation mode is explicit rather than ambient.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

const siteSettingsKey = "site_settings"

// Setting is one key-value configuration row.
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// SiteSettings is the admin-editable singleton.
type SiteSettings struct {
	CompanyName        string `json:"companyName"`
	WebsiteURL         string `json:"websiteUrl"`
	Timezone           string `json:"timezone"`
	Language           string `json:"language"`
	MaintenanceMode    bool   `json:"maintenanceMode"`
	MaintenanceMessage string `json:"maintenanceMessage"`
}

// PublicConfig is the restricted subset exposed without authentication.
type PublicConfig struct {
	CompanyName        string `json:"companyName"`
	WebsiteURL         string `json:"websiteUrl"`
	MaintenanceMode    bool   `json:"maintenanceMode"`
	MaintenanceMessage string `json:"maintenanceMessage"`
}

// Public projects the settings down to the publicly visible fields.
func (s SiteSettings) Public() PublicConfig {
	return PublicConfig{
		CompanyName:        s.CompanyName,
		WebsiteURL:         s.WebsiteURL,
		MaintenanceMode:    s.MaintenanceMode,
		MaintenanceMessage: s.MaintenanceMessage,
	}
}

// Defaults returns the settings created lazily on first read.
func Defaults() SiteSettings {
	return SiteSettings{
		CompanyName: "Sitebeam",
		Timezone:    "UTC",
		Language:    "en",
	}
}

// Store is the persistence strategy for the settings singleton.
// Updates are last-write-wins.
type Store interface {
	Get() (SiteSettings, error)
	Update(s SiteSettings) error
}

// NewStore selects the store implementation for the given connection.
// A nil connection means no database is configured, so settings live
// in process memory and reset on restart.
func NewStore(db *gorm.DB, logger *slog.Logger) Store {
	if db == nil {
		return NewMemoryStore()
	}
	return newDBStore(db, logger)
}

type dbStore struct {
	db     *gorm.DB
	logger *slog.Logger
	cache  *cache.Cache[string, SiteSettings]
}

func newDBStore(db *gorm.DB, logger *slog.Logger) *dbStore {
	s := &dbStore{db: db, logger: logger}
	s.cache = cache.NewCache[string, SiteSettings](logger, 5*time.Minute, s.fetch)
	return s
}

func (s *dbStore) fetch(key string) (SiteSettings, error) {
	var value string
	err := s.db.WithContext(context.Background()).
		Raw("SELECT value FROM settings WHERE key = ? LIMIT 1", key).
		Scan(&value).Error
	if err != nil {
		return SiteSettings{}, err
	}

	if value == "" {
		// First read: seed the row with defaults.
		defaults := Defaults()
		if err := s.write(defaults); err != nil {
			return SiteSettings{}, err
		}
		return defaults, nil
	}

	var settings SiteSettings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return SiteSettings{}, fmt.Errorf("corrupt site settings row: %w", err)
	}
	return settings, nil
}

func (s *dbStore) Get() (SiteSettings, error) {
	return s.cache.Get(siteSettingsKey)
}

func (s *dbStore) Update(settings SiteSettings) error {
	if err := s.write(settings); err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

func (s *dbStore) write(settings SiteSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal site settings: %w", err)
	}

	now := time.Now().UTC()
	return sqlite.PerformWrite(s.logger, s.db, func(tx *gorm.DB) error {
		return tx.Exec(`
            INSERT INTO settings (key, value, created_at, updated_at)
            VALUES (?, ?, ?, ?)
            ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
        `, siteSettingsKey, string(payload), now, now).Error
	})
}

// MemoryStore keeps settings in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	settings SiteSettings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: Defaults()}
}

func (s *MemoryStore) Get() (SiteSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *MemoryStore) Update(settings SiteSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}
