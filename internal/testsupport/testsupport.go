package testsupport

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	v1 "sitebeam/api/v1"
	"sitebeam/internal"
	"sitebeam/internal/config"
	"sitebeam/internal/events"
	"sitebeam/internal/livefeed"
	"sitebeam/internal/messages"
	"sitebeam/internal/pkg/geo"
	"sitebeam/internal/settings"
	"sitebeam/internal/users"
)

// testDBCache caches test databases by test name to allow multiple
// calls within the same test to share the same database.
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with the Configured
// flag the summary endpoint checks.
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// Configured mirrors database.DBManager.Configured.
func (dm *TestDBManager) Configured() bool {
	return dm.GetConnection() != nil
}

// UnconfiguredDBManager satisfies cartridge.DBManager while handing
// out nil connections, for exercising the no-database degradation.
type UnconfiguredDBManager struct{}

var _ cartridge.DBManager = (*UnconfiguredDBManager)(nil)

func (dm *UnconfiguredDBManager) GetConnection() *gorm.DB    { return nil }
func (dm *UnconfiguredDBManager) Connect() (*gorm.DB, error) { return nil, nil }
func (dm *UnconfiguredDBManager) Configured() bool           { return false }

func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&events.PageView{},
		&users.User{},
		&settings.Setting{},
		&messages.ContactMessage{},
		&messages.Subscriber{},
	}
}

// SetupTestDB creates a migrated test database. Uses a named
// in-memory database with cache=shared so multiple connections within
// a test share state, cached by root test name so setup helpers that
// capture the outer *testing.T keep working inside subtests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a migrated test database behind a
// cartridge.DBManager, plus a quiet logger.
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// CleanAllTables clears all non-system tables in the database.
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	if len(tableNames) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tableNames {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// GetLogger returns a logger that only surfaces errors.
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// NewHub returns a live feed hub wired to the test logger.
func NewHub() *livefeed.Hub {
	return livefeed.NewHub(GetLogger())
}

// TestConfig returns the process config forced into test mode with
// the geo enricher disabled.
func TestConfig() *config.Config {
	cfg := config.GetConfig()
	cfg.Environment = config.Test
	cfg.GeoProvider = config.GeoProviderDisabled
	return cfg
}

// CreateMinimalTestApp builds a fiber app with the full route table
// mounted over the given database, for handler tests.
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := TestConfig()
	appLogger := GetLogger()

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = appLogger
	cfg.DBManager = dbManager
	// Match the production posture: global validation on, browser
	// fetch contexts allowed; the API route configs opt out anyway.
	cfg.EnableSecFetchSite = true
	cfg.SecFetchSiteAllowedValues = []string{"cross-site", "same-site", "same-origin"}

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	enricher := geo.NewEnricher(appConfig, appLogger)
	hub := livefeed.NewHub(appLogger)
	api := v1.NewAPI(v1.Options{
		Config:        appConfig,
		Ingestor:      events.NewIngestor(dbManager, appLogger, enricher, hub),
		Summarizer:    events.NewSummarizer(dbManager, appLogger),
		SettingsStore: settings.NewStore(db, appLogger),
		Hub:           hub,
		DBConfigured:  dbManager.Configured(),
	})

	internal.MountAPIRoutes(api)(srv)
	return srv.App()
}

// CreateTestUser creates an admin user with a properly hashed password.
func CreateTestUser(t *testing.T, db *gorm.DB, email, password string) *users.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &users.User{
		Email:             email,
		EncryptedPassword: string(hashedPassword),
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePageView stores a page view with sensible defaults, applying
// any customization before the insert.
func CreatePageView(t *testing.T, db *gorm.DB, customize func(*events.PageView)) *events.PageView {
	t.Helper()

	pv := &events.PageView{
		Path:           "/",
		ClientID:       "client-1",
		CreatedAt:      time.Now().UTC(),
		SourceCategory: "direct",
		DeviceType:     "desktop",
		OS:             "windows",
		Browser:        "chrome",
		IP:             "203.0.113.1",
	}
	if customize != nil {
		customize(pv)
	}
	require.NoError(t, db.Create(pv).Error)
	return pv
}
