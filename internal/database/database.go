package database

import (
	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"sitebeam/internal/config"
	"sitebeam/internal/events"
	"sitebeam/internal/messages"
	"sitebeam/internal/settings"
	"sitebeam/internal/users"
)

// DBManager wraps cartridge's sqlite.Manager and adds the sitebeam
// migrations. When no database is configured the manager still
// satisfies the cartridge interface but hands out nil connections;
// callers degrade per their own contracts (lossy ingestion, in-memory
// settings, dbConfigured=false summaries).
type DBManager struct {
	manager *sqlite.Manager
	logger  *slog.Logger
}

// NewDBManager creates a database manager for the configured store.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	if !cfg.HasDatabase() {
		logger.Warn("Running without a database: events are not persisted and settings reset on restart")
		return &DBManager{logger: logger}
	}

	sqliteCfg := sqlite.Config{
		Path:         cfg.DatabaseName,
		MaxOpenConns: cfg.GetMaxOpenConns(),
		MaxIdleConns: cfg.GetMaxIdleConns(),
		Logger:       logger,
		EnableWAL:    true,
		TxImmediate:  true,
		BusyTimeout:  5000,
	}

	return &DBManager{
		manager: sqlite.NewManager(sqliteCfg),
		logger:  logger,
	}
}

// Ensure DBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*DBManager)(nil)

// Configured reports whether a persistent store backs this manager.
func (dm *DBManager) Configured() bool {
	return dm.manager != nil
}

// Init opens the database connection. A no-op without a store.
func (dm *DBManager) Init() error {
	if dm.manager == nil {
		return nil
	}
	_, err := dm.manager.Connect()
	return err
}

// Connect implements cartridge.DBManager. Returns a nil connection
// when no store is configured.
func (dm *DBManager) Connect() (*gorm.DB, error) {
	if dm.manager == nil {
		return nil, nil
	}
	return dm.manager.Connect()
}

// GetConnection implements cartridge.DBManager. Returns nil when no
// store is configured.
func (dm *DBManager) GetConnection() *gorm.DB {
	if dm.manager == nil {
		return nil
	}
	return dm.manager.GetConnection()
}

// MigrateDatabase runs the sitebeam schema migrations.
func (dm *DBManager) MigrateDatabase() error {
	if dm.manager == nil {
		return nil
	}

	db := dm.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&cache.CacheRecord{},
			&events.PageView{},
			&users.User{},
			&settings.Setting{},
			&messages.ContactMessage{},
			&messages.Subscriber{},
		)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	if err := dm.manager.CheckpointWAL("FULL"); err != nil {
		dm.logger.Warn("Failed to checkpoint WAL after migration", slog.Any("error", err))
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}
