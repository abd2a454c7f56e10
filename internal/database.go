package internal

import (
	"fmt"
	"log/slog"

	"mymodels-api/config"

	slogGorm "github.com/orandin/slog-gorm"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenDatabase connects to the configured database. SQL logging goes through
// logger at debug level; driver errors are translated into gorm's sentinel
// errors so unique violations surface as gorm.ErrDuplicatedKey.
func OpenDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, GormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("can't access connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// GormConfig returns the gorm settings shared by every dialect.
func GormConfig(logger *zap.Logger) *gorm.Config {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := zapslog.NewHandler(logger.Named("gorm").Core())
	return &gorm.Config{
		TranslateError: true,
		Logger: slogGorm.New(
			slogGorm.WithHandler(handler),
			slogGorm.WithErrorField("err"),
			slogGorm.SetLogLevel(slogGorm.DefaultLogType, slog.LevelDebug),
		),
	}
}

// CloseDatabase releases the underlying connection pool.
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
