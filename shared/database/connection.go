package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"insureportal-backend/shared/config"
	"insureportal-backend/shared/database/models"
	applog "insureportal-backend/shared/logger"
)

var DB *gorm.DB

// Models lists every table owned by the portal, parents first.
var Models = []interface{}{
	&models.Organization{},
	&models.User{},
	&models.Form{},
	&models.InsuranceItem{},
	&models.Document{},
}

// getLogLevel returns appropriate log level based on environment
func getLogLevel(cfg *config.Config) logger.LogLevel {
	if cfg.DBHost == "localhost" || cfg.DBHost == "127.0.0.1" {
		return logger.Warn
	}
	return logger.Error
}

// DSN builds the postgres connection string from configuration
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)
}

// InitDatabase initializes the database connection and runs migrations
func InitDatabase() error {
	cfg := config.GetConfig()

	db, err := Open(postgres.Open(DSN(cfg)), getLogLevel(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	applog.Info().Msg("✅ Database connection established successfully")
	DB = db

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Open connects through any gorm dialector with the portal's gorm settings.
func Open(dialector gorm.Dialector, level logger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Migrate creates or updates every portal table
func Migrate(db *gorm.DB) error {
	applog.Info().Msg("🔄 Checking database schema...")

	migrator := db.Migrator()
	migratedCount := 0
	for _, model := range Models {
		if !migrator.HasTable(model) {
			applog.Info().Str("model", fmt.Sprintf("%T", model)).Msg("📦 Creating table")
			migratedCount++
		}

		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	if migratedCount > 0 {
		applog.Info().Int("created", migratedCount).Msg("✅ Database migrations completed")
	} else {
		applog.Info().Msg("✅ Database schema is up to date")
	}

	return nil
}

// DropAll drops every portal table, children first
func DropAll(db *gorm.DB) error {
	migrator := db.Migrator()
	for i := len(Models) - 1; i >= 0; i-- {
		model := Models[i]
		applog.Info().Str("model", fmt.Sprintf("%T", model)).Msg("   Dropping table")
		if err := migrator.DropTable(model); err != nil {
			return fmt.Errorf("failed to drop %T: %w", model, err)
		}
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
