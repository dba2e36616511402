package main

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm/logger"

	"insureportal-backend/shared/config"
	"insureportal-backend/shared/database"
	applog "insureportal-backend/shared/logger"
)

func main() {
	config.LoadConfig()
	cfg := config.GetConfig()
	applog.Setup(cfg.LogLevel, cfg.LogFormat)

	applog.Info().Msg("🗑️ Starting database reset...")

	db, err := database.Open(postgres.Open(database.DSN(cfg)), logger.Silent)
	if err != nil {
		applog.Fatal().Err(err).Msg("❌ Database connection failed")
	}

	if err := database.DropAll(db); err != nil {
		applog.Fatal().Err(err).Msg("❌ Database reset failed")
	}

	applog.Info().Msg("✅ Database reset completed - all tables dropped!")
	fmt.Println("💡 Run 'go run ./cmd/seed' to recreate tables and seed data")
}
