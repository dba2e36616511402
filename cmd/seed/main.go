package main

import (
	"insureportal-backend/shared/config"
	"insureportal-backend/shared/database"
	applog "insureportal-backend/shared/logger"
)

func main() {
	config.LoadConfig()
	cfg := config.GetConfig()
	applog.Setup(cfg.LogLevel, cfg.LogFormat)

	applog.Info().Msg("🌱 Starting database seeding...")

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		applog.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer database.CloseDatabase()

	// Run seeding
	if err := database.SeedDatabase(database.GetDB()); err != nil {
		applog.Fatal().Err(err).Msg("Failed to seed database")
	}

	applog.Info().Msg("✅ Database seeding completed successfully!")
}
