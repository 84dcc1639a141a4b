package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/pkg/config"
	"github.com/jimmy058910/replitballgame-sub006/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	default:
		log.Fatalf("Unknown command: %s", os.Args[1])
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_games_season_day ON games(season_number, day_in_season)",
		"CREATE INDEX IF NOT EXISTS idx_games_status_scheduled ON games(status, scheduled_at)",
		"CREATE INDEX IF NOT EXISTS idx_teams_division_subdivision ON teams(division, subdivision)",
		"CREATE INDEX IF NOT EXISTS idx_listings_status_expiry ON marketplace_listings(status, expires_at)",
		"CREATE INDEX IF NOT EXISTS idx_ledger_team_created ON financial_ledger(team_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_player_stats_game_player ON player_game_stats(game_id, player_id)",
	}
	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func dropTables(db *database.DB) error {
	// Reverse dependency order.
	tables := []string{
		"day_markers",
		"match_checkpoints",
		"financial_ledger",
		"team_finances",
		"listing_bids",
		"marketplace_listings",
		"tournament_entries",
		"tournaments",
		"team_game_stats",
		"player_game_stats",
		"game_events",
		"games",
		"contracts",
		"players",
		"staff",
		"teams",
		"season_standings",
		"seasons",
	}
	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
