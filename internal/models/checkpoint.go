package models

import (
	"time"

	"gorm.io/datatypes"
)

// MatchCheckpoint is a compact snapshot of a live match, written every
// checkpoint interval so a crashed worker can resume deterministically.
type MatchCheckpoint struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	GameID uint `gorm:"not null;uniqueIndex" json:"game_id"`

	Tick       int            `gorm:"not null" json:"tick"`
	Seed       int64          `gorm:"not null" json:"seed"`
	Half       int            `gorm:"not null" json:"half"`
	HomeScore  int            `gorm:"not null" json:"home_score"`
	AwayScore  int            `gorm:"not null" json:"away_score"`
	Possession uint           `gorm:"not null" json:"possession"` // team id
	Snapshot   datatypes.JSON `gorm:"type:jsonb" json:"snapshot"` // per-player state

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MatchCheckpoint) TableName() string {
	return "match_checkpoints"
}

// DayMarker guarantees scheduler step idempotence. A step that finds its
// (season, day, step) row present is a no-op.
type DayMarker struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SeasonNumber int       `gorm:"not null;uniqueIndex:idx_day_marker" json:"season_number"`
	DayInSeason  int       `gorm:"not null;uniqueIndex:idx_day_marker" json:"day_in_season"`
	Step         string    `gorm:"not null;uniqueIndex:idx_day_marker" json:"step"`
	CompletedAt  time.Time `gorm:"not null" json:"completed_at"`
}

func (DayMarker) TableName() string {
	return "day_markers"
}

// AllModels is the migration set, ordered leaves first.
func AllModels() []interface{} {
	return []interface{}{
		&Season{},
		&SeasonStanding{},
		&Team{},
		&Staff{},
		&Player{},
		&Contract{},
		&Game{},
		&GameEvent{},
		&PlayerGameStats{},
		&TeamGameStats{},
		&Tournament{},
		&TournamentEntry{},
		&MarketplaceListing{},
		&ListingBid{},
		&TeamFinances{},
		&FinancialLedger{},
		&MatchCheckpoint{},
		&DayMarker{},
	}
}
