package models

import (
	"time"

	"github.com/lib/pq"
)

type TournamentType string

const (
	TournamentDailyDivisional TournamentType = "DAILY_DIVISIONAL"
	TournamentMidSeason       TournamentType = "MID_SEASON_CLASSIC"
	TournamentPlayoff         TournamentType = "PLAYOFF"
)

type TournamentStatus string

const (
	TournamentRegistering TournamentStatus = "REGISTERING"
	TournamentSeeded      TournamentStatus = "SEEDED"
	TournamentInProgress  TournamentStatus = "IN_PROGRESS"
	TournamentCompleted   TournamentStatus = "COMPLETED"
)

type Tournament struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Type        TournamentType   `gorm:"not null;index" json:"type"`
	Division    int              `gorm:"not null;index" json:"division"`
	Subdivision string           `gorm:"index" json:"subdivision,omitempty"` // playoffs only
	Status      TournamentStatus `gorm:"not null;default:REGISTERING;index" json:"status"`
	Size        int              `gorm:"not null" json:"size"` // 8 or 16 (4 for lower-division playoffs)
	Round       int              `gorm:"not null;default:0" json:"round"`

	SeasonNumber int `gorm:"not null;index" json:"season_number"`
	DayInSeason  int `gorm:"not null" json:"day_in_season"`

	// Seeded team ids in bracket order, highest seed first.
	SeedOrder pq.Int64Array `gorm:"type:bigint[]" json:"seed_order"`

	RegistrationOpens  time.Time  `json:"registration_opens"`
	RegistrationCloses time.Time  `json:"registration_closes"`
	FirstRegistration  *time.Time `json:"first_registration,omitempty"`
	StartsAt           *time.Time `json:"starts_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tournament) TableName() string {
	return "tournaments"
}

// RoundCount is the number of single-elimination rounds for the size.
func (t *Tournament) RoundCount() int {
	n := 0
	for size := t.Size; size > 1; size /= 2 {
		n++
	}
	return n
}

// TournamentEntry records a registration, including the fee charged so a
// cancellation before close can refund exactly what was paid.
type TournamentEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TournamentID uint      `gorm:"not null;index:idx_tournament_team,unique" json:"tournament_id"`
	TeamID       uint      `gorm:"not null;index:idx_tournament_team,unique" json:"team_id"`
	Seed         int       `gorm:"not null;default:0" json:"seed"`
	FeeCredits   int64     `gorm:"not null;default:0" json:"fee_credits"`
	FeeGems      int       `gorm:"not null;default:0" json:"fee_gems"`
	Cancelled    bool      `gorm:"not null;default:false" json:"cancelled"`
	CreatedAt    time.Time `json:"created_at"`
}

func (TournamentEntry) TableName() string {
	return "tournament_entries"
}
