package models

import (
	"time"
)

// Phase of the 17-day season. Pure function of the day: 1-14 regular
// season, 15 playoffs, 16-17 offseason.
type Phase string

const (
	PhaseRegular   Phase = "REGULAR"
	PhasePlayoffs  Phase = "PLAYOFFS"
	PhaseOffseason Phase = "OFFSEASON"
)

// PhaseForDay maps a day in [1,17] to its phase.
func PhaseForDay(day int) Phase {
	switch {
	case day <= 14:
		return PhaseRegular
	case day == 15:
		return PhasePlayoffs
	default:
		return PhaseOffseason
	}
}

// Season is the canonical season row. Exactly one row has IsCurrent = true
// at any moment; the scheduler is the only writer of CurrentDay.
type Season struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Number     int       `gorm:"not null;uniqueIndex" json:"number"`
	CurrentDay int       `gorm:"not null;default:1" json:"current_day"`
	Phase      Phase     `gorm:"not null;default:REGULAR" json:"phase"`
	StartedAt  time.Time `gorm:"not null" json:"started_at"`
	IsCurrent  bool      `gorm:"not null;default:false;index" json:"is_current"`
	// BootNonce seeds match simulation deterministically for the whole
	// season so recovery re-simulates identical streams.
	BootNonce string    `gorm:"not null" json:"boot_nonce"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Season) TableName() string {
	return "seasons"
}

// SeasonStanding archives final regular-season placement at rollover.
type SeasonStanding struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SeasonNumber int       `gorm:"not null;index" json:"season_number"`
	TeamID       uint      `gorm:"not null;index" json:"team_id"`
	Division     int       `gorm:"not null" json:"division"`
	Subdivision  string    `gorm:"not null" json:"subdivision"`
	Rank         int       `gorm:"not null" json:"rank"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Draws        int       `json:"draws"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"created_at"`
}

func (SeasonStanding) TableName() string {
	return "season_standings"
}
