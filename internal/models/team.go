package models

import (
	"time"
)

type TacticalFocus string

const (
	TacticsBalanced      TacticalFocus = "BALANCED"
	TacticsAllOutAttack  TacticalFocus = "ALL_OUT_ATTACK"
	TacticsDefensiveWall TacticalFocus = "DEFENSIVE_WALL"
)

type FieldSize string

const (
	FieldStandard FieldSize = "STANDARD"
	FieldLarge    FieldSize = "LARGE"
	FieldSmall    FieldSize = "SMALL"
)

// Roster bounds, taxi squad counted within the cap.
const (
	MinRosterSize = 12
	MaxRosterSize = 15
	MaxTaxiSquad  = 2
)

// Subdivision capacities by division.
const (
	UpperDivisionCap = 16 // divisions 1-2
	LowerDivisionCap = 8  // divisions 3-8
	MaxDivision      = 8
)

type Team struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	OwnerID     string `gorm:"index" json:"owner_id"` // external identity reference; empty for AI teams
	IsAI        bool   `gorm:"not null;default:false;index" json:"is_ai"`
	Division    int    `gorm:"not null;index" json:"division"`
	Subdivision string `gorm:"not null;index" json:"subdivision"`

	TacticalFocus TacticalFocus `gorm:"not null;default:BALANCED" json:"tactical_focus"`
	HomeField     FieldSize     `gorm:"not null;default:STANDARD" json:"home_field"`
	Camaraderie   int           `gorm:"not null;default:50" json:"camaraderie"` // 0-100
	FanLoyalty    int           `gorm:"not null;default:50" json:"fan_loyalty"` // 0-100

	Wins   int `gorm:"not null;default:0" json:"wins"`
	Losses int `gorm:"not null;default:0" json:"losses"`
	Draws  int `gorm:"not null;default:0" json:"draws"`
	Points int `gorm:"not null;default:0" json:"points"`

	// Stadium facility investment, basis for daily maintenance and revenue.
	FacilityInvestment int64 `gorm:"not null;default:100000" json:"facility_investment"`
	StadiumCapacity    int   `gorm:"not null;default:5000" json:"stadium_capacity"`

	// Daily limits, reset by the scheduler each day.
	ExhibitionsToday     int `gorm:"not null;default:0" json:"exhibitions_today"`
	TournamentEntryToday int `gorm:"not null;default:0" json:"tournament_entry_today"`
	ConsumablesUsedToday int `gorm:"not null;default:0" json:"consumables_used_today"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Players []Player `gorm:"foreignKey:TeamID" json:"players,omitempty"`
	Staff   []Staff  `gorm:"foreignKey:TeamID" json:"staff,omitempty"`
}

func (Team) TableName() string {
	return "teams"
}

// SubdivisionCapacity returns the team cap for a division's subdivisions.
func SubdivisionCapacity(division int) int {
	if division <= 2 {
		return UpperDivisionCap
	}
	return LowerDivisionCap
}

type StaffType string

const (
	StaffHeadCoach          StaffType = "HEAD_COACH"
	StaffPasserTrainer      StaffType = "PASSER_TRAINER"
	StaffRunnerTrainer      StaffType = "RUNNER_TRAINER"
	StaffBlockerTrainer     StaffType = "BLOCKER_TRAINER"
	StaffRecoverySpecialist StaffType = "RECOVERY_SPECIALIST"
	StaffScout              StaffType = "SCOUT"
)

type Staff struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	TeamID uint      `gorm:"not null;index" json:"team_id"`
	Name   string    `gorm:"not null" json:"name"`
	Type   StaffType `gorm:"not null" json:"type"`

	// Seven staff attributes, each 1-40.
	Motivation  int `gorm:"not null;default:20" json:"motivation"`
	Development int `gorm:"not null;default:20" json:"development"`
	Teaching    int `gorm:"not null;default:20" json:"teaching"`
	Physiology  int `gorm:"not null;default:20" json:"physiology"`
	Talent      int `gorm:"not null;default:20" json:"talent"`
	Potential   int `gorm:"not null;default:20" json:"potential"`
	Tactics     int `gorm:"not null;default:20" json:"tactics"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Staff) TableName() string {
	return "staff"
}

// AttributeSum totals the seven staff attributes for valuation.
func (s *Staff) AttributeSum() int {
	return s.Motivation + s.Development + s.Teaching + s.Physiology +
		s.Talent + s.Potential + s.Tactics
}
