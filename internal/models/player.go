package models

import (
	"math"
	"time"
)

type Role string

const (
	RolePasser  Role = "PASSER"
	RoleRunner  Role = "RUNNER"
	RoleBlocker Role = "BLOCKER"
)

type Race string

const (
	RaceHuman  Race = "HUMAN"
	RaceSylvan Race = "SYLVAN"
	RaceGryll  Race = "GRYLL"
	RaceLumina Race = "LUMINA"
	RaceUmbra  Race = "UMBRA"
)

type InjuryStatus string

const (
	InjuryHealthy  InjuryStatus = "HEALTHY"
	InjuryMinor    InjuryStatus = "MINOR"
	InjuryModerate InjuryStatus = "MODERATE"
	InjurySevere   InjuryStatus = "SEVERE"
)

const (
	MinAge        = 16
	RetirementAge = 45
	MinAttribute  = 1
	MaxAttribute  = 40
)

type Player struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	TeamID    uint   `gorm:"not null;index" json:"team_id"`
	FirstName string `gorm:"not null" json:"first_name"`
	LastName  string `gorm:"not null" json:"last_name"`
	Role      Role   `gorm:"not null;index" json:"role"`
	Race      Race   `gorm:"not null" json:"race"`
	Age       int    `gorm:"not null" json:"age"`

	// Eight attributes, each 1-40, capped by floor(potential*8).
	Speed      int `gorm:"not null" json:"speed"`
	Power      int `gorm:"not null" json:"power"`
	Agility    int `gorm:"not null" json:"agility"`
	Throwing   int `gorm:"not null" json:"throwing"`
	Catching   int `gorm:"not null" json:"catching"`
	Kicking    int `gorm:"not null" json:"kicking"`
	Stamina    int `gorm:"not null" json:"stamina"`
	Leadership int `gorm:"not null" json:"leadership"`

	// Potential in 0.5 steps, 0.5-5.0.
	Potential float64 `gorm:"not null" json:"potential"`

	DailyStamina   int          `gorm:"not null;default:100" json:"daily_stamina"` // 0-100
	InjuryStatus   InjuryStatus `gorm:"not null;default:HEALTHY" json:"injury_status"`
	InjuryRecovery int          `gorm:"not null;default:0" json:"injury_recovery"` // recovery points remaining
	CareerInjuries int          `gorm:"not null;default:0" json:"career_injuries"`

	// Seasonal minutes played by match type, reset at rollover.
	LeagueMinutes     int `gorm:"not null;default:0" json:"league_minutes"`
	TournamentMinutes int `gorm:"not null;default:0" json:"tournament_minutes"`
	ExhibitionMinutes int `gorm:"not null;default:0" json:"exhibition_minutes"`

	OnTaxiSquad bool `gorm:"not null;default:false" json:"on_taxi_squad"`
	Retired     bool `gorm:"not null;default:false;index" json:"retired"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Player) TableName() string {
	return "players"
}

// AttributeCap is the hard ceiling any single attribute may reach.
func (p *Player) AttributeCap() int {
	cap := int(math.Floor(p.Potential * 8))
	if cap > MaxAttribute {
		cap = MaxAttribute
	}
	if cap < MinAttribute {
		cap = MinAttribute
	}
	return cap
}

// AttributeSum totals the eight attributes for valuation.
func (p *Player) AttributeSum() int {
	return p.Speed + p.Power + p.Agility + p.Throwing + p.Catching +
		p.Kicking + p.Stamina + p.Leadership
}

// CAR is the Core Athleticism Rating: the average of the six athletic
// attributes, used for valuation and matchmaking heuristics.
func (p *Player) CAR() float64 {
	return float64(p.Speed+p.Power+p.Agility+p.Catching+p.Kicking+p.Stamina) / 6.0
}

// Fieldable reports whether the player may be placed on the field.
func (p *Player) Fieldable() bool {
	return !p.Retired && p.InjuryStatus != InjurySevere
}

// SeasonalMinutes is the total across all match types this season.
func (p *Player) SeasonalMinutes() int {
	return p.LeagueMinutes + p.TournamentMinutes + p.ExhibitionMinutes
}
