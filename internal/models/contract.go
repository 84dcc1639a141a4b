package models

import (
	"time"
)

type ContractParty string

const (
	PartyPlayer ContractParty = "PLAYER"
	PartyStaff  ContractParty = "STAFF"
)

// Contract binds a player or staff member to a team. Salary must be at
// least 70% of the universal value formula at time of offer.
type Contract struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	TeamID       uint          `gorm:"not null;index" json:"team_id"`
	Party        ContractParty `gorm:"not null" json:"party"`
	PlayerID     *uint         `gorm:"index" json:"player_id,omitempty"`
	StaffID      *uint         `gorm:"index" json:"staff_id,omitempty"`
	AnnualSalary int64         `gorm:"not null" json:"annual_salary"`
	YearsLeft    int           `gorm:"not null" json:"years_left"` // 1-3
	SigningBonus int64         `gorm:"not null;default:0" json:"signing_bonus"`
	Active       bool          `gorm:"not null;default:true;index" json:"active"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (Contract) TableName() string {
	return "contracts"
}
