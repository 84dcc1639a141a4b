// Package progression owns player development over time: the universal
// value formula behind contracts and valuations, the daily training and
// recovery pass, and the end-of-season aging, decline and retirement pass.
package progression

import (
	"math"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

const (
	playerValuePerPoint = 50
	staffValuePerPoint  = 150
	potentialValueUnit  = 1000

	// ContractFloorRatio is the least a team may offer relative to UVF.
	ContractFloorRatio = 0.70
	// acceptRatio is the offer level a player signs without countering.
	acceptRatio = 0.95
)

// ageModifier scales value across the career arc: unproven youth, rising
// prime, established veteran, declining twilight.
func ageModifier(age int) float64 {
	switch {
	case age <= 23:
		return 0.8
	case age <= 30:
		return 1.2
	case age <= 34:
		return 1.0
	default:
		return 0.7
	}
}

// PlayerValue is the universal value formula for a player: attribute sum
// and potential priced separately, scaled by career stage.
func PlayerValue(p *models.Player) int64 {
	base := float64(p.AttributeSum()*playerValuePerPoint) +
		p.Potential*2*potentialValueUnit
	return int64(math.Round(base * ageModifier(p.Age)))
}

// StaffValue is the universal value formula for a staff member.
func StaffValue(st *models.Staff) int64 {
	return int64(st.AttributeSum() * staffValuePerPoint)
}

// SalaryFloor is the minimum legal annual salary for a value.
func SalaryFloor(value int64) int64 {
	return int64(math.Ceil(float64(value) * ContractFloorRatio))
}

// OfferOutcome is the player's response to a contract offer.
type OfferOutcome struct {
	Accepted bool
	// CounterSalary is set when the offer was legal but short: the
	// midpoint between offer and full value, never below the floor.
	CounterSalary int64
}

// EvaluateOffer applies the negotiation policy to an annual salary offer
// against the party's universal value.
func EvaluateOffer(offer, value int64) (*OfferOutcome, error) {
	floor := SalaryFloor(value)
	if offer < floor {
		return nil, apperr.ErrContractBelowFloor
	}
	if float64(offer) >= float64(value)*acceptRatio {
		return &OfferOutcome{Accepted: true}, nil
	}
	counter := (offer + value) / 2
	if counter < floor {
		counter = floor
	}
	return &OfferOutcome{CounterSalary: counter}, nil
}
