package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

func flatPlayer(age, attr int, potential float64) *models.Player {
	return &models.Player{
		Age:   age,
		Speed: attr, Power: attr, Agility: attr, Throwing: attr,
		Catching: attr, Kicking: attr, Stamina: attr, Leadership: attr,
		Potential: potential,
	}
}

func TestAgeModifier(t *testing.T) {
	assert.Equal(t, 0.8, ageModifier(16))
	assert.Equal(t, 0.8, ageModifier(21))
	assert.Equal(t, 0.8, ageModifier(23))
	assert.Equal(t, 1.2, ageModifier(24))
	assert.Equal(t, 1.2, ageModifier(28))
	assert.Equal(t, 1.2, ageModifier(30))
	assert.Equal(t, 1.0, ageModifier(31))
	assert.Equal(t, 1.0, ageModifier(33))
	assert.Equal(t, 1.0, ageModifier(34))
	assert.Equal(t, 0.7, ageModifier(35))
}

func TestPlayerValue(t *testing.T) {
	// Sum 160 at 50/point plus potential 3.0 at 2000/star, prime modifier.
	p := flatPlayer(25, 20, 3.0)
	assert.Equal(t, int64(16_800), PlayerValue(p))

	// Same player in twilight.
	p.Age = 35
	assert.Equal(t, int64(9_800), PlayerValue(p))
}

func TestStaffValue(t *testing.T) {
	st := &models.Staff{
		Motivation: 20, Development: 20, Teaching: 20, Physiology: 20,
		Talent: 20, Potential: 20, Tactics: 20,
	}
	assert.Equal(t, int64(140*150), StaffValue(st))
}

func TestSalaryFloor(t *testing.T) {
	assert.Equal(t, int64(7_000), SalaryFloor(10_000))
	assert.Equal(t, int64(7_001), SalaryFloor(10_001))
}

func TestEvaluateOffer(t *testing.T) {
	value := int64(10_000)

	_, err := EvaluateOffer(6_999, value)
	assert.ErrorIs(t, err, apperr.ErrContractBelowFloor)

	outcome, err := EvaluateOffer(9_500, value)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)

	// A legal but short offer draws a midpoint counter.
	outcome, err = EvaluateOffer(8_000, value)
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, int64(9_000), outcome.CounterSalary)
}
