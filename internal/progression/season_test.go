package progression

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

func TestApplyDeclineFloorsAtOne(t *testing.T) {
	svc, _ := newTestService(t)

	p := flatPlayer(40, 1, 3.0)
	rng := rand.New(rand.NewSource(1))
	for season := 0; season < 50; season++ {
		svc.applyDecline(p, rng)
	}
	assert.Equal(t, 1, p.Speed)
	assert.Equal(t, 1, p.Agility)
	assert.Equal(t, 1, p.Power)
}

func TestApplyDeclineSparesYoungPlayers(t *testing.T) {
	svc, _ := newTestService(t)

	p := flatPlayer(28, 20, 3.0)
	rng := rand.New(rand.NewSource(1))
	for season := 0; season < 50; season++ {
		svc.applyDecline(p, rng)
	}
	assert.Equal(t, 20, p.Speed)
	assert.Equal(t, 20, p.Agility)
	assert.Equal(t, 20, p.Power)
}

func TestApplyDeclineCostsAtMostOnePoint(t *testing.T) {
	svc, _ := newTestService(t)

	// One roll per season, one weighted decrement on a hit.
	for seed := int64(0); seed < 100; seed++ {
		p := flatPlayer(44, 20, 3.0)
		svc.applyDecline(p, rand.New(rand.NewSource(seed)))
		lost := 60 - (p.Speed + p.Agility + p.Power)
		assert.LessOrEqual(t, lost, 1)
	}
}

func TestUsagePenaltyTiers(t *testing.T) {
	assert.Equal(t, 0.15, usagePenalty(0))
	assert.Equal(t, 0.15, usagePenalty(199))
	assert.Equal(t, 0.05, usagePenalty(200))
	assert.Equal(t, 0.05, usagePenalty(399))
	assert.Equal(t, 0.0, usagePenalty(400))
	assert.Equal(t, 0.0, usagePenalty(560))
}

func TestRollRetirementHardStop(t *testing.T) {
	svc, _ := newTestService(t)
	rng := rand.New(rand.NewSource(1))

	p := flatPlayer(44, 20, 3.0)
	assert.True(t, svc.rollRetirement(p, rng))

	young := flatPlayer(25, 20, 3.0)
	assert.False(t, svc.rollRetirement(young, rng))
}

func TestRunEndOfSeasonAgesRoster(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	team := &models.Team{Name: "Test", Division: 8, Subdivision: "alpha"}
	require.NoError(t, st.DB().Create(team).Error)

	young := flatPlayer(22, 20, 3.0)
	young.TeamID = team.ID
	young.FirstName = "Young"
	young.LastName = "Player"
	young.Role = models.RoleRunner
	young.Race = models.RaceHuman
	young.LeagueMinutes = 300
	require.NoError(t, st.DB().Create(young).Error)

	old := flatPlayer(44, 20, 3.0)
	old.TeamID = team.ID
	old.FirstName = "Old"
	old.LastName = "Player"
	old.Role = models.RoleBlocker
	old.Race = models.RaceGryll
	require.NoError(t, st.DB().Create(old).Error)

	oldContract := &models.Contract{
		TeamID: team.ID, Party: models.PartyPlayer, PlayerID: &old.ID,
		AnnualSalary: 5_000, YearsLeft: 2, Active: true,
	}
	require.NoError(t, st.DB().Create(oldContract).Error)
	youngContract := &models.Contract{
		TeamID: team.ID, Party: models.PartyPlayer, PlayerID: &young.ID,
		AnnualSalary: 5_000, YearsLeft: 2, Active: true,
	}
	require.NoError(t, st.DB().Create(youngContract).Error)

	require.NoError(t, svc.RunEndOfSeason(ctx, 1))

	var gotYoung models.Player
	require.NoError(t, st.DB().First(&gotYoung, young.ID).Error)
	assert.Equal(t, 23, gotYoung.Age)
	assert.False(t, gotYoung.Retired)
	assert.Equal(t, 0, gotYoung.LeagueMinutes)

	// Age 44 hits the mandatory stop; the contract voids with it.
	var gotOld models.Player
	require.NoError(t, st.DB().First(&gotOld, old.ID).Error)
	assert.True(t, gotOld.Retired)
	var gotOldContract models.Contract
	require.NoError(t, st.DB().First(&gotOldContract, oldContract.ID).Error)
	assert.False(t, gotOldContract.Active)

	// Surviving contracts tick down one year.
	var gotYoungContract models.Contract
	require.NoError(t, st.DB().First(&gotYoungContract, youngContract.ID).Error)
	assert.True(t, gotYoungContract.Active)
	assert.Equal(t, 1, gotYoungContract.YearsLeft)
}

func TestContractsLapseAtZeroYears(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	team := &models.Team{Name: "Test", Division: 8, Subdivision: "alpha"}
	require.NoError(t, st.DB().Create(team).Error)
	p := flatPlayer(24, 20, 3.0)
	p.TeamID = team.ID
	p.FirstName = "Last"
	p.LastName = "Year"
	p.Role = models.RolePasser
	p.Race = models.RaceSylvan
	require.NoError(t, st.DB().Create(p).Error)
	contract := &models.Contract{
		TeamID: team.ID, Party: models.PartyPlayer, PlayerID: &p.ID,
		AnnualSalary: 5_000, YearsLeft: 1, Active: true,
	}
	require.NoError(t, st.DB().Create(contract).Error)

	require.NoError(t, svc.RunEndOfSeason(ctx, 1))

	var got models.Contract
	require.NoError(t, st.DB().First(&got, contract.ID).Error)
	assert.False(t, got.Active)
	assert.Equal(t, 0, got.YearsLeft)
}
