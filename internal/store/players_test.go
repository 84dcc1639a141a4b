package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

func createRoster(t *testing.T, s *Store, teamID uint, size int) []uint {
	t.Helper()
	ids := make([]uint, 0, size)
	for i := 0; i < size; i++ {
		p := &models.Player{
			TeamID:    teamID,
			FirstName: "Roster",
			LastName:  fmt.Sprintf("Player%d", i),
			Role:      models.RoleRunner,
			Race:      models.RaceHuman,
			Age:       24,
			Potential: 3.0,
		}
		require.NoError(t, s.DB().Create(p).Error)
		ids = append(ids, p.ID)
	}
	return ids
}

func createSeasonInPhase(t *testing.T, s *Store, phase models.Phase) {
	t.Helper()
	season := &models.Season{
		Number:     1,
		CurrentDay: 5,
		Phase:      phase,
		StartedAt:  time.Now().AddDate(0, 0, -4),
		IsCurrent:  true,
		BootNonce:  "test",
	}
	require.NoError(t, s.DB().Create(season).Error)
}

func TestMoveToTaxiSquadCapAndFloor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	teamID := createTeamWithCredits(t, s, 0, 0)
	ids := createRoster(t, s, teamID, 15)

	require.NoError(t, s.MoveToTaxiSquad(ctx, teamID, ids[0]))
	require.NoError(t, s.MoveToTaxiSquad(ctx, teamID, ids[1]))

	// Squad holds two players at most.
	assert.ErrorIs(t, s.MoveToTaxiSquad(ctx, teamID, ids[2]), apperr.ErrInvalidRoster)

	// Moving an already parked player is rejected.
	assert.ErrorIs(t, s.MoveToTaxiSquad(ctx, teamID, ids[0]), apperr.ErrInvalidRoster)

	var parked int64
	require.NoError(t, s.DB().Model(&models.Player{}).
		Where("team_id = ? AND on_taxi_squad = ?", teamID, true).
		Count(&parked).Error)
	assert.Equal(t, int64(2), parked)
}

func TestMoveToTaxiSquadKeepsRosterLegal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	teamID := createTeamWithCredits(t, s, 0, 0)
	// One above the minimum: exactly one move is legal.
	ids := createRoster(t, s, teamID, models.MinRosterSize+1)

	require.NoError(t, s.MoveToTaxiSquad(ctx, teamID, ids[0]))
	assert.ErrorIs(t, s.MoveToTaxiSquad(ctx, teamID, ids[1]), apperr.ErrInvalidRoster)
}

func TestMoveToTaxiSquadOwnershipChecks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	teamID := createTeamWithCredits(t, s, 0, 0)
	rivalID := createTeamWithCredits(t, s, 0, 0)
	createRoster(t, s, teamID, 15)
	rivalPlayers := createRoster(t, s, rivalID, 15)

	assert.ErrorIs(t, s.MoveToTaxiSquad(ctx, teamID, rivalPlayers[0]), apperr.ErrPlayerNotFound)
	assert.ErrorIs(t, s.MoveToTaxiSquad(ctx, teamID, 999_999), apperr.ErrPlayerNotFound)
}

func TestPromoteFromTaxiSquadOffseasonOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createSeasonInPhase(t, s, models.PhaseRegular)
	teamID := createTeamWithCredits(t, s, 0, 0)
	ids := createRoster(t, s, teamID, 15)
	require.NoError(t, s.MoveToTaxiSquad(ctx, teamID, ids[0]))

	assert.ErrorIs(t, s.PromoteFromTaxiSquad(ctx, teamID, ids[0]), apperr.ErrRegistrationClosed)

	require.NoError(t, s.DB().Model(&models.Season{}).
		Where("is_current = ?", true).
		Update("phase", models.PhaseOffseason).Error)

	require.NoError(t, s.PromoteFromTaxiSquad(ctx, teamID, ids[0]))
	var p models.Player
	require.NoError(t, s.DB().First(&p, ids[0]).Error)
	assert.False(t, p.OnTaxiSquad)

	// A player already on the active roster cannot be promoted again.
	assert.ErrorIs(t, s.PromoteFromTaxiSquad(ctx, teamID, ids[0]), apperr.ErrInvalidRoster)
}
