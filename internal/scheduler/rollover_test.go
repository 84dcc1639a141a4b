package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

func TestSubdivisionLabelOverflow(t *testing.T) {
	assert.Equal(t, "alpha", subdivisionLabel(0))
	assert.Equal(t, "beta", subdivisionLabel(1))
	assert.Equal(t, "omega", subdivisionLabel(23))

	// Past omega the alphabet cycles with a numeric suffix.
	assert.Equal(t, "alpha_1", subdivisionLabel(24))
	assert.Equal(t, "omega_1", subdivisionLabel(47))
	assert.Equal(t, "alpha_2", subdivisionLabel(48))
}

func TestNextFreeLabelSkipsTaken(t *testing.T) {
	assert.Equal(t, "alpha", nextFreeLabel(map[string]bool{}))
	assert.Equal(t, "gamma", nextFreeLabel(map[string]bool{"alpha": true, "beta": true}))

	full := map[string]bool{}
	for i := 0; i < 24; i++ {
		full[subdivisionLabel(i)] = true
	}
	assert.Equal(t, "alpha_1", nextFreeLabel(full))
}

func TestPurgeAITeamsRemovesDependents(t *testing.T) {
	f := newSchedulerFixture(t, 17)
	ctx := context.Background()
	human := f.createTeam(t, "Humans")
	bot := f.createTeam(t, "Bots")
	require.NoError(t, f.store.DB().Model(&models.Team{}).
		Where("id = ?", bot).Update("is_ai", true).Error)

	require.NoError(t, f.sched.purgeAITeams(ctx))

	var teams int64
	require.NoError(t, f.store.DB().Model(&models.Team{}).Count(&teams).Error)
	assert.Equal(t, int64(1), teams)

	var orphans int64
	require.NoError(t, f.store.DB().Model(&models.Player{}).
		Where("team_id = ?", bot).Count(&orphans).Error)
	assert.Zero(t, orphans)
	var finances int64
	require.NoError(t, f.store.DB().Model(&models.TeamFinances{}).
		Where("team_id = ?", bot).Count(&finances).Error)
	assert.Zero(t, finances)

	// The human franchise and its roster survive untouched.
	var roster int64
	require.NoError(t, f.store.DB().Model(&models.Player{}).
		Where("team_id = ?", human).Count(&roster).Error)
	assert.Equal(t, int64(models.MinRosterSize), roster)
}
