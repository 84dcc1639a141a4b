package tournament

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/pkg/config"
	"github.com/jimmy058910/replitballgame-sub006/pkg/database"
)

func TestBracketOrder(t *testing.T) {
	assert.Equal(t, []int64{1, 2}, bracketOrder([]int64{1, 2}))
	assert.Equal(t, []int64{1, 4, 2, 3}, bracketOrder([]int64{1, 2, 3, 4}))
	// Top seed meets bottom seed; one and two can only meet in the final.
	assert.Equal(t, []int64{1, 8, 4, 5, 2, 7, 3, 6},
		bracketOrder([]int64{1, 2, 3, 4, 5, 6, 7, 8}))
	assert.Equal(t, []int64{1, 16, 8, 9, 4, 13, 5, 12, 2, 15, 7, 10, 3, 14, 6, 11},
		bracketOrder([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}))
}

func TestLargestPowerOfTwo(t *testing.T) {
	assert.Equal(t, 1, largestPowerOfTwo(1))
	assert.Equal(t, 2, largestPowerOfTwo(3))
	assert.Equal(t, 8, largestPowerOfTwo(8))
	assert.Equal(t, 8, largestPowerOfTwo(15))
	assert.Equal(t, 16, largestPowerOfTwo(16))
}

type tournamentFixture struct {
	svc   *Service
	store *store.Store
	now   time.Time
}

func newTournamentFixture(t *testing.T) *tournamentFixture {
	t.Helper()
	db, err := database.NewTestConnection()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	st := store.NewStore(db, logger)

	gameClock, err := clock.NewGameClock("America/New_York", 3, 16, 22)
	require.NoError(t, err)

	now := time.Date(2026, 2, 10, 12, 0, 0, 0, gameClock.Location())
	season := &models.Season{
		Number:     1,
		CurrentDay: 5,
		Phase:      models.PhaseRegular,
		StartedAt:  now.AddDate(0, 0, -4),
		IsCurrent:  true,
		BootNonce:  "test",
	}
	require.NoError(t, db.Create(season).Error)

	cfg := &config.Config{DailyTournamentSize: 8, MidSeasonSize: 16}
	return &tournamentFixture{
		svc:   NewService(st, gameClock, cfg, logger),
		store: st,
		now:   now,
	}
}

func (f *tournamentFixture) createTeam(t *testing.T, name string, division int, ai bool, credits int64, gems int32) uint {
	t.Helper()
	team := &models.Team{Name: name, Division: division, Subdivision: "alpha", IsAI: ai}
	require.NoError(t, f.store.DB().Create(team).Error)
	require.NoError(t, f.store.DB().Create(&models.TeamFinances{TeamID: team.ID, Credits: credits, Gems: gems}).Error)
	for i := 0; i < 6; i++ {
		p := &models.Player{
			TeamID:    team.ID,
			FirstName: name,
			LastName:  fmt.Sprintf("Player%d", i),
			Role:      models.RoleRunner,
			Race:      models.RaceHuman,
			Age:       24,
			Speed:     20, Power: 20, Agility: 20, Throwing: 20,
			Catching: 20, Kicking: 20, Stamina: 20, Leadership: 20,
			Potential: 3.0,
		}
		require.NoError(t, f.store.DB().Create(p).Error)
	}
	return team.ID
}

func (f *tournamentFixture) credits(t *testing.T, teamID uint) int64 {
	t.Helper()
	fin, err := f.store.Finances(context.Background(), teamID)
	require.NoError(t, err)
	return fin.Credits
}

func TestDailyCupRegistrationAndLimit(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()
	teamID := f.createTeam(t, "Humans", 8, false, 10_000, 0)
	outsider := f.createTeam(t, "Outsiders", 7, false, 10_000, 0)

	cup, err := f.svc.EnsureDailyCup(ctx, 8, f.now)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentRegistering, cup.Status)
	assert.Equal(t, 8, cup.Size)

	// Wrong division cannot enter a divisional cup.
	assert.ErrorIs(t, f.svc.Register(ctx, cup.ID, outsider, false, f.now), apperr.ErrInvalidRoster)

	require.NoError(t, f.svc.Register(ctx, cup.ID, teamID, false, f.now))
	// One tournament entry per team per day.
	assert.ErrorIs(t, f.svc.Register(ctx, cup.ID, teamID, false, f.now), apperr.ErrDailyLimitReached)

	// The cup is free.
	assert.Equal(t, int64(10_000), f.credits(t, teamID))
}

func TestDailyCupRegistrationWindow(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()
	teamID := f.createTeam(t, "Humans", 8, false, 10_000, 0)

	cup, err := f.svc.EnsureDailyCup(ctx, 8, f.now)
	require.NoError(t, err)

	// Registration runs 07:00 through 01:00 the following day.
	opens := time.Date(2026, 2, 10, 7, 0, 0, 0, f.now.Location())
	closes := time.Date(2026, 2, 11, 1, 0, 0, 0, f.now.Location())
	assert.WithinDuration(t, opens, cup.RegistrationOpens, time.Second)
	assert.WithinDuration(t, closes, cup.RegistrationCloses, time.Second)

	early := time.Date(2026, 2, 10, 6, 30, 0, 0, f.now.Location())
	assert.ErrorIs(t, f.svc.Register(ctx, cup.ID, teamID, false, early), apperr.ErrRegistrationClosed)

	late := closes.Add(time.Minute)
	assert.ErrorIs(t, f.svc.Register(ctx, cup.ID, teamID, false, late), apperr.ErrRegistrationClosed)

	require.NoError(t, f.svc.Register(ctx, cup.ID, teamID, false, f.now))
}

func TestNextRoundStartPacing(t *testing.T) {
	base := time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC)
	done := base.Add(-time.Minute)
	finished := []models.Game{
		{CompletedAt: &done},
		{CompletedAt: &base},
	}

	cup := &models.Tournament{Type: models.TournamentDailyDivisional}
	assert.Equal(t, base.Add(roundBuffer), nextRoundStart(cup, finished, base))

	playoff := &models.Tournament{Type: models.TournamentPlayoff}
	assert.Equal(t, base.Add(playoffRoundBuffer), nextRoundStart(playoff, finished, base))

	// A completion far in the past starts the next round immediately.
	later := base.Add(time.Hour)
	assert.Equal(t, later, nextRoundStart(cup, finished, later))

	// Without completion stamps the pacing hangs off the scan instant.
	assert.Equal(t, base.Add(roundBuffer), nextRoundStart(cup, []models.Game{{}}, base))
}

func TestEnsureDailyCupReusesOpenBracket(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	a, err := f.svc.EnsureDailyCup(ctx, 8, f.now)
	require.NoError(t, err)
	b, err := f.svc.EnsureDailyCup(ctx, 8, f.now)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	// A different division gets its own bracket.
	c, err := f.svc.EnsureDailyCup(ctx, 7, f.now)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestMidSeasonFeeAndRefund(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()
	byCredits := f.createTeam(t, "Credits", 3, false, 15_000, 0)
	byGems := f.createTeam(t, "Gems", 4, false, 0, 25)

	classic, err := f.svc.EnsureMidSeason(ctx, f.now)
	require.NoError(t, err)
	again, err := f.svc.EnsureMidSeason(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, classic.ID, again.ID)

	require.NoError(t, f.svc.Register(ctx, classic.ID, byCredits, false, f.now))
	assert.Equal(t, int64(5_000), f.credits(t, byCredits))

	require.NoError(t, f.svc.Register(ctx, classic.ID, byGems, true, f.now))
	fin, err := f.store.Finances(ctx, byGems)
	require.NoError(t, err)
	assert.Equal(t, int32(5), fin.Gems)

	// Withdrawal refunds exactly what was paid.
	require.NoError(t, f.svc.CancelEntry(ctx, classic.ID, byCredits, f.now))
	assert.Equal(t, int64(15_000), f.credits(t, byCredits))
	require.NoError(t, f.svc.CancelEntry(ctx, classic.ID, byGems, f.now))
	fin, err = f.store.Finances(ctx, byGems)
	require.NoError(t, err)
	assert.Equal(t, int32(25), fin.Gems)
}

func TestMidSeasonInsufficientFee(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()
	broke := f.createTeam(t, "Broke", 3, false, 500, 2)

	classic, err := f.svc.EnsureMidSeason(ctx, f.now)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Register(ctx, classic.ID, broke, false, f.now), apperr.ErrInsufficientCredits)
	assert.ErrorIs(t, f.svc.Register(ctx, classic.ID, broke, true, f.now), apperr.ErrInsufficientGems)
}

// completeScheduledRound marks every scheduled game in the bracket as a
// home win and reports how many games it closed.
func (f *tournamentFixture) completeScheduledRound(t *testing.T, tournamentID uint) int {
	t.Helper()
	var games []models.Game
	require.NoError(t, f.store.DB().
		Where("tournament_id = ? AND status = ?", tournamentID, models.GameScheduled).
		Find(&games).Error)
	for i := range games {
		require.NoError(t, f.store.DB().Model(&games[i]).Updates(map[string]interface{}{
			"status":     models.GameCompleted,
			"home_score": 3,
			"away_score": 1,
			"winner_id":  games[i].HomeTeamID,
		}).Error)
	}
	return len(games)
}

func TestBracketRunsToCompletion(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	human := f.createTeam(t, "Humans", 8, false, 10_000, 0)
	for i := 0; i < 7; i++ {
		f.createTeam(t, fmt.Sprintf("Bot%d", i), 8, true, 10_000, 0)
	}

	cup, err := f.svc.EnsureDailyCup(ctx, 8, f.now)
	require.NoError(t, err)
	require.NoError(t, f.svc.Register(ctx, cup.ID, human, false, f.now))

	require.NoError(t, f.svc.FillAndSeed(ctx, cup.ID, f.now))
	seeded, err := f.svc.GetTournament(ctx, cup.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentInProgress, seeded.Status)
	assert.Equal(t, 1, seeded.Round)
	require.Len(t, seeded.SeedOrder, 8)

	entries, err := f.svc.Entries(ctx, cup.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 8)

	// Quarterfinals, semifinals, final.
	assert.Equal(t, 4, f.completeScheduledRound(t, cup.ID))
	require.NoError(t, f.svc.AdvanceBrackets(ctx, f.now))
	assert.Equal(t, 2, f.completeScheduledRound(t, cup.ID))
	require.NoError(t, f.svc.AdvanceBrackets(ctx, f.now))
	assert.Equal(t, 1, f.completeScheduledRound(t, cup.ID))

	var final models.Game
	require.NoError(t, f.store.DB().
		Where("tournament_id = ?", cup.ID).
		Order("id desc").First(&final).Error)
	championBefore := f.credits(t, *final.WinnerID)

	require.NoError(t, f.svc.AdvanceBrackets(ctx, f.now))
	done, err := f.svc.GetTournament(ctx, cup.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	// Champion and runner-up purses landed once.
	assert.Equal(t, championBefore+5_000, f.credits(t, *final.WinnerID))
	assert.Equal(t, int64(10_000+2_000), f.credits(t, final.AwayTeamID))

	// A second advance pass is a no-op.
	require.NoError(t, f.svc.AdvanceBrackets(ctx, f.now))
	assert.Equal(t, championBefore+5_000, f.credits(t, *final.WinnerID))
}

func TestAdvanceWaitsForRoundCompletion(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	human := f.createTeam(t, "Humans", 8, false, 10_000, 0)
	for i := 0; i < 7; i++ {
		f.createTeam(t, fmt.Sprintf("Bot%d", i), 8, true, 10_000, 0)
	}
	cup, err := f.svc.EnsureDailyCup(ctx, 8, f.now)
	require.NoError(t, err)
	require.NoError(t, f.svc.Register(ctx, cup.ID, human, false, f.now))
	require.NoError(t, f.svc.FillAndSeed(ctx, cup.ID, f.now))

	// One quarterfinal still scheduled: no advance.
	var games []models.Game
	require.NoError(t, f.store.DB().
		Where("tournament_id = ?", cup.ID).Order("id asc").Find(&games).Error)
	require.Len(t, games, 4)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.store.DB().Model(&games[i]).Updates(map[string]interface{}{
			"status":    models.GameCompleted,
			"winner_id": games[i].HomeTeamID,
		}).Error)
	}
	require.NoError(t, f.svc.AdvanceBrackets(ctx, f.now))
	current, err := f.svc.GetTournament(ctx, cup.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.Round)
}

func TestFillAndSeedTrimsToPowerOfTwo(t *testing.T) {
	f := newTournamentFixture(t)
	ctx := context.Background()

	// Only five teams exist in the division: the field is cut to four.
	human := f.createTeam(t, "Humans", 8, false, 10_000, 0)
	for i := 0; i < 4; i++ {
		f.createTeam(t, fmt.Sprintf("Bot%d", i), 8, true, 10_000, 0)
	}
	cup, err := f.svc.EnsureDailyCup(ctx, 8, f.now)
	require.NoError(t, err)
	require.NoError(t, f.svc.Register(ctx, cup.ID, human, false, f.now))
	require.NoError(t, f.svc.FillAndSeed(ctx, cup.ID, f.now))

	seeded, err := f.svc.GetTournament(ctx, cup.ID)
	require.NoError(t, err)
	assert.Len(t, seeded.SeedOrder, 4)

	var count int64
	require.NoError(t, f.store.DB().Model(&models.Game{}).
		Where("tournament_id = ?", cup.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
