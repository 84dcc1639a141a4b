package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/commentary"
	"github.com/jimmy058910/replitballgame-sub006/internal/events"
	"github.com/jimmy058910/replitballgame-sub006/internal/live"
	"github.com/jimmy058910/replitballgame-sub006/internal/marketplace"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/progression"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/internal/tournament"
	"github.com/jimmy058910/replitballgame-sub006/pkg/config"
	"github.com/jimmy058910/replitballgame-sub006/pkg/database"
)

// manualTime feeds the scheduler a controllable instant.
type manualTime struct{ now time.Time }

func (m *manualTime) Now() time.Time { return m.now }

type schedulerFixture struct {
	sched  *Scheduler
	store  *store.Store
	clock  *clock.GameClock
	ts     *manualTime
	season *models.Season
}

// newSchedulerFixture boots a full pipeline on sqlite. The season starts
// on its day-1 boundary so game days line up with civil dates, and the
// injected time source begins at noon on currentDay.
func newSchedulerFixture(t *testing.T, currentDay int) *schedulerFixture {
	t.Helper()
	db, err := database.NewTestConnection()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	st := store.NewStore(db, logger)

	gameClock, err := clock.NewGameClock("America/New_York", 3, 16, 22)
	require.NoError(t, err)

	started := time.Date(2026, 2, 6, 3, 0, 0, 0, gameClock.Location())
	season := &models.Season{
		Number:     1,
		CurrentDay: currentDay,
		Phase:      models.PhaseForDay(currentDay),
		StartedAt:  started,
		IsCurrent:  true,
		BootNonce:  "test",
	}
	require.NoError(t, db.Create(season).Error)

	cfg := &config.Config{
		TickRate:             1.0,
		CheckpointInterval:   15,
		StallTimeout:         5 * time.Second,
		StallReleaseAfter:    60 * time.Second,
		LeaderLockKey:        730001,
		MaxAuctionExtensions: 5,
		ListingFeePercent:    3,
		MarketTaxPercent:     5,
		DailyTournamentSize:  8,
		MidSeasonSize:        16,
	}
	bus := events.NewBus(logger)
	liveMgr := live.NewManager(st, bus, commentary.NewSelector(), cfg, logger)
	ts := &manualTime{now: started.AddDate(0, 0, currentDay-1).Add(9 * time.Hour)}

	sched := NewScheduler(st, gameClock, ts, liveMgr,
		tournament.NewService(st, gameClock, cfg, logger),
		marketplace.NewService(st, gameClock, cfg, logger),
		progression.NewService(st, logger),
		cfg, logger)
	return &schedulerFixture{sched: sched, store: st, clock: gameClock, ts: ts, season: season}
}

func (f *schedulerFixture) createTeam(t *testing.T, name string) uint {
	t.Helper()
	team := &models.Team{Name: name, Division: 8, Subdivision: "alpha"}
	require.NoError(t, f.store.DB().Create(team).Error)
	require.NoError(t, f.store.DB().Create(&models.TeamFinances{TeamID: team.ID, Credits: 50_000}).Error)
	for i := 0; i < models.MinRosterSize; i++ {
		p := &models.Player{
			TeamID:    team.ID,
			FirstName: name,
			LastName:  fmt.Sprintf("Player%d", i),
			Role:      models.RoleRunner,
			Race:      models.RaceHuman,
			Age:       24,
			Speed:     20, Power: 20, Agility: 20, Throwing: 20,
			Catching: 20, Kicking: 20, Stamina: 20, Leadership: 20,
			Potential:    3.0,
			DailyStamina: 100,
		}
		require.NoError(t, f.store.DB().Create(p).Error)
	}
	return team.ID
}

// createLeagueGame schedules a league match inside the given day's window.
func (f *schedulerFixture) createLeagueGame(t *testing.T, home, away uint, day int) uint {
	t.Helper()
	date := f.clock.SeasonStartBoundary(f.season.StartedAt).AddDate(0, 0, day-1)
	game := &models.Game{
		HomeTeamID:   home,
		AwayTeamID:   away,
		MatchType:    models.MatchLeague,
		Status:       models.GameScheduled,
		SeasonNumber: f.season.Number,
		DayInSeason:  day,
		ScheduledAt:  f.clock.WindowStart(date),
	}
	require.NoError(t, f.store.DB().Create(game).Error)
	return game.ID
}

func (f *schedulerFixture) marker(t *testing.T, day int, step string) *models.DayMarker {
	t.Helper()
	var m models.DayMarker
	err := f.store.DB().
		Where("season_number = ? AND day_in_season = ? AND step = ?", f.season.Number, day, step).
		First(&m).Error
	require.NoError(t, err, "marker %s day %d", step, day)
	return &m
}

func TestRunDayStepsSettlesYesterdayBeforeDevelopment(t *testing.T) {
	f := newSchedulerFixture(t, 5)
	ctx := context.Background()
	home := f.createTeam(t, "Homers")
	away := f.createTeam(t, "Visitors")
	gameID := f.createLeagueGame(t, home, away, 4)

	require.NoError(t, f.sched.runDaySteps(ctx, f.season, 5, f.ts.Now()))

	// The day-4 match was simulated instantly, with full stat lines.
	var game models.Game
	require.NoError(t, f.store.DB().First(&game, gameID).Error)
	assert.Equal(t, models.GameCompleted, game.Status)
	require.NotNil(t, game.CompletedAt)
	var statRows int64
	require.NoError(t, f.store.DB().Model(&models.PlayerGameStats{}).
		Where("game_id = ?", gameID).Count(&statRows).Error)
	assert.NotZero(t, statRows)

	// Development ran after the settlement, so it saw those minutes.
	missed := f.marker(t, 5, "missed_matches")
	development := f.marker(t, 5, "development")
	assert.Less(t, missed.ID, development.ID)

	// A second pass is marker-guarded into a no-op.
	require.NoError(t, f.sched.runDaySteps(ctx, f.season, 5, f.ts.Now()))
	var after int64
	require.NoError(t, f.store.DB().Model(&models.PlayerGameStats{}).
		Where("game_id = ?", gameID).Count(&after).Error)
	assert.Equal(t, statRows, after)
}

func TestTickCatchesUpMissedDays(t *testing.T) {
	f := newSchedulerFixture(t, 4)
	ctx := context.Background()
	home := f.createTeam(t, "Homers")
	away := f.createTeam(t, "Visitors")
	gameID := f.createLeagueGame(t, home, away, 4)

	// Two days of downtime: wall time says day 6, the row says day 4.
	f.ts.now = f.ts.now.AddDate(0, 0, 2)
	require.NoError(t, f.sched.Tick(ctx))

	season, err := f.store.CurrentSeason(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, season.CurrentDay)

	// The match stranded on day 4 was settled during catch-up.
	var game models.Game
	require.NoError(t, f.store.DB().First(&game, gameID).Error)
	assert.Equal(t, models.GameCompleted, game.Status)

	// Each replayed day left its development marker.
	f.marker(t, 5, "development")
	f.marker(t, 6, "development")

	// A second tick finds everything done.
	var markers int64
	require.NoError(t, f.store.DB().Model(&models.DayMarker{}).Count(&markers).Error)
	require.NoError(t, f.sched.Tick(ctx))
	var again int64
	require.NoError(t, f.store.DB().Model(&models.DayMarker{}).Count(&again).Error)
	assert.Equal(t, markers, again)
}

func TestLateSignupSlateStartsToday(t *testing.T) {
	f := newSchedulerFixture(t, 4)
	ctx := context.Background()
	newcomer := f.createTeam(t, "Latecomers")
	require.NoError(t, f.store.DB().Model(&models.Team{}).
		Where("id = ?", newcomer).Update("subdivision", "").Error)

	require.NoError(t, f.sched.lateSignupFill(ctx, f.season, 4))

	// The newcomer landed in a fresh alphabet subdivision, topped up to
	// capacity with AI teams.
	var team models.Team
	require.NoError(t, f.store.DB().First(&team, newcomer).Error)
	assert.Equal(t, "alpha", team.Subdivision)
	var filled int64
	require.NoError(t, f.store.DB().Model(&models.Team{}).
		Where("division = ? AND subdivision = ?", models.MaxDivision, "alpha").
		Count(&filled).Error)
	assert.Equal(t, int64(models.SubdivisionCapacity(models.MaxDivision)), filled)

	// The shortened slate runs from today through day 14: eleven matches.
	var games []models.Game
	require.NoError(t, f.store.DB().
		Where("match_type = ? AND (home_team_id = ? OR away_team_id = ?)",
			models.MatchLeague, newcomer, newcomer).
		Order("day_in_season asc").
		Find(&games).Error)
	require.Len(t, games, 11)
	assert.Equal(t, 4, games[0].DayInSeason)
	assert.Equal(t, clock.RegularDays, games[len(games)-1].DayInSeason)
}

func TestLeagueScheduleCapsSixteenTeamsAtFourteenMatches(t *testing.T) {
	f := newSchedulerFixture(t, 1)
	ctx := context.Background()
	ids := make([]uint, 16)
	for i := range ids {
		teamID := f.createTeam(t, fmt.Sprintf("Upper%d", i))
		require.NoError(t, f.store.DB().Model(&models.Team{}).
			Where("id = ?", teamID).Update("division", 2).Error)
		ids[i] = teamID
	}

	require.NoError(t, f.sched.generateLeagueSchedule(ctx, f.season, 2, "alpha", 1))

	matches := map[uint]int64{}
	for _, id := range ids {
		var n int64
		require.NoError(t, f.store.DB().Model(&models.Game{}).
			Where("match_type = ? AND (home_team_id = ? OR away_team_id = ?)",
				models.MatchLeague, id, id).
			Count(&n).Error)
		matches[id] = n
	}
	for id, n := range matches {
		assert.Equal(t, int64(14), n, "team %d", id)
	}
}
