// Package tournament runs the three single-elimination competitions: the
// daily divisional cup, the Mid-Season Classic and the end-of-season
// playoffs. Brackets are seeded by true strength, rounds are scheduled
// with fixed buffers, and prizes land in the same transaction that marks
// the final complete.
package tournament

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/pkg/config"
)

const (
	// The bracket fills with AI teams one hour after the first human
	// registration, or sooner when the field is full.
	aiFillAfter = 60 * time.Minute

	// Round pacing after the previous round's last completion: cup rounds
	// take a short reset, playoff rounds rest half an hour.
	roundBuffer        = 2 * time.Minute
	playoffRoundBuffer = 30 * time.Minute

	// A seeded bracket gives its field ten minutes before the first whistle.
	bracketStartDelay = 10 * time.Minute

	// DailyCupFirstDivision bounds the daily cup; division one sits out.
	DailyCupFirstDivision = 2
	dailyCupOpenHour      = 7
	dailyCupCloseHour     = 1 // on the following day

	midSeasonDay          = 7
	midSeasonCloseHour    = 13
	midSeasonStartDelay   = 30 * time.Minute
	midSeasonEntryCredits = 10_000
	midSeasonEntryGems    = 20

	dailyEntryLimit = 1
)

type prizeAmount struct {
	credits int64
	gems    int32
}

// prizeTable returns champion and runner-up purses by competition.
func prizeTable(t models.TournamentType) (champion, runnerUp prizeAmount) {
	switch t {
	case models.TournamentMidSeason:
		return prizeAmount{50_000, 25}, prizeAmount{20_000, 10}
	case models.TournamentPlayoff:
		return prizeAmount{30_000, 0}, prizeAmount{10_000, 0}
	default:
		return prizeAmount{5_000, 0}, prizeAmount{2_000, 0}
	}
}

type Service struct {
	store  *store.Store
	clock  *clock.GameClock
	cfg    *config.Config
	logger *logrus.Logger
}

func NewService(st *store.Store, gameClock *clock.GameClock, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{store: st, clock: gameClock, cfg: cfg, logger: logger}
}

// GetTournament loads one tournament with its entries excluded.
func (s *Service) GetTournament(ctx context.Context, id uint) (*models.Tournament, error) {
	var t models.Tournament
	err := s.store.DB().WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	return &t, nil
}

// Entries lists a tournament's active registrations in seed order.
func (s *Service) Entries(ctx context.Context, tournamentID uint) ([]models.TournamentEntry, error) {
	var entries []models.TournamentEntry
	err := s.store.DB().WithContext(ctx).
		Where("tournament_id = ? AND cancelled = ?", tournamentID, false).
		Order("seed asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// EnsureDailyCup returns the open daily cup for a division, creating one
// when none is accepting registrations. A full cup overflows into a fresh
// bracket so no team is turned away.
func (s *Service) EnsureDailyCup(ctx context.Context, division int, now time.Time) (*models.Tournament, error) {
	season, err := s.store.CurrentSeason(ctx)
	if err != nil {
		return nil, err
	}
	day := season.CurrentDay

	var open []models.Tournament
	err = s.store.DB().WithContext(ctx).
		Where("type = ? AND division = ? AND season_number = ? AND day_in_season = ? AND status = ?",
			models.TournamentDailyDivisional, division, season.Number, day, models.TournamentRegistering).
		Order("id asc").
		Find(&open).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan open cups: %w", err)
	}
	for i := range open {
		entries, err := s.Entries(ctx, open[i].ID)
		if err != nil {
			return nil, err
		}
		if len(entries) < open[i].Size {
			return &open[i], nil
		}
	}

	t := &models.Tournament{
		Type:               models.TournamentDailyDivisional,
		Division:           division,
		Status:             models.TournamentRegistering,
		Size:               s.cfg.DailyTournamentSize,
		SeasonNumber:       season.Number,
		DayInSeason:        day,
		RegistrationOpens:  s.clock.LocalHourMinute(now, dailyCupOpenHour, 0),
		RegistrationCloses: s.clock.LocalHourMinute(now.AddDate(0, 0, 1), dailyCupCloseHour, 0),
	}
	if err := s.store.DB().WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("failed to create daily cup: %w", err)
	}
	s.logger.Infof("Daily cup %d open: division %d, day %d", t.ID, division, day)
	return t, nil
}

// EnsureMidSeason creates the season's Mid-Season Classic if absent.
// Registration closes at 13:00 on day seven.
func (s *Service) EnsureMidSeason(ctx context.Context, now time.Time) (*models.Tournament, error) {
	season, err := s.store.CurrentSeason(ctx)
	if err != nil {
		return nil, err
	}
	var existing models.Tournament
	err = s.store.DB().WithContext(ctx).
		Where("type = ? AND season_number = ?", models.TournamentMidSeason, season.Number).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check mid-season classic: %w", err)
	}

	closeDate := s.clock.SeasonStartBoundary(season.StartedAt).AddDate(0, 0, midSeasonDay-1)
	closes := s.clock.LocalHourMinute(closeDate, midSeasonCloseHour, 0)
	t := &models.Tournament{
		Type:               models.TournamentMidSeason,
		Division:           0, // open across divisions
		Status:             models.TournamentRegistering,
		Size:               s.cfg.MidSeasonSize,
		SeasonNumber:       season.Number,
		DayInSeason:        midSeasonDay,
		RegistrationOpens:  now,
		RegistrationCloses: closes,
	}
	if err := s.store.DB().WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("failed to create mid-season classic: %w", err)
	}
	s.logger.Infof("Mid-Season Classic %d open for season %d, closes %s", t.ID, season.Number, closes)
	return t, nil
}

// Register enters a team. The Mid-Season Classic charges its entry fee in
// credits, or gems when payWithGems is set; the daily cup is free but
// counts against the team's one tournament entry per day.
func (s *Service) Register(ctx context.Context, tournamentID, teamID uint, payWithGems bool, now time.Time) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.First(&t, tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrTournamentNotFound
			}
			return err
		}
		if t.Status != models.TournamentRegistering ||
			now.Before(t.RegistrationOpens) || now.After(t.RegistrationCloses) {
			return apperr.ErrRegistrationClosed
		}

		var team models.Team
		if err := tx.First(&team, teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrTeamNotFound
			}
			return err
		}
		if t.Type == models.TournamentDailyDivisional {
			if t.Division != team.Division {
				return apperr.ErrInvalidRoster
			}
			if team.TournamentEntryToday >= dailyEntryLimit {
				return apperr.ErrDailyLimitReached
			}
		}

		var count int64
		if err := tx.Model(&models.TournamentEntry{}).
			Where("tournament_id = ? AND cancelled = ?", t.ID, false).
			Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= t.Size {
			return apperr.ErrRegistrationClosed
		}

		entry := models.TournamentEntry{TournamentID: t.ID, TeamID: teamID}
		reference := fmt.Sprintf("tournament:%d", t.ID)
		if t.Type == models.TournamentMidSeason {
			if payWithGems {
				if err := store.DebitGems(tx, teamID, midSeasonEntryGems, models.LedgerEntryFee, reference); err != nil {
					return err
				}
				entry.FeeGems = midSeasonEntryGems
			} else {
				if err := store.DebitTeam(tx, teamID, midSeasonEntryCredits, models.LedgerEntryFee, reference); err != nil {
					return err
				}
				entry.FeeCredits = midSeasonEntryCredits
			}
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to register team %d: %w", teamID, err)
		}

		updates := map[string]interface{}{}
		if t.Type == models.TournamentDailyDivisional {
			updates["tournament_entry_today"] = gorm.Expr("tournament_entry_today + 1")
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Team{}).Where("id = ?", teamID).Updates(updates).Error; err != nil {
				return err
			}
		}
		if t.FirstRegistration == nil {
			if err := tx.Model(&models.Tournament{}).Where("id = ? AND first_registration IS NULL", t.ID).
				Update("first_registration", now).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CancelEntry withdraws a team before registration closes, refunding any
// entry fee exactly as paid.
func (s *Service) CancelEntry(ctx context.Context, tournamentID, teamID uint, now time.Time) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.First(&t, tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrTournamentNotFound
			}
			return err
		}
		if t.Status != models.TournamentRegistering || now.After(t.RegistrationCloses) {
			return apperr.ErrRegistrationClosed
		}

		var entry models.TournamentEntry
		err := tx.Where("tournament_id = ? AND team_id = ? AND cancelled = ?", tournamentID, teamID, false).
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrTournamentNotFound
		}
		if err != nil {
			return err
		}

		reference := fmt.Sprintf("tournament:%d", t.ID)
		if entry.FeeCredits > 0 {
			if err := store.CreditTeam(tx, teamID, entry.FeeCredits, models.LedgerEntryRefund, reference); err != nil {
				return err
			}
		}
		if entry.FeeGems > 0 {
			if err := store.CreditGems(tx, teamID, int32(entry.FeeGems), models.LedgerEntryRefund, reference); err != nil {
				return err
			}
		}
		return tx.Model(&entry).Update("cancelled", true).Error
	})
}

// ScanRegistering seeds every tournament whose registration has run its
// course: a full field, an elapsed AI-fill timer, or a passed close
// instant. Called from the scheduler tick.
func (s *Service) ScanRegistering(ctx context.Context, now time.Time) error {
	var open []models.Tournament
	err := s.store.DB().WithContext(ctx).
		Where("status = ?", models.TournamentRegistering).
		Find(&open).Error
	if err != nil {
		return fmt.Errorf("failed to scan registering tournaments: %w", err)
	}
	for i := range open {
		t := &open[i]
		ready, err := s.readyToSeed(ctx, t, now)
		if err != nil {
			s.logger.WithError(err).Errorf("Readiness check failed for tournament %d", t.ID)
			continue
		}
		if !ready {
			continue
		}
		if err := s.FillAndSeed(ctx, t.ID, now); err != nil {
			s.logger.WithError(err).Errorf("Seeding failed for tournament %d", t.ID)
		}
	}
	return nil
}

func (s *Service) readyToSeed(ctx context.Context, t *models.Tournament, now time.Time) (bool, error) {
	entries, err := s.Entries(ctx, t.ID)
	if err != nil {
		return false, err
	}
	switch t.Type {
	case models.TournamentMidSeason:
		return now.After(t.RegistrationCloses) && len(entries) > 0, nil
	default:
		if len(entries) == 0 {
			// Nobody showed; quietly expire after close.
			if now.After(t.RegistrationCloses) {
				return false, s.store.DB().WithContext(ctx).Model(t).
					Update("status", models.TournamentCompleted).Error
			}
			return false, nil
		}
		if len(entries) >= t.Size {
			return true, nil
		}
		if t.FirstRegistration != nil && now.Sub(*t.FirstRegistration) >= aiFillAfter {
			return true, nil
		}
		return now.After(t.RegistrationCloses), nil
	}
}

// FillAndSeed closes registration, tops the field up with AI teams, ranks
// the field by true strength, and creates the first round.
func (s *Service) FillAndSeed(ctx context.Context, tournamentID uint, now time.Time) error {
	t, err := s.GetTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if t.Status != models.TournamentRegistering {
		return nil
	}
	entries, err := s.Entries(ctx, t.ID)
	if err != nil {
		return err
	}

	teamIDs := make([]uint, 0, t.Size)
	for _, e := range entries {
		teamIDs = append(teamIDs, e.TeamID)
	}
	fillers, err := s.aiFillers(ctx, t, teamIDs, t.Size-len(teamIDs))
	if err != nil {
		return err
	}
	teamIDs = append(teamIDs, fillers...)
	if len(teamIDs) < 2 {
		return s.store.DB().WithContext(ctx).Model(t).
			Update("status", models.TournamentCompleted).Error
	}

	var teams []models.Team
	if err := s.store.DB().WithContext(ctx).Where("id IN ?", teamIDs).Find(&teams).Error; err != nil {
		return err
	}
	ratings, err := s.RankTeams(ctx, teams)
	if err != nil {
		return err
	}

	// Fillers guarantee a full field; if the AI pool runs dry the lowest
	// seeds are cut so the bracket stays a power of two.
	ranked := make([]int64, len(ratings))
	for i, r := range ratings {
		ranked[i] = int64(r.TeamID)
	}
	ranked = ranked[:largestPowerOfTwo(len(ranked))]
	seedOrder := bracketOrder(ranked)

	season, err := s.store.CurrentSeason(ctx)
	if err != nil {
		return err
	}
	startsAt := now.Add(bracketStartDelay)
	if t.Type == models.TournamentMidSeason {
		// The Classic's first round follows its 13:00 close by a fixed
		// half hour rather than riding the seeding scan's timing.
		startsAt = t.RegistrationCloses.Add(midSeasonStartDelay)
		if startsAt.Before(now) {
			startsAt = now.Add(bracketStartDelay)
		}
	}

	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Tournament{}).
			Where("id = ? AND status = ?", t.ID, models.TournamentRegistering).
			Updates(map[string]interface{}{
				"status":     models.TournamentInProgress,
				"round":      1,
				"seed_order": seedOrderValue(seedOrder),
				"starts_at":  startsAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // seeded concurrently
		}

		for i, id := range ranked {
			teamID := uint(id)
			if isFiller(fillers, teamID) {
				entry := models.TournamentEntry{TournamentID: t.ID, TeamID: teamID, Seed: i + 1}
				if err := tx.Create(&entry).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&models.TournamentEntry{}).
				Where("tournament_id = ? AND team_id = ?", t.ID, teamID).
				Update("seed", i+1).Error; err != nil {
				return err
			}
		}

		games := pairRound(t, season.Number, seedOrder, startsAt)
		if len(games) > 0 {
			if err := tx.Create(&games).Error; err != nil {
				return fmt.Errorf("failed to create round 1: %w", err)
			}
		}
		s.logger.Infof("Tournament %d seeded with %d teams, round 1 at %s", t.ID, len(seedOrder), startsAt)
		return nil
	})
}

// aiFillers picks AI teams from the division (any division for the
// Mid-Season Classic) that are not already entered.
func (s *Service) aiFillers(ctx context.Context, t *models.Tournament, exclude []uint, n int) ([]uint, error) {
	if n <= 0 {
		return nil, nil
	}
	q := s.store.DB().WithContext(ctx).Model(&models.Team{}).Where("is_ai = ?", true)
	if t.Type == models.TournamentDailyDivisional {
		q = q.Where("division = ?", t.Division)
	}
	if len(exclude) > 0 {
		q = q.Where("id NOT IN ?", exclude)
	}
	var ids []uint
	if err := q.Order("id asc").Limit(n).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to pick AI fillers: %w", err)
	}
	return ids, nil
}

func isFiller(fillers []uint, id uint) bool {
	for _, f := range fillers {
		if f == id {
			return true
		}
	}
	return false
}

// AdvanceBrackets moves every in-progress tournament whose current round
// has fully completed, creating the next round or finishing the bracket.
func (s *Service) AdvanceBrackets(ctx context.Context, now time.Time) error {
	var active []models.Tournament
	err := s.store.DB().WithContext(ctx).
		Where("status = ?", models.TournamentInProgress).
		Find(&active).Error
	if err != nil {
		return fmt.Errorf("failed to list active tournaments: %w", err)
	}
	for i := range active {
		if err := s.advanceOne(ctx, &active[i], now); err != nil {
			s.logger.WithError(err).Errorf("Bracket advance failed for tournament %d", active[i].ID)
		}
	}
	return nil
}

func (s *Service) advanceOne(ctx context.Context, t *models.Tournament, now time.Time) error {
	var games []models.Game
	err := s.store.DB().WithContext(ctx).
		Where("tournament_id = ? AND day_in_season = ?", t.ID, t.DayInSeason).
		Order("scheduled_at asc, id asc").
		Find(&games).Error
	if err != nil {
		return err
	}

	roundGames := currentRound(games, t, len(t.SeedOrder))
	if len(roundGames) == 0 {
		return nil
	}
	winners := make([]int64, 0, len(roundGames))
	for _, g := range roundGames {
		if g.Status != models.GameCompleted {
			return nil // round still playing
		}
		winners = append(winners, int64(bracketWinner(&g)))
	}

	rounds := t.RoundCount()
	if t.Round >= rounds || len(winners) == 1 {
		return s.completeTournament(ctx, t, roundGames)
	}

	season := t.SeasonNumber
	next := t.Round + 1
	start := nextRoundStart(t, roundGames, now)
	nextGames := pairRound(t, season, winners, start)

	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Tournament{}).
			Where("id = ? AND round = ?", t.ID, t.Round).
			Update("round", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // advanced concurrently
		}
		if len(nextGames) > 0 {
			if err := tx.Create(&nextGames).Error; err != nil {
				return fmt.Errorf("failed to create round %d: %w", next, err)
			}
		}
		s.logger.Infof("Tournament %d advanced to round %d (%d games)", t.ID, next, len(nextGames))
		return nil
	})
}

// completeTournament pays the purse and closes the bracket in one
// transaction keyed on the status transition.
func (s *Service) completeTournament(ctx context.Context, t *models.Tournament, finalRound []models.Game) error {
	final := finalRound[len(finalRound)-1]
	champion := bracketWinner(&final)
	runnerUp := final.HomeTeamID
	if champion == final.HomeTeamID {
		runnerUp = final.AwayTeamID
	}
	champPrize, upPrize := prizeTable(t.Type)
	reference := fmt.Sprintf("tournament:%d", t.ID)

	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Tournament{}).
			Where("id = ? AND status = ?", t.ID, models.TournamentInProgress).
			Updates(map[string]interface{}{
				"status":       models.TournamentCompleted,
				"completed_at": tx.NowFunc(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // completed concurrently, prizes already paid
		}

		if champPrize.credits > 0 {
			if err := store.CreditTeam(tx, champion, champPrize.credits, models.LedgerPrize, reference); err != nil {
				return err
			}
		}
		if champPrize.gems > 0 {
			if err := store.CreditGems(tx, champion, champPrize.gems, models.LedgerPrize, reference); err != nil {
				return err
			}
		}
		if upPrize.credits > 0 {
			if err := store.CreditTeam(tx, runnerUp, upPrize.credits, models.LedgerPrize, reference); err != nil {
				return err
			}
		}
		if upPrize.gems > 0 {
			if err := store.CreditGems(tx, runnerUp, upPrize.gems, models.LedgerPrize, reference); err != nil {
				return err
			}
		}
		s.logger.Infof("Tournament %d complete: champion %d, runner-up %d", t.ID, champion, runnerUp)
		return nil
	})
}

// bracketWinner resolves a completed game to the advancing team. A drawn
// double forfeit advances the home side, which carried the better seed.
func bracketWinner(g *models.Game) uint {
	if g.WinnerID != nil {
		return *g.WinnerID
	}
	return g.HomeTeamID
}

// pairRound builds the games for one round. slots is bracket order for
// that round: adjacent pairs play, better slot at home.
func pairRound(t *models.Tournament, seasonNumber int, slots []int64, start time.Time) []models.Game {
	matchType := models.MatchTournament
	if t.Type == models.TournamentPlayoff {
		matchType = models.MatchPlayoff
	}
	var games []models.Game
	for i := 0; i+1 < len(slots); i += 2 {
		games = append(games, models.Game{
			HomeTeamID:   uint(slots[i]),
			AwayTeamID:   uint(slots[i+1]),
			MatchType:    matchType,
			Status:       models.GameScheduled,
			SeasonNumber: seasonNumber,
			DayInSeason:  t.DayInSeason,
			ScheduledAt:  start,
			TournamentID: &t.ID,
		})
	}
	return games
}

// bracketOrder arranges ranked team ids into bracket slots so the top
// seed meets the bottom seed first and the top two can only meet in the
// final: for eight teams, (1,8),(4,5),(2,7),(3,6).
func bracketOrder(ranked []int64) []int64 {
	n := len(ranked)
	if n < 2 {
		return ranked
	}
	slots := []int{1}
	for len(slots) < n {
		mirror := len(slots)*2 + 1
		next := make([]int, 0, len(slots)*2)
		for _, s := range slots {
			next = append(next, s, mirror-s)
		}
		slots = next
	}
	out := make([]int64, 0, n)
	for _, s := range slots {
		out = append(out, ranked[s-1])
	}
	return out
}

func largestPowerOfTwo(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

func seedOrderValue(ids []int64) pq.Int64Array {
	return pq.Int64Array(ids)
}

// nextRoundStart paces the bracket off the previous round's last
// completion. A start instant already in the past begins immediately
// rather than being skipped.
func nextRoundStart(t *models.Tournament, finished []models.Game, now time.Time) time.Time {
	var latest time.Time
	for _, g := range finished {
		if g.CompletedAt != nil && g.CompletedAt.After(latest) {
			latest = *g.CompletedAt
		}
	}
	if latest.IsZero() {
		latest = now
	}
	buffer := roundBuffer
	if t.Type == models.TournamentPlayoff {
		buffer = playoffRoundBuffer
	}
	if start := latest.Add(buffer); start.After(now) {
		return start
	}
	return now
}

// currentRound filters the tournament's games down to the round in play.
// Rounds are recovered from game counts: with a full field of size N,
// round r has N/2^r games.
func currentRound(games []models.Game, t *models.Tournament, fieldSize int) []models.Game {
	if t.Round < 1 {
		return nil
	}
	// Games are created round by round in scheduled order; skip the games
	// of earlier rounds.
	skip := 0
	remaining := fieldSize
	for r := 1; r < t.Round; r++ {
		skip += remaining / 2
		remaining = remaining / 2
	}
	count := remaining / 2
	if skip >= len(games) {
		return nil
	}
	end := skip + count
	if end > len(games) {
		end = len(games)
	}
	return games[skip:end]
}
