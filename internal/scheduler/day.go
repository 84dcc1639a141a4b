package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/internal/tournament"
)

const (
	lateSignupLastDay = 9
	lateSignupHour    = 15
	entryDivision     = models.MaxDivision

	// Daily stadium upkeep, a fraction of facility investment.
	maintenancePercent = 1
)

// runDaySteps executes the marker-guarded pipeline for the given day.
// Steps run in order; each is skipped when its marker exists, so a
// mid-pipeline crash resumes at the failed step.
func (s *Scheduler) runDaySteps(ctx context.Context, season *models.Season, day int, now time.Time) error {
	if day > 1 {
		// Any match the previous day left unplayed simulates instantly
		// first, so development sees its minutes.
		if err := s.runStep(ctx, season.Number, day, "missed_matches", func(ctx context.Context) error {
			return s.completeMissedMatches(ctx, season.Number, day-1)
		}); err != nil {
			return err
		}
		// Development and recovery settle the previous day's play.
		if err := s.runStep(ctx, season.Number, day, "development", func(ctx context.Context) error {
			return s.progression.RunDaily(ctx, season.Number, day-1)
		}); err != nil {
			return err
		}
		if err := s.runStep(ctx, season.Number, day, "maintenance", func(ctx context.Context) error {
			return s.chargeMaintenance(ctx)
		}); err != nil {
			return err
		}
	}

	if day <= clock.RegularDays {
		if err := s.runStep(ctx, season.Number, day, "daily_cups", func(ctx context.Context) error {
			for division := tournament.DailyCupFirstDivision; division <= models.MaxDivision; division++ {
				if _, err := s.tournaments.EnsureDailyCup(ctx, division, now); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}
	if day <= 7 {
		if err := s.runStep(ctx, season.Number, day, "mid_season", func(ctx context.Context) error {
			_, err := s.tournaments.EnsureMidSeason(ctx, now)
			return err
		}); err != nil {
			return err
		}
	}

	if day == clock.PlayoffDay {
		if err := s.runStep(ctx, season.Number, day, "playoffs", func(ctx context.Context) error {
			return s.tournaments.CreatePlayoffs(ctx, now)
		}); err != nil {
			return err
		}
	}

	if day <= lateSignupLastDay && now.After(s.clock.LocalHourMinute(now, lateSignupHour, 0)) {
		if err := s.runStep(ctx, season.Number, day, "late_signup", func(ctx context.Context) error {
			return s.lateSignupFill(ctx, season, day)
		}); err != nil {
			return err
		}
	}

	if day == clock.SeasonLength {
		closeout := s.clock.SeasonStartBoundary(season.StartedAt).AddDate(0, 0, clock.SeasonLength)
		closeout = s.clock.LocalHourMinute(closeout, 2, 0)
		if !now.Before(closeout) {
			if err := s.runStep(ctx, season.Number, day, "market_closeout", func(ctx context.Context) error {
				return s.market.CloseAll(ctx, now)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// runStep runs fn once per (season, day, name). The marker is written
// only after fn succeeds; fn bodies are themselves idempotent, so the
// worst case after a crash is a harmless partial re-run.
func (s *Scheduler) runStep(ctx context.Context, seasonNumber, day int, name string, fn func(context.Context) error) error {
	var done bool
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		done, err = store.MarkerDone(tx, seasonNumber, day, name)
		return err
	})
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	s.logger.Infof("Running day step %s (season %d, day %d)", name, seasonNumber, day)
	if err := fn(ctx); err != nil {
		return fmt.Errorf("day step %s failed: %w", name, err)
	}
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		return store.WriteMarker(tx, seasonNumber, day, name)
	})
}

// completeMissedMatches settles every game from the given day still
// waiting on a start. Their window is gone, so they run in instant mode.
func (s *Scheduler) completeMissedMatches(ctx context.Context, seasonNumber, day int) error {
	var ids []uint
	err := s.store.DB().WithContext(ctx).Model(&models.Game{}).
		Where("season_number = ? AND day_in_season = ? AND status = ?",
			seasonNumber, day, models.GameScheduled).
		Order("scheduled_at asc, id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("failed to list missed matches: %w", err)
	}
	for _, id := range ids {
		if err := s.live.CompleteInstant(ctx, id); err != nil {
			return fmt.Errorf("instant completion failed for game %d: %w", id, err)
		}
	}
	return nil
}

// chargeMaintenance debits every team its daily stadium upkeep. Upkeep
// may push a balance negative the same way salaries can.
func (s *Scheduler) chargeMaintenance(ctx context.Context) error {
	var teams []models.Team
	if err := s.store.DB().WithContext(ctx).Order("id asc").Find(&teams).Error; err != nil {
		return err
	}
	for _, team := range teams {
		upkeep := team.FacilityInvestment * maintenancePercent / 100
		if upkeep <= 0 {
			continue
		}
		teamID := team.ID
		err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
			return store.ForceDebitTeam(tx, teamID, upkeep, models.LedgerMaintenance, "daily upkeep")
		})
		if err != nil {
			s.logger.WithError(err).Errorf("Maintenance charge failed for team %d", teamID)
		}
	}
	return nil
}

// lateSignupFill places division-eight teams that joined after the season
// started: subdivisions forming around them are topped up with AI teams
// and receive a shortened schedule over the remaining regular days.
func (s *Scheduler) lateSignupFill(ctx context.Context, season *models.Season, day int) error {
	var newcomers []models.Team
	err := s.store.DB().WithContext(ctx).
		Where("division = ? AND NOT EXISTS (SELECT 1 FROM games WHERE games.season_number = ? AND games.match_type = ? AND (games.home_team_id = teams.id OR games.away_team_id = teams.id))",
			entryDivision, season.Number, models.MatchLeague).
		Order("id asc").
		Find(&newcomers).Error
	if err != nil {
		return fmt.Errorf("failed to find late signups: %w", err)
	}
	if len(newcomers) == 0 {
		return nil
	}
	if day > clock.RegularDays {
		return nil // nothing left to play
	}

	existing, err := s.store.Subdivisions(ctx, entryDivision)
	if err != nil {
		return err
	}
	taken := make(map[string]bool, len(existing))
	for _, sub := range existing {
		taken[sub] = true
	}

	capacity := models.SubdivisionCapacity(entryDivision)
	for batch := 0; batch*capacity < len(newcomers); batch++ {
		subdivision := nextFreeLabel(taken)
		taken[subdivision] = true
		start := batch * capacity
		end := start + capacity
		if end > len(newcomers) {
			end = len(newcomers)
		}
		group := newcomers[start:end]

		memberIDs := make([]uint, 0, capacity)
		for _, t := range group {
			memberIDs = append(memberIDs, t.ID)
		}
		if err := s.store.DB().WithContext(ctx).Model(&models.Team{}).
			Where("id IN ?", memberIDs).
			Update("subdivision", subdivision).Error; err != nil {
			return err
		}
		filled, err := s.fillWithAITeams(ctx, season.Number, entryDivision, subdivision, capacity-len(group))
		if err != nil {
			return err
		}
		memberIDs = append(memberIDs, filled...)

		// The shortened slate starts today: the 16:00 window is still
		// ahead of the 15:00 fill pass.
		if err := s.generateLeagueSchedule(ctx, season, entryDivision, subdivision, day); err != nil {
			return err
		}
		s.logger.Infof("Late signup subdivision %s formed with %d teams, schedule from day %d",
			subdivision, len(memberIDs), day)
	}
	return nil
}

// nextFreeLabel returns the first alphabet label not yet in use.
func nextFreeLabel(taken map[string]bool) string {
	for i := 0; ; i++ {
		if label := subdivisionLabel(i); !taken[label] {
			return label
		}
	}
}

// bootstrapSeason creates season one from nothing: the entry division is
// stocked with AI teams so the world is playable before the first human
// signup, and the full league slate is generated.
func (s *Scheduler) bootstrapSeason(ctx context.Context, now time.Time) error {
	season := &models.Season{
		Number:     1,
		CurrentDay: 1,
		Phase:      models.PhaseRegular,
		StartedAt:  now,
		IsCurrent:  true,
		BootNonce:  uuid.NewString(),
	}
	if err := s.store.DB().WithContext(ctx).Create(season).Error; err != nil {
		return fmt.Errorf("failed to create first season: %w", err)
	}
	s.logger.Infof("Season %d bootstrapped, day 1 begins %s", season.Number, now)

	subdivision := "alpha"
	if _, err := s.fillWithAITeams(ctx, season.Number, entryDivision, subdivision,
		models.SubdivisionCapacity(entryDivision)); err != nil {
		return err
	}
	return s.generateLeagueSchedule(ctx, season, entryDivision, subdivision, 1)
}
