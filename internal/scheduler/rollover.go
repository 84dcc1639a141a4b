package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
)

const promotedPerSubdivision = 2

// The ordered subdivision label alphabet, assigned in standings order at
// realignment. When all twenty-four symbols are taken the cycle repeats
// with a numeric suffix: alpha_1, beta_1, and so on.
var subdivisionLabels = []string{
	"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta",
	"iota", "kappa", "lambda", "mu", "nu", "xi", "omicron", "pi",
	"rho", "sigma", "tau", "upsilon", "phi", "chi", "psi", "omega",
}

// subdivisionLabel maps an ordinal onto the label alphabet, suffixing
// overflow cycles so labels never collide within a division.
func subdivisionLabel(index int) string {
	label := subdivisionLabels[index%len(subdivisionLabels)]
	if cycle := index / len(subdivisionLabels); cycle > 0 {
		label = fmt.Sprintf("%s_%d", label, cycle)
	}
	return label
}

// rollover closes the finished season and opens the next one: markets
// settle, standings archive, the ladder shuffles, rosters age, salaries
// come due, subdivisions realign, and the new slate is generated. Every
// phase is marker-guarded against leader failover mid-rollover.
func (s *Scheduler) rollover(ctx context.Context, season *models.Season, now time.Time) error {
	day := clock.SeasonLength
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"rollover_market", func(ctx context.Context) error {
			return s.market.CloseAll(ctx, now)
		}},
		{"rollover_standings", func(ctx context.Context) error {
			return s.archiveStandings(ctx, season.Number)
		}},
		{"rollover_ladder", func(ctx context.Context) error {
			return s.promoteAndRelegate(ctx)
		}},
		{"rollover_purge_ai", func(ctx context.Context) error {
			return s.purgeAITeams(ctx)
		}},
		{"rollover_development", func(ctx context.Context) error {
			return s.progression.RunEndOfSeason(ctx, season.Number)
		}},
		{"rollover_salaries", func(ctx context.Context) error {
			return s.paySalaries(ctx, season.Number)
		}},
		{"rollover_realign", func(ctx context.Context) error {
			return s.realignSubdivisions(ctx)
		}},
		{"rollover_new_season", func(ctx context.Context) error {
			return s.openNextSeason(ctx, season, now)
		}},
	}
	for _, step := range steps {
		if err := s.runStep(ctx, season.Number, day, step.name, step.fn); err != nil {
			return err
		}
	}
	return nil
}

// archiveStandings freezes final regular-season placement per subdivision.
func (s *Scheduler) archiveStandings(ctx context.Context, seasonNumber int) error {
	for division := 1; division <= models.MaxDivision; division++ {
		subdivisions, err := s.store.Subdivisions(ctx, division)
		if err != nil {
			return err
		}
		for _, sub := range subdivisions {
			teams, err := s.store.ListTeamsInSubdivision(ctx, division, sub)
			if err != nil {
				return err
			}
			standings := make([]models.SeasonStanding, 0, len(teams))
			for rank, t := range teams {
				standings = append(standings, models.SeasonStanding{
					SeasonNumber: seasonNumber,
					TeamID:       t.ID,
					Division:     division,
					Subdivision:  sub,
					Rank:         rank + 1,
					Wins:         t.Wins,
					Losses:       t.Losses,
					Draws:        t.Draws,
					Points:       t.Points,
				})
			}
			if len(standings) == 0 {
				continue
			}
			err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
				return tx.CreateInBatches(standings, 100).Error
			})
			if err != nil {
				return fmt.Errorf("failed to archive standings for %d/%s: %w", division, sub, err)
			}
		}
	}
	return nil
}

// promoteAndRelegate swaps the bottom finishers of each division with the
// best of the division below, matched count for count so division sizes
// hold. Human teams take priority in the promotion pool on equal points.
func (s *Scheduler) promoteAndRelegate(ctx context.Context) error {
	for division := 1; division < models.MaxDivision; division++ {
		relegated, err := s.relegationPool(ctx, division)
		if err != nil {
			return err
		}
		promoted, err := s.promotionPool(ctx, division+1)
		if err != nil {
			return err
		}
		n := len(relegated)
		if len(promoted) < n {
			n = len(promoted)
		}
		if n == 0 {
			continue
		}
		relegated, promoted = relegated[:n], promoted[:n]

		err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Model(&models.Team{}).Where("id IN ?", relegated).
				Update("division", division+1).Error; err != nil {
				return err
			}
			return tx.Model(&models.Team{}).Where("id IN ?", promoted).
				Update("division", division).Error
		})
		if err != nil {
			return fmt.Errorf("failed ladder swap between %d and %d: %w", division, division+1, err)
		}
		s.logger.Infof("Ladder: %d teams relegated from division %d, %d promoted from %d",
			n, division, n, division+1)
	}
	return nil
}

func (s *Scheduler) relegationPool(ctx context.Context, division int) ([]uint, error) {
	subdivisions, err := s.store.Subdivisions(ctx, division)
	if err != nil {
		return nil, err
	}
	var pool []uint
	for _, sub := range subdivisions {
		teams, err := s.store.ListTeamsInSubdivision(ctx, division, sub)
		if err != nil {
			return nil, err
		}
		for i := len(teams) - promotedPerSubdivision; i < len(teams); i++ {
			if i >= 0 {
				pool = append(pool, teams[i].ID)
			}
		}
	}
	return pool, nil
}

func (s *Scheduler) promotionPool(ctx context.Context, division int) ([]uint, error) {
	subdivisions, err := s.store.Subdivisions(ctx, division)
	if err != nil {
		return nil, err
	}
	var candidates []models.Team
	for _, sub := range subdivisions {
		teams, err := s.store.ListTeamsInSubdivision(ctx, division, sub)
		if err != nil {
			return nil, err
		}
		limit := promotedPerSubdivision
		if limit > len(teams) {
			limit = len(teams)
		}
		candidates = append(candidates, teams[:limit]...)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Points != candidates[j].Points {
			return candidates[i].Points > candidates[j].Points
		}
		if candidates[i].IsAI != candidates[j].IsAI {
			return !candidates[i].IsAI
		}
		return candidates[i].ID < candidates[j].ID
	})
	pool := make([]uint, len(candidates))
	for i, t := range candidates {
		pool[i] = t.ID
	}
	return pool, nil
}

// purgeAITeams removes every AI team and its dependents after the ladder
// settles. Realignment regenerates fresh fillers wherever a subdivision
// comes up short, so the new season starts with no carried-over bots.
func (s *Scheduler) purgeAITeams(ctx context.Context) error {
	var ids []uint
	if err := s.store.DB().WithContext(ctx).Model(&models.Team{}).
		Where("is_ai = ?", true).Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to list AI teams: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&models.Contract{}, &models.Player{}, &models.Staff{},
			&models.FinancialLedger{}, &models.TeamFinances{},
		} {
			if err := tx.Where("team_id IN ?", ids).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Where("id IN ?", ids).Delete(&models.Team{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to purge AI teams: %w", err)
	}
	s.logger.Infof("Purged %d AI teams", len(ids))
	return nil
}

// paySalaries charges every active contract. Salary is contractual: the
// debit goes through even into a negative balance, which then blocks
// marketplace activity until recovered.
func (s *Scheduler) paySalaries(ctx context.Context, seasonNumber int) error {
	type bill struct {
		TeamID uint
		Total  int64
	}
	var bills []bill
	err := s.store.DB().WithContext(ctx).Model(&models.Contract{}).
		Select("team_id, SUM(annual_salary) as total").
		Where("active = ?", true).
		Group("team_id").
		Scan(&bills).Error
	if err != nil {
		return fmt.Errorf("failed to total salaries: %w", err)
	}
	reference := fmt.Sprintf("season:%d", seasonNumber)
	for _, b := range bills {
		teamID, total := b.TeamID, b.Total
		err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
			return store.ForceDebitTeam(tx, teamID, total, models.LedgerSalary, reference)
		})
		if err != nil {
			s.logger.WithError(err).Errorf("Salary payment failed for team %d", teamID)
		}
	}
	return nil
}

// realignSubdivisions rebuilds each division's subdivisions in standings
// order, tops short fields up with AI teams, heals all rosters, and
// zeroes season records.
func (s *Scheduler) realignSubdivisions(ctx context.Context) error {
	for division := 1; division <= models.MaxDivision; division++ {
		teams, err := s.store.ListTeamsInDivision(ctx, division)
		if err != nil {
			return err
		}
		if len(teams) == 0 {
			continue
		}
		capacity := models.SubdivisionCapacity(division)
		for chunk := 0; chunk*capacity < len(teams); chunk++ {
			label := subdivisionLabel(chunk)
			start := chunk * capacity
			end := start + capacity
			if end > len(teams) {
				end = len(teams)
			}
			ids := make([]uint, 0, capacity)
			for _, t := range teams[start:end] {
				ids = append(ids, t.ID)
			}
			if err := s.store.DB().WithContext(ctx).Model(&models.Team{}).
				Where("id IN ?", ids).
				Update("subdivision", label).Error; err != nil {
				return err
			}
			// Partial last chunk gets AI filler so the schedule is whole.
			if short := capacity - len(ids); short > 0 {
				if _, err := s.fillWithAITeams(ctx, 0, division, label, short); err != nil {
					return err
				}
			}
		}
	}

	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Team{}).Where("1 = 1").
			Updates(map[string]interface{}{
				"wins": 0, "losses": 0, "draws": 0, "points": 0,
				"exhibitions_today": 0, "tournament_entry_today": 0, "consumables_used_today": 0,
			}).Error; err != nil {
			return err
		}
		// Fresh legs for everyone on opening day.
		return tx.Model(&models.Player{}).Where("retired = ?", false).
			Updates(map[string]interface{}{
				"daily_stamina":   100,
				"injury_status":   models.InjuryHealthy,
				"injury_recovery": 0,
			}).Error
	})
}

// openNextSeason creates the successor season row, flips currency, and
// generates every subdivision's schedule. The new boot nonce reseeds all
// match simulation for the season.
func (s *Scheduler) openNextSeason(ctx context.Context, old *models.Season, now time.Time) error {
	next := &models.Season{
		Number:     old.Number + 1,
		CurrentDay: 1,
		Phase:      models.PhaseRegular,
		StartedAt:  s.clock.SeasonStartBoundary(old.StartedAt).AddDate(0, 0, clock.SeasonLength),
		IsCurrent:  true,
		BootNonce:  uuid.NewString(),
	}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Season{}).Where("id = ?", old.ID).
			Update("is_current", false).Error; err != nil {
			return err
		}
		return tx.Create(next).Error
	})
	if err != nil {
		return fmt.Errorf("failed to open season %d: %w", next.Number, err)
	}

	for division := 1; division <= models.MaxDivision; division++ {
		subdivisions, err := s.store.Subdivisions(ctx, division)
		if err != nil {
			return err
		}
		for _, sub := range subdivisions {
			if err := s.generateLeagueSchedule(ctx, next, division, sub, 1); err != nil {
				return err
			}
		}
	}
	s.logger.Infof("Season %d open: day 1 begins %s", next.Number, next.StartedAt)
	return nil
}
