package progression

import (
	"context"
	"fmt"
	"math/rand"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

const (
	declineStartAge   = 31 // decline rolls begin the season after 30
	declinePerYear    = 0.025
	retireConsiderAge = 35
	retireBasePerYear = 0.05
	retirePerInjury   = 0.02

	// Bench seasons push players toward retirement: under 200 minutes is
	// a heavy penalty, under 400 a light one.
	lowUsageMinutes = 200
	lowUsagePenalty = 0.15
	midUsageMinutes = 400
	midUsagePenalty = 0.05
)

// RunEndOfSeason ages every roster one year: physical decline rolls,
// retirement decisions, minute resets and contract ticks. One transaction
// per team; rolls are deterministic per (season, team).
func (s *Service) RunEndOfSeason(ctx context.Context, seasonNumber int) error {
	var teamIDs []uint
	if err := s.store.DB().WithContext(ctx).Model(&models.Team{}).
		Order("id asc").Pluck("id", &teamIDs).Error; err != nil {
		return fmt.Errorf("failed to list teams for end of season: %w", err)
	}
	for _, teamID := range teamIDs {
		if err := s.endOfSeasonTeam(ctx, seasonNumber, teamID); err != nil {
			s.logger.WithError(err).Errorf("End-of-season pass failed for team %d", teamID)
		}
	}
	return nil
}

func (s *Service) endOfSeasonTeam(ctx context.Context, seasonNumber int, teamID uint) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var players []models.Player
		if err := tx.Where("team_id = ? AND retired = ?", teamID, false).
			Order("id asc").Find(&players).Error; err != nil {
			return err
		}
		rng := rand.New(rand.NewSource(passSeed("season", seasonNumber, 0, teamID)))

		retiredIDs := make([]uint, 0)
		for i := range players {
			p := &players[i]
			s.applyDecline(p, rng)
			if s.rollRetirement(p, rng) {
				p.Retired = true
				p.OnTaxiSquad = false
				retiredIDs = append(retiredIDs, p.ID)
			}
			p.Age++
			p.LeagueMinutes = 0
			p.TournamentMinutes = 0
			p.ExhibitionMinutes = 0
			if err := tx.Save(p).Error; err != nil {
				return fmt.Errorf("failed to save player %d: %w", p.ID, err)
			}
		}

		// Retired players' contracts void immediately; the rest tick down
		// and lapse at zero.
		if len(retiredIDs) > 0 {
			if err := tx.Model(&models.Contract{}).
				Where("team_id = ? AND player_id IN ? AND active = ?", teamID, retiredIDs, true).
				Update("active", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Contract{}).
			Where("team_id = ? AND active = ?", teamID, true).
			Update("years_left", gorm.Expr("years_left - 1")).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Contract{}).
			Where("team_id = ? AND active = ? AND years_left <= 0", teamID, true).
			Update("active", false).Error; err != nil {
			return err
		}

		if len(retiredIDs) > 0 {
			s.logger.Infof("Team %d: %d players retired", teamID, len(retiredIDs))
		}
		return nil
	})
}

// applyDecline rolls one decline chance for players past thirty. A hit
// costs a single point of speed, agility or power, weighted 2:2:1 toward
// the quick attributes; nothing declines below one.
func (s *Service) applyDecline(p *models.Player, rng *rand.Rand) {
	if p.Age < declineStartAge {
		return
	}
	chance := float64(p.Age-declineStartAge+1) * declinePerYear
	if rng.Float64() >= chance {
		return
	}
	targets := []*int{&p.Speed, &p.Speed, &p.Agility, &p.Agility, &p.Power}
	attr := targets[rng.Intn(len(targets))]
	if *attr > models.MinAttribute {
		*attr--
	}
}

// rollRetirement decides whether the player hangs it up: a hard stop at
// the retirement age, otherwise a chance growing with age, career
// injuries and a season spent on the bench.
func (s *Service) rollRetirement(p *models.Player, rng *rand.Rand) bool {
	if p.Age+1 >= models.RetirementAge {
		return true
	}
	if p.Age < retireConsiderAge {
		// The roll below must not happen for young players, but PRNG
		// consumption still needs to be uniform across rosters.
		_ = rng.Float64()
		return false
	}
	chance := float64(p.Age-retireConsiderAge+1)*retireBasePerYear +
		float64(p.CareerInjuries)*retirePerInjury +
		usagePenalty(p.SeasonalMinutes())
	return rng.Float64() < chance
}

// usagePenalty is the retirement nudge for a season spent on the bench.
func usagePenalty(minutes int) float64 {
	switch {
	case minutes < lowUsageMinutes:
		return lowUsagePenalty
	case minutes < midUsageMinutes:
		return midUsagePenalty
	}
	return 0
}
