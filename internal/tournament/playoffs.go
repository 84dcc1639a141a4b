package tournament

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

const (
	playoffStartHour = 15

	// Upper divisions run a full quarterfinal bracket; lower divisions
	// jump straight to semifinals.
	upperPlayoffSize = 8
	lowerPlayoffSize = 4
)

// PlayoffSize returns the bracket size for a division.
func PlayoffSize(division int) int {
	if division <= 2 {
		return upperPlayoffSize
	}
	return lowerPlayoffSize
}

// CreatePlayoffs builds the day-15 bracket for every subdivision, seeded
// by final regular-season standings. Idempotent: subdivisions that already
// have a playoff for this season are skipped.
func (s *Service) CreatePlayoffs(ctx context.Context, now time.Time) error {
	season, err := s.store.CurrentSeason(ctx)
	if err != nil {
		return err
	}
	start := s.clock.LocalHourMinute(now, playoffStartHour, 0)

	for division := 1; division <= models.MaxDivision; division++ {
		subdivisions, err := s.store.Subdivisions(ctx, division)
		if err != nil {
			return err
		}
		for _, sub := range subdivisions {
			if err := s.createSubdivisionPlayoff(ctx, season, division, sub, start); err != nil {
				s.logger.WithError(err).Errorf("Playoff creation failed for division %d/%s", division, sub)
			}
		}
	}
	return nil
}

func (s *Service) createSubdivisionPlayoff(ctx context.Context, season *models.Season, division int, subdivision string, start time.Time) error {
	var count int64
	err := s.store.DB().WithContext(ctx).Model(&models.Tournament{}).
		Where("type = ? AND season_number = ? AND division = ? AND subdivision = ?",
			models.TournamentPlayoff, season.Number, division, subdivision).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	teams, err := s.store.ListTeamsInSubdivision(ctx, division, subdivision)
	if err != nil {
		return err
	}
	size := PlayoffSize(division)
	if len(teams) < size {
		size = largestPowerOfTwo(len(teams))
	}
	if size < 2 {
		s.logger.Warnf("Subdivision %d/%s too small for playoffs", division, subdivision)
		return nil
	}

	// Standings order is the seed order: the table decides, not ratings.
	ranked := make([]int64, size)
	for i := 0; i < size; i++ {
		ranked[i] = int64(teams[i].ID)
	}
	seedOrder := bracketOrder(ranked)

	t := &models.Tournament{
		Type:               models.TournamentPlayoff,
		Division:           division,
		Subdivision:        subdivision,
		Status:             models.TournamentInProgress,
		Size:               size,
		Round:              1,
		SeasonNumber:       season.Number,
		DayInSeason:        clock.PlayoffDay,
		SeedOrder:          seedOrderValue(seedOrder),
		RegistrationOpens:  start,
		RegistrationCloses: start,
		StartsAt:           &start,
	}

	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("failed to create playoff: %w", err)
		}
		for i, id := range ranked {
			entry := models.TournamentEntry{TournamentID: t.ID, TeamID: uint(id), Seed: i + 1}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		games := pairRound(t, season.Number, seedOrder, start)
		if err := tx.Create(&games).Error; err != nil {
			return fmt.Errorf("failed to create playoff round 1: %w", err)
		}
		s.logger.Infof("Playoff %d created: division %d/%s, %d teams, starts %s",
			t.ID, division, subdivision, size, start)
		return nil
	})
}
