package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

// CurrentSeason returns the single current season row.
func (s *Store) CurrentSeason(ctx context.Context) (*models.Season, error) {
	var season models.Season
	err := s.db.DB.WithContext(ctx).Where("is_current = ?", true).First(&season).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrSeasonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load current season: %w", err)
	}
	return &season, nil
}

// AdvanceSeasonDay performs a compare-and-swap on the current day. The
// caller passes the day it believes is current; a mismatch means another
// writer advanced it first.
func (s *Store) AdvanceSeasonDay(ctx context.Context, expectedDay int) (int, error) {
	newDay := expectedDay + 1
	err := s.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Season{}).
			Where("is_current = ? AND current_day = ?", true, expectedDay).
			Updates(map[string]interface{}{
				"current_day": newDay,
				"phase":       models.PhaseForDay(newDay),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrStaleDay
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newDay, nil
}

// MarkerDone reports whether the (season, day, step) marker exists.
func MarkerDone(tx *gorm.DB, seasonNumber, day int, step string) (bool, error) {
	var count int64
	err := tx.Model(&models.DayMarker{}).
		Where("season_number = ? AND day_in_season = ? AND step = ?", seasonNumber, day, step).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check day marker: %w", err)
	}
	return count > 0, nil
}

// WriteMarker records step completion. Must be called inside the same
// transaction as the step's effects.
func WriteMarker(tx *gorm.DB, seasonNumber, day int, step string) error {
	marker := models.DayMarker{
		SeasonNumber: seasonNumber,
		DayInSeason:  day,
		Step:         step,
		CompletedAt:  tx.NowFunc(),
	}
	if err := tx.Create(&marker).Error; err != nil {
		return fmt.Errorf("failed to write day marker: %w", err)
	}
	return nil
}
