package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/sim"
)

// minutesColumn maps a match type onto the seasonal minutes counter it
// accumulates into.
func minutesColumn(matchType models.MatchType) string {
	switch matchType {
	case models.MatchLeague, models.MatchPlayoff:
		return "league_minutes"
	case models.MatchTournament:
		return "tournament_minutes"
	default:
		return "exhibition_minutes"
	}
}

// ApplyMatchWear persists each participant's post-match condition: daily
// stamina as the match left it, seasonal minutes, and any injury picked up
// on the field. Runs in one transaction per match.
func (s *Store) ApplyMatchWear(ctx context.Context, matchType models.MatchType, states []sim.PlayerState) error {
	column := minutesColumn(matchType)
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		for _, st := range states {
			minutes := st.Seconds / 60
			updates := map[string]interface{}{
				"daily_stamina": int(st.Stamina),
				column:          gorm.Expr(column+" + ?", minutes),
			}

			var player models.Player
			if err := tx.Select("id", "injury_status", "career_injuries").
				First(&player, st.PlayerID).Error; err != nil {
				return fmt.Errorf("failed to load player %d for match wear: %w", st.PlayerID, err)
			}
			after := models.InjuryStatus(st.Injury)
			if injuryRank(after) > injuryRank(player.InjuryStatus) {
				updates["injury_status"] = after
				updates["injury_recovery"] = injuryRecoveryPoints(after)
				updates["career_injuries"] = gorm.Expr("career_injuries + 1")
			}

			if err := tx.Model(&models.Player{}).Where("id = ?", st.PlayerID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to apply match wear to player %d: %w", st.PlayerID, err)
			}
		}
		return nil
	})
}

func injuryRank(status models.InjuryStatus) int {
	switch status {
	case models.InjuryMinor:
		return 1
	case models.InjuryModerate:
		return 2
	case models.InjurySevere:
		return 3
	}
	return 0
}

// MoveToTaxiSquad parks one of the team's players on the taxi squad. The
// squad holds at most two players and the main roster must stay legal.
func (s *Store) MoveToTaxiSquad(ctx context.Context, teamID, playerID uint) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		player, err := teamPlayerForUpdate(tx, teamID, playerID)
		if err != nil {
			return err
		}
		if player.OnTaxiSquad {
			return apperr.ErrInvalidRoster
		}

		var onTaxi int64
		if err := tx.Model(&models.Player{}).
			Where("team_id = ? AND retired = ? AND on_taxi_squad = ?", teamID, false, true).
			Count(&onTaxi).Error; err != nil {
			return err
		}
		if onTaxi >= models.MaxTaxiSquad {
			return apperr.ErrInvalidRoster
		}

		var active int64
		if err := tx.Model(&models.Player{}).
			Where("team_id = ? AND retired = ? AND on_taxi_squad = ?", teamID, false, false).
			Count(&active).Error; err != nil {
			return err
		}
		if active-1 < models.MinRosterSize {
			return apperr.ErrInvalidRoster
		}

		return tx.Model(&models.Player{}).Where("id = ?", playerID).
			Update("on_taxi_squad", true).Error
	})
}

// PromoteFromTaxiSquad returns a taxi-squad player to the main roster.
// Promotions are an offseason move only.
func (s *Store) PromoteFromTaxiSquad(ctx context.Context, teamID, playerID uint) error {
	season, err := s.CurrentSeason(ctx)
	if err != nil {
		return err
	}
	if season.Phase != models.PhaseOffseason {
		return apperr.ErrRegistrationClosed
	}
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		player, err := teamPlayerForUpdate(tx, teamID, playerID)
		if err != nil {
			return err
		}
		if !player.OnTaxiSquad {
			return apperr.ErrInvalidRoster
		}
		return tx.Model(&models.Player{}).Where("id = ?", playerID).
			Update("on_taxi_squad", false).Error
	})
}

func teamPlayerForUpdate(tx *gorm.DB, teamID, playerID uint) (*models.Player, error) {
	var player models.Player
	err := LockForUpdate(tx).First(&player, playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	if player.TeamID != teamID || player.Retired {
		return nil, apperr.ErrPlayerNotFound
	}
	return &player, nil
}

// injuryRecoveryPoints is the recovery budget a fresh injury starts with;
// daily recovery burns it down before the status clears.
func injuryRecoveryPoints(status models.InjuryStatus) int {
	switch status {
	case models.InjuryMinor:
		return 2
	case models.InjuryModerate:
		return 4
	case models.InjurySevere:
		return 8
	}
	return 0
}
