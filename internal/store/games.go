package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

// GetGame loads one game by id.
func (s *Store) GetGame(ctx context.Context, gameID uint) (*models.Game, error) {
	var game models.Game
	err := s.db.DB.WithContext(ctx).First(&game, gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %d: %w", gameID, err)
	}
	return &game, nil
}

// ListDueMatches returns SCHEDULED games with scheduled_at inside
// [from, to]. Used by the window scan; games missed during downtime stay
// SCHEDULED and show up in a later, wider scan.
func (s *Store) ListDueMatches(ctx context.Context, from, to time.Time) ([]models.Game, error) {
	var games []models.Game
	err := s.db.DB.WithContext(ctx).
		Where("status = ? AND scheduled_at BETWEEN ? AND ?", models.GameScheduled, from, to).
		Order("scheduled_at asc").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due matches: %w", err)
	}
	return games, nil
}

// MarkInProgress transitions SCHEDULED -> IN_PROGRESS and records the
// simulation seed. Returns ErrListingBusy-style conflict if the game was
// already claimed.
func (s *Store) MarkInProgress(ctx context.Context, gameID uint, seed int64) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		now := tx.NowFunc()
		res := tx.Model(&models.Game{}).
			Where("id = ? AND status = ?", gameID, models.GameScheduled).
			Updates(map[string]interface{}{
				"status":     models.GameInProgress,
				"seed":       seed,
				"started_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrGameNotFound
		}
		return nil
	})
}

// MatchResult is everything persisted when a match completes.
type MatchResult struct {
	Game        *models.Game
	Events      []models.GameEvent
	PlayerStats []models.PlayerGameStats
	TeamStats   []models.TeamGameStats
	// StadiumRevenue, when non-zero, is credited to the home team in the
	// same transaction (LEAGUE home games only).
	StadiumRevenue int64
}

// PersistMatchResult writes the final state of a completed match: scores,
// event log, stat lines, team records (3/1/0 points) and stadium revenue,
// all in one transaction. Idempotent: a game already COMPLETED is a no-op.
func (s *Store) PersistMatchResult(ctx context.Context, result *MatchResult) error {
	game := result.Game
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		now := tx.NowFunc()
		res := tx.Model(&models.Game{}).
			Where("id = ? AND status <> ?", game.ID, models.GameCompleted).
			Updates(map[string]interface{}{
				"status":       models.GameCompleted,
				"home_score":   game.HomeScore,
				"away_score":   game.AwayScore,
				"winner_id":    game.WinnerID,
				"forfeit":      game.Forfeit,
				"completed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // already completed
		}

		if len(result.Events) > 0 {
			if err := tx.CreateInBatches(result.Events, 500).Error; err != nil {
				return fmt.Errorf("failed to persist event log: %w", err)
			}
		}
		if len(result.PlayerStats) > 0 {
			if err := tx.CreateInBatches(result.PlayerStats, 200).Error; err != nil {
				return fmt.Errorf("failed to persist player stats: %w", err)
			}
		}
		if len(result.TeamStats) > 0 {
			if err := tx.Create(&result.TeamStats).Error; err != nil {
				return fmt.Errorf("failed to persist team stats: %w", err)
			}
		}

		if err := applyTeamRecords(tx, game); err != nil {
			return err
		}

		if result.StadiumRevenue > 0 {
			if err := CreditTeam(tx, game.HomeTeamID, result.StadiumRevenue, models.LedgerStadiumRevenue, fmt.Sprintf("game:%d", game.ID)); err != nil {
				return err
			}
		}

		// The checkpoint is dead weight once the match is final.
		if err := tx.Where("game_id = ?", game.ID).Delete(&models.MatchCheckpoint{}).Error; err != nil {
			return fmt.Errorf("failed to clear checkpoint: %w", err)
		}
		return nil
	})
}

// applyTeamRecords updates W/L/D and points. League and playoff results
// count toward the table; exhibitions and tournaments do not.
func applyTeamRecords(tx *gorm.DB, game *models.Game) error {
	if game.MatchType != models.MatchLeague && game.MatchType != models.MatchPlayoff {
		return nil
	}
	type delta struct {
		teamID uint
		column string
		points int
	}
	var deltas []delta
	switch {
	case game.HomeScore > game.AwayScore:
		deltas = []delta{{game.HomeTeamID, "wins", 3}, {game.AwayTeamID, "losses", 0}}
	case game.AwayScore > game.HomeScore:
		deltas = []delta{{game.AwayTeamID, "wins", 3}, {game.HomeTeamID, "losses", 0}}
	default:
		deltas = []delta{{game.HomeTeamID, "draws", 1}, {game.AwayTeamID, "draws", 1}}
	}
	for _, d := range deltas {
		res := tx.Model(&models.Team{}).Where("id = ?", d.teamID).
			Updates(map[string]interface{}{
				d.column: gorm.Expr(d.column + " + 1"),
				"points": gorm.Expr("points + ?", d.points),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update team record: %w", res.Error)
		}
	}
	return nil
}

// SaveCheckpoint upserts the single checkpoint row for a live game.
func (s *Store) SaveCheckpoint(ctx context.Context, ck *models.MatchCheckpoint) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		var existing models.MatchCheckpoint
		err := tx.Where("game_id = ?", ck.GameID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(ck).Error
		}
		if err != nil {
			return err
		}
		ck.ID = existing.ID
		return tx.Save(ck).Error
	})
}

// LoadCheckpoint returns the checkpoint for a game, or nil when none.
func (s *Store) LoadCheckpoint(ctx context.Context, gameID uint) (*models.MatchCheckpoint, error) {
	var ck models.MatchCheckpoint
	err := s.db.DB.WithContext(ctx).Where("game_id = ?", gameID).First(&ck).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return &ck, nil
}

// ListInProgress returns all matches left IN_PROGRESS, used by crash
// recovery on boot.
func (s *Store) ListInProgress(ctx context.Context) ([]models.Game, error) {
	var games []models.Game
	err := s.db.DB.WithContext(ctx).
		Where("status = ?", models.GameInProgress).
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list in-progress games: %w", err)
	}
	return games, nil
}
