package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

// GetTeam loads one team by id.
func (s *Store) GetTeam(ctx context.Context, teamID uint) (*models.Team, error) {
	var team models.Team
	err := s.db.DB.WithContext(ctx).First(&team, teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team %d: %w", teamID, err)
	}
	return &team, nil
}

// GetTeamWithRoster loads a team with its active players and staff.
func (s *Store) GetTeamWithRoster(ctx context.Context, teamID uint) (*models.Team, error) {
	var team models.Team
	err := s.db.DB.WithContext(ctx).
		Preload("Players", "retired = ?", false).
		Preload("Staff").
		First(&team, teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team %d: %w", teamID, err)
	}
	return &team, nil
}

// GetPlayer loads one player by id.
func (s *Store) GetPlayer(ctx context.Context, playerID uint) (*models.Player, error) {
	var player models.Player
	err := s.db.DB.WithContext(ctx).First(&player, playerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player %d: %w", playerID, err)
	}
	return &player, nil
}

// ListTeamsInSubdivision returns all teams of one subdivision.
func (s *Store) ListTeamsInSubdivision(ctx context.Context, division int, subdivision string) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.DB.WithContext(ctx).
		Where("division = ? AND subdivision = ?", division, subdivision).
		Order("points desc, wins desc, id asc").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subdivision teams: %w", err)
	}
	return teams, nil
}

// ListTeamsInDivision returns all teams of one division.
func (s *Store) ListTeamsInDivision(ctx context.Context, division int) ([]models.Team, error) {
	var teams []models.Team
	err := s.db.DB.WithContext(ctx).
		Where("division = ?", division).
		Order("points desc, wins desc, id asc").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list division teams: %w", err)
	}
	return teams, nil
}

// Subdivisions returns the distinct subdivision labels of a division.
func (s *Store) Subdivisions(ctx context.Context, division int) ([]string, error) {
	var labels []string
	err := s.db.DB.WithContext(ctx).Model(&models.Team{}).
		Where("division = ?", division).
		Distinct("subdivision").
		Order("subdivision asc").
		Pluck("subdivision", &labels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subdivisions: %w", err)
	}
	return labels, nil
}
