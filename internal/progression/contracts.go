package progression

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

const (
	minContractYears = 1
	maxContractYears = 3
)

// OfferPlayerContract negotiates an annual salary with one of the team's
// players. An accepted offer replaces any existing contract in the same
// transaction; a counter leaves the current contract untouched.
func (s *Service) OfferPlayerContract(ctx context.Context, teamID, playerID uint, salary int64, years int) (*OfferOutcome, error) {
	if years < minContractYears || years > maxContractYears {
		return nil, apperr.ErrInvalidRoster
	}
	var outcome *OfferOutcome
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.First(&player, playerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrPlayerNotFound
			}
			return err
		}
		if player.TeamID != teamID || player.Retired {
			return apperr.ErrPlayerNotFound
		}

		var err error
		outcome, err = EvaluateOffer(salary, PlayerValue(&player))
		if err != nil {
			return err
		}
		if !outcome.Accepted {
			return nil
		}
		return signContract(tx, &models.Contract{
			TeamID:       teamID,
			Party:        models.PartyPlayer,
			PlayerID:     &player.ID,
			AnnualSalary: salary,
			YearsLeft:    years,
			Active:       true,
		})
	})
	if err != nil {
		return nil, err
	}
	if outcome.Accepted {
		s.logger.Infof("Player %d signed with team %d: %d/yr for %d years", playerID, teamID, salary, years)
	}
	return outcome, nil
}

// OfferStaffContract negotiates with a staff member the same way.
func (s *Service) OfferStaffContract(ctx context.Context, teamID, staffID uint, salary int64, years int) (*OfferOutcome, error) {
	if years < minContractYears || years > maxContractYears {
		return nil, apperr.ErrInvalidRoster
	}
	var outcome *OfferOutcome
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var staff models.Staff
		if err := tx.First(&staff, staffID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrPlayerNotFound
			}
			return err
		}
		if staff.TeamID != teamID {
			return apperr.ErrPlayerNotFound
		}

		var err error
		outcome, err = EvaluateOffer(salary, StaffValue(&staff))
		if err != nil {
			return err
		}
		if !outcome.Accepted {
			return nil
		}
		return signContract(tx, &models.Contract{
			TeamID:       teamID,
			Party:        models.PartyStaff,
			StaffID:      &staff.ID,
			AnnualSalary: salary,
			YearsLeft:    years,
			Active:       true,
		})
	})
	if err != nil {
		return nil, err
	}
	if outcome.Accepted {
		s.logger.Infof("Staff %d signed with team %d: %d/yr for %d years", staffID, teamID, salary, years)
	}
	return outcome, nil
}

// signContract deactivates the party's previous contract and records the
// new one.
func signContract(tx *gorm.DB, contract *models.Contract) error {
	q := tx.Model(&models.Contract{}).Where("active = ?", true)
	if contract.PlayerID != nil {
		q = q.Where("player_id = ?", *contract.PlayerID)
	} else {
		q = q.Where("staff_id = ?", *contract.StaffID)
	}
	if err := q.Update("active", false).Error; err != nil {
		return fmt.Errorf("failed to retire previous contract: %w", err)
	}
	if err := tx.Create(contract).Error; err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}
