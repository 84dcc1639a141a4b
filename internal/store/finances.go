package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
)

// financesForUpdate loads a team's balance row under FOR UPDATE so
// concurrent financial mutations serialize per team.
func financesForUpdate(tx *gorm.DB, teamID uint) (*models.TeamFinances, error) {
	var fin models.TeamFinances
	err := LockForUpdate(tx).Where("team_id = ?", teamID).First(&fin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load finances for team %d: %w", teamID, err)
	}
	return &fin, nil
}

// ReserveBid moves amount from free credits to escrow. Fails with
// ErrInsufficientCredits when the free balance would go negative.
func ReserveBid(tx *gorm.DB, teamID uint, amount int64, reference string) error {
	fin, err := financesForUpdate(tx, teamID)
	if err != nil {
		return err
	}
	if fin.Credits-amount < 0 {
		return apperr.ErrInsufficientCredits
	}
	fin.Credits -= amount
	fin.EscrowCredits += amount
	if err := tx.Save(fin).Error; err != nil {
		return fmt.Errorf("failed to reserve bid: %w", err)
	}
	return writeLedger(tx, teamID, -amount, 0, amount, models.LedgerBidReserve, reference)
}

// ReleaseBid moves amount from escrow back to free credits, e.g. when a
// bidder is outbid or loses at settlement.
func ReleaseBid(tx *gorm.DB, teamID uint, amount int64, reference string) error {
	fin, err := financesForUpdate(tx, teamID)
	if err != nil {
		return err
	}
	if fin.EscrowCredits-amount < 0 {
		return apperr.Invariantf("escrow release of %d exceeds escrow balance %d for team %d", amount, fin.EscrowCredits, teamID)
	}
	fin.Credits += amount
	fin.EscrowCredits -= amount
	if err := tx.Save(fin).Error; err != nil {
		return fmt.Errorf("failed to release bid: %w", err)
	}
	return writeLedger(tx, teamID, amount, 0, -amount, models.LedgerBidRelease, reference)
}

// SpendEscrow consumes escrowed credits to complete a purchase.
func SpendEscrow(tx *gorm.DB, teamID uint, amount int64, reference string) error {
	fin, err := financesForUpdate(tx, teamID)
	if err != nil {
		return err
	}
	if fin.EscrowCredits-amount < 0 {
		return apperr.Invariantf("escrow spend of %d exceeds escrow balance %d for team %d", amount, fin.EscrowCredits, teamID)
	}
	fin.EscrowCredits -= amount
	if err := tx.Save(fin).Error; err != nil {
		return fmt.Errorf("failed to spend escrow: %w", err)
	}
	return writeLedger(tx, teamID, 0, 0, -amount, models.LedgerPurchase, reference)
}

// CreditTeam adds credits to a team's free balance.
func CreditTeam(tx *gorm.DB, teamID uint, amount int64, reason models.LedgerReason, reference string) error {
	fin, err := financesForUpdate(tx, teamID)
	if err != nil {
		return err
	}
	fin.Credits += amount
	if err := tx.Save(fin).Error; err != nil {
		return fmt.Errorf("failed to credit team: %w", err)
	}
	return writeLedger(tx, teamID, amount, 0, 0, reason, reference)
}

// DebitTeam removes credits from a team's free balance, failing if it
// would go negative.
func DebitTeam(tx *gorm.DB, teamID uint, amount int64, reason models.LedgerReason, reference string) error {
	fin, err := financesForUpdate(tx, teamID)
	if err != nil {
		return err
	}
	if fin.Credits-amount < 0 {
		return apperr.ErrInsufficientCredits
	}
	fin.Credits -= amount
	if err := tx.Save(fin).Error; err != nil {
		return fmt.Errorf("failed to debit team: %w", err)
	}
	return writeLedger(tx, teamID, -amount, 0, 0, reason, reference)
}

// ForceDebitTeam removes credits and permits a negative balance. Used
// only for contractual obligations (rollover salaries).
func ForceDebitTeam(tx *gorm.DB, teamID uint, amount int64, reason models.LedgerReason, reference string) error {
	fin, err := financesForUpdate(tx, teamID)
	if err != nil {
		return err
	}
	fin.Credits -= amount
	if err := tx.Save(fin).Error; err != nil {
		return fmt.Errorf("failed to debit team: %w", err)
	}
	return writeLedger(tx, teamID, -amount, 0, 0, reason, reference)
}

// DebitGems removes gems, failing if the balance would go negative.
func DebitGems(tx *gorm.DB, teamID uint, amount int32, reason models.LedgerReason, reference string) error {
	fin, err := financesForUpdate(tx, teamID)
	if err != nil {
		return err
	}
	if fin.Gems-amount < 0 {
		return apperr.ErrInsufficientGems
	}
	fin.Gems -= amount
	if err := tx.Save(fin).Error; err != nil {
		return fmt.Errorf("failed to debit gems: %w", err)
	}
	return writeLedger(tx, teamID, 0, -amount, 0, reason, reference)
}

// CreditGems adds gems to a team's balance.
func CreditGems(tx *gorm.DB, teamID uint, amount int32, reason models.LedgerReason, reference string) error {
	fin, err := financesForUpdate(tx, teamID)
	if err != nil {
		return err
	}
	fin.Gems += amount
	if err := tx.Save(fin).Error; err != nil {
		return fmt.Errorf("failed to credit gems: %w", err)
	}
	return writeLedger(tx, teamID, 0, amount, 0, reason, reference)
}

func writeLedger(tx *gorm.DB, teamID uint, credits int64, gems int32, escrow int64, reason models.LedgerReason, reference string) error {
	entry := models.FinancialLedger{
		TeamID:       teamID,
		CreditsDelta: credits,
		GemsDelta:    gems,
		EscrowDelta:  escrow,
		Reason:       reason,
		Reference:    reference,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}
	return nil
}

// Finances returns a team's current balances.
func (s *Store) Finances(ctx context.Context, teamID uint) (*models.TeamFinances, error) {
	var fin models.TeamFinances
	err := s.db.DB.WithContext(ctx).Where("team_id = ?", teamID).First(&fin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load finances: %w", err)
	}
	return &fin, nil
}
