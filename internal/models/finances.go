package models

import (
	"time"
)

// TeamFinances tracks the two virtual currencies. Escrow is a dedicated
// column so refunds never race with spends. Credits may go negative only
// through salary payment at rollover; a negative balance blocks new
// marketplace listings until restored.
type TeamFinances struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	TeamID uint `gorm:"not null;uniqueIndex" json:"team_id"`

	Credits       int64 `gorm:"not null;default:50000" json:"credits"`
	Gems          int32 `gorm:"not null;default:0" json:"gems"`
	EscrowCredits int64 `gorm:"not null;default:0" json:"escrow_credits"`
	EscrowGems    int32 `gorm:"not null;default:0" json:"escrow_gems"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TeamFinances) TableName() string {
	return "team_finances"
}

type LedgerReason string

const (
	LedgerBidReserve     LedgerReason = "BID_RESERVE"
	LedgerBidRelease     LedgerReason = "BID_RELEASE"
	LedgerPurchase       LedgerReason = "PURCHASE"
	LedgerSaleProceeds   LedgerReason = "SALE_PROCEEDS"
	LedgerListingFee     LedgerReason = "LISTING_FEE"
	LedgerMarketTax      LedgerReason = "MARKET_TAX"
	LedgerPrize          LedgerReason = "PRIZE"
	LedgerEntryFee       LedgerReason = "ENTRY_FEE"
	LedgerEntryRefund    LedgerReason = "ENTRY_REFUND"
	LedgerSalary         LedgerReason = "SALARY"
	LedgerStadiumRevenue LedgerReason = "STADIUM_REVENUE"
	LedgerMaintenance    LedgerReason = "MAINTENANCE"
)

// FinancialLedger is append-only. Every balance mutation writes a row in
// the same transaction; per-team deltas must always sum to the current
// balance.
type FinancialLedger struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	TeamID uint `gorm:"not null;index" json:"team_id"`

	CreditsDelta int64        `gorm:"not null;default:0" json:"credits_delta"`
	GemsDelta    int32        `gorm:"not null;default:0" json:"gems_delta"`
	EscrowDelta  int64        `gorm:"not null;default:0" json:"escrow_delta"`
	Reason       LedgerReason `gorm:"not null" json:"reason"`
	Reference    string       `json:"reference"` // e.g. "listing:42", "game:917"

	CreatedAt time.Time `json:"created_at"`
}

func (FinancialLedger) TableName() string {
	return "financial_ledger"
}
