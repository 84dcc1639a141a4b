package models

import (
	"time"
)

type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingSold      ListingStatus = "SOLD"
	ListingExpired   ListingStatus = "EXPIRED"
	ListingCancelled ListingStatus = "CANCELLED"
)

const (
	// MaxActiveListings caps concurrent listings per seller.
	MaxActiveListings = 3
	// AntiSnipeWindow extends expiry when a bid lands inside it.
	AntiSnipeWindow = 60 * time.Second
	// AntiSnipeExtension is added per late bid, at most MaxExtensions times.
	AntiSnipeExtension = 60 * time.Second
	MaxExtensions      = 5
)

type MarketplaceListing struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	SellerTeamID uint          `gorm:"not null;index" json:"seller_team_id"`
	PlayerID     uint          `gorm:"not null;index" json:"player_id"`
	Status       ListingStatus `gorm:"not null;default:ACTIVE;index" json:"status"`

	StartBid int64  `gorm:"not null" json:"start_bid"`
	BuyNow   *int64 `json:"buy_now,omitempty"`
	// BuyNowOnly listings accept no auction bids (offseason rule).
	BuyNowOnly bool `gorm:"not null;default:false" json:"buy_now_only"`

	CurrentBid      int64 `gorm:"not null;default:0" json:"current_bid"`
	CurrentBidderID *uint `gorm:"index" json:"current_bidder_id,omitempty"`

	OriginalExpiry time.Time `gorm:"not null" json:"original_expiry"`
	ExpiresAt      time.Time `gorm:"not null;index" json:"expires_at"`
	ExtensionsUsed int       `gorm:"not null;default:0" json:"extensions_used"`

	SoldPrice *int64     `json:"sold_price,omitempty"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (MarketplaceListing) TableName() string {
	return "marketplace_listings"
}

// ListingBid is the append-only bid history for a listing.
type ListingBid struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ListingID uint      `gorm:"not null;index" json:"listing_id"`
	TeamID    uint      `gorm:"not null;index" json:"team_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

func (ListingBid) TableName() string {
	return "listing_bids"
}
