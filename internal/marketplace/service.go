// Package marketplace runs the player auction house: timed listings with
// escrowed bids, anti-snipe extensions, buy-now purchases and taxed
// settlement. Every credit movement goes through the store's escrow and
// ledger primitives inside one transaction per operation.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jimmy058910/replitballgame-sub006/internal/apperr"
	"github.com/jimmy058910/replitballgame-sub006/internal/clock"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/pkg/config"
)

const (
	minListingDuration = 12 * time.Hour
	maxListingDuration = 72 * time.Hour

	// Minimum bid increments: flat floor or a percentage of the standing
	// bid, whichever is larger.
	minIncrementFlat    = 100
	minIncrementPercent = 5

	// Offseason listings close before the day-17 rollover work begins.
	offseasonCloseHour = 2
)

type Service struct {
	store  *store.Store
	clock  *clock.GameClock
	cfg    *config.Config
	logger *logrus.Logger
}

func NewService(st *store.Store, gameClock *clock.GameClock, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{store: st, clock: gameClock, cfg: cfg, logger: logger}
}

// GetListing loads one listing.
func (s *Service) GetListing(ctx context.Context, listingID uint) (*models.MarketplaceListing, error) {
	var listing models.MarketplaceListing
	err := s.store.DB().WithContext(ctx).First(&listing, listingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %d: %w", listingID, err)
	}
	return &listing, nil
}

// ActiveListings returns the open market, soonest expiry first.
func (s *Service) ActiveListings(ctx context.Context) ([]models.MarketplaceListing, error) {
	var listings []models.MarketplaceListing
	err := s.store.DB().WithContext(ctx).
		Where("status = ?", models.ListingActive).
		Order("expires_at asc").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list market: %w", err)
	}
	return listings, nil
}

// ListingHistory returns a listing's bid history, newest first.
func (s *Service) ListingHistory(ctx context.Context, listingID uint) ([]models.ListingBid, error) {
	var bids []models.ListingBid
	err := s.store.DB().WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("id desc").
		Find(&bids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load bid history: %w", err)
	}
	return bids, nil
}

// List puts a player up for auction. The non-refundable listing fee is a
// percentage of the start bid. During the offseason only buy-now listings
// are accepted and they close at 02:00 on day 17.
func (s *Service) List(ctx context.Context, sellerTeamID, playerID uint, startBid int64, buyNow *int64, duration time.Duration, now time.Time) (*models.MarketplaceListing, error) {
	if startBid <= 0 {
		return nil, apperr.ErrBidTooLow
	}
	if duration < minListingDuration {
		duration = minListingDuration
	}
	if duration > maxListingDuration {
		duration = maxListingDuration
	}

	season, err := s.store.CurrentSeason(ctx)
	if err != nil {
		return nil, err
	}
	offseason := season.Phase == models.PhaseOffseason

	expiry := now.Add(duration)
	if offseason {
		if buyNow == nil {
			return nil, apperr.ErrInvalidRoster
		}
		cutoff := s.finalCloseout(season, now)
		if expiry.After(cutoff) {
			expiry = cutoff
		}
		if !expiry.After(now) {
			return nil, apperr.ErrRegistrationClosed
		}
	}

	var listing *models.MarketplaceListing
	err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var player models.Player
		if err := tx.First(&player, playerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrPlayerNotFound
			}
			return err
		}
		if player.TeamID != sellerTeamID || player.Retired {
			return apperr.ErrInvalidRoster
		}

		var open int64
		if err := tx.Model(&models.MarketplaceListing{}).
			Where("seller_team_id = ? AND status = ?", sellerTeamID, models.ListingActive).
			Count(&open).Error; err != nil {
			return err
		}
		if open >= models.MaxActiveListings {
			return apperr.ErrDailyLimitReached
		}
		var alreadyListed int64
		if err := tx.Model(&models.MarketplaceListing{}).
			Where("player_id = ? AND status = ?", playerID, models.ListingActive).
			Count(&alreadyListed).Error; err != nil {
			return err
		}
		if alreadyListed > 0 {
			return apperr.ErrListingBusy
		}

		// The roster must stay legal if everything listed sells.
		var rosterSize int64
		if err := tx.Model(&models.Player{}).
			Where("team_id = ? AND retired = ?", sellerTeamID, false).
			Count(&rosterSize).Error; err != nil {
			return err
		}
		if rosterSize-open-1 < models.MinRosterSize {
			return apperr.ErrInvalidRoster
		}

		var fin models.TeamFinances
		if err := tx.Where("team_id = ?", sellerTeamID).First(&fin).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrTeamNotFound
			}
			return err
		}
		if fin.Credits < 0 {
			return apperr.ErrInsufficientCredits
		}

		// The fee keys off the buy-now price when one is set; an auction
		// without one is charged on the start bid.
		feeBase := startBid
		if buyNow != nil {
			feeBase = *buyNow
		}
		fee := feeBase * int64(s.cfg.ListingFeePercent) / 100
		listing = &models.MarketplaceListing{
			SellerTeamID:   sellerTeamID,
			PlayerID:       playerID,
			Status:         models.ListingActive,
			StartBid:       startBid,
			BuyNow:         buyNow,
			BuyNowOnly:     offseason,
			OriginalExpiry: expiry,
			ExpiresAt:      expiry,
		}
		if err := tx.Create(listing).Error; err != nil {
			return fmt.Errorf("failed to create listing: %w", err)
		}
		if fee > 0 {
			if err := store.DebitTeam(tx, sellerTeamID, fee, models.LedgerListingFee, fmt.Sprintf("listing:%d", listing.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Listing %d created: player %d, start %d", listing.ID, playerID, startBid)
	return listing, nil
}

// Bid places an escrowed bid. The previous leader's escrow is released in
// the same transaction, and a bid inside the anti-snipe window extends the
// auction, at most MaxExtensions times, after which the deadline is hard.
func (s *Service) Bid(ctx context.Context, listingID, teamID uint, amount int64, now time.Time) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var listing models.MarketplaceListing
		err := store.LockForUpdate(tx).First(&listing, listingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrListingNotFound
		}
		if err != nil {
			return err
		}
		if listing.Status != models.ListingActive || listing.BuyNowOnly || !now.Before(listing.ExpiresAt) {
			return apperr.ErrAuctionClosed
		}
		if listing.SellerTeamID == teamID {
			return apperr.ErrSelfBid
		}
		if amount < minimumBid(&listing) {
			return apperr.ErrBidTooLow
		}

		reference := fmt.Sprintf("listing:%d", listing.ID)
		if err := store.ReserveBid(tx, teamID, amount, reference); err != nil {
			return err
		}
		if listing.CurrentBidderID != nil {
			if err := store.ReleaseBid(tx, *listing.CurrentBidderID, listing.CurrentBid, reference); err != nil {
				return err
			}
		}

		bid := models.ListingBid{ListingID: listing.ID, TeamID: teamID, Amount: amount}
		if err := tx.Create(&bid).Error; err != nil {
			return fmt.Errorf("failed to record bid: %w", err)
		}

		updates := map[string]interface{}{
			"current_bid":       amount,
			"current_bidder_id": teamID,
		}
		if listing.ExpiresAt.Sub(now) <= models.AntiSnipeWindow && listing.ExtensionsUsed < s.cfg.MaxAuctionExtensions {
			updates["expires_at"] = listing.ExpiresAt.Add(models.AntiSnipeExtension)
			updates["extensions_used"] = listing.ExtensionsUsed + 1
		}
		return tx.Model(&listing).Updates(updates).Error
	})
}

// BuyNow completes the listing immediately at the posted price.
func (s *Service) BuyNow(ctx context.Context, listingID, teamID uint, now time.Time) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var listing models.MarketplaceListing
		err := store.LockForUpdate(tx).First(&listing, listingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrListingNotFound
		}
		if err != nil {
			return err
		}
		if listing.Status != models.ListingActive || listing.BuyNow == nil || !now.Before(listing.ExpiresAt) {
			return apperr.ErrAuctionClosed
		}
		if listing.SellerTeamID == teamID {
			return apperr.ErrSelfBid
		}

		price := *listing.BuyNow
		reference := fmt.Sprintf("listing:%d", listing.ID)
		if err := store.DebitTeam(tx, teamID, price, models.LedgerPurchase, reference); err != nil {
			return err
		}
		if listing.CurrentBidderID != nil {
			if err := store.ReleaseBid(tx, *listing.CurrentBidderID, listing.CurrentBid, reference); err != nil {
				return err
			}
		}
		return s.closeSale(tx, &listing, teamID, price, now)
	})
}

// CancelListing withdraws a listing that has attracted no bids. The
// listing fee is not refunded.
func (s *Service) CancelListing(ctx context.Context, listingID, teamID uint, now time.Time) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var listing models.MarketplaceListing
		err := store.LockForUpdate(tx).First(&listing, listingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrListingNotFound
		}
		if err != nil {
			return err
		}
		if listing.SellerTeamID != teamID {
			return apperr.ErrListingNotFound
		}
		if listing.Status != models.ListingActive {
			return apperr.ErrAuctionClosed
		}
		if listing.CurrentBidderID != nil {
			return apperr.ErrListingBusy
		}
		return tx.Model(&listing).Update("status", models.ListingCancelled).Error
	})
}

// SettleExpired closes every listing past its deadline: the standing bid
// wins and pays from escrow, or the listing expires unsold. Called from
// the scheduler tick.
func (s *Service) SettleExpired(ctx context.Context, now time.Time) error {
	return s.settle(ctx, now, false)
}

// CloseAll settles or expires every active listing regardless of
// deadline. Runs at the day-17 closeout before rollover.
func (s *Service) CloseAll(ctx context.Context, now time.Time) error {
	return s.settle(ctx, now, true)
}

func (s *Service) settle(ctx context.Context, now time.Time, force bool) error {
	q := s.store.DB().WithContext(ctx).Model(&models.MarketplaceListing{}).
		Where("status = ?", models.ListingActive)
	if !force {
		q = q.Where("expires_at <= ?", now)
	}
	var ids []uint
	if err := q.Order("id asc").Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to scan expired listings: %w", err)
	}
	for _, id := range ids {
		if err := s.settleOne(ctx, id, now, force); err != nil {
			s.logger.WithError(err).Errorf("Settlement failed for listing %d", id)
		}
	}
	return nil
}

func (s *Service) settleOne(ctx context.Context, listingID uint, now time.Time, force bool) error {
	return s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var listing models.MarketplaceListing
		err := store.LockForUpdate(tx).First(&listing, listingID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrListingNotFound
		}
		if err != nil {
			return err
		}
		if listing.Status != models.ListingActive {
			return nil
		}
		if !force && now.Before(listing.ExpiresAt) {
			return nil // extended since the scan
		}

		if listing.CurrentBidderID == nil {
			return tx.Model(&listing).Updates(map[string]interface{}{
				"status":     models.ListingExpired,
				"settled_at": now,
			}).Error
		}

		winner := *listing.CurrentBidderID
		price := listing.CurrentBid
		reference := fmt.Sprintf("listing:%d", listing.ID)
		if err := store.SpendEscrow(tx, winner, price, reference); err != nil {
			return err
		}
		return s.closeSale(tx, &listing, winner, price, now)
	})
}

// closeSale transfers the player, pays the seller net of market tax, and
// marks the listing sold. Caller has already collected the buyer's funds.
func (s *Service) closeSale(tx *gorm.DB, listing *models.MarketplaceListing, buyerTeamID uint, price int64, now time.Time) error {
	reference := fmt.Sprintf("listing:%d", listing.ID)
	tax := price * int64(s.cfg.MarketTaxPercent) / 100
	proceeds := price - tax

	if err := store.CreditTeam(tx, listing.SellerTeamID, proceeds, models.LedgerSaleProceeds, reference); err != nil {
		return err
	}
	res := tx.Model(&models.Player{}).
		Where("id = ? AND team_id = ?", listing.PlayerID, listing.SellerTeamID).
		Updates(map[string]interface{}{"team_id": buyerTeamID, "on_taxi_squad": false})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Invariantf("listing %d player %d no longer belongs to seller %d",
			listing.ID, listing.PlayerID, listing.SellerTeamID)
	}

	if err := tx.Model(listing).Updates(map[string]interface{}{
		"status":     models.ListingSold,
		"sold_price": price,
		"settled_at": now,
	}).Error; err != nil {
		return err
	}
	s.logger.Infof("Listing %d sold: player %d to team %d for %d (tax %d)",
		listing.ID, listing.PlayerID, buyerTeamID, price, tax)
	return nil
}

// minimumBid is the least acceptable next bid.
func minimumBid(listing *models.MarketplaceListing) int64 {
	if listing.CurrentBidderID == nil {
		return listing.StartBid
	}
	increment := listing.CurrentBid * minIncrementPercent / 100
	if increment < minIncrementFlat {
		increment = minIncrementFlat
	}
	return listing.CurrentBid + increment
}

// finalCloseout is 02:00 within game day 17: one hour before the day-18
// boundary that triggers rollover.
func (s *Service) finalCloseout(season *models.Season, now time.Time) time.Time {
	endOfSeason := s.clock.SeasonStartBoundary(season.StartedAt).AddDate(0, 0, clock.SeasonLength)
	return s.clock.LocalHourMinute(endOfSeason, offseasonCloseHour, 0)
}
