package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jimmy058910/replitballgame-sub006/internal/api/middleware"
	"github.com/jimmy058910/replitballgame-sub006/internal/marketplace"
	"github.com/jimmy058910/replitballgame-sub006/pkg/utils"
)

type MarketHandler struct {
	market *marketplace.Service
}

func NewMarketHandler(market *marketplace.Service) *MarketHandler {
	return &MarketHandler{market: market}
}

// ListMarket returns all active listings, soonest expiry first.
func (h *MarketHandler) ListMarket(c *gin.Context) {
	listings, err := h.market.ActiveListings(c.Request.Context())
	if err != nil {
		utils.SendInternalError(c, "Failed to load market")
		return
	}
	utils.SendList(c, listings, len(listings))
}

// GetListing returns one listing.
func (h *MarketHandler) GetListing(c *gin.Context) {
	listingID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid listing ID", "")
		return
	}
	listing, err := h.market.GetListing(c.Request.Context(), listingID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, listing)
}

// GetBidHistory returns a listing's bids, newest first.
func (h *MarketHandler) GetBidHistory(c *gin.Context) {
	listingID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid listing ID", "")
		return
	}
	bids, err := h.market.ListingHistory(c.Request.Context(), listingID)
	if err != nil {
		utils.SendInternalError(c, "Failed to load bid history")
		return
	}
	utils.SendList(c, bids, len(bids))
}

type createListingRequest struct {
	PlayerID      uint   `json:"player_id" binding:"required"`
	StartBid      int64  `json:"start_bid" binding:"required,gt=0"`
	BuyNow        *int64 `json:"buy_now"`
	DurationHours int    `json:"duration_hours" binding:"required"`
}

// CreateListing puts one of the team's players up for auction.
func (h *MarketHandler) CreateListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid listing", err.Error())
		return
	}
	listing, err := h.market.List(c.Request.Context(), middleware.TeamID(c), req.PlayerID,
		req.StartBid, req.BuyNow, time.Duration(req.DurationHours)*time.Hour, time.Now())
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, listing)
}

type bidRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// PlaceBid escrows a bid on a listing.
func (h *MarketHandler) PlaceBid(c *gin.Context) {
	listingID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid listing ID", "")
		return
	}
	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid bid", err.Error())
		return
	}
	if err := h.market.Bid(c.Request.Context(), listingID, middleware.TeamID(c), req.Amount, time.Now()); err != nil {
		sendDomainError(c, err)
		return
	}
	listing, err := h.market.GetListing(c.Request.Context(), listingID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, listing)
}

// BuyNow completes the listing at the posted price.
func (h *MarketHandler) BuyNow(c *gin.Context) {
	listingID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid listing ID", "")
		return
	}
	if err := h.market.BuyNow(c.Request.Context(), listingID, middleware.TeamID(c), time.Now()); err != nil {
		sendDomainError(c, err)
		return
	}
	listing, err := h.market.GetListing(c.Request.Context(), listingID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, listing)
}

// CancelListing withdraws a bid-free listing. The listing fee stays spent.
func (h *MarketHandler) CancelListing(c *gin.Context) {
	listingID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid listing ID", "")
		return
	}
	if err := h.market.CancelListing(c.Request.Context(), listingID, middleware.TeamID(c), time.Now()); err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"cancelled": true})
}
