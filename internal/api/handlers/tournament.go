package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jimmy058910/replitballgame-sub006/internal/api/middleware"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/services"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/internal/tournament"
	"github.com/jimmy058910/replitballgame-sub006/pkg/utils"
)

const bracketCacheTTL = 15 * time.Second

type TournamentHandler struct {
	store       *store.Store
	tournaments *tournament.Service
	cache       *services.CacheService
}

func NewTournamentHandler(st *store.Store, tournaments *tournament.Service, cache *services.CacheService) *TournamentHandler {
	return &TournamentHandler{store: st, tournaments: tournaments, cache: cache}
}

// ListOpen returns tournaments currently accepting registrations.
func (h *TournamentHandler) ListOpen(c *gin.Context) {
	var open []models.Tournament
	err := h.store.DB().WithContext(c.Request.Context()).
		Where("status = ?", models.TournamentRegistering).
		Order("registration_closes asc").
		Find(&open).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to load tournaments")
		return
	}
	utils.SendSuccess(c, open)
}

// GetTournament returns one tournament with entries.
func (h *TournamentHandler) GetTournament(c *gin.Context) {
	tournamentID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid tournament ID", "")
		return
	}
	t, err := h.tournaments.GetTournament(c.Request.Context(), tournamentID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	entries, err := h.tournaments.Entries(c.Request.Context(), tournamentID)
	if err != nil {
		utils.SendInternalError(c, "Failed to load entries")
		return
	}
	utils.SendSuccess(c, gin.H{"tournament": t, "entries": entries})
}

type bracketView struct {
	Tournament *models.Tournament `json:"tournament"`
	Games      []models.Game      `json:"games"`
}

// GetBracket returns the tournament's games in bracket order.
func (h *TournamentHandler) GetBracket(c *gin.Context) {
	tournamentID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid tournament ID", "")
		return
	}

	key := services.BracketCacheKey(tournamentID)
	var view bracketView
	if err := h.cache.Get(c.Request.Context(), key, &view); err == nil {
		utils.SendSuccess(c, view)
		return
	}

	t, err := h.tournaments.GetTournament(c.Request.Context(), tournamentID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	var games []models.Game
	err = h.store.DB().WithContext(c.Request.Context()).
		Where("tournament_id = ?", tournamentID).
		Order("scheduled_at asc, id asc").
		Find(&games).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to load bracket")
		return
	}
	view = bracketView{Tournament: t, Games: games}
	_ = h.cache.Set(c.Request.Context(), key, view, bracketCacheTTL)
	utils.SendSuccess(c, view)
}

type registerRequest struct {
	PayWithGems bool `json:"pay_with_gems"`
}

// Register enters the authenticated team.
func (h *TournamentHandler) Register(c *gin.Context) {
	tournamentID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid tournament ID", "")
		return
	}
	var req registerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid registration", err.Error())
			return
		}
	}
	err = h.tournaments.Register(c.Request.Context(), tournamentID, middleware.TeamID(c), req.PayWithGems, time.Now())
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"registered": true})
}

// Withdraw cancels the team's entry before registration closes.
func (h *TournamentHandler) Withdraw(c *gin.Context) {
	tournamentID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid tournament ID", "")
		return
	}
	err = h.tournaments.CancelEntry(c.Request.Context(), tournamentID, middleware.TeamID(c), time.Now())
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"withdrawn": true})
}
