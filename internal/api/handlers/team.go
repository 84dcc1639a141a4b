package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jimmy058910/replitballgame-sub006/internal/api/middleware"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/progression"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/pkg/utils"
)

type TeamHandler struct {
	store       *store.Store
	progression *progression.Service
}

func NewTeamHandler(st *store.Store, prog *progression.Service) *TeamHandler {
	return &TeamHandler{store: st, progression: prog}
}

// GetTeam returns a team with its active roster and staff.
func (h *TeamHandler) GetTeam(c *gin.Context) {
	teamID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid team ID", "")
		return
	}
	team, err := h.store.GetTeamWithRoster(c.Request.Context(), teamID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, team)
}

// GetFinances returns the authenticated team's balances and recent ledger.
func (h *TeamHandler) GetFinances(c *gin.Context) {
	teamID := middleware.TeamID(c)

	var fin models.TeamFinances
	if err := h.store.DB().WithContext(c.Request.Context()).
		Where("team_id = ?", teamID).First(&fin).Error; err != nil {
		utils.SendNotFound(c, "Finances not found")
		return
	}
	var ledger []models.FinancialLedger
	if err := h.store.DB().WithContext(c.Request.Context()).
		Where("team_id = ?", teamID).
		Order("id desc").Limit(50).
		Find(&ledger).Error; err != nil {
		utils.SendInternalError(c, "Failed to load ledger")
		return
	}
	utils.SendSuccess(c, gin.H{"finances": fin, "ledger": ledger})
}

// GetPlayer returns one player with derived valuation figures.
func (h *TeamHandler) GetPlayer(c *gin.Context) {
	playerID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid player ID", "")
		return
	}
	player, err := h.store.GetPlayer(c.Request.Context(), playerID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	value := progression.PlayerValue(player)
	utils.SendSuccess(c, gin.H{
		"player":       player,
		"value":        value,
		"salary_floor": progression.SalaryFloor(value),
		"car":          player.CAR(),
	})
}

type contractOfferRequest struct {
	PlayerID *uint `json:"player_id"`
	StaffID  *uint `json:"staff_id"`
	Salary   int64 `json:"salary" binding:"required,gt=0"`
	Years    int   `json:"years" binding:"required,min=1,max=3"`
}

// OfferContract negotiates a contract for one of the team's players or
// staff. The response carries either the acceptance or the counter offer.
func (h *TeamHandler) OfferContract(c *gin.Context) {
	var req contractOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid contract offer", err.Error())
		return
	}
	if (req.PlayerID == nil) == (req.StaffID == nil) {
		utils.SendValidationError(c, "Offer exactly one of player_id or staff_id", "")
		return
	}
	teamID := middleware.TeamID(c)

	var (
		outcome *progression.OfferOutcome
		err     error
	)
	if req.PlayerID != nil {
		outcome, err = h.progression.OfferPlayerContract(c.Request.Context(), teamID, *req.PlayerID, req.Salary, req.Years)
	} else {
		outcome, err = h.progression.OfferStaffContract(c.Request.Context(), teamID, *req.StaffID, req.Salary, req.Years)
	}
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, outcome)
}

// MoveToTaxiSquad parks one of the team's players on the taxi squad.
func (h *TeamHandler) MoveToTaxiSquad(c *gin.Context) {
	playerID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid player ID", "")
		return
	}
	teamID := middleware.TeamID(c)
	if err := h.store.MoveToTaxiSquad(c.Request.Context(), teamID, playerID); err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"player_id": playerID, "on_taxi_squad": true})
}

// PromoteFromTaxiSquad returns a taxi-squad player to the main roster.
// Only legal during the offseason.
func (h *TeamHandler) PromoteFromTaxiSquad(c *gin.Context) {
	playerID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid player ID", "")
		return
	}
	teamID := middleware.TeamID(c)
	if err := h.store.PromoteFromTaxiSquad(c.Request.Context(), teamID, playerID); err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"player_id": playerID, "on_taxi_squad": false})
}

// ListContracts returns the team's active contracts.
func (h *TeamHandler) ListContracts(c *gin.Context) {
	teamID := middleware.TeamID(c)
	var contracts []models.Contract
	err := h.store.DB().WithContext(c.Request.Context()).
		Where("team_id = ? AND active = ?", teamID, true).
		Order("id asc").
		Find(&contracts).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to load contracts")
		return
	}
	utils.SendSuccess(c, contracts)
}

func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	return uint(id), err
}
