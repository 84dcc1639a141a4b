package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/services"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/pkg/utils"
)

const standingsCacheTTL = 30 * time.Second

type SeasonHandler struct {
	store *store.Store
	cache *services.CacheService
}

func NewSeasonHandler(st *store.Store, cache *services.CacheService) *SeasonHandler {
	return &SeasonHandler{store: st, cache: cache}
}

// GetCurrentSeason returns the season row the whole calendar hangs off.
func (h *SeasonHandler) GetCurrentSeason(c *gin.Context) {
	season, err := h.store.CurrentSeason(c.Request.Context())
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, season)
}

// GetStandings returns one subdivision's table in standings order.
func (h *SeasonHandler) GetStandings(c *gin.Context) {
	division, err := strconv.Atoi(c.Param("division"))
	if err != nil || division < 1 || division > models.MaxDivision {
		utils.SendValidationError(c, "Invalid division", "")
		return
	}
	subdivision := c.Query("subdivision")
	if subdivision == "" {
		subdivisions, err := h.store.Subdivisions(c.Request.Context(), division)
		if err != nil || len(subdivisions) == 0 {
			utils.SendNotFound(c, "No subdivisions in division")
			return
		}
		subdivision = subdivisions[0]
	}

	season, err := h.store.CurrentSeason(c.Request.Context())
	if err != nil {
		sendDomainError(c, err)
		return
	}

	key := services.StandingsCacheKey(season.Number, division, subdivision)
	var teams []models.Team
	if err := h.cache.Get(c.Request.Context(), key, &teams); err == nil {
		utils.SendSuccess(c, teams)
		return
	}

	teams, err = h.store.ListTeamsInSubdivision(c.Request.Context(), division, subdivision)
	if err != nil {
		utils.SendInternalError(c, "Failed to load standings")
		return
	}
	_ = h.cache.Set(c.Request.Context(), key, teams, standingsCacheTTL)
	utils.SendSuccess(c, teams)
}

// GetHistory returns a season's archived final standings.
func (h *SeasonHandler) GetHistory(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		utils.SendValidationError(c, "Invalid season number", "")
		return
	}
	var standings []models.SeasonStanding
	err = h.store.DB().WithContext(c.Request.Context()).
		Where("season_number = ?", number).
		Order("division asc, subdivision asc, rank asc").
		Find(&standings).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to load season history")
		return
	}
	utils.SendSuccess(c, standings)
}
