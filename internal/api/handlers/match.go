package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jimmy058910/replitballgame-sub006/internal/api/middleware"
	"github.com/jimmy058910/replitballgame-sub006/internal/live"
	"github.com/jimmy058910/replitballgame-sub006/internal/models"
	"github.com/jimmy058910/replitballgame-sub006/internal/services"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/pkg/utils"
)

const (
	streamBuffer     = 256
	liveListCacheTTL = 5 * time.Second
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
)

type MatchHandler struct {
	store  *store.Store
	live   *live.Manager
	cache  *services.CacheService
	logger *logrus.Logger

	upgrader websocket.Upgrader
}

func NewMatchHandler(st *store.Store, liveMgr *live.Manager, cache *services.CacheService, logger *logrus.Logger) *MatchHandler {
	return &MatchHandler{
		store:  st,
		live:   liveMgr,
		cache:  cache,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GetMatch returns a game with its persisted event log and stat lines.
func (h *MatchHandler) GetMatch(c *gin.Context) {
	gameID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid game ID", "")
		return
	}
	game, err := h.store.GetGame(c.Request.Context(), gameID)
	if err != nil {
		sendDomainError(c, err)
		return
	}

	response := gin.H{"game": game}
	if game.Status == models.GameCompleted {
		var events []models.GameEvent
		var playerStats []models.PlayerGameStats
		var teamStats []models.TeamGameStats
		db := h.store.DB().WithContext(c.Request.Context())
		if err := db.Where("game_id = ?", gameID).Order("tick asc, id asc").Find(&events).Error; err == nil {
			response["events"] = events
		}
		if err := db.Where("game_id = ?", gameID).Find(&playerStats).Error; err == nil {
			response["player_stats"] = playerStats
		}
		if err := db.Where("game_id = ?", gameID).Find(&teamStats).Error; err == nil {
			response["team_stats"] = teamStats
		}
	}
	utils.SendSuccess(c, response)
}

// ListSchedule returns a team's games for the current season.
func (h *MatchHandler) ListSchedule(c *gin.Context) {
	teamID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid team ID", "")
		return
	}
	season, err := h.store.CurrentSeason(c.Request.Context())
	if err != nil {
		sendDomainError(c, err)
		return
	}
	var games []models.Game
	err = h.store.DB().WithContext(c.Request.Context()).
		Where("season_number = ? AND (home_team_id = ? OR away_team_id = ?)", season.Number, teamID, teamID).
		Order("scheduled_at asc").
		Find(&games).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to load schedule")
		return
	}
	utils.SendSuccess(c, games)
}

// ListLive returns all matches in progress across the league.
func (h *MatchHandler) ListLive(c *gin.Context) {
	key := services.LiveMatchesCacheKey()
	var games []models.Game
	if err := h.cache.Get(c.Request.Context(), key, &games); err == nil {
		utils.SendSuccess(c, games)
		return
	}
	games, err := h.store.ListInProgress(c.Request.Context())
	if err != nil {
		utils.SendInternalError(c, "Failed to load live matches")
		return
	}
	_ = h.cache.Set(c.Request.Context(), key, games, liveListCacheTTL)
	utils.SendSuccess(c, games)
}

// Stream upgrades to a websocket and relays the match's live event feed.
// The socket closes when the match completes or the client falls behind.
func (h *MatchHandler) Stream(c *gin.Context) {
	gameID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid game ID", "")
		return
	}
	sub, err := h.live.Watch(gameID, streamBuffer)
	if err != nil {
		sendDomainError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.live.Unwatch(sub)
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	defer h.live.Unwatch(sub)

	// Reader goroutine only surfaces disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				deadline := time.Now().Add(writeWait)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match complete"), deadline)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

type substitutionRequest struct {
	OutPlayerID uint `json:"out_player_id" binding:"required"`
	InPlayerID  uint `json:"in_player_id" binding:"required"`
}

// Substitute swaps players on the authenticated team at the next tick.
func (h *MatchHandler) Substitute(c *gin.Context) {
	gameID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid game ID", "")
		return
	}
	var req substitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid substitution", err.Error())
		return
	}
	err = h.live.Substitute(c.Request.Context(), gameID, middleware.TeamID(c), req.OutPlayerID, req.InPlayerID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"substituted": true})
}

// Pause suspends a live match. Admin only.
func (h *MatchHandler) Pause(c *gin.Context) {
	gameID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid game ID", "")
		return
	}
	if err := h.live.Pause(c.Request.Context(), gameID); err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"paused": true})
}

// Resume continues a paused match. Admin only.
func (h *MatchHandler) Resume(c *gin.Context) {
	gameID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid game ID", "")
		return
	}
	if err := h.live.Resume(c.Request.Context(), gameID); err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"resumed": true})
}

// CompleteInstant simulates a match to completion without pacing. Admin
// only; the scheduler uses the same path for overdue games.
func (h *MatchHandler) CompleteInstant(c *gin.Context) {
	gameID, err := parseID(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid game ID", "")
		return
	}
	if err := h.live.CompleteInstant(c.Request.Context(), gameID); err != nil {
		sendDomainError(c, err)
		return
	}
	game, err := h.store.GetGame(c.Request.Context(), gameID)
	if err != nil {
		sendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, game)
}
