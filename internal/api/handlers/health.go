package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jimmy058910/replitballgame-sub006/internal/live"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
)

type HealthHandler struct {
	store *store.Store
	live  *live.Manager
}

func NewHealthHandler(st *store.Store, liveMgr *live.Manager) *HealthHandler {
	return &HealthHandler{store: st, live: liveMgr}
}

// Health reports process liveness plus a database round trip.
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":       status,
		"time":         time.Now().UTC(),
		"live_matches": len(h.live.ActiveGames()),
	})
}
