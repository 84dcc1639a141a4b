package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jimmy058910/replitballgame-sub006/internal/api/handlers"
	"github.com/jimmy058910/replitballgame-sub006/internal/api/middleware"
	"github.com/jimmy058910/replitballgame-sub006/internal/live"
	"github.com/jimmy058910/replitballgame-sub006/internal/marketplace"
	"github.com/jimmy058910/replitballgame-sub006/internal/progression"
	"github.com/jimmy058910/replitballgame-sub006/internal/services"
	"github.com/jimmy058910/replitballgame-sub006/internal/store"
	"github.com/jimmy058910/replitballgame-sub006/internal/tournament"
	"github.com/jimmy058910/replitballgame-sub006/pkg/config"
)

// Deps carries everything the API surface needs.
type Deps struct {
	Store       *store.Store
	Cache       *services.CacheService
	Live        *live.Manager
	Market      *marketplace.Service
	Tournaments *tournament.Service
	Progression *progression.Service
	Config      *config.Config
	Logger      *logrus.Logger
}

// SetupRoutes configures all API routes on the given router group.
func SetupRoutes(group *gin.RouterGroup, d Deps) {
	healthHandler := handlers.NewHealthHandler(d.Store, d.Live)
	seasonHandler := handlers.NewSeasonHandler(d.Store, d.Cache)
	teamHandler := handlers.NewTeamHandler(d.Store, d.Progression)
	marketHandler := handlers.NewMarketHandler(d.Market)
	tournamentHandler := handlers.NewTournamentHandler(d.Store, d.Tournaments, d.Cache)
	matchHandler := handlers.NewMatchHandler(d.Store, d.Live, d.Cache, d.Logger)

	group.GET("/health", healthHandler.Health)

	// Public read surface.
	group.GET("/season", seasonHandler.GetCurrentSeason)
	group.GET("/seasons/:number/standings", seasonHandler.GetHistory)
	group.GET("/divisions/:division/standings", seasonHandler.GetStandings)
	group.GET("/teams/:id", teamHandler.GetTeam)
	group.GET("/teams/:id/schedule", matchHandler.ListSchedule)
	group.GET("/players/:id", teamHandler.GetPlayer)
	group.GET("/matches/live", matchHandler.ListLive)
	group.GET("/matches/:id", matchHandler.GetMatch)
	group.GET("/matches/:id/stream", matchHandler.Stream)
	group.GET("/market", marketHandler.ListMarket)
	group.GET("/market/:id", marketHandler.GetListing)
	group.GET("/market/:id/bids", marketHandler.GetBidHistory)
	group.GET("/tournaments", tournamentHandler.ListOpen)
	group.GET("/tournaments/:id", tournamentHandler.GetTournament)
	group.GET("/tournaments/:id/bracket", tournamentHandler.GetBracket)

	// Team-authenticated operations.
	auth := group.Group("")
	auth.Use(middleware.AuthRequired(d.Config.JWTSecret))
	{
		auth.GET("/my/finances", teamHandler.GetFinances)
		auth.GET("/my/contracts", teamHandler.ListContracts)
		auth.POST("/contracts/offer", teamHandler.OfferContract)
		auth.POST("/players/:id/taxi-squad", teamHandler.MoveToTaxiSquad)
		auth.POST("/players/:id/promote", teamHandler.PromoteFromTaxiSquad)

		auth.POST("/market", marketHandler.CreateListing)
		auth.POST("/market/:id/buy", marketHandler.BuyNow)
		auth.DELETE("/market/:id", marketHandler.CancelListing)
		auth.POST("/market/:id/bids",
			middleware.RateLimit(d.Config.BidRateLimit), marketHandler.PlaceBid)

		auth.POST("/tournaments/:id/register", tournamentHandler.Register)
		auth.DELETE("/tournaments/:id/register", tournamentHandler.Withdraw)

		auth.POST("/matches/:id/substitutions", matchHandler.Substitute)
	}

	// Operational controls.
	admin := group.Group("/admin")
	admin.Use(middleware.AdminRequired(d.Config.JWTSecret))
	{
		admin.POST("/matches/:id/pause", matchHandler.Pause)
		admin.POST("/matches/:id/resume", matchHandler.Resume)
		admin.POST("/matches/:id/complete", matchHandler.CompleteInstant)
	}
}
