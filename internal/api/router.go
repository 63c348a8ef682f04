package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/havewant/internal/api/handler"
	"github.com/spigell/havewant/internal/api/middleware"
)

// RouterDeps bundles every dependency needed to build the router.
type RouterDeps struct {
	Matches   handler.MatchService
	Listings  handler.ListingService
	Users     middleware.UserStore
	JWTSecret []byte
	Logger    *zap.Logger
	Release   bool
}

// SetupRouter creates the gin engine with every route and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	matchH := handler.NewMatchHandler(deps.Matches)
	listingH := handler.NewListingHandler(deps.Listings)

	api := r.Group("/api")
	api.Use(middleware.JWTMiddleware(deps.JWTSecret, deps.Users, deps.Logger))
	{
		api.POST("/match", matchH.FindMatches)
		api.GET("/match", matchH.ListMatches)

		listings := api.Group("/listings")
		{
			listings.POST("", listingH.Create)
			listings.GET("", listingH.List)
			listings.GET("/:id", listingH.Get)
			listings.PATCH("/:id/status", listingH.SetStatus)
		}
	}

	return r
}
