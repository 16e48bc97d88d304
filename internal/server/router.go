package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kartikbazzad/bunbase/marketplace/internal/handlers"
	"github.com/kartikbazzad/bunbase/marketplace/internal/metrics"
	"github.com/kartikbazzad/bunbase/marketplace/internal/middleware"
	"github.com/kartikbazzad/bunbase/marketplace/internal/models"
)

// RouterConfig holds the HTTP-level settings.
type RouterConfig struct {
	CORSOrigins []string
	// AuthRatePerMinute limits register and login per client IP; 0 disables the limit.
	AuthRatePerMinute int
	AuthBurst         int
	Logger            *slog.Logger
}

// NewRouter wires every route onto a new Gin engine.
func NewRouter(app *App, cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(metrics.Middleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(app.Auth)
	requestHandler := handlers.NewRequestHandler(app.Requests)
	proposalHandler := handlers.NewProposalHandler(app.Proposals)
	projectHandler := handlers.NewProjectHandler(app.Projects)

	api := router.Group("/api")

	// Public auth endpoints, one pair per role
	authLimit := middleware.RateLimitMiddleware(cfg.AuthRatePerMinute, cfg.AuthBurst)
	for _, role := range models.Roles {
		roleRoutes := api.Group("/" + string(role))
		roleRoutes.POST("/register", authLimit, authHandler.Register(role))
		roleRoutes.POST("/login", authLimit, authHandler.Login(role))
	}

	// Everything else requires a bearer token and a role allowed by the route policy
	protected := api.Group("")
	protected.Use(middleware.BearerAuth(app.Auth.Issuer()))
	protected.Use(middleware.Authorize(app.Enforcer))

	protected.GET("/buyer/profile", authHandler.Profile)
	protected.GET("/agent/profile", authHandler.Profile)
	protected.GET("/seller/profile", authHandler.Profile)

	protected.GET("/buyer/requests", requestHandler.ListOwnRequests)
	protected.POST("/buyer/requests", requestHandler.CreateRequest)
	protected.GET("/agent/requests", requestHandler.ListAllRequests)
	protected.GET("/agent/requests/:id", requestHandler.GetRequest)

	protected.POST("/proposals", proposalHandler.CreateProposal)
	protected.GET("/buyer/proposals", proposalHandler.ListBuyerProposals)
	protected.GET("/agent/proposals", proposalHandler.ListAgentProposals)
	protected.PUT("/proposals/:id/accept", proposalHandler.AcceptProposal)
	protected.PUT("/proposals/:id/reject", proposalHandler.RejectProposal)

	protected.GET("/buyer/projects", projectHandler.ListBuyerProjects)
	protected.GET("/agent/projects", projectHandler.ListAgentProjects)

	return router
}
