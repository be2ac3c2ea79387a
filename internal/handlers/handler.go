package handlers

import (
	"smart_irrigation/internal/logger"
	"smart_irrigation/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// State stream over the same port (HTTP upgrade)
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerIrrigationRoutes(api)
		h.registerPlantRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerIrrigationRoutes(api *gin.RouterGroup) {
	irr := api.Group("/irrigation")
	{
		irr.GET("/state", h.getState)
		irr.POST("/stop", h.emergencyStop)
		irr.POST("/resume", h.resume)
		irr.POST("/reset", h.reset)
	}
	api.POST("/advisory", h.postAdvisory)
}

func (h *Handler) registerPlantRoutes(api *gin.RouterGroup) {
	plants := api.Group("/plants")
	{
		plants.GET("/:type", h.getPlant)
		plants.PUT("/:type/thresholds", h.setThresholds)
		plants.DELETE("/:type/thresholds", h.clearThresholds)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
