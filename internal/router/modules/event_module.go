package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rumbleroad/pokerrun-api/internal/container"
	"github.com/rumbleroad/pokerrun-api/internal/domain/entity"
	handlers "github.com/rumbleroad/pokerrun-api/internal/interface/http"
	"github.com/rumbleroad/pokerrun-api/internal/interface/middleware"
	"github.com/rumbleroad/pokerrun-api/pkg/helpers"
)

// EventModule wires the event routes. Listing, detail and search are
// public; everything that writes requires a session, and creation is
// gated to organizers and admins.
type EventModule struct {
	Handler *handlers.EventHandler
	JWT     *helpers.JWTManager
}

func NewEventModule(h *handlers.EventHandler, jwt *helpers.JWTManager) *EventModule {
	return &EventModule{Handler: h, JWT: jwt}
}

func (m *EventModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	// Health probes and internal scrapers hit the public listing hard.
	publicLimiter := middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())

	rg.GET("/events", publicLimiter, m.Handler.List)
	rg.GET("/events/search", publicLimiter, m.Handler.Search)
	rg.GET("/events/:id", publicLimiter, m.Handler.Get)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		organizer := auth.Group("/")
		organizer.Use(middleware.RequireRole(entity.RoleOrganizer, entity.RoleAdmin))
		organizer.POST("/events", m.Handler.Create)

		// Ownership of a specific event is checked in the service; any
		// authenticated caller may attempt and gets 403 if not the owner.
		auth.PUT("/events/:id", m.Handler.Update)
		auth.DELETE("/events/:id", m.Handler.Delete)
		auth.PATCH("/events/:id/status", m.Handler.UpdateStatus)
	}
}
