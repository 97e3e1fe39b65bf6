package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rumbleroad/pokerrun-api/internal/container"
	handlers "github.com/rumbleroad/pokerrun-api/internal/interface/http"
	"github.com/rumbleroad/pokerrun-api/internal/interface/middleware"
	"github.com/rumbleroad/pokerrun-api/pkg/helpers"
)

// ParticipantModule wires the registration routes. Everything here needs
// a session.
type ParticipantModule struct {
	Handler *handlers.ParticipantHandler
	JWT     *helpers.JWTManager
}

func NewParticipantModule(h *handlers.ParticipantHandler, jwt *helpers.JWTManager) *ParticipantModule {
	return &ParticipantModule{Handler: h, JWT: jwt}
}

func (m *ParticipantModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	auth := rg.Group("/")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/events/:id/participants", m.Handler.Register)
		auth.DELETE("/events/:id/participants", m.Handler.Unregister)
		auth.PUT("/events/:id/participants", m.Handler.UpdateRegistration)
		auth.GET("/events/:id/participants", m.Handler.Summary)
		auth.GET("/my-events", m.Handler.MyEvents)
	}
}
