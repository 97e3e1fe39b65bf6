package router

import (
	"github.com/rumbleroad/pokerrun-api/internal/application"
	"github.com/rumbleroad/pokerrun-api/internal/container"
	"github.com/rumbleroad/pokerrun-api/internal/infrastructure/mongodb"
	"github.com/rumbleroad/pokerrun-api/internal/infrastructure/postgres"
	handlers "github.com/rumbleroad/pokerrun-api/internal/interface/http"
	"github.com/rumbleroad/pokerrun-api/internal/router/modules"
)

// InitModules builds every feature module from the container singletons
// and registers it. Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	log := container.GetLogger()
	rdb := container.GetRedis()
	jwt := container.GetJWT()

	userRepo := postgres.NewUserRepository(container.GetPGPool())
	eventRepo := mongodb.NewEventRepository(container.GetMongoDB())

	userSvc := application.NewUserService(userRepo, rdb, jwt, container.GetRabbitPub(), container.GetGCS(), cfg, log)
	eventSvc := application.NewEventService(eventRepo, rdb, container.GetES(), cfg, log)
	partSvc := application.NewParticipationService(eventRepo, userRepo, rdb, container.GetRabbitPub(), cfg, log)

	userHandler := handlers.NewUserHandler(userSvc, log, cfg.CookieDomain, cfg.CookieSecure)
	authHandler := handlers.NewAuthHandler(userSvc, log)
	eventHandler := handlers.NewEventHandler(eventSvc, log)
	partHandler := handlers.NewParticipantHandler(partSvc, log)

	r.Add(modules.NewUserModule(userHandler, authHandler, jwt))
	r.Add(modules.NewEventModule(eventHandler, jwt))
	r.Add(modules.NewParticipantModule(partHandler, jwt))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
