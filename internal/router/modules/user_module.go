package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rumbleroad/pokerrun-api/internal/container"
	handlers "github.com/rumbleroad/pokerrun-api/internal/interface/http"
	"github.com/rumbleroad/pokerrun-api/internal/interface/middleware"
	"github.com/rumbleroad/pokerrun-api/pkg/helpers"
)

// UserModule wires the identity routes: signup, login/refresh/logout,
// profile self-service and the verification/reset side-channels.
type UserModule struct {
	Users *handlers.UserHandler
	Auth  *handlers.AuthHandler
	JWT   *helpers.JWTManager
}

func NewUserModule(users *handlers.UserHandler, auth *handlers.AuthHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Users: users, Auth: auth, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	signupLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIP(), nil)
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil)
	credLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/users", signupLimiter, m.Users.Register)
	rg.POST("/login", loginLimiter, m.Users.Login)
	rg.POST("/refresh", refreshLimiter, m.Users.Refresh)
	rg.POST("/verify-email", credLimiter, m.Auth.VerifyEmail)
	rg.POST("/forgot-password", credLimiter, m.Auth.ForgotPassword)
	rg.POST("/reset-password", credLimiter, m.Auth.ResetPassword)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(
		middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.POST("/logout", m.Users.Logout)
		auth.GET("/profile", m.Users.GetProfile)
		auth.PUT("/profile", m.Users.UpdateProfile)
		auth.POST("/profile/avatar", m.Users.UploadAvatar)
		auth.POST("/change-password", m.Users.ChangePassword)
		auth.POST("/verify-email/resend", m.Auth.ResendVerification)
		auth.GET("/users/:id", m.Users.PublicProfile)
	}
}
