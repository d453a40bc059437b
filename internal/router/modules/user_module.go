package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/flashteams/backend/internal/interface/http"
	"github.com/flashteams/backend/internal/interface/middleware"
	"github.com/flashteams/backend/pkg/helpers"
)

// UserModule wires the user CRUD routes. Every route requires a bearer token.
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    gin.HandlerFunc
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, auth gin.HandlerFunc, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Auth: auth, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(m.Auth)
	users.Use(
		middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		users.POST("", m.Handler.Create)
		users.GET("", m.Handler.List)
		users.PUT("", m.Handler.Update)
		users.GET("/me", m.Handler.Me)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.DELETE("/:id", m.Handler.Delete)
		users.POST("/set-password-first-time",
			middleware.RateLimit(m.Redis, 5, time.Minute, middleware.KeyByClaim(helpers.ClaimEmail), nil),
			m.Handler.SetPasswordFirstTime)
	}
}
