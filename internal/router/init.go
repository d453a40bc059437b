package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/flashteams/backend/internal/application"
	"github.com/flashteams/backend/internal/container"
	handlers "github.com/flashteams/backend/internal/interface/http"
	"github.com/flashteams/backend/internal/interface/middleware"
	"github.com/flashteams/backend/internal/router/modules"
	"github.com/flashteams/backend/pkg/helpers"
	"github.com/flashteams/backend/pkg/validation"
)

// Deps is everything the HTTP surface needs. Redis may be nil, which
// disables rate limiting.
type Deps struct {
	Logger         *logrus.Logger
	DB             *gorm.DB
	Redis          *redis.Client
	JWT            *helpers.JWTManager
	Services       handlers.ServiceFactory
	CORSOrigins    []string
	HTTPLog        bool
	MetricsEnabled bool
}

// DepsFromContainer assembles Deps from the process-wide singletons.
func DepsFromContainer() Deps {
	cfg := container.GetConfig()
	appDeps := container.ServiceDependencies()
	rdb := container.GetRedis()
	if !cfg.RateLimitEnabled {
		rdb = nil
	}
	return Deps{
		Logger:         container.GetLogger(),
		DB:             container.GetDB(),
		Redis:          rdb,
		JWT:            container.GetJWT(),
		Services:       func() *application.Services { return application.NewServices(appDeps) },
		CORSOrigins:    cfg.CORSOrigins(),
		HTTPLog:        cfg.HTTPLogEnabled,
		MetricsEnabled: cfg.MetricsEnabled,
	}
}

// NewEngine builds the gin engine with global middleware and every module.
func NewEngine(d Deps) *gin.Engine {
	validation.Init()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	if d.MetricsEnabled {
		r.Use(middleware.Metrics())
	}
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if d.HTTPLog {
		r.Use(gin.Logger())
	}

	if d.MetricsEnabled {
		rl := middleware.RateLimit(d.Redis, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
		r.GET("/metrics", rl, middleware.MetricsHandler())
	}

	reg := NewRegistry(r)
	reg.Use(middleware.ErrorHandler(d.Logger))
	InitModules(reg, d)
	reg.RegisterAll()
	return r
}

// InitModules wires handlers and route guards into the registry.
func InitModules(r *Registry, d Deps) {
	auth := middleware.Auth(d.JWT, touchActivity(d.Services, d.Logger))

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(d.Services), d.Redis))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(d.Services, d.Logger), auth, d.Redis))
	r.Add(modules.NewHealthModule(d.DB, d.Redis))
}

// touchActivity records the caller as seen. Failures are logged only.
func touchActivity(services handlers.ServiceFactory, logger logrus.FieldLogger) middleware.AuthenticatedFunc {
	return func(c *gin.Context, claims *helpers.Claims) {
		id, err := uuid.Parse(claims.UserID)
		if err != nil {
			return
		}
		if err := services.From(c).Activity.Touch(c.Request.Context(), id); err != nil {
			helpers.LogWarn(logger, "record user activity failed", err, logrus.Fields{"user_id": id})
		}
	}
}
