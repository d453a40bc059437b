package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/flashteams/backend/config"
	"github.com/flashteams/backend/internal/application"
	"github.com/flashteams/backend/internal/infrastructure/google"
	"github.com/flashteams/backend/internal/infrastructure/search"
	"github.com/flashteams/backend/pkg/helpers"
	"github.com/flashteams/backend/pkg/mailer/templates"
)

// app-level container to share constructed components across packages
// Router wires its modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	db          *gorm.DB
	redisClient *redis.Client

	jwtManager *helpers.JWTManager
	verifier   *google.Verifier

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client
	userIndex *search.UserIndex
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func GetLogger() *logrus.Logger    { return logger }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetDB(d *gorm.DB)             { db = d }
func GetDB() *gorm.DB              { return db }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }
func SetVerifier(v *google.Verifier) {
	verifier = v
}
func GetVerifier() *google.Verifier { return verifier }

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }
func SetUserIndex(x *search.UserIndex)        { userIndex = x }
func GetUserIndex() *search.UserIndex         { return userIndex }

// ServiceDependencies collects what application.NewServices needs.
// Optional collaborators are left as nil interfaces when absent.
func ServiceDependencies() application.Dependencies {
	d := application.Dependencies{
		DB:              db,
		JWT:             jwtManager,
		Logger:          logger,
		RequireLastName: cfg.RequireLastName,
		Branding: templates.EmailData{
			CompanyName: cfg.CompanyName,
			AppName:     cfg.AppName,
			SupportURL:  cfg.SupportURL,
		},
	}
	if verifier != nil {
		d.Verifier = verifier
	}
	if userIndex != nil {
		d.Index = userIndex
	}
	if rabbitPub != nil {
		d.Mail = rabbitPub
	}
	return d
}
