package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/flashteams/backend/internal/domain/entity"
)

// OpenGorm builds the query provider on top of an existing pgx pool so the
// API process keeps a single set of connections.
func OpenGorm(pool *pgxpool.Pool, logger *logrus.Logger) (*gorm.DB, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), GormConfig(logger))
}

// GormConfig routes gorm's own logging through logrus.
func GormConfig(logger *logrus.Logger) *gorm.Config {
	level := gormlogger.Warn
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger: gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

// Models lists every persisted entity, in dependency order.
func Models() []any {
	return []any{
		&entity.User{},
		&entity.Chat{},
		&entity.Message{},
		&entity.UserActivity{},
	}
}
