package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/flashteams/backend/config"
	"github.com/flashteams/backend/internal/application"
	"github.com/flashteams/backend/internal/domain/entity"
	pginfra "github.com/flashteams/backend/internal/infrastructure/postgres"
	"github.com/flashteams/backend/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{DSN: cfg.PostgresDSN(), MaxConns: 2, MinConns: 1})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	db, err := pginfra.OpenGorm(pool, logger)
	if err != nil {
		logger.Fatalf("failed to open gorm: %v", err)
	}

	// no index or mail: the seed only touches the database
	svc := application.NewServices(application.Dependencies{
		DB:              db,
		JWT:             helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL()),
		RequireLastName: cfg.RequireLastName,
		Logger:          logger,
	})

	email := "demo@flashteams.dev"
	password := "password123"

	existing, err := svc.Users.GetByEmail(ctx, email, false)
	if err != nil {
		logger.Fatalf("failed to look up demo user: %v", err)
	}
	if existing != nil {
		fmt.Printf("demo user already present: id=%s username=%s\n", existing.ID, existing.Username)
		return
	}

	u, err := svc.Users.Create(ctx, &entity.User{
		FirstName: "Demo",
		LastName:  "User",
		Email:     email,
		Password:  password,
	})
	if err != nil {
		logger.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s username=%s password=%s\n", u.ID, u.Email, u.Username, password)
}
