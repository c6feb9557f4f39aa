// Package main seeds the database with demo organizations and users so a
// fresh environment can be exercised without manual registration.
package main

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/orgkudos/backend/config"
	"github.com/orgkudos/backend/internal/auth"
	"github.com/orgkudos/backend/internal/models"
	"github.com/orgkudos/backend/internal/organizations"
	"github.com/orgkudos/backend/pkg/database"
	"github.com/orgkudos/backend/pkg/utils"
)

const demoPassword = "test1234"

var orgNames = []string{"Mitratech", "Deloitte", "Capgemini"}

var usernames = []string{
	"ava.patel",
	"liam.ortiz",
	"noah.kim",
	"mia.fernandez",
	"ethan.wright",
	"zoe.nakamura",
	"lucas.meyer",
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Wipe in dependency order. Kudos and users also cascade from their
	// parents, but being explicit keeps the intent readable.
	for _, table := range []string{"kudos", "users", "organizations"} {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			logger.Fatal("clear table", zap.String("table", table), zap.Error(err))
		}
	}

	orgRepo := organizations.NewRepository(pool)
	orgs := make([]*models.Organization, 0, len(orgNames))
	for _, name := range orgNames {
		org := &models.Organization{Name: name}
		if err := orgRepo.Create(ctx, org); err != nil {
			logger.Fatal("create organization", zap.String("name", name), zap.Error(err))
		}
		orgs = append(orgs, org)
	}

	hash, err := utils.HashPassword(demoPassword)
	if err != nil {
		logger.Fatal("hash password", zap.Error(err))
	}

	userRepo := auth.NewRepository(pool)
	fmt.Println("Generated users (username / password):")
	for _, username := range usernames {
		org := orgs[rand.Intn(len(orgs))]
		if _, err := userRepo.Create(ctx, username, hash, models.RoleMember, &org.ID); err != nil {
			logger.Fatal("create user", zap.String("username", username), zap.Error(err))
		}
		fmt.Printf(" - %s / %s (%s)\n", username, demoPassword, org.Name)
	}

	logger.Info("demo data generated",
		zap.Int("organizations", len(orgs)),
		zap.Int("users", len(usernames)),
	)
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
