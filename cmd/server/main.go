// Package main runs the kudos platform HTTP server with a live feed and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/orgkudos/backend/config"
	"github.com/orgkudos/backend/internal/auth"
	"github.com/orgkudos/backend/internal/kudos"
	"github.com/orgkudos/backend/internal/middleware"
	"github.com/orgkudos/backend/internal/organizations"
	"github.com/orgkudos/backend/internal/realtime"
	"github.com/orgkudos/backend/internal/users"
	"github.com/orgkudos/backend/pkg/database"
	"github.com/orgkudos/backend/pkg/redis"
	"github.com/orgkudos/backend/pkg/response"
)

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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	denylist := auth.NewDenylist(rdb.Client)

	// Live kudos feed
	feedPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, feedPubSub, feedPubSub)

	// Users and auth
	authRepo := auth.NewRepository(pool)

	// Kudos rule engine
	kudoRepo := kudos.NewRepository(pool)
	engine := kudos.NewEngine(authRepo, kudoRepo, cfg.Kudos.WeeklyLimit, nil)
	kudoHandler := kudos.NewHandler(engine, hub, logger)

	authHandler := auth.NewHandler(authRepo, jwtService, denylist, logger)
	userHandler := users.NewHandler(authRepo, engine)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo)

	jwtValidate := func(token string) (userID string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.UserID.String(), nil
	}
	resolveOrg := func(userID uuid.UUID) (*uuid.UUID, error) {
		u, err := authRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return u.OrganizationID, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService, denylist))
	{
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/me", userHandler.Me)

		// Receiver candidates: same organization, excluding the caller
		api.GET("/users", userHandler.ListReceivers)
		api.DELETE("/users/:id", middleware.RequireRole("admin"), userHandler.Delete)

		// Kudos
		api.POST("/kudos", kudoHandler.Give)
		api.GET("/kudos/received", kudoHandler.ListReceived)
		api.GET("/kudos/given", kudoHandler.ListGiven)

		// Organizations
		api.GET("/organizations", orgHandler.List)
		api.POST("/organizations", middleware.RequireRole("admin"), orgHandler.Create)
		api.GET("/organizations/:id/members", orgHandler.ListMembers)
		api.DELETE("/organizations/:id", middleware.RequireRole("admin"), orgHandler.Delete)
	}

	// WebSocket feed (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate, resolveOrg))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
