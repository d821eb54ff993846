package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"schemaboard/internal/collab"
	"schemaboard/internal/config"
	"schemaboard/internal/database"
	"schemaboard/internal/handlers"
	"schemaboard/internal/repositories"
	"schemaboard/internal/routes"
	"schemaboard/internal/services"
)

// New wires the whole application together and returns the HTTP server plus
// the collaboration hub, which the caller runs on its own goroutine.
func New(cfgPath string) (*http.Server, *collab.Hub, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	pool, err := database.Connect(cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.RunMigrations(pool); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	// Sessions ride on gorm; everything else talks pgx directly.
	gdb, err := gorm.Open(postgres.Open(cfg.Database.GormDSN()), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("open gorm connection: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Fail fast with a clear message when Redis is down.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect to Redis at %s: %w", cfg.Redis.Addr, err)
		}
		log.Info("Connected to Redis successfully")
	}

	// Dependency injection
	userRepo := repositories.NewUserRepository(pool)
	sessionRepo := repositories.NewSessionRepository(gdb)
	redisRepo := repositories.NewRedisRepository(rdb)
	diagramRepo := repositories.NewDiagramRepository(pool)

	authService := services.NewAuthService(userRepo, sessionRepo, redisRepo)
	userService := services.NewUserService(userRepo, sessionRepo)
	diagramService := services.NewDiagramService(diagramRepo, userRepo)
	schemaService := services.NewSchemaService()

	hubCfg := collab.DefaultConfig()
	hubCfg.RoomCapacity = cfg.Collab.RoomCapacity
	hubCfg.CursorInterval = time.Duration(cfg.Collab.CursorIntervalMs) * time.Millisecond
	hubCfg.EventRateLimit = cfg.Collab.EventRateLimit
	hubCfg.SweepInterval = time.Duration(cfg.Collab.SweepIntervalSec) * time.Second
	hub := collab.NewHub(diagramService, log, hubCfg)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	diagramHandler := handlers.NewDiagramHandler(diagramService)
	schemaHandler := handlers.NewSchemaHandler(schemaService)
	collabHandler := handlers.NewCollabHandler(hub, userRepo, log)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(router, authHandler, userHandler, diagramHandler, schemaHandler, collabHandler, userRepo, redisRepo)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return srv, hub, nil
}
