package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/yourusername/cryptic-api/internal/config"
	"github.com/yourusername/cryptic-api/internal/domain/repository"
	"github.com/yourusername/cryptic-api/internal/handler"
	"github.com/yourusername/cryptic-api/internal/middleware"
	pgRepo "github.com/yourusername/cryptic-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/cryptic-api/internal/repository/redis"
	"github.com/yourusername/cryptic-api/internal/service"
	"github.com/yourusername/cryptic-api/pkg/auth"
	"github.com/yourusername/cryptic-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	gin.SetMode(cfg.Server.Mode)

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(
		cfg.Database.PostgresConnectionString(),
		database.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		},
		!cfg.Server.IsRelease(),
	)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsURL); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Redis необязателен: без него нет кеша и rate limiting
	var (
		redisClient redis.UniversalClient
		cacheRepo   repository.CacheRepository
	)
	if cfg.Redis.Enabled {
		redisClient, err = database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		log.Println("Successfully connected to Redis")

		cr, err := redisRepo.NewCacheRepo(redisClient)
		if err != nil {
			log.Printf("Failed to initialize CacheRepo: %v", err)
			os.Exit(1)
		}
		cacheRepo = cr
	} else {
		log.Println("Redis отключен: кеш головоломки дня и rate limiting не используются")
	}

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	puzzleRepo := pgRepo.NewPuzzleRepo(db)
	solutionRepo := pgRepo.NewSolutionRepo(db)

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервисы
	puzzleService := service.NewPuzzleService(puzzleRepo, solutionRepo, cacheRepo, cfg.Puzzle.DailyCacheTTL)
	solutionService := service.NewSolutionService(puzzleRepo, solutionRepo, userRepo, cfg.Puzzle.MaxAnswerLength)
	authService := service.NewAuthService(userRepo, jwtService)

	router := setupRouter(cfg, db, redisClient, jwtService, puzzleService, solutionService, authService)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exited properly")
}

func setupRouter(
	cfg *config.Config,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	jwtService *auth.JWTService,
	puzzleService *service.PuzzleService,
	solutionService *service.SolutionService,
	authService *service.AuthService,
) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.RequestID())

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	trusted := []string{"127.0.0.1", "::1"}
	if cfg.Server.IsRelease() {
		trusted = nil
	}
	if err := router.SetTrustedProxies(trusted); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	// Без Redis-клиента лимитер пропускает все запросы
	limiter := middleware.NewRateLimiter(redisClient)

	puzzleHandler := handler.NewPuzzleHandler(puzzleService, solutionService)
	adminHandler := handler.NewAdminHandler(puzzleService, solutionService)
	authHandler := handler.NewAuthHandler(authService)

	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok"}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["status"] = "degraded"
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			status["redis"] = "ok"
			if err := redisClient.Ping(ctx).Err(); err != nil {
				// Redis работает в режиме fail-open, поэтому сервис остается доступным
				status["redis"] = "unavailable"
			}
		}
		c.JSON(code, status)
	})

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.Use(limiter.Limit(middleware.PerMinute("rl:auth", cfg.RateLimit.AuthPerMinute, false)))
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", authHandler.Me)
		}

		puzzles := api.Group("/puzzles")
		{
			puzzles.GET("/daily", authMiddleware.OptionalAuth(), puzzleHandler.GetDaily)
			puzzles.POST("/submit",
				authMiddleware.RequireAuth(),
				limiter.Limit(middleware.PerMinute("rl:submit", cfg.RateLimit.SubmitPerMinute, true)),
				puzzleHandler.Submit,
			)
			puzzles.POST("/validate",
				limiter.Limit(middleware.PerMinute("rl:validate", cfg.RateLimit.ValidatePerMinute, false)),
				puzzleHandler.Validate,
			)
		}

		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			admin.GET("/puzzles", adminHandler.ListPuzzles)
			admin.POST("/puzzles", adminHandler.CreatePuzzle)

			puzzleWithID := admin.Group("/puzzles/:id", middleware.ExtractUintParam("id", "puzzleID"))
			{
				puzzleWithID.PUT("", adminHandler.UpdatePuzzle)
				puzzleWithID.DELETE("", adminHandler.DeletePuzzle)
				puzzleWithID.GET("/solutions/export", adminHandler.ExportSolutions)
			}
		}
	}

	return router
}
