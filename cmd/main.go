package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"maintenance-app/internal/config"
	"maintenance-app/internal/handler"
	"maintenance-app/internal/models"
	"maintenance-app/internal/repository"
	"maintenance-app/internal/services"
	"maintenance-app/internal/utils"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)
	shutdownManager.StartListening()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	db := mongoClient.Database(cfg.MongoDatabase)

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing MongoDB connection...")
		return mongoClient.Disconnect(ctx)
	})

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("Invalid Redis URL:", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing Redis connection...")
		return rdb.Close()
	})

	requestRepo := repository.NewRequestRepository(db)
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret)
	cache := utils.NewRedisCache(rdb)
	webhook := utils.NewWebhookClient(cfg.WebhookURL)

	requestService := services.NewRequestService(requestRepo, cache, webhook)
	statsService := services.NewStatsService()
	authService := services.NewAuthService(userRepo, profileRepo, jwtUtil)

	requestHandler := handler.NewRequestHandler(requestService)
	statsHandler := handler.NewStatsHandler(requestService, statsService)
	authHandler := handler.NewAuthHandler(authService)

	cacheRefresher := services.NewCacheRefresher(requestRepo, cache)
	cacheRefresher.Start(ctx)

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	api := router.Group("/api")
	api.Use(utils.AuthMiddleware(jwtUtil))
	{
		api.PUT("/auth/role", authHandler.SwitchRole)
		api.GET("/profile", authHandler.GetProfile)
		api.PUT("/profile", authHandler.UpdateProfile)

		requests := api.Group("/requests")
		{
			requests.POST("/", requestHandler.CreateRequest)
			requests.GET("/my", requestHandler.GetMyRequests)

			staff := requests.Group("/")
			staff.Use(utils.RequireRoles(models.RoleTechnician, models.RoleManager))
			{
				staff.GET("/all", requestHandler.GetAllRequests)
				staff.PUT("/:id", requestHandler.UpdateRequest)
			}

			technician := requests.Group("/")
			technician.Use(utils.RequireRoles(models.RoleTechnician))
			{
				technician.PUT("/:id/accept", requestHandler.AcceptRequest)
			}
		}

		stats := api.Group("/stats")
		{
			stats.GET("/dashboard", statsHandler.Dashboard)

			manager := stats.Group("/")
			manager.Use(utils.RequireRoles(models.RoleManager))
			{
				manager.GET("/team", statsHandler.Team)
			}
		}
	}

	server := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Println("Maintenance service running on", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Shutting down HTTP server...")
		return server.Shutdown(ctx)
	})

	select {}
}
