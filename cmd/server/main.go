package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"communityhub/config"
	"communityhub/controllers"
	"communityhub/db"
	"communityhub/internal/feed"
	"communityhub/middlewares"
	"communityhub/services"
	"communityhub/utils"
	"communityhub/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration from the specified YAML file
	cfg, err := config.LoadConfig("./config/config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to MongoDB using the URI from the configuration
	if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB")

	if err := db.EnsureIndexes(); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// The change feed is degraded-optional: without Redis the board still
	// serves, it just stops refreshing on data changes
	if err := feed.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("Redis unavailable, change feed disabled: %v", err)
	}

	// Seed initial data
	utils.SeedLevelThresholds()
	utils.PopulateTestUsers()

	// Wire up the leaderboard subsystem
	store := db.NewMongoStore()
	levels := services.NewLevelConfigService(store)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	levels.Reload(ctx)
	cancel()

	board := services.NewLeaderboardService(store, levels)
	xp := services.NewXPService(store, levels)

	hub := websocket.NewPresenceHub(board)
	board.SetNotify(hub.BroadcastBoard)

	if consumer := feed.NewChangeConsumer(board); consumer != nil {
		if err := consumer.Start(); err != nil {
			log.Printf("Failed to start change consumer: %v", err)
		}
		defer consumer.Stop()
	}
	defer board.Close()

	// Produce the first board
	board.RequestRefresh(nil)

	router := setupRouter(cfg, board, xp, levels, hub)
	port := strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(cfg *config.Config, board *services.LeaderboardService, xp *services.XPService, levels *services.LevelConfigService, hub *websocket.PresenceHub) *gin.Engine {
	router := gin.Default()

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

	leaderboardController := controllers.NewLeaderboardController(board, xp, hub)
	xpController := controllers.NewXPController(xp)
	levelController := controllers.NewLevelController(levels)
	postController := controllers.NewPostController(xp)
	wsHandler := websocket.NewHandler(hub, board, cfg.JWT.Secret)

	// Protected routes (JWT auth)
	auth := router.Group("/")
	auth.Use(middlewares.AuthMiddleware(cfg.JWT.Secret))
	{
		auth.GET("/leaderboard", leaderboardController.GetLeaderboard)
		auth.POST("/xp/action", xpController.LogAction)
		auth.GET("/levels", levelController.GetLevels)

		auth.GET("/posts", postController.GetPosts)
		auth.POST("/posts", postController.CreatePost)

		auth.POST("/admin/levels", levelController.CreateThreshold)
		auth.PUT("/admin/levels/:number", levelController.UpdateThreshold)
		auth.DELETE("/admin/levels/:number", levelController.DeleteThreshold)
	}

	// Presence channel endpoint; the handler validates the token itself so
	// browser clients can pass it as a query parameter
	router.GET("/ws/leaderboard", wsHandler.Serve)

	return router
}
