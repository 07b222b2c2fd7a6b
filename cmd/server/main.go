package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RSG-Group/Chess/internal/ai"
	"github.com/RSG-Group/Chess/internal/archive"
	"github.com/RSG-Group/Chess/internal/config"
	"github.com/RSG-Group/Chess/internal/controller"
	"github.com/RSG-Group/Chess/internal/middleware"
	"github.com/RSG-Group/Chess/internal/model"
	"github.com/RSG-Group/Chess/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Origins(), ", "),
		AllowHeaders:     "Origin, Content-Type, Accept, X-Player-ID",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))

	// Finished games go to parquet only when an archive directory is set
	var recorder service.Recorder
	var archiver *archive.Archiver
	if cfg.ArchiveDir != "" {
		archiver, err = archive.NewArchiver(cfg.ArchiveDir, cfg.ArchiveInterval)
		if err != nil {
			log.Fatalf("archive: %v", err)
		}
		recorder = archiver
	}

	// Initialize services
	gameManager := service.NewGameManager(func() model.MoveChooser {
		return ai.NewNegamax(cfg.AIDepth, time.Now().UnixNano())
	}, recorder)
	gameService := service.NewGameService(gameManager)

	// Initialize controllers
	gameController := controller.NewGameController(gameService)
	wsController := controller.NewWebSocketController(gameService)

	// Set up WebSocket routes
	app.Use("/ws/*", middleware.EnsurePlayerID())
	app.Get("/ws/game/:gameId", middleware.WebSocketUpgrade(), websocket.New(wsController.HandleConnection, websocket.Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Origins:         cfg.Origins(),
	}))

	// Set up REST routes
	api := app.Group("/api", middleware.EnsurePlayerID())

	gameRoutes := api.Group("/game")
	gameRoutes.Post("/create", gameController.CreateGame)
	gameRoutes.Get("/:gameId", gameController.GetGameState)
	gameRoutes.Get("/:gameId/moves", gameController.LegalMoves)
	gameRoutes.Get("/:gameId/fen", gameController.GetFEN)
	gameRoutes.Post("/:gameId/move", gameController.MakeMove)
	gameRoutes.Post("/:gameId/promote", gameController.Promote)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("shutting down")
		if err := app.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := app.Listen(cfg.Addr); err != nil {
		log.Printf("listen: %v", err)
	}
	if archiver != nil {
		if err := archiver.Close(); err != nil {
			log.Printf("archive flush: %v", err)
		}
	}
}
