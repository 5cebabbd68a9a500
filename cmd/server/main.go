package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/assetfarm/backend/internal/config"
	"github.com/assetfarm/backend/internal/database"
	"github.com/assetfarm/backend/internal/handlers"
	"github.com/assetfarm/backend/internal/middleware"
	"github.com/assetfarm/backend/internal/services"
	"github.com/assetfarm/backend/internal/storage"
	"github.com/assetfarm/backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	store, err := storage.NewLocal(cfg.Storage.UploadsDir, cfg.Storage.PreviewsDir)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}

	catalog := services.NewCatalog(db)
	search := services.NewSearch(db, catalog)
	expander := services.NewExpander(catalog, store)
	ingestor := services.NewIngestor(catalog, store, expander, cfg.Upload.MaxFileSize)

	assetsHandler := handlers.NewAssetsHandler(catalog, search, ingestor, store)

	// Body limit leaves headroom above the upload cap so the size check in
	// the intake pipeline is the one that answers with 413.
	app := fiber.New(fiber.Config{BodyLimit: int(cfg.Upload.MaxFileSize) + 1024*1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.AllowOrigins))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	assetRoutes := api.Group("/assets")
	assetRoutes.Get("/", assetsHandler.List)
	assetRoutes.Get("/search", assetsHandler.SearchAssets)
	assetRoutes.Post("/upload", assetsHandler.Upload)
	assetRoutes.Get("/:id", assetsHandler.Get)
	assetRoutes.Put("/:id", assetsHandler.Update)
	assetRoutes.Delete("/:id", assetsHandler.Delete)

	app.Static("/uploads", cfg.Storage.UploadsDir)
	app.Static("/previews", cfg.Storage.PreviewsDir)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":     cfg.Server.Port,
		"address":  listenAddr,
		"uploads":  cfg.Storage.UploadsDir,
		"previews": cfg.Storage.PreviewsDir,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
