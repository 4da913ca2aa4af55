package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-retail-catalog/internal/apperr"
	"go-retail-catalog/internal/config"
	"go-retail-catalog/internal/handler"
	"go-retail-catalog/internal/logger"
	"go-retail-catalog/internal/metrics"
	"go-retail-catalog/internal/middleware"
	"go-retail-catalog/internal/repository"
	"go-retail-catalog/internal/service"
	"go-retail-catalog/internal/sheet"
	"go-retail-catalog/internal/staging"
	"go-retail-catalog/internal/ws"
	"go-retail-catalog/pkg/database"
	"go-retail-catalog/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// 2. Logger + JWT secret
	logger.Initialize(cfg.App.Env, cfg.App.LogLevel)
	defer logger.Log.Sync()
	log := logger.Log
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}
	jwt.Configure(cfg.Auth.JWTSecret)

	// 3. Setup Database
	db, err := database.ConnectDB(cfg.Database.DSN(), cfg.Database.LogLevel, log)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	if err := repository.Migrate(db); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	// 4. Staging store for previewed batches
	ctx := context.Background()
	store, closeStore, err := staging.Open(ctx, cfg.Staging, log.Named("staging"))
	if err != nil {
		log.Fatal("Staging store unavailable", zap.String("backend", cfg.Staging.Backend), zap.Error(err))
	}
	defer closeStore()

	// 5. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 6. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	movementRepo := repository.NewStockMovementRepo(db)
	batchRepo := repository.NewBatchRepo(db)

	catalogService := service.NewCatalogService(db, productRepo, categoryRepo, movementRepo, wsHub)
	importService := service.NewImportService(service.ImportDeps{
		DB:         db,
		Products:   productRepo,
		Categories: categoryRepo,
		Movements:  movementRepo,
		Batches:    batchRepo,
		Store:      store,
		Reader:     sheet.NewReader(),
		Notifier:   wsHub,
		TTL:        cfg.Import.BatchTTL,
	})

	productHandler := handler.NewProductHandler(catalogService)
	importHandler := handler.NewImportHandler(importService, cfg.Import.MaxFileBytes)

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Retail Catalog v1.0",
		ErrorHandler: apperr.Handler,
		// base64 JSON uploads are about a third larger than the file
		BodyLimit: int(cfg.Import.MaxFileBytes)*2 + 1024*1024,
	})

	// Middleware
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS
	app.Use(logger.RequestLogger())
	app.Use(metrics.Middleware())

	// 8. Routes
	app.Get("/metrics", metrics.Handler())
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth())

	// Product Routes (with privilege checks)
	protected.Get("/products", productHandler.GetProducts)
	protected.Get("/products/:id<int>", productHandler.GetProduct)
	protected.Post("/products", middleware.RequirePrivilege(middleware.PrivilegeProductWrite), productHandler.CreateProduct)
	protected.Patch("/products/:id<int>", middleware.RequirePrivilege(middleware.PrivilegeProductWrite), productHandler.UpdateProduct)
	protected.Delete("/products/:id<int>", middleware.RequirePrivilege(middleware.PrivilegeProductDelete), productHandler.DeleteProduct)
	protected.Get("/categories", productHandler.GetCategories)

	// Stock ledger
	protected.Post("/stock-movements", middleware.RequirePrivilege(middleware.PrivilegeProductWrite), productHandler.CreateStockMovement)
	protected.Get("/stock-movements/chart", productHandler.GetStockMovement)

	// Bulk import
	imports := protected.Group("/products/import", middleware.RequirePrivilege(middleware.PrivilegeImport))
	imports.Post("/preview", importHandler.Preview)
	imports.Post("/confirm", importHandler.Confirm)
	imports.Get("/batches/:id", importHandler.GetBatch)

	// WebSocket Route
	app.Use("/ws", ws.Upgrade)
	app.Get("/ws", wsHub.Serve())

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Panic("Server stopped", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	wsHub.Stop()

	log.Info("Server exited")
}
