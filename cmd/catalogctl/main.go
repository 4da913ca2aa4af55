// Command catalogctl runs catalog imports and maintenance from the shell,
// against the same database and staging store as the API.
package main

import (
	"context"
	"fmt"
	"os"

	"go-retail-catalog/internal/config"
	"go-retail-catalog/internal/logger"
	"go-retail-catalog/internal/repository"
	"go-retail-catalog/internal/service"
	"go-retail-catalog/internal/sheet"
	"go-retail-catalog/internal/staging"
	"go-retail-catalog/pkg/database"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "catalogctl",
	Short:         "Retail catalog maintenance tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newImportCmd(openImportService))
	rootCmd.AddCommand(newSweepCmd(openImportService))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// serviceOpener builds an import service and a func that releases it.
type serviceOpener func(ctx context.Context) (service.ImportService, func(), error)

func openImportService(ctx context.Context) (service.ImportService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger.Initialize(cfg.App.Env, cfg.App.LogLevel)

	db, err := database.ConnectDB(cfg.Database.DSN(), cfg.Database.LogLevel, logger.Log)
	if err != nil {
		return nil, nil, err
	}
	if err := repository.Migrate(db); err != nil {
		return nil, nil, err
	}

	store, closeStore, err := staging.Open(ctx, cfg.Staging, logger.Log.Named("staging"))
	if err != nil {
		return nil, nil, err
	}

	svc := service.NewImportService(service.ImportDeps{
		DB:         db,
		Products:   repository.NewProductRepo(db),
		Categories: repository.NewCategoryRepo(db),
		Movements:  repository.NewStockMovementRepo(db),
		Batches:    repository.NewBatchRepo(db),
		Store:      store,
		Reader:     sheet.NewReader(),
		TTL:        cfg.Import.BatchTTL,
	})

	release := func() {
		closeStore()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		logger.Log.Sync()
	}
	return svc, release, nil
}
