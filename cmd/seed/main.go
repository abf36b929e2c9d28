package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/config"
	"github.com/municipal-it/helpdesk/internal/observability"
	"github.com/municipal-it/helpdesk/internal/persistence"
	"github.com/municipal-it/helpdesk/internal/repository"
	"github.com/municipal-it/helpdesk/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	flags := pflag.NewFlagSet("seed", pflag.ExitOnError)
	flags.StringVar(&cfg.Seed.WorkbookPath, "workbook", cfg.Seed.WorkbookPath, "path to the inventory workbook")
	flags.StringVar(&cfg.Seed.UsersSheet, "users-sheet", cfg.Seed.UsersSheet, "sheet holding user accounts")
	flags.StringVar(&cfg.Seed.DevicesSheet, "devices-sheet", cfg.Seed.DevicesSheet, "sheet holding the device inventory")
	flags.StringVar(&cfg.Postgres.MigrationsDir, "migrations", cfg.Postgres.MigrationsDir, "directory of SQL migrations")
	skipImport := flags.Bool("skip-import", false, "apply migrations only")
	_ = flags.Parse(os.Args[1:])

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	if *skipImport {
		return
	}

	pool := pg.PoolHandle()
	importer := service.NewImporter(cfg.Auth, repository.NewUserRepository(pool), repository.NewDeviceRepository(pool), logger)
	report, err := importer.ImportWorkbook(ctx, cfg.Seed)
	if err != nil {
		logger.Fatal("workbook import failed", zap.Error(err))
	}
	logger.Info("seed complete",
		zap.Int("users_created", report.UsersCreated),
		zap.Int("users_skipped", report.UsersSkipped),
		zap.Int64("devices_loaded", report.DevicesLoaded),
		zap.Int("warnings", len(report.Warnings)),
	)
}
