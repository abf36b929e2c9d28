package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/municipal-it/helpdesk/internal/api/http"
	"github.com/municipal-it/helpdesk/internal/api/http/handlers"
	"github.com/municipal-it/helpdesk/internal/auth"
	"github.com/municipal-it/helpdesk/internal/cache"
	"github.com/municipal-it/helpdesk/internal/config"
	"github.com/municipal-it/helpdesk/internal/events"
	"github.com/municipal-it/helpdesk/internal/observability"
	"github.com/municipal-it/helpdesk/internal/persistence"
	"github.com/municipal-it/helpdesk/internal/repository"
	"github.com/municipal-it/helpdesk/internal/service"
	"github.com/municipal-it/helpdesk/internal/storage"
	"github.com/municipal-it/helpdesk/internal/worker"
)

// multipart overhead allowed on top of the photo itself
const formOverheadBytes = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	dashboardCache := cache.Connect(cfg.Redis, logger)
	defer dashboardCache.Close()

	photos, err := storage.NewPhotoStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		logger.Fatal("failed to prepare upload dir", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	statusRepo := repository.NewStatusRepository(pool)
	problemTypeRepo := repository.NewProblemTypeRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	deviceRepo := repository.NewDeviceRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	settingsService := service.NewSettingsService(service.SettingsDependencies{
		SettingsRepo: settingsRepo,
		StatusRepo:   statusRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	catalogService := service.NewCatalogService(service.CatalogDependencies{
		StatusRepo:      statusRepo,
		ProblemTypeRepo: problemTypeRepo,
		SettingsRepo:    settingsRepo,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      ticketRepo,
		StatusRepo:      statusRepo,
		ProblemTypeRepo: problemTypeRepo,
		UserRepo:        userRepo,
		Catalog:         catalogService,
		Settings:        settingsService,
		Photos:          photos,
		Expiry:          metrics,
		Dispatcher:      dispatcher,
		Location:        cfg.App.Location,
		Logger:          logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		DashboardRepo: dashboardRepo,
		TicketRepo:    ticketRepo,
		Cache:         dashboardCache,
		Logger:        logger,
	})
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: userRepo,
		Logger:   logger,
	})
	userService := service.NewUserService(cfg.Auth, userRepo, logger)
	directoryService := service.NewDirectoryService(deviceRepo, userRepo, ticketRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)

	worker.RegisterSubscribers(dispatcher, notificationService, dashboardService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.Uploads.MaxBytes + formOverheadBytes,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    dashboardCache,
		}, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(ticketService, cfg.Uploads.MaxBytes),
		Admin:          handlers.NewAdminHandler(catalogService, settingsService),
		Directory:      handlers.NewDirectoryHandler(directoryService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		Photos:         handlers.NewPhotosHandler(photos),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
