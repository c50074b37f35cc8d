package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/session"
	"github.com/spec-kit/helpdesk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if _, err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	responseRepo := repository.NewTicketResponseRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartActivityLog(dispatcher, logger.Named("activity"))

	revocations := session.NewRedisRevocationStore(redis.Client)
	flashes := session.NewRedisFlashStore(redis.Client, cfg.Session.FlashTTL())

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:    userRepo,
		Revocations: revocations,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		ResponseRepo: responseRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	authMiddleware := auth.NewAuthMiddleware(authService.Tokens(), userRepo, revocations, cfg.Session.CookieName, logger)
	notifier := handlers.NewNotifier(flashes, cfg.Session.FlashCookieName, cfg.Session.CookieSecure, logger)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Accounts:       handlers.NewAccountsHandler(authService, notifier, handlers.SessionCookie{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}, logger),
		Tickets:        handlers.NewTicketsHandler(ticketService, notifier),
		Users:          handlers.NewUsersHandler(userService, notifier),
		Notifier:       notifier,
		AuthMiddleware: authMiddleware,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	case err := <-errCh:
		return err
	}
}
