package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/chiapettaiago/chamados/internal/api/http"
	"github.com/chiapettaiago/chamados/internal/api/http/handlers"
	"github.com/chiapettaiago/chamados/internal/auth"
	"github.com/chiapettaiago/chamados/internal/config"
	"github.com/chiapettaiago/chamados/internal/events"
	"github.com/chiapettaiago/chamados/internal/notify"
	"github.com/chiapettaiago/chamados/internal/observability"
	"github.com/chiapettaiago/chamados/internal/persistence"
	"github.com/chiapettaiago/chamados/internal/repository"
	"github.com/chiapettaiago/chamados/internal/service"
	"github.com/chiapettaiago/chamados/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	emailChannels := []service.EmailChannel{
		notify.NewSendGridMailer(cfg.Notification.SendGridAPIKey, cfg.Notification.SendGridFrom),
		notify.NewMailgunMailer(cfg.Notification.MailgunAPIKey, cfg.Notification.MailgunDomain, cfg.Notification.MailgunFrom),
	}
	whatsApp := notify.NewWhatsAppClient(cfg.Notification.WhatsAppToken, cfg.Notification.WhatsAppPhoneID)
	notificationService := service.NewNotificationService(dispatcher, logger, metrics, emailChannels, whatsApp)
	worker.StartNotificationWorker(notificationService)

	authService := service.NewAuthService(*cfg, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      ticketRepo,
		InteractionRepo: interactionRepo,
		UserRepo:        userRepo,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	exportService := service.NewExportService(ticketRepo, interactionRepo, userRepo, redis.ClientHandle(), logger, nil)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Export:         handlers.NewExportHandler(exportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
