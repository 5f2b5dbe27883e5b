package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notify"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/worker"
)

const shutdownTimeout = 15 * time.Second

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

	var metrics *observability.Metrics
	if cfg.App.MetricsEnabled {
		metrics = observability.NewMetrics(cfg.App.Name)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if _, err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.Pool
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	requestRepo := repository.NewServiceRequestRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(redis.Client, redis.KeyPrefix)

	var sequence repository.SequenceGenerator
	switch cfg.Sequence.Backend {
	case "postgres":
		sequence = repository.NewPostgresSequence(pool)
	default:
		sequence = repository.NewRedisSequence(redis.Client, redis.KeyPrefix)
	}

	dispatcher := events.NewInMemoryDispatcher(logger, events.WithAsync(cfg.Notification.Async))
	senders, closeSenders := buildSenders(cfg, logger)
	defer closeSenders()

	options := service.LifecycleOptions{
		Location:          cfg.Lifecycle.Location(),
		StrictTransitions: cfg.Lifecycle.StrictTransitions,
	}

	userService := service.NewUserService(service.UserDependencies{
		UserRepo:   userRepo,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		Users:             userService,
		PasswordResetRepo: resetRepo,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:         ticketRepo,
		ServiceRequestRepo: requestRepo,
		UserRepo:           userRepo,
		Dispatcher:         dispatcher,
		Logger:             logger,
		Metrics:            metrics,
		Options:            options,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		Sequence:    sequence,
		Assignments: assignmentService,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		Options:     options,
	})
	requestService := service.NewServiceRequestService(service.ServiceRequestDependencies{
		ServiceRequestRepo: requestRepo,
		Sequence:           sequence,
		Assignments:        assignmentService,
		Dispatcher:         dispatcher,
		Logger:             logger,
		Metrics:            metrics,
		Options:            options,
	})
	categoryService := service.NewCategoryService(categoryRepo)
	notificationService := service.NewNotificationService(dispatcher, senders, logger, metrics)

	notificationWorker := worker.NewNotificationWorker(notificationService, dispatcher, logger)
	notificationWorker.Start()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:            handlers.NewAuthHandler(authService),
		Users:           handlers.NewUsersHandler(userService),
		Categories:      handlers.NewCategoriesHandler(categoryService),
		Tickets:         handlers.NewTicketsHandler(ticketService),
		ServiceRequests: handlers.NewServiceRequestsHandler(requestService),
		AuthMiddleware:  authMiddleware,
		Metrics:         metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := notificationWorker.Shutdown(shutdownCtx); err != nil {
		logger.Warn("notification worker shutdown", zap.Error(err))
	}
}

// buildSenders picks notification channels from config. The log sender is
// used when no external channel is configured.
func buildSenders(cfg *config.Config, logger *zap.Logger) ([]notify.Sender, func()) {
	var (
		senders []notify.Sender
		closers []func()
	)
	if cfg.SMTP.Host != "" {
		senders = append(senders, notify.NewEmailSender(cfg.SMTP, cfg.Notification.EmailFrom))
		logger.Info("email notifications enabled", zap.String("smtp_host", cfg.SMTP.Host))
	}
	if cfg.AMQP.URL != "" {
		publisher, err := notify.DialAMQP(cfg.AMQP)
		if err != nil {
			logger.Error("amqp notifications disabled", zap.Error(err))
		} else {
			senders = append(senders, publisher)
			closers = append(closers, func() {
				if err := publisher.Close(); err != nil {
					logger.Warn("amqp close", zap.Error(err))
				}
			})
			logger.Info("amqp notifications enabled", zap.String("exchange", cfg.AMQP.Exchange))
		}
	}
	if len(senders) == 0 {
		senders = append(senders, notify.NewLogSender(logger))
	}
	return senders, func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
