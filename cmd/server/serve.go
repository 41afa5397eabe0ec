package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"airline/pkg/broker"
	"airline/pkg/config"
	"airline/pkg/database"
	"airline/pkg/handlers"
	"airline/pkg/hub"
	"airline/pkg/logger"
	"airline/pkg/metrics"
	"airline/pkg/repository"
	"airline/pkg/server"
	"airline/pkg/services"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and flight feed",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository()
	if err != nil {
		return err
	}
	defer closeRepo()

	m := metrics.New()
	wsHub := hub.New(log)

	opts := []services.Option{
		services.WithLogger(log),
		services.WithMetrics(m),
	}

	// Redis only carries notifications; the API keeps serving without it.
	b, err := broker.New(cfg.RedisURL, log)
	if err != nil {
		log.Warn("redis unavailable, flight notifications disabled", logger.Error(err))
	} else {
		defer b.Close()
		wsHub.Follow(b, cfg.FlightsChannel)
		opts = append(opts, services.WithNotifier(broker.NewFlightPublisher(b, cfg.FlightsChannel)))
		log.Info("redis connected", logger.String("channel", cfg.FlightsChannel))
	}

	engine := services.NewHeadquartersService(repo, opts...)
	auth := services.NewAuthService(cfg.Operators, cfg.JWTSecret, cfg.TokenTTL)
	if len(cfg.Operators) == 0 {
		log.Warn("no operators configured, every login will fail")
	}
	if cfg.JWTSecret == config.DefaultJWTSecret {
		log.Warn("using the default jwt secret")
	}

	app := server.NewApp("airline", cfg.AllowOrigins, log)
	app.Get("/metrics", m.Handler())
	app.Get("/feed/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"clients": wsHub.ClientCount()})
	})

	handlers.NewAuth(auth, log).Register(app)
	handlers.RegisterFeed(app, wsHub, auth)
	handlers.NewAirline(engine, log).Register(app, auth)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", logger.String("addr", cfg.Addr()), logger.String("storage", cfg.Storage))
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func openRepository() (repository.AirlineRepository, func(), error) {
	if cfg.Storage == config.StorageMemory {
		log.Info("using in-memory storage")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db, cfg.DBDriver, log); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("database ready", logger.String("driver", cfg.DBDriver))
	return repository.NewSQLRepository(db, database.Dialect(cfg.DBDriver)), func() { db.Close() }, nil
}
