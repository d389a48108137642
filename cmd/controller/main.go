package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/forklift-teleop/controller/domain/diagnostic"
	"github.com/forklift-teleop/controller/domain/session"
	"github.com/forklift-teleop/controller/pkg/api"
	"github.com/forklift-teleop/controller/pkg/config"
	customlog "github.com/forklift-teleop/controller/pkg/log"
	"github.com/forklift-teleop/controller/pkg/metrics"
	"github.com/forklift-teleop/controller/pkg/processing"
	"github.com/forklift-teleop/controller/pkg/zeromq"
	"github.com/forklift-teleop/controller/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	configDir := pflag.String("config-dir", "./config", "Directory containing "+config.BootstrapFileName)
	logLevel := pflag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	pflag.Parse()

	if err := run(*configDir, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "forklift controller: %v\n", err)
		os.Exit(1)
	}
}

func run(configDir, logLevel string) error {
	bootstrapCfg, err := config.LoadBootstrapConfig(configDir)
	if err != nil {
		return err
	}
	if logLevel != "" {
		bootstrapCfg.Logging.Level = logLevel
	}

	log, err := customlog.NewLogrusLogger(bootstrapCfg.Logging.Level, bootstrapCfg.Logging.LogPath)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	log.Infof("Starting forklift controller (config dir: %s)", configDir)

	profileService, err := services.NewProfileService(bootstrapCfg.Data.ProfilePath(), log.WithField("component", "profile"))
	if err != nil {
		return err
	}

	m := metrics.New()

	// Dispatch: one ordered lane per channel.
	registry := processing.NewChannelRegistry(log)
	registry.LoadFromProfile(profileService.GetCurrentProfile())
	profileService.Subscribe(registry.LoadFromProfile)

	director := processing.NewCommandDirector(log.WithField("component", "dispatch"), registry, &processing.DirectorOptions{
		QueueSize: bootstrapCfg.Dispatch.QueueSize,
	})
	director.Initialize()
	director.SetProcessor(processing.NewHTTPCommandProcessor(log, bootstrapCfg.Device.RequestTimeout(), bootstrapCfg.Device.Port).CreateProcessorFunc())
	director.SetResultHandler(processing.NewLoggingResultHandler(log, registry, m).CreateHandlerFunc())
	director.SetObserver(m)
	director.Start()
	defer director.Stop()

	var publisher session.EventPublisher
	if bootstrapCfg.ZeroMQ.Enabled {
		zmqService, err := zeromq.NewZeroMQService(bootstrapCfg.ZeroMQ, log.WithField("component", "zeromq"))
		if err != nil {
			return fmt.Errorf("failed to start event bus: %w", err)
		}
		defer zmqService.Stop()

		eventPublisher := zeromq.RegisterProfileHandlers(zmqService, profileService, log)
		profileService.SetPublisher(eventPublisher)
		publisher = eventPublisher
		if err := zmqService.Start(); err != nil {
			return fmt.Errorf("failed to start event bus: %w", err)
		}
	}

	manager := session.NewManager(log, m)
	defer manager.CloseAll()

	app := fiber.New(fiber.Config{
		AppName:               "Forklift Controller",
		ErrorHandler:          api.ErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "forklift controller",
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	diagnosticService := diagnostic.NewDiagnosticService(manager, director, registry, profileService)
	app.Get("/api/diagnostics", diagnosticService.GetMetricsHandler)

	api.RegisterProfileRoutes(app, profileService, log)
	api.RegisterDeviceRoutes(app, registry, m, log)
	api.RegisterControlRoutes(app, api.NewControlWebSocketHandler(api.ControlOptions{
		Manager:     manager,
		Profiles:    profileService,
		Dispatcher:  director,
		Publisher:   publisher,
		Recorder:    m,
		Validations: m,
		QueueSize:   bootstrapCfg.Dispatch.SessionQueueSize,
		Logger:      log,
	}))

	if bootstrapCfg.Server.StaticDir != "" {
		app.Static("/", bootstrapCfg.Server.StaticDir)
		log.Infof("Serving dashboard from %s", bootstrapCfg.Server.StaticDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + strconv.Itoa(bootstrapCfg.Server.HTTPPort)
		log.Infof("Server starting on %s", addr)
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infof("Shutting down server...")
		// Sessions first, so their sockets close cleanly.
		manager.CloseAll()
		if err := app.ShutdownWithTimeout(bootstrapCfg.Server.ShutdownTimeout()); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Infof("Server exited properly")
	return nil
}
