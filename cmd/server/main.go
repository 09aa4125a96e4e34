package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/conduit/internal/app"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/config"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/server"
	"github.com/GriffinCanCode/conduit/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/conduit/internal/logging"
)

func main() {
	envFile := flag.String("env", ".env", "Dotenv file loaded before the environment")
	port := flag.String("port", "", "Listen port (overrides PORT)")
	dev := flag.Bool("dev", false, "Development logging and debug error pages")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
		cfg.App.Debug = true
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metrics := monitoring.NewMetrics()
	tracer := tracing.New(cfg.App.Name, logger.Named("tracing").Logger)
	defer tracer.Close()

	application, err := app.New(cfg, app.Options{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
	})
	if err != nil {
		logger.Fatal("Failed to boot application", zap.Error(err))
	}

	srv := server.New(cfg, application.Kernel(), server.Options{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracer,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
	logger.Info("Server stopped", zap.Duration("uptime", application.Uptime()))
}
