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
	"github.com/GriffinCanCode/conduit/internal/logging"
	"github.com/GriffinCanCode/conduit/internal/worker"
)

func main() {
	envFile := flag.String("env", ".env", "Dotenv file loaded before the environment")
	spool := flag.Bool("spool", false, "Run every job in the worker storage path on a schedule")
	once := flag.Bool("once", false, "With -spool, drain the storage path once and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <job file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metrics := monitoring.NewMetrics()
	application, err := app.New(cfg, app.Options{Logger: logger, Metrics: metrics})
	if err != nil {
		logger.Fatal("Failed to boot application", zap.Error(err))
	}
	terminal := application.Terminal(worker.WithMetrics(metrics))

	if !*spool {
		if flag.NArg() != 1 {
			flag.Usage()
			os.Exit(2)
		}
		if err := terminal.Run(flag.Arg(0)); err != nil {
			os.Exit(1)
		}
		return
	}

	spooler, err := worker.NewSpooler(cfg.Worker.StoragePath, cfg.Worker.Schedule, terminal, logger)
	if err != nil {
		logger.Fatal("Failed to create spooler", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		n, err := spooler.Drain(ctx)
		logger.Info("Spool drained", zap.Int("jobs", n))
		if err != nil {
			logger.Error("Spool drain failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	spooler.Start()
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := spooler.Stop(shutdown); err != nil {
		logger.Error("Spooler did not stop cleanly", zap.Error(err))
	}
}
