// Command apiserver runs the sum formula HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/SumFormula-Intelligence/internal/app"
	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
)

const defaultConfigPath = "configs/config.yaml"

// version is injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: using environment configuration: %v\n", err)
		if cfg, err = config.LoadFromEnv(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(1)
		}
		*configPath = ""
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	application, err := app.New(cfg, logger, version)
	if err != nil {
		logger.Error("failed to initialize application", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting API server",
		logging.String("version", version),
		logging.Int("http_port", cfg.Server.Port),
	)
	if err := application.Run(ctx, *configPath); err != nil {
		logger.Error("server error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

//Personal.AI order the ending
