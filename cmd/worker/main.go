// Command worker consumes prediction jobs from Kafka.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/turtacn/SumFormula-Intelligence/internal/app"
	"github.com/turtacn/SumFormula-Intelligence/internal/config"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers (overrides config)")
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
	// Running this binary is the opt-in.
	cfg.Kafka.Enabled = true
	if *brokers != "" {
		cfg.Kafka.Brokers = strings.Split(*brokers, ",")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	w, err := app.NewWorker(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize worker", logging.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting worker",
		logging.Any("brokers", cfg.Kafka.Brokers),
		logging.String("group", cfg.Kafka.GroupID))
	if err := w.Run(ctx, *configPath); err != nil {
		logger.Error("worker error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

//Personal.AI order the ending
