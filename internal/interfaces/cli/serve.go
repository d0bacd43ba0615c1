package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/SumFormula-Intelligence/internal/app"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
)

// NewServeCmd creates the serve command, running the HTTP API until
// interrupted.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			application, err := app.New(cliCtx.Config, cliCtx.Logger, Version)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cliCtx.Logger.Info("starting server",
				logging.String("version", Version),
				logging.String("commit", GitCommit),
				logging.String("config", cliCtx.ConfigPath),
			)
			return application.Run(ctx, cliCtx.ConfigPath)
		},
	}
}

//Personal.AI order the ending
