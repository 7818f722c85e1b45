// Package commands wires the forkctl subcommands to their app.Runner
// implementations.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainsafe/forkctl/pkg/app"
	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	"github.com/chainsafe/forkctl/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "forkctl",
	Short: "Playbooks against a locally forked Ethereum node",
	Long: `forkctl drives a locally forked Ethereum node: it impersonates a funded
account, prepares a token transfer from it and wraps ether into WETH from a
key-backed wallet. It can also report balances and serve a simulated fork.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and exits with the
// code of the run: 0 on success, 1 on any error.
func Execute() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")

	rootCmd.AddCommand(
		newRunCmd(),
		newBalancesCmd(),
		newDevNodeCmd(),
	)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(apperrors.ExitCode(err))
}

type runnerFactory func(cfg *config.Config, logger *zap.Logger) app.Runner

// runWith loads configuration, builds the logger and runs the component
// until it finishes or the process is interrupted.
func runWith(cmd *cobra.Command, name string, factory runnerFactory) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return apperrors.BadRequestError(err, "failed to load config")
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return apperrors.BadRequestError(err, "failed to initialize logger")
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting forkctl", zap.String("command", name))
	if err := factory(cfg, logger).Run(ctx); err != nil {
		logger.Error("Command failed",
			zap.String("command", name),
			zap.String("category", apperrors.CategoryOf(err).String()),
			zap.Error(err))
		return err
	}
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
