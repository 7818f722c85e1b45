package commands

import (
	"github.com/chainsafe/forkctl/pkg/app"
	"github.com/chainsafe/forkctl/pkg/app/playbook"
	"github.com/chainsafe/forkctl/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Impersonate the treasury, prepare the token transfer and wrap ETH",
		Long: `Impersonates the configured account on the fork node, binds the token
contract to it and wraps ether into WETH from the configured wallet. The
token transfer is skipped unless actions.transfer.enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWith(cmd, "run", func(cfg *config.Config, logger *zap.Logger) app.Runner {
				return playbook.NewRunner(cfg, logger)
			})
		},
	}
}
