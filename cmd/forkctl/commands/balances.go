package commands

import (
	"github.com/chainsafe/forkctl/pkg/app"
	"github.com/chainsafe/forkctl/pkg/app/balances"
	"github.com/chainsafe/forkctl/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBalancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Report ETH, WETH and token balances of the playbook accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWith(cmd, "balances", func(cfg *config.Config, logger *zap.Logger) app.Runner {
				return balances.NewRunner(cfg, logger)
			})
		},
	}
}
