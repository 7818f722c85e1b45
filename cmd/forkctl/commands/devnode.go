package commands

import (
	"github.com/chainsafe/forkctl/pkg/app"
	"github.com/chainsafe/forkctl/pkg/app/devnode"
	"github.com/chainsafe/forkctl/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDevNodeCmd() *cobra.Command {
	var (
		listen string
		manual bool
	)

	cmd := &cobra.Command{
		Use:   "devnode",
		Short: "Serve a simulated mainnet fork over JSON-RPC",
		Long: `Serves a simulated fork with hardhat and anvil style impersonation,
seeded from devnode.state_file or from the built-in state the playbook
expects. Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWith(cmd, "devnode", func(cfg *config.Config, logger *zap.Logger) app.Runner {
				if cmd.Flags().Changed("listen") {
					cfg.DevNode.ListenAddress = listen
				}
				if cmd.Flags().Changed("manual-mining") {
					cfg.DevNode.ManualMining = manual
				}
				return devnode.NewRunner(cfg, logger)
			})
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides devnode.listen_address")
	cmd.Flags().BoolVar(&manual, "manual-mining", false, "Disable automine, overrides devnode.manual_mining")
	return cmd
}
