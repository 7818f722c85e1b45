package commands

import (
	"io"
	"testing"

	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	"github.com/chainsafe/forkctl/pkg/forknode"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	t.Chdir(t.TempDir())
	configPath = ""
	t.Setenv("FORKCTL_LOGGING_LEVEL", "error")
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func TestRunCmd_WrapsOnForkNode(t *testing.T) {
	_, url := forknode.StartTestNode(t, forknode.Options{}, forknode.ServerOptions{})
	t.Setenv("FORKCTL_NODE_RPC_URL", url)
	t.Setenv("FORKCTL_TX_RECEIPT_POLL_INTERVAL", "10ms")

	err := execute(t, newRunCmd())
	require.NoError(t, err)
	assert.Equal(t, 0, apperrors.ExitCode(err))
}

func TestRunCmd_UnreachableNodeExitsOne(t *testing.T) {
	t.Setenv("FORKCTL_NODE_RPC_URL", "http://127.0.0.1:1")

	err := execute(t, newRunCmd())
	require.Error(t, err)
	assert.Equal(t, 1, apperrors.ExitCode(err))
	assert.True(t, apperrors.Is(err, apperrors.CategoryConnectivity))
}

func TestBalancesCmd(t *testing.T) {
	_, url := forknode.StartTestNode(t, forknode.Options{}, forknode.ServerOptions{})
	t.Setenv("FORKCTL_NODE_RPC_URL", url)

	require.NoError(t, execute(t, newBalancesCmd()))
}

func TestRunWith_InvalidConfig(t *testing.T) {
	t.Setenv("FORKCTL_ACCOUNTS_RECIPIENT", "not-an-address")

	err := execute(t, newBalancesCmd())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataError))
}

func TestCommands_RejectArguments(t *testing.T) {
	for _, cmd := range []*cobra.Command{newRunCmd(), newBalancesCmd(), newDevNodeCmd()} {
		err := execute(t, cmd, "extra")
		assert.Error(t, err, cmd.Use)
	}
}
