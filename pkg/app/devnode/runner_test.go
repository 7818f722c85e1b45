package devnode

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	"github.com/chainsafe/forkctl/pkg/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.DevNode.ShutdownTimeout = time.Second
	return cfg
}

func serve(t *testing.T, cfg *config.Config) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewRunner(cfg, zap.NewNop()).RunListener(ctx, ln)
	}()
	return "http://" + ln.Addr().String(), cancel, done
}

func waitStopped(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("devnode did not stop after cancel")
	}
}

func TestRunner_ServesSeededChain(t *testing.T) {
	cfg := testConfig(t)
	cfg.DevNode.ChainID = 31337
	url, cancel, done := serve(t, cfg)

	client, err := ethclient.Dial(url)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	chainID, err := client.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(31337), chainID.Int64())

	balance, err := client.BalanceAt(ctx, common.HexToAddress(cfg.Accounts.Recipient), nil)
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000000", balance.String())

	code, err := client.CodeAt(ctx, common.HexToAddress(cfg.Contracts.WETH), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, code)

	waitStopped(t, cancel, done)
}

func TestRunner_LoadsStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	state := `accounts:
  - address: "0x1111111111111111111111111111111111111111"
    balance: "42"
`
	require.NoError(t, os.WriteFile(path, []byte(state), 0o600))

	cfg := testConfig(t)
	cfg.DevNode.StateFile = path
	url, cancel, done := serve(t, cfg)

	client, err := ethclient.Dial(url)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	balance, err := client.BalanceAt(ctx, common.HexToAddress("0x1111111111111111111111111111111111111111"), nil)
	require.NoError(t, err)
	assert.Equal(t, "42000000000000000000", balance.String())

	// the default state is replaced, not merged
	balance, err = client.BalanceAt(ctx, common.HexToAddress(cfg.Accounts.Recipient), nil)
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())

	waitStopped(t, cancel, done)
}

func TestRunner_MissingStateFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.DevNode.StateFile = filepath.Join(t.TempDir(), "missing.yaml")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = NewRunner(cfg, zap.NewNop()).RunListener(context.Background(), ln)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataError))
}

func TestRunner_InvalidGasPrice(t *testing.T) {
	cfg := testConfig(t)
	cfg.DevNode.GasPriceWei = "not-a-number"

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = NewRunner(cfg, zap.NewNop()).RunListener(context.Background(), ln)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataError))
}

func TestRunner_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(t)
	cfg.DevNode.ListenAddress = ln.Addr().String()

	err = NewRunner(cfg, zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CategoryConnectivity))
}
