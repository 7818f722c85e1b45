package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forkctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsMatchForkSetup(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:10999", cfg.Node.RPCURL)
	assert.Equal(t, int64(0), cfg.Node.ChainID)
	assert.Equal(t, "hardhat", cfg.Node.ImpersonationNamespace)
	assert.Equal(t, "0xD920E60b798A2F5a8332799d8a23075c9E77d5F8", cfg.Accounts.Impersonate)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", cfg.Accounts.Recipient)
	assert.Equal(t, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", cfg.Contracts.WETH)
	assert.Equal(t, int32(18), cfg.Contracts.TokenDecimals)
	assert.False(t, cfg.Actions.Transfer.Enabled)
	assert.Equal(t, "1000000", cfg.Actions.Transfer.Amount)
	assert.Equal(t, "1000", cfg.Actions.Wrap.Amount)
	assert.Equal(t, time.Second, cfg.Tx.ReceiptPollInterval)
	assert.Equal(t, "127.0.0.1:10999", cfg.DevNode.ListenAddress)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
node:
  rpc_url: http://localhost:8545
  impersonation_namespace: anvil
actions:
  transfer:
    enabled: true
    amount: "42"
tx:
  receipt_poll_interval: 50ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.Node.RPCURL)
	assert.Equal(t, "anvil", cfg.Node.ImpersonationNamespace)
	assert.True(t, cfg.Actions.Transfer.Enabled)
	assert.Equal(t, "42", cfg.Actions.Transfer.Amount)
	assert.Equal(t, 50*time.Millisecond, cfg.Tx.ReceiptPollInterval)
	// untouched keys keep their defaults
	assert.Equal(t, "1000", cfg.Actions.Wrap.Amount)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, "node:\n  rpc_url: http://localhost:8545\n")
	t.Setenv("FORKCTL_NODE_RPC_URL", "http://127.0.0.1:9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.Node.RPCURL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFile),
		[]byte("FORKCTL_ACCOUNTS_RECIPIENT=0x70997970C51812dc3A010C7d01b50e0d17dc79C8\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("FORKCTL_ACCOUNTS_RECIPIENT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", cfg.Accounts.Recipient)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"bad recipient":   func(c *Config) { c.Accounts.Recipient = "0x1234" },
		"bad private key": func(c *Config) { c.Accounts.WalletPrivateKey = "0xnot-a-key" },
		"bad weth":        func(c *Config) { c.Contracts.WETH = "weth" },
		"bad namespace":   func(c *Config) { c.Node.ImpersonationNamespace = "ganache" },
		"bad amount":      func(c *Config) { c.Actions.Wrap.Amount = "a lot" },
		"no poll":         func(c *Config) { c.Tx.ReceiptPollInterval = 0 },
		"bad pushgateway": func(c *Config) { c.Monitoring.PushgatewayURL = "::" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Default()
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidate_ImpersonationAddressIsNotPrevalidated(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	cfg.Accounts.Impersonate = "0xnot-an-address"

	// the node is the authority on what it can impersonate
	assert.NoError(t, Validate(cfg))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = NewLogger(LoggingConfig{Level: "loud", Format: "console"})
	assert.Error(t, err)
}
