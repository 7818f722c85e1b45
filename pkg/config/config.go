package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FORKCTL_NODE_RPC_URL.
const EnvPrefix = "FORKCTL"

// DotEnvFile is loaded into the process environment before configuration is
// read, when it exists.
const DotEnvFile = ".env"

// Config represents the forkctl configuration
type Config struct {
	Node       NodeConfig       `mapstructure:"node"`
	Accounts   AccountsConfig   `mapstructure:"accounts"`
	Contracts  ContractsConfig  `mapstructure:"contracts"`
	Actions    ActionsConfig    `mapstructure:"actions"`
	Tx         TxConfig         `mapstructure:"tx"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	DevNode    DevNodeConfig    `mapstructure:"devnode"`
}

// NodeConfig describes the forked node the playbook talks to
type NodeConfig struct {
	RPCURL string `mapstructure:"rpc_url" default:"http://127.0.0.1:10999" validate:"required,url"`
	// ChainID of 0 means "ask the node"; a non-zero value pins the id
	// transactions are signed for.
	ChainID int64 `mapstructure:"chain_id" default:"0" validate:"gte=0"`
	// ImpersonationNamespace selects hardhat_impersonateAccount or anvil_impersonateAccount.
	ImpersonationNamespace string `mapstructure:"impersonation_namespace" default:"hardhat" validate:"oneof=hardhat anvil"`
}

// AccountsConfig holds the identity material of a run
type AccountsConfig struct {
	// Impersonate is passed to the node verbatim; the node decides whether it
	// accepts it.
	Impersonate      string `mapstructure:"impersonate" default:"0xD920E60b798A2F5a8332799d8a23075c9E77d5F8" validate:"required"`
	Recipient        string `mapstructure:"recipient" default:"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266" validate:"required,eth_addr"`
	WalletPrivateKey string `mapstructure:"wallet_private_key" default:"0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80" validate:"required,private_key"`
}

// ContractsConfig holds the contract addresses the playbook binds to
type ContractsConfig struct {
	Token         string `mapstructure:"token" default:"0x761a3557184cbc07b7493da0661c41177b2f97fa" validate:"required,eth_addr"`
	TokenSymbol   string `mapstructure:"token_symbol" default:"GROW"`
	TokenDecimals int32  `mapstructure:"token_decimals" default:"18" validate:"gte=0,lte=77"`
	WETH          string `mapstructure:"weth" default:"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2" validate:"required,eth_addr"`
}

// ActionsConfig controls the two steps of the playbook
type ActionsConfig struct {
	Transfer TransferConfig `mapstructure:"transfer"`
	Wrap     WrapConfig     `mapstructure:"wrap"`
}

// TransferConfig controls the token transfer step.
// Enabled defaults to false: the step is a placeholder that only logs.
type TransferConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Amount  string `mapstructure:"amount" default:"1000000" validate:"required,numeric"`
}

// WrapConfig controls the wrap step; Amount is in ether units
type WrapConfig struct {
	Amount string `mapstructure:"amount" default:"1000" validate:"required,numeric"`
}

// TxConfig contains transaction submission settings
type TxConfig struct {
	// GasLimit of 0 lets the node estimate.
	GasLimit            uint64        `mapstructure:"gas_limit"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval" default:"1s" validate:"gt=0"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level" default:"info"`
	Format     string `mapstructure:"format" default:"console" validate:"oneof=json console"`
	OutputPath string `mapstructure:"output_path" default:"stdout"`
}

// MonitoringConfig contains metrics settings
type MonitoringConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" validate:"omitempty,url"`
	JobName        string `mapstructure:"job_name" default:"forkctl"`
}

// DevNodeConfig contains settings of the simulated fork node
type DevNodeConfig struct {
	ListenAddress   string        `mapstructure:"listen_address" default:"127.0.0.1:10999" validate:"required,hostname_port"`
	ChainID         int64         `mapstructure:"chain_id" default:"1" validate:"gt=0"`
	StateFile       string        `mapstructure:"state_file"`
	ManualMining    bool          `mapstructure:"manual_mining"`
	GasPriceWei     string        `mapstructure:"gas_price_wei" default:"1000000000" validate:"required,numeric"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"10s"`
}

// Default returns a configuration populated only with defaults.
func Default() (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return &cfg, nil
}

// Load loads configuration from an optional YAML file, the .env file and
// FORKCTL_* environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	base, err := Default()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, base)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// setDefaults registers every key with viper so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("node.rpc_url", d.Node.RPCURL)
	v.SetDefault("node.chain_id", d.Node.ChainID)
	v.SetDefault("node.impersonation_namespace", d.Node.ImpersonationNamespace)

	v.SetDefault("accounts.impersonate", d.Accounts.Impersonate)
	v.SetDefault("accounts.recipient", d.Accounts.Recipient)
	v.SetDefault("accounts.wallet_private_key", d.Accounts.WalletPrivateKey)

	v.SetDefault("contracts.token", d.Contracts.Token)
	v.SetDefault("contracts.token_symbol", d.Contracts.TokenSymbol)
	v.SetDefault("contracts.token_decimals", d.Contracts.TokenDecimals)
	v.SetDefault("contracts.weth", d.Contracts.WETH)

	v.SetDefault("actions.transfer.enabled", d.Actions.Transfer.Enabled)
	v.SetDefault("actions.transfer.amount", d.Actions.Transfer.Amount)
	v.SetDefault("actions.wrap.amount", d.Actions.Wrap.Amount)

	v.SetDefault("tx.gas_limit", d.Tx.GasLimit)
	v.SetDefault("tx.receipt_poll_interval", d.Tx.ReceiptPollInterval)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)

	v.SetDefault("monitoring.pushgateway_url", d.Monitoring.PushgatewayURL)
	v.SetDefault("monitoring.job_name", d.Monitoring.JobName)

	v.SetDefault("devnode.listen_address", d.DevNode.ListenAddress)
	v.SetDefault("devnode.chain_id", d.DevNode.ChainID)
	v.SetDefault("devnode.state_file", d.DevNode.StateFile)
	v.SetDefault("devnode.manual_mining", d.DevNode.ManualMining)
	v.SetDefault("devnode.gas_price_wei", d.DevNode.GasPriceWei)
	v.SetDefault("devnode.shutdown_timeout", d.DevNode.ShutdownTimeout)
}

// Validate checks struct constraints on a loaded configuration.
func Validate(config *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("private_key", validatePrivateKey); err != nil {
		return fmt.Errorf("register private_key validation: %w", err)
	}
	return validate.Struct(config)
}

func validatePrivateKey(fl validator.FieldLevel) bool {
	_, err := crypto.HexToECDSA(strings.TrimPrefix(fl.Field().String(), "0x"))
	return err == nil
}
