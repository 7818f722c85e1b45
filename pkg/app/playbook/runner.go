// Package playbook implements app.Runner for `forkctl run`.
package playbook

import (
	"context"
	"fmt"

	"github.com/chainsafe/forkctl/internal/metrics"
	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	"github.com/chainsafe/forkctl/pkg/config"
	"github.com/chainsafe/forkctl/pkg/ethereum"
	"github.com/chainsafe/forkctl/pkg/playbook"
	"github.com/chainsafe/forkctl/pkg/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner performs one playbook pass against the configured node.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRunner initializes a new playbook Runner.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run executes the playbook and discards the result.
func (r *Runner) Run(ctx context.Context) error {
	_, err := r.Execute(ctx)
	return err
}

// Execute connects, resolves both signers, binds the contracts and runs the
// action sequence. Any error aborts the run.
func (r *Runner) Execute(ctx context.Context) (*playbook.Result, error) {
	if r.cfg == nil {
		return nil, apperrors.BadRequestError(nil, "nil config")
	}
	cfg := r.cfg
	logger := r.logger.With(zap.String("run_id", uuid.NewString()))

	params, err := buildParams(cfg)
	if err != nil {
		return nil, err
	}

	client, err := ethereum.NewClient(ctx, &cfg.Node, logger)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	bindOpts := ethereum.BindOptions{
		GasLimit:     cfg.Tx.GasLimit,
		PollInterval: cfg.Tx.ReceiptPollInterval,
		Logger:       logger,
	}

	logger.Info("Impersonating account",
		zap.String("address", cfg.Accounts.Impersonate),
		zap.String("namespace", cfg.Node.ImpersonationNamespace))
	impersonated, err := client.Impersonate(ctx, cfg.Accounts.Impersonate)
	if err != nil {
		logger.Error("Impersonation failed", zap.Error(err))
		return nil, err
	}

	logger.Info(fmt.Sprintf("Getting %s token contract", params.TokenSymbol),
		zap.String("token", cfg.Contracts.Token))
	token, err := ethereum.BindContract(common.HexToAddress(cfg.Contracts.Token), ethereum.ERC20ABI, impersonated, client, bindOpts)
	if err != nil {
		return nil, err
	}

	wallet, err := ethereum.NewKeyBackedSigner(cfg.Accounts.WalletPrivateKey)
	if err != nil {
		return nil, err
	}
	weth, err := ethereum.BindContract(common.HexToAddress(cfg.Contracts.WETH), ethereum.WETHABI, wallet, client, bindOpts)
	if err != nil {
		return nil, err
	}

	seq, err := playbook.NewSequence(playbook.Deps{
		Token:  token,
		WETH:   weth,
		Logger: logger,
	}, params)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "invalid playbook")
	}

	result, err := seq.Run(ctx)
	r.pushMetrics(logger)
	if err != nil {
		return nil, err
	}

	logger.Info("ETH successfully wrapped into WETH",
		zap.String("wallet", wallet.Address().Hex()),
		zap.String("tx_hash", result.Wrap.Hash.Hex()))

	return result, nil
}

func buildParams(cfg *config.Config) (playbook.Params, error) {
	transferAmount, err := units.ParseUnits(cfg.Actions.Transfer.Amount, cfg.Contracts.TokenDecimals)
	if err != nil {
		return playbook.Params{}, apperrors.BadRequestError(err, "invalid transfer amount")
	}
	wrapAmount, err := units.ParseEther(cfg.Actions.Wrap.Amount)
	if err != nil {
		return playbook.Params{}, apperrors.BadRequestError(err, "invalid wrap amount")
	}
	if !common.IsHexAddress(cfg.Accounts.Recipient) {
		return playbook.Params{}, apperrors.BadRequestError(nil, "invalid recipient address")
	}

	mode := playbook.TransferModeDisabled
	if cfg.Actions.Transfer.Enabled {
		mode = playbook.TransferModeEnabled
	}

	return playbook.Params{
		TransferMode:   mode,
		Recipient:      common.HexToAddress(cfg.Accounts.Recipient),
		TransferAmount: transferAmount,
		TokenSymbol:    cfg.Contracts.TokenSymbol,
		TokenDecimals:  cfg.Contracts.TokenDecimals,
		WrapAmount:     wrapAmount,
	}, nil
}

func (r *Runner) pushMetrics(logger *zap.Logger) {
	url := r.cfg.Monitoring.PushgatewayURL
	if url == "" {
		return
	}
	if err := metrics.Push(url, r.cfg.Monitoring.JobName); err != nil {
		logger.Warn("Failed to push metrics", zap.String("pushgateway_url", url), zap.Error(err))
	}
}
