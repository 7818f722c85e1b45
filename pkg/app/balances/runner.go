// Package balances implements app.Runner for `forkctl balances`: a report of
// the native, WETH and token balances of the accounts a playbook touches.
package balances

import (
	"context"
	"fmt"
	"math/big"

	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	"github.com/chainsafe/forkctl/pkg/config"
	"github.com/chainsafe/forkctl/pkg/ethereum"
	"github.com/chainsafe/forkctl/pkg/units"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Entry is one balance line
type Entry struct {
	Label   string
	Account common.Address
	Asset   string
	Raw     *big.Int
	// Amount is Raw scaled by the asset's decimals.
	Amount string
}

// Runner reports balances for the configured accounts.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRunner initializes a new balances Runner.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run collects the report and logs one line per entry.
func (r *Runner) Run(ctx context.Context) error {
	entries, err := r.Collect(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		r.logger.Info(fmt.Sprintf("%s %s balance: %s", e.Label, e.Asset, e.Amount),
			zap.String("account", e.Account.Hex()),
			zap.String("raw", e.Raw.String()))
	}
	return nil
}

type holder struct {
	label   string
	address common.Address
}

// Collect reads every balance without submitting transactions.
func (r *Runner) Collect(ctx context.Context) ([]Entry, error) {
	if r.cfg == nil {
		return nil, apperrors.BadRequestError(nil, "nil config")
	}
	cfg := r.cfg

	wallet, err := ethereum.NewKeyBackedSigner(cfg.Accounts.WalletPrivateKey)
	if err != nil {
		return nil, err
	}
	holders := []holder{
		{label: "wallet", address: wallet.Address()},
		{label: "recipient", address: common.HexToAddress(cfg.Accounts.Recipient)},
	}
	if common.IsHexAddress(cfg.Accounts.Impersonate) {
		holders = append(holders, holder{label: "impersonated", address: common.HexToAddress(cfg.Accounts.Impersonate)})
	}

	client, err := ethereum.NewClient(ctx, &cfg.Node, r.logger)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	bindOpts := ethereum.BindOptions{Logger: r.logger}
	token, err := ethereum.BindContract(common.HexToAddress(cfg.Contracts.Token), ethereum.ERC20ABI, nil, client, bindOpts)
	if err != nil {
		return nil, err
	}
	weth, err := ethereum.BindContract(common.HexToAddress(cfg.Contracts.WETH), ethereum.WETHABI, nil, client, bindOpts)
	if err != nil {
		return nil, err
	}

	symbol, decimals := r.tokenMetadata(ctx, token)

	var entries []Entry
	for _, h := range holders {
		native, err := client.BalanceAt(ctx, h.address)
		if err != nil {
			return nil, err
		}
		wrapped, err := weth.CallUint256(ctx, "balanceOf", h.address)
		if err != nil {
			return nil, err
		}
		held, err := token.CallUint256(ctx, "balanceOf", h.address)
		if err != nil {
			return nil, err
		}

		entries = append(entries,
			newEntry(h, "ETH", native, units.EtherDecimals),
			newEntry(h, "WETH", wrapped, units.EtherDecimals),
			newEntry(h, symbol, held, decimals),
		)
	}
	return entries, nil
}

// tokenMetadata reads symbol and decimals from the token, falling back to
// the configured values when the contract does not expose them.
func (r *Runner) tokenMetadata(ctx context.Context, token *ethereum.BoundContract) (string, int32) {
	symbol := r.cfg.Contracts.TokenSymbol
	decimals := r.cfg.Contracts.TokenDecimals

	if out, err := token.Call(ctx, "symbol"); err == nil && len(out) == 1 {
		if s, ok := out[0].(string); ok && s != "" {
			symbol = s
		}
	} else if err != nil {
		r.logger.Debug("Token symbol unavailable", zap.Error(err))
	}

	out, err := token.Call(ctx, "decimals")
	if err != nil {
		r.logger.Debug("Token decimals unavailable", zap.Error(err))
		return symbol, decimals
	}
	if len(out) == 1 {
		if d, ok := out[0].(uint8); ok {
			decimals = int32(d)
		}
	}
	return symbol, decimals
}

func newEntry(h holder, asset string, raw *big.Int, decimals int32) Entry {
	return Entry{
		Label:   h.label,
		Account: h.address,
		Asset:   asset,
		Raw:     raw,
		Amount:  units.FormatUnits(raw, decimals),
	}
}
