package playbook

import (
	"context"
	"fmt"
	"math/big"

	"github.com/chainsafe/forkctl/pkg/ethereum"
	"github.com/chainsafe/forkctl/pkg/units"
	"go.uber.org/zap"
)

// wrap deposits WrapAmount into WETH and blocks until the deposit is mined.
// There is no timeout of its own; only ctx ends the wait.
func (s *Sequence) wrap(ctx context.Context) (*WrapResult, error) {
	amount := s.params.WrapAmount
	log := s.logger.With(zap.String("step", StepWrap))

	log.Info("Wrapping ETH into WETH",
		zap.String("amount_eth", units.FormatUnits(amount, units.EtherDecimals)),
		zap.String("weth", s.deps.WETH.Address().Hex()))

	pending, err := s.deps.WETH.Transact(ctx, ethereum.TxOptions{Value: amount}, "deposit")
	if err != nil {
		log.Error("Wrap submission failed", zap.Error(err))
		return nil, fmt.Errorf("wrap: %w", err)
	}
	log.Info(fmt.Sprintf("Transaction hash: %s", pending.Hash.Hex()),
		zap.String("tx_hash", pending.Hash.Hex()))

	receipt, err := pending.Wait(ctx)
	if err != nil {
		log.Error("Wrap not confirmed",
			zap.String("tx_hash", pending.Hash.Hex()),
			zap.Error(err))
		return nil, fmt.Errorf("wrap %s: %w", pending.Hash.Hex(), err)
	}

	result := &WrapResult{
		Hash:    pending.Hash,
		GasUsed: receipt.GasUsed,
		GasCost: new(big.Int),
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.EffectiveGasPrice != nil {
		result.GasCost.Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
	}

	log.Info(fmt.Sprintf("Wrapped %s wei", amount),
		zap.Uint64("block_number", result.BlockNumber),
		zap.Uint64("gas_used", result.GasUsed),
		zap.String("gas_cost_wei", result.GasCost.String()))

	return result, nil
}
