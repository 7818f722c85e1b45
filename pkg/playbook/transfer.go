package playbook

import (
	"context"
	"fmt"

	"github.com/chainsafe/forkctl/pkg/ethereum"
	"github.com/chainsafe/forkctl/pkg/units"
	"go.uber.org/zap"
)

func (s *Sequence) transfer(ctx context.Context) (*TransferResult, error) {
	p := s.params
	log := s.logger.With(
		zap.String("step", StepTransfer),
		zap.Stringer("mode", p.TransferMode))

	log.Info(fmt.Sprintf("Transferring %s tokens", p.TokenSymbol),
		zap.String("amount", units.FormatUnits(p.TransferAmount, p.TokenDecimals)),
		zap.String("recipient", p.Recipient.Hex()))

	result := &TransferResult{}
	if p.TransferMode == TransferModeEnabled {
		pending, err := s.deps.Token.Transact(ctx, ethereum.TxOptions{}, "transfer", p.Recipient, p.TransferAmount)
		if err != nil {
			log.Error("Token transfer failed", zap.Error(err))
			return nil, fmt.Errorf("transfer %s: %w", p.TokenSymbol, err)
		}
		result.Submitted = true
		result.Hash = pending.Hash
		log.Info("Transfer submitted", zap.String("tx_hash", pending.Hash.Hex()))
	}

	log.Info(fmt.Sprintf("Transferred %s %s to %s", p.TransferAmount, p.TokenSymbol, p.Recipient.Hex()),
		zap.Bool("submitted", result.Submitted))

	return result, nil
}
