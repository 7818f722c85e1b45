package ethereum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainsafe/forkctl/internal/metrics"
	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const defaultPollInterval = time.Second

// ReceiptSource looks up receipts; ethereum.NotFound means "not mined yet".
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// transactionLookup is implemented by sources that can tell a transaction the
// node holds from one it has never seen.
type transactionLookup interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// PendingTx is a submitted transaction. Its hash is known immediately; it is
// only confirmed once Wait returns without error.
type PendingTx struct {
	Submission

	source       ReceiptSource
	pollInterval time.Duration
}

func newPendingTx(sub Submission, source ReceiptSource, pollInterval time.Duration) *PendingTx {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &PendingTx{
		Submission:   sub,
		source:       source,
		pollInterval: pollInterval,
	}
}

// NewPendingTx tracks an already submitted transaction by hash.
func NewPendingTx(sub Submission, source ReceiptSource, pollInterval time.Duration) *PendingTx {
	return newPendingTx(sub, source, pollInterval)
}

// Wait blocks until the node reports the transaction mined. A mined but
// reverted transaction is an execution error. While the node has no receipt
// Wait keeps polling; only ctx ends the wait early, and then ctx.Err() is
// returned unwrapped.
func (p *PendingTx) Wait(ctx context.Context) (*types.Receipt, error) {
	start := time.Now()
	defer func() { metrics.ConfirmationWait.Observe(time.Since(start).Seconds()) }()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := p.source.TransactionReceipt(ctx, p.Hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, apperrors.ExecutionError(
					fmt.Errorf("transaction %s reverted in block %s", p.Hash.Hex(), receipt.BlockNumber),
					"transaction reverted")
			}
			return receipt, nil
		case err == nil, errors.Is(err, goethereum.NotFound):
			// still pending
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, apperrors.ConfirmationError(err, "failed to fetch receipt")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status returns the current lifecycle state without blocking. Without a
// receipt, a source that can look transactions up distinguishes submitted
// from pending; any other source reports pending.
func (p *PendingTx) Status(ctx context.Context) (TxStatus, error) {
	receipt, err := p.source.TransactionReceipt(ctx, p.Hash)
	switch {
	case err == nil && receipt != nil:
		if receipt.Status == types.ReceiptStatusSuccessful {
			return TxStatusMined, nil
		}
		return TxStatusFailed, nil
	case err == nil, errors.Is(err, goethereum.NotFound):
	default:
		return "", apperrors.ConfirmationError(err, "failed to fetch receipt")
	}

	lookup, ok := p.source.(transactionLookup)
	if !ok {
		return TxStatusPending, nil
	}
	_, _, err = lookup.TransactionByHash(ctx, p.Hash)
	switch {
	case err == nil:
		return TxStatusPending, nil
	case errors.Is(err, goethereum.NotFound):
		return TxStatusSubmitted, nil
	default:
		return "", apperrors.ConfirmationError(err, "failed to fetch transaction")
	}
}
