package playbook

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// mockReceiptSource is a mock implementation of ethereum.ReceiptSource
type mockReceiptSource struct {
	TransactionReceiptFunc func(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

func (m *mockReceiptSource) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if m.TransactionReceiptFunc != nil {
		return m.TransactionReceiptFunc(ctx, hash)
	}
	return nil, nil
}
