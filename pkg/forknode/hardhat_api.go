package forknode

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// HardhatAPI implements the fork-only account management methods. The same
// instance type is registered as hardhat_* and anvil_*.
type HardhatAPI struct {
	server    *Server
	namespace string
}

// NewHardhatAPI creates a HardhatAPI served under namespace
func NewHardhatAPI(server *Server, namespace string) *HardhatAPI {
	return &HardhatAPI{server: server, namespace: namespace}
}

// ImpersonateAccount lets address send transactions through
// eth_sendTransaction without a signature
func (api *HardhatAPI) ImpersonateAccount(address common.Address) bool {
	observe(api.namespace + "_impersonateAccount")
	api.server.chain.Impersonate(address)
	return true
}

// StopImpersonatingAccount revokes ImpersonateAccount
func (api *HardhatAPI) StopImpersonatingAccount(address common.Address) bool {
	observe(api.namespace + "_stopImpersonatingAccount")
	return api.server.chain.StopImpersonating(address)
}

// SetBalance overwrites the native balance of address
func (api *HardhatAPI) SetBalance(address common.Address, balance hexutil.Big) bool {
	observe(api.namespace + "_setBalance")
	api.server.chain.SetBalance(address, balance.ToInt())
	api.server.logger.Info("Balance set",
		zap.String("address", address.Hex()),
		zap.String("balance_wei", balance.ToInt().String()))
	return true
}

// Mine mines blocks blocks, one by default, spaced interval seconds apart.
// Pending transactions go into the first.
func (api *HardhatAPI) Mine(ctx context.Context, blocks, interval *hexutil.Uint64) (bool, error) {
	observe(api.namespace + "_mine")
	n := uint64(1)
	if blocks != nil && *blocks > 0 {
		n = uint64(*blocks)
	}
	var spacing uint64
	if interval != nil {
		spacing = uint64(*interval)
	}
	if _, err := api.server.chain.MineBlocks(ctx, n, spacing); err != nil {
		return false, err
	}
	return true, nil
}
