package forknode

import (
	"context"
	"fmt"
	"math/big"

	"github.com/chainsafe/forkctl/internal/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// EthAPI implements the eth_* JSON-RPC namespace. State is not versioned, so
// block parameters other than pending read the latest state.
type EthAPI struct {
	server *Server
}

// NewEthAPI creates a new EthAPI instance
func NewEthAPI(server *Server) *EthAPI {
	return &EthAPI{server: server}
}

func observe(method string) {
	metrics.NodeRequestsTotal.WithLabelValues(method).Inc()
}

// ChainId returns the chain ID (EIP-155)
func (api *EthAPI) ChainId() *hexutil.Big {
	observe("eth_chainId")
	return (*hexutil.Big)(api.server.chain.ChainID())
}

// BlockNumber returns the latest block number
func (api *EthAPI) BlockNumber() hexutil.Uint64 {
	observe("eth_blockNumber")
	return hexutil.Uint64(api.server.chain.BlockNumber())
}

// GasPrice returns the node's fixed gas price
func (api *EthAPI) GasPrice() *hexutil.Big {
	observe("eth_gasPrice")
	return (*hexutil.Big)(api.server.chain.GasPrice())
}

// MaxPriorityFeePerGas returns zero; blocks carry no base fee
func (api *EthAPI) MaxPriorityFeePerGas() *hexutil.Big {
	observe("eth_maxPriorityFeePerGas")
	return (*hexutil.Big)(new(big.Int))
}

// Syncing returns false (always synced)
func (api *EthAPI) Syncing() (interface{}, error) {
	observe("eth_syncing")
	return false, nil
}

// GetBalance returns the native balance of address
func (api *EthAPI) GetBalance(ctx context.Context, address common.Address, blockNrOrHash rpc.BlockNumberOrHash) (*hexutil.Big, error) {
	observe("eth_getBalance")
	return (*hexutil.Big)(api.server.chain.Balance(address)), nil
}

// GetTransactionCount returns the nonce of address. The pending tag counts
// transactions that are accepted but not mined.
func (api *EthAPI) GetTransactionCount(ctx context.Context, address common.Address, blockNrOrHash rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	observe("eth_getTransactionCount")
	pending := false
	if n, ok := blockNrOrHash.Number(); ok && n == rpc.PendingBlockNumber {
		pending = true
	}
	return hexutil.Uint64(api.server.chain.Nonce(address, pending)), nil
}

// GetCode returns the code at an address
func (api *EthAPI) GetCode(ctx context.Context, address common.Address, blockNrOrHash rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	observe("eth_getCode")
	return api.server.chain.Code(address), nil
}

// GetBlockByNumber returns the header of a mined block. Transaction bodies are
// not served.
func (api *EthAPI) GetBlockByNumber(ctx context.Context, number rpc.BlockNumber, fullTx bool) (*types.Header, error) {
	observe("eth_getBlockByNumber")
	if number < 0 {
		return api.server.chain.Head(), nil
	}
	return api.server.chain.HeaderByNumber(uint64(number)), nil
}

// EstimateGas returns the gas a transaction would use, or the revert error
func (api *EthAPI) EstimateGas(ctx context.Context, args CallArgs, blockNrOrHash *rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	observe("eth_estimateGas")
	var from common.Address
	if args.From != nil {
		from = *args.From
	}
	var value *big.Int
	if args.Value != nil {
		value = args.Value.ToInt()
	}
	gas, err := api.server.chain.EstimateGas(from, args.To, value, args.GetData())
	if err != nil {
		return 0, err
	}
	return hexutil.Uint64(gas), nil
}

// Call executes a call without creating a transaction
func (api *EthAPI) Call(ctx context.Context, args CallArgs, blockNrOrHash *rpc.BlockNumberOrHash, overrides *map[common.Address]interface{}) (hexutil.Bytes, error) {
	observe("eth_call")
	if args.To == nil {
		return nil, fmt.Errorf("missing to address")
	}
	var from common.Address
	if args.From != nil {
		from = *args.From
	}
	var value *big.Int
	if args.Value != nil {
		value = args.Value.ToInt()
	}
	return api.server.chain.Call(from, *args.To, value, args.GetData())
}

// SendRawTransaction submits a signed transaction
func (api *EthAPI) SendRawTransaction(ctx context.Context, data hexutil.Bytes) (common.Hash, error) {
	observe("eth_sendRawTransaction")
	var tx types.Transaction
	if err := tx.UnmarshalBinary(data); err != nil {
		api.server.logger.Warn("Failed to decode transaction", zap.Error(err))
		return common.Hash{}, fmt.Errorf("invalid transaction: %w", err)
	}

	hash, err := api.server.chain.SubmitSigned(&tx)
	if err != nil {
		api.server.logger.Warn("Transaction rejected",
			zap.String("tx_hash", tx.Hash().Hex()),
			zap.Error(err))
		return common.Hash{}, err
	}
	return hash, nil
}

// SendTransaction submits a transaction the node signs on behalf of an
// impersonated account
func (api *EthAPI) SendTransaction(ctx context.Context, args CallArgs) (common.Hash, error) {
	observe("eth_sendTransaction")
	hash, err := api.server.chain.SubmitUnsigned(args)
	if err != nil {
		api.server.logger.Warn("Transaction rejected", zap.Error(err))
		return common.Hash{}, err
	}
	return hash, nil
}

// GetTransactionReceipt returns the receipt for a mined transaction, or null
// while it is pending
func (api *EthAPI) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*RPCReceipt, error) {
	observe("eth_getTransactionReceipt")
	return api.server.chain.Receipt(hash), nil
}

// GetTransactionByHash returns a transaction by hash
func (api *EthAPI) GetTransactionByHash(ctx context.Context, hash common.Hash) (*RPCTransaction, error) {
	observe("eth_getTransactionByHash")
	return api.server.chain.Transaction(hash), nil
}
