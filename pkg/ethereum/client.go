package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/chainsafe/forkctl/internal/metrics"
	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	"github.com/chainsafe/forkctl/pkg/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Client is a connection to a forked node. It speaks standard eth_* JSON-RPC
// through ethclient and the fork extension methods through the raw rpc client.
type Client struct {
	config  *config.NodeConfig
	rpc     *rpc.Client
	eth     *ethclient.Client
	chainID *big.Int
	logger  *zap.Logger
}

// NewClient dials the node and resolves its chain id.
func NewClient(ctx context.Context, cfg *config.NodeConfig, logger *zap.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, apperrors.ConnectivityError(err, "failed to dial fork node")
	}
	ethClient := ethclient.NewClient(rpcClient)

	nodeChainID, err := ethClient.ChainID(ctx)
	metrics.ObserveRPC("eth_chainId", err)
	if err != nil {
		rpcClient.Close()
		return nil, apperrors.ConnectivityError(err, "failed to query chain id")
	}

	chainID := nodeChainID
	if cfg.ChainID > 0 {
		chainID = big.NewInt(cfg.ChainID)
		if chainID.Cmp(nodeChainID) != 0 {
			logger.Warn("Configured chain id differs from node",
				zap.Int64("configured", cfg.ChainID),
				zap.String("node", nodeChainID.String()))
		}
	}

	logger.Info("Connected to fork node",
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("chain_id", chainID.String()))

	return &Client{
		config:  cfg,
		rpc:     rpcClient,
		eth:     ethClient,
		chainID: chainID,
		logger:  logger,
	}, nil
}

// Close closes the underlying connection
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

// ChainID returns the chain id transactions are signed for
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Eth exposes the typed client, e.g. as a bind.ContractBackend.
func (c *Client) Eth() *ethclient.Client {
	return c.eth
}

// Impersonate asks the node to accept transactions "from" address without a
// signature. The registration lives for the node session; it is never revoked
// here.
func (c *Client) Impersonate(ctx context.Context, address string) (*ImpersonatedSigner, error) {
	if !common.IsHexAddress(address) {
		return nil, apperrors.AuthorizationError(
			fmt.Errorf("malformed address %q", address), "failed to impersonate account")
	}
	addr := common.HexToAddress(address)

	method := c.config.ImpersonationNamespace + "_impersonateAccount"
	var ok any
	err := c.rpc.CallContext(ctx, &ok, method, addr)
	metrics.ObserveRPC(method, err)
	if err != nil {
		return nil, apperrors.AuthorizationError(err, "failed to impersonate account")
	}

	c.logger.Debug("Impersonation granted",
		zap.String("method", method),
		zap.String("address", addr.Hex()))

	return &ImpersonatedSigner{address: addr, namespace: c.config.ImpersonationNamespace}, nil
}

// StopImpersonating revokes an impersonation grant.
func (c *Client) StopImpersonating(ctx context.Context, signer *ImpersonatedSigner) error {
	method := signer.namespace + "_stopImpersonatingAccount"
	var ok any
	err := c.rpc.CallContext(ctx, &ok, method, signer.address)
	metrics.ObserveRPC(method, err)
	if err != nil {
		return apperrors.AuthorizationError(err, "failed to stop impersonating account")
	}
	return nil
}

// BalanceAt returns the latest native balance of account
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, account, nil)
	metrics.ObserveRPC("eth_getBalance", err)
	if err != nil {
		return nil, apperrors.ConnectivityError(err, "failed to get balance")
	}
	return balance, nil
}

// TransactionReceipt returns the receipt of a mined transaction, or
// ethereum.NotFound while it is pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, hash)
	metrics.ObserveRPC("eth_getTransactionReceipt", err)
	return receipt, err
}

// TransactionByHash returns a transaction the node holds, or
// ethereum.NotFound if it has never seen it.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, pending, err := c.eth.TransactionByHash(ctx, hash)
	metrics.ObserveRPC("eth_getTransactionByHash", err)
	return tx, pending, err
}

// sendArgs is the eth_sendTransaction payload for node-signed transactions
type sendArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// sendUnsigned submits a transaction the node signs on behalf of from. Only
// valid for accounts the node holds or impersonates.
func (c *Client) sendUnsigned(ctx context.Context, args sendArgs) (common.Hash, error) {
	var hash common.Hash
	err := c.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args)
	metrics.ObserveRPC("eth_sendTransaction", err)
	if err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}
