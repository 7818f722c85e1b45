package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/chainsafe/forkctl/internal/metrics"
	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

// ErrNoSigner is returned when a read-only binding is asked to transact
var ErrNoSigner = errors.New("contract binding has no signer")

// BoundContract pairs a contract address, an interface fragment and the
// signer that owns the binding.
type BoundContract struct {
	address common.Address
	abi     abi.ABI
	signer  Signer
	client  *Client
	bound   *bind.BoundContract
	opts    BindOptions
}

// BindOptions tune how a binding submits transactions
type BindOptions struct {
	// GasLimit of 0 asks the node to estimate.
	GasLimit     uint64
	PollInterval time.Duration
	Logger       *zap.Logger
}

// BindContract attaches fragment to address. signer may be nil for a
// read-only binding.
func BindContract(address common.Address, fragment string, signer Signer, client *Client, opts BindOptions) (*BoundContract, error) {
	parsed, err := abi.JSON(strings.NewReader(fragment))
	if err != nil {
		return nil, apperrors.BadRequestError(err, "failed to parse contract interface")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	eth := client.Eth()
	return &BoundContract{
		address: address,
		abi:     parsed,
		signer:  signer,
		client:  client,
		bound:   bind.NewBoundContract(address, parsed, eth, eth, eth),
		opts:    opts,
	}, nil
}

// Address returns the contract address
func (c *BoundContract) Address() common.Address {
	return c.address
}

// Signer returns the signer owning this binding, or nil
func (c *BoundContract) Signer() Signer {
	return c.signer
}

// WithSigner returns a new binding to the same contract owned by signer.
func (c *BoundContract) WithSigner(signer Signer) *BoundContract {
	next := *c
	next.signer = signer
	return &next
}

// Transact encodes method(args...), has it signed by the bound signer and
// submits it. The returned PendingTx is not yet mined.
func (c *BoundContract) Transact(ctx context.Context, opts TxOptions, method string, args ...any) (*PendingTx, error) {
	var (
		sub *Submission
		err error
	)
	switch s := c.signer.(type) {
	case *KeyBackedSigner:
		sub, err = c.transactKeyed(ctx, s, opts, method, args)
	case *ImpersonatedSigner:
		sub, err = c.transactImpersonated(ctx, s, opts, method, args)
	case nil:
		return nil, apperrors.ExecutionError(ErrNoSigner, method)
	default:
		return nil, apperrors.ExecutionError(fmt.Errorf("unsupported signer %T", s), method)
	}
	if err != nil {
		return nil, apperrors.ExecutionError(err, fmt.Sprintf("failed to submit %s", method))
	}

	c.opts.Logger.Debug("Transaction submitted",
		zap.String("method", method),
		zap.String("signer_kind", string(c.signer.Kind())),
		zap.String("from", sub.From.Hex()),
		zap.String("to", sub.To.Hex()),
		zap.String("tx_hash", sub.Hash.Hex()))

	return newPendingTx(*sub, c.client, c.opts.PollInterval), nil
}

func (c *BoundContract) transactKeyed(
	ctx context.Context,
	s *KeyBackedSigner,
	opts TxOptions,
	method string,
	args []any,
) (*Submission, error) {
	auth, err := s.TransactOpts(ctx, c.client.ChainID())
	if err != nil {
		return nil, err
	}

	nonce, err := c.client.Eth().PendingNonceAt(ctx, s.Address())
	metrics.ObserveRPC("eth_getTransactionCount", err)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)

	gasPrice, err := c.client.Eth().SuggestGasPrice(ctx)
	metrics.ObserveRPC("eth_gasPrice", err)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	auth.GasPrice = gasPrice
	auth.GasLimit = c.opts.GasLimit
	auth.Value = opts.Value

	tx, err := c.bound.Transact(auth, method, args...)
	metrics.ObserveRPC("eth_sendRawTransaction", err)
	if err != nil {
		return nil, err
	}

	return &Submission{
		Hash:   tx.Hash(),
		From:   s.Address(),
		To:     c.address,
		Method: method,
		Value:  tx.Value(),
	}, nil
}

func (c *BoundContract) transactImpersonated(
	ctx context.Context,
	s *ImpersonatedSigner,
	opts TxOptions,
	method string,
	args []any,
) (*Submission, error) {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	to := c.address
	req := sendArgs{
		From: s.Address(),
		To:   &to,
		Data: input,
	}
	if c.opts.GasLimit > 0 {
		gas := hexutil.Uint64(c.opts.GasLimit)
		req.Gas = &gas
	}
	value := new(big.Int)
	if opts.Value != nil {
		value.Set(opts.Value)
		req.Value = (*hexutil.Big)(value)
	}

	hash, err := c.client.sendUnsigned(ctx, req)
	if err != nil {
		return nil, err
	}

	return &Submission{
		Hash:   hash,
		From:   s.Address(),
		To:     c.address,
		Method: method,
		Value:  value,
	}, nil
}

// Call performs a read-only call and returns the decoded outputs.
func (c *BoundContract) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	opts := &bind.CallOpts{Context: ctx}
	if c.signer != nil {
		opts.From = c.signer.Address()
	}

	var out []any
	err := c.bound.Call(opts, &out, method, args...)
	metrics.ObserveRPC("eth_call", err)
	if err != nil {
		return nil, apperrors.ExecutionError(err, fmt.Sprintf("call %s", method))
	}
	return out, nil
}

// CallUint256 is Call for methods returning a single uint256.
func (c *BoundContract) CallUint256(ctx context.Context, method string, args ...any) (*big.Int, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, apperrors.ExecutionError(fmt.Errorf("expected 1 output, got %d", len(out)), method)
	}
	value, ok := out[0].(*big.Int)
	if !ok {
		return nil, apperrors.ExecutionError(fmt.Errorf("unexpected output type %T", out[0]), method)
	}
	return value, nil
}
