// Package playbook runs the fixed action sequence against a forked node:
// a token transfer from an impersonated account, then wrapping ether into
// WETH from a key-backed wallet.
package playbook

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/chainsafe/forkctl/internal/metrics"
	"github.com/chainsafe/forkctl/pkg/ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Step names used in logs and metrics
const (
	StepTransfer = "transfer"
	StepWrap     = "wrap"
)

// Step results used in metrics
const (
	statusOK      = "ok"
	statusSkipped = "skipped"
	statusFailed  = "failed"
)

// TransferMode selects what the transfer step does
type TransferMode int

const (
	// TransferModeDisabled is a placeholder: the step logs its phases and
	// reports success without submitting anything.
	TransferModeDisabled TransferMode = iota
	// TransferModeEnabled submits transfer(recipient, amount). The step does
	// not wait for it to be mined.
	TransferModeEnabled
)

func (m TransferMode) String() string {
	switch m {
	case TransferModeDisabled:
		return "disabled"
	case TransferModeEnabled:
		return "enabled"
	default:
		return fmt.Sprintf("TransferMode(%d)", int(m))
	}
}

// Contract is the part of ethereum.BoundContract the steps use
type Contract interface {
	Address() common.Address
	Transact(ctx context.Context, opts ethereum.TxOptions, method string, args ...any) (*ethereum.PendingTx, error)
}

// Deps are the bindings a run acts through. Token must be owned by the
// impersonated signer and WETH by the key-backed signer.
type Deps struct {
	Token  Contract
	WETH   Contract
	Logger *zap.Logger
}

// Params are the amounts and parties of a run
type Params struct {
	TransferMode   TransferMode
	Recipient      common.Address
	TransferAmount *big.Int
	TokenSymbol    string
	TokenDecimals  int32
	WrapAmount     *big.Int
}

// Result summarizes a completed run
type Result struct {
	Transfer TransferResult
	Wrap     WrapResult
}

// TransferResult describes the transfer step. Hash is zero when nothing was
// submitted.
type TransferResult struct {
	Submitted bool
	Hash      common.Hash
}

// WrapResult describes the mined wrap transaction
type WrapResult struct {
	Hash        common.Hash
	BlockNumber uint64
	GasUsed     uint64
	// GasCost is gasUsed × effectiveGasPrice in wei.
	GasCost *big.Int
}

// Sequence runs the steps strictly in order. The first failure ends the run.
type Sequence struct {
	deps   Deps
	params Params
	logger *zap.Logger
}

// NewSequence checks deps and params and returns a runnable Sequence
func NewSequence(deps Deps, params Params) (*Sequence, error) {
	if deps.WETH == nil {
		return nil, errors.New("missing WETH binding")
	}
	if params.TransferMode == TransferModeEnabled && deps.Token == nil {
		return nil, errors.New("missing token binding")
	}
	if params.TransferAmount == nil || params.TransferAmount.Sign() < 0 {
		return nil, errors.New("invalid transfer amount")
	}
	if params.WrapAmount == nil || params.WrapAmount.Sign() < 0 {
		return nil, errors.New("invalid wrap amount")
	}
	if params.TokenSymbol == "" {
		params.TokenSymbol = "tokens"
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sequence{deps: deps, params: params, logger: logger}, nil
}

// Run executes the transfer step then the wrap step
func (s *Sequence) Run(ctx context.Context) (*Result, error) {
	transfer, err := s.transfer(ctx)
	if err != nil {
		metrics.ObserveStep(StepTransfer, statusFailed)
		return nil, err
	}
	if transfer.Submitted {
		metrics.ObserveStep(StepTransfer, statusOK)
	} else {
		metrics.ObserveStep(StepTransfer, statusSkipped)
	}

	wrap, err := s.wrap(ctx)
	if err != nil {
		metrics.ObserveStep(StepWrap, statusFailed)
		return nil, err
	}
	metrics.ObserveStep(StepWrap, statusOK)

	return &Result{Transfer: *transfer, Wrap: *wrap}, nil
}
