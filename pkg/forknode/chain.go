package forknode

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/chainsafe/forkctl/internal/metrics"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const (
	blockGasLimit = 30_000_000
	// MaxMineBlocks bounds a single MineBlocks request.
	MaxMineBlocks = 10_000
)

var (
	// ErrUnknownAccount is returned by eth_sendTransaction for senders the
	// node neither holds nor impersonates.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrNonceMismatch is returned for raw transactions out of order.
	ErrNonceMismatch = errors.New("invalid nonce")
	// ErrInsufficientFunds is returned when a sender cannot cover value plus gas.
	ErrInsufficientFunds = errors.New("insufficient funds for gas * price + value")
	// ErrIntrinsicGas is returned when the gas limit is below the intrinsic cost.
	ErrIntrinsicGas = errors.New("intrinsic gas too low")
	// ErrKnownTransaction is returned for a hash the node has already seen.
	ErrKnownTransaction = errors.New("already known")
	// ErrUnsupportedTxType is returned for blob and set-code transactions.
	ErrUnsupportedTxType = errors.New("transaction type not supported")
	// ErrTooManyBlocks is returned when a mining request exceeds MaxMineBlocks.
	ErrTooManyBlocks = errors.New("too many blocks requested")
)

// Options configure a Chain
type Options struct {
	ChainID  *big.Int
	GasPrice *big.Int
	// ManualMining keeps transactions pending until evm_mine is called.
	ManualMining bool
}

type account struct {
	balance *big.Int
	nonce   uint64
}

type txRecord struct {
	hash     common.Hash
	from     common.Address
	to       *common.Address
	nonce    uint64
	value    *big.Int
	data     []byte
	gas      uint64
	gasPrice *big.Int
	// signed is the submitted transaction; nil for impersonated senders.
	signed  *types.Transaction
	receipt *RPCReceipt
}

// Chain is the in-memory state of a simulated fork. All methods are safe for
// concurrent use.
type Chain struct {
	mu sync.Mutex

	chainID      *big.Int
	gasPrice     *big.Int
	automine     bool
	accounts     map[common.Address]*account
	tokens       map[common.Address]*token
	impersonated map[common.Address]struct{}
	txs          map[common.Hash]*txRecord
	pending      []*txRecord
	blocks       []*types.Header

	logger *zap.Logger
}

// NewChain creates an empty chain with a genesis block at number 0
func NewChain(opts Options, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	chainID := opts.ChainID
	if chainID == nil {
		chainID = big.NewInt(1)
	}
	gasPrice := opts.GasPrice
	if gasPrice == nil {
		gasPrice = big.NewInt(1_000_000_000)
	}

	c := &Chain{
		chainID:      new(big.Int).Set(chainID),
		gasPrice:     new(big.Int).Set(gasPrice),
		automine:     !opts.ManualMining,
		accounts:     make(map[common.Address]*account),
		tokens:       make(map[common.Address]*token),
		impersonated: make(map[common.Address]struct{}),
		txs:          make(map[common.Hash]*txRecord),
		logger:       logger,
	}
	c.blocks = []*types.Header{newHeader(nil, 0)}
	metrics.NodeBlockNumber.Set(0)
	return c
}

func newHeader(parent *types.Header, number uint64) *types.Header {
	h := &types.Header{
		UncleHash:   types.EmptyUncleHash,
		Root:        types.EmptyRootHash,
		TxHash:      types.EmptyTxsHash,
		ReceiptHash: types.EmptyReceiptsHash,
		Difficulty:  new(big.Int),
		Number:      new(big.Int).SetUint64(number),
		GasLimit:    blockGasLimit,
		Time:        uint64(time.Now().Unix()),
	}
	if parent != nil {
		h.ParentHash = parent.Hash()
		if h.Time <= parent.Time {
			h.Time = parent.Time + 1
		}
	}
	return h
}

// ChainID returns the chain id transactions must be signed for
func (c *Chain) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// GasPrice returns the fixed gas price of the node
func (c *Chain) GasPrice() *big.Int {
	return new(big.Int).Set(c.gasPrice)
}

// BlockNumber returns the head block number
func (c *Chain) BlockNumber() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head().Number.Uint64()
}

// HeaderByNumber returns a mined header, or nil if the number is beyond head.
func (c *Chain) HeaderByNumber(number uint64) *types.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.blocks[0].Number.Uint64()
	if number < base || number-base >= uint64(len(c.blocks)) {
		return nil
	}
	return types.CopyHeader(c.blocks[number-base])
}

// Head returns the latest mined header
func (c *Chain) Head() *types.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.CopyHeader(c.head())
}

func (c *Chain) head() *types.Header {
	return c.blocks[len(c.blocks)-1]
}

func (c *Chain) accountLocked(addr common.Address) *account {
	acc, ok := c.accounts[addr]
	if !ok {
		acc = &account{balance: new(big.Int)}
		c.accounts[addr] = acc
	}
	return acc
}

// Balance returns the native balance of addr
func (c *Chain) Balance(addr common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if acc, ok := c.accounts[addr]; ok {
		return new(big.Int).Set(acc.balance)
	}
	return new(big.Int)
}

// SetBalance overwrites the native balance of addr
func (c *Chain) SetBalance(addr common.Address, balance *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountLocked(addr).balance = new(big.Int).Set(balance)
}

// Nonce returns the mined nonce of addr, or the next usable nonce when
// pending is set.
func (c *Chain) Nonce(addr common.Address, pending bool) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pending {
		return c.pendingNonceLocked(addr)
	}
	if acc, ok := c.accounts[addr]; ok {
		return acc.nonce
	}
	return 0
}

func (c *Chain) pendingNonceLocked(addr common.Address) uint64 {
	var nonce uint64
	if acc, ok := c.accounts[addr]; ok {
		nonce = acc.nonce
	}
	for _, tx := range c.pending {
		if tx.from == addr {
			nonce++
		}
	}
	return nonce
}

// Code returns a placeholder bytecode for simulated contracts and nothing for
// plain accounts.
func (c *Chain) Code(addr common.Address) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tokens[addr]; ok {
		return []byte{0x60, 0x80, 0x60, 0x40, 0x52}
	}
	return nil
}

// Impersonate lets addr send unsigned transactions
func (c *Chain) Impersonate(addr common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.impersonated[addr] = struct{}{}
	c.logger.Info("Impersonating account", zap.String("address", addr.Hex()))
}

// StopImpersonating revokes Impersonate. It reports whether addr was
// impersonated.
func (c *Chain) StopImpersonating(addr common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.impersonated[addr]
	delete(c.impersonated, addr)
	return ok
}

// IsImpersonated reports whether addr may send unsigned transactions
func (c *Chain) IsImpersonated(addr common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.impersonated[addr]
	return ok
}

// SetAutomine toggles mining on every accepted transaction. Enabling it
// mines whatever is pending.
func (c *Chain) SetAutomine(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.automine = enabled
	if enabled && len(c.pending) > 0 {
		c.mineLocked(0)
	}
}

// Automine reports whether transactions are mined on submission
func (c *Chain) Automine() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.automine
}

// PendingCount returns the number of accepted but unmined transactions
func (c *Chain) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Mine mines one block holding every pending transaction and returns its
// number.
func (c *Chain) Mine() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mineLocked(0)
}

// MineBlocks mines count blocks, pending transactions going into the first.
// A non-zero interval spaces block timestamps by that many seconds. It stops
// early with ctx.Err() once ctx is done and returns the last mined number.
func (c *Chain) MineBlocks(ctx context.Context, count, interval uint64) (uint64, error) {
	if count > MaxMineBlocks {
		return 0, fmt.Errorf("%w: %d, max %d", ErrTooManyBlocks, count, MaxMineBlocks)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	last := c.head().Number.Uint64()
	for i := uint64(0); i < count; i++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		last = c.mineLocked(interval)
	}
	return last, nil
}

// SubmitSigned accepts a transaction signed by a local key
func (c *Chain) SubmitSigned(tx *types.Transaction) (common.Hash, error) {
	switch tx.Type() {
	case types.LegacyTxType, types.AccessListTxType, types.DynamicFeeTxType:
	default:
		return common.Hash{}, fmt.Errorf("%w: %d", ErrUnsupportedTxType, tx.Type())
	}
	signer := types.LatestSignerForChainID(c.chainID)
	from, err := types.Sender(signer, tx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid sender: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if expected := c.pendingNonceLocked(from); tx.Nonce() != expected {
		return common.Hash{}, fmt.Errorf("%w: have %d, want %d", ErrNonceMismatch, tx.Nonce(), expected)
	}

	rec := &txRecord{
		hash:     tx.Hash(),
		from:     from,
		to:       tx.To(),
		nonce:    tx.Nonce(),
		value:    new(big.Int).Set(tx.Value()),
		data:     common.CopyBytes(tx.Data()),
		gas:      tx.Gas(),
		gasPrice: new(big.Int).Set(tx.GasPrice()),
		signed:   tx,
	}
	if err := c.admitLocked(rec); err != nil {
		return common.Hash{}, err
	}
	return rec.hash, nil
}

// SubmitUnsigned accepts a transaction from an impersonated account. Missing
// gas is estimated; the nonce and gas price are filled by the node.
func (c *Chain) SubmitUnsigned(args CallArgs) (common.Hash, error) {
	if args.From == nil {
		return common.Hash{}, fmt.Errorf("missing from address")
	}
	from := *args.From

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.impersonated[from]; !ok {
		return common.Hash{}, fmt.Errorf("%w: %s", ErrUnknownAccount, from.Hex())
	}

	value := new(big.Int)
	if args.Value != nil {
		value.Set(args.Value.ToInt())
	}
	data := common.CopyBytes(args.GetData())

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		estimate, err := c.estimateLocked(from, args.To, value, data)
		if err != nil {
			return common.Hash{}, err
		}
		gas = estimate
	}

	gasPrice := new(big.Int).Set(c.gasPrice)
	if args.GasPrice != nil {
		gasPrice.Set(args.GasPrice.ToInt())
	}

	nonce := c.pendingNonceLocked(from)
	if args.Nonce != nil && uint64(*args.Nonce) != nonce {
		return common.Hash{}, fmt.Errorf("%w: have %d, want %d", ErrNonceMismatch, uint64(*args.Nonce), nonce)
	}

	// Unsigned transactions have no signature to hash; derive the hash from
	// an unsigned legacy envelope plus the sender.
	envelope := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       args.To,
		Value:    value,
		Data:     data,
		V:        new(big.Int).SetBytes(from.Bytes()),
	})

	rec := &txRecord{
		hash:     envelope.Hash(),
		from:     from,
		to:       args.To,
		nonce:    nonce,
		value:    value,
		data:     data,
		gas:      gas,
		gasPrice: gasPrice,
	}
	if err := c.admitLocked(rec); err != nil {
		return common.Hash{}, err
	}
	return rec.hash, nil
}

func (c *Chain) admitLocked(rec *txRecord) error {
	if _, ok := c.txs[rec.hash]; ok {
		return ErrKnownTransaction
	}
	if intrinsic := intrinsicGas(rec.data); rec.gas < intrinsic {
		return fmt.Errorf("%w: have %d, want %d", ErrIntrinsicGas, rec.gas, intrinsic)
	}

	cost := new(big.Int).Mul(new(big.Int).SetUint64(rec.gas), rec.gasPrice)
	cost.Add(cost, rec.value)
	if balance := c.accountLocked(rec.from).balance; balance.Cmp(cost) < 0 {
		return fmt.Errorf("%w: address %s have %s want %s", ErrInsufficientFunds, rec.from.Hex(), balance, cost)
	}

	c.txs[rec.hash] = rec
	c.pending = append(c.pending, rec)
	metrics.NodePendingTransactions.Set(float64(len(c.pending)))

	c.logger.Info("Transaction accepted",
		zap.String("tx_hash", rec.hash.Hex()),
		zap.String("from", rec.from.Hex()),
		zap.Uint64("nonce", rec.nonce),
		zap.Bool("automine", c.automine))

	if c.automine {
		c.mineLocked(0)
	}
	return nil
}

func (c *Chain) mineLocked(interval uint64) uint64 {
	parent := c.head()
	header := newHeader(parent, parent.Number.Uint64()+1)
	if interval > 0 {
		header.Time = parent.Time + interval
	}
	blockHash := header.Hash()

	var cumulative uint64
	for i, rec := range c.pending {
		receipt := c.applyLocked(rec, header, blockHash, uint(i), cumulative)
		cumulative = uint64(receipt.CumulativeGasUsed)
	}
	header.GasUsed = cumulative
	mined := len(c.pending)
	c.pending = nil

	c.blocks = append(c.blocks, header)
	metrics.NodeBlockNumber.Set(float64(header.Number.Uint64()))
	metrics.NodePendingTransactions.Set(0)

	c.logger.Info("Block mined",
		zap.Uint64("number", header.Number.Uint64()),
		zap.Int("transactions", mined),
		zap.Uint64("gas_used", cumulative))

	return header.Number.Uint64()
}

// applyLocked executes rec and attaches its receipt. The sender always pays
// for the gas used, even when execution reverts.
func (c *Chain) applyLocked(rec *txRecord, header *types.Header, blockHash common.Hash, index uint, cumulative uint64) *RPCReceipt {
	sender := c.accountLocked(rec.from)
	sender.nonce++

	gasUsed := requiredGas(rec.data)
	outOfGas := rec.gas < gasUsed
	if outOfGas {
		gasUsed = rec.gas
	}

	fee := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), rec.gasPrice)
	if fee.Cmp(sender.balance) > 0 {
		fee.Set(sender.balance)
	}
	sender.balance.Sub(sender.balance, fee)

	status := types.ReceiptStatusSuccessful
	var logs []*types.Log
	if outOfGas {
		status = types.ReceiptStatusFailed
		c.logger.Warn("Transaction ran out of gas", zap.String("tx_hash", rec.hash.Hex()))
	} else {
		var err error
		logs, err = c.executeLocked(rec.from, rec.to, rec.value, rec.data, true)
		if err != nil {
			status = types.ReceiptStatusFailed
			logs = nil
			c.logger.Warn("Transaction reverted",
				zap.String("tx_hash", rec.hash.Hex()),
				zap.Error(err))
		}
	}

	if logs == nil {
		logs = make([]*types.Log, 0)
	}
	for i, l := range logs {
		l.BlockNumber = header.Number.Uint64()
		l.BlockHash = blockHash
		l.TxHash = rec.hash
		l.TxIndex = index
		l.Index = uint(i)
	}

	rec.receipt = &RPCReceipt{
		TransactionHash:   rec.hash,
		TransactionIndex:  hexutil.Uint(index),
		BlockHash:         blockHash,
		BlockNumber:       hexutil.Uint64(header.Number.Uint64()),
		From:              rec.from,
		To:                rec.to,
		CumulativeGasUsed: hexutil.Uint64(cumulative + gasUsed),
		GasUsed:           hexutil.Uint64(gasUsed),
		Logs:              logs,
		LogsBloom:         types.CreateBloom(&types.Receipt{Logs: logs}),
		Status:            hexutil.Uint64(status),
		EffectiveGasPrice: (*hexutil.Big)(new(big.Int).Set(rec.gasPrice)),
		Type:              hexutil.Uint64(types.LegacyTxType),
	}
	return rec.receipt
}

// Receipt returns the receipt of a mined transaction, or nil while the
// transaction is pending or unknown.
func (c *Chain) Receipt(hash common.Hash) *RPCReceipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.txs[hash]
	if !ok {
		return nil
	}
	return rec.receipt
}

// Transaction returns a known transaction, or nil
func (c *Chain) Transaction(hash common.Hash) *RPCTransaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.txs[hash]
	if !ok {
		return nil
	}

	// impersonated transactions carry a zero signature
	out := &RPCTransaction{
		Hash:     rec.hash,
		Nonce:    hexutil.Uint64(rec.nonce),
		From:     rec.from,
		To:       rec.to,
		Value:    (*hexutil.Big)(new(big.Int).Set(rec.value)),
		GasPrice: (*hexutil.Big)(new(big.Int).Set(rec.gasPrice)),
		Gas:      hexutil.Uint64(rec.gas),
		Input:    common.CopyBytes(rec.data),
		Type:     hexutil.Uint64(types.LegacyTxType),
		V:        (*hexutil.Big)(new(big.Int)),
		R:        (*hexutil.Big)(new(big.Int)),
		S:        (*hexutil.Big)(new(big.Int)),
	}
	if tx := rec.signed; tx != nil {
		v, r, s := tx.RawSignatureValues()
		out.V, out.R, out.S = (*hexutil.Big)(v), (*hexutil.Big)(r), (*hexutil.Big)(s)
		out.Type = hexutil.Uint64(tx.Type())
		if tx.Protected() {
			out.ChainID = (*hexutil.Big)(tx.ChainId())
		}
		if tx.Type() != types.LegacyTxType {
			accessList := tx.AccessList()
			if accessList == nil {
				accessList = types.AccessList{}
			}
			out.AccessList = &accessList
			yParity := hexutil.Uint64(v.Uint64())
			out.YParity = &yParity
		}
		if tx.Type() == types.DynamicFeeTxType {
			out.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
			out.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
		}
	}
	if rec.receipt != nil {
		blockHash := rec.receipt.BlockHash
		blockNumber := rec.receipt.BlockNumber
		index := rec.receipt.TransactionIndex
		out.BlockHash = &blockHash
		out.BlockNumber = &blockNumber
		out.TransactionIndex = &index
	}
	return out
}

// EstimateGas returns the gas a transaction would use, or the revert reason
func (c *Chain) EstimateGas(from common.Address, to *common.Address, value *big.Int, data []byte) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.estimateLocked(from, to, value, data)
}

func (c *Chain) estimateLocked(from common.Address, to *common.Address, value *big.Int, data []byte) (uint64, error) {
	if value == nil {
		value = new(big.Int)
	}
	if _, err := c.executeLocked(from, to, value, data, false); err != nil {
		return 0, err
	}
	return requiredGas(data), nil
}
