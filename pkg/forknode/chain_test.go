package forknode

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	treasury  = common.HexToAddress("0xD920E60b798A2F5a8332799d8a23075c9E77d5F8")
	devWallet = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	growAddr  = common.HexToAddress("0x761a3557184cbc07b7493da0661c41177b2f97fa")
	wethAddr  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	outsider  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func assertWei(t *testing.T, want, got *big.Int) {
	t.Helper()
	assert.Equal(t, want.String(), got.String())
}

func newSeededChain(t *testing.T, opts Options) *Chain {
	t.Helper()
	chain := NewChain(opts, zap.NewNop())
	require.NoError(t, chain.Seed(DefaultState()))
	return chain
}

func packTransfer(t *testing.T, to common.Address, amount *big.Int) *hexutil.Bytes {
	t.Helper()
	data, err := tokenABI.Pack("transfer", to, amount)
	require.NoError(t, err)
	b := hexutil.Bytes(data)
	return &b
}

func TestChain_DefaultState(t *testing.T) {
	chain := newSeededChain(t, Options{})

	assertWei(t, ether(10000), chain.Balance(devWallet))
	assertWei(t, ether(10), chain.Balance(treasury))

	grow, err := chain.TokenBalance(growAddr, treasury)
	require.NoError(t, err)
	assertWei(t, ether(10_000_000), grow)

	assert.NotEmpty(t, chain.Code(growAddr))
	assert.NotEmpty(t, chain.Code(wethAddr))
	assert.Empty(t, chain.Code(devWallet))
	assert.Equal(t, uint64(0), chain.BlockNumber())
}

func TestChain_SubmitUnsignedRequiresImpersonation(t *testing.T) {
	chain := newSeededChain(t, Options{})

	_, err := chain.SubmitUnsigned(CallArgs{
		From: &treasury,
		To:   &growAddr,
		Data: packTransfer(t, outsider, big.NewInt(1)),
	})
	require.ErrorIs(t, err, ErrUnknownAccount)

	chain.Impersonate(treasury)
	_, err = chain.SubmitUnsigned(CallArgs{
		From: &treasury,
		To:   &growAddr,
		Data: packTransfer(t, outsider, big.NewInt(1)),
	})
	require.NoError(t, err)

	assert.True(t, chain.StopImpersonating(treasury))
	assert.False(t, chain.IsImpersonated(treasury))
}

func TestChain_ImpersonatedTransfer(t *testing.T) {
	chain := newSeededChain(t, Options{GasPrice: big.NewInt(2_000_000_000)})
	chain.Impersonate(treasury)

	amount := ether(1_000_000)
	before := chain.Balance(treasury)

	hash, err := chain.SubmitUnsigned(CallArgs{
		From: &treasury,
		To:   &growAddr,
		Data: packTransfer(t, outsider, amount),
	})
	require.NoError(t, err)

	receipt := chain.Receipt(hash)
	require.NotNil(t, receipt)
	assert.Equal(t, hexutil.Uint64(types.ReceiptStatusSuccessful), receipt.Status)
	assert.Equal(t, hexutil.Uint64(1), receipt.BlockNumber)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, tokenABI.Events["Transfer"].ID, receipt.Logs[0].Topics[0])
	assert.Equal(t, hash, receipt.Logs[0].TxHash)

	got, err := chain.TokenBalance(growAddr, outsider)
	require.NoError(t, err)
	assertWei(t, amount, got)

	fee := new(big.Int).Mul(big.NewInt(int64(receipt.GasUsed)), big.NewInt(2_000_000_000))
	assertWei(t, new(big.Int).Sub(before, fee), chain.Balance(treasury))
	assert.Equal(t, uint64(1), chain.Nonce(treasury, false))
}

func TestChain_ManualMiningKeepsTransactionsPending(t *testing.T) {
	chain := newSeededChain(t, Options{ManualMining: true})
	chain.Impersonate(treasury)

	hash, err := chain.SubmitUnsigned(CallArgs{
		From: &treasury,
		To:   &growAddr,
		Data: packTransfer(t, outsider, big.NewInt(5)),
	})
	require.NoError(t, err)

	assert.Nil(t, chain.Receipt(hash))
	assert.Equal(t, 1, chain.PendingCount())
	assert.Equal(t, uint64(0), chain.Nonce(treasury, false))
	assert.Equal(t, uint64(1), chain.Nonce(treasury, true))

	tx := chain.Transaction(hash)
	require.NotNil(t, tx)
	assert.Nil(t, tx.BlockNumber)

	assert.Equal(t, uint64(1), chain.Mine())
	receipt := chain.Receipt(hash)
	require.NotNil(t, receipt)
	assert.Equal(t, hexutil.Uint64(types.ReceiptStatusSuccessful), receipt.Status)
	assert.Equal(t, 0, chain.PendingCount())

	tx = chain.Transaction(hash)
	require.NotNil(t, tx.BlockNumber)
	assert.Equal(t, hexutil.Uint64(1), *tx.BlockNumber)
}

func TestChain_MineBlocks(t *testing.T) {
	chain := newSeededChain(t, Options{ManualMining: true})
	chain.Impersonate(treasury)

	hash, err := chain.SubmitUnsigned(CallArgs{
		From: &treasury,
		To:   &growAddr,
		Data: packTransfer(t, outsider, big.NewInt(5)),
	})
	require.NoError(t, err)

	last, err := chain.MineBlocks(context.Background(), 3, 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), last)

	receipt := chain.Receipt(hash)
	require.NotNil(t, receipt)
	assert.Equal(t, hexutil.Uint64(1), receipt.BlockNumber)
	assert.Equal(t, chain.HeaderByNumber(2).Time+12, chain.HeaderByNumber(3).Time)
}

func TestChain_MineBlocksStopsOnCancel(t *testing.T) {
	chain := newSeededChain(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.MineBlocks(ctx, MaxMineBlocks, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), chain.BlockNumber())
}

func TestChain_MineBlocksLimit(t *testing.T) {
	chain := newSeededChain(t, Options{})

	_, err := chain.MineBlocks(context.Background(), MaxMineBlocks+1, 0)
	require.ErrorIs(t, err, ErrTooManyBlocks)
	assert.Equal(t, uint64(0), chain.BlockNumber())
}

func TestChain_ImpersonatedTransactionHasZeroSignature(t *testing.T) {
	chain := newSeededChain(t, Options{})
	chain.Impersonate(treasury)

	hash, err := chain.SubmitUnsigned(CallArgs{
		From: &treasury,
		To:   &growAddr,
		Data: packTransfer(t, outsider, big.NewInt(5)),
	})
	require.NoError(t, err)

	tx := chain.Transaction(hash)
	require.NotNil(t, tx)
	require.NotNil(t, tx.R)
	assert.Zero(t, tx.V.ToInt().Sign())
	assert.Zero(t, tx.R.ToInt().Sign())
	assert.Zero(t, tx.S.ToInt().Sign())
	assert.Nil(t, tx.ChainID)
}

func TestChain_SetAutomineMinesPending(t *testing.T) {
	chain := newSeededChain(t, Options{ManualMining: true})
	chain.Impersonate(treasury)

	hash, err := chain.SubmitUnsigned(CallArgs{
		From: &treasury,
		To:   &growAddr,
		Data: packTransfer(t, outsider, big.NewInt(5)),
	})
	require.NoError(t, err)
	require.Nil(t, chain.Receipt(hash))

	chain.SetAutomine(true)
	assert.NotNil(t, chain.Receipt(hash))
	assert.True(t, chain.Automine())
}

func TestChain_RevertChargesGas(t *testing.T) {
	chain := newSeededChain(t, Options{})
	chain.Impersonate(treasury)
	before := chain.Balance(treasury)

	gas := hexutil.Uint64(200_000)
	hash, err := chain.SubmitUnsigned(CallArgs{
		From: &treasury,
		To:   &growAddr,
		Gas:  &gas,
		Data: packTransfer(t, outsider, ether(20_000_000)),
	})
	require.NoError(t, err)

	receipt := chain.Receipt(hash)
	require.NotNil(t, receipt)
	assert.Equal(t, hexutil.Uint64(types.ReceiptStatusFailed), receipt.Status)
	assert.Empty(t, receipt.Logs)

	fee := new(big.Int).Mul(big.NewInt(int64(receipt.GasUsed)), chain.GasPrice())
	assertWei(t, new(big.Int).Sub(before, fee), chain.Balance(treasury))

	got, err := chain.TokenBalance(growAddr, outsider)
	require.NoError(t, err)
	assert.Zero(t, got.Sign())
}

func TestChain_EstimateGasReportsRevert(t *testing.T) {
	chain := newSeededChain(t, Options{})

	data := packTransfer(t, outsider, ether(20_000_000))
	_, err := chain.EstimateGas(treasury, &growAddr, nil, *data)
	require.ErrorIs(t, err, ErrExecutionReverted)

	data = packTransfer(t, outsider, ether(1))
	gas, err := chain.EstimateGas(treasury, &growAddr, nil, *data)
	require.NoError(t, err)
	assert.Greater(t, gas, uint64(txGas))
}

func TestChain_DepositAndWithdraw(t *testing.T) {
	chain := newSeededChain(t, Options{})
	chain.Impersonate(devWallet)

	deposit, err := tokenABI.Pack("deposit")
	require.NoError(t, err)
	input := hexutil.Bytes(deposit)
	value := (*hexutil.Big)(ether(1000))

	hash, err := chain.SubmitUnsigned(CallArgs{From: &devWallet, To: &wethAddr, Value: value, Data: &input})
	require.NoError(t, err)
	receipt := chain.Receipt(hash)
	require.NotNil(t, receipt)
	require.Equal(t, hexutil.Uint64(types.ReceiptStatusSuccessful), receipt.Status)

	weth, err := chain.TokenBalance(wethAddr, devWallet)
	require.NoError(t, err)
	assertWei(t, ether(1000), weth)
	assertWei(t, ether(1000), chain.Balance(wethAddr))

	withdraw, err := tokenABI.Pack("withdraw", ether(400))
	require.NoError(t, err)
	input = hexutil.Bytes(withdraw)
	hash, err = chain.SubmitUnsigned(CallArgs{From: &devWallet, To: &wethAddr, Data: &input})
	require.NoError(t, err)
	require.Equal(t, hexutil.Uint64(types.ReceiptStatusSuccessful), chain.Receipt(hash).Status)

	weth, err = chain.TokenBalance(wethAddr, devWallet)
	require.NoError(t, err)
	assertWei(t, ether(600), weth)
	assertWei(t, ether(600), chain.Balance(wethAddr))
}

func TestChain_TransferIsNotPayable(t *testing.T) {
	chain := newSeededChain(t, Options{})

	data := packTransfer(t, outsider, big.NewInt(1))
	_, err := chain.EstimateGas(treasury, &growAddr, big.NewInt(1), *data)
	require.ErrorIs(t, err, ErrExecutionReverted)
}

func TestChain_RejectsUnaffordableTransaction(t *testing.T) {
	chain := newSeededChain(t, Options{})
	chain.Impersonate(outsider)

	value := (*hexutil.Big)(ether(1))
	gas := hexutil.Uint64(21_000)
	_, err := chain.SubmitUnsigned(CallArgs{From: &outsider, To: &devWallet, Gas: &gas, Value: value})
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestChain_Call(t *testing.T) {
	chain := newSeededChain(t, Options{})

	data, err := tokenABI.Pack("balanceOf", treasury)
	require.NoError(t, err)
	out, err := chain.Call(common.Address{}, growAddr, nil, data)
	require.NoError(t, err)
	values, err := tokenABI.Unpack("balanceOf", out)
	require.NoError(t, err)
	assertWei(t, ether(10_000_000), values[0].(*big.Int))

	data, err = tokenABI.Pack("symbol")
	require.NoError(t, err)
	out, err = chain.Call(common.Address{}, wethAddr, nil, data)
	require.NoError(t, err)
	values, err = tokenABI.Unpack("symbol", out)
	require.NoError(t, err)
	assert.Equal(t, "WETH", values[0])

	out, err = chain.Call(common.Address{}, devWallet, nil, data)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	content := `
accounts:
  - address: "0x00000000000000000000000000000000000000aa"
    balance: "1.5"
tokens:
  - address: "0x00000000000000000000000000000000000000bb"
    symbol: USDC
    decimals: 6
    balances:
      "0x00000000000000000000000000000000000000aa": "250.25"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	state, err := LoadState(path)
	require.NoError(t, err)

	chain := NewChain(Options{}, zap.NewNop())
	require.NoError(t, chain.Seed(state))

	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assertWei(t, want, chain.Balance(outsider))

	usdc := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	got, err := chain.TokenBalance(usdc, outsider)
	require.NoError(t, err)
	assertWei(t, big.NewInt(250_250_000), got)
}

func TestLoadState_Errors(t *testing.T) {
	_, err := LoadState(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	chain := NewChain(Options{}, zap.NewNop())
	err = chain.Seed(&State{Accounts: []AccountState{{Address: "0xnope", Balance: "1"}}})
	require.Error(t, err)

	err = chain.Seed(&State{Accounts: []AccountState{{Address: outsider.Hex(), Balance: "-1"}}})
	require.Error(t, err)
}
