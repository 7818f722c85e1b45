package forknode

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Gas schedule of the simulated contracts. Only the shape matters: every
// transaction costs more than a plain transfer and costs are deterministic.
const (
	txGas            = 21_000
	txDataZeroGas    = 4
	txDataNonZeroGas = 16
	tokenTransferGas = 29_000
	wethDepositGas   = 23_000
	wethWithdrawGas  = 14_000
)

// ErrExecutionReverted is wrapped by every simulated revert
var ErrExecutionReverted = errors.New("execution reverted")

// tokenABI is the union of the ERC20 and WETH9 surface the node simulates
const tokenABIJSON = `[
	{"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"deposit","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"wad","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"dst","type":"address"},{"indexed":false,"name":"wad","type":"uint256"}],"name":"Deposit","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"src","type":"address"},{"indexed":false,"name":"wad","type":"uint256"}],"name":"Withdrawal","type":"event"}
]`

var tokenABI = mustParseABI(tokenABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse token ABI: %v", err))
	}
	return parsed
}

// TokenInfo describes a simulated token contract
type TokenInfo struct {
	Name     string
	Symbol   string
	Decimals uint8
	// Wrapped tokens mint on deposit() against attached ether, like WETH9.
	Wrapped bool
}

type token struct {
	TokenInfo
	balances map[common.Address]*big.Int
}

func (t *token) balanceOf(addr common.Address) *big.Int {
	if b, ok := t.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (t *token) totalSupply() *big.Int {
	total := new(big.Int)
	for _, b := range t.balances {
		total.Add(total, b)
	}
	return total
}

func revert(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrExecutionReverted, fmt.Sprintf(format, args...))
}

func intrinsicGas(data []byte) uint64 {
	gas := uint64(txGas)
	for _, b := range data {
		if b == 0 {
			gas += txDataZeroGas
		} else {
			gas += txDataNonZeroGas
		}
	}
	return gas
}

// requiredGas is the gas a transaction with data consumes when it runs to
// completion. It does not depend on state.
func requiredGas(data []byte) uint64 {
	gas := intrinsicGas(data)
	if len(data) < 4 {
		return gas
	}
	method, err := tokenABI.MethodById(data[:4])
	if err != nil {
		return gas
	}
	switch method.Name {
	case "transfer":
		gas += tokenTransferGas
	case "deposit":
		gas += wethDepositGas
	case "withdraw":
		gas += wethWithdrawGas
	}
	return gas
}

// AddToken deploys a simulated token at addr. Redeploying keeps balances.
func (c *Chain) AddToken(addr common.Address, info TokenInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok, ok := c.tokens[addr]; ok {
		tok.TokenInfo = info
		return
	}
	c.tokens[addr] = &token{TokenInfo: info, balances: make(map[common.Address]*big.Int)}
}

// SetTokenBalance overwrites holder's balance of the token at addr
func (c *Chain) SetTokenBalance(addr, holder common.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.tokens[addr]
	if !ok {
		return fmt.Errorf("no token at %s", addr.Hex())
	}
	tok.balances[holder] = new(big.Int).Set(amount)
	return nil
}

// TokenBalance returns holder's balance of the token at addr
func (c *Chain) TokenBalance(addr, holder common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("no token at %s", addr.Hex())
	}
	return new(big.Int).Set(tok.balanceOf(holder)), nil
}

// executeLocked runs a state-changing call. With commit unset it only checks
// that the call would succeed.
func (c *Chain) executeLocked(from common.Address, to *common.Address, value *big.Int, data []byte, commit bool) ([]*types.Log, error) {
	if to == nil {
		return nil, revert("contract creation is not supported")
	}
	sender := c.accountLocked(from)
	if sender.balance.Cmp(value) < 0 {
		return nil, revert("insufficient balance for transfer")
	}

	tok, ok := c.tokens[*to]
	if !ok {
		if commit {
			c.moveNativeLocked(from, *to, value)
		}
		return nil, nil
	}

	if len(data) == 0 {
		if !tok.Wrapped {
			return nil, revert("%s does not accept ether", tok.Symbol)
		}
		return c.depositLocked(tok, *to, from, value, commit), nil
	}
	if len(data) < 4 {
		return nil, revert("invalid function selector")
	}
	method, err := tokenABI.MethodById(data[:4])
	if err != nil {
		return nil, revert("unknown function selector %s", hexutil.Encode(data[:4]))
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, revert("malformed arguments for %s", method.Name)
	}
	if method.Name != "deposit" && value.Sign() > 0 {
		return nil, revert("%s is not payable", method.Name)
	}

	switch method.Name {
	case "deposit":
		if !tok.Wrapped {
			return nil, revert("%s has no deposit", tok.Symbol)
		}
		return c.depositLocked(tok, *to, from, value, commit), nil

	case "withdraw":
		if !tok.Wrapped {
			return nil, revert("%s has no withdraw", tok.Symbol)
		}
		amount := args[0].(*big.Int)
		if tok.balanceOf(from).Cmp(amount) < 0 {
			return nil, revert("insufficient %s balance", tok.Symbol)
		}
		if !commit {
			return nil, nil
		}
		tok.balances[from] = new(big.Int).Sub(tok.balanceOf(from), amount)
		c.moveNativeLocked(*to, from, amount)
		return []*types.Log{{
			Address: *to,
			Topics:  []common.Hash{tokenABI.Events["Withdrawal"].ID, addressTopic(from)},
			Data:    common.LeftPadBytes(amount.Bytes(), 32),
		}}, nil

	case "transfer":
		recipient := args[0].(common.Address)
		amount := args[1].(*big.Int)
		if tok.balanceOf(from).Cmp(amount) < 0 {
			return nil, revert("transfer amount exceeds balance")
		}
		if !commit {
			return nil, nil
		}
		tok.balances[from] = new(big.Int).Sub(tok.balanceOf(from), amount)
		tok.balances[recipient] = new(big.Int).Add(tok.balanceOf(recipient), amount)
		return []*types.Log{{
			Address: *to,
			Topics:  []common.Hash{tokenABI.Events["Transfer"].ID, addressTopic(from), addressTopic(recipient)},
			Data:    common.LeftPadBytes(amount.Bytes(), 32),
		}}, nil
	}

	// view functions sent as transactions do nothing
	return nil, nil
}

func (c *Chain) depositLocked(tok *token, contract, from common.Address, value *big.Int, commit bool) []*types.Log {
	if !commit {
		return nil
	}
	c.moveNativeLocked(from, contract, value)
	tok.balances[from] = new(big.Int).Add(tok.balanceOf(from), value)
	return []*types.Log{{
		Address: contract,
		Topics:  []common.Hash{tokenABI.Events["Deposit"].ID, addressTopic(from)},
		Data:    common.LeftPadBytes(value.Bytes(), 32),
	}}
}

func (c *Chain) moveNativeLocked(from, to common.Address, value *big.Int) {
	if value.Sign() == 0 {
		return
	}
	src := c.accountLocked(from)
	dst := c.accountLocked(to)
	src.balance.Sub(src.balance, value)
	dst.balance.Add(dst.balance, value)
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

// Call evaluates a read-only call against the latest state. Calls to
// accounts without code return no data.
func (c *Chain) Call(from common.Address, to common.Address, value *big.Int, data []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value == nil {
		value = new(big.Int)
	}
	tok, ok := c.tokens[to]
	if !ok {
		return nil, nil
	}
	if len(data) < 4 {
		if _, err := c.executeLocked(from, &to, value, data, false); err != nil {
			return nil, err
		}
		return nil, nil
	}

	method, err := tokenABI.MethodById(data[:4])
	if err != nil {
		return nil, revert("unknown function selector %s", hexutil.Encode(data[:4]))
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, revert("malformed arguments for %s", method.Name)
	}

	switch method.Name {
	case "name":
		return method.Outputs.Pack(tok.Name)
	case "symbol":
		return method.Outputs.Pack(tok.Symbol)
	case "decimals":
		return method.Outputs.Pack(tok.Decimals)
	case "totalSupply":
		return method.Outputs.Pack(tok.totalSupply())
	case "balanceOf":
		return method.Outputs.Pack(tok.balanceOf(args[0].(common.Address)))
	case "transfer":
		if _, err := c.executeLocked(from, &to, value, data, false); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	default:
		if _, err := c.executeLocked(from, &to, value, data, false); err != nil {
			return nil, err
		}
		return nil, nil
	}
}
