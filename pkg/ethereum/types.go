package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Minimal interface fragments. Only the functions the playbook invokes are
// listed; nothing is checked against on-chain bytecode.
const (
	// ERC20ABI covers transfer plus the read calls used for balance reports.
	ERC20ABI = `[
	{"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

	// WETHABI covers the payable deposit and balanceOf.
	WETHABI = `[
	{"inputs":[],"name":"deposit","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`
)

// TxOptions are per-call transaction settings
type TxOptions struct {
	// Value is attached native currency in wei; nil means none.
	Value *big.Int
}

// TxStatus is the lifecycle state of a submitted transaction
type TxStatus string

const (
	// TxStatusSubmitted means the hash is known locally but the node does not
	// report the transaction yet.
	TxStatusSubmitted TxStatus = "submitted"
	// TxStatusPending means the node holds the transaction but has not mined it.
	TxStatusPending TxStatus = "pending"
	// TxStatusMined means the transaction is in a block and succeeded.
	TxStatusMined TxStatus = "mined"
	// TxStatusFailed means the transaction is in a block and reverted.
	TxStatusFailed TxStatus = "failed"
)

// Submission describes a transaction as it was sent
type Submission struct {
	Hash   common.Hash
	From   common.Address
	To     common.Address
	Method string
	Value  *big.Int
}
