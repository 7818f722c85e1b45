package forknode

import (
	"fmt"
	"os"

	"github.com/chainsafe/forkctl/pkg/units"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// State seeds a Chain with the part of mainnet a playbook touches. Amounts
// are decimal strings in whole units (ether, or token units scaled by the
// token's decimals).
type State struct {
	Accounts []AccountState `yaml:"accounts"`
	Tokens   []TokenState   `yaml:"tokens"`
}

// AccountState is the native balance of one address
type AccountState struct {
	Address string `yaml:"address"`
	Balance string `yaml:"balance"`
}

// TokenState is a token contract and its holders
type TokenState struct {
	Address  string            `yaml:"address"`
	Name     string            `yaml:"name"`
	Symbol   string            `yaml:"symbol"`
	Decimals uint8             `yaml:"decimals"`
	Wrapped  bool              `yaml:"wrapped"`
	Balances map[string]string `yaml:"balances"`
}

// DefaultState mirrors the fork the playbook was written against: the first
// dev account funded with ether, the GROW treasury holding tokens, and the
// canonical WETH9 contract.
func DefaultState() *State {
	return &State{
		Accounts: []AccountState{
			{Address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", Balance: "10000"},
			{Address: "0xD920E60b798A2F5a8332799d8a23075c9E77d5F8", Balance: "10"},
		},
		Tokens: []TokenState{
			{
				Address:  "0x761a3557184cbc07b7493da0661c41177b2f97fa",
				Name:     "Grow Token",
				Symbol:   "GROW",
				Decimals: 18,
				Balances: map[string]string{
					"0xD920E60b798A2F5a8332799d8a23075c9E77d5F8": "10000000",
				},
			},
			{
				Address:  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
				Name:     "Wrapped Ether",
				Symbol:   "WETH",
				Decimals: 18,
				Wrapped:  true,
			},
		},
	}
}

// LoadState reads a YAML state file
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &state, nil
}

// Seed applies state on top of the chain's current state
func (c *Chain) Seed(state *State) error {
	for _, acc := range state.Accounts {
		addr, err := parseAddress(acc.Address)
		if err != nil {
			return err
		}
		balance, err := units.ParseEther(acc.Balance)
		if err != nil {
			return fmt.Errorf("account %s: %w", acc.Address, err)
		}
		c.SetBalance(addr, balance)
	}

	for _, tok := range state.Tokens {
		addr, err := parseAddress(tok.Address)
		if err != nil {
			return err
		}
		c.AddToken(addr, TokenInfo{
			Name:     tok.Name,
			Symbol:   tok.Symbol,
			Decimals: tok.Decimals,
			Wrapped:  tok.Wrapped,
		})

		for holder, amount := range tok.Balances {
			holderAddr, err := parseAddress(holder)
			if err != nil {
				return fmt.Errorf("token %s: %w", tok.Symbol, err)
			}
			value, err := units.ParseUnits(amount, int32(tok.Decimals))
			if err != nil {
				return fmt.Errorf("token %s holder %s: %w", tok.Symbol, holder, err)
			}
			if err := c.SetTokenBalance(addr, holderAddr, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address: %q", s)
	}
	return common.HexToAddress(s), nil
}
