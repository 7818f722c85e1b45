package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignerKind identifies which variant a Signer is
type SignerKind string

const (
	// SignerKindImpersonated is authorized by the node, valid only on forks.
	SignerKindImpersonated SignerKind = "impersonated"
	// SignerKindKeyBacked signs locally with a private key.
	SignerKindKeyBacked SignerKind = "key-backed"
)

// Signer is an authority able to originate transactions. It is a closed set:
// *ImpersonatedSigner or *KeyBackedSigner.
type Signer interface {
	Address() common.Address
	Kind() SignerKind
	isSigner()
}

// ImpersonatedSigner acts as an address through the node's impersonation
// extension. It holds no key; obtain one with Client.Impersonate.
type ImpersonatedSigner struct {
	address   common.Address
	namespace string
}

// Address returns the impersonated account
func (s *ImpersonatedSigner) Address() common.Address { return s.address }

// Kind returns SignerKindImpersonated
func (s *ImpersonatedSigner) Kind() SignerKind { return SignerKindImpersonated }

func (s *ImpersonatedSigner) isSigner() {}

// KeyBackedSigner signs transactions with a private key
type KeyBackedSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeyBackedSigner parses a hex private key, with or without 0x prefix.
func NewKeyBackedSigner(hexKey string) (*KeyBackedSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, apperrors.BadRequestError(err, "failed to load private key")
	}
	return &KeyBackedSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the address derived from the key
func (s *KeyBackedSigner) Address() common.Address { return s.address }

// Kind returns SignerKindKeyBacked
func (s *KeyBackedSigner) Kind() SignerKind { return SignerKindKeyBacked }

func (s *KeyBackedSigner) isSigner() {}

// TransactOpts returns a keyed transactor for chainID
func (s *KeyBackedSigner) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	return auth, nil
}
