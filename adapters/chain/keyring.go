package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/NethermindEth/starknet.go/account"
	"github.com/NethermindEth/starknet.go/curve"
	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/ports"
)

// StarkKeyring issues Stark-curve credentials for OpenZeppelin-style account contracts
type StarkKeyring struct{}

// NewStarkKeyring creates a new Stark keyring
func NewStarkKeyring() ports.Keyring {
	return &StarkKeyring{}
}

// NewCredential generates a fresh private key
func (k *StarkKeyring) NewCredential() (core.Credential, error) {
	priv, err := curve.Curve.GetRandomPrivateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return core.Credential("0x" + priv.Text(16)), nil
}

// PublicKey returns the account constructor calldata: the public key x coordinate
func (k *StarkKeyring) PublicKey(cred core.Credential) ([]core.Felt, error) {
	pub, _, err := publicKey(cred)
	if err != nil {
		return nil, err
	}
	return []core.Felt{pub}, nil
}

// Open binds a credential to the account deployed at address
func (k *StarkKeyring) Open(address core.Felt, cred core.Credential) (ports.Signer, error) {
	pub, priv, err := publicKey(cred)
	if err != nil {
		return nil, err
	}

	ks := account.NewMemKeystore()
	ks.Put(pub.String(), priv)

	return &StarkSigner{address: address, publicKey: pub, keystore: ks}, nil
}

// StarkSigner signs transaction hashes with a Stark key held in memory
type StarkSigner struct {
	address   core.Felt
	publicKey core.Felt
	keystore  *account.MemKeystore
}

// Address returns the account address
func (s *StarkSigner) Address() core.Felt {
	return s.address
}

// PublicKey returns the Stark public key of the account
func (s *StarkSigner) PublicKey() core.Felt {
	return s.publicKey
}

// Sign returns the (r, s) signature of msgHash
func (s *StarkSigner) Sign(ctx context.Context, msgHash *big.Int) (*big.Int, *big.Int, error) {
	return s.keystore.Sign(ctx, s.publicKey.String(), msgHash)
}

func publicKey(cred core.Credential) (core.Felt, *big.Int, error) {
	f, err := core.ParseFelt(string(cred))
	if err != nil || f.IsZero() {
		return core.Felt{}, nil, fmt.Errorf("invalid credential")
	}
	priv := f.BigInt()

	x, _, err := curve.Curve.PrivateToPoint(priv)
	if err != nil {
		return core.Felt{}, nil, fmt.Errorf("invalid credential: %w", err)
	}
	pub, err := core.NewFelt(x)
	if err != nil {
		return core.Felt{}, nil, fmt.Errorf("invalid credential: %w", err)
	}
	return pub, priv, nil
}
