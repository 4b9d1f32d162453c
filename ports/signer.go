package ports

import (
	"context"
	"math/big"

	"github.com/layer-3/burner/core"
)

// Signer is an account able to authorize transactions
type Signer interface {
	Address() core.Felt

	// PublicKey is the Stark public key the account contract validates against
	PublicKey() core.Felt

	// Sign produces the (r, s) Stark ECDSA signature of a transaction hash
	Sign(ctx context.Context, msgHash *big.Int) (r, s *big.Int, err error)
}

// Keyring creates and opens signing credentials
type Keyring interface {
	// NewCredential generates fresh secret material
	NewCredential() (core.Credential, error)

	// PublicKey returns the account constructor calldata for a credential
	PublicKey(cred core.Credential) ([]core.Felt, error)

	// Open binds a credential to an on-chain address
	Open(address core.Felt, cred core.Credential) (Signer, error)
}
