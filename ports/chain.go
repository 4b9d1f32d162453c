package ports

import (
	"context"

	"github.com/layer-3/burner/core"
)

// ChainClient talks to the blockchain node on behalf of an account
type ChainClient interface {
	// ChainID returns the chain identifier reported by the node
	ChainID(ctx context.Context) (core.Felt, error)

	// Execute signs calls as one multicall from sender and submits it
	Execute(ctx context.Context, sender Signer, calls []core.Call) (core.Felt, error)

	// WaitForTransaction polls until the transaction is accepted, reverted or rejected
	WaitForTransaction(ctx context.Context, txHash core.Felt) (*core.Receipt, error)

	// Call invokes a read-only entrypoint
	Call(ctx context.Context, call core.Call) ([]core.Felt, error)
}
