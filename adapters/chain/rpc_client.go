package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/account"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"
	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/ports"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// errCodeTxnHashNotFound is returned by the node while a transaction is not yet known
	errCodeTxnHashNotFound = 29

	blockLatest = "latest"
)

// Config configures the JSON-RPC chain client
type Config struct {
	RPCURL          string
	ChainID         core.Felt       // Expected chain id; zero accepts any
	CairoVersion    int             // __execute__ calldata layout: 0 for Cairo 0 accounts, 2 for Cairo 1
	FeeMultiplier   decimal.Decimal // Applied to estimated resource bounds
	ConfirmInterval time.Duration   // Receipt polling interval
	ConfirmTimeout  time.Duration   // Upper bound for one confirmation wait
}

// RPCClient implements ports.ChainClient on top of the starknet.go provider and account
type RPCClient struct {
	provider *rpc.Provider
	config   Config
	logger   logrus.FieldLogger
}

// NewRPCClient creates a provider for the node at cfg.RPCURL
func NewRPCClient(ctx context.Context, cfg Config, logger logrus.FieldLogger) (*RPCClient, error) {
	provider, err := rpc.NewProvider(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}
	if cfg.ConfirmInterval <= 0 {
		cfg.ConfirmInterval = 100 * time.Millisecond
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 2 * time.Minute
	}
	if cfg.FeeMultiplier.IsZero() {
		cfg.FeeMultiplier = decimal.NewFromFloat(1.5)
	}

	return &RPCClient{
		provider: provider,
		config:   cfg,
		logger:   logger,
	}, nil
}

// ChainID returns the chain identifier reported by the node
func (c *RPCClient) ChainID(ctx context.Context) (core.Felt, error) {
	name, err := c.provider.ChainID(ctx)
	if err != nil {
		return core.Felt{}, err
	}
	id, err := core.FeltFromShortString(name)
	if err != nil {
		return core.Felt{}, err
	}
	if !c.config.ChainID.IsZero() && !id.Equal(c.config.ChainID) {
		return core.Felt{}, fmt.Errorf("node serves chain %s, expected %s", name, c.config.ChainID)
	}
	return id, nil
}

// Execute builds, signs and submits calls as one invoke transaction from sender
func (c *RPCClient) Execute(ctx context.Context, sender ports.Signer, calls []core.Call) (core.Felt, error) {
	acc, err := account.NewAccount(c.provider, toFelt(sender.Address()), sender.PublicKey().String(), signerKeystore{sender}, c.config.CairoVersion)
	if err != nil {
		return core.Felt{}, fmt.Errorf("failed to open account %s: %w", sender.Address(), err)
	}

	invokes := make([]rpc.InvokeFunctionCall, 0, len(calls))
	for _, call := range calls {
		invokes = append(invokes, rpc.InvokeFunctionCall{
			ContractAddress: toFelt(call.To),
			FunctionName:    call.Entrypoint,
			CallData:        toFelts(call.Calldata),
		})
	}

	resp, err := acc.BuildAndSendInvokeTxn(ctx, invokes, c.config.FeeMultiplier.InexactFloat64())
	if err != nil {
		return core.Felt{}, err
	}

	hash, err := fromFelt(resp.TransactionHash)
	if err != nil {
		return core.Felt{}, err
	}

	c.logger.WithFields(logrus.Fields{
		"sender": sender.Address().String(),
		"calls":  len(calls),
		"tx":     hash.String(),
	}).Debug("transaction submitted")

	return hash, nil
}

// WaitForTransaction polls the receipt until the transaction is accepted or reverted
func (c *RPCClient) WaitForTransaction(ctx context.Context, txHash core.Felt) (*core.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.config.ConfirmInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.provider.TransactionReceipt(ctx, toFelt(txHash))
		switch {
		case err == nil:
			out, err := toReceipt(receipt)
			if err != nil {
				return nil, err
			}
			if out.ExecutionStatus == core.ExecutionReverted {
				return out, fmt.Errorf("transaction %s reverted: %s", txHash, out.RevertReason)
			}
			if out.Accepted() {
				return out, nil
			}
		case ctx.Err() != nil:
			return nil, waitErr(ctx, txHash)
		case !hashNotFound(err):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, waitErr(ctx, txHash)
		case <-ticker.C:
		}
	}
}

func waitErr(ctx context.Context, txHash core.Felt) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out waiting for transaction %s", txHash)
	}
	return ctx.Err()
}

// Call invokes a read-only entrypoint on the latest block
func (c *RPCClient) Call(ctx context.Context, call core.Call) ([]core.Felt, error) {
	out, err := c.provider.Call(ctx, rpc.FunctionCall{
		ContractAddress:    toFelt(call.To),
		EntryPointSelector: toFelt(call.Selector()),
		Calldata:           toFelts(call.Calldata),
	}, rpc.WithBlockTag(blockLatest))
	if err != nil {
		return nil, err
	}
	return fromFelts(out)
}

func hashNotFound(err error) bool {
	if errors.Is(err, rpc.ErrHashNotFound) {
		return true
	}
	var rpcErr *rpc.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == errCodeTxnHashNotFound
}

// signerKeystore lets a starknet.go account sign through a ports.Signer
type signerKeystore struct {
	signer ports.Signer
}

func (k signerKeystore) Sign(ctx context.Context, id string, msgHash *big.Int) (*big.Int, *big.Int, error) {
	return k.signer.Sign(ctx, msgHash)
}

func toReceipt(r *rpc.TransactionReceiptWithBlockInfo) (*core.Receipt, error) {
	hash, err := fromFelt(r.TransactionHash)
	if err != nil {
		return nil, err
	}

	out := &core.Receipt{
		TransactionHash: hash,
		FinalityStatus:  core.FinalityStatus(r.FinalityStatus),
		ExecutionStatus: core.ExecutionStatus(r.ExecutionStatus),
		RevertReason:    r.RevertReason,
		Events:          make([]core.Event, 0, len(r.Events)),
	}
	for _, ev := range r.Events {
		from, err := fromFelt(ev.FromAddress)
		if err != nil {
			return nil, err
		}
		keys, err := fromFelts(ev.Keys)
		if err != nil {
			return nil, err
		}
		data, err := fromFelts(ev.Data)
		if err != nil {
			return nil, err
		}
		out.Events = append(out.Events, core.Event{FromAddress: from, Keys: keys, Data: data})
	}
	return out, nil
}

func toFelt(f core.Felt) *felt.Felt {
	return utils.BigIntToFelt(f.BigInt())
}

func toFelts(words []core.Felt) []*felt.Felt {
	out := make([]*felt.Felt, 0, len(words))
	for _, w := range words {
		out = append(out, toFelt(w))
	}
	return out
}

func fromFelt(f *felt.Felt) (core.Felt, error) {
	if f == nil {
		return core.Felt{}, nil
	}
	return core.NewFelt(utils.FeltToBigInt(f))
}

func fromFelts(words []*felt.Felt) ([]core.Felt, error) {
	out := make([]core.Felt, 0, len(words))
	for _, w := range words {
		f, err := fromFelt(w)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
