package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/layer-3/burner/adapters/store"
	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/ports"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var (
	testMaster = core.MasterAccount{
		Address:    core.MustParseFelt("0x6677fe62ee39c7b07401f754138502bab7fac99d2d3c5d37df7d1c6fab10819"),
		Credential: core.Credential("master-key"),
	}
	testClassHash = core.MustParseFelt("0x5400e90f7e0ae78bd02c77cd75527280470e2fe19c54970dd79dc37a9d3645c")
	testFeeToken  = core.MustParseFelt("0x4718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d")
	testProvider  = core.MustParseFelt("0x51fea4450da9d6aee758bdeba88b2f665bcbf549d2c61421aa724e9ac0ced8f")
	testConsumer  = core.MustParseFelt("0x1b35e76e7d7a03ad640e91fe2125a8c9636761cbe1182e56dfadd7935453754")
)

type executed struct {
	sender core.Felt
	calls  []core.Call
}

// fakeChain records submitted transactions and answers from canned values.
// Deploy transactions get a receipt carrying a ContractDeployed event.
type fakeChain struct {
	mu sync.Mutex

	chainIDErr error
	executeErr error
	waitErr    error
	callErr    error
	callOut    []core.Felt
	nextHash   *core.Felt
	waitDelay  time.Duration // receipts arrive after this long unless ctx ends first

	// when set, Execute blocks until the channel is closed
	gate    chan struct{}
	entered chan struct{}

	chainIDCalls int
	executed     []executed
	waited       []core.Felt
	reads        []core.Call
	receipts     map[string]*core.Receipt
	deployed     int
}

func newFakeChain() *fakeChain {
	return &fakeChain{receipts: make(map[string]*core.Receipt)}
}

func (c *fakeChain) ChainID(ctx context.Context) (core.Felt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chainIDCalls++
	if c.chainIDErr != nil {
		return core.Felt{}, c.chainIDErr
	}
	return core.MustParseFelt("0x57505f535441525445525f565246"), nil
}

func (c *fakeChain) Execute(ctx context.Context, sender ports.Signer, calls []core.Call) (core.Felt, error) {
	c.mu.Lock()
	gate, entered := c.gate, c.entered
	c.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.executeErr != nil {
		return core.Felt{}, c.executeErr
	}
	c.executed = append(c.executed, executed{sender: sender.Address(), calls: calls})

	hash := core.FeltFromUint64(uint64(0x1000 + len(c.executed)))
	if c.nextHash != nil {
		hash = *c.nextHash
	}

	receipt := &core.Receipt{
		TransactionHash: hash,
		FinalityStatus:  core.FinalityAcceptedOnL2,
		ExecutionStatus: core.ExecutionSucceeded,
	}
	if len(calls) > 0 && calls[0].Entrypoint == core.EntrypointDeployContract {
		c.deployed++
		receipt.Events = []core.Event{{
			FromAddress: calls[0].To,
			Keys:        []core.Felt{core.Selector(core.EventContractDeployed)},
			Data:        []core.Felt{core.FeltFromUint64(uint64(0xb000 + c.deployed))},
		}}
	}
	c.receipts[hash.String()] = receipt

	return hash, nil
}

func (c *fakeChain) WaitForTransaction(ctx context.Context, txHash core.Felt) (*core.Receipt, error) {
	c.mu.Lock()
	delay := c.waitDelay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.waited = append(c.waited, txHash)
	if c.waitErr != nil {
		return nil, c.waitErr
	}
	receipt, ok := c.receipts[txHash.String()]
	if !ok {
		return nil, fmt.Errorf("timed out waiting for transaction %s", txHash)
	}
	return receipt, nil
}

func (c *fakeChain) Call(ctx context.Context, call core.Call) ([]core.Felt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = append(c.reads, call)
	if c.callErr != nil {
		return nil, c.callErr
	}
	return c.callOut, nil
}

func (c *fakeChain) executions() []executed {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]executed, len(c.executed))
	copy(out, c.executed)
	return out
}

type fakeSigner struct {
	address core.Felt
}

func (s *fakeSigner) Address() core.Felt { return s.address }

func (s *fakeSigner) PublicKey() core.Felt { return core.FeltFromUint64(1) }

func (s *fakeSigner) Sign(ctx context.Context, msgHash *big.Int) (*big.Int, *big.Int, error) {
	return msgHash, big.NewInt(1), nil
}

// fakeKeyring hands out numbered credentials
type fakeKeyring struct {
	mu      sync.Mutex
	issued  int
	openErr error
	opened  []core.Felt
}

func (k *fakeKeyring) NewCredential() (core.Credential, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.issued++
	return core.Credential(fmt.Sprintf("burner-key-%d", k.issued)), nil
}

func (k *fakeKeyring) PublicKey(cred core.Credential) ([]core.Felt, error) {
	var n uint64
	if _, err := fmt.Sscanf(string(cred), "burner-key-%d", &n); err != nil {
		return nil, errors.New("unknown credential")
	}
	return []core.Felt{core.FeltFromUint64(n)}, nil
}

func (k *fakeKeyring) Open(address core.Felt, cred core.Credential) (ports.Signer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.openErr != nil {
		return nil, k.openErr
	}
	k.opened = append(k.opened, address)
	return &fakeSigner{address: address}, nil
}

type publishedEvent struct {
	topic     string
	sessionID string
	payload   interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) record(topic, sessionID string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, sessionID: sessionID, payload: payload})
	return nil
}

func (p *fakePublisher) PublishAccountDeployed(ctx context.Context, sessionID string, account core.BurnerAccount) error {
	return p.record("deployed", sessionID, account)
}

func (p *fakePublisher) PublishAccountsCleared(ctx context.Context, sessionID string) error {
	return p.record("cleared", sessionID, nil)
}

func (p *fakePublisher) PublishRandomGenerated(ctx context.Context, sessionID string, result core.RandomResult) error {
	return p.record("random", sessionID, result)
}

func (p *fakePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.topic
	}
	return out
}

// failingStore fails every operation
type failingStore struct{}

func (failingStore) LoadAccounts(ctx context.Context, sessionID string) (*core.AccountSet, error) {
	return nil, fmt.Errorf("%w: dial tcp 127.0.0.1:6379: connect: connection refused", core.ErrStoreOperationFailed)
}

func (failingStore) SaveAccounts(ctx context.Context, sessionID string, set *core.AccountSet) error {
	return fmt.Errorf("%w: dial tcp 127.0.0.1:6379: connect: connection refused", core.ErrStoreOperationFailed)
}

func (failingStore) DeleteAccounts(ctx context.Context, sessionID string) error {
	return fmt.Errorf("%w: dial tcp 127.0.0.1:6379: connect: connection refused", core.ErrStoreOperationFailed)
}

type fixture struct {
	chain     *fakeChain
	keyring   *fakeKeyring
	store     ports.Store
	publisher *fakePublisher
	logs      *test.Hook
	burners   *BurnerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		chain:     newFakeChain(),
		keyring:   &fakeKeyring{},
		store:     store.NewMemoryStore(),
		publisher: &fakePublisher{},
		logs:      hook,
	}
	f.burners = NewBurnerService(f.chain, f.keyring, f.store, f.publisher, BurnerConfig{
		Master:           testMaster,
		AccountClassHash: testClassHash,
		Deployer:         core.UniversalDeployerAddress,
		FeeToken:         testFeeToken,
		FundAmount:       new(big.Int).Exp(big.NewInt(10), big.NewInt(16), nil),
	}, logger)
	return f
}

func (f *fixture) vrf(cfg VRFConfig) *VRFService {
	if cfg.Provider.IsZero() {
		cfg.Provider = testProvider
	}
	if cfg.Consumer.IsZero() {
		cfg.Consumer = testConsumer
	}
	if cfg.ConsumeEntrypoint == "" {
		cfg.ConsumeEntrypoint = "get_random_number"
	}
	logger, _ := test.NewNullLogger()
	return NewVRFService(f.chain, f.keyring, f.burners, f.publisher, cfg, logger)
}

func hexWords(words []core.Felt) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = w.String()
	}
	return out
}
