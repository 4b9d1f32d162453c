package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/ports"
	"github.com/sirupsen/logrus"
)

// ActiveAccounts resolves the selected burner of a session
type ActiveAccounts interface {
	Active(ctx context.Context, sessionID string) (*core.BurnerAccount, error)
}

// VRFConfig describes the provider and consumer contracts
type VRFConfig struct {
	Provider          core.Felt
	Consumer          core.Felt
	ConsumeEntrypoint string
	ReadEntrypoint    string
	Strategy          core.DerivationStrategy
	SettleDelay       time.Duration
}

// VRFService runs request_random + consume transactions and derives the displayed value
type VRFService struct {
	chain    ports.ChainClient
	keyring  ports.Keyring
	accounts ActiveAccounts
	eventPub ports.EventPublisher
	config   VRFConfig
	logger   logrus.FieldLogger

	mu          sync.Mutex
	generations map[string]*core.Generation

	now func() time.Time
}

// NewVRFService creates a new VRF orchestrator
func NewVRFService(
	chain ports.ChainClient,
	keyring ports.Keyring,
	accounts ActiveAccounts,
	eventPub ports.EventPublisher,
	config VRFConfig,
	logger logrus.FieldLogger,
) *VRFService {
	if config.Strategy == "" {
		config.Strategy = core.DeriveFromHash
	}
	return &VRFService{
		chain:       chain,
		keyring:     keyring,
		accounts:    accounts,
		eventPub:    eventPub,
		config:      config,
		logger:      logger,
		generations: make(map[string]*core.Generation),
		now:         time.Now,
	}
}

// Status returns the latest generation of a session
func (s *VRFService) Status(sessionID string) core.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, ok := s.generations[sessionID]
	if !ok {
		return core.Generation{Phase: core.PhaseIdle}
	}
	return copyGeneration(gen)
}

// Generate submits a VRF request from the session's active burner and waits for the result.
// A second call while one is in flight returns core.ErrGenerationInFlight without side effects.
func (s *VRFService) Generate(ctx context.Context, sessionID string) (*core.RandomResult, error) {
	if err := s.begin(sessionID); err != nil {
		return nil, err
	}

	// a submitted transaction holds the in-flight slot until it settles, even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	logger := s.logger.WithField("session", sessionID)

	account, err := s.accounts.Active(ctx, sessionID)
	if err != nil {
		return nil, s.fail(sessionID, err)
	}
	if account == nil {
		return nil, s.fail(sessionID, core.ErrNoActiveAccount)
	}

	s.advance(sessionID, core.PhaseSubmitting, nil)

	signer, err := s.keyring.Open(account.Address, account.Credential)
	if err != nil {
		return nil, s.fail(sessionID, core.Wrap(core.ErrSubmission, err))
	}

	request := core.NewVRFRequest(
		s.config.Provider,
		s.config.Consumer,
		s.config.ConsumeEntrypoint,
		account.Address,
		core.NonceSource(account.Address),
	)

	txHash, err := s.chain.Execute(ctx, signer, request.Calls())
	if err != nil {
		logger.WithError(err).Warn("vrf request submission failed")
		return nil, s.fail(sessionID, core.Wrap(core.ErrSubmission, err))
	}

	tx := &core.TransactionResult{Hash: txHash, Status: core.TxPending}
	s.advance(sessionID, core.PhaseConfirming, tx)
	logger.WithField("tx", txHash.String()).Debug("vrf request submitted")

	if _, err := s.chain.WaitForTransaction(ctx, txHash); err != nil {
		tx.Status = core.TxFailed
		s.advance(sessionID, core.PhaseConfirming, tx)
		logger.WithError(err).WithField("tx", txHash.String()).Warn("vrf request not confirmed")
		return nil, s.fail(sessionID, core.Wrap(core.ErrConfirmation, err))
	}

	tx.Status = core.TxConfirmed
	s.advance(sessionID, core.PhaseDeriving, tx)

	value, err := s.derive(ctx, txHash)
	if err != nil {
		logger.WithError(err).WithField("tx", txHash.String()).Warn("random number derivation failed")
		return nil, s.fail(sessionID, core.Wrap(core.ErrDerivation, err))
	}

	result := core.RandomResult{
		Value:       value,
		Transaction: *tx,
		Caller:      account.Address,
		Strategy:    s.config.Strategy,
		GeneratedAt: s.now().UTC(),
	}
	s.finish(sessionID, result)

	logger.WithFields(logrus.Fields{
		"tx":    txHash.String(),
		"value": value,
	}).Info("random number generated")

	if err := s.eventPub.PublishRandomGenerated(ctx, sessionID, result); err != nil {
		logger.WithError(err).Warn("failed to publish random generated event")
	}

	return &result, nil
}

// Forget drops the generation state of a session unless a generation is in flight
func (s *VRFService) Forget(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen, ok := s.generations[sessionID]; ok && gen.Phase.InFlight() {
		return false
	}
	delete(s.generations, sessionID)
	return true
}

func (s *VRFService) derive(ctx context.Context, txHash core.Felt) (int, error) {
	if s.config.Strategy != core.DeriveFromContract {
		return core.ValueFromHash(txHash), nil
	}

	if s.config.SettleDelay > 0 {
		timer := time.NewTimer(s.config.SettleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
		}
	}

	out, err := s.chain.Call(ctx, core.Call{
		To:         s.config.Consumer,
		Entrypoint: s.config.ReadEntrypoint,
		Calldata:   []core.Felt{},
	})
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("%s returned no value", s.config.ReadEntrypoint)
	}
	return core.ReduceToDisplay(out[0].BigInt()), nil
}

func (s *VRFService) begin(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen, ok := s.generations[sessionID]; ok && gen.Phase.InFlight() {
		return core.ErrGenerationInFlight
	}
	s.generations[sessionID] = &core.Generation{Phase: core.PhaseValidating}
	return nil
}

func (s *VRFService) advance(sessionID string, phase core.Phase, tx *core.TransactionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.generations[sessionID]
	gen.Phase = phase
	if tx != nil {
		snapshot := *tx
		gen.Transaction = &snapshot
	}
}

func (s *VRFService) fail(sessionID string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.generations[sessionID]
	gen.Phase = core.PhaseFailed
	gen.Error = err.Error()
	return err
}

func (s *VRFService) finish(sessionID string, result core.RandomResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.generations[sessionID]
	gen.Phase = core.PhaseDone
	gen.Result = &result
	gen.Transaction = &result.Transaction
}

func copyGeneration(gen *core.Generation) core.Generation {
	out := core.Generation{Phase: gen.Phase, Error: gen.Error}
	if gen.Transaction != nil {
		tx := *gen.Transaction
		out.Transaction = &tx
	}
	if gen.Result != nil {
		res := *gen.Result
		out.Result = &res
	}
	return out
}
