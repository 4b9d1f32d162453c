package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/ports"
	"github.com/sirupsen/logrus"
)

// BurnerConfig describes how burner accounts are deployed and funded
type BurnerConfig struct {
	Master           core.MasterAccount
	AccountClassHash core.Felt
	Deployer         core.Felt
	FeeToken         core.Felt
	FundAmount       *big.Int
}

// BurnerService manages the burner accounts of each session
type BurnerService struct {
	chain    ports.ChainClient
	keyring  ports.Keyring
	store    ports.Store
	eventPub ports.EventPublisher
	config   BurnerConfig
	logger   logrus.FieldLogger

	// every sponsor transaction uses the master nonce
	masterMu sync.Mutex

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// NewBurnerService creates a new burner account manager
func NewBurnerService(
	chain ports.ChainClient,
	keyring ports.Keyring,
	store ports.Store,
	eventPub ports.EventPublisher,
	config BurnerConfig,
	logger logrus.FieldLogger,
) *BurnerService {
	return &BurnerService{
		chain:    chain,
		keyring:  keyring,
		store:    store,
		eventPub: eventPub,
		config:   config,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

// Init checks that the node and the store are reachable and returns the session's accounts
func (s *BurnerService) Init(ctx context.Context, sessionID string) ([]core.BurnerAccount, error) {
	chainID, err := s.chain.ChainID(ctx)
	if err != nil {
		return nil, core.Wrap(core.ErrInitialization, err)
	}

	set, err := s.store.LoadAccounts(ctx, sessionID)
	if err != nil {
		return nil, core.Wrap(core.ErrInitialization, err)
	}

	s.logger.WithFields(logrus.Fields{
		"session":  sessionID,
		"chain_id": chainID.String(),
		"accounts": len(set.Accounts),
	}).Debug("burner accounts initialized")

	return set.List(), nil
}

// List returns the accounts of a session in creation order
func (s *BurnerService) List(ctx context.Context, sessionID string) ([]core.BurnerAccount, error) {
	set, err := s.store.LoadAccounts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return set.List(), nil
}

// Create deploys and funds a new burner account and appends it to the session.
// The new account is not selected.
func (s *BurnerService) Create(ctx context.Context, sessionID string) (*core.BurnerAccount, error) {
	logger := s.logger.WithField("session", sessionID)

	cred, err := s.keyring.NewCredential()
	if err != nil {
		return nil, core.Wrap(core.ErrDeployment, fmt.Errorf("failed to generate credential: %w", err))
	}

	pub, err := s.keyring.PublicKey(cred)
	if err != nil {
		return nil, core.Wrap(core.ErrDeployment, err)
	}

	address, deployTx, err := s.deploy(ctx, pub)
	if err != nil {
		logger.WithError(err).Warn("burner deployment failed")
		return nil, core.Wrap(core.ErrDeployment, err)
	}

	account := core.BurnerAccount{
		Address:    address,
		Credential: cred,
		DeployTx:   deployTx,
		CreatedAt:  s.now().UTC(),
	}

	err = s.update(ctx, sessionID, func(set *core.AccountSet) bool {
		set.Add(account)
		return true
	})
	if err != nil {
		return nil, core.Wrap(core.ErrDeployment, err)
	}

	logger.WithFields(logrus.Fields{
		"address":   address.String(),
		"deploy_tx": deployTx.String(),
	}).Info("burner account created")

	if err := s.eventPub.PublishAccountDeployed(ctx, sessionID, account); err != nil {
		logger.WithError(err).Warn("failed to publish account deployed event")
	}

	return &account, nil
}

// Select makes address the active account. Unknown addresses are ignored.
func (s *BurnerService) Select(ctx context.Context, sessionID string, address core.Felt) error {
	return s.update(ctx, sessionID, func(set *core.AccountSet) bool {
		return set.Select(address)
	})
}

// Clear deselects and removes every burner account of the session
func (s *BurnerService) Clear(ctx context.Context, sessionID string) error {
	err := s.update(ctx, sessionID, func(set *core.AccountSet) bool {
		set.Clear()
		return true
	})
	if err != nil {
		return err
	}

	s.logger.WithField("session", sessionID).Info("burner accounts cleared")

	if err := s.eventPub.PublishAccountsCleared(ctx, sessionID); err != nil {
		s.logger.WithError(err).Warn("failed to publish accounts cleared event")
	}
	return nil
}

// Active returns the selected account, nil when none is selected
func (s *BurnerService) Active(ctx context.Context, sessionID string) (*core.BurnerAccount, error) {
	set, err := s.store.LoadAccounts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	acc, ok := set.Active()
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

// Snapshot returns the whole account set of a session
func (s *BurnerService) Snapshot(ctx context.Context, sessionID string) (*core.AccountSet, error) {
	return s.store.LoadAccounts(ctx, sessionID)
}

// SelectFirst selects the oldest account when nothing is selected
func (s *BurnerService) SelectFirst(ctx context.Context, sessionID string) error {
	return s.update(ctx, sessionID, func(set *core.AccountSet) bool {
		if _, ok := set.Active(); ok || len(set.Accounts) == 0 {
			return false
		}
		return set.Select(set.Accounts[0].Address)
	})
}

// deploy sponsors a new account through the universal deployer, then funds it
func (s *BurnerService) deploy(ctx context.Context, publicKey []core.Felt) (core.Felt, core.Felt, error) {
	s.masterMu.Lock()
	defer s.masterMu.Unlock()

	master, err := s.keyring.Open(s.config.Master.Address, s.config.Master.Credential)
	if err != nil {
		return core.Felt{}, core.Felt{}, fmt.Errorf("failed to open master account: %w", err)
	}

	salt := core.FeltFromUint64(0)
	if len(publicKey) > 0 {
		salt = publicKey[0]
	}

	deployCall := core.DeployContractCall(s.config.Deployer, s.config.AccountClassHash, salt, publicKey)
	deployTx, err := s.chain.Execute(ctx, master, []core.Call{deployCall})
	if err != nil {
		return core.Felt{}, core.Felt{}, err
	}

	receipt, err := s.chain.WaitForTransaction(ctx, deployTx)
	if err != nil {
		return core.Felt{}, deployTx, err
	}

	address, err := core.DeployedAddress(receipt, s.config.Deployer)
	if err != nil {
		return core.Felt{}, deployTx, err
	}

	transfer, err := core.TransferCall(s.config.FeeToken, address, s.config.FundAmount)
	if err != nil {
		return core.Felt{}, deployTx, err
	}

	fundTx, err := s.chain.Execute(ctx, master, []core.Call{transfer})
	if err != nil {
		return core.Felt{}, deployTx, fmt.Errorf("failed to fund %s: %w", address, err)
	}

	if _, err := s.chain.WaitForTransaction(ctx, fundTx); err != nil {
		return core.Felt{}, deployTx, fmt.Errorf("failed to fund %s: %w", address, err)
	}

	return address, deployTx, nil
}

// update runs a load-modify-save cycle under the session lock. mutate reports whether to save.
func (s *BurnerService) update(ctx context.Context, sessionID string, mutate func(set *core.AccountSet) bool) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	set, err := s.store.LoadAccounts(ctx, sessionID)
	if err != nil {
		return err
	}
	if !mutate(set) {
		return nil
	}
	return s.store.SaveAccounts(ctx, sessionID, set)
}

// Forget drops the lock and the persisted accounts of a session that can no longer be resumed.
// A session with an operation in progress is left alone and Forget reports false.
func (s *BurnerService) Forget(ctx context.Context, sessionID string) (bool, error) {
	s.locksMu.Lock()
	if lock, ok := s.locks[sessionID]; ok {
		if !lock.TryLock() {
			s.locksMu.Unlock()
			return false, nil
		}
		delete(s.locks, sessionID)
		lock.Unlock()
	}
	s.locksMu.Unlock()

	if err := s.store.DeleteAccounts(ctx, sessionID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *BurnerService) sessionLock(sessionID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}
