package service

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/burner/core"
	"github.com/sirupsen/logrus"
)

// ShellState is the single state the page renders
type ShellState string

const (
	ShellLoading   ShellState = "loading"
	ShellError     ShellState = "error"
	ShellNoAccount ShellState = "no_account"
	ShellReady     ShellState = "ready"
)

// ShellView is everything the page needs to render one session
type ShellView struct {
	State      ShellState
	Error      string
	Accounts   []core.BurnerAccount
	Active     *core.BurnerAccount
	Generation core.Generation
}

type bootstrap struct {
	done chan struct{}
	err  error
}

func (b *bootstrap) finished() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *bootstrap) failed() bool {
	return b.finished() && b.err != nil
}

// ShellService bootstraps each session once and composes the page state
type ShellService struct {
	burners    *BurnerService
	vrf        *VRFService
	autoCreate bool
	logger     logrus.FieldLogger

	mu    sync.Mutex
	boots map[string]*bootstrap
	seen  map[string]time.Time

	now func() time.Time
}

// NewShellService creates the page orchestrator
func NewShellService(burners *BurnerService, vrf *VRFService, autoCreate bool, logger logrus.FieldLogger) *ShellService {
	return &ShellService{
		burners:    burners,
		vrf:        vrf,
		autoCreate: autoCreate,
		logger:     logger,
		boots:      make(map[string]*bootstrap),
		seen:       make(map[string]time.Time),
		now:        time.Now,
	}
}

// Bootstrap initializes the session's accounts, creating one when the session has none,
// and selects the first account. It runs once per session; later calls wait for and
// return the first outcome.
func (s *ShellService) Bootstrap(ctx context.Context, sessionID string) error {
	b, started := s.start(sessionID)
	if started {
		s.run(ctx, sessionID, b)
	}

	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartBootstrap kicks off the session bootstrap in the background. A bootstrap that
// is loading or succeeded is kept; one that failed is discarded and run again.
func (s *ShellService) StartBootstrap(ctx context.Context, sessionID string) {
	s.mu.Lock()
	if b, ok := s.boots[sessionID]; ok && b.failed() {
		delete(s.boots, sessionID)
	}
	s.mu.Unlock()

	b, started := s.start(sessionID)
	if started {
		go s.run(context.WithoutCancel(ctx), sessionID, b)
	}
}

// Touch marks the session as in use
func (s *ShellService) Touch(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[sessionID] = s.now()
}

// Sweep forgets every session unused for longer than idle and returns how many were dropped.
// Sessions with a running bootstrap or generation are kept.
func (s *ShellService) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	var stale []string
	for id, seen := range s.seen {
		if seen.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()

	dropped := 0
	for _, id := range stale {
		if !s.forget(ctx, id) {
			continue
		}
		dropped++
	}
	return dropped
}

// RunSweeper sweeps idle sessions every interval until ctx is done
func (s *ShellService) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx, idle); n > 0 {
				s.logger.WithField("sessions", n).Debug("idle sessions dropped")
			}
		}
	}
}

// View reports the session state without blocking on the bootstrap
func (s *ShellService) View(ctx context.Context, sessionID string) (*ShellView, error) {
	s.mu.Lock()
	b, ok := s.boots[sessionID]
	s.mu.Unlock()

	view := &ShellView{
		State:      ShellLoading,
		Accounts:   []core.BurnerAccount{},
		Generation: s.vrf.Status(sessionID),
	}
	if !ok {
		return view, nil
	}

	if !b.finished() {
		return view, nil
	}

	if b.err != nil {
		view.State = ShellError
		view.Error = b.err.Error()
		return view, nil
	}

	set, err := s.burners.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	view.Accounts = set.List()
	if acc, ok := set.Active(); ok {
		view.Active = &acc
		view.State = ShellReady
	} else {
		view.State = ShellNoAccount
	}
	return view, nil
}

// CreateAccount creates a burner and selects the first account when nothing is selected
func (s *ShellService) CreateAccount(ctx context.Context, sessionID string) (*core.BurnerAccount, error) {
	acc, err := s.burners.Create(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.burners.SelectFirst(ctx, sessionID); err != nil {
		s.logger.WithError(err).WithField("session", sessionID).Warn("failed to select burner account")
	}
	return acc, nil
}

func (s *ShellService) forget(ctx context.Context, sessionID string) bool {
	s.mu.Lock()
	if b, ok := s.boots[sessionID]; ok && !b.finished() {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	if !s.vrf.Forget(sessionID) {
		return false
	}
	dropped, err := s.burners.Forget(ctx, sessionID)
	if err != nil {
		s.logger.WithError(err).WithField("session", sessionID).Warn("failed to drop session accounts")
		return false
	}
	if !dropped {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.boots[sessionID]; ok && !b.finished() {
		return false
	}
	delete(s.boots, sessionID)
	delete(s.seen, sessionID)
	return true
}

func (s *ShellService) start(sessionID string) (*bootstrap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.boots[sessionID]; ok {
		return b, false
	}
	b := &bootstrap{done: make(chan struct{})}
	s.boots[sessionID] = b
	return b, true
}

func (s *ShellService) run(ctx context.Context, sessionID string, b *bootstrap) {
	defer close(b.done)

	logger := s.logger.WithField("session", sessionID)

	accounts, err := s.burners.Init(ctx, sessionID)
	if err != nil {
		logger.WithError(err).Error("failed to initialize burner accounts")
		b.err = err
		return
	}

	if len(accounts) == 0 && s.autoCreate {
		if _, err := s.burners.Create(ctx, sessionID); err != nil {
			logger.WithError(err).Error("failed to create initial burner account")
			b.err = err
			return
		}
	}

	if err := s.burners.SelectFirst(ctx, sessionID); err != nil {
		logger.WithError(err).Error("failed to select burner account")
		b.err = core.Wrap(core.ErrInitialization, err)
		return
	}

	logger.Debug("session bootstrapped")
}
