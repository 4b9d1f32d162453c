package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/layer-3/burner/core"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) shell(autoCreate bool) *ShellService {
	logger, _ := test.NewNullLogger()
	return NewShellService(f.burners, f.vrf(VRFConfig{}), autoCreate, logger)
}

func TestShellLoadingBeforeBootstrap(t *testing.T) {
	f := newFixture(t)

	view, err := f.shell(true).View(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, ShellLoading, view.State)
	assert.Empty(t, view.Accounts)
	assert.Equal(t, core.PhaseIdle, view.Generation.Phase)
}

func TestShellBootstrapCreatesAndSelects(t *testing.T) {
	f := newFixture(t)
	shell := f.shell(true)
	ctx := context.Background()

	require.NoError(t, shell.Bootstrap(ctx, "s1"))

	view, err := shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ShellReady, view.State)
	require.Len(t, view.Accounts, 1)
	require.NotNil(t, view.Active)
	assert.Equal(t, view.Accounts[0].Address.String(), view.Active.Address.String())
}

func TestShellBootstrapKeepsExistingAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.burners.Create(ctx, "s1")
	require.NoError(t, err)
	second, err := f.burners.Create(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, f.burners.Select(ctx, "s1", second.Address))

	shell := f.shell(true)
	require.NoError(t, shell.Bootstrap(ctx, "s1"))

	view, err := shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, view.Accounts, 2)
	assert.Equal(t, second.Address.String(), view.Active.Address.String())
	// no extra deployment
	assert.Len(t, f.chain.executions(), 4)
}

func TestShellBootstrapWithoutAutoCreate(t *testing.T) {
	f := newFixture(t)
	shell := f.shell(false)
	ctx := context.Background()

	require.NoError(t, shell.Bootstrap(ctx, "s1"))

	view, err := shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ShellNoAccount, view.State)
	assert.Nil(t, view.Active)
	assert.Empty(t, f.chain.executions())
}

func TestShellBootstrapFailure(t *testing.T) {
	f := newFixture(t)
	f.chain.chainIDErr = errors.New("dial tcp 127.0.0.1:5050: connect: connection refused")
	shell := f.shell(true)
	ctx := context.Background()

	err := shell.Bootstrap(ctx, "s1")
	require.ErrorIs(t, err, core.ErrInitialization)

	view, err := shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ShellError, view.State)
	assert.Equal(t, "dial tcp 127.0.0.1:5050: connect: connection refused", view.Error)

	// waiting on the session does not retry it
	f.chain.mu.Lock()
	f.chain.chainIDErr = nil
	f.chain.mu.Unlock()
	assert.ErrorIs(t, shell.Bootstrap(ctx, "s1"), core.ErrInitialization)
	assert.Equal(t, 1, f.chain.chainIDCalls)

	// a new session starts over
	require.NoError(t, shell.Bootstrap(ctx, "s2"))
}

func TestShellBootstrapCreateFailure(t *testing.T) {
	f := newFixture(t)
	f.chain.executeErr = errors.New("insufficient max fee")
	shell := f.shell(true)
	ctx := context.Background()

	require.ErrorIs(t, shell.Bootstrap(ctx, "s1"), core.ErrDeployment)

	view, err := shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ShellError, view.State)
	assert.Equal(t, "insufficient max fee", view.Error)
}

func TestShellStartBootstrapRunsOnce(t *testing.T) {
	f := newFixture(t)
	shell := f.shell(true)
	ctx := context.Background()

	shell.StartBootstrap(ctx, "s1")
	shell.StartBootstrap(ctx, "s1")

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, shell.Bootstrap(waitCtx, "s1"))

	assert.Equal(t, 1, f.chain.chainIDCalls)
	accounts, err := f.burners.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestShellStartBootstrapRetriesFailure(t *testing.T) {
	f := newFixture(t)
	f.chain.chainIDErr = errors.New("node down")
	shell := f.shell(true)
	ctx := context.Background()

	require.ErrorIs(t, shell.Bootstrap(ctx, "s1"), core.ErrInitialization)

	f.chain.mu.Lock()
	f.chain.chainIDErr = nil
	f.chain.mu.Unlock()

	shell.StartBootstrap(ctx, "s1")

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, shell.Bootstrap(waitCtx, "s1"))

	view, err := shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ShellReady, view.State)
	assert.Empty(t, view.Error)
	assert.Equal(t, 2, f.chain.chainIDCalls)
}

func TestShellSweepDropsIdleSessions(t *testing.T) {
	f := newFixture(t)
	shell := f.shell(true)
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	shell.now = func() time.Time { return now }

	shell.Touch("s1")
	require.NoError(t, shell.Bootstrap(ctx, "s1"))
	_, err := shell.vrf.Generate(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	shell.Touch("s2")
	require.NoError(t, shell.Bootstrap(ctx, "s2"))

	now = now.Add(30 * time.Minute)
	assert.Equal(t, 1, shell.Sweep(ctx, 35*time.Minute))

	view, err := shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ShellLoading, view.State)
	assert.Equal(t, core.PhaseIdle, view.Generation.Phase)
	accounts, err := f.burners.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, accounts)

	view, err = shell.View(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, ShellReady, view.State)

	// a touched session stays
	shell.Touch("s2")
	now = now.Add(time.Minute)
	assert.Equal(t, 0, shell.Sweep(ctx, 35*time.Minute))
}

func TestShellSweepKeepsLoadingSessions(t *testing.T) {
	f := newFixture(t)
	shell := f.shell(true)
	ctx := context.Background()

	now := time.Unix(1700000000, 0)
	shell.now = func() time.Time { return now }

	f.chain.mu.Lock()
	f.chain.gate = make(chan struct{})
	f.chain.entered = make(chan struct{}, 1)
	f.chain.mu.Unlock()

	shell.Touch("s1")
	shell.StartBootstrap(ctx, "s1")
	<-f.chain.entered

	now = now.Add(time.Hour)
	assert.Equal(t, 0, shell.Sweep(ctx, time.Minute))

	f.chain.mu.Lock()
	f.chain.entered = nil
	f.chain.mu.Unlock()
	close(f.chain.gate)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, shell.Bootstrap(waitCtx, "s1"))

	assert.Equal(t, 1, shell.Sweep(ctx, time.Minute))
}

func TestShellCreateAfterClearSelects(t *testing.T) {
	f := newFixture(t)
	shell := f.shell(true)
	ctx := context.Background()

	require.NoError(t, shell.Bootstrap(ctx, "s1"))
	require.NoError(t, f.burners.Clear(ctx, "s1"))

	view, err := shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ShellNoAccount, view.State)

	acc, err := shell.CreateAccount(ctx, "s1")
	require.NoError(t, err)

	view, err = shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, ShellReady, view.State)
	assert.Equal(t, acc.Address.String(), view.Active.Address.String())
}

func TestShellCreateKeepsSelection(t *testing.T) {
	f := newFixture(t)
	shell := f.shell(true)
	ctx := context.Background()

	require.NoError(t, shell.Bootstrap(ctx, "s1"))
	before, err := f.burners.Active(ctx, "s1")
	require.NoError(t, err)

	_, err = shell.CreateAccount(ctx, "s1")
	require.NoError(t, err)

	after, err := f.burners.Active(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, before.Address.String(), after.Address.String())
}

func TestShellViewCarriesGeneration(t *testing.T) {
	f := newFixture(t)
	shell := f.shell(true)
	ctx := context.Background()

	require.NoError(t, shell.Bootstrap(ctx, "s1"))
	_, err := shell.vrf.Generate(ctx, "s1")
	require.NoError(t, err)

	view, err := shell.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, core.PhaseDone, view.Generation.Phase)
	require.NotNil(t, view.Generation.Result)
}
