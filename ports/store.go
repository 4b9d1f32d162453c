package ports

import (
	"context"

	"github.com/layer-3/burner/core"
)

// Store persists the burner accounts of each session
type Store interface {
	// LoadAccounts returns the account set of a session, empty when none was saved
	LoadAccounts(ctx context.Context, sessionID string) (*core.AccountSet, error)

	// SaveAccounts replaces the account set of a session
	SaveAccounts(ctx context.Context, sessionID string, set *core.AccountSet) error

	// DeleteAccounts forgets the account set of a session
	DeleteAccounts(ctx context.Context, sessionID string) error
}
