package ports

import (
	"context"

	"github.com/layer-3/burner/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishAccountDeployed(ctx context.Context, sessionID string, account core.BurnerAccount) error
	PublishAccountsCleared(ctx context.Context, sessionID string) error
	PublishRandomGenerated(ctx context.Context, sessionID string, result core.RandomResult) error
}
