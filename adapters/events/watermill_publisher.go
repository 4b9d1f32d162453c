package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/burner/core"
	"github.com/layer-3/burner/ports"
)

const (
	// TopicAccountDeployed carries AccountDeployedEvent
	TopicAccountDeployed = "burner.account.deployed"

	// TopicAccountsCleared carries AccountsClearedEvent
	TopicAccountsCleared = "burner.accounts.cleared"

	// TopicRandomGenerated carries RandomGeneratedEvent
	TopicRandomGenerated = "burner.random.generated"
)

// AccountDeployedEvent represents a burner deployment. Credentials are never published.
type AccountDeployedEvent struct {
	SessionID string    `json:"session_id"`
	Address   string    `json:"address"`
	DeployTx  string    `json:"deploy_tx"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountsClearedEvent represents a cleared session
type AccountsClearedEvent struct {
	SessionID string `json:"session_id"`
}

// RandomGeneratedEvent represents a displayed random number
type RandomGeneratedEvent struct {
	SessionID       string `json:"session_id"`
	Caller          string `json:"caller"`
	TransactionHash string `json:"transaction_hash"`
	Value           int    `json:"value"`
	Strategy        string `json:"strategy"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
	}
}

// PublishAccountDeployed publishes a deployment event
func (p *WatermillPublisher) PublishAccountDeployed(ctx context.Context, sessionID string, account core.BurnerAccount) error {
	return p.publish(ctx, TopicAccountDeployed, AccountDeployedEvent{
		SessionID: sessionID,
		Address:   account.Address.String(),
		DeployTx:  account.DeployTx.String(),
		CreatedAt: account.CreatedAt,
	})
}

// PublishAccountsCleared publishes a clear event
func (p *WatermillPublisher) PublishAccountsCleared(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TopicAccountsCleared, AccountsClearedEvent{SessionID: sessionID})
}

// PublishRandomGenerated publishes a generation result
func (p *WatermillPublisher) PublishRandomGenerated(ctx context.Context, sessionID string, result core.RandomResult) error {
	return p.publish(ctx, TopicRandomGenerated, RandomGeneratedEvent{
		SessionID:       sessionID,
		Caller:          result.Caller.String(),
		TransactionHash: result.Transaction.Hash.String(),
		Value:           result.Value,
		Strategy:        string(result.Strategy),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
