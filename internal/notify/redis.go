package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"travel-marketplace/internal/models"

	"github.com/go-redis/redis/v8"
)

const channelPrefix = "notifications:"

func Channel(userID string) string {
	return channelPrefix + userID
}

// RedisPublisher publishes each notification as JSON on the recipient's
// channel so connected clients can be pushed updates.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Dispatch(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(n.UserID), string(payload)).Err(); err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", n.ID, err)
	}
	return nil
}
