package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// DeliveryKey caches a recorded delivery so the relay cycle can skip the
// database existence check on the hot path.
func DeliveryKey(configID, friendID, checkinID string) string {
	return fmt.Sprintf("delivered:%s:%s:%s", configID, friendID, checkinID)
}

// EventKey deduplicates Slack event retries.
func EventKey(eventID string) string {
	return fmt.Sprintf("slack-event:%s", eventID)
}
