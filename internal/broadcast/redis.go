package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/pkg/events"
)

// Publisher is the subset of the Redis client used for pub/sub.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisSink publishes envelopes as JSON on one channel per assignment.
type RedisSink struct {
	client Publisher
	prefix string
}

// NewRedisSink returns a sink publishing through client. An empty prefix
// uses the configured default.
func NewRedisSink(client Publisher, prefix string) *RedisSink {
	if prefix == "" {
		prefix = configuration.DefaultChannelPrefix
	}
	return &RedisSink{client: client, prefix: prefix}
}

// Channel returns the channel that carries events for an assignment.
func (s *RedisSink) Channel(assignmentID string) string {
	return s.prefix + ":assignment:" + assignmentID
}

// Append implements events.EventSink.
func (s *RedisSink) Append(ctx context.Context, env events.Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := s.client.Publish(ctx, s.Channel(env.AssignmentID), body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.Channel(env.AssignmentID), err)
	}
	return nil
}
