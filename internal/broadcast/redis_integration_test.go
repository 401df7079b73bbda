//go:build integration

package broadcast_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-grader/internal/broadcast"
	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/pkg/events"
)

// redisAddr returns the address of a Redis server for integration tests.
func redisAddr(t *testing.T) string {
	addr := os.Getenv("GRADER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GRADER_TEST_REDIS_ADDR not set")
	}
	return addr
}

func TestRedisBroadcast_RealRedis(t *testing.T) {
	addr := redisAddr(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = sub.Close() })
	pubsub := sub.Subscribe(ctx, "grader:assignment:a-1")
	t.Cleanup(func() { _ = pubsub.Close() })
	_, err := pubsub.Receive(ctx)
	require.NoError(t, err)

	b, closeFn, err := broadcast.Open(ctx, configuration.BroadcastConfig{Enabled: true, RedisAddr: addr, ChannelPrefix: "grader"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })

	require.NoError(t, b.Broadcast(ctx, assignment(), domain.StatusInProgress, map[string]any{"step": "creating_rubric"}))

	msg, err := pubsub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var env events.Envelope
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
	assert.Equal(t, "assignment.in_progress", env.Type)
	assert.Equal(t, "a-1", env.AssignmentID)
}
