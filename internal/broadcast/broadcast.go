// Package broadcast publishes processing progress as event envelopes.
// Delivery is fire-and-forget: a failed publish is reported to the caller,
// which logs it and carries on.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/pkg/activity"
	"github.com/ahrav/go-grader/pkg/events"
)

const (
	// Source is stamped on every envelope this package emits.
	Source = "go-grader"

	defaultPoolSize   = 10
	connectionTimeout = 5 * time.Second
)

// Payload is the body of a progress envelope.
type Payload struct {
	Status domain.ProcessStatus `json:"status"`
	Data   map[string]any       `json:"data,omitempty"`
}

// EventType returns the envelope type for a subject kind and status.
func EventType(kind domain.ProcessableKind, status domain.ProcessStatus) string {
	return string(kind) + "." + string(status)
}

// Broadcaster turns progress updates into envelopes and appends them to a sink.
type Broadcaster struct {
	sink   events.EventSink
	source string
}

// New returns a Broadcaster writing to sink.
func New(sink events.EventSink) *Broadcaster {
	if sink == nil {
		sink = events.NoOpEventSink{}
	}
	return &Broadcaster{sink: sink, source: Source}
}

// Broadcast publishes status and data for subject.
func (b *Broadcaster) Broadcast(
	ctx context.Context,
	subject domain.Processable,
	status domain.ProcessStatus,
	data map[string]any,
) error {
	env, err := events.NewEnvelope(EventType(subject.Kind(), status), b.source, Payload{Status: status, Data: data})
	if err != nil {
		return err
	}
	env.SubjectKind = string(subject.Kind())
	env.SubjectID = subject.ProcessableID()
	env.AssignmentID = subject.ParentAssignmentID()
	env.UserID = userID(subject)
	if wf, ok := activity.WorkflowInfo(ctx); ok {
		env.WorkflowID = wf.WorkflowID
		env.RunID = wf.RunID
	}

	if err := b.sink.Append(ctx, env); err != nil {
		return fmt.Errorf("broadcast %s: %w", env.Type, err)
	}
	return nil
}

func userID(subject domain.Processable) string {
	switch s := subject.(type) {
	case *domain.Assignment:
		return s.UserID
	case *domain.SummarySubject:
		if s.Assignment != nil {
			return s.Assignment.UserID
		}
	}
	return ""
}

// Open builds the broadcaster described by cfg. When Redis is enabled but
// unreachable it degrades to logging. The returned closer releases the
// Redis connection, if any.
func Open(ctx context.Context, cfg configuration.BroadcastConfig) (*Broadcaster, func() error, error) {
	noop := func() error { return nil }
	if !cfg.Enabled {
		return New(NewLogSink(nil)), noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		PoolSize: defaultPoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("Redis connection failed, broadcasting to log", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return New(NewLogSink(nil)), noop, nil
	}

	return New(NewRedisSink(client, cfg.ChannelPrefix)), client.Close, nil
}
