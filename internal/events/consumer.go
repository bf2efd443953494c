// AngelaMos | 2026
// consumer.go

package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/gotitgames/catalog/internal/metrics"
)

// Consumer logs and counts catalog events. It is the in-process audit trail
// of the API; other services subscribe to the same topics over NATS.
type Consumer struct {
	router *message.Router
	logger *slog.Logger
}

func NewConsumer(bus *Bus, logger *slog.Logger) (*Consumer, error) {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, bus.logger)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)

	c := &Consumer{
		router: router,
		logger: logger.With("component", "events"),
	}

	router.AddConsumerHandler("entry-changed-log", TopicEntryChanged, bus.Subscriber(), c.handleEntryChanged)
	router.AddConsumerHandler("sync-completed-log", TopicSyncCompleted, bus.Subscriber(), c.handleSyncCompleted)

	return c, nil
}

func (c *Consumer) handleEntryChanged(msg *message.Message) error {
	metrics.EventsConsumed.WithLabelValues(TopicEntryChanged).Inc()

	var e EntryChanged
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		c.logger.Warn("dropping malformed event", "topic", TopicEntryChanged, "error", err)
		return nil
	}

	c.logger.Debug("catalog entry changed",
		"entry_id", e.EntryID,
		"game_id", e.GameID,
		"status", e.Status,
		"previous_status", e.PreviousStatus,
		"created", e.Created,
		"origin", e.Origin,
	)
	return nil
}

func (c *Consumer) handleSyncCompleted(msg *message.Message) error {
	metrics.EventsConsumed.WithLabelValues(TopicSyncCompleted).Inc()

	var e SyncCompleted
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		c.logger.Warn("dropping malformed event", "topic", TopicSyncCompleted, "error", err)
		return nil
	}

	c.logger.Info("sync completed",
		"job", e.Job,
		"status", e.Status,
		"synced", e.Synced,
		"errors", e.Errors,
		"total", e.Total,
		"source", e.Source,
		"duration", e.FinishedAt.Sub(e.StartedAt),
	)
	return nil
}

// Run blocks until ctx is cancelled or Close is called.
func (c *Consumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

func (c *Consumer) Running() <-chan struct{} {
	return c.router.Running()
}

func (c *Consumer) Close() error {
	return c.router.Close()
}
