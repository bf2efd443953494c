// AngelaMos | 2026
// bus.go

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/gotitgames/catalog/internal/config"
	"github.com/gotitgames/catalog/internal/metrics"
)

const (
	DriverGoChannel = "gochannel"
	DriverNATS      = "nats"

	queueGroup = "gotit-catalog"
)

// Bus publishes catalog events and hands out the matching subscriber.
// The gochannel driver keeps events in process; the NATS driver uses core
// NATS subjects without JetStream.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
	driver     string
}

func NewBus(cfg config.EventsConfig, logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger.With("component", "events"))

	switch cfg.Driver {
	case "", DriverGoChannel:
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, wmLogger)
		return &Bus{publisher: ch, subscriber: ch, logger: wmLogger, driver: DriverGoChannel}, nil

	case DriverNATS:
		return newNATSBus(cfg.NATSURL, wmLogger)
	}

	return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
}

func natsOptions(logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

func newNATSBus(url string, logger watermill.LoggerAdapter) (*Bus, error) {
	jetStream := wmNats.JetStreamConfig{Disabled: true}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOptions(logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   jetStream,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOptions(logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        jetStream,
	}, logger)
	if err != nil {
		_ = pub.Close() //nolint:errcheck // cleanup on constructor failure
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	return &Bus{publisher: pub, subscriber: sub, logger: logger, driver: DriverNATS}, nil
}

func (b *Bus) Driver() string {
	return b.driver
}

func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

func (b *Bus) publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

func (b *Bus) PublishEntryChanged(ctx context.Context, e EntryChanged) error {
	return b.publish(ctx, TopicEntryChanged, e)
}

func (b *Bus) PublishSyncCompleted(ctx context.Context, e SyncCompleted) error {
	return b.publish(ctx, TopicSyncCompleted, e)
}

func (b *Bus) Close() error {
	pubErr := b.publisher.Close()
	if b.driver == DriverGoChannel {
		return pubErr
	}
	return errors.Join(pubErr, b.subscriber.Close())
}
