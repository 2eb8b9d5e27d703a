package settings

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Topic is the named channel settings updates are broadcast on.
const Topic = "wisp:settings"

// Backend wraps transport setup for the settings broadcast and exposes
// publisher/subscriber construction, in-memory for a single process or
// Redis Streams across instances.
type Backend interface {
	Publisher() message.Publisher
	Subscriber() message.Subscriber
	Close() error
}

// BackendSettings selects and configures the broadcast transport.
type BackendSettings struct {
	RedisEnabled bool   `yaml:"redis_enabled"`
	RedisAddr    string `yaml:"redis_addr"`
}

type goChannelBackend struct {
	ch *gochannel.GoChannel
}

// NewGoChannelBackend builds an in-memory backend. All services sharing the
// same backend instance see each other's broadcasts, which is also how the
// tests wire two synchronized services together.
func NewGoChannelBackend() Backend {
	return &goChannelBackend{
		ch: gochannel.NewGoChannel(gochannel.Config{}, newWatermillLogger()),
	}
}

func (b *goChannelBackend) Publisher() message.Publisher   { return b.ch }
func (b *goChannelBackend) Subscriber() message.Subscriber { return b.ch }
func (b *goChannelBackend) Close() error                   { return b.ch.Close() }

type redisBackend struct {
	pub message.Publisher
	sub message.Subscriber
}

// NewRedisBackend builds a Redis Streams backend. Each instance gets its own
// consumer group so every instance receives every broadcast; the group is
// created at the stream tail to avoid replaying history on first subscribe.
func NewRedisBackend(ctx context.Context, addr, instanceID string) (Backend, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("settings backend: redis addr is empty")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}
	logger := newWatermillLogger()

	if err := ensureGroupAtTail(ctx, client, Topic, "settings:"+instanceID); err != nil {
		return nil, err
	}
	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "settings backend: build publisher")
	}
	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: "settings:" + instanceID,
		Consumer:      instanceID,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "settings backend: build subscriber")
	}
	return &redisBackend{pub: pub, sub: sub}, nil
}

func (b *redisBackend) Publisher() message.Publisher   { return b.pub }
func (b *redisBackend) Subscriber() message.Subscriber { return b.sub }

func (b *redisBackend) Close() error {
	if err := b.pub.Close(); err != nil {
		log.Warn().Err(err).Str("component", "settings").Msg("publisher close failed")
	}
	return b.sub.Close()
}

// NewBackend picks the transport from s.
func NewBackend(ctx context.Context, s BackendSettings, instanceID string) (Backend, error) {
	if s.RedisEnabled {
		return NewRedisBackend(ctx, s.RedisAddr, instanceID)
	}
	return NewGoChannelBackend(), nil
}

func ensureGroupAtTail(ctx context.Context, client *redis.Client, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.Wrap(err, "settings backend: create consumer group")
	}
	return nil
}
