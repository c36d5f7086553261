package container

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jaevor/go-nanoid"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// StreamConsumerGroup is the Redis Streams consumer group shared by every consumer process.
const StreamConsumerGroup = "shortlink"

// PublisherGroupPackage provides the event publisher for Options.Events.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1024}, messaging.NewZapLogger(logger)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Events != EventsRedis {
			return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
		}

		logger := do.MustInvoke[*zap.Logger](i)
		conn := do.MustInvoke[*RedisConnection](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     conn.Client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create redis stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the consumers of analytics events. With local
// events the subscriber is the in-process channel; with redis events it is a
// member of the shared stream consumer group.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := newSubscriber(i, opts, logger)
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, analytics.TopicURLCreated, analytics.LogCreated(logger), logger))

		if opts.Clicks == ClicksEvents {
			repo := do.MustInvoke[shortener.Repository](i)
			group.Add(messaging.NewConsumer(subscriber, analytics.TopicURLAccessed, analytics.CountClicks(repo), logger))
		}

		return group, nil
	})
}

func newSubscriber(i *do.Injector, opts *Options, logger *zap.Logger) (message.Subscriber, error) {
	if opts.Events != EventsRedis {
		return do.MustInvoke[*gochannel.GoChannel](i), nil
	}

	conn := do.MustInvoke[*RedisConnection](i)

	newID, err := nanoid.Standard(8)
	if err != nil {
		return nil, fmt.Errorf("create consumer id generator: %w", err)
	}

	consumer := StreamConsumerGroup + "-" + newID()

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        conn.Client,
		Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: StreamConsumerGroup,
		Consumer:      consumer,
	}, messaging.NewZapLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create redis stream subscriber: %w", err)
	}

	logger.Info("joined stream consumer group",
		zap.String("group", StreamConsumerGroup),
		zap.String("consumer", consumer),
	)

	return subscriber, nil
}
