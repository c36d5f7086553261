package container

import (
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/codec"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// ServicePackage provides the shortening service. With Clicks set to events
// the service publishes access events instead of incrementing counters itself.
func ServicePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		alphabet, err := codec.NewAlphabet(opts.Alphabet)
		if err != nil {
			return nil, err
		}

		repo, err := do.Invoke[shortener.Repository](i)
		if err != nil {
			return nil, err
		}

		cache, err := do.Invoke[shortener.Cache](i)
		if err != nil {
			return nil, err
		}

		var serviceOpts []shortener.Option

		if opts.Clicks == ClicksEvents {
			group := do.MustInvoke[*messaging.PublisherGroup](i)
			publish := messaging.NewPublishFunc[analytics.URLAccessedEvent](group.Publisher(), analytics.TopicURLAccessed)
			serviceOpts = append(serviceOpts, shortener.WithClickRecorder(analytics.NewClickPublisher(publish)))
		}

		return shortener.NewService(repo, cache, alphabet, logger, serviceOpts...), nil
	})
}
