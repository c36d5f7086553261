package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/handlers"
	"github.com/serroba/shortlink/internal/health"
	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		service, err := do.Invoke[*shortener.Service](i)
		if err != nil {
			return nil, err
		}

		checkers, err := do.Invoke[map[string]health.Checker](i)
		if err != nil {
			return nil, err
		}

		group := do.MustInvoke[*messaging.PublisherGroup](i)
		publishCreated := messaging.NewPublishFunc[analytics.URLCreatedEvent](group.Publisher(), analytics.TopicURLCreated)

		api := humachi.New(router, huma.DefaultConfig("URL Shortener", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api), middleware.AccessLog(logger))

		urlHandler := handlers.NewURLHandler(service, opts.PublicBaseURL(), publishCreated, logger)

		healthHandler := health.NewHandler(checkers)
		logger.Info("health checks registered", zap.Strings("dependencies", healthHandler.Names()))

		health.RegisterRoutes(api, healthHandler)
		handlers.RegisterRoutes(api, urlHandler)

		return api, nil
	})
}

// Packages registers every provider used by the server on injector.
func Packages(injector *do.Injector, options *Options) {
	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	RedisPackage(injector)
	PostgresPackage(injector)
	RepositoryPackage(injector)
	PublisherGroupPackage(injector)
	ConsumerGroupPackage(injector)
	ServicePackage(injector)
	HTTPPackage(injector)
}
