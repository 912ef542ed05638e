//go:build wireinject
// +build wireinject

package di

import (
	"StratRun/pkg/config"
	"StratRun/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCache,

		// Repositories
		ProvideFeatureStore,
		ProvideHistory,
		ProvideOrderPublisher,
		ProvideOrderStore,
		ProvideSignalStore,

		// Order path
		ProvideOrderRouter,
		ProvideOrderPipeline,

		// Use cases
		ProvideRunners,
		ProvideDispatcher,
		ProvideEvaluateUseCase,
		ProvideCandlesUseCase,
		ProvideKafkaTriggersHandler,
		ProvideQueue,

		// Transport
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
