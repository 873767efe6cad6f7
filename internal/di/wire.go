//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"ORBLab/pkg/config"
	"ORBLab/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideBarStore,
		ProvideStrategyRegistry,
		ProvideCostRegistry,
		ProvideOutcomeRouter,
		ProvideOutcomeSink,

		// Use cases and transports
		ProvideBacktestUseCase,
		ProvideBacktestHandler,
		ProvideBacktestRequestHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
