//go:build wireinject
// +build wireinject

package di

import (
	"FinFolio/pkg/config"
	"FinFolio/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application and
// a cleanup that releases its connections.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideRunPublisher,

		// Repositories and collaborators
		ProvidePriceStore,
		ProvidePriceSource,
		ProvideBetaSource,
		ProvideNewsSource,
		ProvideAdvisor,
		ProvideArtifactStore,

		// Services and use cases
		ProvideEngine,
		ProvideReportBuilder,
		ProvideStages,
		ProvidePipeline,
		ProvidePortfolioService,

		// Application
		ProvideApp,
	)
	return nil, nil, nil
}
