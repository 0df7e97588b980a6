//go:build wireinject
// +build wireinject

package di

import (
	"FundLens/pkg/config"
	"FundLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Data sources
		ProvideFilingSource,
		ProvideMarketSource,

		// Analysis pipeline
		ProvideNormalizer,
		ProvideToolRegistry,
		ProvideModelClient,
		ProvideAnalyzer,

		// HTTP surface
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
