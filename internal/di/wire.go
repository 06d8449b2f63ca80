//go:build wireinject
// +build wireinject

package di

import (
	"io"

	"ScanDesk/pkg/config"
	"ScanDesk/pkg/server"

	"github.com/google/wire"
)

// coreSet builds everything shared by the daemon and console commands.
var coreSet = wire.NewSet(
	// Infrastructure
	ProvideLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideKVStore,
	ProvideScreenerClient,
	ProvideLicenseAuthority,
	ProvideScanStream,
	ProvideSnapshotSource,

	// Journal
	ProvideJournalProcessor,
	ProvideJournalPipeline,

	// Use cases
	ProvideDeviceIdentity,
	ProvideLicenseGate,
	ProvideSignalStore,
	ProvideScanner,
	ProvideAutoRefresh,
	ProvideDashboard,
)

// InitializeApp wires up the daemon: dashboard API, websocket feed, journal.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		coreSet,
		ProvideHub,
		ProvideAppPresenter,
		ProvideScanLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeConsole wires up an App that reports to out instead of serving
// HTTP.
func InitializeConsole(cfg *config.Config, out io.Writer) (*server.App, error) {
	wire.Build(
		coreSet,
		ProvideConsolePresenter,
		ProvideConsoleApp,
	)
	return &server.App{}, nil
}
