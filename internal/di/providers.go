package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"ScanDesk/internal/domain/models"
	"ScanDesk/internal/domain/repository"
	"ScanDesk/internal/handler/api"
	"ScanDesk/internal/handler/console"
	"ScanDesk/internal/handler/ws"
	mid "ScanDesk/internal/middleware"
	internalrepo "ScanDesk/internal/repository"
	"ScanDesk/internal/service/ratelimit"
	"ScanDesk/internal/service/screener"
	"ScanDesk/internal/usecase"
	pkgch "ScanDesk/pkg/clickhouse"
	"ScanDesk/pkg/config"
	xhttp "ScanDesk/pkg/http"
	pkgkafka "ScanDesk/pkg/kafka"
	"ScanDesk/pkg/kvstore"
	applogger "ScanDesk/pkg/logger"
	"ScanDesk/pkg/metrics"
	"ScanDesk/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry shared by the recorder,
// the Kafka producer and the HTTP middleware.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideKVStore opens the durable store for the device id and license key.
func ProvideKVStore(cfg *config.Config) (kvstore.Store, error) {
	store, err := kvstore.New(kvstore.Options{
		Backend:    cfg.Storage.Backend,
		Path:       cfg.Storage.Path,
		SQLitePath: cfg.Storage.SQLitePath,
		Redis: kvstore.RedisConfig{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Prefix:   cfg.Storage.Redis.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore %s: %w", cfg.Storage.Backend, err)
	}
	return store, nil
}

// ProvideScreenerClient creates the remote scanner client.
func ProvideScreenerClient(cfg *config.Config, l *applogger.Logger) *screener.Client {
	return screener.New(screener.Config{
		BaseURL:        cfg.Remote.BaseURL,
		ValidatePath:   cfg.Remote.ValidatePath,
		StreamPath:     cfg.Remote.StreamPath,
		SnapshotPath:   cfg.Remote.SnapshotPath,
		RequestTimeout: cfg.Remote.RequestTimeout,
		UserAgent:      cfg.Remote.UserAgent,
	}, l)
}

func ProvideLicenseAuthority(c *screener.Client) repository.LicenseAuthority { return c }

func ProvideScanStream(c *screener.Client) repository.ScanStream { return c }

func ProvideSnapshotSource(c *screener.Client) repository.SnapshotSource { return c }

// ProvideClickHouseClient creates a ClickHouse client and makes sure the
// journal database exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := cfg.ClickHouse
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(c.Host, c.Port),
		pkgch.WithAuth(c.User, c.Password),
		pkgch.WithHTTP(c.UseHTTP),
		pkgch.WithTimeouts(c.DialTimeout, c.ReadTimeout),
		pkgch.WithPool(c.MaxOpenConns, c.MaxIdleConns, c.ConnMaxLifetime),
		pkgch.WithAsyncInsert(c.AsyncInsert, c.WaitForAsync),
		pkgch.WithMaxExecutionTime(c.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.EnsureDatabase(ctx, c.Database); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config, reg prometheus.Registerer) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Compression),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideJournalProcessor builds the journal backend selected by
// journal.backend. It returns nil when journaling is off.
func ProvideJournalProcessor(
	cfg *config.Config,
	reg *prometheus.Registry,
	m repository.Metrics,
) (*usecase.JournalProcessor, error) {
	switch cfg.Journal.Backend {
	case usecase.JournalBackendKafka:
		producer, err := ProvideKafkaProducer(cfg, reg)
		if err != nil {
			return nil, err
		}
		pub := internalrepo.NewKafkaJournal(producer, cfg.Kafka.Topic)
		return usecase.NewJournalProcessor(pub, nil, m, usecase.JournalBackendKafka), nil

	case usecase.JournalBackendClickHouse:
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, err
		}
		store := internalrepo.NewClickHouseJournal(client, cfg.ClickHouse.Database+"."+internalrepo.DefaultJournalTable)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return usecase.NewJournalProcessor(nil, store, m, usecase.JournalBackendClickHouse), nil

	default:
		return nil, nil
	}
}

// ProvideJournalPipeline buffers journal records between the scanner and the
// backend. It returns nil when journaling is off.
func ProvideJournalPipeline(
	proc *usecase.JournalProcessor,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *mid.JournalPipeline {
	if proc == nil {
		return nil
	}
	return mid.NewJournalPipeline(proc, m,
		mid.WithBufferSize(cfg.Journal.BufferSize),
		mid.WithBatchSize(cfg.Journal.BatchSize),
		mid.WithFlushInterval(cfg.Journal.FlushInterval),
		mid.WithLogger(l),
	)
}

// ProvideHub creates the websocket presentation feed.
func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l, 0)
}

// ProvideAppPresenter fans scanner output out to websocket clients and the
// journal.
func ProvideAppPresenter(hub *ws.Hub, pipeline *mid.JournalPipeline) repository.Presenter {
	if pipeline == nil {
		return usecase.NewMultiPresenter(hub)
	}
	return usecase.NewMultiPresenter(hub, pipeline)
}

// ProvideConsolePresenter prints scanner output to out and feeds the journal.
func ProvideConsolePresenter(out io.Writer, pipeline *mid.JournalPipeline) repository.Presenter {
	if pipeline == nil {
		return usecase.NewMultiPresenter(console.NewPresenter(out))
	}
	return usecase.NewMultiPresenter(console.NewPresenter(out), pipeline)
}

func ProvideDeviceIdentity(store kvstore.Store, l *applogger.Logger) *usecase.DeviceIdentity {
	return usecase.NewDeviceIdentity(store, l)
}

func ProvideLicenseGate(
	authority repository.LicenseAuthority,
	store kvstore.Store,
	device *usecase.DeviceIdentity,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.LicenseGate {
	return usecase.NewLicenseGate(authority, store, device, m, l)
}

func ProvideSignalStore(m repository.Metrics) *usecase.SignalStore {
	return usecase.NewSignalStore(m)
}

// ProvideScanner creates the scan session runner on the configured view.
func ProvideScanner(
	stream repository.ScanStream,
	store *usecase.SignalStore,
	presenter repository.Presenter,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) (*usecase.Scanner, error) {
	tab, err := models.ParseTab(cfg.Scan.Tab)
	if err != nil {
		return nil, err
	}
	view := models.View{Tab: tab, Timeframe: cfg.Scan.Timeframe}
	return usecase.NewScanner(stream, store, presenter, m, l, view), nil
}

func ProvideAutoRefresh(cfg *config.Config, l *applogger.Logger) *usecase.AutoRefresh {
	return usecase.NewAutoRefresh(cfg.Scan.RefreshInterval, l)
}

// ProvideDashboard creates the dashboard controller.
func ProvideDashboard(
	identity *usecase.DeviceIdentity,
	gate *usecase.LicenseGate,
	scanner *usecase.Scanner,
	store *usecase.SignalStore,
	refresh *usecase.AutoRefresh,
	snapshots repository.SnapshotSource,
	presenter repository.Presenter,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Dashboard {
	return usecase.NewDashboard(identity, gate, scanner, store, refresh, snapshots, presenter, cfg.Scan.AutoRefresh, l)
}

// ProvideScanLimiter throttles manual scan requests from the API.
func ProvideScanLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Scan.ManualRate.Capacity, cfg.Scan.ManualRate.Refill)
}

// ProvideHTTPHandler registers the dashboard API and the websocket feed.
func ProvideHTTPHandler(
	l *applogger.Logger,
	dash *usecase.Dashboard,
	rl *ratelimit.Limiter,
	hub *ws.Hub,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewDashboardEchoHandler(l, dash, rl),
		hub,
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	h xhttp.Handler,
	l *applogger.Logger,
	reg *prometheus.Registry,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithAddr(cfg.Server.Host, cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the daemon: dashboard API, websocket feed and journal.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	dash *usecase.Dashboard,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	pipeline *mid.JournalPipeline,
	journal *usecase.JournalProcessor,
	store kvstore.Store,
) *server.App {
	return server.New(cfg, l, dash, httpServer, hub, pipeline, journal, store)
}

// ProvideConsoleApp creates an App for one-shot console commands.
func ProvideConsoleApp(
	cfg *config.Config,
	l *applogger.Logger,
	dash *usecase.Dashboard,
	pipeline *mid.JournalPipeline,
	journal *usecase.JournalProcessor,
	store kvstore.Store,
) *server.App {
	return server.New(cfg, l, dash, nil, nil, pipeline, journal, store)
}
