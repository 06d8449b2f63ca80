package repository

import (
	"context"
	"errors"

	"ScanDesk/internal/domain/models"
)

var (
	// ErrUnreachable marks a transport failure talking to the remote service,
	// as opposed to an explicit rejection.
	ErrUnreachable = errors.New("remote service unreachable")
	// ErrStreamClosed is returned when a scan stream ends without a done event.
	ErrStreamClosed = errors.New("scan stream closed")
)

// LicenseAuthority validates a license key bound to a device.
type LicenseAuthority interface {
	Validate(ctx context.Context, key, deviceID string) (models.ValidationResult, error)
}

// ScanStream opens one server-push scan connection.
type ScanStream interface {
	Open(ctx context.Context, req models.StreamRequest) (EventStream, error)
}

// EventStream yields raw event payloads in arrival order. Next returns io.EOF
// when the server closes the stream.
type EventStream interface {
	Next() ([]byte, error)
	Close() error
}

// SnapshotSource returns a one-shot batch of signals (offline/mock mode).
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// JournalPublisher streams journal records to a message bus.
type JournalPublisher interface {
	Publish(ctx context.Context, r *models.JournalRecord) error
	PublishBatch(ctx context.Context, records []*models.JournalRecord) error
	Close() error
}

// JournalStorage persists journal records for later analysis.
type JournalStorage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, r *models.JournalRecord) error
	StoreBatch(ctx context.Context, records []*models.JournalRecord) error
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordSession(result string)
	RecordStreamEvent(kind string)
	RecordMalformedEvent()
	RecordSignalMatched(direction string)
	RecordLicenseCheck(result string)
	RecordStoreSize(n int)
	RecordLatency(op string, seconds float64)
	RecordError(kind string)
}

// Presenter receives render instructions from the core. Calls made during a
// scan happen while the scanner holds its lock: implementations must not call
// back into the scanner synchronously.
type Presenter interface {
	OnScanStarted(info models.SessionInfo)
	OnProgress(p models.SessionProgress)
	OnSignalMatched(m models.SignalMatch)
	OnFinalize(summary models.ScanSummary)
	OnEmptyResult(res models.EmptyResult)
	OnAuthStateChanged(d models.AuthDecision)
	OnSignalsRendered(view models.View, signals []models.StockSignal)
}

// NopPresenter ignores everything. Embed it to implement a subset.
type NopPresenter struct{}

func (NopPresenter) OnScanStarted(models.SessionInfo)                   {}
func (NopPresenter) OnProgress(models.SessionProgress)                  {}
func (NopPresenter) OnSignalMatched(models.SignalMatch)                 {}
func (NopPresenter) OnFinalize(models.ScanSummary)                      {}
func (NopPresenter) OnEmptyResult(models.EmptyResult)                   {}
func (NopPresenter) OnAuthStateChanged(models.AuthDecision)             {}
func (NopPresenter) OnSignalsRendered(models.View, []models.StockSignal) {}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RecordSession(string)            {}
func (NopMetrics) RecordStreamEvent(string)        {}
func (NopMetrics) RecordMalformedEvent()           {}
func (NopMetrics) RecordSignalMatched(string)      {}
func (NopMetrics) RecordLicenseCheck(string)       {}
func (NopMetrics) RecordStoreSize(int)             {}
func (NopMetrics) RecordLatency(string, float64)   {}
func (NopMetrics) RecordError(string)              {}
