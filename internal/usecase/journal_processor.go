package usecase

import (
	"context"
	"fmt"
	"time"

	"ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
)

// Journal backends.
const (
	JournalBackendKafka      = "kafka"
	JournalBackendClickHouse = "clickhouse"
)

// JournalProcessor routes journal records to the configured backend.
type JournalProcessor struct {
	pub     drepo.JournalPublisher
	store   drepo.JournalStorage
	metrics drepo.Metrics
	backend string
}

func NewJournalProcessor(
	pub drepo.JournalPublisher,
	store drepo.JournalStorage,
	metrics drepo.Metrics,
	backend string,
) *JournalProcessor {
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	return &JournalProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Process writes a single record.
func (p *JournalProcessor) Process(ctx context.Context, r *models.JournalRecord) error {
	if r == nil {
		return fmt.Errorf("journal record is nil")
	}

	start := time.Now()
	var err error

	switch {
	case p.backend == JournalBackendKafka && p.pub != nil:
		err = p.pub.Publish(ctx, r)
	case p.backend == JournalBackendClickHouse && p.store != nil:
		err = p.store.Store(ctx, r)
	default:
		err = fmt.Errorf("unknown journal backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("journal_process")
		return fmt.Errorf("process journal record: %w", err)
	}
	p.metrics.RecordLatency("journal_process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch writes records in one round trip where the backend allows it.
func (p *JournalProcessor) ProcessBatch(ctx context.Context, records []*models.JournalRecord) error {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch {
	case p.backend == JournalBackendKafka && p.pub != nil:
		err = p.pub.PublishBatch(ctx, records)
	case p.backend == JournalBackendClickHouse && p.store != nil:
		err = p.store.StoreBatch(ctx, records)
	default:
		err = fmt.Errorf("unknown journal backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("journal_process_batch")
		return fmt.Errorf("process journal batch: %w", err)
	}
	p.metrics.RecordLatency("journal_process_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *JournalProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
