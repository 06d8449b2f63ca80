package middleware

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ScanDesk/internal/domain/models"
	domrepo "ScanDesk/internal/domain/repository"
	applogger "ScanDesk/pkg/logger"

	"github.com/google/uuid"
)

// BatchProc is the minimal processor interface the pipeline needs.
type BatchProc interface {
	ProcessBatch(ctx context.Context, records []*models.JournalRecord) error
}

// JournalPipeline sits between the scanner and the journal backend. It is a
// presenter: matched signals and session summaries become journal records,
// queued without blocking and flushed in batches from a background goroutine.
type JournalPipeline struct {
	domrepo.NopPresenter

	proc      BatchProc
	metrics   domrepo.Metrics
	log       *applogger.Logger
	now       func() time.Time
	bufSize   int
	batchSize int
	interval  time.Duration

	bufCh   chan *models.JournalRecord
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
}

type PipelineOption func(*JournalPipeline)

// WithBufferSize sets the queue capacity. Records beyond it are dropped.
func WithBufferSize(n int) PipelineOption {
	return func(p *JournalPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBatchSize sets how many records are flushed at once.
func WithBatchSize(n int) PipelineOption {
	return func(p *JournalPipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets the longest a queued record waits before a flush.
func WithFlushInterval(d time.Duration) PipelineOption {
	return func(p *JournalPipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *JournalPipeline) {
		if l != nil {
			p.log = l.Component("journal")
		}
	}
}

func NewJournalPipeline(proc BatchProc, metrics domrepo.Metrics, opts ...PipelineOption) *JournalPipeline {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	p := &JournalPipeline{
		proc:      proc,
		metrics:   metrics,
		log:       applogger.Nop(),
		now:       time.Now,
		bufSize:   1024,
		batchSize: 100,
		interval:  2 * time.Second,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.JournalRecord, p.bufSize)
	return p
}

// Start launches background flushing.
func (p *JournalPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop flushes what is queued and stops the background goroutine.
func (p *JournalPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh
}

func (p *JournalPipeline) OnSignalMatched(m models.SignalMatch) {
	rec := &models.JournalRecord{
		ID:         uuid.NewString(),
		Kind:       models.JournalSignal,
		SessionID:  m.SessionID,
		Timeframe:  m.View.Timeframe,
		Name:       m.Signal.Name,
		RecordedAt: p.now(),
	}
	if primary, ok := m.Signal.Primary(); ok {
		rec.Direction = primary.Result.Direction()
		rec.Price = primary.Result.Price
	}
	if b, err := json.Marshal(m.Signal); err == nil {
		rec.Payload = b
	}
	p.enqueue(rec)
}

func (p *JournalPipeline) OnFinalize(s models.ScanSummary) {
	p.enqueue(&models.JournalRecord{
		ID:         uuid.NewString(),
		Kind:       models.JournalSummary,
		SessionID:  s.SessionID,
		Timeframe:  s.Timeframe,
		State:      s.State,
		Scanned:    s.StocksScanned,
		Found:      s.SignalsFound,
		RecordedAt: s.CompletedAt,
	})
}

// enqueue never blocks: callbacks arrive while the scanner holds its lock.
func (p *JournalPipeline) enqueue(r *models.JournalRecord) {
	select {
	case p.bufCh <- r:
	default:
		p.metrics.RecordError("journal_buffer_full")
	}
}

func (p *JournalPipeline) loop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	batch := make([]*models.JournalRecord, 0, p.batchSize)
	backoff := 50 * time.Millisecond

	flush := func(fctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := p.proc.ProcessBatch(fctx, batch); err != nil {
			p.metrics.RecordError("journal_flush")
			p.log.Warn("journal flush failed",
				applogger.Int("records", len(batch)),
				applogger.Error(err),
			)
			// keep the batch for the next attempt unless it outgrew the buffer
			if len(batch) >= p.bufSize {
				p.metrics.RecordError("journal_buffer_drop")
				batch = batch[:0]
			}
			if backoff < 2*time.Second {
				backoff *= 2
			}
			return
		}
		batch = batch[:0]
		backoff = 50 * time.Millisecond
	}

	for {
		select {
		case <-p.stopCh:
			p.drain(&batch)
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(fctx)
			cancel()
			return
		case <-ctx.Done():
			return
		case r := <-p.bufCh:
			batch = append(batch, r)
			if len(batch) >= p.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
			if len(batch) > 0 {
				time.Sleep(backoff)
			}
		}
	}
}

func (p *JournalPipeline) drain(batch *[]*models.JournalRecord) {
	for {
		select {
		case r := <-p.bufCh:
			*batch = append(*batch, r)
		default:
			return
		}
	}
}
