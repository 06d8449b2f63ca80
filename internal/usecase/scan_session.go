package usecase

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
	applogger "ScanDesk/pkg/logger"

	"github.com/google/uuid"
)

const (
	ReasonNoSignals        = "no active signals"
	ReasonConnectionFailed = "connection failed"
)

// Scanner runs streaming scan sessions. At most one session is live; starting
// another supersedes it. Every event and every finalize is handled under one
// mutex, so handling is serialized across sessions and always observes the
// tab visible at that moment.
type Scanner struct {
	stream    drepo.ScanStream
	store     *SignalStore
	presenter drepo.Presenter
	metrics   drepo.Metrics
	log       *applogger.Logger
	now       func() time.Time

	mu     sync.Mutex
	gen    uint64
	view   models.View
	active *session
	last   *session
}

type session struct {
	id        string
	gen       uint64
	timeframe string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	state      models.SessionState
	scanned    int
	total      int
	found      int
	finalized  bool
	superseded bool
	summary    models.ScanSummary
}

func (s *session) progress() models.SessionProgress {
	return models.SessionProgress{
		ID:           s.id,
		State:        s.state,
		Scanned:      s.scanned,
		Total:        s.total,
		SignalsFound: s.found,
	}
}

// ScanHandle lets a caller follow one session.
type ScanHandle struct {
	s *session
}

func (h *ScanHandle) ID() string { return h.s.id }

// Done is closed when the session finalizes or is superseded.
func (h *ScanHandle) Done() <-chan struct{} { return h.s.done }

// Summary returns the finalize summary. ok is false while the session is
// still streaming and for sessions that were superseded.
func (h *ScanHandle) Summary() (summary models.ScanSummary, ok bool) {
	select {
	case <-h.s.done:
		return h.s.summary, h.s.finalized
	default:
		return models.ScanSummary{}, false
	}
}

func NewScanner(
	stream drepo.ScanStream,
	store *SignalStore,
	presenter drepo.Presenter,
	metrics drepo.Metrics,
	l *applogger.Logger,
	view models.View,
) *Scanner {
	if presenter == nil {
		presenter = drepo.NopPresenter{}
	}
	if metrics == nil {
		metrics = drepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Scanner{
		stream:    stream,
		store:     store,
		presenter: presenter,
		metrics:   metrics,
		log:       l.Component("scanner"),
		now:       time.Now,
		view:      view,
	}
}

// Start supersedes any live session and opens a new stream for view. The
// session outlives the call; ctx bounds its whole lifetime.
func (s *Scanner) Start(ctx context.Context, view models.View, creds models.Credentials) *ScanHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersedeLocked()
	s.gen++
	s.view = view

	sctx, cancel := context.WithCancel(ctx)
	sess := &session{
		id:        uuid.NewString(),
		gen:       s.gen,
		timeframe: view.Timeframe,
		startedAt: s.now(),
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     models.SessionStreaming,
	}
	s.active = sess
	s.last = sess

	s.log.Info("scan started",
		applogger.String("session", sess.id),
		applogger.String("timeframe", view.Timeframe),
		applogger.String("tab", string(view.Tab)),
	)
	s.presenter.OnScanStarted(models.SessionInfo{
		ID:        sess.id,
		Timeframe: view.Timeframe,
		Tab:       view.Tab,
		StartedAt: sess.startedAt,
	})

	go s.run(sctx, sess, models.StreamRequest{
		Timeframe:  view.Timeframe,
		LicenseKey: creds.LicenseKey,
		DeviceID:   creds.DeviceID,
	})
	return &ScanHandle{s: sess}
}

// Stop abandons the live session without finalizing it.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.gen++
}

// View returns the current presentation context.
func (s *Scanner) View() models.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetTab changes the visible tab and re-renders it from the store. Events
// handled afterwards are matched against the new tab.
func (s *Scanner) SetTab(tab models.Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Tab = tab
	s.renderLocked()
}

// SetTimeframe records the timeframe used by the next session.
func (s *Scanner) SetTimeframe(tf string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Timeframe = tf
}

// LoadSignals replaces the store contents and renders the current tab.
func (s *Scanner) LoadSignals(signals []models.StockSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Replace(signals)
	s.renderLocked()
}

// Render re-emits the current tab from the store.
func (s *Scanner) Render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderLocked()
}

// Progress reports the live session, or the most recent one.
func (s *Scanner) Progress() models.SessionProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return models.SessionProgress{State: models.SessionIdle}
	}
	return s.last.progress()
}

// Latest returns a handle on the most recently started session.
func (s *Scanner) Latest() (*ScanHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, false
	}
	return &ScanHandle{s: s.last}, true
}

// LastSummary returns the summary of the most recently finalized session.
func (s *Scanner) LastSummary() (models.ScanSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || !s.last.finalized {
		return models.ScanSummary{}, false
	}
	return s.last.summary, true
}

func (s *Scanner) run(ctx context.Context, sess *session, req models.StreamRequest) {
	es, err := s.stream.Open(ctx, req)
	if err != nil {
		s.fail(sess, err)
		return
	}
	defer es.Close()

	for {
		payload, err := es.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = drepo.ErrStreamClosed
			}
			s.fail(sess, err)
			return
		}
		if stop := s.handle(sess, payload); stop {
			return
		}
	}
}

// handle applies one frame. It returns true once the session no longer
// accepts events.
func (s *Scanner) handle(sess *session, payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inertLocked(sess) {
		return true
	}

	ev, err := models.ParseScanEvent(payload)
	if err != nil {
		if errors.Is(err, models.ErrUnknownEvent) {
			s.metrics.RecordStreamEvent("unknown")
			s.log.Debug("unknown event skipped", applogger.String("session", sess.id), applogger.Error(err))
			return false
		}
		s.metrics.RecordMalformedEvent()
		s.log.Warn("malformed event skipped", applogger.String("session", sess.id), applogger.Error(err))
		return false
	}
	s.metrics.RecordStreamEvent(string(ev.Kind))

	switch ev.Kind {
	case models.EventProgress:
		sess.scanned = ev.Progress.Scanned
		sess.total = ev.Progress.Total
		s.presenter.OnProgress(sess.progress())

	case models.EventSignal:
		s.store.Upsert(ev.Signal)
		dir := s.view.Tab.Direction()
		if ev.Signal.Matches(dir) {
			sess.found++
			s.metrics.RecordSignalMatched(string(dir))
			s.presenter.OnSignalMatched(models.SignalMatch{
				SessionID: sess.id,
				View:      models.View{Tab: s.view.Tab, Timeframe: sess.timeframe},
				Signal:    ev.Signal,
				IsNew:     true,
			})
		}

	case models.EventDone:
		s.finalizeLocked(sess, models.SessionClosedOK, nil)
		return true
	}
	return false
}

func (s *Scanner) fail(sess *session, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inertLocked(sess) {
		return
	}
	s.finalizeLocked(sess, models.SessionClosedError, err)
}

func (s *Scanner) inertLocked(sess *session) bool {
	return sess.gen != s.gen || sess.superseded || sess.finalized
}

func (s *Scanner) finalizeLocked(sess *session, state models.SessionState, cause error) {
	if sess.finalized {
		return
	}
	sess.finalized = true
	sess.state = state
	if s.active == sess {
		s.active = nil
	}

	completed := s.now()
	sess.summary = models.ScanSummary{
		SessionID:     sess.id,
		Timeframe:     sess.timeframe,
		State:         state,
		SignalsFound:  sess.found,
		StocksScanned: sess.scanned,
		Total:         sess.total,
		StartedAt:     sess.startedAt,
		CompletedAt:   completed,
	}
	if cause != nil {
		sess.summary.Error = cause.Error()
	}

	s.metrics.RecordSession(string(state))
	s.metrics.RecordLatency("scan_session", completed.Sub(sess.startedAt).Seconds())
	if cause != nil {
		s.metrics.RecordError("scan_stream")
		s.log.Warn("scan failed",
			applogger.String("session", sess.id),
			applogger.Int("scanned", sess.scanned),
			applogger.Error(cause),
		)
	} else {
		s.log.Info("scan complete",
			applogger.String("session", sess.id),
			applogger.Int("scanned", sess.scanned),
			applogger.Int("found", sess.found),
		)
	}

	s.presenter.OnFinalize(sess.summary)
	if sess.found == 0 {
		res := models.EmptyResult{
			SessionID:     sess.id,
			StocksScanned: sess.scanned,
			Reason:        ReasonNoSignals,
		}
		if state == models.SessionClosedError && sess.scanned == 0 {
			res.Reason = ReasonConnectionFailed
			res.ConnectionFailed = true
		}
		s.presenter.OnEmptyResult(res)
	}

	close(sess.done)
	sess.cancel()
}

func (s *Scanner) supersedeLocked() {
	sess := s.active
	if sess == nil {
		return
	}
	s.active = nil
	if sess.finalized {
		return
	}
	sess.superseded = true
	sess.cancel()
	close(sess.done)
	s.metrics.RecordSession("superseded")
	s.log.Debug("scan superseded", applogger.String("session", sess.id))
}

func (s *Scanner) renderLocked() {
	s.presenter.OnSignalsRendered(s.view, s.store.FilterByDirection(s.view.Tab.Direction()))
}
