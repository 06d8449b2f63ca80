package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"
)

type frame struct {
	data []byte
	err  error
}

type fakeConn struct {
	ctx    context.Context
	frames chan frame
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan frame, 64), closed: make(chan struct{})}
}

func (c *fakeConn) push(payload string) { c.frames <- frame{data: []byte(payload)} }
func (c *fakeConn) fail(err error) { c.frames <- frame{err: err} }
func (c *fakeConn) eof() { c.frames <- frame{err: io.EOF} }
func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) Next() ([]byte, error) {
	select {
	case f := <-c.frames:
		return f.data, f.err
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// fakeStream hands out queued connections in order.
type fakeStream struct {
	mu      sync.Mutex
	conns   []*fakeConn
	reqs    []models.StreamRequest
	openErr error
}

func (s *fakeStream) queue(conns ...*fakeConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns = append(s.conns, conns...)
}

func (s *fakeStream) Open(ctx context.Context, req models.StreamRequest) (drepo.EventStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	if s.openErr != nil {
		return nil, s.openErr
	}
	if len(s.conns) == 0 {
		return nil, errors.New("no connection queued")
	}
	c := s.conns[0]
	s.conns = s.conns[1:]
	c.ctx = ctx
	return c, nil
}

func (s *fakeStream) requests() []models.StreamRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StreamRequest(nil), s.reqs...)
}

type fakeAuthority struct {
	mu      sync.Mutex
	calls   []string
	results map[string]models.ValidationResult
	err     error
	block   chan struct{}
}

func (a *fakeAuthority) Validate(ctx context.Context, key, deviceID string) (models.ValidationResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, key+"|"+deviceID)
	block := a.block
	err := a.err
	res := a.results[key]
	a.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.ValidationResult{}, ctx.Err()
		}
	}
	if err != nil {
		return models.ValidationResult{}, err
	}
	return res, nil
}

func (a *fakeAuthority) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type fakeSnapshots struct {
	snap *models.Snapshot
	err  error
}

func (f *fakeSnapshots) Snapshot(context.Context) (*models.Snapshot, error) {
	return f.snap, f.err
}

type recorded struct {
	started   []models.SessionInfo
	progress  []models.SessionProgress
	matches   []models.SignalMatch
	finalizes []models.ScanSummary
	empties   []models.EmptyResult
	auth      []models.AuthDecision
	renders   [][]models.StockSignal
}

type recordingPresenter struct {
	mu sync.Mutex
	recorded
}

func (p *recordingPresenter) OnScanStarted(info models.SessionInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, info)
}

func (p *recordingPresenter) OnProgress(pr models.SessionProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = append(p.progress, pr)
}

func (p *recordingPresenter) OnSignalMatched(m models.SignalMatch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matches = append(p.matches, m)
}

func (p *recordingPresenter) OnFinalize(s models.ScanSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finalizes = append(p.finalizes, s)
}

func (p *recordingPresenter) OnEmptyResult(res models.EmptyResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.empties = append(p.empties, res)
}

func (p *recordingPresenter) OnAuthStateChanged(d models.AuthDecision) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.auth = append(p.auth, d)
}

func (p *recordingPresenter) OnSignalsRendered(_ models.View, signals []models.StockSignal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renders = append(p.renders, signals)
}

func (p *recordingPresenter) snapshot() recorded {
	p.mu.Lock()
	defer p.mu.Unlock()
	return recorded{
		started:   append([]models.SessionInfo(nil), p.started...),
		progress:  append([]models.SessionProgress(nil), p.progress...),
		matches:   append([]models.SignalMatch(nil), p.matches...),
		finalizes: append([]models.ScanSummary(nil), p.finalizes...),
		empties:   append([]models.EmptyResult(nil), p.empties...),
		auth:      append([]models.AuthDecision(nil), p.auth...),
		renders:   append([][]models.StockSignal(nil), p.renders...),
	}
}

func progressEvent(scanned, total int) string {
	b, _ := json.Marshal(map[string]interface{}{"type": "progress", "scanned": scanned, "total": total})
	return string(b)
}

func signalEvent(name string, dir models.Direction) string {
	b, _ := json.Marshal(map[string]interface{}{
		"type": "signal",
		"data": map[string]interface{}{
			"name": name,
			"timeframes": map[string]interface{}{
				"1m": map[string]interface{}{"has_signal": true, "price": 100.0, "signal_dir": string(dir)},
			},
		},
	})
	return string(b)
}

const doneEvent = `{"type":"done"}`

func stockSignal(name string, dir models.Direction) models.StockSignal {
	return models.StockSignal{
		Name: name,
		Timeframes: models.Timeframes{
			{Label: "1m", Result: models.TimeframeResult{HasSignal: true, Price: 100, SignalDir: dir}},
		},
	}
}
