package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ScanDesk/internal/domain/models"
	drepo "ScanDesk/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var callView = models.View{Tab: models.TabCall, Timeframe: "1m"}

func newTestScanner(stream drepo.ScanStream, p drepo.Presenter) (*Scanner, *SignalStore) {
	store := NewSignalStore(nil)
	return NewScanner(stream, store, p, nil, nil, callView), store
}

func waitDone(t *testing.T, h *ScanHandle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestScanner_EndToEndCallTab(t *testing.T) {
	conn := newFakeConn()
	stream := &fakeStream{}
	stream.queue(conn)
	p := &recordingPresenter{}
	s, store := newTestScanner(stream, p)

	h := s.Start(context.Background(), callView, models.Credentials{LicenseKey: "KEY", DeviceID: "DEV-1"})
	conn.push(progressEvent(0, 3))
	conn.push(progressEvent(3, 3))
	conn.push(signalEvent("A", models.DirectionLong))
	conn.push(signalEvent("B", models.DirectionShort))
	conn.push(doneEvent)
	waitDone(t, h)

	got := p.snapshot()
	require.Len(t, got.matches, 1)
	assert.Equal(t, "A", got.matches[0].Signal.Name)
	assert.True(t, got.matches[0].IsNew)
	require.Len(t, got.finalizes, 1)
	assert.Equal(t, 3, got.finalizes[0].StocksScanned)
	assert.Equal(t, 1, got.finalizes[0].SignalsFound)
	assert.Equal(t, models.SessionClosedOK, got.finalizes[0].State)
	assert.Empty(t, got.empties)
	assert.Len(t, got.progress, 2)
	assert.Equal(t, 2, store.Len())

	summary, ok := h.Summary()
	require.True(t, ok)
	assert.Equal(t, h.ID(), summary.SessionID)
	assert.False(t, summary.CompletedAt.IsZero())

	reqs := stream.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.StreamRequest{Timeframe: "1m", LicenseKey: "KEY", DeviceID: "DEV-1"}, reqs[0])
	assert.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)
}

func TestScanner_RepeatedSignalReplaces(t *testing.T) {
	conn := newFakeConn()
	stream := &fakeStream{}
	stream.queue(conn)
	p := &recordingPresenter{}
	s, store := newTestScanner(stream, p)

	h := s.Start(context.Background(), callView, models.Credentials{})
	conn.push(signalEvent("A", models.DirectionLong))
	conn.push(signalEvent("A", models.DirectionShort))
	conn.push(doneEvent)
	waitDone(t, h)

	all := store.All()
	require.Len(t, all, 1)
	dir, ok := all[0].PrimaryDirection()
	require.True(t, ok)
	assert.Equal(t, models.DirectionShort, dir)
	// the first arrival matched the call tab before being replaced
	assert.Len(t, p.snapshot().matches, 1)
}

func TestScanner_EmptyResultOnDoneWithoutMatches(t *testing.T) {
	conn := newFakeConn()
	stream := &fakeStream{}
	stream.queue(conn)
	p := &recordingPresenter{}
	s, _ := newTestScanner(stream, p)

	h := s.Start(context.Background(), callView, models.Credentials{})
	conn.push(progressEvent(501, 501))
	conn.push(signalEvent("B", models.DirectionShort))
	conn.push(doneEvent)
	waitDone(t, h)

	got := p.snapshot()
	require.Len(t, got.empties, 1)
	assert.Equal(t, 501, got.empties[0].StocksScanned)
	assert.Equal(t, ReasonNoSignals, got.empties[0].Reason)
	assert.False(t, got.empties[0].ConnectionFailed)
	require.Len(t, got.finalizes, 1)
	assert.Equal(t, 0, got.finalizes[0].SignalsFound)
}

func TestScanner_SupersededSessionNeverFinalizes(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	stream := &fakeStream{}
	stream.queue(first, second)
	p := &recordingPresenter{}
	s, store := newTestScanner(stream, p)

	h1 := s.Start(context.Background(), callView, models.Credentials{})
	first.push(progressEvent(1, 10))
	require.Eventually(t, func() bool { return len(p.snapshot().progress) == 1 }, time.Second, 5*time.Millisecond)

	h2 := s.Start(context.Background(), callView, models.Credentials{})
	waitDone(t, h1)
	_, ok := h1.Summary()
	assert.False(t, ok)

	// late frames from the superseded connection are inert
	first.push(signalEvent("LATE", models.DirectionLong))
	first.push(doneEvent)
	require.Eventually(t, first.isClosed, time.Second, 5*time.Millisecond)

	second.push(signalEvent("A", models.DirectionLong))
	second.push(doneEvent)
	waitDone(t, h2)

	got := p.snapshot()
	require.Len(t, got.finalizes, 1)
	assert.Equal(t, h2.ID(), got.finalizes[0].SessionID)
	require.Len(t, got.matches, 1)
	assert.Equal(t, h2.ID(), got.matches[0].SessionID)
	assert.Len(t, got.started, 2)
	assert.Equal(t, 1, store.Len())
}

func TestScanner_TransportFailures(t *testing.T) {
	t.Run("open error before any progress", func(t *testing.T) {
		stream := &fakeStream{openErr: errors.New("403 forbidden")}
		p := &recordingPresenter{}
		s, _ := newTestScanner(stream, p)

		h := s.Start(context.Background(), callView, models.Credentials{})
		waitDone(t, h)

		got := p.snapshot()
		require.Len(t, got.finalizes, 1)
		assert.Equal(t, models.SessionClosedError, got.finalizes[0].State)
		assert.Contains(t, got.finalizes[0].Error, "403")
		require.Len(t, got.empties, 1)
		assert.Equal(t, ReasonConnectionFailed, got.empties[0].Reason)
		assert.True(t, got.empties[0].ConnectionFailed)
	})

	t.Run("stream closed without done keeps partial count", func(t *testing.T) {
		conn := newFakeConn()
		stream := &fakeStream{}
		stream.queue(conn)
		p := &recordingPresenter{}
		s, _ := newTestScanner(stream, p)

		h := s.Start(context.Background(), callView, models.Credentials{})
		conn.push(progressEvent(42, 501))
		conn.eof()
		waitDone(t, h)

		got := p.snapshot()
		require.Len(t, got.finalizes, 1)
		assert.Equal(t, models.SessionClosedError, got.finalizes[0].State)
		assert.Equal(t, 42, got.finalizes[0].StocksScanned)
		assert.Contains(t, got.finalizes[0].Error, drepo.ErrStreamClosed.Error())
		require.Len(t, got.empties, 1)
		assert.Equal(t, 42, got.empties[0].StocksScanned)
		assert.Equal(t, ReasonNoSignals, got.empties[0].Reason)
	})

	t.Run("close after zero-count progress is a connection failure", func(t *testing.T) {
		conn := newFakeConn()
		stream := &fakeStream{}
		stream.queue(conn)
		p := &recordingPresenter{}
		s, _ := newTestScanner(stream, p)

		h := s.Start(context.Background(), callView, models.Credentials{})
		conn.push(progressEvent(0, 501))
		conn.eof()
		waitDone(t, h)

		got := p.snapshot()
		require.Len(t, got.empties, 1)
		assert.Equal(t, 0, got.empties[0].StocksScanned)
		assert.Equal(t, ReasonConnectionFailed, got.empties[0].Reason)
		assert.True(t, got.empties[0].ConnectionFailed)
	})

	t.Run("read error after a match has no empty state", func(t *testing.T) {
		conn := newFakeConn()
		stream := &fakeStream{}
		stream.queue(conn)
		p := &recordingPresenter{}
		s, _ := newTestScanner(stream, p)

		h := s.Start(context.Background(), callView, models.Credentials{})
		conn.push(signalEvent("A", models.DirectionLong))
		conn.fail(errors.New("connection reset"))
		waitDone(t, h)

		got := p.snapshot()
		require.Len(t, got.finalizes, 1)
		assert.Equal(t, 1, got.finalizes[0].SignalsFound)
		assert.Empty(t, got.empties)
	})
}

func TestScanner_SkipsMalformedAndUnknownEvents(t *testing.T) {
	conn := newFakeConn()
	stream := &fakeStream{}
	stream.queue(conn)
	p := &recordingPresenter{}
	s, _ := newTestScanner(stream, p)

	h := s.Start(context.Background(), callView, models.Credentials{})
	conn.push(`{"type":"start","total":3}`)
	conn.push(`not json`)
	conn.push(`{"type":"progress"}`)
	conn.push(`{"type":"signal","data":{}}`)
	conn.push(progressEvent(3, 3))
	conn.push(signalEvent("A", models.DirectionLong))
	conn.push(doneEvent)
	waitDone(t, h)

	got := p.snapshot()
	require.Len(t, got.finalizes, 1)
	assert.Equal(t, models.SessionClosedOK, got.finalizes[0].State)
	assert.Equal(t, 3, got.finalizes[0].StocksScanned)
	assert.Len(t, got.matches, 1)
}

func TestScanner_MatchesAgainstTabVisibleAtArrival(t *testing.T) {
	conn := newFakeConn()
	stream := &fakeStream{}
	stream.queue(conn)
	p := &recordingPresenter{}
	s, store := newTestScanner(stream, p)

	h := s.Start(context.Background(), callView, models.Credentials{})
	conn.push(signalEvent("A", models.DirectionShort))
	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, p.snapshot().matches)

	s.SetTab(models.TabPut)
	got := p.snapshot()
	require.Len(t, got.renders, 1)
	require.Len(t, got.renders[0], 1)
	assert.Equal(t, "A", got.renders[0][0].Name)

	conn.push(signalEvent("B", models.DirectionShort))
	conn.push(signalEvent("C", models.DirectionLong))
	conn.push(doneEvent)
	waitDone(t, h)

	got = p.snapshot()
	require.Len(t, got.matches, 1)
	assert.Equal(t, "B", got.matches[0].Signal.Name)
	assert.Equal(t, models.TabPut, got.matches[0].View.Tab)
	assert.Equal(t, 1, got.finalizes[0].SignalsFound)
}

func TestScanner_StopAbandonsWithoutFinalize(t *testing.T) {
	conn := newFakeConn()
	stream := &fakeStream{}
	stream.queue(conn)
	p := &recordingPresenter{}
	s, _ := newTestScanner(stream, p)

	h := s.Start(context.Background(), callView, models.Credentials{})
	s.Stop()
	waitDone(t, h)
	require.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)

	assert.Empty(t, p.snapshot().finalizes)
	_, ok := s.LastSummary()
	assert.False(t, ok)
}

func TestScanner_LoadSignalsRendersCurrentTab(t *testing.T) {
	p := &recordingPresenter{}
	s, store := newTestScanner(&fakeStream{}, p)

	s.LoadSignals([]models.StockSignal{
		stockSignal("A", models.DirectionLong),
		stockSignal("B", models.DirectionShort),
		stockSignal("A", models.DirectionLong),
	})

	assert.Equal(t, 2, store.Len())
	got := p.snapshot()
	require.Len(t, got.renders, 1)
	require.Len(t, got.renders[0], 1)
	assert.Equal(t, "A", got.renders[0][0].Name)
	assert.Equal(t, models.SessionIdle, s.Progress().State)
}

func TestScanner_LatestTracksMostRecentSession(t *testing.T) {
	stream := &fakeStream{}
	first, second := newFakeConn(), newFakeConn()
	stream.queue(first, second)
	s, _ := newTestScanner(stream, nil)

	_, ok := s.Latest()
	assert.False(t, ok)

	h1 := s.Start(context.Background(), callView, models.Credentials{})
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, h1.ID(), latest.ID())
	require.Eventually(t, func() bool { return len(stream.requests()) == 1 }, time.Second, 5*time.Millisecond)

	h2 := s.Start(context.Background(), callView, models.Credentials{})
	second.push(doneEvent)
	waitDone(t, h2)

	latest, ok = s.Latest()
	require.True(t, ok)
	assert.Equal(t, h2.ID(), latest.ID())
	_, finished := latest.Summary()
	assert.True(t, finished)
}
