package screener

import (
	"io"
	"iter"
	"sync"

	"github.com/tmaxmax/go-sse"
)

const maxFrameBytes = 1 << 20

// eventStream adapts an open text/event-stream body to
// repository.EventStream. Only events carrying data are surfaced; the end of
// the body is reported as io.EOF.
type eventStream struct {
	body io.ReadCloser
	next func() (sse.Event, error, bool)
	stop func()
	once sync.Once
	err  error
}

func newEventStream(body io.ReadCloser) *eventStream {
	next, stop := iter.Pull2(sse.Read(body, &sse.ReadConfig{MaxEventSize: maxFrameBytes}))
	return &eventStream{body: body, next: next, stop: stop}
}

// Next blocks until the next data event. It must not be called concurrently
// with itself or Close.
func (s *eventStream) Next() ([]byte, error) {
	for {
		ev, err, ok := s.next()
		if !ok {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if ev.Data == "" {
			continue
		}
		return []byte(ev.Data), nil
	}
}

func (s *eventStream) Close() error {
	s.once.Do(func() {
		s.err = s.body.Close()
		s.stop()
	})
	return s.err
}
