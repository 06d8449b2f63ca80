package screener

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeTracker struct {
	io.Reader
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return nil
}

func streamOf(body string) (*eventStream, *closeTracker) {
	rc := &closeTracker{Reader: strings.NewReader(body)}
	return newEventStream(rc), rc
}

// payloads drains the stream and returns every data payload plus the
// terminating error.
func payloads(t *testing.T, body string) ([]string, error) {
	t.Helper()
	es, _ := streamOf(body)
	defer es.Close()
	var out []string
	for {
		p, err := es.Next()
		if err != nil {
			return out, err
		}
		out = append(out, string(p))
	}
}

func TestEventStream_Frames(t *testing.T) {
	body := ": keepalive\n" +
		"data: {\"type\":\"progress\",\"scanned\":1,\"total\":2}\n\n" +
		"event: update\r\nid: 7\r\ndata: {\"type\":\"done\"}\r\n\r\n"

	got, err := payloads(t, body)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{
		`{"type":"progress","scanned":1,"total":2}`,
		`{"type":"done"}`,
	}, got)
}

func TestEventStream_MultilineDataAndCR(t *testing.T) {
	got, _ := payloads(t, "data:a\rdata: b\r\rdata:c\n\n")
	assert.Equal(t, []string{"a\nb", "c"}, got)
}

func TestEventStream_EventsWithoutDataAreSkipped(t *testing.T) {
	got, err := payloads(t, "\n\nevent: ping\n\ndata: x\n\n")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"x"}, got)
}

func TestEventStream_UnterminatedEventIsNotDelivered(t *testing.T) {
	got, err := payloads(t, "data: complete\n\ndata: partial")
	require.Error(t, err)
	assert.Equal(t, []string{"complete"}, got)
}

func TestEventStream_LeadingBOM(t *testing.T) {
	got, _ := payloads(t, "\ufeffdata: x\n\n")
	assert.Equal(t, []string{"x"}, got)
}

func TestEventStream_CloseIsIdempotent(t *testing.T) {
	es, rc := streamOf("data: x\n\n")
	_, err := es.Next()
	require.NoError(t, err)

	require.NoError(t, es.Close())
	require.NoError(t, es.Close())
	assert.Equal(t, 1, rc.closed)
}
