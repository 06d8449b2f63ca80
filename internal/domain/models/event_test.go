package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScanEvent(t *testing.T) {
	ev, err := ParseScanEvent([]byte(`{"type":"progress","scanned":3,"total":10,"symbol":"TCS.NS"}`))
	require.NoError(t, err)
	assert.Equal(t, EventProgress, ev.Kind)
	assert.Equal(t, ProgressEvent{Scanned: 3, Total: 10}, ev.Progress)

	ev, err = ParseScanEvent([]byte(`{"type":"signal","data":{"name":"TCS","timeframes":{"1m":{"has_signal":true,"price":1}}}}`))
	require.NoError(t, err)
	assert.Equal(t, EventSignal, ev.Kind)
	assert.Equal(t, "TCS", ev.Signal.Name)

	ev, err = ParseScanEvent([]byte(`{"type":"done"}`))
	require.NoError(t, err)
	assert.Equal(t, EventDone, ev.Kind)
}

func TestParseScanEvent_Rejects(t *testing.T) {
	malformed := []string{
		`not json`,
		`{}`,
		`{"type":"progress","scanned":1}`,
		`{"type":"progress","scanned":-1,"total":2}`,
		`{"type":"signal"}`,
		`{"type":"signal","data":{"timeframes":{}}}`,
		`{"type":"signal","data":{"name":"X","timeframes":[]}}`,
	}
	for _, raw := range malformed {
		_, err := ParseScanEvent([]byte(raw))
		assert.ErrorIs(t, err, ErrMalformedEvent, raw)
	}

	_, err := ParseScanEvent([]byte(`{"type":"start","total":501}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
