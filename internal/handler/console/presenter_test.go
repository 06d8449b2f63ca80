package console

import (
	"bytes"
	"testing"

	"ScanDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestPresenter_PrintsCardsAndEmptyState(t *testing.T) {
	var buf bytes.Buffer
	p := NewPresenter(&buf)

	p.OnScanStarted(models.SessionInfo{Tab: models.TabPut, Timeframe: "1m"})
	p.OnSignalMatched(models.SignalMatch{
		View: models.View{Tab: models.TabPut, Timeframe: "1m"},
		Signal: models.StockSignal{
			Name: "TCS",
			Timeframes: models.Timeframes{
				{Label: "1m", Result: models.TimeframeResult{HasSignal: true, Price: 50, SignalDir: models.DirectionShort}},
			},
		},
		IsNew: true,
	})
	p.OnEmptyResult(models.EmptyResult{StocksScanned: 7})

	out := buf.String()
	assert.Contains(t, out, "scanning PE (Put) on 1m")
	assert.Contains(t, out, "TCS")
	assert.Contains(t, out, " PE ")
	assert.Contains(t, out, "NEW")
	assert.Contains(t, out, "No PE (Put) Signals (scanned 7 stocks)")
}
