package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeframes_PreserveServerOrder(t *testing.T) {
	raw := `{"name":"TCS","timeframes":{
		"2m":{"has_signal":true,"price":10,"signal_dir":"SHORT"},
		"1m":{"has_signal":true,"price":11,"signal_dir":"LONG"}}}`

	var sig StockSignal
	require.NoError(t, json.Unmarshal([]byte(raw), &sig))
	require.Len(t, sig.Timeframes, 2)
	assert.Equal(t, "2m", sig.Timeframes[0].Label)

	p, ok := sig.Primary()
	require.True(t, ok)
	assert.Equal(t, "2m", p.Label)
	assert.True(t, sig.Matches(DirectionShort))
	assert.False(t, sig.Matches(DirectionLong))

	out, err := json.Marshal(sig.Timeframes)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"2m":.*"1m":`, string(out))
}

func TestTimeframes_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	var tfs Timeframes
	raw := `{"1m":{"has_signal":false},"2m":{"has_signal":false},"1m":{"has_signal":true,"price":5}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &tfs))
	require.Len(t, tfs, 2)
	assert.Equal(t, "1m", tfs[0].Label)
	assert.True(t, tfs[0].Result.HasSignal)
}

func TestTimeframes_RejectsNonObject(t *testing.T) {
	var tfs Timeframes
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &tfs))
	require.NoError(t, json.Unmarshal([]byte(`null`), &tfs))
	assert.Nil(t, tfs)
}

func TestStockSignal_NoPrimary(t *testing.T) {
	sig := StockSignal{Name: "X", Timeframes: Timeframes{{Label: "1m", Result: TimeframeResult{Price: 3}}}}
	_, ok := sig.Primary()
	assert.False(t, ok)
	assert.False(t, sig.Matches(DirectionLong))
	assert.False(t, sig.Matches(DirectionShort))
	_, ok = sig.Card("1m", true)
	assert.False(t, ok)
}

func TestTimeframeResult_MissingDirectionIsLong(t *testing.T) {
	var r TimeframeResult
	require.NoError(t, json.Unmarshal([]byte(`{"has_signal":true,"price":1,"signal_dir":null}`), &r))
	assert.Equal(t, DirectionLong, r.Direction())
}

func TestStockSignal_Card(t *testing.T) {
	high, low := 110.0, 95.0
	sig := StockSignal{Name: "INFY", Timeframes: Timeframes{
		{Label: "1m", Result: TimeframeResult{HasSignal: true, Price: 100, SignalDir: DirectionLong, LevelHigh: &high, LevelLow: &low}},
	}}
	card, ok := sig.Card("1m", true)
	require.True(t, ok)
	assert.Equal(t, "CE", card.Label)
	assert.Equal(t, "1M", card.Timeframe)
	assert.Equal(t, 5.0, card.DistancePct)
	assert.Equal(t, "https://www.tradingview.com/chart/?symbol=NSE:INFY", card.ChartURL)

	sig.Timeframes[0].Result = TimeframeResult{HasSignal: true, Price: 200, SignalDir: DirectionShort}
	card, ok = sig.Card("2m", false)
	require.True(t, ok)
	assert.Equal(t, "PE", card.Label)
	assert.InDelta(t, 204.0, card.LevelHigh, 1e-9)
	assert.InDelta(t, 196.0, card.LevelLow, 1e-9)
	assert.Equal(t, 2.0, card.DistancePct)
}

func TestParseTab(t *testing.T) {
	for in, want := range map[string]Tab{"call": TabCall, "CE": TabCall, " put ": TabPut, "pe": TabPut} {
		got, err := ParseTab(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseTab("both")
	assert.Error(t, err)

	assert.Equal(t, DirectionLong, TabCall.Direction())
	assert.Equal(t, DirectionShort, TabPut.Direction())
}
