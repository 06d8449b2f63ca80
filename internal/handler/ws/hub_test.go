package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ScanDesk/internal/domain/models"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestHub_ReplaysLatestStateOnConnect(t *testing.T) {
	h := NewHub(nil, time.Minute)
	h.OnAuthStateChanged(models.AuthDecision{State: models.GateAuthorized, Authorized: true})
	h.OnProgress(models.SessionProgress{State: models.SessionStreaming, Scanned: 3, Total: 10})

	conn := dialHub(t, h)

	first := readMessage(t, conn)
	assert.Equal(t, TypeAuth, first.Type)
	second := readMessage(t, conn)
	assert.Equal(t, TypeProgress, second.Type)
	data, ok := second.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 3, data["scanned"])
}

func TestHub_BroadcastsMatchedSignalAsCard(t *testing.T) {
	h := NewHub(nil, time.Minute)
	conn := dialHub(t, h)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.OnSignalMatched(models.SignalMatch{
		SessionID: "s1",
		View:      models.View{Tab: models.TabCall, Timeframe: "5m"},
		Signal: models.StockSignal{
			Name: "INFY",
			Timeframes: models.Timeframes{
				{Label: "5m", Result: models.TimeframeResult{HasSignal: true, Price: 100, SignalDir: models.DirectionLong}},
			},
		},
		IsNew: true,
	})

	m := readMessage(t, conn)
	assert.Equal(t, TypeSignal, m.Type)
	data := m.Data.(map[string]interface{})
	card := data["card"].(map[string]interface{})
	assert.Equal(t, "INFY", card["name"])
	assert.Equal(t, "CE", card["label"])
	assert.Equal(t, "5M", card["timeframe"])
	assert.Equal(t, true, card["is_new"])
}

func TestEmptyMessage(t *testing.T) {
	assert.Equal(t, "No CE (Call) Signals (scanned 501 stocks)",
		EmptyMessage(models.TabCall, models.EmptyResult{StocksScanned: 501}))
	assert.Equal(t, "No PE (Put) Signals (connection failed, scanned 0 stocks)",
		EmptyMessage(models.TabPut, models.EmptyResult{ConnectionFailed: true}))
}
