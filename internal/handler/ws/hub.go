package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ScanDesk/internal/domain/models"
	applogger "ScanDesk/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Message types pushed to feed clients.
const (
	TypeScanStarted = "scan_started"
	TypeProgress    = "progress"
	TypeSignal      = "signal"
	TypeFinalize    = "finalize"
	TypeEmpty       = "empty"
	TypeAuth        = "auth"
	TypeSignals     = "signals"
)

// Message is one feed frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type signalPayload struct {
	SessionID string            `json:"session_id"`
	Card      models.SignalCard `json:"card"`
}

type emptyPayload struct {
	models.EmptyResult
	Message string `json:"message"`
}

type signalsPayload struct {
	View  models.View         `json:"view"`
	Cards []models.SignalCard `json:"cards"`
}

// Hub is a presenter that fans scanner callbacks out to websocket clients.
// Broadcasts never block: a client that cannot keep up loses frames.
type Hub struct {
	log          *applogger.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	sendBuffer   int

	mu      sync.RWMutex
	clients map[*client]struct{}
	tab     models.Tab
	last    map[string][]byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

func NewHub(l *applogger.Logger, pingInterval time.Duration) *Hub {
	if l == nil {
		l = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		log:          l.Component("ws"),
		pingInterval: pingInterval,
		sendBuffer:   64,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		tab:     models.TabCall,
		last:    make(map[string][]byte),
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve upgrades the request and replays the latest auth, progress and
// signals frames so a new client starts with the current picture.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}

	cl := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	for _, typ := range []string{TypeAuth, TypeProgress, TypeSignals} {
		if b, ok := h.last[typ]; ok {
			cl.send <- b
		}
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("ws client connected", applogger.Int("clients", n))

	go h.writeLoop(cl)
	h.readLoop(cl)
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		delete(h.clients, cl)
		cl.close()
	}
}

func (h *Hub) readLoop(cl *client) {
	defer h.remove(cl)
	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		// the feed is one-way; reads only surface close and pong frames
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(cl *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		cl.close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("ws client disconnected", applogger.Int("clients", n))
}

func (h *Hub) broadcast(typ string, data interface{}) {
	b, err := json.Marshal(Message{Type: typ, Data: data})
	if err != nil {
		h.log.Error("ws encode failed", applogger.String("type", typ), applogger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	switch typ {
	case TypeAuth, TypeProgress, TypeSignals:
		h.last[typ] = b
	}
	for cl := range h.clients {
		select {
		case cl.send <- b:
		default:
			// drop on backpressure
		}
	}
}

func (h *Hub) currentTab() models.Tab {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tab
}

func (h *Hub) setTab(tab models.Tab) {
	h.mu.Lock()
	h.tab = tab
	h.mu.Unlock()
}

func (h *Hub) OnScanStarted(info models.SessionInfo) {
	h.setTab(info.Tab)
	h.broadcast(TypeScanStarted, info)
}

func (h *Hub) OnProgress(p models.SessionProgress) {
	h.broadcast(TypeProgress, p)
}

func (h *Hub) OnSignalMatched(m models.SignalMatch) {
	card, ok := m.Signal.Card(m.View.Timeframe, m.IsNew)
	if !ok {
		return
	}
	h.broadcast(TypeSignal, signalPayload{SessionID: m.SessionID, Card: card})
}

func (h *Hub) OnFinalize(s models.ScanSummary) {
	h.broadcast(TypeFinalize, s)
}

func (h *Hub) OnEmptyResult(res models.EmptyResult) {
	h.broadcast(TypeEmpty, emptyPayload{
		EmptyResult: res,
		Message:     EmptyMessage(h.currentTab(), res),
	})
}

func (h *Hub) OnAuthStateChanged(d models.AuthDecision) {
	h.broadcast(TypeAuth, d)
}

func (h *Hub) OnSignalsRendered(view models.View, signals []models.StockSignal) {
	h.setTab(view.Tab)
	cards := make([]models.SignalCard, 0, len(signals))
	for _, sig := range signals {
		if card, ok := sig.Card(view.Timeframe, false); ok {
			cards = append(cards, card)
		}
	}
	h.broadcast(TypeSignals, signalsPayload{View: view, Cards: cards})
}

// EmptyMessage is the empty-state headline shown for tab.
func EmptyMessage(tab models.Tab, res models.EmptyResult) string {
	if res.ConnectionFailed {
		return fmt.Sprintf("No %s Signals (connection failed, scanned %d stocks)", tab.Label(), res.StocksScanned)
	}
	return fmt.Sprintf("No %s Signals (scanned %d stocks)", tab.Label(), res.StocksScanned)
}
