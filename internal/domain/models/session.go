package models

import "time"

// SessionState is the lifecycle of one streaming scan.
type SessionState string

const (
	SessionIdle        SessionState = "idle"
	SessionStreaming   SessionState = "streaming"
	SessionClosedOK    SessionState = "closed-ok"
	SessionClosedError SessionState = "closed-error"
)

// Terminal reports whether no further transition is allowed.
func (s SessionState) Terminal() bool {
	return s == SessionClosedOK || s == SessionClosedError
}

// View is the session-scoped presentation context: which tab is visible and
// which timeframe the scan runs on.
type View struct {
	Tab       Tab    `json:"tab"`
	Timeframe string `json:"timeframe"`
}

// Credentials ride along with the stream request so the server can gate it.
type Credentials struct {
	LicenseKey string
	DeviceID   string
}

// StreamRequest parameterizes one scan stream connection.
type StreamRequest struct {
	Timeframe  string
	LicenseKey string
	DeviceID   string
}

// SessionInfo identifies a scan session to presenters.
type SessionInfo struct {
	ID        string    `json:"id"`
	Timeframe string    `json:"timeframe"`
	Tab       Tab       `json:"tab"`
	StartedAt time.Time `json:"started_at"`
}

// ScanSummary is produced exactly once per session, on finalize.
type ScanSummary struct {
	SessionID     string       `json:"session_id"`
	Timeframe     string       `json:"timeframe"`
	State         SessionState `json:"state"`
	SignalsFound  int          `json:"signals_found"`
	StocksScanned int          `json:"stocks_scanned"`
	Total         int          `json:"total"`
	StartedAt     time.Time    `json:"started_at"`
	CompletedAt   time.Time    `json:"completed_at"`
	Error         string       `json:"error,omitempty"`
}

// EmptyResult tells the presentation layer to replace any partial grid with an
// empty state.
type EmptyResult struct {
	SessionID        string `json:"session_id"`
	StocksScanned    int    `json:"stocks_scanned"`
	Reason           string `json:"reason"`
	ConnectionFailed bool   `json:"connection_failed"`
}

// SessionProgress is a point-in-time view of the active or last session.
type SessionProgress struct {
	ID           string       `json:"id,omitempty"`
	State        SessionState `json:"state"`
	Scanned      int          `json:"scanned"`
	Total        int          `json:"total"`
	SignalsFound int          `json:"signals_found"`
}

// SignalMatch is a streamed signal whose primary direction matches the tab
// visible when it arrived.
type SignalMatch struct {
	SessionID string      `json:"session_id"`
	View      View        `json:"view"`
	Signal    StockSignal `json:"signal"`
	IsNew     bool        `json:"is_new"`
}
