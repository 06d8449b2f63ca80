package models

import "time"

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type SignalsRequest struct {
	Tab string `query:"tab" json:"tab" default:"call" validate:"oneof=call put ce pe CALL PUT CE PE"`
}

type TabRequest struct {
	Tab string `json:"tab" validate:"required,oneof=call put ce pe CALL PUT CE PE"`
}

type TimeframeRequest struct {
	Timeframe string `json:"timeframe" validate:"required,oneof=1m 2m 3m 5m 15m"`
}

type AutoRefreshRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type ActivateRequest struct {
	Key string `json:"key" validate:"max=256"`
}

// DashboardStatus is the read model served by GET /api/status.
type DashboardStatus struct {
	DeviceID    string          `json:"device_id"`
	Auth        AuthDecision    `json:"auth"`
	View        View            `json:"view"`
	AutoRefresh bool            `json:"auto_refresh"`
	Session     SessionProgress `json:"session"`
	StoreSize   int             `json:"store_size"`
	LastScanAt  *time.Time      `json:"last_scan_at,omitempty"`
}

// SignalsResponse lists the cards visible for one tab.
type SignalsResponse struct {
	Tab   Tab          `json:"tab"`
	Count int          `json:"count"`
	Cards []SignalCard `json:"cards"`
}
