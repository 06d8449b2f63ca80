package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedEvent = errors.New("malformed scan event")
	ErrUnknownEvent   = errors.New("unknown scan event")
)

// EventKind tags the variant carried by a ScanEvent.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventSignal   EventKind = "signal"
	EventDone     EventKind = "done"
)

type ProgressEvent struct {
	Scanned int `json:"scanned"`
	Total   int `json:"total"`
}

// ScanEvent is one decoded stream frame. Only the field matching Kind is set.
type ScanEvent struct {
	Kind     EventKind
	Progress ProgressEvent
	Signal   StockSignal
}

type wireEvent struct {
	Type    string       `json:"type"`
	Scanned *int         `json:"scanned"`
	Total   *int         `json:"total"`
	Data    *StockSignal `json:"data"`
}

// ParseScanEvent decodes one frame payload into the tagged variant. Frames that
// do not fit one of the three shapes return ErrMalformedEvent or ErrUnknownEvent.
func ParseScanEvent(data []byte) (ScanEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return ScanEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch EventKind(w.Type) {
	case EventProgress:
		if w.Scanned == nil || w.Total == nil {
			return ScanEvent{}, fmt.Errorf("%w: progress without counters", ErrMalformedEvent)
		}
		if *w.Scanned < 0 || *w.Total < 0 {
			return ScanEvent{}, fmt.Errorf("%w: negative progress counters", ErrMalformedEvent)
		}
		return ScanEvent{Kind: EventProgress, Progress: ProgressEvent{Scanned: *w.Scanned, Total: *w.Total}}, nil
	case EventSignal:
		if w.Data == nil || w.Data.Name == "" {
			return ScanEvent{}, fmt.Errorf("%w: signal without stock name", ErrMalformedEvent)
		}
		return ScanEvent{Kind: EventSignal, Signal: *w.Data}, nil
	case EventDone:
		return ScanEvent{Kind: EventDone}, nil
	case "":
		return ScanEvent{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return ScanEvent{}, fmt.Errorf("%w: %q", ErrUnknownEvent, w.Type)
	}
}
