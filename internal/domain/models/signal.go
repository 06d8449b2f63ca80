package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Direction is the bias a timeframe result points to.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Tab is the user's chosen view: "call" surfaces LONG signals, "put" SHORT ones.
type Tab string

const (
	TabCall Tab = "call"
	TabPut  Tab = "put"
)

// ParseTab accepts call/put and the CE/PE aliases, case-insensitive.
func ParseTab(s string) (Tab, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "ce":
		return TabCall, nil
	case "put", "pe":
		return TabPut, nil
	default:
		return "", fmt.Errorf("unknown tab %q", s)
	}
}

// Direction maps a tab to the signal direction it displays.
func (t Tab) Direction() Direction {
	if t == TabPut {
		return DirectionShort
	}
	return DirectionLong
}

// Label is the human label used in empty states, e.g. "CE (Call)".
func (t Tab) Label() string {
	if t == TabPut {
		return "PE (Put)"
	}
	return "CE (Call)"
}

// TimeframeResult is the per-timeframe verdict the server reports for one stock.
type TimeframeResult struct {
	HasSignal  bool      `json:"has_signal"`
	Price      float64   `json:"price"`
	SignalDir  Direction `json:"signal_dir,omitempty"`
	SignalType string    `json:"signal_type,omitempty"`
	LevelHigh  *float64  `json:"level_high,omitempty"`
	LevelLow   *float64  `json:"level_low,omitempty"`
}

// Direction returns the declared direction; a missing value reads as LONG.
func (r TimeframeResult) Direction() Direction {
	if r.SignalDir == "" {
		return DirectionLong
	}
	return r.SignalDir
}

// TimeframeEntry is one labelled result, kept in server serialization order.
type TimeframeEntry struct {
	Label  string
	Result TimeframeResult
}

// Timeframes is an ordered label -> result mapping. The JSON object key order
// is preserved because primary-timeframe selection depends on it.
type Timeframes []TimeframeEntry

func (t *Timeframes) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("timeframes: %w", err)
	}
	if tok == nil {
		*t = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("timeframes: expected object, got %v", tok)
	}

	out := make(Timeframes, 0, 2)
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("timeframes: %w", err)
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("timeframes: expected key, got %v", keyTok)
		}
		var res TimeframeResult
		if err := dec.Decode(&res); err != nil {
			return fmt.Errorf("timeframes[%s]: %w", label, err)
		}
		// a repeated key keeps its first position and takes the last value
		if i, dup := index[label]; dup {
			out[i].Result = res
			continue
		}
		index[label] = len(out)
		out = append(out, TimeframeEntry{Label: label, Result: res})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("timeframes: %w", err)
	}

	*t = out
	return nil
}

func (t Timeframes) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Result)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lookup returns the result recorded for label.
func (t Timeframes) Lookup(label string) (TimeframeResult, bool) {
	for _, e := range t {
		if e.Label == label {
			return e.Result, true
		}
	}
	return TimeframeResult{}, false
}

// StockSignal is the latest server verdict for one stock. Name is its identity.
type StockSignal struct {
	Name       string     `json:"name"`
	Symbol     string     `json:"symbol,omitempty"`
	Timeframes Timeframes `json:"timeframes"`
}

// Primary returns the first timeframe, in serialization order, that carries a signal.
func (s StockSignal) Primary() (TimeframeEntry, bool) {
	for _, e := range s.Timeframes {
		if e.Result.HasSignal {
			return e, true
		}
	}
	return TimeframeEntry{}, false
}

// PrimaryDirection is the direction of the primary timeframe, if any.
func (s StockSignal) PrimaryDirection() (Direction, bool) {
	p, ok := s.Primary()
	if !ok {
		return "", false
	}
	return p.Result.Direction(), true
}

// Matches reports whether the primary timeframe points in dir.
func (s StockSignal) Matches(dir Direction) bool {
	d, ok := s.PrimaryDirection()
	return ok && d == dir
}

// SignalCard is the render-ready view of a stock signal.
type SignalCard struct {
	Name             string    `json:"name"`
	Label            string    `json:"label"` // CE or PE
	Direction        Direction `json:"direction"`
	Timeframe        string    `json:"timeframe"`
	PrimaryTimeframe string    `json:"primary_timeframe"`
	SignalType       string    `json:"signal_type,omitempty"`
	Price            float64   `json:"price"`
	LevelHigh        float64   `json:"level_high"`
	LevelLow         float64   `json:"level_low"`
	DistancePct      float64   `json:"distance_pct"`
	ChartURL         string    `json:"chart_url"`
	IsNew            bool      `json:"is_new"`
}

const chartURLBase = "https://www.tradingview.com/chart/?symbol=NSE:"

// Card builds the render view for a scan run at timeframe. Missing levels
// default to a 2% zone around the price.
func (s StockSignal) Card(timeframe string, isNew bool) (SignalCard, bool) {
	p, ok := s.Primary()
	if !ok {
		return SignalCard{}, false
	}
	res := p.Result
	dir := res.Direction()
	isCall := dir == DirectionLong

	high := res.Price * 1.02
	if res.LevelHigh != nil && *res.LevelHigh != 0 {
		high = *res.LevelHigh
	}
	low := res.Price * 0.98
	if res.LevelLow != nil && *res.LevelLow != 0 {
		low = *res.LevelLow
	}

	var distance float64
	if res.Price != 0 {
		ref := high
		if isCall {
			ref = low
		}
		distance = math.Round(math.Abs(res.Price-ref)/res.Price*100*100) / 100
	}

	label := "PE"
	if isCall {
		label = "CE"
	}

	return SignalCard{
		Name:             s.Name,
		Label:            label,
		Direction:        dir,
		Timeframe:        strings.ToUpper(timeframe),
		PrimaryTimeframe: p.Label,
		SignalType:       res.SignalType,
		Price:            res.Price,
		LevelHigh:        high,
		LevelLow:         low,
		DistancePct:      distance,
		ChartURL:         chartURLBase + s.Name,
		IsNew:            isNew,
	}, true
}
