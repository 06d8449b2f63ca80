package repository

import (
	"fmt"
	"strings"
)

// Timeframe is the candle resolution a scan runs on.
type Timeframe string

// DefaultTimeframe is used until the user picks another one.
const DefaultTimeframe Timeframe = "1m"

// SupportedTimeframes lists what the remote scanner accepts, shortest first.
var SupportedTimeframes = []Timeframe{"1m", "2m", "3m", "5m", "15m"}

func IsValidTimeframe(tf Timeframe) bool {
	for _, s := range SupportedTimeframes {
		if s == tf {
			return true
		}
	}
	return false
}

// ParseTimeframe accepts a supported timeframe, ignoring case and
// surrounding space.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidTimeframe(tf) {
		return "", fmt.Errorf("unsupported timeframe %q", s)
	}
	return tf, nil
}
